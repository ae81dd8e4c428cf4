package hack

// ----------------------------------------------------------------------------
// Analyzer (pass 1)

// The Analyzer performs the first of the two passes mandated for address resolution:
// it walks the Program and assigns every still-unresolved 'Label' reference a fresh
// RAM address, in order of first reference, starting at 16.
//
// Label declarations (the L pseudo-instruction) never reach this package: the
// asm.Lowerer already folds those into the SymbolTable's instruction addresses before
// handing the Program to the Analyzer. What's left unresolved at this point can only
// be a user-defined variable, so anything not already in the table gets allocated.
type Analyzer struct {
	program Program
	table   SymbolTable
}

// Initializes a brand new 'Analyzer'. The provided SymbolTable should already carry
// every label's instruction address (see asm.Lowerer.Lower); a nil table is treated
// as empty.
func NewAnalyzer(p Program, st SymbolTable) Analyzer {
	if st == nil {
		st = SymbolTable{}
	}
	return Analyzer{program: p, table: st}
}

// Walks the Program and completes the SymbolTable with variable addresses.
// Returns the completed table, ready to be handed to an Emitter.
func (an *Analyzer) Analyze() (SymbolTable, error) {
	nextVarAddr := uint16(16)

	for _, instruction := range an.program {
		inst, ok := instruction.(AInstruction)
		if !ok || inst.LocType != Label {
			continue
		}

		if _, found := an.table[inst.LocName]; found {
			continue
		}

		an.table[inst.LocName] = nextVarAddr
		nextVarAddr++
	}

	return an.table, nil
}
