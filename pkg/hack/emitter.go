package hack

import (
	"fmt"
	"strconv"
)

// ----------------------------------------------------------------------------
// Emitter (pass 2)

// Takes a Program and a fully resolved SymbolTable and spits out their binary
// counterparts, one 16 character line per instruction.
//
// Unlike the Analyzer, the Emitter never mutates the SymbolTable: by the time it
// runs every label and variable has already been assigned an address, so a lookup
// miss here is a genuine error rather than a new variable to allocate.
type Emitter struct {
	program Program
	table   SymbolTable
}

// Initializes and returns to the caller a brand new 'Emitter' struct.
// Requires both a non-nil Program 'p' (what we want to translate) as well as
// a fully resolved Symbol Table 'st' used to look up every label/variable.
func NewEmitter(p Program, st SymbolTable) Emitter {
	return Emitter{program: p, table: st}
}

// Translates each instruction in the Program to the Hack binary format.
func (em *Emitter) Generate() ([]string, error) {
	hack := make([]string, 0, len(em.program))

	for _, instruction := range em.program {
		var generated string
		var err error

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = em.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = em.GenerateCInst(tInstruction)
		default:
			err = fmt.Errorf("unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		hack = append(hack, generated)
	}

	return hack, nil
}

// Specialized function to convert an A Instruction to the Hack format.
//
// As part of the conversion (for both built-in and user-defined labels) there's a lookup
// on their respective symbol tables in order to determine the 'real' location address.
// For locations not resolved or resolved to an Out-of-Bound address an error is returned.
func (em *Emitter) GenerateAInst(inst AInstruction) (string, error) {
	found, address := false, uint16(0)

	switch inst.LocType {
	case Raw: // Simply translate the raw address from 'string' to 'int'
		num, err := strconv.ParseInt(inst.LocName, 10, 16)
		address, found = uint16(num), err == nil
	case Label: // Lookup the label/variable name, already resolved by Analyzer.Analyze
		address, found = em.table[inst.LocName]
	case BuiltIn: // Lookup the registry name in the WellKnown table
		address, found = BuiltInTable[inst.LocName]
	}

	if !found {
		return "", fmt.Errorf("unable to resolve address for location '%s'", inst.LocName)
	}
	// An A instruction always has the first bit set to zero (the opcode bit) this also mean
	// that, since each instructions 16 bit there are only 15 bit to address the Hack computer
	// memory this in turn means that the an address over 2^15 is invalid and out of bound.
	if address >= MaxAddressableMemory {
		return "", fmt.Errorf("location '%s' resolved to an address not allowed", inst.LocName)
	}
	// So here we just need to convert the address to its 16 bit binary representation
	return fmt.Sprintf("%016b", address), nil
}

// Specialized function to convert a C Instruction to the Hack format.
func (em *Emitter) GenerateCInst(inst CInstruction) (string, error) {
	command := uint16(0b111 << 13) // Puts the initial '111' opcode at the start

	// CInst.Comp: Command translation with bit-a-bit manipulation
	if opcode, found := CompTable[inst.Comp]; found {
		command |= opcode << 6
	} else {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'comp' opcode '%s'", inst.Comp)
	}
	// CInst.Dest: Command translation with bit-a-bit manipulation
	if opcode, found := DestTable[inst.Dest]; found {
		command |= opcode << 3
	} else {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'dest' opcode '%s'", inst.Dest)
	}
	// CInst.Jump: Command translation with bit-a-bit manipulation
	if opcode, found := JumpTable[inst.Jump]; found {
		command |= opcode
	} else {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'jump' opcode '%s'", inst.Jump)
	}

	return fmt.Sprintf("%016b", command), nil
}
