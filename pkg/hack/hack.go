package hack

// Instruction is the closed sum type over the two machine instruction shapes
// the Hack CPU understands. A Program never contains a label declaration;
// those are resolved into SymbolTable entries by asm.Lowerer before a
// hack.Program exists at all, so by the time this package sees a Program
// every entry occupies exactly one 16-bit ROM word.
type Instruction interface{}

type Program []Instruction

// SymbolTable maps every label and variable name seen in a program to the
// address it resolved to. It's built in two passes: asm.Lowerer seeds it
// with label addresses during lowering, then Analyzer.Analyze fills in the
// remaining variable addresses (auto-allocated starting at address 16)
// before Emitter.Generate runs.
type SymbolTable map[string]uint16

// MaxAddressableMemory is one past the highest address an AInstruction can
// name: an A-instruction keeps its top bit for the opcode and carries a
// 15-bit address, so valid addresses run [0, 1<<15).
const MaxAddressableMemory uint16 = 1 << 15

// AInstruction loads an address into the A register. LocType says how
// LocName should be interpreted: as a decimal literal, a resolved label, or
// one of the fixed built-in symbols (SP, THIS, SCREEN, R0..R15, ...).
type AInstruction struct {
	LocType LocationType
	LocName string
}

type LocationType uint8

const (
	Raw     LocationType = iota // a decimal literal, e.g. @2345
	Label                       // a user-declared label or variable, e.g. @LOOP
	BuiltIn                     // a predefined Hack symbol, e.g. @SCREEN, @R1
)

// CInstruction is the compute instruction: evaluate Comp, store the result
// per Dest if set, jump per Jump if set. Both Dest and Jump may be empty,
// but at least one of them must be set for the instruction to do anything
// observable; asm.Lowerer enforces that before a CInstruction is built.
type CInstruction struct {
	Comp string
	Dest string
	Jump string
}
