package asm

// Instruction is the closed sum type for everything a parsed assembly file
// can contain: label declarations alongside the two real Hack instruction
// shapes. Statement is an alias kept around because the Parser's grammar
// talks about "statements" (a line is a statement, roughly) while the rest
// of the package talks about "instructions"; they're the same Go type.
type Instruction interface{}
type Statement = Instruction

// Program is the flat, in-declaration-order statement list the Parser
// produces. Labels are still present here; resolving them into addresses
// and producing a hack.Program with only A/C instructions is Lowerer's job.
type Program []Instruction

// LabelDecl marks a jump target by name. It carries no address: Lowerer
// assigns one during a dedicated address-resolution pass, based on where in
// the instruction stream the label appears once all prior statements have
// been counted.
type LabelDecl struct {
	Name string
}

// AInstruction loads a 15-bit address into the A register. Location is
// whatever the parser captured verbatim (a raw numeral, a builtin symbol
// like SCREEN or KBD, or a user label), classified and resolved to a
// concrete address by Lowerer before codegen ever sees it.
type AInstruction struct {
	Location string
}

// CInstruction is the Hack compute instruction: evaluate Comp, optionally
// store the result per Dest, optionally jump per Jump. Any of Dest/Jump may
// be the empty string (no destination / no jump), but Comp is always
// present, since a C-instruction that computes nothing isn't valid Hack assembly.
type CInstruction struct {
	Comp string
	Dest string
	Jump string
}

// Comment is a '// ...' annotation line in the generated assembly text. The
// VM Translator emits one before each lowered block carrying the VM command
// it came from; Lowerer skips it entirely (it occupies no instruction slot)
// and CodeGenerator renders it back as a comment line.
type Comment struct {
	Text string
}
