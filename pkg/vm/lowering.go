package vm

import (
	"fmt"
	"sort"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Lowering

// Translates a whole VM Program down to Hack assembly, module by module.
//
// Modules are visited in a deterministic (sorted) order so that the same
// Program always lowers to byte-identical assembly, which keeps golden-file
// tests and diffing sane across runs.
type Lowerer struct {
	program Program
}

func NewLowerer(p Program) *Lowerer {
	return &Lowerer{program: p}
}

// Lower walks every module in the program and concatenates the resulting
// instructions into a single assembly program. When 'bootstrap' is set the
// standard Sys.init bootstrap prelude is emitted first, exactly like the
// two-file (Init.vm-less) invocation of the reference VM translator.
func (l *Lowerer) Lower(bootstrap bool) (asm.Program, error) {
	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	if bootstrap {
		program = append(program, bootstrapInstructions()...)
	}

	for _, name := range names {
		unit := &unitLowerer{staticsBase: name, currentFunction: name}
		for _, op := range l.program[name] {
			instructions, err := unit.lower(op)
			if err != nil {
				return nil, fmt.Errorf("error lowering module '%s': %w", name, err)
			}

			// Each block is preceded by a comment carrying the VM command it
			// was lowered from, so the .asm can be read against its source.
			source, err := renderOperation(op)
			if err != nil {
				return nil, fmt.Errorf("error lowering module '%s': %w", name, err)
			}
			program = append(program, asm.Comment{Text: source})
			program = append(program, instructions...)
		}
	}

	return program, nil
}

// bootstrapInstructions sets SP to 256 and hands control to Sys.init with an
// unconditional jump. No call frame is built: no return address, LCL, ARG,
// THIS or THAT is pushed before the jump.
func bootstrapInstructions() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "Sys.init"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}
}

// unitLowerer carries the per-module state needed while lowering a single
// translation unit: the name used to qualify its static variables, and the
// name of the function currently being emitted (labels and branch targets
// are scoped to it, just like the VM spec requires).
type unitLowerer struct {
	staticsBase     string
	currentFunction string
	labelNumber     uint
}

func (u *unitLowerer) lower(op Operation) ([]asm.Instruction, error) {
	switch tOp := op.(type) {
	case MemoryOp:
		return u.lowerMemoryOp(tOp)
	case ArithmeticOp:
		return u.lowerArithmeticOp(tOp)
	case LabelDecl:
		return []asm.Instruction{asm.LabelDecl{Name: u.qualify(tOp.Name)}}, nil
	case GotoOp:
		return u.lowerGotoOp(tOp)
	case FuncDecl:
		return u.lowerFuncDecl(tOp), nil
	case FuncCallOp:
		return u.lowerFuncCallOp(tOp), nil
	case ReturnOp:
		return lowerReturnOp(), nil
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", op)
	}
}

// qualify scopes a bare VM label to the function currently being emitted,
// matching the reference translator's 'function$label' convention.
func (u *unitLowerer) qualify(label string) string {
	return fmt.Sprintf("%s$%s", u.currentFunction, label)
}

// ----------------------------------------------------------------------------
// Stack primitives

func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

func popM() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M-1"},
		asm.CInstruction{Dest: "A", Comp: "M"},
	}
}

func popD() []asm.Instruction {
	return append(popM(), asm.CInstruction{Dest: "D", Comp: "M"})
}

func peekM() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
	}
}

// ----------------------------------------------------------------------------
// Memory Op

func (u *unitLowerer) lowerMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	if op.Operation == Push {
		return u.push(op.Segment, op.Offset)
	}
	return u.pop(op.Segment, op.Offset)
}

func (u *unitLowerer) push(segment SegmentType, index uint16) ([]asm.Instruction, error) {
	switch segment {
	case Argument:
		return indirectPush("ARG", index), nil
	case Local:
		return indirectPush("LCL", index), nil
	case This:
		return indirectPush("THIS", index), nil
	case That:
		return indirectPush("THAT", index), nil
	case Static:
		return directPush(u.staticName(index), 0), nil
	case Pointer:
		if index > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", index)
		}
		return directPush("THIS", index), nil
	case Temp:
		if index > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", index)
		}
		return directPush("R5", index), nil
	case Constant:
		return constantPush(index), nil
	default:
		return nil, fmt.Errorf("unrecognized segment '%s' for push", segment)
	}
}

func (u *unitLowerer) pop(segment SegmentType, index uint16) ([]asm.Instruction, error) {
	switch segment {
	case Argument:
		return indirectPop("ARG", index), nil
	case Local:
		return indirectPop("LCL", index), nil
	case This:
		return indirectPop("THIS", index), nil
	case That:
		return indirectPop("THAT", index), nil
	case Static:
		return directPop(u.staticName(index), 0), nil
	case Pointer:
		if index > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", index)
		}
		return directPop("THIS", index), nil
	case Temp:
		if index > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", index)
		}
		return directPop("R5", index), nil
	case Constant:
		return nil, fmt.Errorf("cannot pop into the 'constant' segment")
	default:
		return nil, fmt.Errorf("unrecognized segment '%s' for pop", segment)
	}
}

func (u *unitLowerer) staticName(index uint16) string {
	return fmt.Sprintf("%s.%d", u.staticsBase, index)
}

// indirectPush reads the segment pointer, offsets it by 'index' and pushes
// the value found there, e.g. 'push argument 2' -> *(ARG+2).
func indirectPush(segment string, index uint16) []asm.Instruction {
	instructions := []asm.Instruction{}
	if index != 0 {
		instructions = append(instructions,
			asm.AInstruction{Location: fmt.Sprint(index)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		)
	}
	instructions = append(instructions,
		asm.AInstruction{Location: segment},
		asm.CInstruction{Dest: "A", Comp: "M"},
	)
	if index != 0 {
		instructions = append(instructions, asm.CInstruction{Dest: "A", Comp: "D+A"})
	}
	instructions = append(instructions, asm.CInstruction{Dest: "D", Comp: "M"})
	return append(instructions, pushD()...)
}

// directPush pushes the value found at a fixed base register/symbol offset
// by 'index', e.g. 'push temp 3' -> *(R5+3). Used for temp/static/pointer.
func directPush(reference string, index uint16) []asm.Instruction {
	instructions := []asm.Instruction{}
	if index != 0 {
		instructions = append(instructions,
			asm.AInstruction{Location: fmt.Sprint(index)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		)
	}
	instructions = append(instructions, asm.AInstruction{Location: reference})
	if index != 0 {
		instructions = append(instructions, asm.CInstruction{Dest: "A", Comp: "D+A"})
	}
	instructions = append(instructions, asm.CInstruction{Dest: "D", Comp: "M"})
	return append(instructions, pushD()...)
}

func constantPush(value uint16) []asm.Instruction {
	instructions := []asm.Instruction{
		asm.AInstruction{Location: fmt.Sprint(value)},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	return append(instructions, pushD()...)
}

// indirectPop spills the resolved destination address into R13 and
// recurses on the zero-offset case, which keeps D free to carry the value
// being popped off the stack.
func indirectPop(segment string, index uint16) []asm.Instruction {
	if index == 0 {
		instructions := popD()
		instructions = append(instructions,
			asm.AInstruction{Location: segment},
			asm.CInstruction{Dest: "A", Comp: "M"},
		)
		return append(instructions, asm.CInstruction{Dest: "M", Comp: "D"})
	}

	instructions := []asm.Instruction{
		asm.AInstruction{Location: segment},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(index)},
		asm.CInstruction{Dest: "D", Comp: "D+A"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	return append(instructions, indirectPop("R13", 0)...)
}

func directPop(reference string, index uint16) []asm.Instruction {
	if index == 0 {
		instructions := popD()
		return append(instructions,
			asm.AInstruction{Location: reference},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	instructions := []asm.Instruction{
		asm.AInstruction{Location: reference},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: fmt.Sprint(index)},
		asm.CInstruction{Dest: "D", Comp: "D+A"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	return append(instructions, indirectPop("R13", 0)...)
}

// ----------------------------------------------------------------------------
// Arithmetic Op

func (u *unitLowerer) lowerArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil
	case Neg:
		return unaryOp("-M"), nil
	case Not:
		return unaryOp("!M"), nil
	case Eq:
		return u.compareOp("JEQ"), nil
	case Gt:
		return u.compareOp("JGT"), nil
	case Lt:
		return u.compareOp("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// binaryOp pops the top of the stack into D, then combines it with the new
// top ('M') in place, leaving a single value on the stack.
func binaryOp(comp string) []asm.Instruction {
	instructions := popD()
	instructions = append(instructions, asm.CInstruction{Dest: "A", Comp: "A-1"})
	return append(instructions, asm.CInstruction{Dest: "M", Comp: comp})
}

// unaryOp rewrites the top of the stack in place, without popping.
func unaryOp(comp string) []asm.Instruction {
	instructions := peekM()
	return append(instructions, asm.CInstruction{Dest: "M", Comp: comp})
}

// compareOp pops two values, subtracts them and jumps on the requested
// condition to decide between pushing true (-1) or false (0) back.
// Labels are numbered per-function so that repeated comparisons in the
// same function don't collide.
func (u *unitLowerer) compareOp(jump string) []asm.Instruction {
	trueLabel := fmt.Sprintf("%s$true.%d", u.currentFunction, u.labelNumber)
	joinLabel := fmt.Sprintf("%s$join.%d", u.currentFunction, u.labelNumber)
	u.labelNumber++

	instructions := popD()
	instructions = append(instructions,
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.CInstruction{Dest: "D", Comp: "0"},
		asm.AInstruction{Location: joinLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.CInstruction{Dest: "D", Comp: "-1"},
		asm.LabelDecl{Name: joinLabel},
	)
	instructions = append(instructions, peekM()...)
	return append(instructions, asm.CInstruction{Dest: "M", Comp: "D"})
}

// ----------------------------------------------------------------------------
// Branching Ops

func (u *unitLowerer) lowerGotoOp(op GotoOp) ([]asm.Instruction, error) {
	label := u.qualify(op.Label)

	switch op.Jump {
	case Unconditional:
		return []asm.Instruction{
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	case Conditional:
		instructions := popD()
		return append(instructions,
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "D", Jump: "JNE"},
		), nil
	default:
		return nil, fmt.Errorf("unrecognized jump type '%s'", op.Jump)
	}
}

// ----------------------------------------------------------------------------
// Function Ops

// lowerFuncDecl emits the function's entry label followed by NLocal
// zero-initializing pushes, and resets the per-function label counter so
// that comparisons and calls inside this function start numbering at 0.
func (u *unitLowerer) lowerFuncDecl(op FuncDecl) []asm.Instruction {
	u.currentFunction = op.Name
	u.labelNumber = 0

	instructions := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		instructions = append(instructions, constantPush(0)...)
	}
	return instructions
}

// lowerFuncCallOp builds the 5-word call frame (return address, LCL, ARG,
// THIS, THAT), rebases ARG to the first of the caller's already-pushed
// arguments, rebases LCL to the current stack top and jumps to the callee.
// The return-site label is numbered per call within the current function so
// that repeated calls to the same callee don't collide.
func (u *unitLowerer) lowerFuncCallOp(op FuncCallOp) []asm.Instruction {
	returnLabel := fmt.Sprintf("%s$ret.%d", u.currentFunction, u.labelNumber)
	u.labelNumber++

	instructions := []asm.Instruction{
		// R13 = SP - NArgs, the base of the caller's pushed arguments
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	instructions = append(instructions, pushReturnAddress(returnLabel)...)
	instructions = append(instructions, directPush("LCL", 0)...)
	instructions = append(instructions, directPush("ARG", 0)...)
	instructions = append(instructions, directPush("THIS", 0)...)
	instructions = append(instructions, directPush("THAT", 0)...)

	instructions = append(instructions,
		// ARG = R13
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// jump to callee
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)

	return instructions
}

// pushReturnAddress pushes the (symbolic) address of a return-site label,
// the same way a 'push constant' pushes a numeric literal.
func pushReturnAddress(label string) []asm.Instruction {
	instructions := []asm.Instruction{
		asm.AInstruction{Location: label},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	return append(instructions, pushD()...)
}

// lowerReturnOp tears down the current frame: it stashes the frame base and
// return address in R13/R14, moves the single return value into the
// caller's first argument slot, drops SP to just past it, restores the
// caller's virtual registers and finally jumps back to the caller.
func lowerReturnOp() []asm.Instruction {
	instructions := []asm.Instruction{
		// R13 = LCL - 5 (frame base)
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// R14 = *R13 (return address)
		asm.CInstruction{Dest: "A", Comp: "D"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	instructions = append(instructions, indirectPop("ARG", 0)...)

	instructions = append(instructions,
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	instructions = append(instructions, restoreRegister("LCL")...)
	instructions = append(instructions, restoreRegister("ARG")...)
	instructions = append(instructions, restoreRegister("THIS")...)
	instructions = append(instructions, restoreRegister("THAT")...)

	instructions = append(instructions,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return instructions
}

// restoreRegister walks the saved frame one word at a time: R13 is bumped
// past the slot just consumed, then the virtual register is overwritten
// with the value found there. Called in LCL, ARG, THIS, THAT order, which
// walks the frame from its lowest saved slot upward (mirrors push order).
func restoreRegister(register string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: register},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
}
