package asm

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/hack"
)

// Lowerer resolves an asm.Program (still carrying LabelDecl statements) into
// a hack.Program plus the hack.SymbolTable recording where each label landed.
// A label's resolved address is simply the number of real instructions
// emitted before it was encountered: labels themselves produce no
// instruction, so they don't advance that count.
type Lowerer struct{ program Program }

func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("the given program has no instructions")
	}

	instructions := make([]hack.Instruction, 0, len(l.program))
	labels := hack.SymbolTable{}

	for _, stmt := range l.program {
		switch s := stmt.(type) {
		case AInstruction:
			inst, err := l.HandleAInst(s)
			if err != nil {
				return nil, nil, err
			}
			instructions = append(instructions, inst)

		case CInstruction:
			inst, err := l.HandleCInst(s)
			if err != nil {
				return nil, nil, err
			}
			instructions = append(instructions, inst)

		case LabelDecl:
			name, err := l.HandleLabelDecl(s)
			if err != nil {
				return nil, nil, err
			}
			labels[name] = uint16(len(instructions))

		case Comment: // Annotation lines occupy no instruction slot
			continue

		default:
			return nil, nil, fmt.Errorf("unrecognized instruction '%T'", stmt)
		}
	}

	return instructions, labels, nil
}

// HandleAInst classifies an address reference: a registered built-in symbol,
// a literal decimal address, or (the fallback) a user-declared label whose
// address isn't known until the whole program has been scanned once.
// A digit-leading location can only ever be a literal (labels can't start
// with a digit), so one that doesn't fit the 15-bit address space is an
// error here rather than a fallthrough into variable allocation.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if inst.Location == "" {
		return nil, fmt.Errorf("A instruction needs a non-empty location")
	}
	if _, builtin := hack.BuiltInTable[inst.Location]; builtin {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	if first := inst.Location[0]; first >= '0' && first <= '9' {
		addr, err := strconv.ParseUint(inst.Location, 10, 16)
		if err != nil || uint16(addr) >= hack.MaxAddressableMemory {
			return nil, fmt.Errorf("location '%s' is outside the addressable memory range", inst.Location)
		}
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" {
		return nil, fmt.Errorf("C instruction needs a non-empty 'comp' field")
	}
	if inst.Dest == "" && inst.Jump == "" {
		return nil, fmt.Errorf("C instruction needs a 'dest', a 'jump', or both")
	}
	return hack.CInstruction{Comp: inst.Comp, Dest: inst.Dest, Jump: inst.Jump}, nil
}

func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", fmt.Errorf("label declaration needs a non-empty name")
	}
	return inst.Name, nil
}
