package hack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/hack"
)

func TestEmitterGenerateAInst(t *testing.T) {
	test := func(name string, inst hack.AInstruction, table hack.SymbolTable, want string) {
		t.Run(name, func(t *testing.T) {
			em := hack.NewEmitter(nil, table)
			got, err := em.GenerateAInst(inst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}

	test("raw literal", hack.AInstruction{LocType: hack.Raw, LocName: "5"}, nil, "0000000000000101")
	test("raw literal 3", hack.AInstruction{LocType: hack.Raw, LocName: "3"}, nil, "0000000000000011")
	test("built-in SCREEN", hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, nil, "0100000000000000")
	test("resolved variable", hack.AInstruction{LocType: hack.Label, LocName: "i"},
		hack.SymbolTable{"i": 16}, "0000000000010000")
}

func TestEmitterGenerateAInstUnresolvedLabelErrors(t *testing.T) {
	em := hack.NewEmitter(nil, hack.SymbolTable{})
	if _, err := em.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "LOOP"}); err == nil {
		t.Fatal("expected an error for an unresolved label")
	}
}

func TestEmitterGenerateAInstOutOfBoundErrors(t *testing.T) {
	em := hack.NewEmitter(nil, hack.SymbolTable{"x": hack.MaxAddressableMemory + 1})
	if _, err := em.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "x"}); err == nil {
		t.Fatal("expected an error for an out-of-bound address")
	}
}

func TestEmitterGenerateCInst(t *testing.T) {
	test := func(name string, inst hack.CInstruction, want string) {
		t.Run(name, func(t *testing.T) {
			em := hack.NewEmitter(nil, nil)
			got, err := em.GenerateCInst(inst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}

	// D=D+A
	test("D=D+A", hack.CInstruction{Comp: "D+A", Dest: "D"}, "1110000010010000")
	// 0;JMP
	test("0;JMP", hack.CInstruction{Comp: "0", Jump: "JMP"}, "1110101010000111")
}

func TestEmitterGenerateCInstUnknownOpcodeErrors(t *testing.T) {
	em := hack.NewEmitter(nil, nil)
	if _, err := em.GenerateCInst(hack.CInstruction{Comp: "D+D"}); err == nil {
		t.Fatal("expected an error for an unknown 'comp' opcode")
	}
}

func TestEmitterGenerateFullProgram(t *testing.T) {
	// @5 D=A @3 D=D+A
	program := hack.Program{
		hack.AInstruction{LocType: hack.Raw, LocName: "5"},
		hack.CInstruction{Comp: "A", Dest: "D"},
		hack.AInstruction{LocType: hack.Raw, LocName: "3"},
		hack.CInstruction{Comp: "D+A", Dest: "D"},
	}

	em := hack.NewEmitter(program, hack.SymbolTable{})
	got, err := em.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"0000000000000101",
		"1110110000010000",
		"0000000000000011",
		"1110000010010000",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
