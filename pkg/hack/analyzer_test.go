package hack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/hack"
)

func TestAnalyzerAllocatesVariablesInOrderOfFirstReference(t *testing.T) {
	// @i M=1 @sum M=0 ... mirrors a typical loop counter program: 'i' is
	// referenced before 'sum' so it must land on address 16, 'sum' on 17.
	program := hack.Program{
		hack.AInstruction{LocType: hack.Label, LocName: "i"},
		hack.CInstruction{Comp: "1", Dest: "M"},
		hack.AInstruction{LocType: hack.Label, LocName: "sum"},
		hack.CInstruction{Comp: "0", Dest: "M"},
		hack.AInstruction{LocType: hack.Label, LocName: "i"},
	}

	analyzer := hack.NewAnalyzer(program, hack.SymbolTable{})
	table, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	test := func(name string, want uint16) {
		t.Run(name, func(t *testing.T) {
			got, found := table[name]
			if !found {
				t.Fatalf("expected %q to be resolved", name)
			}
			if got != want {
				t.Errorf("got address %d, want %d", got, want)
			}
		})
	}

	test("i", 16)
	test("sum", 17)
}

func TestAnalyzerSkipsAlreadyResolvedLabels(t *testing.T) {
	// 'LOOP' was already resolved to an instruction address by the asm.Lowerer
	// (labels never get re-numbered as variables by the Analyzer).
	program := hack.Program{
		hack.AInstruction{LocType: hack.Label, LocName: "LOOP"},
		hack.CInstruction{Comp: "0", Jump: "JMP"},
	}
	seeded := hack.SymbolTable{"LOOP": 0}

	analyzer := hack.NewAnalyzer(program, seeded)
	table, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table["LOOP"]; got != 0 {
		t.Errorf("expected 'LOOP' to stay at 0, got %d", got)
	}
}

func TestAnalyzerOnNilTable(t *testing.T) {
	program := hack.Program{hack.AInstruction{LocType: hack.Label, LocName: "x"}}

	analyzer := hack.NewAnalyzer(program, nil)
	table, err := analyzer.Analyze()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table["x"]; got != 16 {
		t.Errorf("got address %d, want 16", got)
	}
}
