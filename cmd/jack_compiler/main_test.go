package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const mainSource = `
class Main {
    function void main() {
        do Output.printInt(Math.multiply(2, 3));
        return;
    }
}
`

func writeFixture(t *testing.T, source string) (dir, file string) {
	t.Helper()
	dir = t.TempDir()
	file = filepath.Join(dir, "Main.jack")
	if err := os.WriteFile(file, []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture: %v", err)
	}
	return dir, file
}

func TestJackCompilerDefaultVMOutputWithStdlib(t *testing.T) {
	_, file := writeFixture(t, mainSource)

	status := Handler([]string{file}, map[string]string{"stdlib": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(strings.TrimSuffix(file, ".jack") + ".vm")
	if err != nil {
		t.Fatalf("error reading compiled output: %v", err)
	}
	got := string(compiled)

	for _, want := range []string{"function Main.main 0", "call Math.multiply 2", "call Output.printInt 1", "return"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected compiled output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestJackCompilerWithoutStdlibFailsToResolveExternalCalls(t *testing.T) {
	_, file := writeFixture(t, mainSource)

	status := Handler([]string{file}, nil)
	if status == 0 {
		t.Fatalf("expected a non-zero exit status when 'Math'/'Output' are not defined and --stdlib is absent")
	}
}

func TestJackCompilerTokenDump(t *testing.T) {
	_, file := writeFixture(t, "class A {\n  function void f() {\n    return;\n  }\n}\n")

	status := Handler([]string{file}, map[string]string{"output": "tokens"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}
}

func TestJackCompilerAstDump(t *testing.T) {
	_, file := writeFixture(t, "class A {\n  function void f() {\n    return;\n  }\n}\n")

	status := Handler([]string{file}, map[string]string{"output": "ast"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}
}

func TestJackCompilerSymbolTableDump(t *testing.T) {
	_, file := writeFixture(t, "class Counter {\n  field int value;\n\n  method void bump(int step) {\n    var int total;\n    let total = value + step;\n    let value = total;\n    return;\n  }\n}\n")

	status := Handler([]string{file}, map[string]string{"output": "symbol-table"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}
}
