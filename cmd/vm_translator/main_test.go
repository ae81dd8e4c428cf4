package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVMTranslatorSingleFileNeverBootstraps(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "SimpleAdd.vm")
	output := filepath.Join(dir, "SimpleAdd.asm")

	source := "push constant 7\npush constant 8\nadd\n"
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture: %v", err)
	}

	status := Handler([]string{input}, map[string]string{"output": output})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("error reading output file: %v", err)
	}
	got := string(compiled)

	if strings.Contains(got, "Sys.init") {
		t.Errorf("single-file translation should not bootstrap, got:\n%s", got)
	}
	for _, want := range []string{"@7", "@8", "@SP", "M=M+1", "D+M"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}

	// Each block is annotated with the VM command it was lowered from.
	if !strings.HasPrefix(got, "// push constant 7\n@7\n") {
		t.Errorf("expected each block to start with its source-command comment, got:\n%s", got)
	}
}

func TestVMTranslatorExplicitBootstrapFlag(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Simple.vm")
	output := filepath.Join(dir, "Simple.asm")

	if err := os.WriteFile(input, []byte("push constant 1\n"), 0644); err != nil {
		t.Fatalf("unable to write fixture: %v", err)
	}

	status := Handler([]string{input}, map[string]string{"output": output, "bootstrap": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("error reading output file: %v", err)
	}
	got := string(compiled)

	if !strings.Contains(got, "@Sys.init") {
		t.Errorf("expected explicit '--bootstrap' to emit a jump to Sys.init, got:\n%s", got)
	}
	if !strings.HasPrefix(got, "@256\n") {
		t.Errorf("expected bootstrap to be prepended as the first instructions, got:\n%s", got)
	}
}

func TestVMTranslatorDirectoryModeAlwaysBootstraps(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "Program")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatalf("unable to create fixture directory: %v", err)
	}

	main := "function Main.main 0\npush constant 0\ncall Sys.init 0\nreturn\n"
	sys := "function Sys.init 0\npush constant 42\nreturn\n"
	if err := os.WriteFile(filepath.Join(subdir, "Main.vm"), []byte(main), 0644); err != nil {
		t.Fatalf("unable to write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(subdir, "Sys.vm"), []byte(sys), 0644); err != nil {
		t.Fatalf("unable to write fixture: %v", err)
	}

	status := Handler([]string{subdir}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got %d", status)
	}

	output := filepath.Join(subdir, "Program.asm")
	compiled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("expected the default directory-mode output path to exist: %v", err)
	}

	got := string(compiled)
	if !strings.HasPrefix(got, "@256\n") {
		t.Errorf("expected directory-mode translation to always bootstrap, got:\n%s", got)
	}
	if !strings.Contains(got, "(Main.main)") || !strings.Contains(got, "(Sys.init)") {
		t.Errorf("expected both function labels to be present, got:\n%s", got)
	}
}
