package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHackAssembler(t *testing.T) {
	test := func(name, source string, want []string) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, name+".asm")
			output := filepath.Join(dir, name+".hack")

			if err := os.WriteFile(input, []byte(source), 0644); err != nil {
				t.Fatalf("unable to write fixture: %v", err)
			}

			status := Handler([]string{input, output}, nil)
			if status != 0 {
				t.Fatalf("unexpected exit status code: expected 0 got %d", status)
			}

			compiled, err := os.ReadFile(output)
			if err != nil {
				t.Fatalf("error reading output file: %v", err)
			}

			got := string(compiled)
			wantJoined := ""
			for _, line := range want {
				wantJoined += line + "\n"
			}
			if got != wantJoined {
				t.Fatalf("got:\n%s\nwant:\n%s", got, wantJoined)
			}
		})
	}

	test("Add", `
// Computes R0 = 2 + 3
@2
D=A
@3
D=D+A
@0
M=D
`, []string{
		"0000000000000010",
		"1110110000010000",
		"0000000000000011",
		"1110000010010000",
		"0000000000000000",
		"1110001100001000",
	})

	test("Loop", `
(LOOP)
@i
M=M+1
@LOOP
0;JMP
`, []string{
		"0000000000010000",
		"1111110111001000",
		"0000000000000000",
		"1110101010000111",
	})

	test("CompWithWhitespace", `
@2
D = A
@3
D = D + A
`, []string{
		"0000000000000010",
		"1110110000010000",
		"0000000000000011",
		"1110000010010000",
	})
}
