package jack_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func scanAll(t *testing.T, src string) []jack.Token {
	t.Helper()
	tok := jack.NewTokenizer(strings.NewReader(src))

	var tokens []jack.Token
	for {
		token, err := tok.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected tokenizer error: %v", err)
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func TestTokenizerBasics(t *testing.T) {
	test := func(t *testing.T, src string, expected []jack.Token) {
		tokens := scanAll(t, src)
		if len(tokens) != len(expected) {
			t.Fatalf("expected %d tokens, got %d: %+v", len(expected), len(tokens), tokens)
		}
		for i, want := range expected {
			got := tokens[i]
			if got.Type != want.Type || got.Literal != want.Literal {
				t.Errorf("token %d: expected %+v, got %+v", i, want, got)
			}
		}
	}

	t.Run("keywords and symbols", func(t *testing.T) {
		test(t, "class Foo {}", []jack.Token{
			{Type: jack.Keyword, Literal: "class"},
			{Type: jack.Identifier, Literal: "Foo"},
			{Type: jack.Symbol, Literal: "{"},
			{Type: jack.Symbol, Literal: "}"},
		})
	})

	t.Run("integer and string constants", func(t *testing.T) {
		test(t, `let x = 42; let s = "hello";`, []jack.Token{
			{Type: jack.Keyword, Literal: "let"},
			{Type: jack.Identifier, Literal: "x"},
			{Type: jack.Symbol, Literal: "="},
			{Type: jack.IntConst, Literal: "42"},
			{Type: jack.Symbol, Literal: ";"},
			{Type: jack.Keyword, Literal: "let"},
			{Type: jack.Identifier, Literal: "s"},
			{Type: jack.Symbol, Literal: "="},
			{Type: jack.StringConst, Literal: "hello"},
			{Type: jack.Symbol, Literal: ";"},
		})
	})

	t.Run("line comment is discarded", func(t *testing.T) {
		test(t, "var int x; // trailing comment\nvar int y;", []jack.Token{
			{Type: jack.Keyword, Literal: "var"},
			{Type: jack.Keyword, Literal: "int"},
			{Type: jack.Identifier, Literal: "x"},
			{Type: jack.Symbol, Literal: ";"},
			{Type: jack.Keyword, Literal: "var"},
			{Type: jack.Keyword, Literal: "int"},
			{Type: jack.Identifier, Literal: "y"},
			{Type: jack.Symbol, Literal: ";"},
		})
	})

	t.Run("nested block comments are stripped", func(t *testing.T) {
		test(t, "/* outer /* inner */ still outer */ do go();", []jack.Token{
			{Type: jack.Keyword, Literal: "do"},
			{Type: jack.Identifier, Literal: "go"},
			{Type: jack.Symbol, Literal: "("},
			{Type: jack.Symbol, Literal: ")"},
			{Type: jack.Symbol, Literal: ";"},
		})
	})

	t.Run("leading slash disambiguation", func(t *testing.T) {
		test(t, "x / y", []jack.Token{
			{Type: jack.Identifier, Literal: "x"},
			{Type: jack.Symbol, Literal: "/"},
			{Type: jack.Identifier, Literal: "y"},
		})
	})

	t.Run("division without surrounding spaces", func(t *testing.T) {
		// The rune after '/' must survive the comment-or-not probe.
		test(t, "x/y", []jack.Token{
			{Type: jack.Identifier, Literal: "x"},
			{Type: jack.Symbol, Literal: "/"},
			{Type: jack.Identifier, Literal: "y"},
		})
	})
}

func TestTokenizerErrors(t *testing.T) {
	test := func(t *testing.T, src string, want jack.ErrorKind) {
		tok := jack.NewTokenizer(strings.NewReader(src))
		var lastErr error
		for {
			_, err := tok.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			t.Fatalf("expected a syntax error, got none")
		}
		syntaxErr, ok := lastErr.(*jack.SyntaxError)
		if !ok {
			t.Fatalf("expected *jack.SyntaxError, got %T", lastErr)
		}
		if syntaxErr.Kind != want {
			t.Errorf("expected error kind %s, got %s", want, syntaxErr.Kind)
		}
	}

	t.Run("unclosed string", func(t *testing.T) {
		test(t, `"never closed`, jack.UnclosedString)
	})

	t.Run("unclosed block comment", func(t *testing.T) {
		test(t, "/* never closed", jack.UnclosedComment)
	})

	t.Run("integer out of range", func(t *testing.T) {
		test(t, "99999", jack.IntegerOutOfRange)
	})

	t.Run("digit-leading identifier", func(t *testing.T) {
		test(t, "3abc", jack.InvalidIdentifier)
	})

	t.Run("unrecognized character", func(t *testing.T) {
		test(t, "#", jack.InvalidCharacter)
	})
}
