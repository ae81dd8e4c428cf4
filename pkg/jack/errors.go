package jack

import "fmt"

// ErrorKind is a closed sum over every diagnosable failure the Tokenizer and
// Parser can raise, so a caller can switch on the kind instead of matching
// error message text.
type ErrorKind string

const (
	// Tokenizer error kinds.
	UnclosedComment   ErrorKind = "unclosed_comment"
	UnclosedString    ErrorKind = "unclosed_string"
	InvalidIdentifier ErrorKind = "invalid_identifier"
	IntegerOutOfRange ErrorKind = "integer_out_of_range"
	InvalidCharacter  ErrorKind = "invalid_character"

	// Parser error kinds.
	MissingDeclaration       ErrorKind = "missing_declaration"
	UnexpectedToken          ErrorKind = "unexpected_token"
	MissingClosingBrace      ErrorKind = "missing_closing_brace"
	MissingClosingBracket    ErrorKind = "missing_closing_bracket"
	MissingClosingParen      ErrorKind = "missing_closing_paren"
	MissingSemicolon         ErrorKind = "missing_semicolon"
	MissingEquals            ErrorKind = "missing_equals"
	MissingVariableName      ErrorKind = "missing_variable_name"
	MissingTypeName          ErrorKind = "missing_type_name"
	MissingClassName         ErrorKind = "missing_class_name"
	MissingSubroutineName    ErrorKind = "missing_subroutine_name"
	DuplicateClass           ErrorKind = "duplicate_class"
	DuplicateSubroutine      ErrorKind = "duplicate_subroutine"
	DuplicateVariable        ErrorKind = "duplicate_variable"
	ClassNotFound            ErrorKind = "class_not_found"
	SymbolNotFound           ErrorKind = "symbol_not_found"
	UnknownToken             ErrorKind = "unknown_token"
	DoStatementMustBeCall    ErrorKind = "do_statement_must_be_subroutine_call"
	InvalidMethodTarget      ErrorKind = "invalid_method_target"
)

// SyntaxError is the single error type produced by the Tokenizer and Parser;
// the Parser collects these in a batch rather than stopping at the first one.
type SyntaxError struct {
	Line    int
	Kind    ErrorKind
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s (%s)", e.Line, e.Message, e.Kind)
}
