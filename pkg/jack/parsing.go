package jack

import (
	"fmt"
	"io"
	"strings"

	"n2t.dev/toolchain/pkg/utils"
)

// ----------------------------------------------------------------------------
// Parse errors

// ParseErrors aggregates every SyntaxError collected while parsing a class,
// since the Parser keeps going after a recoverable error to surface as many
// diagnostics as possible in one pass instead of stopping at the first one.
type ParseErrors []*SyntaxError

func (pe ParseErrors) Error() string {
	lines := make([]string, len(pe))
	for i, err := range pe {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// ----------------------------------------------------------------------------
// Jack Parser

// Parser is a hand-written recursive descent parser over the Tokenizer's
// token stream, with a single token of pushback. As it recognizes
// declarations it writes entries into its own ScopeTable, which keeps parsing
// and symbol resolution in sync and lets duplicate/unknown-symbol errors
// surface as parse errors rather than as a separate pass.
type Parser struct {
	tok *Tokenizer

	pending    Token
	hasPending bool

	symbols *ScopeTable
	errors  ParseErrors

	className string
}

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{tok: NewTokenizer(r), symbols: NewScopeTable()}
}

// next returns the next token, preferring a pushed-back one. io.EOF is
// returned once the underlying Tokenizer is exhausted.
func (p *Parser) next() (Token, error) {
	if p.hasPending {
		p.hasPending = false
		return p.pending, nil
	}
	return p.tok.Next()
}

// pushback returns 't' to the stream; the grammar never needs more than a
// single token of lookahead, so a one-slot buffer is enough.
func (p *Parser) pushback(t Token) {
	p.pending, p.hasPending = t, true
}

// peek returns the next token without consuming it.
func (p *Parser) peek() (Token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	p.pushback(t)
	return t, nil
}

// record appends a diagnosable failure to the batch without aborting the parse.
func (p *Parser) record(line int, kind ErrorKind, format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// expect consumes the next token and records 'kind' if it isn't exactly
// (type, literal). Returns the token it consumed either way, so callers can
// keep parsing past the error.
func (p *Parser) expect(tt TokenType, literal string, kind ErrorKind) Token {
	t, err := p.next()
	if err == io.EOF {
		p.record(0, kind, "expected %q, reached end of file", literal)
		return Token{}
	}
	if t.Type != tt || t.Literal != literal {
		p.record(t.Line, kind, "expected %q, got %q", literal, t.Literal)
		p.pushback(t)
	}
	return t
}

func isKeyword(t Token, literal string) bool { return t.Type == Keyword && t.Literal == literal }
func isSymbol(t Token, literal string) bool  { return t.Type == Symbol && t.Literal == literal }

// ----------------------------------------------------------------------------
// Entry point

// Parse consumes the whole token stream and returns the single Class it
// declares. Every SyntaxError recorded along the way is returned together as
// a ParseErrors, batched rather than returned on the first failure.
func (p *Parser) Parse() (Class, error) {
	class := p.parseClass()
	if len(p.errors) > 0 {
		return class, p.errors
	}
	return class, nil
}

// parseClass := 'class' IDENT '{' classVarDecl* subroutine* '}'
func (p *Parser) parseClass() Class {
	p.expect(Keyword, "class", MissingDeclaration)

	nameTok, err := p.next()
	if err != nil || nameTok.Type != Identifier {
		p.record(nameTok.Line, MissingClassName, "expected a class name, got %q", nameTok.Literal)
	}

	p.className = nameTok.Literal
	p.symbols.PushClassScope(p.className)
	defer p.symbols.PopClassScope()

	class := Class{
		Name:        p.className,
		Fields:      utils.OrderedMap[string, Variable]{},
		Subroutines: utils.OrderedMap[string, Subroutine]{},
	}

	p.expect(Symbol, "{", MissingDeclaration)

	for {
		t, err := p.peek()
		if err == io.EOF {
			p.record(t.Line, MissingClosingBrace, "unexpected end of file, expected '}'")
			return class
		}
		if isSymbol(t, "}") {
			break
		}
		if isKeyword(t, "static") || isKeyword(t, "field") {
			for _, v := range p.parseClassVarDecl() {
				if _, exists := class.Fields.Get(v.Name); exists {
					p.record(t.Line, DuplicateVariable, "field '%s' already declared in class '%s'", v.Name, p.className)
					continue
				}
				class.Fields.Set(v.Name, v)
				p.symbols.RegisterVariable(v)
			}
			continue
		}
		if isKeyword(t, "constructor") || isKeyword(t, "function") || isKeyword(t, "method") {
			routine := p.parseSubroutine()
			if _, exists := class.Subroutines.Get(routine.Name); exists {
				p.record(t.Line, DuplicateSubroutine, "subroutine '%s' already declared in class '%s'", routine.Name, p.className)
				continue
			}
			class.Subroutines.Set(routine.Name, routine)
			continue
		}

		p.record(t.Line, UnexpectedToken, "unexpected token %q inside class body", t.Literal)
		p.next() // consume and keep going
	}

	p.expect(Symbol, "}", MissingClosingBrace)
	return class
}

// parseClassVarDecl := ('static'|'field') type ident (',' ident)* ';'
func (p *Parser) parseClassVarDecl() []Variable {
	kindTok, _ := p.next()
	varType := Static
	if kindTok.Literal == "field" {
		varType = Field
	}

	dataType, className := p.parseType()

	var vars []Variable
	for {
		nameTok, err := p.next()
		if err != nil || nameTok.Type != Identifier {
			p.record(nameTok.Line, MissingVariableName, "expected a variable name, got %q", nameTok.Literal)
			break
		}
		vars = append(vars, Variable{Name: nameTok.Literal, VarType: varType, DataType: dataType, ClassName: className})

		t, _ := p.next()
		if isSymbol(t, ",") {
			continue
		}
		if !isSymbol(t, ";") {
			p.record(t.Line, MissingSemicolon, "expected ';' after variable declaration, got %q", t.Literal)
			p.pushback(t)
		}
		break
	}

	return vars
}

// parseType consumes one of {int, char, boolean, void, IDENT} and returns
// the resolved DataType plus, for object types, the class name it refers to.
func (p *Parser) parseType() (DataType, string) {
	t, err := p.next()
	if err != nil {
		p.record(t.Line, MissingTypeName, "expected a type name, reached end of file")
		return Void, ""
	}

	switch {
	case isKeyword(t, "int"):
		return Int, ""
	case isKeyword(t, "char"):
		return Char, ""
	case isKeyword(t, "boolean"):
		return Bool, ""
	case isKeyword(t, "void"):
		return Void, ""
	case t.Type == Identifier:
		return Object, t.Literal
	default:
		p.record(t.Line, MissingTypeName, "expected a type name, got %q", t.Literal)
		return Void, ""
	}
}

// parseSubroutine := ('constructor'|'function'|'method') (type|'void') IDENT '(' params ')' '{' var* statement* '}'
func (p *Parser) parseSubroutine() Subroutine {
	kindTok, _ := p.next()
	kind := map[string]SubroutineType{"constructor": Constructor, "function": Function, "method": Method}[kindTok.Literal]

	returnType, _ := p.parseType()

	nameTok, err := p.next()
	if err != nil || nameTok.Type != Identifier {
		p.record(nameTok.Line, MissingSubroutineName, "expected a subroutine name, got %q", nameTok.Literal)
	}

	p.symbols.PushSubRoutineScope(nameTok.Literal)
	defer p.symbols.PopSubroutineScope()

	if kind == Method {
		// Slot 0 is implicitly the receiver; the emitter never references it by
		// name but reserving it keeps user-declared argument slots shifted by one.
		p.symbols.RegisterVariable(Variable{Name: "this", VarType: Parameter, DataType: Object, ClassName: p.className})
	}

	p.expect(Symbol, "(", MissingDeclaration)
	args := p.parseParameterList()
	p.expect(Symbol, ")", MissingClosingParen)

	p.expect(Symbol, "{", MissingDeclaration)

	// Local declarations are kept in the statement list as VarStmt nodes:
	// the Lowerer rebuilds its own scope table from the AST, so dropping
	// them here would lose every local's slot.
	var statements []Statement
	for {
		t, err := p.peek()
		if err == io.EOF || !isKeyword(t, "var") {
			break
		}
		vars := p.parseVarDecl()
		for _, v := range vars {
			if p.symbols.DeclaredInSubroutine(v.Name) {
				p.record(t.Line, DuplicateVariable, "variable '%s' already declared in subroutine '%s'", v.Name, nameTok.Literal)
				continue
			}
			p.symbols.RegisterVariable(v)
		}
		statements = append(statements, VarStmt{Vars: vars})
	}

	statements = append(statements, p.parseStatements()...)
	p.expect(Symbol, "}", MissingClosingBrace)

	return Subroutine{
		Name:       nameTok.Literal,
		Type:       kind,
		Return:     returnType,
		Arguments:  args,
		Statements: statements,
	}
}

// parseParameterList := (type ident (',' type ident)*)?
func (p *Parser) parseParameterList() []Variable {
	var args []Variable

	t, err := p.peek()
	if err != nil || isSymbol(t, ")") {
		return args
	}

	for {
		dataType, className := p.parseType()
		nameTok, err := p.next()
		if err != nil || nameTok.Type != Identifier {
			p.record(nameTok.Line, MissingVariableName, "expected a parameter name, got %q", nameTok.Literal)
			return args
		}

		v := Variable{Name: nameTok.Literal, VarType: Parameter, DataType: dataType, ClassName: className}
		args = append(args, v)
		if p.symbols.DeclaredInSubroutine(v.Name) {
			p.record(nameTok.Line, DuplicateVariable, "parameter '%s' already declared", v.Name)
		} else {
			p.symbols.RegisterVariable(v)
		}

		next, _ := p.peek()
		if !isSymbol(next, ",") {
			break
		}
		p.next() // consume ','
	}

	return args
}

// parseVarDecl := 'var' type ident (',' ident)* ';'
func (p *Parser) parseVarDecl() []Variable {
	p.next() // consume 'var'
	dataType, className := p.parseType()

	var vars []Variable
	for {
		nameTok, err := p.next()
		if err != nil || nameTok.Type != Identifier {
			p.record(nameTok.Line, MissingVariableName, "expected a variable name, got %q", nameTok.Literal)
			break
		}
		vars = append(vars, Variable{Name: nameTok.Literal, VarType: Local, DataType: dataType, ClassName: className})

		t, _ := p.next()
		if isSymbol(t, ",") {
			continue
		}
		if !isSymbol(t, ";") {
			p.record(t.Line, MissingSemicolon, "expected ';' after variable declaration, got %q", t.Literal)
			p.pushback(t)
		}
		break
	}

	return vars
}

// ----------------------------------------------------------------------------
// Statements

// parseStatements consumes statements until the next token isn't one of the
// statement-leading keywords, i.e. until the enclosing '}' is reached.
func (p *Parser) parseStatements() []Statement {
	var statements []Statement

	for {
		t, err := p.peek()
		if err != nil {
			break
		}

		switch {
		case isKeyword(t, "let"):
			statements = append(statements, p.parseLetStatement())
		case isKeyword(t, "if"):
			statements = append(statements, p.parseIfStatement())
		case isKeyword(t, "while"):
			statements = append(statements, p.parseWhileStatement())
		case isKeyword(t, "do"):
			statements = append(statements, p.parseDoStatement())
		case isKeyword(t, "return"):
			statements = append(statements, p.parseReturnStatement())
		default:
			return statements
		}
	}

	return statements
}

// parseLetStatement := 'let' IDENT ('[' expr ']')? '=' expr ';'
func (p *Parser) parseLetStatement() Statement {
	p.next() // consume 'let'

	nameTok, err := p.next()
	if err != nil || nameTok.Type != Identifier {
		p.record(nameTok.Line, MissingVariableName, "expected a variable name after 'let', got %q", nameTok.Literal)
	}
	p.checkResolved(nameTok)

	var lhs Expression = VarExpr{Var: nameTok.Literal}

	t, _ := p.peek()
	if isSymbol(t, "[") {
		p.next()
		index := p.parseExpression()
		p.expect(Symbol, "]", MissingClosingBracket)
		lhs = ArrayExpr{Var: nameTok.Literal, Index: index}
	}

	p.expect(Symbol, "=", MissingEquals)
	rhs := p.parseExpression()
	p.expect(Symbol, ";", MissingSemicolon)

	return LetStmt{Lhs: lhs, Rhs: rhs}
}

// parseIfStatement := 'if' '(' expr ')' '{' statement* '}' ('else' '{' statement* '}')?
func (p *Parser) parseIfStatement() Statement {
	p.next() // consume 'if'
	p.expect(Symbol, "(", MissingDeclaration)
	cond := p.parseExpression()
	p.expect(Symbol, ")", MissingClosingParen)

	p.expect(Symbol, "{", MissingDeclaration)
	thenBlock := p.parseStatements()
	p.expect(Symbol, "}", MissingClosingBrace)

	var elseBlock []Statement
	if t, err := p.peek(); err == nil && isKeyword(t, "else") {
		p.next()
		p.expect(Symbol, "{", MissingDeclaration)
		elseBlock = p.parseStatements()
		p.expect(Symbol, "}", MissingClosingBrace)
	}

	return IfStmt{Condition: cond, ThenBlock: thenBlock, ElseBlock: elseBlock}
}

// parseWhileStatement := 'while' '(' expr ')' '{' statement* '}'
func (p *Parser) parseWhileStatement() Statement {
	p.next() // consume 'while'
	p.expect(Symbol, "(", MissingDeclaration)
	cond := p.parseExpression()
	p.expect(Symbol, ")", MissingClosingParen)

	p.expect(Symbol, "{", MissingDeclaration)
	block := p.parseStatements()
	p.expect(Symbol, "}", MissingClosingBrace)

	return WhileStmt{Condition: cond, Block: block}
}

// parseDoStatement := 'do' call ';', where 'call' must be a bare subroutine
// call: no operator, index or parenthesization is accepted.
func (p *Parser) parseDoStatement() Statement {
	doTok, _ := p.next() // consume 'do'

	nameTok, err := p.next()
	if err != nil || nameTok.Type != Identifier {
		p.record(nameTok.Line, MissingSubroutineName, "expected a subroutine call after 'do', got %q", nameTok.Literal)
		p.expect(Symbol, ";", MissingSemicolon)
		return DoStmt{}
	}

	call, isCall := p.parseCallOrVar(nameTok).(FuncCallExpr)
	if !isCall {
		p.record(doTok.Line, DoStatementMustBeCall, "'do' statement must be a bare subroutine call")
	}

	p.expect(Symbol, ";", MissingSemicolon)
	return DoStmt{FuncCall: call}
}

// parseReturnStatement := 'return' expr? ';'
func (p *Parser) parseReturnStatement() Statement {
	p.next() // consume 'return'

	t, err := p.peek()
	if err == nil && isSymbol(t, ";") {
		p.next()
		return ReturnStmt{}
	}

	expr := p.parseExpression()
	p.expect(Symbol, ";", MissingSemicolon)
	return ReturnStmt{Expr: expr}
}

// ----------------------------------------------------------------------------
// Expressions

var binaryOpSymbols = map[string]ExprType{
	"+": Plus, "-": Minus, "*": Multiply, "/": Divide,
	"&": BoolAnd, "|": BoolOr, "<": LessThan, ">": GreatThan, "=": Equal,
}

// parseExpression := term (op term)*, flat and strictly left-associative;
// '(...)' is the only way to override the evaluation order.
func (p *Parser) parseExpression() Expression {
	expr := p.parseTerm()

	for {
		t, err := p.peek()
		if err != nil {
			return expr
		}
		op, isOp := binaryOpSymbols[t.Literal]
		if t.Type != Symbol || !isOp {
			return expr
		}
		p.next()
		rhs := p.parseTerm()
		expr = BinaryExpr{Type: op, Lhs: expr, Rhs: rhs}
	}
}

// parseTerm covers every Term alternative in the grammar. An identifier is
// disambiguated purely by its immediately following token: '.' -> qualified
// call, '(' -> unqualified call, '[' -> indexed variable, anything else ->
// plain variable reference.
func (p *Parser) parseTerm() Expression {
	t, err := p.next()
	if err != nil {
		p.record(t.Line, UnexpectedToken, "expected an expression, reached end of file")
		return nil
	}

	switch {
	case t.Type == IntConst:
		return LiteralExpr{Type: Int, Value: t.Literal}
	case t.Type == StringConst:
		return LiteralExpr{Type: String, Value: t.Literal}
	case isKeyword(t, "true"):
		return LiteralExpr{Type: Bool, Value: "true"}
	case isKeyword(t, "false"):
		return LiteralExpr{Type: Bool, Value: "false"}
	case isKeyword(t, "null"):
		return LiteralExpr{Type: Object, Value: "null"}
	case isKeyword(t, "this"):
		return VarExpr{Var: "this"}
	case isSymbol(t, "("):
		expr := p.parseExpression()
		p.expect(Symbol, ")", MissingClosingParen)
		return expr
	case isSymbol(t, "-"):
		return UnaryExpr{Type: Minus, Rhs: p.parseTerm()}
	case isSymbol(t, "~"):
		return UnaryExpr{Type: BoolNot, Rhs: p.parseTerm()}
	case t.Type == Identifier:
		return p.parseCallOrVar(t)
	default:
		p.record(t.Line, UnexpectedToken, "unexpected token %q in expression", t.Literal)
		return nil
	}
}

// parseCallOrVar resolves the disambiguation rule for an identifier that was
// just consumed: qualified call, unqualified call, indexed variable, or a
// plain variable reference.
func (p *Parser) parseCallOrVar(ident Token) Expression {
	t, err := p.peek()
	if err != nil {
		p.checkResolved(ident)
		return VarExpr{Var: ident.Literal}
	}

	switch {
	case isSymbol(t, "."):
		p.next()
		methodTok, err := p.next()
		if err != nil || methodTok.Type != Identifier {
			p.record(methodTok.Line, MissingSubroutineName, "expected a subroutine name after '.', got %q", methodTok.Literal)
		}
		p.expect(Symbol, "(", MissingDeclaration)
		args := p.parseArgumentList()
		p.expect(Symbol, ")", MissingClosingParen)
		return FuncCallExpr{IsExtCall: true, Var: ident.Literal, FuncName: methodTok.Literal, Arguments: args}

	case isSymbol(t, "("):
		p.next()
		args := p.parseArgumentList()
		p.expect(Symbol, ")", MissingClosingParen)
		return FuncCallExpr{IsExtCall: false, FuncName: ident.Literal, Arguments: args}

	case isSymbol(t, "["):
		p.next()
		index := p.parseExpression()
		p.expect(Symbol, "]", MissingClosingBracket)
		p.checkResolved(ident)
		return ArrayExpr{Var: ident.Literal, Index: index}

	default:
		p.checkResolved(ident)
		return VarExpr{Var: ident.Literal}
	}
}

// parseArgumentList := (expr (',' expr)*)?
func (p *Parser) parseArgumentList() []Expression {
	var args []Expression

	t, err := p.peek()
	if err != nil || isSymbol(t, ")") {
		return args
	}

	for {
		args = append(args, p.parseExpression())
		t, err := p.peek()
		if err != nil || !isSymbol(t, ",") {
			break
		}
		p.next() // consume ','
	}

	return args
}

// checkResolved records a SymbolNotFound error when 'ident' isn't a variable
// visible in the current scope chain. This is the one place the parser's own
// symbol table is consulted for a read rather than just updated on a write.
func (p *Parser) checkResolved(ident Token) {
	if _, _, err := p.symbols.ResolveVariable(ident.Literal); err != nil {
		p.record(ident.Line, SymbolNotFound, "variable '%s' is not declared in any visible scope", ident.Literal)
	}
}
