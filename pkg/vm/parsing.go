package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar
//
// One combinator per VM construct, bottom-up: tokens (identifiers, segment
// and operator keywords) compose into per-instruction combinators, which in
// turn compose into pOperation, the single entry point pModule loops over
// until end of input.

var ast = pc.NewAST("virtual_machine", 0)

var (
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))

	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	pArithOpType = ast.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

var (
	// "{push|pop} {segment} {index}"
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// unary or binary, doesn't take operands in the VM text itself
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// "label {symbol}"
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// "{if-goto|goto} {symbol}"
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// "call {name} {n_args}"
	pFunCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))

	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	pOperation = ast.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	// a whole .vm translation unit: any mix of operations and comments until EOF
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns VM source text into a Module in two passes: FromSource builds
// the raw goparsec AST, FromAST walks it into typed Operation values. Debug
// output from the underlying library is toggled via env vars (PARSEC_DEBUG,
// EXPORT_AST, PRINT_AST, the last two writing under DEBUG_FOLDER).
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %w", err)
	}

	root, ok := p.FromSource(content)
	if !ok {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pModule, pc.NewScanner(source))

	if dir := os.Getenv("EXPORT_AST"); dir != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring(`"VM AST"`)))
		}
	}

	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	// A failed match never produces a root node, so nil doubles as the
	// parse-failure signal.
	return root, root != nil
}

// nodeHandlers maps each subtree label pModule can produce to the function
// that turns it into an Operation; "comment" nodes have no handler and are
// filtered out by FromAST before this table is consulted.
var nodeHandlers = map[string]func(Parser, pc.Queryable) (Operation, error){
	"memory_op":     Parser.HandleMemoryOp,
	"arithmetic_op": Parser.HandleArithmeticOp,
	"label_decl":    Parser.HandleLabelDecl,
	"goto_op":       Parser.HandleGotoOp,
	"func_decl":     Parser.HandleFuncDecl,
	"func_call":     Parser.HandleFuncCall,
	"return_op":     Parser.HandleReturnOp,
}

func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	if root.GetName() != "module" {
		return nil, fmt.Errorf("expected root node 'module', found '%s'", root.GetName())
	}

	module := make(Module, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		handle, known := nodeHandlers[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		op, err := handle(*p, child)
		if err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// expectChildren validates a subtree's label and arity before any of its
// leaves are read, so a grammar/AST mismatch fails with a clear message
// instead of an out-of-range panic on GetChildren()[i].
func expectChildren(node pc.Queryable, name string, n int) error {
	if node.GetName() != name {
		return fmt.Errorf("expected node '%s', got '%s'", name, node.GetName())
	}
	if got := len(node.GetChildren()); got != n {
		return fmt.Errorf("expected node '%s' to have %d children, got %d", name, n, got)
	}
	return nil
}

// parseIndex parses a segment offset or argument/local count. Indices share
// the A-instruction's 15-bit ceiling: anything above 32767 could never be
// addressed by the generated assembly, so it's rejected at parse time.
func parseIndex(raw, what string) (uint16, error) {
	value, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || value > 32767 {
		return 0, fmt.Errorf("%s %q is out of range", what, raw)
	}
	return uint16(value), nil
}

func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "memory_op", 3); err != nil {
		return nil, err
	}
	leaves := node.GetChildren()

	offset, err := parseIndex(leaves[2].GetValue(), "offset in memory operation")
	if err != nil {
		return nil, err
	}

	return MemoryOp{
		Operation: OperationType(leaves[0].GetValue()),
		Segment:   SegmentType(leaves[1].GetValue()),
		Offset:    offset,
	}, nil
}

func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "arithmetic_op", 1); err != nil {
		return nil, err
	}
	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "label_decl", 2); err != nil {
		return nil, err
	}
	return LabelDecl{Name: node.GetChildren()[1].GetValue()}, nil
}

func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "goto_op", 2); err != nil {
		return nil, err
	}
	leaves := node.GetChildren()
	return GotoOp{Jump: JumpType(leaves[0].GetValue()), Label: leaves[1].GetValue()}, nil
}

func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "func_decl", 3); err != nil {
		return nil, err
	}
	leaves := node.GetChildren()

	locals, err := parseIndex(leaves[2].GetValue(), "local count in function declaration")
	if err != nil {
		return nil, err
	}

	return FuncDecl{Name: leaves[1].GetValue(), NLocal: locals}, nil
}

func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "return_op", 1); err != nil {
		return nil, err
	}
	return ReturnOp{}, nil
}

func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	if err := expectChildren(node, "func_call", 3); err != nil {
		return nil, err
	}
	leaves := node.GetChildren()

	args, err := parseIndex(leaves[2].GetValue(), "argument count in function call")
	if err != nil {
		return nil, err
	}

	return FuncCallOp{Name: leaves[1].GetValue(), NArgs: args}, nil
}
