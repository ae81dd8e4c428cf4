package asm

import (
	"bytes"
	"fmt"
	"io"
	"os"

	pc "github.com/prataprc/goparsec"
)

// The Hack assembly grammar has no construct where spaces or tabs are
// meaningful, so the comp-expression tolerance for internal whitespace
// (e.g. "D + M" meaning the same as "D+M") is implemented by just erasing
// every space/tab before the line ever reaches the combinators, rather than
// teaching every pComp Atom to skip whitespace individually.
func stripIntraLineWhitespace(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))
	for i, line := range lines {
		stripped := make([]byte, 0, len(line))
		for _, b := range line {
			if b == ' ' || b == '\t' || b == '\r' {
				continue
			}
			stripped = append(stripped, b)
		}
		lines[i] = stripped
	}
	return bytes.Join(lines, []byte("\n"))
}

// ----------------------------------------------------------------------------
// Grammar
//
// One combinator per assembly construct, bottom-up: the leaf parsers for
// labels, destinations, computations and jumps compose into the three
// instruction shapes, which pProgram loops over (interleaved with comment
// lines) until end of input.

var ast = pc.NewAST("assembler", 0)

var (
	// a whole .asm file: any mix of instructions and comments until EOF
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	pInstruction = ast.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	// "// ..." to end of line, either on its own line or trailing an instruction
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	// "@{address|symbol}"
	pAInst = ast.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	// "({symbol})"
	pLabelDecl = ast.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	// "[dest=]comp[;jump]", both wrappers optional but comp always present
	pCInst = ast.And("c-inst", nil,
		ast.Maybe("maybe-assign", nil, ast.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp,
		ast.Maybe("maybe-goto", nil, ast.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// A symbol is letters, digits and the punctuation set (_, ., $, :), with
	// no leading digit; a bare integer is only valid as an A-instruction
	// target, never as a declared label.
	pLabel = ast.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Every non-empty subset of {A, D, M}. OrdChoice commits to the first
	// match, so the 3-letter combo goes first and the 2-letter combos before
	// any single letter, or "AMD=..." would stop matching after "A".
	pDest = ast.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"),
		pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// The closed comp table from the ISA. Same first-match caveat as pDest:
	// the bare registers and constants sit last so "D+A" isn't cut short at
	// "D".
	pComp = ast.OrdChoice("comp", nil,
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("-1", "-1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	pJump = ast.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns Hack assembly text into an asm.Program in two passes:
// FromSource feeds the whitespace-stripped input through the combinator
// grammar above and returns the raw goparsec tree, FromAST walks that tree
// into typed Instruction values. Debug output from the underlying library is
// toggled via env vars (PARSEC_DEBUG, EXPORT_AST, PRINT_AST, the last two
// writing under DEBUG_FOLDER).
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

func (p *Parser) Parse() (Program, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %w", err)
	}

	root, ok := p.FromSource(stripIntraLineWhitespace(content))
	if !ok {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring(`"Assembler AST"`)))
		}
	}

	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	// A failed match never produces a root node, so nil doubles as the
	// parse-failure signal.
	return root, root != nil
}

// nodeHandlers maps each subtree label pProgram can produce to the function
// that turns it into an Instruction; "comment" nodes have no handler and are
// filtered out by FromAST before this table is consulted.
var nodeHandlers = map[string]func(Parser, pc.Queryable) (Instruction, error){
	"a-inst":     Parser.HandleAInst,
	"c-inst":     Parser.HandleCInst,
	"label-decl": Parser.HandleLabelDecl,
}

func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("expected root node 'program', found '%s'", root.GetName())
	}

	program := make(Program, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		handle, known := nodeHandlers[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		inst, err := handle(*p, child)
		if err != nil {
			return nil, err
		}
		program = append(program, inst)
	}

	return program, nil
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

// HandleAInst extracts the '@' target, still raw text at this stage: numeric
// literals and symbol references both come through here and are only told
// apart (and range-checked) during lowering.
func (Parser) HandleAInst(node pc.Queryable) (Instruction, error) {
	if err := expectChildren(node, "a-inst", 2); err != nil {
		return nil, err
	}

	location := node.GetChildren()[1]
	if location.GetName() != "INT" && location.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL' or 'INT', got '%s'", location.GetName())
	}

	return AInstruction{Location: location.GetValue()}, nil
}

// HandleCInst reads the dest/comp/jump triple. The 'assign' and 'goto'
// wrappers are each optional in the grammar and checked independently, so a
// combined 'dest=comp;jump' instruction keeps both halves.
func (Parser) HandleCInst(node pc.Queryable) (Instruction, error) {
	if err := expectChildren(node, "c-inst", 3); err != nil {
		return nil, err
	}
	assign, comp, jump := node.GetChildren()[0], node.GetChildren()[1], node.GetChildren()[2]

	inst := CInstruction{Comp: comp.GetValue()}
	if assign.GetName() == "assign" && len(assign.GetChildren()) == 2 {
		inst.Dest = assign.GetChildren()[0].GetValue()
	}
	if jump.GetName() == "goto" && len(jump.GetChildren()) == 2 {
		inst.Jump = jump.GetChildren()[1].GetValue()
	}

	// A lone comp with neither a 'dest=' nor a ';jump' has no observable effect.
	if inst.Dest == "" && inst.Jump == "" {
		return nil, fmt.Errorf("expected either node 'assign' or 'goto', found neither")
	}

	return inst, nil
}

// HandleLabelDecl extracts the parenthesized name. A numeric "label" is a
// grammar mismatch: pLabel only admits INT for A-instruction targets, and a
// declared label always scans as SYMBOL.
func (Parser) HandleLabelDecl(node pc.Queryable) (Instruction, error) {
	if err := expectChildren(node, "label-decl", 3); err != nil {
		return nil, err
	}

	name := node.GetChildren()[1]
	if name.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL', got '%s'", name.GetName())
	}

	return LabelDecl{Name: name.GetValue()}, nil
}
