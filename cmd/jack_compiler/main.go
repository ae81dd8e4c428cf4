package main

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .jack file
	WithArg(cli.NewArg("inputs", "The source (.jack) files to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("stdlib", "Uses the built-in ABI of the standard library for lowering").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("output", "Selects the dump produced for each input: tokens, ast, symbol-table or vm (default)").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	mode := options["output"]
	if mode == "" {
		mode = "vm"
	}
	switch mode {
	case "tokens", "ast", "symbol-table", "vm":
	default:
		fmt.Printf("ERROR: Unknown output mode '%s', use one of: tokens, ast, symbol-table, vm\n", mode)
		return -1
	}

	// The first is the aggregation of all the Translation Units (TUs) found during the input walk (just the paths)
	// The second is the container of the full program (a basic collection of parsed modules that can be explored)
	// ! While the Jack language spec follows the same semantic as Java every file is a class and every class is a
	// ! jack.Class, that said in future or other language the same could not apply. By TU we identify the source
	// ! that needs to be parsed, by module we identify the biggest entity extractable from said file. In jack this
	// ! a class but for other language it may be a module (Go), a namespace (C#) or just some basic functions (C).
	TUs, program := []string{}, jack.Program{}

	for _, input := range args {
		filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil // We recurse on dirs and ignore other filetypes
			}

			TUs = append(TUs, path)
			return nil
		})
	}

	if mode == "tokens" {
		return dumpTokens(TUs)
	}

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Jack program
		parser := jack.NewParser(bytes.NewReader(content))
		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		// Parses the input file content and extract an AST (as a 'jack.Class') from it.
		program[strings.TrimSuffix(filename, extension)], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	if mode == "ast" {
		for _, tu := range TUs {
			filename, extension := path.Base(tu), path.Ext(tu)
			class := program[strings.TrimSuffix(filename, extension)]
			fmt.Println(classToSExpr(class))
		}
		return 0
	}

	if mode == "symbol-table" {
		for _, tu := range TUs {
			filename, extension := path.Base(tu), path.Ext(tu)
			class := program[strings.TrimSuffix(filename, extension)]
			for _, line := range dumpSymbolTable(class) {
				fmt.Println(line)
			}
		}
		return 0
	}

	// Adds to the jack.Program the stdlib ABI, this will help resolve stdlib functions w/o adding
	// them to the final executable (they are ignored after the codegen phase). This will enable
	// in future to compile project w/o defining the stdlib and assuming it can be 'linked' if needed.
	if _, enabled := options["stdlib"]; enabled {
		for name, def := range jack.StandardLibraryABI {
			program[name] = def
		}
	}

	// Instantiate a lowerer to convert the program from Jack to Vm
	lowerer := jack.NewLowerer(program)
	// Lowers the jack.Program to an in-memory/IR representation of its Vm counterpart 'vm.Program'.
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Vm (compiled) program
	codegen := vm.NewCodeGenerator(vmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, tu := range TUs {
		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		module, ok := compiled[strings.TrimSuffix(filename, extension)]
		if !ok {
			fmt.Printf("ERROR: Unable to compile module for class file '%s'\n", tu)
			return -1
		}

		output, err := os.Create(fmt.Sprintf("%s.vm", strings.TrimSuffix(tu, extension)))
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer output.Close()

		for _, ops := range module {
			line := fmt.Sprintf("%s\n", ops)
			output.Write([]byte(line))
		}
	}

	return 0
}

// dumpTokens runs only the Tokenizer (no Parser, no ScopeTable) over every
// translation unit and prints '<TYPE> <literal>' one token per line, mirroring
// the original JackAnalyzer's '-T' debug mode.
func dumpTokens(TUs []string) int {
	for _, tu := range TUs {
		file, err := os.Open(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		tokenizer := jack.NewTokenizer(file)
		for {
			token, err := tokenizer.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				fmt.Printf("ERROR: Unable to complete 'tokenizing' pass: %s\n", err)
				file.Close()
				return -1
			}
			fmt.Printf("%s %s\n", token.Type, token.Literal)
		}
		file.Close()
	}
	return 0
}

// classToSExpr renders a parsed class as a parenthesized s-expression, the
// same shape the original JackAnalyzer's '-X' debug mode produced.
func classToSExpr(class jack.Class) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(class %s", class.Name)
	for _, field := range class.Fields.Entries() {
		fmt.Fprintf(&b, " (%s %s %s)", field.VarType, field.DataType, field.Name)
	}
	for _, name := range class.Subroutines.Keys() {
		routine, _ := class.Subroutines.Get(name)
		b.WriteString(" ")
		b.WriteString(subroutineToSExpr(routine))
	}
	b.WriteString(")")
	return b.String()
}

func subroutineToSExpr(routine jack.Subroutine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s %s %s (", routine.Type, routine.Return, routine.Name)
	for i, arg := range routine.Arguments {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s %s", arg.DataType, arg.Name)
	}
	b.WriteString(")")
	for _, stmt := range routine.Statements {
		b.WriteString(" ")
		b.WriteString(statementToSExpr(stmt))
	}
	b.WriteString(")")
	return b.String()
}

func statementToSExpr(stmt jack.Statement) string {
	switch s := stmt.(type) {
	case jack.DoStmt:
		return fmt.Sprintf("(do %s)", expressionToSExpr(s.FuncCall))
	case jack.VarStmt:
		var b strings.Builder
		b.WriteString("(var")
		for _, v := range s.Vars {
			fmt.Fprintf(&b, " %s %s", v.DataType, v.Name)
		}
		b.WriteString(")")
		return b.String()
	case jack.LetStmt:
		return fmt.Sprintf("(let %s %s)", expressionToSExpr(s.Lhs), expressionToSExpr(s.Rhs))
	case jack.ReturnStmt:
		if s.Expr == nil {
			return "(return)"
		}
		return fmt.Sprintf("(return %s)", expressionToSExpr(s.Expr))
	case jack.IfStmt:
		var b strings.Builder
		fmt.Fprintf(&b, "(if %s (", expressionToSExpr(s.Condition))
		for i, st := range s.ThenBlock {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(statementToSExpr(st))
		}
		b.WriteString(") (")
		for i, st := range s.ElseBlock {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(statementToSExpr(st))
		}
		b.WriteString("))")
		return b.String()
	case jack.WhileStmt:
		var b strings.Builder
		fmt.Fprintf(&b, "(while %s (", expressionToSExpr(s.Condition))
		for i, st := range s.Block {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(statementToSExpr(st))
		}
		b.WriteString("))")
		return b.String()
	default:
		return fmt.Sprintf("(unknown-statement %T)", stmt)
	}
}

func expressionToSExpr(expr jack.Expression) string {
	switch e := expr.(type) {
	case jack.VarExpr:
		return e.Var
	case jack.LiteralExpr:
		return e.Value
	case jack.ArrayExpr:
		return fmt.Sprintf("(index %s %s)", e.Var, expressionToSExpr(e.Index))
	case jack.UnaryExpr:
		return fmt.Sprintf("(%s %s)", e.Type, expressionToSExpr(e.Rhs))
	case jack.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", e.Type, expressionToSExpr(e.Lhs), expressionToSExpr(e.Rhs))
	case jack.FuncCallExpr:
		var b strings.Builder
		if e.IsExtCall {
			fmt.Fprintf(&b, "(call %s.%s", e.Var, e.FuncName)
		} else {
			fmt.Fprintf(&b, "(call %s", e.FuncName)
		}
		for _, arg := range e.Arguments {
			b.WriteString(" ")
			b.WriteString(expressionToSExpr(arg))
		}
		b.WriteString(")")
		return b.String()
	default:
		return fmt.Sprintf("(unknown-expression %T)", expr)
	}
}

// dumpSymbolTable rebuilds the per-class/per-subroutine symbol table from the
// parsed AST and renders it as '<scope> <name> <kind> <type> <slot>' lines,
// the same shape the original JackAnalyzer's '-S' debug mode produced. The
// Parser's own ScopeTable is popped by the time Parse() returns, so this
// walks the surviving AST instead of reusing it directly.
func dumpSymbolTable(class jack.Class) []string {
	lines := []string{}

	var staticSlot, fieldSlot uint16
	for _, field := range class.Fields.Entries() {
		slot := &fieldSlot
		if field.VarType == jack.Static {
			slot = &staticSlot
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s %d", class.Name, field.Name, field.VarType, field.DataType, *slot))
		*slot++
	}

	for _, name := range class.Subroutines.Keys() {
		routine, _ := class.Subroutines.Get(name)
		scope := fmt.Sprintf("%s.%s", class.Name, routine.Name)

		var paramSlot, localSlot uint16
		if routine.Type == jack.Method {
			lines = append(lines, fmt.Sprintf("%s this %s %s %d", scope, jack.Parameter, jack.Object, paramSlot))
			paramSlot++
		}
		for _, arg := range routine.Arguments {
			lines = append(lines, fmt.Sprintf("%s %s %s %s %d", scope, arg.Name, jack.Parameter, arg.DataType, paramSlot))
			paramSlot++
		}
		for _, stmt := range routine.Statements {
			varStmt, ok := stmt.(jack.VarStmt)
			if !ok {
				continue
			}
			for _, v := range varStmt.Vars {
				lines = append(lines, fmt.Sprintf("%s %s %s %s %d", scope, v.Name, jack.Local, v.DataType, localSlot))
				localSlot++
			}
		}
	}

	return lines
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
