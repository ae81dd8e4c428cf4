package jack_test

import (
	"strings"
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func parseClass(t *testing.T, src string) (jack.Class, error) {
	t.Helper()
	parser := jack.NewParser(strings.NewReader(src))
	return parser.Parse()
}

func TestParserBasicClass(t *testing.T) {
	src := `
	class Counter {
		field int value;
		static int instances;

		constructor Counter new(int start) {
			let value = start;
			return this;
		}

		method int get() {
			return value;
		}

		method void increment() {
			let value = value + 1;
			do Counter.bump();
			return;
		}

		function void bump() {
			let instances = instances + 1;
			return;
		}
	}
	`

	class, err := parseClass(t, src)
	if err != nil {
		t.Fatalf("unexpected parse errors: %v", err)
	}

	if class.Name != "Counter" {
		t.Fatalf("expected class name 'Counter', got %q", class.Name)
	}
	if class.Fields.Size() != 2 {
		t.Fatalf("expected 2 fields, got %d", class.Fields.Size())
	}
	if class.Subroutines.Size() != 4 {
		t.Fatalf("expected 4 subroutines, got %d", class.Subroutines.Size())
	}

	get, ok := class.Subroutines.Get("get")
	if !ok {
		t.Fatalf("expected subroutine 'get' to exist")
	}
	if get.Type != jack.Method {
		t.Errorf("expected 'get' to be a method, got %s", get.Type)
	}
	if len(get.Statements) != 1 {
		t.Fatalf("expected 1 statement in 'get', got %d", len(get.Statements))
	}
	if _, ok := get.Statements[0].(jack.ReturnStmt); !ok {
		t.Errorf("expected a ReturnStmt, got %T", get.Statements[0])
	}
}

func TestParserExpressionsAreFlatAndLeftAssociative(t *testing.T) {
	src := `
	class Math2 {
		function int compute() {
			return 1 + 2 * 3;
		}
	}
	`
	class, err := parseClass(t, src)
	if err != nil {
		t.Fatalf("unexpected parse errors: %v", err)
	}

	routine, _ := class.Subroutines.Get("compute")
	ret, ok := routine.Statements[0].(jack.ReturnStmt)
	if !ok {
		t.Fatalf("expected a ReturnStmt, got %T", routine.Statements[0])
	}

	// '1 + 2 * 3' must parse as '(1 + 2) * 3', not '1 + (2 * 3)': the grammar
	// has no operator precedence, only strict left-to-right term chaining.
	top, ok := ret.Expr.(jack.BinaryExpr)
	if !ok {
		t.Fatalf("expected top-level BinaryExpr, got %T", ret.Expr)
	}
	if top.Type != jack.Multiply {
		t.Fatalf("expected the outermost operator to be '*' (left-to-right), got %s", top.Type)
	}
	lhs, ok := top.Lhs.(jack.BinaryExpr)
	if !ok || lhs.Type != jack.Plus {
		t.Fatalf("expected the LHS to be '1 + 2', got %+v", top.Lhs)
	}
}

func TestParserIdentifierDisambiguation(t *testing.T) {
	src := `
	class Shapes {
		field Array points;

		method void draw(int i) {
			do Output.printInt(points[i]);
			do render();
			return;
		}
	}
	`
	class, err := parseClass(t, src)
	if err != nil {
		t.Fatalf("unexpected parse errors: %v", err)
	}

	routine, _ := class.Subroutines.Get("draw")
	doStmt, ok := routine.Statements[0].(jack.DoStmt)
	if !ok {
		t.Fatalf("expected a DoStmt, got %T", routine.Statements[0])
	}
	if !doStmt.FuncCall.IsExtCall || doStmt.FuncCall.Var != "Output" {
		t.Errorf("expected a qualified call to 'Output.printInt', got %+v", doStmt.FuncCall)
	}

	arrayArg, ok := doStmt.FuncCall.Arguments[0].(jack.ArrayExpr)
	if !ok || arrayArg.Var != "points" {
		t.Errorf("expected an indexed 'points[i]' argument, got %+v", doStmt.FuncCall.Arguments[0])
	}

	localCall, ok := routine.Statements[1].(jack.DoStmt)
	if !ok {
		t.Fatalf("expected a DoStmt, got %T", routine.Statements[1])
	}
	if localCall.FuncCall.IsExtCall {
		t.Errorf("expected an unqualified call to 'render', got %+v", localCall.FuncCall)
	}
}

func TestParserDoStatementMustBeCall(t *testing.T) {
	src := `
	class Broken {
		field int x;

		method void run() {
			do x;
			return;
		}
	}
	`
	_, err := parseClass(t, src)
	if err == nil {
		t.Fatalf("expected a parse error for a non-call 'do' statement")
	}

	parseErrs, ok := err.(jack.ParseErrors)
	if !ok {
		t.Fatalf("expected jack.ParseErrors, got %T", err)
	}

	var found bool
	for _, e := range parseErrs {
		if e.Kind == jack.DoStatementMustBeCall {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DoStatementMustBeCall error, got %v", parseErrs)
	}
}

func TestParserUndeclaredVariable(t *testing.T) {
	src := `
	class Broken {
		method void run() {
			let total = missing + 1;
			return;
		}
	}
	`
	_, err := parseClass(t, src)
	if err == nil {
		t.Fatalf("expected a parse error for an undeclared variable")
	}

	parseErrs, ok := err.(jack.ParseErrors)
	if !ok {
		t.Fatalf("expected jack.ParseErrors, got %T", err)
	}

	var found bool
	for _, e := range parseErrs {
		if e.Kind == jack.SymbolNotFound {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a SymbolNotFound error, got %v", parseErrs)
	}
}

func TestParserDuplicateField(t *testing.T) {
	src := `
	class Broken {
		field int x;
		field int x;
	}
	`
	_, err := parseClass(t, src)
	if err == nil {
		t.Fatalf("expected a parse error for a duplicated field")
	}

	parseErrs, ok := err.(jack.ParseErrors)
	if !ok {
		t.Fatalf("expected jack.ParseErrors, got %T", err)
	}

	var found bool
	for _, e := range parseErrs {
		if e.Kind == jack.DuplicateVariable {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DuplicateVariable error, got %v", parseErrs)
	}
}

func TestParserIfElseAndWhile(t *testing.T) {
	src := `
	class Control {
		method void run(int n) {
			if (n > 0) {
				let n = n - 1;
			} else {
				let n = 0;
			}

			while (n < 10) {
				let n = n + 1;
			}

			return;
		}
	}
	`
	class, err := parseClass(t, src)
	if err != nil {
		t.Fatalf("unexpected parse errors: %v", err)
	}

	routine, _ := class.Subroutines.Get("run")
	if len(routine.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(routine.Statements))
	}

	ifStmt, ok := routine.Statements[0].(jack.IfStmt)
	if !ok {
		t.Fatalf("expected an IfStmt, got %T", routine.Statements[0])
	}
	if len(ifStmt.ThenBlock) != 1 || len(ifStmt.ElseBlock) != 1 {
		t.Errorf("expected exactly 1 statement in each branch, got then=%d else=%d", len(ifStmt.ThenBlock), len(ifStmt.ElseBlock))
	}

	whileStmt, ok := routine.Statements[1].(jack.WhileStmt)
	if !ok {
		t.Fatalf("expected a WhileStmt, got %T", routine.Statements[1])
	}
	if len(whileStmt.Block) != 1 {
		t.Errorf("expected exactly 1 statement in the while body, got %d", len(whileStmt.Block))
	}
}
