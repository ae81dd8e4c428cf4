package jack

import "n2t.dev/toolchain/pkg/utils"

// ----------------------------------------------------------------------------
// Primitive kinds
//
// Three small closed vocabularies drive the rest of the AST: where a Variable
// lives (VarType), what kind of value it holds (DataType), and what an
// Expression computes (ExprType). Keeping them as named strings rather than
// ints makes a mis-wired switch fail loudly (an unmatched string prints
// instead of silently mapping to iota 0) and keeps error messages readable
// without a separate stringer.

type VarType string

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

type DataType string

const (
	Int    DataType = "int"
	Bool   DataType = "bool"
	Char   DataType = "char"
	Null   DataType = "null"
	String DataType = "string"
	Void   DataType = "void"
	Object DataType = "object"
)

type ExprType string

const (
	Plus     ExprType = "plus"
	Minus    ExprType = "minus" // subtraction in a BinaryExpr, negation in a UnaryExpr
	Divide   ExprType = "divide"
	Multiply ExprType = "multiply"

	BoolOr  ExprType = "bool_or"
	BoolAnd ExprType = "bool_and"
	BoolNot ExprType = "bool_neg" // unary only

	Equal     ExprType = "equal"
	LessThan  ExprType = "less_than"
	GreatThan ExprType = "greater_than"
)

// ----------------------------------------------------------------------------
// Variables

// Variable names one storage slot, whatever is declaring it: a class field,
// a class-wide static, a subroutine parameter, or a subroutine-local. Which
// one it is lives in VarType; DataType/ClassName describe what it holds.
type Variable struct {
	Name      string
	VarType   VarType
	DataType  DataType
	ClassName string // set when DataType == Object, names the object's class
}

// ----------------------------------------------------------------------------
// Expressions
//
// Expression is a closed sum type over every shape a value-producing
// construct can take. Each concrete case below implements it by definition
// (an empty interface accepts anything); a Lowerer or other consumer
// type-switches over the concrete type to know which case it has.
type Expression interface{}

type VarExpr struct {
	Var string
}

type LiteralExpr struct {
	Type  DataType
	Value string
}

type ArrayExpr struct {
	Var   string
	Index Expression
}

type UnaryExpr struct {
	Type ExprType // Minus or BoolNot
	Rhs  Expression
}

type BinaryExpr struct {
	Type ExprType // anything but BoolNot
	Lhs  Expression
	Rhs  Expression
}

type FuncCallExpr struct {
	IsExtCall bool   // true for 'qualifier.name(...)', false for a bare 'name(...)'
	Var       string // the qualifier; empty when IsExtCall is false
	FuncName  string
	Arguments []Expression
}

// ----------------------------------------------------------------------------
// Statements
//
// Statement is the sibling sum type for side-effecting constructs: things
// that change a Variable's value or redirect control flow rather than
// compute one.
type Statement interface{}

type DoStmt struct {
	FuncCall FuncCallExpr
}

type VarStmt struct {
	Vars []Variable
}

type LetStmt struct {
	Lhs Expression // VarExpr or ArrayExpr only
	Rhs Expression
}

type ReturnStmt struct {
	Expr Expression // nil for a bare 'return;'
}

type IfStmt struct {
	Condition Expression
	ThenBlock []Statement
	ElseBlock []Statement // empty when there's no 'else'
}

type WhileStmt struct {
	Condition Expression
	Block     []Statement
}

// ----------------------------------------------------------------------------
// Subroutines and classes

type SubroutineType string

const (
	Method      SubroutineType = "method"
	Function    SubroutineType = "function"
	Constructor SubroutineType = "constructor"
)

// Subroutine is one compiled unit: a method, a class (static) function, or a
// constructor. Arguments are declaration-ordered since that order is the
// calling convention; Statements is the parsed body in source order.
type Subroutine struct {
	Name string
	Type SubroutineType

	Return    DataType
	Arguments []Variable

	Statements []Statement
}

// Class bundles a name with its own fields and subroutines. Every .jack file
// declares exactly one, and it is the unit the rest of the toolchain treats
// as a translation unit (one Class in, one vm.Module out).
type Class struct {
	Name        string
	Fields      utils.OrderedMap[string, Variable]
	Subroutines utils.OrderedMap[string, Subroutine]
}

// Program collects every Class that makes up a compilation, keyed by class
// name. A complete Jack program designates one class 'Main' with a function
// 'main' as its entry point, but Program itself doesn't enforce that; it's
// just the container the parser fills in and the Lowerer drains.
type Program map[string]Class
