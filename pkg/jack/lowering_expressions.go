package jack

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/vm"
)

// HandleExpression dispatches an Expression node to its dedicated handler.
func (l *Lowerer) HandleExpression(expr Expression) ([]vm.Operation, error) {
	switch e := expr.(type) {
	case VarExpr:
		return l.HandleVarExpr(e)
	case LiteralExpr:
		return l.HandleLiteralExpr(e)
	case ArrayExpr:
		return l.HandleArrayExpr(e)
	case UnaryExpr:
		return l.HandleUnaryExpr(e)
	case BinaryExpr:
		return l.HandleBinaryExpr(e)
	case FuncCallExpr:
		return l.HandleFuncCallExpr(e)
	default:
		return nil, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// HandleVarExpr reads a variable's value onto the stack. 'this' is a
// keyword, not a declared variable, so it's special-cased to read the
// pointer segment directly.
func (l *Lowerer) HandleVarExpr(expr VarExpr) ([]vm.Operation, error) {
	if expr.Var == "this" {
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}}, nil
	}

	offset, variable, err := l.scopes.ResolveVariable(expr.Var)
	if err != nil {
		return nil, fmt.Errorf("error resolving variable '%s': %w", expr.Var, err)
	}

	segment, err := segmentFor(variable.VarType)
	if err != nil {
		return nil, err
	}

	return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: offset}}, nil
}

// HandleLiteralExpr lowers a constant. Every primitive collapses to a single
// 'push constant', except strings, which expand to a 'String.new' call
// followed by one 'String.appendChar' per rune.
func (l *Lowerer) HandleLiteralExpr(expr LiteralExpr) ([]vm.Operation, error) {
	switch expr.Type {
	case Int:
		value, err := strconv.ParseUint(expr.Value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("error parsing integer literal '%s': %w", expr.Value, err)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(value)}}, nil

	case Bool:
		value, err := strconv.ParseBool(expr.Value)
		if err != nil {
			return nil, fmt.Errorf("error parsing boolean literal '%s': %w", expr.Value, err)
		}
		if value {
			// Jack's 'true' is the all-ones word: push 0 and bitwise-not it.
			return []vm.Operation{
				vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
				vm.ArithmeticOp{Operation: vm.Not},
			}, nil
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil

	case Char:
		if len(expr.Value) != 1 {
			return nil, fmt.Errorf("char literal must be exactly one character, got '%s'", expr.Value)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(expr.Value[0])}}, nil

	case Object:
		if expr.Value != "null" {
			return nil, fmt.Errorf("only the 'null' object literal is supported, got '%s'", expr.Value)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil

	case String:
		b := (&opBuilder{}).push(
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(len(expr.Value))},
			vm.FuncCallOp{Name: "String.new", NArgs: 1},
		)
		for _, char := range expr.Value {
			b.push(
				vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(char)},
				vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
			)
		}
		return b.result(), nil

	default:
		return nil, fmt.Errorf("unrecognized literal type: %s", expr.Type)
	}
}

// arrayElementAddress computes base+index and leaves it on top of the stack;
// both callers, reads (HandleArrayExpr) and writes (assignToArrayElement),
// then pop it into 'pointer 1' to repoint 'that' at the element.
func (l *Lowerer) arrayElementAddress(expr ArrayExpr) ([]vm.Operation, error) {
	base, err := l.HandleVarExpr(VarExpr{Var: expr.Var})
	if err != nil {
		return nil, fmt.Errorf("error resolving array base '%s': %w", expr.Var, err)
	}

	index, err := l.HandleExpression(expr.Index)
	if err != nil {
		return nil, fmt.Errorf("error lowering array index: %w", err)
	}

	return (&opBuilder{}).extend(index, base).push(vm.ArithmeticOp{Operation: vm.Add}).result(), nil
}

// HandleArrayExpr reads a single array element's value.
func (l *Lowerer) HandleArrayExpr(expr ArrayExpr) ([]vm.Operation, error) {
	address, err := l.arrayElementAddress(expr)
	if err != nil {
		return nil, err
	}

	return (&opBuilder{}).extend(address).push(
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.That, Offset: 0},
	).result(), nil
}

// HandleUnaryExpr lowers a prefix operator applied to a single operand.
func (l *Lowerer) HandleUnaryExpr(expr UnaryExpr) ([]vm.Operation, error) {
	rhs, err := l.HandleExpression(expr.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error lowering operand: %w", err)
	}

	switch expr.Type {
	case Minus:
		return (&opBuilder{}).extend(rhs).push(vm.ArithmeticOp{Operation: vm.Neg}).result(), nil
	case BoolNot:
		return (&opBuilder{}).extend(rhs).push(vm.ArithmeticOp{Operation: vm.Not}).result(), nil
	default:
		return nil, fmt.Errorf("unrecognized unary operator: %s", expr.Type)
	}
}

// binaryOps maps each binary operator to either a direct VM arithmetic op or
// (for multiply/divide, which the Hack VM has no primitive for) a standard
// library call; exactly one of the two is set per entry.
var binaryOps = map[ExprType]struct {
	arith vm.ArithOpType
	call  string
}{
	Plus:      {arith: vm.Add},
	Minus:     {arith: vm.Sub},
	BoolOr:    {arith: vm.Or},
	BoolAnd:   {arith: vm.And},
	BoolNot:   {arith: vm.Not},
	Equal:     {arith: vm.Eq},
	LessThan:  {arith: vm.Lt},
	GreatThan: {arith: vm.Gt},
	Multiply:  {call: "Math.multiply"},
	Divide:    {call: "Math.divide"},
}

// HandleBinaryExpr lowers a two-operand expression, evaluating left-to-right
// before combining the two values per the operator table above.
func (l *Lowerer) HandleBinaryExpr(expr BinaryExpr) ([]vm.Operation, error) {
	lhs, err := l.HandleExpression(expr.Lhs)
	if err != nil {
		return nil, fmt.Errorf("error lowering left-hand operand: %w", err)
	}
	rhs, err := l.HandleExpression(expr.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error lowering right-hand operand: %w", err)
	}

	op, ok := binaryOps[expr.Type]
	if !ok {
		return nil, fmt.Errorf("unrecognized binary operator: %s", expr.Type)
	}

	b := (&opBuilder{}).extend(lhs, rhs)
	if op.call != "" {
		return b.push(vm.FuncCallOp{Name: op.call, NArgs: 2}).result(), nil
	}
	return b.push(vm.ArithmeticOp{Operation: op.arith}).result(), nil
}
