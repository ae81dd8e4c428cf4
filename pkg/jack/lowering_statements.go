package jack

import (
	"fmt"

	"n2t.dev/toolchain/pkg/vm"
)

// HandleStatement dispatches a Statement node to its dedicated handler.
func (l *Lowerer) HandleStatement(stmt Statement) ([]vm.Operation, error) {
	switch s := stmt.(type) {
	case DoStmt:
		return l.HandleDoStmt(s)
	case VarStmt:
		return l.HandleVarStmt(s)
	case LetStmt:
		return l.HandleLetStmt(s)
	case IfStmt:
		return l.HandleIfStmt(s)
	case WhileStmt:
		return l.HandleWhileStmt(s)
	case ReturnStmt:
		return l.HandleReturnStmt(s)
	default:
		return nil, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

// HandleDoStmt lowers a subroutine call invoked for its side effects; the
// (always present) return value is discarded into the temp segment, which is
// never read back, matching the convention every Jack subroutine returns
// something even when the caller doesn't want it.
func (l *Lowerer) HandleDoStmt(stmt DoStmt) ([]vm.Operation, error) {
	ops, err := l.HandleFuncCallExpr(stmt.FuncCall)
	if err != nil {
		return nil, fmt.Errorf("error lowering call expression: %w", err)
	}

	return (&opBuilder{}).extend(ops).push(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0}).result(), nil
}

// HandleVarStmt only has a scoping effect (it reserves a slot for each
// declared local); it contributes no VM operation of its own.
func (l *Lowerer) HandleVarStmt(stmt VarStmt) ([]vm.Operation, error) {
	for _, v := range stmt.Vars {
		l.scopes.RegisterVariable(v)
	}
	return []vm.Operation{}, nil
}

// HandleLetStmt lowers an assignment. The left-hand side determines the
// write target: a bare variable writes directly to its segment/offset, while
// an array element leaves the RHS value on the stack, computes the target
// address (base + index) above it, then writes through 'that'.
func (l *Lowerer) HandleLetStmt(stmt LetStmt) ([]vm.Operation, error) {
	rhs, err := l.HandleExpression(stmt.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error lowering assignment value: %w", err)
	}

	switch lhs := stmt.Lhs.(type) {
	case VarExpr:
		return l.assignToVariable(lhs, rhs)
	case ArrayExpr:
		return l.assignToArrayElement(lhs, rhs)
	default:
		return nil, fmt.Errorf("assignment target must be a variable or array element, got: %T", stmt.Lhs)
	}
}

func (l *Lowerer) assignToVariable(target VarExpr, rhs []vm.Operation) ([]vm.Operation, error) {
	offset, variable, err := l.scopes.ResolveVariable(target.Var)
	if err != nil {
		return nil, fmt.Errorf("error resolving assignment target '%s': %w", target.Var, err)
	}

	segment, err := segmentFor(variable.VarType)
	if err != nil {
		return nil, err
	}

	return (&opBuilder{}).extend(rhs).push(vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: offset}).result(), nil
}

func (l *Lowerer) assignToArrayElement(target ArrayExpr, rhs []vm.Operation) ([]vm.Operation, error) {
	address, err := l.arrayElementAddress(target)
	if err != nil {
		return nil, err
	}

	// The RHS is evaluated before the target address: the address computation
	// clobbers 'that', so if it ran first and the RHS itself touched 'that'
	// (e.g. another array access, or a call), the target would be destroyed
	// before the write lands.
	return (&opBuilder{}).
		extend(rhs, address).
		push(
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0},
		).result(), nil
}

// HandleWhileStmt lowers a pre-test loop: re-check the condition every
// iteration and fall through once it's false.
func (l *Lowerer) HandleWhileStmt(stmt WhileStmt) ([]vm.Operation, error) {
	// The index is claimed before the body is lowered, so an outer loop
	// always numbers below any loop nested inside it.
	k := l.labels.nextWhile()
	start, end := fmt.Sprintf("WHILE_EXP%d", k), fmt.Sprintf("WHILE_END%d", k)

	cond, err := l.HandleExpression(stmt.Condition)
	if err != nil {
		return nil, fmt.Errorf("error lowering while condition: %w", err)
	}

	body, err := l.lowerBlock(stmt.Block)
	if err != nil {
		return nil, fmt.Errorf("error lowering while body: %w", err)
	}

	return (&opBuilder{}).
		push(vm.LabelDecl{Name: start}).
		extend(cond).
		push(
			vm.ArithmeticOp{Operation: vm.Not},
			vm.GotoOp{Label: end, Jump: vm.Conditional},
		).
		extend(body).
		push(
			vm.GotoOp{Label: start, Jump: vm.Unconditional},
			vm.LabelDecl{Name: end},
		).result(), nil
}

// HandleIfStmt lowers a conditional, picking a one-way or two-way branch
// shape depending on whether an else block is present.
func (l *Lowerer) HandleIfStmt(stmt IfStmt) ([]vm.Operation, error) {
	// Claimed before either branch is lowered; see HandleWhileStmt.
	k := l.labels.nextIf()
	onTrue, onFalse := fmt.Sprintf("IF_TRUE%d", k), fmt.Sprintf("IF_FALSE%d", k)

	cond, err := l.HandleExpression(stmt.Condition)
	if err != nil {
		return nil, fmt.Errorf("error lowering if condition: %w", err)
	}

	then, err := l.lowerBlock(stmt.ThenBlock)
	if err != nil {
		return nil, fmt.Errorf("error lowering 'then' block: %w", err)
	}

	if len(stmt.ElseBlock) == 0 {
		return (&opBuilder{}).
			extend(cond).
			push(
				vm.GotoOp{Label: onTrue, Jump: vm.Conditional},
				vm.GotoOp{Label: onFalse, Jump: vm.Unconditional},
				vm.LabelDecl{Name: onTrue},
			).
			extend(then).
			push(vm.LabelDecl{Name: onFalse}).result(), nil
	}

	elseOps, err := l.lowerBlock(stmt.ElseBlock)
	if err != nil {
		return nil, fmt.Errorf("error lowering 'else' block: %w", err)
	}

	end := fmt.Sprintf("IF_END%d", k)

	return (&opBuilder{}).
		extend(cond).
		push(
			vm.GotoOp{Label: onTrue, Jump: vm.Conditional},
			vm.GotoOp{Label: onFalse, Jump: vm.Unconditional},
			vm.LabelDecl{Name: onTrue},
		).
		extend(then).
		push(vm.GotoOp{Label: end, Jump: vm.Unconditional}, vm.LabelDecl{Name: onFalse}).
		extend(elseOps).
		push(vm.LabelDecl{Name: end}).result(), nil
}

// HandleReturnStmt lowers a return; a bodiless 'return;' still pushes a
// dummy zero value, since every Jack subroutine is expected to leave exactly
// one word on the stack for its caller to consume (or discard, for 'void').
func (l *Lowerer) HandleReturnStmt(stmt ReturnStmt) ([]vm.Operation, error) {
	if stmt.Expr == nil {
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		}, nil
	}

	ops, err := l.HandleExpression(stmt.Expr)
	if err != nil {
		return nil, fmt.Errorf("error lowering return value: %w", err)
	}
	return (&opBuilder{}).extend(ops).push(vm.ReturnOp{}).result(), nil
}

func (l *Lowerer) lowerBlock(block []Statement) ([]vm.Operation, error) {
	b := &opBuilder{}
	for _, stmt := range block {
		ops, err := l.HandleStatement(stmt)
		if err != nil {
			return nil, err
		}
		b.push(ops...)
	}
	return b.result(), nil
}

// segmentFor maps a Variable's declaration kind to the VM memory segment
// reads/writes of it compile down to.
func segmentFor(kind VarType) (vm.SegmentType, error) {
	switch kind {
	case Local:
		return vm.Local, nil
	case Parameter:
		return vm.Argument, nil
	case Field:
		return vm.This, nil
	case Static:
		return vm.Static, nil
	default:
		return "", fmt.Errorf("variable kind '%s' has no VM segment", kind)
	}
}
