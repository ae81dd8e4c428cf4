package jack

import (
	"fmt"
	"strings"

	"n2t.dev/toolchain/pkg/vm"
)

// HandleFuncCallExpr lowers a subroutine call. A call is qualified
// ('foo.bar()', 'Foo.bar()') or unqualified ('bar()'); an unqualified call
// targets a subroutine of the enclosing class: a method is invoked on the
// current object, a function or constructor is called with no receiver. A
// qualified call is resolved, in order:
//
//  1. the qualifier names a variable currently in scope -> method call on
//     that object (its declared class supplies the target subroutine);
//  2. otherwise the qualifier names a class registered in the program ->
//     static function or constructor call.
//
// This is the symbol-table-lookup convention for disambiguating qualifiers
// (try resolving a variable first, fall back to treating the qualifier as a
// class name) rather than the uppercase-first-letter heuristic; see
// DESIGN.md for why.
func (l *Lowerer) HandleFuncCallExpr(expr FuncCallExpr) ([]vm.Operation, error) {
	args, err := l.lowerArguments(expr.Arguments)
	if err != nil {
		return nil, err
	}
	nArgs := uint16(len(expr.Arguments))

	if !expr.IsExtCall {
		return l.callImplicitMethod(expr, args, nArgs)
	}

	if ops, matched, err := l.callOnVariable(expr, args, nArgs); matched {
		return ops, err
	}

	if ops, matched, err := l.callOnClass(expr, args, nArgs); matched {
		return ops, err
	}

	return nil, fmt.Errorf("unrecognized function call expression: %s", expr.FuncName)
}

func (l *Lowerer) lowerArguments(exprs []Expression) ([]vm.Operation, error) {
	b := &opBuilder{}
	for _, expr := range exprs {
		ops, err := l.HandleExpression(expr)
		if err != nil {
			return nil, fmt.Errorf("error lowering call argument: %w", err)
		}
		b.push(ops...)
	}
	return b.result(), nil
}

// callImplicitMethod lowers a bare 'name(...)' call against the enclosing
// class. For a method, 'this' is pushed as the implicit receiver argument; a
// function or constructor is called with its declared arguments only, and no
// receiver is pushed.
func (l *Lowerer) callImplicitMethod(expr FuncCallExpr, args []vm.Operation, nArgs uint16) ([]vm.Operation, error) {
	class, exists := l.ownerClass()
	if !exists {
		return nil, fmt.Errorf("current class definition not found while lowering call to '%s'", expr.FuncName)
	}

	routine, exists := class.Subroutines.Get(expr.FuncName)
	if !exists {
		return nil, fmt.Errorf("subroutine '%s' not found in class '%s'", expr.FuncName, class.Name)
	}

	fName := fmt.Sprintf("%s.%s", class.Name, expr.FuncName)
	if routine.Type != Method {
		return (&opBuilder{}).extend(args).push(vm.FuncCallOp{Name: fName, NArgs: nArgs}).result(), nil
	}

	thisArg := vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}
	return (&opBuilder{}).push(thisArg).extend(args).push(vm.FuncCallOp{Name: fName, NArgs: nArgs + 1}).result(), nil
}

// callOnVariable handles 'qualifier.name(...)' when 'qualifier' resolves to
// a variable in scope: it must hold an object, and that object's declared
// class supplies the target subroutine as a method.
func (l *Lowerer) callOnVariable(expr FuncCallExpr, args []vm.Operation, nArgs uint16) (ops []vm.Operation, matched bool, err error) {
	_, variable, resolveErr := l.scopes.ResolveVariable(expr.Var)
	if resolveErr != nil {
		return nil, false, nil
	}

	if variable.DataType != Object {
		kind := &SyntaxError{Kind: InvalidMethodTarget, Message: fmt.Sprintf("variable '%s' is not an object, cannot call methods on it", expr.Var)}
		return nil, true, kind
	}

	receiver, err := l.HandleVarExpr(VarExpr{Var: expr.Var})
	if err != nil {
		return nil, true, fmt.Errorf("error lowering receiver '%s': %w", expr.Var, err)
	}

	fName := fmt.Sprintf("%s.%s", variable.ClassName, expr.FuncName)
	call := (&opBuilder{}).extend(receiver, args).push(vm.FuncCallOp{Name: fName, NArgs: nArgs + 1}).result()
	return call, true, nil
}

// callOnClass handles 'qualifier.name(...)' when 'qualifier' resolves not to
// a variable but to a registered class: the target subroutine must be a
// static function or a constructor, since a Method requires a receiver
// object that a bare class name can't supply.
func (l *Lowerer) callOnClass(expr FuncCallExpr, args []vm.Operation, nArgs uint16) (ops []vm.Operation, matched bool, err error) {
	class, exists := l.program.Get(expr.Var)
	if !exists {
		return nil, false, nil
	}

	routine, exists := class.Subroutines.Get(expr.FuncName)
	if !exists {
		return nil, true, fmt.Errorf("subroutine '%s' not found in class '%s'", expr.FuncName, class.Name)
	}

	switch routine.Type {
	case Function:
		fName := fmt.Sprintf("%s.%s", class.Name, expr.FuncName)
		return (&opBuilder{}).extend(args).push(vm.FuncCallOp{Name: fName, NArgs: nArgs}).result(), true, nil
	case Constructor:
		fName := fmt.Sprintf("%s.%s", class.Name, expr.FuncName)
		return (&opBuilder{}).extend(args).push(vm.FuncCallOp{Name: fName, NArgs: nArgs}).result(), true, nil
	default:
		return nil, true, fmt.Errorf("subroutine '%s' in class '%s' is a %s, not a function or constructor", expr.FuncName, class.Name, routine.Type)
	}
}

// ownerClass returns the Class currently being lowered, derived from the
// active scope name ('<Class>.<subroutine>' or '<Class>.static').
func (l *Lowerer) ownerClass() (Class, bool) {
	className, _, _ := strings.Cut(l.scopes.GetScope(), ".")
	return l.program.Get(className)
}
