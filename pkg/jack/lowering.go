package jack

import (
	"fmt"
	"sort"

	"n2t.dev/toolchain/pkg/utils"
	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Operation builder

// opBuilder accumulates the vm.Operation slice a lowering step produces,
// replacing the append(append(...), ...) chains a naive translation pass
// tends to grow into once a construct needs more than two or three pieces
// stitched together.
type opBuilder struct{ ops []vm.Operation }

func (b *opBuilder) push(ops ...vm.Operation) *opBuilder {
	b.ops = append(b.ops, ops...)
	return b
}

func (b *opBuilder) extend(chunks ...[]vm.Operation) *opBuilder {
	for _, chunk := range chunks {
		b.ops = append(b.ops, chunk...)
	}
	return b
}

func (b *opBuilder) result() []vm.Operation { return b.ops }

// ----------------------------------------------------------------------------
// Label generation

// labelGen hands out the synthetic control-flow labels for one subroutine:
// a monotonic 'if' counter and a monotonic 'while' counter, reset together
// at every subroutine entry. All labels of one construct share the same
// index (IF_TRUE2/IF_FALSE2/IF_END2 belong to the same 'if'), so each
// construct claims its index once and formats every label it needs from it.
type labelGen struct{ ifN, whileN uint }

func (g *labelGen) reset() { g.ifN, g.whileN = 0, 0 }

func (g *labelGen) nextIf() uint {
	n := g.ifN
	g.ifN++
	return n
}

func (g *labelGen) nextWhile() uint {
	n := g.whileN
	g.whileN++
	return n
}

// ----------------------------------------------------------------------------
// Lowerer

// Lowerer walks a jack.Program (a collection of parsed classes) and produces
// the equivalent vm.Program. The traversal is a straightforward recursive
// descent over the AST: class -> subroutine -> statement -> expression, each
// level delegating to the next and combining the returned vm.Operation
// slices via opBuilder.
type Lowerer struct {
	program utils.OrderedMap[string, Class]
	scopes  ScopeTable
	labels  labelGen
}

// NewLowerer prepares a Lowerer for the given Program. The map is copied into
// an OrderedMap sorted by class name first: Go map iteration order is
// randomized, and an unordered traversal would make which error surfaces
// first (when more than one class is broken) differ across otherwise
// identical runs.
func NewLowerer(p Program) Lowerer {
	entries := make([]utils.MapEntry[string, Class], 0, len(p))
	for name, class := range p {
		entries = append(entries, utils.MapEntry[string, Class]{Key: name, Value: class})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return Lowerer{program: utils.NewOrderedMapFromList(entries)}
}

// Lowerer runs the full translation and returns the resulting vm.Program, one
// vm.Module per class.
func (l *Lowerer) Lowerer() (vm.Program, error) {
	if l.program.Size() == 0 {
		return nil, fmt.Errorf("the given 'program' is empty or nil")
	}

	program := vm.Program{}
	for _, name := range l.program.Keys() {
		class, _ := l.program.Get(name)

		ops, err := l.HandleClass(class)
		if err != nil {
			return nil, fmt.Errorf("error lowering class '%s': %w", name, err)
		}
		program[name] = vm.Module(ops)
	}

	return program, nil
}

// HandleClass lowers every field declaration (to register the class's static
// and instance variables in scope) and every subroutine body of a class.
func (l *Lowerer) HandleClass(class Class) ([]vm.Operation, error) {
	l.scopes.PushClassScope(class.Name)
	defer l.scopes.PopClassScope()

	b := &opBuilder{}
	for _, field := range class.Fields.Entries() {
		l.scopes.RegisterVariable(field)
	}

	for _, name := range class.Subroutines.Keys() {
		subroutine, _ := class.Subroutines.Get(name)

		ops, err := l.HandleSubroutine(class, subroutine)
		if err != nil {
			return nil, fmt.Errorf("error lowering subroutine '%s' of class '%s': %w", name, class.Name, err)
		}
		b.push(ops...)
	}

	return b.result(), nil
}

// HandleSubroutine lowers a single method/function/constructor to a
// vm.FuncDecl plus its prologue (if any) and its compiled body. The calling
// convention differs by SubroutineType:
//   - Constructor: allocates memory for exactly as many slots as the class
//     has (non-static) fields, then sets 'this' to the freshly allocated base.
//   - Method: receives the object instance as implicit argument 0 and sets
//     'this' to it before running the body.
//   - Function: no implicit receiver, the body runs as-is.
func (l *Lowerer) HandleSubroutine(owner Class, subroutine Subroutine) ([]vm.Operation, error) {
	l.scopes.PushSubRoutineScope(subroutine.Name)
	defer l.scopes.PopSubroutineScope()

	l.labels.reset()

	if subroutine.Type == Method {
		l.scopes.RegisterVariable(Variable{Name: "this", VarType: Parameter, DataType: Object, ClassName: owner.Name})
	}
	for _, arg := range subroutine.Arguments {
		l.scopes.RegisterVariable(arg)
	}

	body := &opBuilder{}
	for _, stmt := range subroutine.Statements {
		ops, err := l.HandleStatement(stmt)
		if err != nil {
			return nil, fmt.Errorf("error lowering statement %T: %w", stmt, err)
		}
		body.push(ops...)
	}

	decl := vm.FuncDecl{Name: l.scopes.GetScope(), NLocal: uint16(l.scopes.local.Count())}

	switch subroutine.Type {
	case Constructor:
		var nFields uint16
		for _, field := range owner.Fields.Entries() {
			if field.VarType == Field {
				nFields++
			}
		}

		return (&opBuilder{}).push(decl,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: nFields},
			vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		).extend(body.result()).result(), nil

	case Method:
		return (&opBuilder{}).push(decl,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		).extend(body.result()).result(), nil

	default: // Function
		return (&opBuilder{}).push(decl).extend(body.result()).result(), nil
	}
}
