package jack

import (
	"fmt"

	"n2t.dev/toolchain/pkg/utils"
)

// ----------------------------------------------------------------------------
// Scope

// A Scope is a single dense, 0-indexed namespace of Variable declarations.
//
// Slots are assigned in declaration order (the first Variable added gets slot
// 0, the second slot 1, and so on) and never reused once a Scope is reset, so
// the slot assigned to a Variable is stable for the Scope's entire lifetime.
// Declarations are kept in a Stack since a Scope only ever grows from the top
// and is torn down as a whole (PopClassScope/PopSubroutineScope), never
// shrunk one Variable at a time.
type Scope struct {
	name    string
	entries utils.Stack[Variable]
}

// Adds a new Variable to the Scope and returns the dense slot it was assigned.
func (s *Scope) Add(v Variable) uint16 {
	slot := uint16(s.entries.Count())
	s.entries.Push(v)
	return slot
}

// Returns the number of Variable declared so far in this Scope.
func (s *Scope) Count() int { return s.entries.Count() }

// Looks up a Variable by name, returning its slot and declaration. Walks the
// Stack top-down (most recently declared first) so that a redeclaration
// shadows an earlier one sharing the same name within the same Scope.
func (s *Scope) Resolve(name string) (uint16, Variable, bool) {
	slot, found, ok := uint16(0), Variable{}, false

	i := s.entries.Count() - 1
	iterator := s.entries.Iterator()
	iterator(func(entry Variable) bool {
		if entry.Name == name {
			slot, found, ok = uint16(i), entry, true
			return false
		}
		i--
		return true
	})

	return slot, found, ok
}

// ----------------------------------------------------------------------------
// ScopeTable

// A ScopeTable is the two-level symbol table mandated for the Jack language:
//   - Class scope: 'static' and 'field' Variable, one dense namespace each,
//     reset whenever a new class is entered.
//   - Subroutine scope: 'local' and 'parameter' Variable, one dense namespace
//     each, reset whenever a new subroutine is entered.
//
// Both class-scoped namespaces are cleared together by PushClassScope so that
// no class ever inherits slots (or field/static counts) left over by a
// previous one; the same holds for the subroutine-scoped namespaces.
type ScopeTable struct {
	class string

	static Scope
	field  Scope

	local     Scope
	parameter Scope
}

func NewScopeTable() *ScopeTable { return &ScopeTable{} }

// Resets both class-scoped namespaces ('static' and 'field') for a new class.
func (st *ScopeTable) PushClassScope(class string) {
	st.class = class
	st.static = Scope{name: fmt.Sprintf("%s.static", class)}
	st.field = Scope{name: fmt.Sprintf("%s.field", class)}
}

func (st *ScopeTable) PopClassScope() { st.class, st.static, st.field = "", Scope{}, Scope{} }

// Resets both subroutine-scoped namespaces ('local' and 'parameter') for a
// new subroutine. The scope name is built from the class name directly, the
// same '<Class>.<subroutine>' shape call sites compute, so GetScope always
// agrees with the name a call to this subroutine would be compiled against.
func (st *ScopeTable) PushSubRoutineScope(method string) {
	name := fmt.Sprintf("%s.%s", st.class, method)
	st.local = Scope{name: name}
	st.parameter = Scope{name: name}
}

func (st *ScopeTable) PopSubroutineScope() { st.local, st.parameter = Scope{}, Scope{} }

func (st *ScopeTable) GetScope() string {
	if st.local.name != "" {
		return st.local.name
	}
	if st.static.name != "" {
		return st.static.name
	}
	return "Global"
}

// Number of fields declared for the current class, used by the constructor
// prologue to size the 'Memory.alloc' call for the object being built.
func (st *ScopeTable) FieldCount() int { return st.field.Count() }

// Reports whether 'name' is already declared in the active subroutine scope
// (as a local or a parameter). Class-scoped declarations don't count: a
// local shadowing a field is legal, a local re-declaring a local is not.
func (st *ScopeTable) DeclaredInSubroutine(name string) bool {
	if _, _, found := st.local.Resolve(name); found {
		return true
	}
	_, _, found := st.parameter.Resolve(name)
	return found
}

// Registers a new Variable in the scope matching its VarType, returning the
// dense slot it was assigned within that namespace.
func (st *ScopeTable) RegisterVariable(new Variable) uint16 {
	switch new.VarType {
	case Local:
		return st.local.Add(new)
	case Field:
		return st.field.Add(new)
	case Parameter:
		return st.parameter.Add(new)
	case Static:
		return st.static.Add(new)
	default:
		panic(fmt.Sprintf("unreachable: unknown VarType '%s'", new.VarType))
	}
}

// Resolves a variable name against every visible namespace, subroutine scope
// first ('local' then 'parameter') and class scope second ('field' then
// 'static'), matching Jack's shadowing rules: a subroutine's own locals and
// parameters hide a class field or static of the same name.
func (st *ScopeTable) ResolveVariable(name string) (uint16, Variable, error) {
	scopes := []*Scope{&st.local, &st.parameter, &st.field, &st.static}

	for _, scope := range scopes {
		if slot, entry, found := scope.Resolve(name); found {
			return slot, entry, nil
		}
	}

	return 0, Variable{}, fmt.Errorf("variable '%s' undeclared, not found in any scope", name)
}
