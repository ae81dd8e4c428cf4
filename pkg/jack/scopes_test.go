package jack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func TestClassScope(t *testing.T) {
	test := func(st *jack.ScopeTable, lookup string, expectedVar jack.Variable, expectedOffset uint16, fail bool) {
		offset, variable, err := st.ResolveVariable(lookup)
		if fail {
			if err == nil {
				t.Fatalf("expected lookup of '%s' to fail, got %+v", lookup, variable)
			}
			return
		}
		if err != nil {
			t.Fatalf("expected to find %s, got error: %v", lookup, err)
		}
		if variable != expectedVar {
			t.Errorf("expected to find variable '%s', got %+v", lookup, variable)
		}
		if offset != expectedOffset {
			t.Errorf("expected to find offset %d for variable '%s', got '%d'", expectedOffset, lookup, offset)
		}
	}

	t.Run("Without variable shadowing", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")

		st.RegisterVariable(jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String})
		st.RegisterVariable(jack.Variable{Name: "test_field_2", VarType: jack.Field, DataType: jack.Char})
		st.RegisterVariable(jack.Variable{Name: "test_static_2", VarType: jack.Static, DataType: jack.Bool})

		test(st, "test_field", jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int}, 0, false)
		test(st, "test_static", jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String}, 0, false)
		test(st, "test_field_2", jack.Variable{Name: "test_field_2", VarType: jack.Field, DataType: jack.Char}, 1, false)
		test(st, "test_static_2", jack.Variable{Name: "test_static_2", VarType: jack.Static, DataType: jack.Bool}, 1, false)

		test(st, "random1", jack.Variable{}, 0, true)
	})

	t.Run("With an object-typed static", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")

		st.RegisterVariable(jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String})
		st.RegisterVariable(jack.Variable{Name: "test_class", VarType: jack.Static, DataType: jack.Object, ClassName: "AnotherClass"})
		// An object-typed static takes the next static slot like any other, and
		// keeps its class name through resolution.
		st.RegisterVariable(jack.Variable{Name: "test_field_2", VarType: jack.Field, DataType: jack.Char})

		test(st, "test_field", jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int}, 0, false)
		test(st, "test_static", jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String}, 0, false)
		test(st, "test_class", jack.Variable{Name: "test_class", VarType: jack.Static, DataType: jack.Object, ClassName: "AnotherClass"}, 1, false)
		test(st, "test_field_2", jack.Variable{Name: "test_field_2", VarType: jack.Field, DataType: jack.Char}, 1, false)
	})

	t.Run("With scope deallocation", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")

		st.RegisterVariable(jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test_field_2", VarType: jack.Field, DataType: jack.Char})
		st.RegisterVariable(jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String})
		st.RegisterVariable(jack.Variable{Name: "test_static_2", VarType: jack.Static, DataType: jack.Bool})

		test(st, "test_field", jack.Variable{Name: "test_field", VarType: jack.Field, DataType: jack.Int}, 0, false)
		test(st, "test_static", jack.Variable{Name: "test_static", VarType: jack.Static, DataType: jack.String}, 0, false)

		st.PopClassScope()

		// Class scope is fully torn down on exit, including the static
		// namespace: a new class must start its static slots back at 0.
		test(st, "test_field", jack.Variable{}, 0, true)
		test(st, "test_static", jack.Variable{}, 0, true)

		st.PushClassScope("OtherClass")
		st.RegisterVariable(jack.Variable{Name: "other_static", VarType: jack.Static, DataType: jack.Int})
		test(st, "other_static", jack.Variable{Name: "other_static", VarType: jack.Static, DataType: jack.Int}, 0, false)
	})
}

func TestSubroutineScope(t *testing.T) {
	test := func(st *jack.ScopeTable, lookup string, expectedVar jack.Variable, expectedOffset uint16, fail bool) {
		offset, variable, err := st.ResolveVariable(lookup)
		if fail {
			if err == nil {
				t.Fatalf("expected lookup of '%s' to fail, got %+v", lookup, variable)
			}
			return
		}
		if err != nil {
			t.Fatalf("expected to find %s, got error: %v", lookup, err)
		}
		if variable != expectedVar {
			t.Errorf("expected to find variable '%s', got %+v", lookup, variable)
		}
		if offset != expectedOffset {
			t.Errorf("expected to find offset %d for variable '%s', got '%d'", expectedOffset, lookup, offset)
		}
	}

	t.Run("Without variable shadowing", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")
		st.PushSubRoutineScope("TestSubroutine")

		st.RegisterVariable(jack.Variable{Name: "test_local", VarType: jack.Local, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test_parameter", VarType: jack.Parameter, DataType: jack.String})
		st.RegisterVariable(jack.Variable{Name: "test_local_2", VarType: jack.Local, DataType: jack.Char})
		st.RegisterVariable(jack.Variable{Name: "test_parameter_2", VarType: jack.Parameter, DataType: jack.Bool})

		test(st, "test_local", jack.Variable{Name: "test_local", VarType: jack.Local, DataType: jack.Int}, 0, false)
		test(st, "test_parameter", jack.Variable{Name: "test_parameter", VarType: jack.Parameter, DataType: jack.String}, 0, false)
		test(st, "test_local_2", jack.Variable{Name: "test_local_2", VarType: jack.Local, DataType: jack.Char}, 1, false)
		test(st, "test_parameter_2", jack.Variable{Name: "test_parameter_2", VarType: jack.Parameter, DataType: jack.Bool}, 1, false)

		test(st, "random1", jack.Variable{}, 0, true)
	})

	t.Run("With scope deallocation", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")
		st.PushSubRoutineScope("TestSubroutine")

		st.RegisterVariable(jack.Variable{Name: "test_local", VarType: jack.Local, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test_parameter", VarType: jack.Parameter, DataType: jack.String})

		test(st, "test_local", jack.Variable{Name: "test_local", VarType: jack.Local, DataType: jack.Int}, 0, false)
		test(st, "test_parameter", jack.Variable{Name: "test_parameter", VarType: jack.Parameter, DataType: jack.String}, 0, false)

		st.PopSubroutineScope()

		test(st, "test_local", jack.Variable{}, 0, true)
		test(st, "test_parameter", jack.Variable{}, 0, true)
	})

	t.Run("With variable shadowing (subroutine hides class)", func(t *testing.T) {
		st := jack.NewScopeTable()
		st.PushClassScope("TestClass")

		st.RegisterVariable(jack.Variable{Name: "test1", VarType: jack.Field, DataType: jack.Int})
		st.RegisterVariable(jack.Variable{Name: "test2", VarType: jack.Static, DataType: jack.String})

		st.PushSubRoutineScope("TestSubroutine")

		st.RegisterVariable(jack.Variable{Name: "test1", VarType: jack.Local, DataType: jack.Bool})
		st.RegisterVariable(jack.Variable{Name: "test2", VarType: jack.Parameter, DataType: jack.Char})

		test(st, "test1", jack.Variable{Name: "test1", VarType: jack.Local, DataType: jack.Bool}, 0, false)
		test(st, "test2", jack.Variable{Name: "test2", VarType: jack.Parameter, DataType: jack.Char}, 0, false)

		st.PopSubroutineScope()

		test(st, "test1", jack.Variable{Name: "test1", VarType: jack.Field, DataType: jack.Int}, 0, false)
		test(st, "test2", jack.Variable{Name: "test2", VarType: jack.Static, DataType: jack.String}, 0, false)
	})
}

func TestScopeTracking(t *testing.T) {
	test := func(st *jack.ScopeTable, expected string) {
		if scope := st.GetScope(); scope != expected {
			t.Errorf("expected to get scope %s, got %+v", expected, scope)
		}
	}

	t.Run("Basic scope tracking checks", func(t *testing.T) {
		st := jack.NewScopeTable()

		st.PushClassScope("TestClass")
		test(st, "TestClass.static")

		st.PushSubRoutineScope("TestSubroutine")
		test(st, "TestClass.TestSubroutine")

		st.PopSubroutineScope()
		test(st, "TestClass.static")

		st.PopClassScope()
		test(st, "Global")
	})

	t.Run("Class name containing 'static'", func(t *testing.T) {
		// The subroutine scope is built from the class name itself, so a
		// class whose name happens to contain the word 'static' must come
		// through untouched.
		st := jack.NewScopeTable()

		st.PushClassScope("EcstaticCounter")
		test(st, "EcstaticCounter.static")

		st.PushSubRoutineScope("bump")
		test(st, "EcstaticCounter.bump")
	})
}

func TestFieldCount(t *testing.T) {
	st := jack.NewScopeTable()
	st.PushClassScope("TestClass")

	if got := st.FieldCount(); got != 0 {
		t.Fatalf("expected empty class to have 0 fields, got %d", got)
	}

	st.RegisterVariable(jack.Variable{Name: "x", VarType: jack.Field, DataType: jack.Int})
	st.RegisterVariable(jack.Variable{Name: "y", VarType: jack.Field, DataType: jack.Int})
	st.RegisterVariable(jack.Variable{Name: "label", VarType: jack.Static, DataType: jack.String})

	if got := st.FieldCount(); got != 2 {
		t.Fatalf("expected 2 fields, got %d", got)
	}
}
