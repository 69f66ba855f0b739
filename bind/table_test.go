package bind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/mem"
)

func TestTable_indexes(t *testing.T) {
	var tab Table
	assert.Equal(t, uint64(0), tab.Version())

	x := mem.Int64Scalar(1)
	i, err := tab.AddVariable(Variable{Name: "x", Value: x})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = tab.AddVariable(Variable{Name: "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	i, err = tab.AddFunction(Function{Name: "print"})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, uint64(3), tab.Version())

	_, err = tab.AddVariable(Variable{Name: "x"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	_, err = tab.AddFunction(Function{Name: "print"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, uint64(3), tab.Version(), "failed additions do not change the table")

	i, ok := tab.GlobalIndex("_y")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = tab.GlobalIndex("_print")
	assert.False(t, ok)
	i, ok = tab.FunctionIndex("_print")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	globals := tab.Globals()
	require.Len(t, globals, 2)
	assert.Same(t, x, globals[0], "globals are bound by identity")
	assert.True(t, globals[1].IsEmpty())

	z := mem.Float64Scalar(2.5)
	require.NoError(t, tab.Set("x", z))
	assert.Same(t, z, tab.Globals()[0])
	assert.True(t, errors.Is(tab.Set("nope", z), ErrNoBinding))
	assert.Equal(t, uint64(3), tab.Version(), "replacing a value keeps the layout")
}

func TestTable_CallFunction(t *testing.T) {
	var tab Table
	_, err := tab.AddFunction(Function{
		Name: "sum",
		Call: func(args []*mem.Container, ret *mem.Container) error {
			var sum int64
			for _, arg := range args {
				sum += arg.Int64()
			}
			ret.SetInt64(sum)
			return nil
		},
	})
	require.NoError(t, err)
	_, err = tab.AddFunction(Function{Name: "stub"})
	require.NoError(t, err)

	var ret mem.Container
	require.NoError(t, tab.CallFunction(0, []*mem.Container{mem.Int64Scalar(2), mem.Int64Scalar(3)}, &ret))
	assert.Equal(t, int64(5), ret.Int64())

	assert.True(t, errors.Is(tab.CallFunction(1, nil, &ret), ErrNoBinding))
	assert.True(t, errors.Is(tab.CallFunction(2, nil, &ret), ErrNoBinding))

	var nilTab *Table
	assert.True(t, errors.Is(nilTab.CallFunction(0, nil, &ret), ErrNoBinding))
}

func TestTable_lifecycle(t *testing.T) {
	var (
		tab     Table
		log     []string
		written []interface{}
	)
	hooks := func(name string) Hooks {
		return Hooks{
			Activate:   func() error { log = append(log, "+"+name); return nil },
			Deactivate: func() error { log = append(log, "-"+name); return nil },
		}
	}
	_, err := tab.AddVariable(Variable{
		Name:  "a",
		Value: mem.Int64Scalar(7),
		WriteBack: func(value *mem.Container) error {
			written = append(written, value.Value())
			return nil
		},
		Hooks: hooks("a"),
	})
	require.NoError(t, err)
	_, err = tab.AddVariable(Variable{
		Name:      "b",
		Value:     mem.Int64Scalar(8),
		ReadOnly:  true,
		WriteBack: func(*mem.Container) error { panic("read only variables are never written back") },
	})
	require.NoError(t, err)
	_, err = tab.AddFunction(Function{Name: "f", Hooks: hooks("f")})
	require.NoError(t, err)

	assert.False(t, tab.IsActive())
	require.NoError(t, tab.Activate())
	assert.True(t, tab.IsActive())
	require.NoError(t, tab.WriteBack())
	require.NoError(t, tab.Deactivate())
	assert.False(t, tab.IsActive())

	assert.Equal(t, []string{"+a", "+f", "-a", "-f"}, log)
	assert.Equal(t, []interface{}{int64(7)}, written)
}

func TestTable_hookErrors(t *testing.T) {
	boom := errors.New("boom")
	var (
		tab   Table
		calls int
	)
	_, err := tab.AddFunction(Function{Name: "bad", Hooks: Hooks{
		Activate:   func() error { return boom },
		Deactivate: func() error { calls++; return boom },
	}})
	require.NoError(t, err)
	_, err = tab.AddFunction(Function{Name: "good", Hooks: Hooks{
		Deactivate: func() error { calls++; return nil },
	}})
	require.NoError(t, err)

	err = tab.Activate()
	assert.True(t, errors.Is(err, boom))
	assert.EqualError(t, err, "activating bad: boom")
	assert.False(t, tab.IsActive())

	err = tab.Deactivate()
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 2, calls, "every deactivation hook runs")
}
