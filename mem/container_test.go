package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_alias(t *testing.T) {
	a := Int64Array(1, 2, 3)
	var b, c Container
	b.Alias(a)
	c.Alias(&b)

	assert.True(t, c.IsAlias())
	assert.Same(t, a, c.Root(), "alias walks to the root")
	assert.Equal(t, Int64, c.Type())
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []int{3}, c.Lengths())

	c.Int64s()[1] = 20
	assert.Equal(t, []int64{1, 20, 3}, a.Value())

	t.Run("realloc through alias", func(t *testing.T) {
		c.SetInt64s([]int64{7, 8, 9, 10, 11}, 5)
		assert.Equal(t, []int64{7, 8, 9, 10, 11}, a.Value())
		assert.Equal(t, 5, b.Size())
		assert.Equal(t, []int{5}, b.Lengths())
	})

	t.Run("unalias", func(t *testing.T) {
		c.Unalias()
		assert.False(t, c.IsAlias())
		assert.True(t, c.IsEmpty(), "local fields stay dead while aliased")
		assert.Equal(t, 5, b.Size())
	})

	t.Run("self alias", func(t *testing.T) {
		var d Container
		d.Alias(a)
		a.Alias(&d)
		assert.False(t, a.IsAlias(), "aliasing onto own root is a no-op")
		assert.Same(t, a, d.Root())
	})
}

func TestContainer_rootMovesLater(t *testing.T) {
	x := Int64Scalar(1)
	y := Int64Scalar(2)
	var p Container
	p.Alias(x)
	x.Alias(y)
	assert.Equal(t, int64(2), p.Int64(), "accessors resolve the chain on every access")
	p.SetInt64(5)
	assert.Equal(t, int64(5), y.Int64())
}

func TestContainer_elementView(t *testing.T) {
	arr := Float64Array(0.5, 1.5, 2.5)
	var el Container
	el.SetElementView(arr, 2)
	assert.Equal(t, 0, el.Rank())
	assert.Equal(t, 1, el.Size())
	assert.Equal(t, 2, el.Offset())
	assert.Equal(t, 2.5, el.Float64())

	el.SetFloat64(9)
	assert.Equal(t, []float64{0.5, 1.5, 9}, arr.Value())

	assert.Panics(t, func() { el.SetElementView(arr, 3) })
}

func TestContainer_alloc(t *testing.T) {
	var c Container
	c.Alloc(Int64, 2, 3)
	require.Equal(t, 6, c.Size())
	assert.Equal(t, 2, c.Rank())
	c.Int64s()[4] = 42

	c.Alloc(Int64, 2, 3)
	assert.Equal(t, int64(42), c.Int64s()[4], "same shape keeps data")

	c.Alloc(Int64, 6)
	assert.Equal(t, int64(0), c.Int64s()[4], "new shape starts zeroed")

	c.Alloc(Bool)
	assert.Equal(t, Bool, c.Type())
	assert.Equal(t, false, c.Value())
}

func TestContainer_scalarSetters(t *testing.T) {
	var c Container
	c.SetStr("hi")
	assert.Equal(t, "hi", c.Str())
	assert.Panics(t, func() { c.SetInt64(1) }, "type confusion is a fault")
	assert.Panics(t, func() { c.Bool() })

	c.Free()
	assert.True(t, c.IsEmpty())
	c.SetBool(true)
	assert.True(t, c.Bool())
}

func TestContainer_values(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   interface{}
		typ  DataType
		len  []int
	}{
		{"int", 7, Int64, nil},
		{"float", 1.25, Float64, nil},
		{"bool", true, Bool, nil},
		{"string", "s", String, nil},
		{"ints", []int64{1, 2}, Int64, []int{2}},
		{"matrix", [][]float64{{1, 2, 3}, {4, 5, 6}}, Float64, []int{2, 3}},
		{"strings", []string{"a", "b", "c"}, String, []int{3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := FromValue(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, c.Type())
			assert.Equal(t, len(tc.len), c.Rank())
			if tc.len != nil {
				assert.Equal(t, tc.len, c.Lengths())
			}
			want := tc.in
			if n, ok := want.(int); ok {
				want = int64(n)
			}
			assert.Equal(t, want, c.Value())
		})
	}

	_, err := FromValue([][]int64{{1}, {1, 2}})
	assert.Error(t, err)
	_, err = FromValue(struct{}{})
	assert.Error(t, err)

	var empty Container
	assert.Nil(t, empty.Value())
}

func TestContainer_format(t *testing.T) {
	var al Container
	al.Alias(Int64Array(1, 2))
	assert.Equal(t, "alias->int[2]{1 2}", fmt.Sprint(&al))
	assert.Equal(t, `string("x")`, fmt.Sprint(StringScalar("x")))
	assert.Equal(t, `string[2]{"a\tb" "é"}`, fmt.Sprint(StringArray("a\tb", "é")))
	assert.Equal(t, "void", fmt.Sprint(&Container{}))
}

func TestContainer_clone(t *testing.T) {
	arr := Int64Array(1, 2, 3)
	var view Container
	view.SetElementView(arr, 1)
	cp := view.Clone()
	assert.Equal(t, int64(2), cp.Value())
	cp.SetInt64(9)
	assert.Equal(t, []int64{1, 2, 3}, arr.Value(), "the copy shares no buffer")

	var al Container
	al.Alias(StringArray("a", "b"))
	assert.Equal(t, []string{"a", "b"}, al.Clone().Value())
	assert.False(t, al.Clone().IsAlias())
	assert.True(t, (&Container{}).Clone().IsEmpty())
}
