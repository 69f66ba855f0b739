package mem

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// buffer is the tagged union of element storage; only the slice matching typ
// is populated.
type buffer struct {
	typ    DataType
	ints   []int64
	floats []float64
	bools  []bool
	strs   []string
}

func (b buffer) len() int {
	switch b.typ {
	case Int64:
		return len(b.ints)
	case Float64:
		return len(b.floats)
	case Bool:
		return len(b.bools)
	case String:
		return len(b.strs)
	}
	return 0
}

func makeBuffer(t DataType, n int) buffer {
	b := buffer{typ: t}
	switch t {
	case Int64:
		b.ints = make([]int64, n)
	case Float64:
		b.floats = make([]float64, n)
	case Bool:
		b.bools = make([]bool, n)
	case String:
		b.strs = make([]string, n)
	default:
		b.typ = Void
	}
	return b
}

// Container holds one flattened array of a single element type, a scalar
// window into another container's buffer, or an alias of another container.
//
// Every accessor resolves through the alias root, and every mutation of the
// data, size, lengths or offset lands on that root; the fields of an alias
// itself are dead until Unalias.
type Container struct {
	buf     buffer
	size    int
	lengths []int
	offset  int
	root    *Container
}

// NewScalar returns a rank-0 container of type t holding the zero value.
func NewScalar(t DataType) *Container {
	var c Container
	c.Alloc(t)
	return &c
}

// NewArray returns a zero-filled container of type t with the given lengths.
func NewArray(t DataType, lengths ...int) *Container {
	var c Container
	c.Alloc(t, lengths...)
	return &c
}

// Int64Scalar returns a new scalar container holding v.
func Int64Scalar(v int64) *Container {
	return &Container{buf: buffer{typ: Int64, ints: []int64{v}}, size: 1}
}

// Float64Scalar returns a new scalar container holding v.
func Float64Scalar(v float64) *Container {
	return &Container{buf: buffer{typ: Float64, floats: []float64{v}}, size: 1}
}

// BoolScalar returns a new scalar container holding v.
func BoolScalar(v bool) *Container {
	return &Container{buf: buffer{typ: Bool, bools: []bool{v}}, size: 1}
}

// StringScalar returns a new scalar container holding v.
func StringScalar(v string) *Container {
	return &Container{buf: buffer{typ: String, strs: []string{v}}, size: 1}
}

// Int64Array returns a new rank-1 container holding vs; the slice is shared.
func Int64Array(vs ...int64) *Container {
	return &Container{buf: buffer{typ: Int64, ints: vs}, size: len(vs), lengths: []int{len(vs)}}
}

// Float64Array returns a new rank-1 container holding vs; the slice is shared.
func Float64Array(vs ...float64) *Container {
	return &Container{buf: buffer{typ: Float64, floats: vs}, size: len(vs), lengths: []int{len(vs)}}
}

// BoolArray returns a new rank-1 container holding vs; the slice is shared.
func BoolArray(vs ...bool) *Container {
	return &Container{buf: buffer{typ: Bool, bools: vs}, size: len(vs), lengths: []int{len(vs)}}
}

// StringArray returns a new rank-1 container holding vs; the slice is shared.
func StringArray(vs ...string) *Container {
	return &Container{buf: buffer{typ: String, strs: vs}, size: len(vs), lengths: []int{len(vs)}}
}

func (c *Container) owner() *Container {
	for c.root != nil {
		c = c.root
	}
	return c
}

// Root returns the data owning container at the end of c's alias chain.
func (c *Container) Root() *Container { return c.owner() }

// IsAlias returns true if c currently delegates to another container.
func (c *Container) IsAlias() bool { return c.root != nil }

// Alias attaches c to target's alias root. Aliasing onto c's own root is a
// no-op so that chains never loop.
func (c *Container) Alias(target *Container) {
	root := target.owner()
	if root == c {
		return
	}
	c.root = root
}

// Unalias detaches c from its alias root; c's own (stale) fields become live
// again.
func (c *Container) Unalias() { c.root = nil }

// Type returns the element type, Void for an empty container.
func (c *Container) Type() DataType { return c.owner().buf.typ }

// IsEmpty returns true if no data has been allocated.
func (c *Container) IsEmpty() bool { return c.owner().buf.typ == Void }

// Size returns the logical element count.
func (c *Container) Size() int { return c.owner().size }

// Rank returns the number of dimensions, 0 for scalars.
func (c *Container) Rank() int { return len(c.owner().lengths) }

// Lengths returns the per-dimension extents; callers must not modify it.
func (c *Container) Lengths() []int { return c.owner().lengths }

// Offset returns the index of the first logical element inside the buffer.
func (c *Container) Offset() int { return c.owner().offset }

// Int64s returns the whole int64 buffer; the logical data starts at Offset.
func (c *Container) Int64s() []int64 { return c.typed(Int64, "int64s").ints }

// Float64s returns the whole float64 buffer; the logical data starts at Offset.
func (c *Container) Float64s() []float64 { return c.typed(Float64, "float64s").floats }

// Bools returns the whole bool buffer; the logical data starts at Offset.
func (c *Container) Bools() []bool { return c.typed(Bool, "bools").bools }

// Strings returns the whole string buffer; the logical data starts at Offset.
func (c *Container) Strings() []string { return c.typed(String, "strings").strs }

func (c *Container) typed(t DataType, op string) *buffer {
	o := c.owner()
	if o.buf.typ != t {
		fault(op, NoOperand, "container holds %v", o.buf.typ)
	}
	return &o.buf
}

func (c *Container) scalarIndex(t DataType, op string) (*buffer, int) {
	o := c.owner()
	if o.buf.typ != t {
		fault(op, NoOperand, "container holds %v", o.buf.typ)
	}
	if o.offset >= o.buf.len() {
		fault(op, NoOperand, "offset %v outside buffer of %v", o.offset, o.buf.len())
	}
	return &o.buf, o.offset
}

// Int64 returns the first logical element of an int container.
func (c *Container) Int64() int64 {
	b, i := c.scalarIndex(Int64, "int64")
	return b.ints[i]
}

// Float64 returns the first logical element of a float container.
func (c *Container) Float64() float64 {
	b, i := c.scalarIndex(Float64, "float64")
	return b.floats[i]
}

// Bool returns the first logical element of a bool container.
func (c *Container) Bool() bool {
	b, i := c.scalarIndex(Bool, "bool")
	return b.bools[i]
}

// Str returns the first logical element of a string container.
func (c *Container) Str() string {
	b, i := c.scalarIndex(String, "string")
	return b.strs[i]
}

// SetInt64 stores v at the first logical element, allocating a scalar if c is
// empty.
func (c *Container) SetInt64(v int64) {
	if c.IsEmpty() {
		c.owner().setData(buffer{typ: Int64, ints: []int64{v}}, 0, nil)
		return
	}
	b, i := c.scalarIndex(Int64, "set int64")
	b.ints[i] = v
}

// SetFloat64 stores v at the first logical element, allocating a scalar if c
// is empty.
func (c *Container) SetFloat64(v float64) {
	if c.IsEmpty() {
		c.owner().setData(buffer{typ: Float64, floats: []float64{v}}, 0, nil)
		return
	}
	b, i := c.scalarIndex(Float64, "set float64")
	b.floats[i] = v
}

// SetBool stores v at the first logical element, allocating a scalar if c is
// empty.
func (c *Container) SetBool(v bool) {
	if c.IsEmpty() {
		c.owner().setData(buffer{typ: Bool, bools: []bool{v}}, 0, nil)
		return
	}
	b, i := c.scalarIndex(Bool, "set bool")
	b.bools[i] = v
}

// SetStr stores v at the first logical element, allocating a scalar if c
// is empty.
func (c *Container) SetStr(v string) {
	if c.IsEmpty() {
		c.owner().setData(buffer{typ: String, strs: []string{v}}, 0, nil)
		return
	}
	b, i := c.scalarIndex(String, "set string")
	b.strs[i] = v
}

// SetInt64s replaces c's data with vs shaped by lengths (nil for a scalar).
func (c *Container) SetInt64s(vs []int64, lengths ...int) {
	c.owner().setData(buffer{typ: Int64, ints: vs}, 0, lengths)
}

// SetFloat64s replaces c's data with vs shaped by lengths (nil for a scalar).
func (c *Container) SetFloat64s(vs []float64, lengths ...int) {
	c.owner().setData(buffer{typ: Float64, floats: vs}, 0, lengths)
}

// SetBools replaces c's data with vs shaped by lengths (nil for a scalar).
func (c *Container) SetBools(vs []bool, lengths ...int) {
	c.owner().setData(buffer{typ: Bool, bools: vs}, 0, lengths)
}

// SetStrings replaces c's data with vs shaped by lengths (nil for a scalar).
func (c *Container) SetStrings(vs []string, lengths ...int) {
	c.owner().setData(buffer{typ: String, strs: vs}, 0, lengths)
}

func (c *Container) setData(buf buffer, offset int, lengths []int) {
	size := 1
	for _, n := range lengths {
		size *= n
	}
	if offset+size > buf.len() {
		fault("set data", NoOperand, "%v elements at offset %v exceed buffer of %v", size, offset, buf.len())
	}
	c.buf = buf
	c.offset = offset
	c.size = size
	c.lengths = slices.Clone(lengths)
}

// Alloc shapes c's root as a zero-filled array of type t with the given
// lengths (none for a scalar). A root that already has exactly that type and
// shape keeps its buffer and contents.
func (c *Container) Alloc(t DataType, lengths ...int) {
	o := c.owner()
	if o.buf.typ == t && o.offset == 0 && slices.Equal(o.lengths, lengths) && o.buf.len() == o.size {
		return
	}
	size := 1
	for _, n := range lengths {
		if n < 0 {
			fault("alloc", NoOperand, "negative length %v", n)
		}
		size *= n
	}
	o.setData(makeBuffer(t, size), 0, lengths)
}

// Clone returns a new root container holding a copy of c's data and shape.
func (c *Container) Clone() *Container {
	o := c.owner()
	if o.buf.typ == Void {
		return &Container{}
	}
	cp := NewArray(o.buf.typ, o.lengths...)
	lo, hi := o.offset, o.offset+o.size
	switch o.buf.typ {
	case Int64:
		copy(cp.buf.ints, o.buf.ints[lo:hi])
	case Float64:
		copy(cp.buf.floats, o.buf.floats[lo:hi])
	case Bool:
		copy(cp.buf.bools, o.buf.bools[lo:hi])
	case String:
		copy(cp.buf.strs, o.buf.strs[lo:hi])
	}
	return cp
}

// SetElementView turns c's root into a scalar window onto the element at the
// given flattened index of array's data; both then share one buffer.
func (c *Container) SetElementView(array *Container, index int) {
	a := array.owner()
	if index < 0 || index >= a.size {
		fault("element view", NoOperand, "index %v outside size %v", index, a.size)
	}
	c.owner().setData(a.buf, a.offset+index, nil)
}

// Free drops c's alias link and data, leaving it empty.
func (c *Container) Free() {
	*c = Container{}
}

// Format renders a debug description of the container, e.g. "int[3]{1 2 3}"
// or "alias->float(2.5)"; strings are quoted in immediate literal syntax.
func (c *Container) Format(f fmt.State, verb rune) {
	if c == nil {
		fmt.Fprint(f, "<nil>")
		return
	}
	if c.root != nil {
		fmt.Fprint(f, "alias->")
	}
	o := c.owner()
	if o.buf.typ == Void {
		fmt.Fprint(f, "void")
		return
	}
	var sb strings.Builder
	sb.WriteString(o.buf.typ.String())
	for _, n := range o.lengths {
		fmt.Fprintf(&sb, "[%d]", n)
	}
	if len(o.lengths) == 0 {
		sb.WriteByte('(')
	} else {
		sb.WriteByte('{')
	}
	for i := 0; i < o.size; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		j := o.offset + i
		switch o.buf.typ {
		case Int64:
			fmt.Fprint(&sb, o.buf.ints[j])
		case Float64:
			fmt.Fprint(&sb, o.buf.floats[j])
		case Bool:
			fmt.Fprint(&sb, o.buf.bools[j])
		case String:
			sb.WriteString(QuoteString(o.buf.strs[j]))
		}
	}
	if len(o.lengths) == 0 {
		sb.WriteByte(')')
	} else {
		sb.WriteByte('}')
	}
	f.Write([]byte(sb.String()))
}
