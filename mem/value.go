package mem

import (
	"fmt"
	"reflect"
)

var elemTypes = [...]reflect.Type{
	Int64:   reflect.TypeOf(int64(0)),
	Float64: reflect.TypeOf(float64(0)),
	Bool:    reflect.TypeOf(false),
	String:  reflect.TypeOf(""),
}

// Value converts c's logical data to a host value: a scalar becomes int64,
// float64, bool or string, and a rank-n array becomes an n-times nested slice
// of those (e.g. [][]float64). An empty container yields nil.
func (c *Container) Value() interface{} {
	o := c.owner()
	switch o.buf.typ {
	case Int64, Float64, Bool, String:
	default:
		return nil
	}
	if len(o.lengths) == 0 {
		return o.element(0)
	}
	t := elemTypes[o.buf.typ]
	for range o.lengths {
		t = reflect.SliceOf(t)
	}
	v, _ := o.nest(t, 0, 0)
	return v.Interface()
}

func (c *Container) element(i int) interface{} {
	j := c.offset + i
	switch c.buf.typ {
	case Int64:
		return c.buf.ints[j]
	case Float64:
		return c.buf.floats[j]
	case Bool:
		return c.buf.bools[j]
	case String:
		return c.buf.strs[j]
	}
	return nil
}

func (c *Container) nest(t reflect.Type, dim, at int) (reflect.Value, int) {
	n := c.lengths[dim]
	v := reflect.MakeSlice(t, n, n)
	for i := 0; i < n; i++ {
		if dim == len(c.lengths)-1 {
			v.Index(i).Set(reflect.ValueOf(c.element(at)))
			at++
		} else {
			var sub reflect.Value
			sub, at = c.nest(t.Elem(), dim+1, at)
			v.Index(i).Set(sub)
		}
	}
	return v, at
}

// FromValue builds a container from a host value: any Go integer, float, bool
// or string scalar, or a (nested) slice of them. Nested slices must be
// rectangular.
func FromValue(v interface{}) (*Container, error) {
	if c, ok := v.(*Container); ok {
		return c, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return &Container{}, nil
	}

	var lengths []int
	et := rv.Type()
	first := rv
	for et.Kind() == reflect.Slice || et.Kind() == reflect.Array {
		lengths = append(lengths, first.Len())
		if first.Len() > 0 {
			first = first.Index(0)
		}
		et = et.Elem()
	}

	t, ok := hostType(et.Kind())
	if !ok {
		return nil, fmt.Errorf("unsupported host value type %T", v)
	}
	c := &Container{}
	c.Alloc(t, lengths...)
	i := 0
	if err := flatten(rv, lengths, c, &i); err != nil {
		return nil, fmt.Errorf("host value %T: %w", v, err)
	}
	return c, nil
}

func hostType(k reflect.Kind) (DataType, bool) {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return Int64, true
	case reflect.Float32, reflect.Float64:
		return Float64, true
	case reflect.Bool:
		return Bool, true
	case reflect.String:
		return String, true
	}
	return Void, false
}

func flatten(rv reflect.Value, lengths []int, c *Container, i *int) error {
	if len(lengths) > 0 {
		if rv.Len() != lengths[0] {
			return fmt.Errorf("ragged array: length %v, expected %v", rv.Len(), lengths[0])
		}
		for j := 0; j < rv.Len(); j++ {
			if err := flatten(rv.Index(j), lengths[1:], c, i); err != nil {
				return err
			}
		}
		return nil
	}
	b := &c.buf
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.ints[*i] = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		b.ints[*i] = int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		b.floats[*i] = rv.Float()
	case reflect.Bool:
		b.bools[*i] = rv.Bool()
	case reflect.String:
		b.strs[*i] = rv.String()
	}
	*i++
	return nil
}
