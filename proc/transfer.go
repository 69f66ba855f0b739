package proc

import (
	"github.com/jcorbin/vril/mem"
)

func alloc(t mem.DataType, dst *mem.Container, lens []*mem.Container) error {
	if !t.IsConcrete() {
		return detailf(ErrUnsupportedType, "allocation of %v", t)
	}
	lengths := make([]int, len(lens))
	for i, l := range lens {
		if l.Type() != mem.Int64 || l.Size() != 1 {
			return detailf(ErrArrayLength, "length %v is not an int scalar", Shape(l))
		}
		n := l.Int64()
		if n < 0 {
			return detailf(ErrArrayLength, "negative length %v", n)
		}
		lengths[i] = int(n)
	}
	dst.Alloc(t, lengths...)
	return nil
}

// allocLike allocates dst with the lengths of like.
func allocLike(t mem.DataType, dst, like *mem.Container) error {
	if !t.IsConcrete() {
		t = like.Type()
	}
	if !t.IsConcrete() {
		return detailf(ErrUnsupportedType, "allocation of %v", t)
	}
	dst.Alloc(t, like.Lengths()...)
	return nil
}

// mov assigns src to dst as type t. An allocated scalar destination keeps its
// rank and accepts only single element sources; any other destination takes
// on the shape of src.
func mov(t mem.DataType, dst, src *mem.Container) error {
	if src.IsEmpty() {
		return detailf(ErrUnsupportedType, "assignment from void")
	}
	if !t.IsConcrete() {
		t = src.Type()
	}
	if !dst.IsEmpty() && dst.Rank() == 0 {
		if src.Size() != 1 {
			return detailf(ErrScalarSize, "%v into a scalar", Shape(src))
		}
		return assign(t, dst, src, nil)
	}
	return assign(t, dst, src, src.Lengths())
}

// assign converts the elements of src to t and stores them into dst shaped by
// lengths.
func assign(t mem.DataType, dst, src *mem.Container, lengths []int) error {
	switch t {
	case mem.Int64:
		x, err := Int64s(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		copy(window(dst.Int64s(), dst), x)
	case mem.Float64:
		x, err := Float64s(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		copy(window(dst.Float64s(), dst), x)
	case mem.Bool:
		x, err := Bools(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		copy(window(dst.Bools(), dst), x)
	case mem.String:
		x, err := Strings(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		copy(window(dst.Strings(), dst), x)
	default:
		return detailf(ErrUnsupportedType, "assignment of %v", t)
	}
	return nil
}

// cast converts src elementwise to t. An allocated destination must already
// have the rank of the source.
func cast(t mem.DataType, dst, src *mem.Container) error {
	if src.IsEmpty() {
		return detailf(ErrUnsupportedType, "cast from void")
	}
	if !dst.IsEmpty() && dst.Rank() != src.Rank() {
		return detailf(ErrRankMismatch, "cast %v into %v", Shape(src), Shape(dst))
	}
	lengths := src.Lengths()
	from := src.Type()
	switch t {
	case mem.Int64:
		var out []int64
		switch from {
		case mem.Int64:
			x, _ := Int64s(src)
			out = x
		case mem.Float64:
			out = convertAll(window(src.Float64s(), src), FloatToInt)
		case mem.String:
			strs := window(src.Strings(), src)
			out = make([]int64, len(strs))
			for i, s := range strs {
				v, err := parseCastInt(s)
				if err != nil {
					return err
				}
				out[i] = v
			}
		default:
			return detailf(ErrUnsupportedType, "cast %v to int", from)
		}
		prepare(dst, t, lengths)
		copy(window(dst.Int64s(), dst), out)

	case mem.Float64:
		var out []float64
		switch from {
		case mem.Int64, mem.Float64:
			out, _ = Float64s(src)
		case mem.String:
			strs := window(src.Strings(), src)
			out = make([]float64, len(strs))
			for i, s := range strs {
				v, err := parseCastFloat(s)
				if err != nil {
					return err
				}
				out[i] = v
			}
		default:
			return detailf(ErrUnsupportedType, "cast %v to float", from)
		}
		prepare(dst, t, lengths)
		copy(window(dst.Float64s(), dst), out)

	case mem.Bool:
		if from != mem.Bool {
			return detailf(ErrUnsupportedType, "cast %v to bool", from)
		}
		x, _ := Bools(src)
		prepare(dst, t, lengths)
		copy(window(dst.Bools(), dst), x)

	case mem.String:
		x, err := Strings(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		copy(window(dst.Strings(), dst), x)

	default:
		return detailf(ErrUnsupportedType, "cast to %v", t)
	}
	return nil
}

// fill stores the single element of src into every element of dst.
func fill(t mem.DataType, dst, src *mem.Container) error {
	if dst.IsEmpty() {
		return detailf(ErrUnsupportedType, "fill of void")
	}
	if src.Size() != 1 {
		return detailf(ErrScalarSize, "fill from %v", Shape(src))
	}
	if !t.IsConcrete() {
		t = dst.Type()
	}
	lengths := dst.Lengths()
	switch t {
	case mem.Int64:
		x, err := Int64s(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		fillAll(window(dst.Int64s(), dst), x[0])
	case mem.Float64:
		x, err := Float64s(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		fillAll(window(dst.Float64s(), dst), x[0])
	case mem.Bool:
		x, err := Bools(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		fillAll(window(dst.Bools(), dst), x[0])
	case mem.String:
		x, err := Strings(src)
		if err != nil {
			return err
		}
		prepare(dst, t, lengths)
		fillAll(window(dst.Strings(), dst), x[0])
	default:
		return detailf(ErrUnsupportedType, "fill of %v", t)
	}
	return nil
}

func fillAll[E any](out []E, v E) {
	for i := range out {
		out[i] = v
	}
}

// FlatIndex resolves one int scalar index per dimension of array into a
// row-major element index.
func FlatIndex(array *mem.Container, index []*mem.Container) (int, error) {
	lengths := array.Lengths()
	if len(index) != len(lengths) {
		return 0, detailf(ErrRankMismatch, "%d indices into %v", len(index), Shape(array))
	}
	flat := 0
	for d, c := range index {
		if c.Type() != mem.Int64 || c.Size() != 1 {
			return 0, detailf(ErrUnsupportedType, "index %v is not an int scalar", Shape(c))
		}
		i := c.Int64()
		if i < 0 || i >= int64(lengths[d]) {
			return 0, detailf(ErrIndexOutOfRange, "index %v outside [0, %v)", i, lengths[d])
		}
		flat = flat*lengths[d] + int(i)
	}
	return flat, nil
}

func movelm(t mem.DataType, dst, array *mem.Container, index []*mem.Container) error {
	i, err := FlatIndex(array, index)
	if err != nil {
		return err
	}
	var elem mem.Container
	elem.SetElementView(array, i)
	if !t.IsConcrete() {
		t = elem.Type()
	}
	return assign(t, dst, &elem, nil)
}

func refelm(dst, array *mem.Container, index []*mem.Container) error {
	i, err := FlatIndex(array, index)
	if err != nil {
		return err
	}
	dst.SetElementView(array, i)
	return nil
}
