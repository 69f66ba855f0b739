package proc

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/jcorbin/vril/mem"
)

// window returns the logical elements of c inside its whole buffer.
func window[E any](buf []E, c *mem.Container) []E {
	off := c.Offset()
	return buf[off : off+c.Size()]
}

func unsupported(c *mem.Container, as mem.DataType) error {
	return detailf(ErrUnsupportedType, "%v operand used as %v", Shape(c), as)
}

// Int64s returns the logical elements of an int container.
func Int64s(c *mem.Container) ([]int64, error) {
	if c.Type() != mem.Int64 {
		return nil, unsupported(c, mem.Int64)
	}
	return window(c.Int64s(), c), nil
}

// Float64s returns the logical elements of c as floats, widening ints into a
// new slice.
func Float64s(c *mem.Container) ([]float64, error) {
	switch c.Type() {
	case mem.Float64:
		return window(c.Float64s(), c), nil
	case mem.Int64:
		ints := window(c.Int64s(), c)
		fs := make([]float64, len(ints))
		for i, v := range ints {
			fs[i] = float64(v)
		}
		return fs, nil
	}
	return nil, unsupported(c, mem.Float64)
}

// Bools returns the logical elements of a bool container.
func Bools(c *mem.Container) ([]bool, error) {
	if c.Type() != mem.Bool {
		return nil, unsupported(c, mem.Bool)
	}
	return window(c.Bools(), c), nil
}

// Strings returns the logical elements of c in their textual form.
func Strings(c *mem.Container) ([]string, error) {
	switch c.Type() {
	case mem.String:
		return window(c.Strings(), c), nil
	case mem.Int64:
		return convertAll(window(c.Int64s(), c), FormatInt), nil
	case mem.Float64:
		return convertAll(window(c.Float64s(), c), FormatFloat), nil
	case mem.Bool:
		return convertAll(window(c.Bools(), c), strconv.FormatBool), nil
	}
	return nil, unsupported(c, mem.String)
}

func convertAll[E, R any](vs []E, f func(E) R) []R {
	rs := make([]R, len(vs))
	for i, v := range vs {
		rs[i] = f(v)
	}
	return rs
}

// FormatInt is the textual form of an int element.
func FormatInt(v int64) string { return strconv.FormatInt(v, 10) }

// FormatFloat is the textual form of a float element: the shortest digits
// that round trip, as plain decimal with at least one fraction digit for
// magnitudes in [1e-3, 1e7) and as "d.dddEn" otherwise; e.g. "2.0", "0.001",
// "1.0E7", "1.5E-4", "Infinity".
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if abs := math.Abs(v); abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(n)
}

// FloatToInt truncates toward zero, saturating at the int range; NaN is 0.
func FloatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func parseCastInt(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, detailf(ErrCastValue, "%q to int", s)
	}
	return FloatToInt(f), nil
}

func parseCastFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, detailf(ErrCastValue, "%q to float", s)
	}
	return f, nil
}

// broadcastShape returns the result lengths of an elementwise operation: the
// lengths shared by every vector operand, nil if all are scalars.
func broadcastShape(cs ...*mem.Container) ([]int, error) {
	var (
		lengths []int
		from    *mem.Container
	)
	for _, c := range cs {
		if c.Rank() == 0 {
			continue
		}
		if from == nil {
			lengths, from = c.Lengths(), c
		} else if !slices.Equal(lengths, c.Lengths()) {
			return nil, detailf(ErrLengthMismatch, "%v and %v", Shape(from), Shape(c))
		}
	}
	return slices.Clone(lengths), nil
}

// prepare shapes dst to receive a result of type t and the given lengths,
// reallocating its alias root only when type or shape differ.
func prepare(dst *mem.Container, t mem.DataType, lengths []int) {
	if dst.Type() != t || !slices.Equal(dst.Lengths(), lengths) {
		dst.Alloc(t, lengths...)
	}
}

// binary stores f(a[i], b[i]) into out, broadcasting either operand when it
// holds a single element for a longer out. Scalar operands are read once
// before out is written, so out may share storage with either.
func binary[E, R any](out []R, a, b []E, f func(E, E) R) {
	switch {
	case len(a) == len(out) && len(b) == len(out):
		for i := range out {
			out[i] = f(a[i], b[i])
		}
	case len(a) == len(out):
		y := b[0]
		for i := range out {
			out[i] = f(a[i], y)
		}
	case len(b) == len(out):
		x := a[0]
		for i := range out {
			out[i] = f(x, b[i])
		}
	default:
		x, y := a[0], b[0]
		for i := range out {
			out[i] = f(x, y)
		}
	}
}

func unary[E, R any](out []R, a []E, f func(E) R) {
	if len(a) == len(out) {
		for i := range out {
			out[i] = f(a[i])
		}
		return
	}
	x := a[0]
	for i := range out {
		out[i] = f(x)
	}
}
