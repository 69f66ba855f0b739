package proc

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
)

// IntOp returns the int function of an arithmetic opcode; DIV and REM by zero
// must be rejected before calling it.
func IntOp(op asm.Opcode) func(a, b int64) int64 {
	switch op {
	case asm.ADD:
		return func(a, b int64) int64 { return a + b }
	case asm.SUB:
		return func(a, b int64) int64 { return a - b }
	case asm.MUL:
		return func(a, b int64) int64 { return a * b }
	case asm.DIV:
		return func(a, b int64) int64 { return a / b }
	case asm.REM:
		return func(a, b int64) int64 { return a % b }
	}
	return nil
}

// FloatOp returns the float function of an arithmetic opcode.
func FloatOp(op asm.Opcode) func(a, b float64) float64 {
	switch op {
	case asm.ADD:
		return func(a, b float64) float64 { return a + b }
	case asm.SUB:
		return func(a, b float64) float64 { return a - b }
	case asm.MUL:
		return func(a, b float64) float64 { return a * b }
	case asm.DIV:
		return func(a, b float64) float64 { return a / b }
	case asm.REM:
		return math.Mod
	}
	return nil
}

// CompareOp returns the predicate of a comparison opcode.
func CompareOp[E constraints.Ordered](op asm.Opcode) func(a, b E) bool {
	switch op {
	case asm.EQ:
		return func(a, b E) bool { return a == b }
	case asm.NEQ:
		return func(a, b E) bool { return a != b }
	case asm.GT:
		return func(a, b E) bool { return a > b }
	case asm.LT:
		return func(a, b E) bool { return a < b }
	case asm.GEQ:
		return func(a, b E) bool { return a >= b }
	case asm.LEQ:
		return func(a, b E) bool { return a <= b }
	}
	return nil
}

// LogicOp returns the function of ANDM or ORM.
func LogicOp(op asm.Opcode) func(a, b bool) bool {
	if op == asm.ORM {
		return func(a, b bool) bool { return a || b }
	}
	return func(a, b bool) bool { return a && b }
}

// CheckDivisor reports division by zero for int DIV and REM.
func CheckDivisor(op asm.Opcode, divisors []int64) error {
	if op != asm.DIV && op != asm.REM {
		return nil
	}
	for _, d := range divisors {
		if d == 0 {
			return detailf(ErrDivideByZero, "%v by int zero", op)
		}
	}
	return nil
}

func arith(op asm.Opcode, t mem.DataType, dst, a, b *mem.Container) error {
	lengths, err := broadcastShape(a, b)
	if err != nil {
		return err
	}
	switch t {
	case mem.Int64:
		x, err := Int64s(a)
		if err != nil {
			return err
		}
		y, err := Int64s(b)
		if err != nil {
			return err
		}
		if err := CheckDivisor(op, y); err != nil {
			return err
		}
		prepare(dst, mem.Int64, lengths)
		binary(window(dst.Int64s(), dst), x, y, IntOp(op))

	case mem.Float64:
		x, err := Float64s(a)
		if err != nil {
			return err
		}
		y, err := Float64s(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.Float64, lengths)
		binary(window(dst.Float64s(), dst), x, y, FloatOp(op))

	case mem.String:
		if op != asm.ADD {
			return detailf(ErrUnsupportedType, "%v on strings", op)
		}
		x, err := Strings(a)
		if err != nil {
			return err
		}
		y, err := Strings(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.String, lengths)
		binary(window(dst.Strings(), dst), x, y, func(a, b string) string { return a + b })

	default:
		return detailf(ErrUnsupportedType, "%v arithmetic", t)
	}
	return nil
}

func compare(op asm.Opcode, t mem.DataType, dst, a, b *mem.Container) error {
	lengths, err := broadcastShape(a, b)
	if err != nil {
		return err
	}
	switch t {
	case mem.Int64:
		x, err := Int64s(a)
		if err != nil {
			return err
		}
		y, err := Int64s(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.Bool, lengths)
		binary(window(dst.Bools(), dst), x, y, CompareOp[int64](op))

	case mem.Float64:
		x, err := Float64s(a)
		if err != nil {
			return err
		}
		y, err := Float64s(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.Bool, lengths)
		binary(window(dst.Bools(), dst), x, y, CompareOp[float64](op))

	case mem.String:
		x, err := Strings(a)
		if err != nil {
			return err
		}
		y, err := Strings(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.Bool, lengths)
		binary(window(dst.Bools(), dst), x, y, CompareOp[string](op))

	case mem.Bool:
		var f func(a, b bool) bool
		switch op {
		case asm.EQ:
			f = func(a, b bool) bool { return a == b }
		case asm.NEQ:
			f = func(a, b bool) bool { return a != b }
		default:
			return detailf(ErrUnsupportedType, "%v on booleans", op)
		}
		x, err := Bools(a)
		if err != nil {
			return err
		}
		y, err := Bools(b)
		if err != nil {
			return err
		}
		prepare(dst, mem.Bool, lengths)
		binary(window(dst.Bools(), dst), x, y, f)

	default:
		return detailf(ErrUnsupportedType, "%v comparison", t)
	}
	return nil
}

// Decisive reports whether a left operand of ANDM or ORM alone determines the
// result: all lanes false for ANDM, all lanes true for ORM.
func Decisive(op asm.Opcode, lanes []bool) bool {
	want := op == asm.ORM
	for _, v := range lanes {
		if v != want {
			return false
		}
	}
	return true
}

func logic(op asm.Opcode, t mem.DataType, dst, a, b *mem.Container) error {
	if t != mem.Bool {
		return detailf(ErrUnsupportedType, "%v on %v", op, t)
	}
	x, err := Bools(a)
	if err != nil {
		return err
	}
	if Decisive(op, x) {
		prepare(dst, mem.Bool, a.Lengths())
		copy(window(dst.Bools(), dst), x)
		return nil
	}
	lengths, err := broadcastShape(a, b)
	if err != nil {
		return err
	}
	y, err := Bools(b)
	if err != nil {
		return err
	}
	prepare(dst, mem.Bool, lengths)
	binary(window(dst.Bools(), dst), x, y, LogicOp(op))
	return nil
}

func negate(t mem.DataType, dst, a *mem.Container) error {
	switch t {
	case mem.Int64:
		x, err := Int64s(a)
		if err != nil {
			return err
		}
		prepare(dst, mem.Int64, a.Lengths())
		unary(window(dst.Int64s(), dst), x, func(v int64) int64 { return -v })
	case mem.Float64:
		x, err := Float64s(a)
		if err != nil {
			return err
		}
		prepare(dst, mem.Float64, a.Lengths())
		unary(window(dst.Float64s(), dst), x, func(v float64) float64 { return -v })
	default:
		return detailf(ErrUnsupportedType, "negation of %v", t)
	}
	return nil
}

func not(t mem.DataType, dst, a *mem.Container) error {
	if t != mem.Bool {
		return detailf(ErrUnsupportedType, "NOT of %v", t)
	}
	x, err := Bools(a)
	if err != nil {
		return err
	}
	prepare(dst, mem.Bool, a.Lengths())
	unary(window(dst.Bools(), dst), x, func(v bool) bool { return !v })
	return nil
}
