package proc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
)

// Data error causes, matched with errors.Is.
var (
	ErrUnsupportedType  = errors.New("unsupported operand type")
	ErrRankMismatch     = errors.New("incompatible array rank")
	ErrScalarSize       = errors.New("array size is too large to be assigned to a scalar")
	ErrLengthMismatch   = errors.New("operand array lengths differ")
	ErrArrayLength      = errors.New("invalid array length")
	ErrDivideByZero     = errors.New("division by zero")
	ErrIndexOutOfRange  = errors.New("array index out of range")
	ErrCastValue        = errors.New("value cannot be cast")
	ErrRecursiveCall    = errors.New("recursive function call")
	ErrNoReturn         = errors.New("function ended without returning a value")
	ErrExternalFunction = errors.New("external function failed")
)

// DataError reports an instruction that cannot operate on the data it was
// given. It names the instruction, the shapes of its operands, and the
// #META text attached to the instruction if any.
type DataError struct {
	PC     int
	Inst   asm.Instruction
	Shapes []string
	Meta   string
	Err    error
}

func (err *DataError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "data error at @%v %v", err.PC, err.Inst.Op)
	for i, t := range err.Inst.Types {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte(':')
		}
		sb.WriteString(t.String())
	}
	if len(err.Shapes) > 0 {
		fmt.Fprintf(&sb, " (%v)", strings.Join(err.Shapes, ", "))
	}
	fmt.Fprintf(&sb, ": %v", err.Err)
	if err.Meta != "" {
		fmt.Fprintf(&sb, " [%v]", err.Meta)
	}
	return sb.String()
}

func (err *DataError) Unwrap() error { return err.Err }

// detailError attaches a sentinel cause to a more specific message.
type detailError struct {
	cause error
	mess  string
}

func (de detailError) Error() string        { return fmt.Sprintf("%v: %v", de.cause, de.mess) }
func (de detailError) Is(target error) bool { return target == de.cause }
func (de detailError) Unwrap() error        { return de.cause }

func detailf(cause error, mess string, args ...interface{}) error {
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	return detailError{cause, mess}
}

// Shape describes a container for error messages, e.g. "int", "float[2][3]"
// or "void".
func Shape(c *mem.Container) string {
	if c == nil {
		return "none"
	}
	t := c.Type()
	if t == mem.Void {
		return "void"
	}
	var sb strings.Builder
	sb.WriteString(t.String())
	for _, n := range c.Lengths() {
		fmt.Fprintf(&sb, "[%d]", n)
	}
	return sb.String()
}
