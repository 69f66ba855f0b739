package asm

import (
	"errors"
	"fmt"
)

// Assembly error causes, matched with errors.Is.
var (
	ErrUnresolved    = errors.New("unresolved symbol")
	ErrLiteral       = errors.New("malformed literal")
	ErrOperand       = errors.New("bad operand")
	ErrOpcode        = errors.New("unknown opcode")
	ErrType          = errors.New("unknown data type")
	ErrDirective     = errors.New("malformed directive")
	ErrConstantWrite = errors.New("write to constant")
)

// Error is an assembly failure at one statement of the input.
type Error struct {
	Line int
	Text string
	Err  error
}

func (err *Error) Error() string {
	return fmt.Sprintf("assembly error at line %v: %v (in %q)", err.Line, err.Err, err.Text)
}

func (err *Error) Unwrap() error { return err.Err }

// causeError attaches a sentinel cause to a more specific message.
type causeError struct {
	cause error
	mess  string
	err   error
}

func (ce causeError) Error() string {
	if ce.err != nil {
		return fmt.Sprintf("%v: %v", ce.cause, ce.err)
	}
	return fmt.Sprintf("%v: %v", ce.cause, ce.mess)
}

func (ce causeError) Is(target error) bool { return target == ce.cause }

func (ce causeError) Unwrap() error { return ce.err }

func failf(cause error, mess string, args ...interface{}) error {
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	return causeError{cause: cause, mess: mess}
}

func failWith(cause error, err error) error {
	return causeError{cause: cause, err: err}
}
