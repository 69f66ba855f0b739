package panicerr

import "runtime/debug"

// Recover runs f on the calling goroutine, converting any panic raised by it
// into a non-nil error that records the panic value and stack.
func Recover(name string, f func() error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = panicError{name: name, e: e, stack: debug.Stack()}
		}
	}()
	return f()
}
