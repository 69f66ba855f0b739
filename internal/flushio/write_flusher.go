// Package flushio provides buffered writers that are flushed at well defined
// points, such as after a program dump or after each CLI result.
package flushio

import (
	"bufio"
	"io"
)

// WriteFlusher is a flush-able io.Writer.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// NewWriteFlusher returns w if it already flushes; in memory buffers and
// io.Discard get a no-op Flush, anything else is buffered by a bufio.Writer.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	if wf, is := w.(WriteFlusher); is {
		return wf
	}
	if w == io.Discard {
		return nopFlusher{w}
	}

	type buffer interface {
		io.Writer
		Len() int
		Reset()
	}
	if _, isBuffer := w.(buffer); isBuffer {
		return nopFlusher{w}
	}

	return bufio.NewWriter(w)
}

type nopFlusher struct{ io.Writer }

func (nf nopFlusher) Flush() error { return nil }

// Tee returns a WriteFlusher that writes to, and flushes, every non-nil wf.
// Nested tees are flattened; Tee of one writer is that writer.
func Tee(wfs ...WriteFlusher) WriteFlusher {
	var t tee
	for _, wf := range wfs {
		t = t.add(wf)
	}
	switch len(t) {
	case 0:
		return nil
	case 1:
		return t[0]
	}
	return t
}

type tee []WriteFlusher

func (t tee) add(wf WriteFlusher) tee {
	switch wf := wf.(type) {
	case nil:
		return t
	case tee:
		return append(t, wf...)
	}
	return append(t, wf)
}

// Write writes p to every writer, even after one fails, and returns the first
// error.
func (t tee) Write(p []byte) (int, error) {
	var first error
	for _, wf := range t {
		n, err := wf.Write(p)
		if err == nil && n != len(p) {
			err = io.ErrShortWrite
		}
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return 0, first
	}
	return len(p), nil
}

func (t tee) Flush() (err error) {
	for _, wf := range t {
		if ferr := wf.Flush(); err == nil {
			err = ferr
		}
	}
	return err
}
