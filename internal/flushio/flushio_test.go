package flushio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileLike struct {
	bytes.Buffer
	writes int
}

// Write hides bytes.Buffer's Len/Reset from the buffer check.
func (fl *fileLike) Write(p []byte) (int, error) {
	fl.writes++
	return fl.Buffer.Write(p)
}

type errFlusher struct{ err error }

func (ef errFlusher) Write(p []byte) (int, error) { return len(p), nil }
func (ef errFlusher) Flush() error                { return ef.err }

func TestNewWriteFlusher(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWriteFlusher(&buf)
	_, err := io.WriteString(wf, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", buf.String(), "buffers are written through")

	fl := struct{ io.Writer }{&fileLike{}}
	wf = NewWriteFlusher(fl)
	_, err = io.WriteString(wf, "hello")
	require.NoError(t, err)
	inner := fl.Writer.(*fileLike)
	assert.Equal(t, 0, inner.writes, "other writers are buffered")
	require.NoError(t, wf.Flush())
	assert.Equal(t, "hello", inner.String())

	assert.Same(t, wf, NewWriteFlusher(wf))
}

type shortWriter struct{ bytes.Buffer }

func (sw *shortWriter) Write(p []byte) (int, error) { return sw.Buffer.Write(p[:len(p)/2]) }
func (sw *shortWriter) Flush() error                { return nil }

func TestTee(t *testing.T) {
	assert.Nil(t, Tee())
	assert.Nil(t, Tee(nil, nil))

	var a, b bytes.Buffer
	one := NewWriteFlusher(&a)
	assert.Equal(t, one, Tee(nil, one))

	both := Tee(one, NewWriteFlusher(&b))
	_, err := io.WriteString(both, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", a.String())
	assert.Equal(t, "x", b.String())

	boom := errors.New("boom")
	nested := Tee(both, errFlusher{boom}, errFlusher{errors.New("later")})
	assert.Len(t, nested, 4, "nested tees are flattened")
	assert.Equal(t, boom, nested.Flush())

	var short shortWriter
	var c bytes.Buffer
	n, err := io.WriteString(Tee(&short, NewWriteFlusher(&c)), "abcd")
	assert.Equal(t, io.ErrShortWrite, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "ab", short.String())
	assert.Equal(t, "abcd", c.String(), "later writers are still written")
}
