package panicerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type typedFault struct{ addr int }

func (tf typedFault) Error() string { return fmt.Sprintf("fault @%v", tf.addr) }

func TestRecover(t *testing.T) {
	for _, tc := range []struct {
		name      string
		errStr    string
		wrapStr   string
		fun       func() error
		haveStack bool
	}{
		{
			name:   "normal",
			errStr: "",
			fun:    func() error { return nil },
		},
		{
			name:   "normal err",
			errStr: "bang",
			fun:    func() error { return errors.New("bang") },
		},
		{
			name:      "panic err",
			errStr:    "panic err paniced: bang",
			wrapStr:   "bang",
			haveStack: true,
			fun: func() error {
				panic(errors.New("bang"))
			},
		},
		{
			name:      "hello panic",
			errStr:    "hello panic paniced: hello",
			haveStack: true,
			fun: func() error {
				panic("hello")
			},
		},
		{
			name:      "index panic",
			errStr:    "index panic paniced: runtime error: index out of range [1] with length 0",
			haveStack: true,
			fun: func() error {
				var some []int
				some[1]++
				return nil
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Recover(tc.name, tc.fun)
			if tc.errStr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.errStr)
				if tc.wrapStr != "" {
					assert.EqualError(t, errors.Unwrap(err), tc.wrapStr, "expected panic(error) value")
				}
			}
			assert.Equal(t, tc.haveStack, IsPanic(err))
			if stack := PanicStack(err); tc.haveStack {
				assert.NotEmpty(t, stack)
				assert.Contains(t, fmt.Sprintf("%+v", err), "Panic stack:")
			} else {
				assert.Empty(t, stack)
			}
		})
	}
}

func TestRecover_typedValue(t *testing.T) {
	err := Recover("", func() error { panic(typedFault{7}) })
	assert.EqualError(t, err, "paniced: fault @7")
	var tf typedFault
	assert.True(t, errors.As(err, &tf))
	assert.Equal(t, 7, tf.addr)
	assert.Equal(t, typedFault{7}, PanicValue(err))
	assert.Nil(t, PanicValue(errors.New("plain")))
}
