// Package vmtest is the shared instruction semantics suite that every
// proc.Processor implementation must pass.
package vmtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/logio"
	"github.com/jcorbin/vril/internal/panicerr"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

// Factory builds the processor under test, routing its trace logging to
// logf.
type Factory func(logf func(mess string, args ...interface{})) proc.Processor

// Cases is a list of test cases run in order.
type Cases []Case

// Run runs every case as a subtest; if any case is marked Exclusive only
// those are run.
func (cs Cases) Run(t *testing.T, factory Factory) {
	{
		var exclusive Cases
		for _, c := range cs {
			if c.exclusive {
				exclusive = append(exclusive, c)
			}
		}
		if len(exclusive) > 0 {
			cs = exclusive
		}
	}
	for _, c := range cs {
		c := c
		t.Run(c.name, func(t *testing.T) { c.Run(t, factory) })
	}
}

// Case is an assembly program together with its bindings and expectations,
// built up by chaining its methods.
type Case struct {
	name    string
	src     string
	globals []global
	funcs   []bind.Function

	repeat    int
	cancel    bool
	exclusive bool
	timeout   time.Duration

	expect    []func(t *testing.T, run *Run)
	wantErr   error
	wantFault bool
	errText   string
}

type global struct {
	name  string
	value interface{}
}

// Run is the state of one executed case, handed to expectations.
type Run struct {
	Prog  *asm.Program
	Mem   *mem.Memory
	Table *bind.Table
	Stats proc.Stats
	Err   error
}

// Result returns the host value of the program's END operand.
func (run *Run) Result() interface{} {
	if run.Prog.Result.IsNone() {
		return nil
	}
	return run.Mem.Get(run.Prog.Result).Value()
}

// New starts a case whose program is the given assembly lines.
func New(name string, lines ...string) Case {
	return Case{name: name, src: strings.Join(lines, "\n")}
}

// Name returns the case name.
func (c Case) Name() string { return c.name }

// Exclusive restricts a Cases run to this and other exclusive cases.
func (c Case) Exclusive() Case {
	c.exclusive = true
	return c
}

// WithGlobal binds a host value, converted by mem.FromValue, as global
// variable name.
func (c Case) WithGlobal(name string, value interface{}) Case {
	c.globals = append(c.globals, global{name, value})
	return c
}

// WithFunction binds an external function.
func (c Case) WithFunction(name string, call func(args []*mem.Container, ret *mem.Container) error) Case {
	c.funcs = append(c.funcs, bind.Function{Name: name, Call: call})
	return c
}

// Repeat re-runs the program n more times on its rewound memory, checking
// every expectation after each run.
func (c Case) Repeat(n int) Case {
	c.repeat = n
	return c
}

// Canceled runs the case under an already canceled context.
func (c Case) Canceled() Case {
	c.cancel = true
	c.wantErr = context.Canceled
	return c
}

// WithTimeout overrides the default run timeout.
func (c Case) WithTimeout(timeout time.Duration) Case {
	c.timeout = timeout
	return c
}

// Expect checks the program result.
func (c Case) Expect(value interface{}) Case {
	return c.Check(func(t *testing.T, run *Run) {
		assert.Equal(t, value, run.Result(), "expected result")
	})
}

// ExpectNear checks a float program result within a small delta.
func (c Case) ExpectNear(value float64) Case {
	return c.Check(func(t *testing.T, run *Run) {
		assert.InDelta(t, value, run.Result(), 1e-9, "expected result")
	})
}

// ExpectGlobal checks the host value of a global variable after the run.
func (c Case) ExpectGlobal(name string, value interface{}) Case {
	return c.Check(func(t *testing.T, run *Run) {
		v, ok := run.Table.Variable(name)
		if assert.True(t, ok, "expected global %v to be bound", name) {
			assert.Equal(t, value, v.Value.Value(), "expected global %v value", name)
		}
	})
}

// Check adds a custom expectation.
func (c Case) Check(expect func(t *testing.T, run *Run)) Case {
	c.expect = append(c.expect, expect)
	return c
}

// ExpectError expects the run, or assembly, to fail with cause.
func (c Case) ExpectError(cause error) Case {
	c.wantErr = cause
	return c
}

// ExpectErrorText expects the error message to contain text.
func (c Case) ExpectErrorText(text string) Case {
	c.errText = text
	return c
}

// ExpectFault expects the run to abort with a memory fault.
func (c Case) ExpectFault() Case {
	c.wantFault = true
	return c
}

// Run assembles, allocates and processes the case with a processor from
// factory. On failure the program dump and the trace are logged.
func (c Case) Run(t *testing.T, factory Factory) {
	var trace []string
	logf := func(mess string, args ...interface{}) {
		trace = append(trace, fmt.Sprintf(mess, args...))
	}

	var tab bind.Table
	for _, g := range c.globals {
		value, err := mem.FromValue(g.value)
		require.NoError(t, err, "global %v", g.name)
		_, err = tab.AddVariable(bind.Variable{Name: g.name, Value: value})
		require.NoError(t, err)
	}
	for _, f := range c.funcs {
		_, err := tab.AddFunction(f)
		require.NoError(t, err)
	}

	prog, err := asm.Assemble(c.src, &tab)
	if err != nil {
		c.checkError(t, err)
		return
	}
	defer func() {
		if t.Failed() {
			lw := logio.Writer{Logf: t.Logf}
			_ = prog.Dump(&lw)
			_ = lw.Close()
			for _, line := range trace {
				t.Log(line)
			}
		}
	}()

	memory, err := mem.Allocate(prog, tab.Globals())
	require.NoError(t, err)

	timeout := c.timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if c.cancel {
		cancel()
	}

	p := factory(logf)
	run := &Run{Prog: prog, Mem: memory, Table: &tab}
	for i := 0; i <= c.repeat; i++ {
		if i > 0 {
			memory.Rewind()
			memory.BindGlobals(tab.Globals())
		}
		trace = trace[:0]
		run.Err = panicerr.Recover("process", func() (err error) {
			run.Stats, err = p.Process(ctx, prog, memory, &tab)
			return err
		})
		if !c.checkError(t, run.Err) {
			return
		}
		for _, expect := range c.expect {
			expect(t, run)
		}
		if t.Failed() {
			t.Logf("failed on run %v", i+1)
			return
		}
	}
}

// checkError asserts err against the expected outcome, returning true if the
// run succeeded as expected and result expectations apply.
func (c Case) checkError(t *testing.T, err error) bool {
	switch {
	case c.wantFault:
		if assert.Error(t, err, "expected a fault") {
			assert.True(t, panicerr.IsPanic(err), "expected a recovered panic, got: %v", err)
			var fault mem.Fault
			assert.True(t, errors.As(err, &fault), "expected a memory fault, got: %v", err)
		}
	case c.wantErr != nil:
		assert.True(t, errors.Is(err, c.wantErr), "expected error: %v\ngot: %+v", c.wantErr, err)
	default:
		assert.NoError(t, err, "unexpected run error")
	}
	if c.errText != "" && err != nil {
		assert.Contains(t, err.Error(), c.errText)
	}
	return err == nil && !t.Failed()
}
