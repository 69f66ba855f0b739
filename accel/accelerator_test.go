package accel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/vmtest"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

func TestAccelerator(t *testing.T) {
	suite := vmtest.Suite()
	t.Run("scalar cache", func(t *testing.T) {
		suite.Run(t, func(logf func(mess string, args ...interface{})) proc.Processor {
			return New(WithLogf(logf))
		})
	})
	t.Run("no scalar cache", func(t *testing.T) {
		suite.Run(t, func(logf func(mess string, args ...interface{})) proc.Processor {
			return New(WithScalarCache(false), WithLogf(logf))
		})
	})
}

func assemble(t *testing.T, src string) (*asm.Program, *mem.Memory) {
	prog, err := asm.Assemble(src, nil)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, nil)
	require.NoError(t, err)
	return prog, memory
}

const countingLoop = `
	#LOCAL_VARIABLE _i;
	#LOCAL_VARIABLE _sum;
	ALLOC int _i;
	ALLOC int _sum;
	ALLOC bool R0;
	MOV int _i ~int:1;
	MOV int _sum ~int:0;
	#LABEL &loop;
	ADD int _sum _sum _i;
	ADD int _i _i ~int:1;
	LEQ int R0 _i ~int:100;
	JMP void - &loop R0;
	END int - _sum;
`

func TestAnalyze(t *testing.T) {
	for _, tc := range []struct {
		name     string
		src      string
		cached   []string
		uncached []string
	}{
		{
			name:   "scalar locals",
			src:    countingLoop,
			cached: []string{"L0", "L1", "R0"},
		},
		{
			name: "vector allocation",
			src: `
				#LOCAL_VARIABLE _v;
				ALLOC int _v ~int:3;
				END int - _v;
			`,
			uncached: []string{"L0"},
		},
		{
			name: "mixed allocation types",
			src: `
				ALLOC int R0;
				ALLOC float R0;
				END int - R0;
			`,
			uncached: []string{"R0"},
		},
		{
			name: "never allocated",
			src: `
				MOV int R0 ~int:1;
				END int - R0;
			`,
			uncached: []string{"R0"},
		},
		{
			name: "aliased",
			src: `
				#LOCAL_VARIABLE _x;
				#LOCAL_VARIABLE _y;
				ALLOC int _x;
				ALLOC int _y;
				REF int _y _x;
				END int - _y;
			`,
			uncached: []string{"L0", "L1"},
		},
		{
			name: "call argument",
			src: `
				#LOCAL_VARIABLE _x;
				ALLOC int _x;
				CALL void - &f _x;
				END int - _x;
				#LABEL &f;
				REFPOP int R0;
				RET void - &f;
			`,
			uncached: []string{"L0"},
		},
		{
			name: "written by a narrowing producer",
			src: `
				ALLOC int R0;
				ADD float R0 ~float:1.5 ~int:2;
				END int - R0;
			`,
			uncached: []string{"R0"},
		},
		{
			name: "tainted source propagates",
			src: `
				#LOCAL_VARIABLE _v;
				ALLOC int _v ~int:2;
				ALLOC int R0;
				ALLOC int R1;
				ADD int R0 _v ~int:1;
				MOV int R1 R0;
				END int - R1;
			`,
			uncached: []string{"R0", "R1"},
		},
		{
			name: "bool ordering",
			src: `
				ALLOC bool R0;
				LT bool R0 ~bool:false ~bool:true;
				END bool - R0;
			`,
			uncached: []string{"R0"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			prog, memory := assemble(t, tc.src)
			an := analyze(prog, memory)
			for _, name := range tc.cached {
				assert.True(t, an.cacheable(parseOperand(t, name)), "expected %v to be cacheable", name)
			}
			for _, name := range tc.uncached {
				assert.False(t, an.cacheable(parseOperand(t, name)), "expected %v to be uncacheable", name)
			}
		})
	}
}

func parseOperand(t *testing.T, name string) mem.Operand {
	require.Len(t, name, 2)
	addr := int(name[1] - '0')
	switch name[0] {
	case 'L':
		return mem.At(mem.Local, addr)
	case 'R':
		return mem.At(mem.Register, addr)
	case 'C':
		return mem.At(mem.Constant, addr)
	}
	t.Fatalf("bad operand name %q", name)
	return mem.NoOperand
}

func TestAccelerator_trace(t *testing.T) {
	prog, memory := assemble(t, `
		ALLOC int R0;
		MOV int R0 ~int:2;
		ALLOC string R1;
		MOV string R1 ~string:"a";
		END int - R0;
	`)
	var lines []string
	acc := New(WithLogf(func(mess string, args ...interface{}) {
		if line := fmt.Sprintf(mess, args...); strings.HasPrefix(line, "@") {
			lines = append(lines, line)
		}
	}))
	_, err := acc.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)

	require.Len(t, lines, 5, "every step is traced once")
	assert.Equal(t, "@0 ALLOC int R0", lines[0])
	assert.Equal(t, "@1 MOV int R0 C0", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "@2 ALLOC string R1 -- "), "fallbacks trace their operands: %q", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "@3 MOV string R1 C1 -- "), "%q", lines[3])
}

func TestAccelerator_stats(t *testing.T) {
	prog, memory := assemble(t, countingLoop)

	acc := New()
	stats, err := acc.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5050), memory.Get(prog.Result).Int64())
	assert.Equal(t, len(prog.Code), stats.Specialized+stats.Fallback)
	assert.Equal(t, 1, stats.Fallback, "only END is left to the interpreter")
	assert.Equal(t, 3, stats.CachedScalars)

	ip, err := proc.NewInterpreter().Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Equal(t, ip.Steps, stats.Steps, "step counts match the interpreter")

	plan := acc.plan
	memory.Rewind()
	again, err := acc.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Same(t, plan, acc.plan, "plan reused for the same program and memory")
	assert.Equal(t, stats, again)
	assert.Equal(t, int64(5050), memory.Get(prog.Result).Int64())

	noCache := New(WithScalarCache(false))
	stats, err = noCache.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CachedScalars)
	assert.Equal(t, int64(5050), memory.Get(prog.Result).Int64())
}

func TestAccelerator_flushOnError(t *testing.T) {
	prog, memory := assemble(t, `
		#LOCAL_VARIABLE _x;
		ALLOC int _x;
		MOV int _x ~int:7;
		DIV int _x _x ~int:0;
	`)
	_, err := New().Process(context.Background(), prog, memory, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, proc.ErrDivideByZero))
	var de *proc.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.PC)
	assert.Equal(t, int64(7), memory.Get(mem.At(mem.Local, 0)).Int64(),
		"cached values are written back before the error is built")
}

func TestAccelerator_vectorGuard(t *testing.T) {
	var tab bind.Table
	for _, name := range []string{"a", "b"} {
		_, err := tab.AddVariable(bind.Variable{Name: name})
		require.NoError(t, err)
	}
	prog, err := asm.Assemble(`
		#GLOBAL_VARIABLE _a;
		#GLOBAL_VARIABLE _b;
		ADD int _a _a _b;
	`, &tab)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, tab.Globals())
	require.NoError(t, err)
	memory.BindGlobals([]*mem.Container{mem.Int64Array(1, 2, 3), mem.Int64Array(10, 20, 30)})
	acc := New()
	stats, err := acc.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Specialized)
	assert.Equal(t, []int64{11, 22, 33}, memory.Get(mem.At(mem.Global, 0)).Int64s())

	memory.BindGlobals([]*mem.Container{mem.Int64Array(1, 2, 3), mem.Int64Scalar(1)})
	_, err = acc.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err, "broadcast takes the fallback")
	assert.Equal(t, []int64{2, 3, 4}, memory.Get(mem.At(mem.Global, 0)).Int64s())

	memory.BindGlobals([]*mem.Container{mem.Int64Array(1, 2, 3), mem.Int64Array(1, 2)})
	_, err = acc.Process(context.Background(), prog, memory, nil)
	assert.True(t, errors.Is(err, proc.ErrLengthMismatch))
}
