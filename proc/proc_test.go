package proc_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/internal/vmtest"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

func TestInterpreter(t *testing.T) {
	vmtest.Suite().Run(t, func(logf func(mess string, args ...interface{})) proc.Processor {
		return proc.NewInterpreter(proc.WithLogf(logf))
	})
}

func TestInterpreter_trace(t *testing.T) {
	prog, err := asm.Assemble(`
		ALLOC int R0;
		ADD int R0 R0 ~int:2;
		END int - R0;
	`, nil)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, nil)
	require.NoError(t, err)

	var lines []string
	ip := proc.NewInterpreter(proc.WithLogf(func(mess string, args ...interface{}) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf(mess, args...)))
	}))
	stats, err := ip.Process(context.Background(), prog, memory, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Steps)
	assert.Equal(t, []string{
		"@0 ALLOC int R0 -- [void]",
		"@1 ADD int R0 R0 C0 -- [int(0) int(0) int(2)]",
		"@2 END int - R0 -- [void int(2)]",
	}, lines)
}

func TestFormatFloat(t *testing.T) {
	for _, tc := range []struct {
		in  float64
		out string
	}{
		{2, "2.0"},
		{0.5, "0.5"},
		{-3, "-3.0"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{0.001, "0.001"},
		{100000, "100000.0"},
		{9999999, "9999999.0"},
		{1e7, "1.0E7"},
		{1e21, "1.0E21"},
		{-1.5e-4, "-1.5E-4"},
		{1.2345e300, "1.2345E300"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	} {
		assert.Equal(t, tc.out, proc.FormatFloat(tc.in), "%v", tc.in)
	}
}

func TestFloatToInt(t *testing.T) {
	for _, tc := range []struct {
		in  float64
		out int64
	}{
		{1.9, 1},
		{-1.9, -1},
		{1e300, math.MaxInt64},
		{-1e300, math.MinInt64},
		{math.Inf(1), math.MaxInt64},
		{math.Inf(-1), math.MinInt64},
		{math.NaN(), 0},
		{9.3e18, math.MaxInt64},
	} {
		assert.Equal(t, tc.out, proc.FloatToInt(tc.in), "%v", tc.in)
	}
}

func TestStrings(t *testing.T) {
	strs, err := proc.Strings(mem.BoolArray(true, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"true", "false"}, strs)

	strs, err = proc.Strings(mem.Int64Scalar(-7))
	require.NoError(t, err)
	assert.Equal(t, []string{"-7"}, strs)

	_, err = proc.Strings(&mem.Container{})
	assert.True(t, errors.Is(err, proc.ErrUnsupportedType))
}

func TestFloat64s_view(t *testing.T) {
	arr := mem.Int64Array(1, 2, 3)
	var elem mem.Container
	elem.SetElementView(arr, 2)
	fs, err := proc.Float64s(&elem)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, fs, "element views read at their offset")
}

func TestDecisive(t *testing.T) {
	assert.True(t, proc.Decisive(asm.ANDM, []bool{false, false}))
	assert.False(t, proc.Decisive(asm.ANDM, []bool{false, true}))
	assert.True(t, proc.Decisive(asm.ORM, []bool{true, true}))
	assert.False(t, proc.Decisive(asm.ORM, []bool{true, false}))
}

func TestBranches(t *testing.T) {
	for _, tc := range []struct {
		op   asm.Opcode
		cond *mem.Container
		jump bool
	}{
		{asm.JMP, mem.BoolScalar(true), true},
		{asm.JMP, mem.BoolArray(true, false), false},
		{asm.JMPN, mem.BoolArray(false, false), true},
		{asm.JMPN, mem.BoolArray(true, false), false},
	} {
		jump, err := proc.Branches(tc.op, tc.cond)
		require.NoError(t, err)
		assert.Equal(t, tc.jump, jump, "%v %v", tc.op, tc.cond)
	}
	_, err := proc.Branches(asm.JMP, mem.Int64Scalar(1))
	assert.True(t, errors.Is(err, proc.ErrUnsupportedType))
}

func TestFlatIndex(t *testing.T) {
	m := mem.NewArray(mem.Int64, 2, 3)
	i, err := proc.FlatIndex(m, []*mem.Container{mem.Int64Scalar(1), mem.Int64Scalar(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, i)

	_, err = proc.FlatIndex(m, []*mem.Container{mem.Int64Scalar(2), mem.Int64Scalar(0)})
	assert.True(t, errors.Is(err, proc.ErrIndexOutOfRange))
	_, err = proc.FlatIndex(m, []*mem.Container{mem.Float64Scalar(1), mem.Int64Scalar(0)})
	assert.True(t, errors.Is(err, proc.ErrUnsupportedType))
	_, err = proc.FlatIndex(m, nil)
	assert.True(t, errors.Is(err, proc.ErrRankMismatch))
}

func TestCheckDivisor(t *testing.T) {
	assert.NoError(t, proc.CheckDivisor(asm.ADD, []int64{0}))
	assert.NoError(t, proc.CheckDivisor(asm.DIV, []int64{1, 2}))
	assert.True(t, errors.Is(proc.CheckDivisor(asm.REM, []int64{1, 0}), proc.ErrDivideByZero))
}

func TestShape(t *testing.T) {
	assert.Equal(t, "void", proc.Shape(&mem.Container{}))
	assert.Equal(t, "float", proc.Shape(mem.Float64Scalar(1)))
	assert.Equal(t, "bool[2][3]", proc.Shape(mem.NewArray(mem.Bool, 2, 3)))
}

func TestMachine_Step(t *testing.T) {
	prog, err := asm.Assemble(`
		#LOCAL_VARIABLE _x;
		MOV int _x ~int:5;
		NEG int _x _x;
	`, nil)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, nil)
	require.NoError(t, err)

	m := proc.NewMachine(prog, memory, nil)
	next, err := m.Step(1)
	require.Error(t, err, "the destination is still void")
	assert.Equal(t, 1, next)
	var de *proc.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []string{"void", "void"}, de.Shapes)

	next, err = m.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	next, err = m.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.Equal(t, int64(-5), memory.Get(mem.At(mem.Local, 0)).Int64())
}

func TestInterpreter_nilLinker(t *testing.T) {
	prog, err := asm.Assemble("CALLX void - ~int:0;", nil)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, nil)
	require.NoError(t, err)
	_, err = proc.NewInterpreter().Process(context.Background(), prog, memory, nil)
	assert.True(t, errors.Is(err, proc.ErrExternalFunction))
}

func TestDataError_meta(t *testing.T) {
	prog, err := asm.Assemble(`
		ALLOC int R0;
		#META "line=7, file=calc.vril";
		DIV int R0 ~int:1 ~int:0;
	`, nil)
	require.NoError(t, err)
	memory, err := mem.Allocate(prog, nil)
	require.NoError(t, err)

	_, err = proc.NewInterpreter().Process(context.Background(), prog, memory, nil)
	var de *proc.DataError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, "line=7, file=calc.vril", de.Meta)
	assert.True(t, errors.Is(err, proc.ErrDivideByZero))
	assert.Contains(t, err.Error(), "[line=7, file=calc.vril]")
}
