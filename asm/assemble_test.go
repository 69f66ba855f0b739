package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/mem"
)

type testSymbols struct {
	globals map[string]int
	funcs   map[string]int
}

func (ts testSymbols) GlobalIndex(ident string) (int, bool) {
	i, ok := ts.globals[ident]
	return i, ok
}

func (ts testSymbols) FunctionIndex(ident string) (int, bool) {
	i, ok := ts.funcs[ident]
	return i, ok
}

const addAssembly = `
#ASSEMBLY_LANGUAGE_IDENTIFIER "Vector Register Intermediate Language";
#ASSEMBLY_LANGUAGE_VERSION "0.0.1";
#GLOBAL_VARIABLE _x;
#LOCAL_VARIABLE _a;
#LOCAL_VARIABLE _b;
#META "line=1";
ALLOC int _a;
MOV int _a ~int:0x10;
ALLOC int R0;
ADD int R0 _a _x;
ADD int R0 R0 ~int:16;
END int - R0;
`

func TestAssemble(t *testing.T) {
	prog, err := Assemble(addAssembly, testSymbols{globals: map[string]int{"_x": 3}})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		DirAssemblyLanguage:        "Vector Register Intermediate Language",
		DirAssemblyLanguageVersion: "0.0.1",
	}, prog.Info)

	addr, ok := prog.Locals.Addr("_b")
	assert.True(t, ok)
	assert.Equal(t, 1, addr)
	assert.Equal(t, "_a", prog.Locals.Name(0))
	addr, _ = prog.Globals.Addr("_x")
	assert.Equal(t, 3, addr)

	assert.Equal(t, []string{`~string:"line=1"`, "~int:0x10", "~int:16"}, prog.Immediates(),
		"constants pool in order of first use, deduplicated")

	require.Len(t, prog.Code, 6)
	assert.Equal(t, Instruction{
		Op:       ADD,
		Types:    []mem.DataType{mem.Int64},
		Operands: []mem.Operand{mem.At(mem.Register, 0), mem.At(mem.Local, 0), mem.At(mem.Global, 3)},
		Meta:     mem.At(mem.Constant, 0),
	}, prog.Code[3])
	assert.Equal(t, "ADD int R0 R0 C2", prog.Code[4].String())

	assert.Equal(t, mem.At(mem.Register, 0), prog.Result)
	assert.Equal(t, 1, prog.MaxAddress(mem.Local))
	assert.Equal(t, 0, prog.MaxAddress(mem.Register))
	assert.Equal(t, 3, prog.MaxAddress(mem.Global))
	assert.Equal(t, 2, prog.MaxAddress(mem.Constant))
	assert.Equal(t, []int{0}, prog.Registers())
}

func TestAssemble_labelsAndCalls(t *testing.T) {
	prog, err := Assemble(`
		#LOCAL_VARIABLE _r;
		JMP bool - &skip ~bool:true;
		#LABEL &f;
		RET void - &f;
		#LABEL &skip;
		CALL void - &f;
		JMP bool - &f ~bool:false;
		NOP void;
	`, nil)
	require.NoError(t, err)

	var ops []string
	for _, in := range prog.Code {
		ops = append(ops, in.Op.String())
	}
	assert.Equal(t, []string{"JMP", "NOP", "RET", "NOP", "CALL", "NOP", "JMP", "NOP"}, ops,
		"labels and call returns land on NOPs")

	f, _ := prog.Labels.Addr("&f")
	skip, _ := prog.Labels.Addr("&skip")
	assert.Equal(t, 1, f)
	assert.Equal(t, 3, skip)

	imms := prog.Immediates()
	assert.Equal(t, "~int:3", imms[prog.Code[0].Operands[1].Addr], "forward label reference")
	assert.Equal(t, "~int:1", imms[prog.Code[4].Operands[1].Addr])
	assert.Equal(t, "~int:1", imms[prog.Code[6].Operands[1].Addr])
	assert.True(t, prog.Code[0].Operands[0].IsNone())
	assert.True(t, prog.Result.IsNone())
}

func TestAssemble_functionsAndStrings(t *testing.T) {
	prog, err := Assemble(`
		#GLOBAL_FUNCTION _print;
		#LOCAL_FUNCTION _helper;
		CALLX void - _print ~string:"a; b\t\"c\"";
		MOV string R2 #string:"x y";
	`, testSymbols{funcs: map[string]int{"_print": 7}})
	require.NoError(t, err)
	assert.Equal(t, []string{"_helper"}, prog.LocalFunctions)
	assert.Equal(t, []string{"~int:7", `~string:"a; b\t\"c\""`, `~string:"x y"`}, prog.Immediates())
	assert.Len(t, prog.Code, 2)
}

func TestAssemble_errors(t *testing.T) {
	syms := testSymbols{globals: map[string]int{"_g": 0}}
	for _, tc := range []struct {
		name  string
		src   string
		cause error
		line  int
		errs  string
	}{
		{
			name:  "missing global",
			src:   "#GLOBAL_VARIABLE _nope;",
			cause: ErrUnresolved,
			line:  1,
			errs:  `assembly error at line 1: unresolved symbol: no external binding for global _nope (in "#GLOBAL_VARIABLE _nope")`,
		},
		{
			name:  "missing function",
			src:   "\n#GLOBAL_FUNCTION _f;",
			cause: ErrUnresolved,
			line:  2,
		},
		{
			name:  "undefined identifier",
			src:   "MOV int R0 _y;",
			cause: ErrUnresolved,
			line:  1,
		},
		{
			name:  "undefined label",
			src:   "JMP bool - &nowhere ~bool:true;",
			cause: ErrUnresolved,
		},
		{
			name:  "bad literal",
			src:   "#LOCAL_VARIABLE _a;\nMOV int _a ~int:12q;",
			cause: ErrLiteral,
			line:  2,
			errs:  `assembly error at line 2: malformed literal: invalid immediate value "~int:12q": not an integer literal (in "MOV int _a ~int:12q")`,
		},
		{
			name:  "unterminated string",
			src:   `MOV string R0 ~string:"abc;`,
			cause: ErrLiteral,
		},
		{
			name:  "operand count",
			src:   "ADD int R0 R1;",
			cause: ErrOperand,
			errs:  `assembly error at line 1: bad operand: ADD takes 3 operands, got 2 (in "ADD int R0 R1")`,
		},
		{
			name:  "bad register",
			src:   "NEG int Rx R1;",
			cause: ErrOperand,
		},
		{
			name:  "unknown operand",
			src:   "NEG int R0 %1;",
			cause: ErrOperand,
		},
		{
			name:  "opcode",
			src:   "FROB int R0;",
			cause: ErrOpcode,
		},
		{
			name:  "type",
			src:   "ALLOC quux R0;",
			cause: ErrType,
		},
		{
			name:  "cast types",
			src:   "CAST int R0 R1;",
			cause: ErrType,
		},
		{
			name:  "directive",
			src:   "#BOGUS x;",
			cause: ErrDirective,
		},
		{
			name:  "duplicate label",
			src:   "#LABEL &a;\n#LABEL &a;",
			cause: ErrDirective,
		},
		{
			name:  "write to constant",
			src:   "MOV int ~int:1 ~int:2;",
			cause: ErrConstantWrite,
		},
		{
			name:  "alias a constant",
			src:   "REF int R0 ~int:2;",
			cause: ErrConstantWrite,
		},
		{
			name:  "alias a constant element",
			src:   "REFELM int R0 ~int:2 ~int:0;",
			cause: ErrConstantWrite,
		},
		{
			name: "globals may be written",
			src:  "#GLOBAL_VARIABLE _g;\nMOV int _g ~int:2;",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.src, syms)
			if tc.cause == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.cause), "expected %v, got %v", tc.cause, err)
			var asmErr *Error
			require.True(t, errors.As(err, &asmErr))
			if tc.line != 0 {
				assert.Equal(t, tc.line, asmErr.Line)
			}
			if tc.errs != "" {
				assert.EqualError(t, err, tc.errs)
			}
		})
	}
}

func TestSymbolTable(t *testing.T) {
	var st SymbolTable
	assert.Equal(t, -1, st.Max())
	assert.Equal(t, 0, st.symbolicate("a"))
	assert.Equal(t, 1, st.symbolicate("b"))
	assert.Equal(t, 0, st.symbolicate("a"))
	st.define("z", 9)
	assert.Equal(t, 10, st.symbolicate("c"))
	assert.Equal(t, []string{"a", "b", "z", "c"}, st.Names())
	assert.Equal(t, "z", st.Name(9))
	assert.Equal(t, "", st.Name(5))
}
