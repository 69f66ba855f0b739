package vmtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

var errBoom = errors.New("boom")

// Suite returns every case of the instruction semantics suite.
func Suite() Cases {
	var cs Cases
	for _, group := range [][]Case{
		arithmeticCases(),
		vectorCases(),
		logicCases(),
		transferCases(),
		castCases(),
		callCases(),
		controlCases(),
		failureCases(),
	} {
		cs = append(cs, group...)
	}
	return cs
}

func arithmeticCases() []Case {
	return []Case{
		New("int add",
			"ALLOC int R0;",
			"ADD int R0 ~int:1 ~int:2;",
			"END int - R0;",
		).Expect(int64(3)),

		New("int to float promotion",
			"ALLOC float R0;",
			"ADD float R0 ~int:1 ~float:2.2;",
			"END float - R0;",
		).ExpectNear(3.2),

		New("string concatenation stringifies",
			"ALLOC string R0;",
			`ADD string R0 ~int:1 ~string:"str";`,
			`ADD string R0 R0 ~float:2.0;`,
			`ADD string R0 R0 ~bool:true;`,
			"END string - R0;",
		).Expect("1str2.0true"),

		New("int arithmetic",
			"#LOCAL_VARIABLE _x;",
			"ALLOC int _x;",
			"MOV int _x ~int:17;",
			"SUB int _x _x ~int:3;",
			"MUL int _x _x ~int:3;",
			"DIV int _x _x ~int:4;",
			"REM int _x _x ~int:6;",
			"NEG int _x _x;",
			"END int - _x;",
		).Expect(int64(-4)),

		New("int division truncates",
			"ALLOC int R0;",
			"DIV int R0 ~int:-7 ~int:2;",
			"END int - R0;",
		).Expect(int64(-3)),

		New("float remainder",
			"ALLOC float R0;",
			"REM float R0 ~float:7.5 ~int:2;",
			"END float - R0;",
		).ExpectNear(1.5),

		New("float division by zero is infinite",
			"ALLOC float R0;",
			"DIV float R0 ~float:1.0 ~float:0.0;",
			"ALLOC bool R1;",
			"GT float R1 R0 ~float:1e308;",
			"END bool - R1;",
		).Expect(true),

		New("int division by zero",
			"ALLOC int R0;",
			"DIV int R0 ~int:1 ~int:0;",
		).ExpectError(proc.ErrDivideByZero),

		New("int remainder by zero",
			"ALLOC int R0;",
			"REM int R0 ~int:1 ~int:0;",
		).ExpectError(proc.ErrDivideByZero),

		New("narrowing is unsupported",
			"ALLOC int R0;",
			"ADD int R0 ~int:1 ~float:2.5;",
		).ExpectError(proc.ErrUnsupportedType),

		New("string subtraction is unsupported",
			"ALLOC string R0;",
			`SUB string R0 ~string:"a" ~string:"b";`,
		).ExpectError(proc.ErrUnsupportedType),

		New("bool arithmetic is unsupported",
			"ADD bool R0 ~bool:true ~bool:true;",
		).ExpectError(proc.ErrUnsupportedType),

		New("mixed comparison",
			"ALLOC bool R0;",
			"GT float R0 ~int:3 ~float:2.5;",
			"END bool - R0;",
		).Expect(true),

		New("string comparison of textual forms",
			"#LOCAL_VARIABLE _a;",
			"#LOCAL_VARIABLE _b;",
			"#LOCAL_VARIABLE _c;",
			"ALLOC bool _a;",
			"ALLOC bool _b;",
			"ALLOC bool _c;",
			`EQ string _a ~int:1 ~string:"1";`,
			`EQ string _b ~bool:true ~string:"true";`,
			`LT string _c ~string:"abc" ~string:"abd";`,
			"ANDM bool _a _a _b;",
			"ANDM bool _a _a _c;",
			"END bool - _a;",
		).Expect(true),

		New("bool equality",
			"ALLOC bool R0;",
			"NEQ bool R0 ~bool:true ~bool:false;",
			"END bool - R0;",
		).Expect(true),

		New("bool ordering is unsupported",
			"LT bool R0 ~bool:true ~bool:false;",
		).ExpectError(proc.ErrUnsupportedType),

		New("literal forms",
			"#LOCAL_VARIABLE _s;",
			"ALLOC int _s;",
			"ADD int _s ~int:0x123 ~int:0o123;",
			"ADD int _s _s ~int:0b1010;",
			"ADD int _s _s ~int:123;",
			"END int - _s;",
		).Expect(int64(291+83+10+123)),

		New("hex literal", "END int - ~int:0x123;").Expect(int64(291)),
		New("octal literal", "END int - ~int:0o123;").Expect(int64(83)),
		New("binary literal", "END int - ~int:0b1010;").Expect(int64(10)),
		New("decimal literal", "END int - ~int:123;").Expect(int64(123)),
		New("string literal", `END string - ~string:"a\tb";`).Expect("a\tb"),
	}
}

func vectorCases() []Case {
	return []Case{
		New("broadcast vector plus scalar",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC int R0 ~int:3;",
			"ADD int R0 _v ~int:10;",
			"END int - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect([]int64{11, 12, 13}),

		New("broadcast scalar minus vector",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC int R0;",
			"SUB int R0 ~int:10 _v;",
			"END int - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect([]int64{9, 8, 7}),

		New("elementwise float",
			"#GLOBAL_VARIABLE _a;",
			"#GLOBAL_VARIABLE _b;",
			"ALLOC float R0 ~int:2;",
			"MUL float R0 _a _b;",
			"END float - R0;",
		).WithGlobal("a", []float64{1.5, 2}).WithGlobal("b", []int64{2, 3}).Expect([]float64{3, 6}),

		New("elementwise in place",
			"#GLOBAL_VARIABLE _a;",
			"ADD int _a _a _a;",
		).WithGlobal("a", []int64{1, 2, 3}).ExpectGlobal("a", []int64{2, 4, 6}),

		New("matrix broadcast",
			"#GLOBAL_VARIABLE _m;",
			"ALLOC float R0;",
			"MUL float R0 _m ~float:0.5;",
			"END float - R0;",
		).WithGlobal("m", [][]float64{{2, 4}, {6, 8}}).Expect([][]float64{{1, 2}, {3, 4}}),

		New("vector length mismatch",
			"#GLOBAL_VARIABLE _a;",
			"#GLOBAL_VARIABLE _b;",
			"ADD int R0 _a _b;",
		).WithGlobal("a", []int64{1, 2, 3}).WithGlobal("b", []int64{1, 2}).ExpectError(proc.ErrLengthMismatch),

		New("vector comparison",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC bool R0;",
			"GEQ int R0 _v ~int:2;",
			"END bool - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect([]bool{false, true, true}),

		New("vector negation",
			"#GLOBAL_VARIABLE _v;",
			"#GLOBAL_VARIABLE _f;",
			"NEG float _v _v;",
			"NOT bool _f _f;",
		).WithGlobal("v", []float64{1, -2}).WithGlobal("f", []bool{true, false}).
			ExpectGlobal("v", []float64{-1, 2}).
			ExpectGlobal("f", []bool{false, true}),

		New("vector result reallocates scalar destination",
			"#GLOBAL_VARIABLE _v;",
			"#LOCAL_VARIABLE _x;",
			"ALLOC int _x;",
			"ADD int _x _v ~int:1;",
			"END int - _x;",
		).WithGlobal("v", []int64{4, 5}).Expect([]int64{5, 6}),

		New("string vector concatenation",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC string R0;",
			`ADD string R0 ~string:"n" _v;`,
			"END string - R0;",
		).WithGlobal("v", []int64{1, 2}).Expect([]string{"n1", "n2"}),
	}
}

// shortCircuit compiles `left && (x = 1)` (or `||`) the way a front end
// does: the right operand, with its side effect, is skipped by a branch only
// when the left operand is uniformly decisive.
func shortCircuit(name string, op asm.Opcode, left []bool, x int64) Case {
	skip := "JMPN"
	if op == asm.ORM {
		skip = "JMP"
	}
	return New(name,
		"#GLOBAL_VARIABLE _left;",
		"#LOCAL_VARIABLE _x;",
		"ALLOC int _x;",
		"MOV int _x ~int:0;",
		"MOV bool R0 _left;",
		skip+" bool - &done R0;",
		"MOV int _x ~int:1;",
		"ALLOC bool R1;",
		"EQ int R1 _x ~int:1;",
		op.String()+" bool R0 R0 R1;",
		"#LABEL &done;",
		"END int - _x;",
	).WithGlobal("left", left).Expect(x)
}

func logicCases() []Case {
	return []Case{
		shortCircuit("and all false skips right", asm.ANDM, []bool{false, false}, 0),
		shortCircuit("and all true evaluates right", asm.ANDM, []bool{true, true}, 1),
		shortCircuit("and mixed evaluates right", asm.ANDM, []bool{true, false}, 1),
		shortCircuit("or all true skips right", asm.ORM, []bool{true, true}, 0),
		shortCircuit("or all false evaluates right", asm.ORM, []bool{false, false}, 1),
		shortCircuit("or mixed evaluates right", asm.ORM, []bool{false, true}, 1),

		New("decisive left never reads right",
			"#GLOBAL_VARIABLE _f;",
			"ALLOC bool R0;",
			"ANDM bool R0 _f R1;",
			"END bool - R0;",
		).WithGlobal("f", []bool{false, false}).Expect([]bool{false, false}),

		New("mixed left reads right",
			"#GLOBAL_VARIABLE _f;",
			"ALLOC bool R0;",
			"ANDM bool R0 _f R1;",
		).WithGlobal("f", []bool{false, true}).ExpectError(proc.ErrUnsupportedType),

		New("elementwise or",
			"#GLOBAL_VARIABLE _a;",
			"#GLOBAL_VARIABLE _b;",
			"ALLOC bool R0;",
			"ORM bool R0 _a _b;",
			"END bool - R0;",
		).WithGlobal("a", []bool{false, true, false}).WithGlobal("b", []bool{false, false, true}).
			Expect([]bool{false, true, true}),

		New("scalar logic",
			"#LOCAL_VARIABLE _a;",
			"ALLOC bool _a;",
			"ORM bool _a ~bool:false ~bool:true;",
			"ANDM bool _a _a ~bool:true;",
			"NOT bool _a _a;",
			"END bool - _a;",
		).Expect(false),

		New("logic on ints is unsupported",
			"ANDM int R0 ~int:1 ~int:0;",
		).ExpectError(proc.ErrUnsupportedType),
	}
}

func transferCases() []Case {
	return []Case{
		New("size one array into scalar",
			"#GLOBAL_VARIABLE _one;",
			"#LOCAL_VARIABLE _s;",
			"ALLOC int _s;",
			"MOV int _s _one;",
			"END int - _s;",
		).WithGlobal("one", []int64{5}).Expect(int64(5)),

		New("larger array into scalar",
			"#GLOBAL_VARIABLE _three;",
			"#LOCAL_VARIABLE _s;",
			"ALLOC int _s;",
			"MOV int _s _three;",
		).WithGlobal("three", []int64{1, 2, 3}).ExpectError(proc.ErrScalarSize),

		New("array assignment adopts source shape",
			"#GLOBAL_VARIABLE _src;",
			"#LOCAL_VARIABLE _dst;",
			"ALLOC int _dst ~int:5;",
			"MOV int _dst _src;",
			"END int - _dst;",
		).WithGlobal("src", []int64{1, 2}).Expect([]int64{1, 2}),

		New("assignment copies",
			"#GLOBAL_VARIABLE _src;",
			"#LOCAL_VARIABLE _dst;",
			"MOV int _dst _src;",
			"MOV int _src ~int:9;",
			"END int - _dst;",
		).WithGlobal("src", int64(4)).Expect(int64(4)),

		New("assignment widens",
			"#LOCAL_VARIABLE _f;",
			"ALLOC float _f;",
			"MOV float _f ~int:3;",
			"END float - _f;",
		).Expect(float64(3)),

		New("alloc lengths",
			"ALLOC bool R0 ~int:2 ~int:3;",
			"END bool - R0;",
		).Expect([][]bool{{false, false, false}, {false, false, false}}),

		New("negative alloc length",
			"ALLOC int R0 ~int:-1;",
		).ExpectError(proc.ErrArrayLength),

		New("alloc like",
			"#GLOBAL_VARIABLE _v;",
			"ALLOCR float R0 _v;",
			"END float - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect([]float64{0, 0, 0}),

		New("alloc like the stack top",
			"#GLOBAL_VARIABLE _v;",
			"CALL void - &f _v;",
			"END int - R0;",
			"#LABEL &f;",
			"ALLOCP int R0;",
			"POP void;",
			"RET void - &f;",
		).WithGlobal("v", [][]int64{{1}, {2}}).Expect([][]int64{{0}, {0}}),

		New("fill",
			"#LOCAL_VARIABLE _v;",
			"ALLOC float _v ~int:2 ~int:2;",
			"FILL float _v ~float:1.5;",
			"END float - _v;",
		).Expect([][]float64{{1.5, 1.5}, {1.5, 1.5}}),

		New("fill converts",
			"#LOCAL_VARIABLE _v;",
			"ALLOC int _v ~int:2;",
			"FILL string _v ~int:7;",
			"END string - _v;",
		).Expect([]string{"7", "7"}),

		New("free",
			"ALLOC int R0 ~int:3;",
			"FREE void R0;",
			"END int - R0;",
		).Expect(nil),

		New("element read",
			"#GLOBAL_VARIABLE _m;",
			"MOVELM int R0 _m ~int:1 ~int:0;",
			"END int - R0;",
		).WithGlobal("m", [][]int64{{1, 2}, {3, 4}}).Expect(int64(3)),

		New("element read into array destination",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC int R0 ~int:4;",
			"MOVELM int R0 _v ~int:2;",
			"END int - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect(int64(3)),

		New("element reference",
			"#GLOBAL_VARIABLE _v;",
			"REFELM int R0 _v ~int:2;",
			"MOV int R0 ~int:9;",
			"ADD int R0 R0 ~int:1;",
		).WithGlobal("v", []int64{1, 2, 3}).ExpectGlobal("v", []int64{1, 2, 10}),

		New("element index out of range",
			"#GLOBAL_VARIABLE _v;",
			"MOVELM int R0 _v ~int:3;",
		).WithGlobal("v", []int64{1, 2, 3}).ExpectError(proc.ErrIndexOutOfRange),

		New("negative element index",
			"#GLOBAL_VARIABLE _v;",
			"REFELM int R0 _v ~int:-1;",
		).WithGlobal("v", []int64{1, 2, 3}).ExpectError(proc.ErrIndexOutOfRange),

		New("element index rank",
			"#GLOBAL_VARIABLE _m;",
			"MOVELM int R0 _m ~int:1;",
		).WithGlobal("m", [][]int64{{1, 2}, {3, 4}}).ExpectError(proc.ErrRankMismatch),

		New("reference then reallocate",
			"#LOCAL_VARIABLE _a;",
			"#LOCAL_VARIABLE _b;",
			"ALLOC int _a ~int:2;",
			"REF int _b _a;",
			"ALLOC int _b ~int:4;",
			"FILL int _b ~int:3;",
			"END int - _a;",
		).Expect([]int64{3, 3, 3, 3}),
	}
}

func castCases() []Case {
	return []Case{
		New("cast int to float elementwise",
			"#GLOBAL_VARIABLE _v;",
			"CAST float:int R0 _v;",
			"END float - R0;",
		).WithGlobal("v", []int64{1, 2, 3}).Expect([]float64{1, 2, 3}),

		New("cast float to int truncates",
			"ALLOC int R0;",
			"CAST int:float R0 ~float:-2.7;",
			"END int - R0;",
		).Expect(int64(-2)),

		New("cast string to int",
			"#GLOBAL_VARIABLE _v;",
			"CAST int:string R0 _v;",
			"END int - R0;",
		).WithGlobal("v", []string{"42", "1.9", "-3"}).Expect([]int64{42, 1, -3}),

		New("cast float to int saturates",
			"#GLOBAL_VARIABLE _v;",
			"CAST int:float R0 _v;",
			"END int - R0;",
		).WithGlobal("v", []float64{1e300, -1e300, math.NaN()}).Expect([]int64{math.MaxInt64, math.MinInt64, 0}),

		New("cast string to float",
			"ALLOC float R0;",
			`CAST float:string R0 ~string:"2.5";`,
			"END float - R0;",
		).Expect(2.5),

		New("cast bad string",
			"ALLOC int R0;",
			`CAST int:string R0 ~string:"abc";`,
		).ExpectError(proc.ErrCastValue),

		New("cast to string",
			"#GLOBAL_VARIABLE _v;",
			"CAST string:float R0 _v;",
			"END string - R0;",
		).WithGlobal("v", []float64{1, 0.5}).Expect([]string{"1.0", "0.5"}),

		New("cast float to string in scientific notation",
			"#GLOBAL_VARIABLE _v;",
			"CAST string:float R0 _v;",
			"END string - R0;",
		).WithGlobal("v", []float64{1e21, -1.5e-4, 1234567}).Expect([]string{"1.0E21", "-1.5E-4", "1234567.0"}),

		New("cast bool to string",
			"ALLOC string R0;",
			"CAST string:bool R0 ~bool:false;",
			"END string - R0;",
		).Expect("false"),

		New("cast string to bool is one way",
			"ALLOC bool R0;",
			`CAST bool:string R0 ~string:"true";`,
		).ExpectError(proc.ErrUnsupportedType),

		New("cast int to bool",
			"ALLOC bool R0;",
			"CAST bool:int R0 ~int:1;",
		).ExpectError(proc.ErrUnsupportedType),

		New("cast rank one to two",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC float R0 ~int:1 ~int:3;",
			"CAST float:int R0 _v;",
		).WithGlobal("v", []int64{1, 2, 3}).ExpectError(proc.ErrRankMismatch),

		New("cast scalar to array",
			"ALLOC int R0 ~int:3;",
			"CAST int:float R0 ~float:1.5;",
		).ExpectError(proc.ErrRankMismatch),

		New("cast resizes same rank",
			"#GLOBAL_VARIABLE _v;",
			"ALLOC int R0 ~int:1;",
			"CAST int:float R0 _v;",
			"END int - R0;",
		).WithGlobal("v", []float64{1.5, 2.5}).Expect([]int64{1, 2}),
	}
}

// callFunction compiles `void f(int <param>x) { x = 2; }` called on a
// variable initialized to 0.
func callFunction(name, param string, want int64) Case {
	return New(name,
		"#LOCAL_VARIABLE _a;",
		"#LOCAL_VARIABLE _x;",
		"ALLOC int _a;",
		"MOV int _a ~int:0;",
		"CALL void - &f _a;",
		"POP void;",
		"END int - _a;",
		"#LABEL &f;",
		param+" int _x;",
		"ENDPRM void;",
		"MOV int _x ~int:2;",
		"RET void - &f;",
		"ENDFUN void &f;",
	).Expect(want)
}

func callCases() []Case {
	return []Case{
		callFunction("call by reference", "REFPOP", 2),
		callFunction("call by value", "MOVPOP", 0),
		callFunction("repeated call by reference", "REFPOP", 2).Repeat(3),

		New("callee reallocates by reference array",
			"#LOCAL_VARIABLE _a;",
			"#LOCAL_VARIABLE _x;",
			"ALLOC int _a ~int:3;",
			"CALL void - &f _a;",
			"POP void;",
			"END int - _a;",
			"#LABEL &f;",
			"REFPOP int _x;",
			"ENDPRM void;",
			"ALLOC int _x ~int:5;",
			"FILL int _x ~int:7;",
			"RET void - &f;",
			"ENDFUN void &f;",
		).Expect([]int64{7, 7, 7, 7, 7}),

		New("callee assigns different size by reference",
			"#GLOBAL_VARIABLE _src;",
			"#LOCAL_VARIABLE _a;",
			"#LOCAL_VARIABLE _x;",
			"ALLOC int _a ~int:3;",
			"CALL void - &f _a;",
			"POP void;",
			"END int - _a;",
			"#LABEL &f;",
			"REFPOP int _x;",
			"MOV int _x _src;",
			"RET void - &f;",
		).WithGlobal("src", []int64{8, 9}).Expect([]int64{8, 9}),

		New("constant argument taken by reference is copied",
			"#LOCAL_VARIABLE _r;",
			"#LOCAL_VARIABLE _x;",
			"ALLOC int _r;",
			"CALL int - &inc ~int:5;",
			"MOVPOP int _r;",
			"CALL int - &inc ~int:5;",
			"MOVPOP int _r;",
			"END int - _r;",
			"#LABEL &inc;",
			"REFPOP int _x;",
			"ENDPRM void;",
			"ADD int _x _x ~int:1;",
			"RET int - &inc _x;",
		).Repeat(3).Expect(int64(6)),

		New("return value",
			"#LOCAL_VARIABLE _r;",
			"#LOCAL_VARIABLE _p;",
			"ALLOC int _r;",
			"CALL int - &sq ~int:7;",
			"MOVPOP int _r;",
			"CALL int - &sq _r;",
			"MOVPOP int _r;",
			"END int - _r;",
			"#LABEL &sq;",
			"MOVPOP int _p;",
			"ALLOC int R0;",
			"MUL int R0 _p _p;",
			"RET int - &sq R0;",
		).Expect(int64(2401)),

		New("recursive call",
			"CALL void - &f;",
			"POP void;",
			"END void;",
			"#LABEL &f;",
			"CALL void - &f;",
			"POP void;",
			"RET void - &f;",
		).ExpectError(proc.ErrRecursiveCall),

		New("function without return",
			"CALL void - &f;",
			"POP void;",
			"END void;",
			"#LABEL &f;",
			"ENDFUN void &f;",
		).ExpectError(proc.ErrNoReturn).ExpectErrorText("&f"),

		New("external function",
			"#GLOBAL_FUNCTION _twice;",
			"ALLOC int R0;",
			"CALLX int R0 _twice ~int:21;",
			"END int - R0;",
		).WithFunction("twice", func(args []*mem.Container, ret *mem.Container) error {
			ret.SetInt64(2 * args[0].Int64())
			return nil
		}).Expect(int64(42)),

		New("external function sees arguments by reference",
			"#GLOBAL_FUNCTION _clear;",
			"#LOCAL_VARIABLE _v;",
			"ALLOC int _v ~int:2;",
			"FILL int _v ~int:5;",
			"CALLX void - _clear _v;",
			"END int - _v;",
		).WithFunction("clear", func(args []*mem.Container, ret *mem.Container) error {
			args[0].Alloc(mem.Int64, 1)
			return nil
		}).Expect([]int64{0}),

		New("external function failure",
			"#GLOBAL_FUNCTION _fail;",
			"CALLX void - _fail;",
		).WithFunction("fail", func(args []*mem.Container, ret *mem.Container) error {
			return errBoom
		}).ExpectError(proc.ErrExternalFunction).ExpectErrorText("external function failed _fail: boom"),

		New("external function failure wraps cause",
			"#GLOBAL_FUNCTION _fail;",
			"CALLX void - _fail;",
		).WithFunction("fail", func(args []*mem.Container, ret *mem.Container) error {
			return errBoom
		}).ExpectError(errBoom),
	}
}

func controlCases() []Case {
	return []Case{
		New("counting loop",
			"#LOCAL_VARIABLE _i;",
			"#LOCAL_VARIABLE _sum;",
			"ALLOC int _i;",
			"MOV int _i ~int:0;",
			"ALLOC int _sum;",
			"MOV int _sum ~int:0;",
			"ALLOC bool R0;",
			"#LABEL &loop;",
			"ADD int _i _i ~int:1;",
			"ADD int _sum _sum _i;",
			"LT int R0 _i ~int:100;",
			"JMP bool - &loop R0;",
			"END int - _sum;",
		).Expect(int64(5050)).Repeat(2),

		New("float loop with conditional exit",
			"#LOCAL_VARIABLE _x;",
			"#LOCAL_VARIABLE _n;",
			"ALLOC float _x;",
			"MOV float _x ~float:1.0;",
			"ALLOC int _n;",
			"MOV int _n ~int:0;",
			"ALLOC bool R0;",
			"#LABEL &top;",
			"GEQ float R0 _x ~float:1000.0;",
			"JMP bool - &done R0;",
			"MUL float _x _x ~float:2.0;",
			"ADD int _n _n ~int:1;",
			"JMP bool - &top ~bool:true;",
			"#LABEL &done;",
			"ADD float _x _x _n;",
			"END float - _x;",
		).Expect(float64(1024+10)),

		New("jump on vector condition",
			"#GLOBAL_VARIABLE _c;",
			"ALLOC int R0;",
			"MOV int R0 ~int:1;",
			"JMP bool - &end _c;",
			"MOV int R0 ~int:2;",
			"#LABEL &end;",
			"END int - R0;",
		).WithGlobal("c", []bool{true, false}).Expect(int64(2)),

		New("end stops execution",
			"ALLOC int R0;",
			"MOV int R0 ~int:1;",
			"END int - R0;",
			"MOV int R0 ~int:2;",
		).Expect(int64(1)),

		New("falls off the end",
			"#GLOBAL_VARIABLE _g;",
			"ADD int _g _g ~int:1;",
			"NOP void;",
			"ALLOCT int R0;",
		).WithGlobal("g", int64(41)).ExpectGlobal("g", int64(42)),

		New("statement program has no result",
			"#GLOBAL_VARIABLE _g;",
			"MOV string _g ~string:\"done\";",
			"END void;",
		).WithGlobal("g", "").Expect(nil).ExpectGlobal("g", "done"),

		New("steps are counted",
			"NOP void;",
			"NOP void;",
			"END void;",
		).Check(func(t *testing.T, run *Run) {
			assert.Equal(t, uint64(3), run.Stats.Steps)
		}),

		New("canceled",
			"NOP void;",
		).Canceled(),

		New("long loop is canceled by deadline",
			"#LABEL &spin;",
			"JMP bool - &spin ~bool:true;",
		).WithTimeout(50*time.Millisecond).ExpectError(context.DeadlineExceeded),
	}
}

func failureCases() []Case {
	return []Case{
		New("assembly error",
			"MOV int ~int:1 ~int:2;",
		).ExpectError(asm.ErrConstantWrite),

		New("declared const initialization is a local write",
			"#LOCAL_VARIABLE _k;",
			"ALLOC int _k;",
			"MOV int _k ~int:3;",
			"END int - _k;",
		).Expect(int64(3)),

		New("stack underflow faults",
			"MOVPOP int R0;",
		).ExpectFault(),

		New("label operand must be an int",
			`JMP bool - ~string:"x" ~bool:true;`,
		).ExpectFault(),

		New("data error names the instruction",
			`#META "line=3";`,
			"ALLOC int R0;",
			"DIV int R0 ~int:1 ~int:0;",
		).ExpectError(proc.ErrDivideByZero).
			ExpectErrorText("data error at @1 DIV int (int, int, int): division by zero: DIV by int zero [line=3]"),
	}
}
