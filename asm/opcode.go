package asm

import "fmt"

// Opcode is a VRIL operation code.
type Opcode uint8

// Opcodes.
const (
	NOP Opcode = iota
	ADD
	SUB
	MUL
	DIV
	REM
	NEG
	EQ
	NEQ
	GT
	LT
	GEQ
	LEQ
	ANDM
	ORM
	NOT
	ALLOC
	ALLOCR
	ALLOCP
	ALLOCT
	FREE
	MOV
	CAST
	FILL
	REF
	POP
	MOVPOP
	REFPOP
	MOVELM
	REFELM
	JMP
	JMPN
	CALL
	CALLX
	RET
	ENDPRM
	ENDFUN
	END
	LABEL

	numOpcodes
)

const variadic = -1

type opInfo struct {
	name     string
	min, max int  // operand counts
	writes   bool // operand 0 is written
}

var opcodes = [numOpcodes]opInfo{
	NOP:    {"NOP", 0, 1, false},
	ADD:    {"ADD", 3, 3, true},
	SUB:    {"SUB", 3, 3, true},
	MUL:    {"MUL", 3, 3, true},
	DIV:    {"DIV", 3, 3, true},
	REM:    {"REM", 3, 3, true},
	NEG:    {"NEG", 2, 2, true},
	EQ:     {"EQ", 3, 3, true},
	NEQ:    {"NEQ", 3, 3, true},
	GT:     {"GT", 3, 3, true},
	LT:     {"LT", 3, 3, true},
	GEQ:    {"GEQ", 3, 3, true},
	LEQ:    {"LEQ", 3, 3, true},
	ANDM:   {"ANDM", 3, 3, true},
	ORM:    {"ORM", 3, 3, true},
	NOT:    {"NOT", 2, 2, true},
	ALLOC:  {"ALLOC", 1, variadic, true},
	ALLOCR: {"ALLOCR", 2, 2, true},
	ALLOCP: {"ALLOCP", 1, 1, true},
	ALLOCT: {"ALLOCT", 1, 1, false},
	FREE:   {"FREE", 1, 1, true},
	MOV:    {"MOV", 2, 2, true},
	CAST:   {"CAST", 2, 2, true},
	FILL:   {"FILL", 2, 2, true},
	REF:    {"REF", 2, 2, true},
	POP:    {"POP", 0, 1, false},
	MOVPOP: {"MOVPOP", 1, 1, true},
	REFPOP: {"REFPOP", 1, 1, true},
	MOVELM: {"MOVELM", 3, variadic, true},
	REFELM: {"REFELM", 3, variadic, true},
	JMP:    {"JMP", 3, 3, false},
	JMPN:   {"JMPN", 3, 3, false},
	CALL:   {"CALL", 2, variadic, false},
	CALLX:  {"CALLX", 2, variadic, true},
	RET:    {"RET", 2, 3, false},
	ENDPRM: {"ENDPRM", 0, 1, false},
	ENDFUN: {"ENDFUN", 0, 1, false},
	END:    {"END", 0, 2, false},
	LABEL:  {"LABEL", 0, 1, false},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := NOP; op < numOpcodes; op++ {
		m[opcodes[op].name] = op
	}
	return m
}()

// ParseOpcode resolves an opcode mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodes[op].name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Writes returns true if op stores into its first operand.
func (op Opcode) Writes() bool { return op < numOpcodes && opcodes[op].writes }

// IsComparison returns true for the relational and equality opcodes, whose
// type annotation names the operand type while the result is bool.
func (op Opcode) IsComparison() bool {
	switch op {
	case EQ, NEQ, GT, LT, GEQ, LEQ:
		return true
	}
	return false
}

// IsArithmetic returns true for the binary arithmetic opcodes.
func (op Opcode) IsArithmetic() bool {
	switch op {
	case ADD, SUB, MUL, DIV, REM:
		return true
	}
	return false
}

func (op Opcode) checkOperands(n int) error {
	info := opcodes[op]
	if n < info.min || (info.max != variadic && n > info.max) {
		if info.max == variadic {
			return fmt.Errorf("%v takes at least %v operands, got %v", op, info.min, n)
		}
		if info.min == info.max {
			return fmt.Errorf("%v takes %v operands, got %v", op, info.min, n)
		}
		return fmt.Errorf("%v takes %v to %v operands, got %v", op, info.min, info.max, n)
	}
	return nil
}
