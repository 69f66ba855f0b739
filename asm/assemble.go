package asm

import (
	"strconv"
	"strings"

	"github.com/jcorbin/vril/mem"
)

// Directive names.
const (
	DirAssemblyLanguage        = "#ASSEMBLY_LANGUAGE_IDENTIFIER"
	DirAssemblyLanguageVersion = "#ASSEMBLY_LANGUAGE_VERSION"
	DirScriptLanguage          = "#SCRIPT_LANGUAGE_IDENTIFIER"
	DirScriptLanguageVersion   = "#SCRIPT_LANGUAGE_VERSION"
	DirLocalVariable           = "#LOCAL_VARIABLE"
	DirGlobalVariable          = "#GLOBAL_VARIABLE"
	DirLocalFunction           = "#LOCAL_FUNCTION"
	DirGlobalFunction          = "#GLOBAL_FUNCTION"
	DirLabel                   = "#LABEL"
	DirMeta                    = "#META"
	DirComment                 = "#COMMENT"
)

// Operand prefixes.
const (
	prefixIdentifier = '_'
	prefixLabel      = '&'
	prefixNone       = '-'
)

// Symbols resolves names that are bound outside the program, typically by a
// binding table.
type Symbols interface {
	GlobalIndex(ident string) (int, bool)
	FunctionIndex(ident string) (int, bool)
}

type statement struct {
	line  int
	text  string
	words []string
}

func (st statement) fail(err error) error {
	return &Error{Line: st.line, Text: st.text, Err: err}
}

// Assemble resolves assembly text into a Program; syms may be nil when the
// program uses no globals or external functions.
func Assemble(src string, syms Symbols) (*Program, error) {
	var as assembler
	as.syms = syms
	as.prog = &Program{}
	for i := range as.prog.maxAddr {
		as.prog.maxAddr[i] = -1
	}
	stmts, err := split(src)
	if err != nil {
		return nil, err
	}
	for _, st := range stmts {
		if err := as.declare(st); err != nil {
			return nil, st.fail(err)
		}
	}
	for _, st := range stmts {
		if err := as.assemble(st); err != nil {
			return nil, st.fail(err)
		}
	}
	return as.prog, nil
}

type assembler struct {
	syms Symbols
	prog *Program
	next int // instruction address counter of the declare pass
	meta mem.Operand
}

// declare binds locals, globals, functions and labels ahead of assembling
// instructions so that forward references resolve.
func (as *assembler) declare(st statement) error {
	word := st.words[0]
	if word[0] != '#' {
		as.next++
		if word == CALL.String() {
			as.next++ // return landing NOP
		}
		return nil
	}

	name := ""
	if len(st.words) > 1 {
		name = st.words[1]
	}
	switch word {
	case DirLocalVariable:
		if name == "" {
			return failf(ErrDirective, "missing local identifier")
		}
		if _, dup := as.prog.Locals.Addr(name); dup {
			return failf(ErrDirective, "duplicate local %v", name)
		}
		as.prog.Locals.symbolicate(name)
		as.prog.use(mem.At(mem.Local, as.prog.Locals.Max()))

	case DirGlobalVariable:
		if name == "" {
			return failf(ErrDirective, "missing global identifier")
		}
		idx, ok := -1, false
		if as.syms != nil {
			idx, ok = as.syms.GlobalIndex(name)
		}
		if !ok {
			return failf(ErrUnresolved, "no external binding for global %v", name)
		}
		as.prog.Globals.define(name, idx)
		as.prog.use(mem.At(mem.Global, idx))

	case DirGlobalFunction:
		if name == "" {
			return failf(ErrDirective, "missing function identifier")
		}
		idx, ok := -1, false
		if as.syms != nil {
			idx, ok = as.syms.FunctionIndex(name)
		}
		if !ok {
			return failf(ErrUnresolved, "no external binding for function %v", name)
		}
		as.prog.Functions.define(name, idx)

	case DirLocalFunction:
		if name == "" {
			return failf(ErrDirective, "missing function identifier")
		}
		as.prog.LocalFunctions = append(as.prog.LocalFunctions, name)

	case DirLabel:
		if len(name) < 2 || name[0] != prefixLabel {
			return failf(ErrDirective, "bad label %q", name)
		}
		if _, dup := as.prog.Labels.Addr(name); dup {
			return failf(ErrDirective, "duplicate label %v", name)
		}
		as.prog.Labels.define(name, as.next)
		as.next++

	case DirAssemblyLanguage, DirAssemblyLanguageVersion, DirScriptLanguage, DirScriptLanguageVersion:
		if name == "" {
			return failf(ErrDirective, "missing value")
		}
		if as.prog.Info == nil {
			as.prog.Info = make(map[string]string)
		}
		if s, err := mem.ParseString(name); err == nil {
			name = s
		}
		as.prog.Info[word] = name

	case DirMeta:
		if _, err := mem.ParseString(name); err != nil {
			return failWith(ErrDirective, err)
		}

	case DirComment:

	default:
		return failf(ErrDirective, "unknown directive %v", word)
	}
	return nil
}

func (as *assembler) assemble(st statement) error {
	word := st.words[0]
	switch word {
	case DirMeta:
		as.meta = as.constant(string(mem.ImmediatePrefix) + "string:" + st.words[1])
		return nil
	case DirLabel:
		as.emit(Instruction{Op: NOP, Types: []mem.DataType{mem.Void}})
		return nil
	}
	if word[0] == '#' {
		return nil
	}

	op, ok := ParseOpcode(word)
	if !ok {
		return failf(ErrOpcode, "%v", word)
	}
	if len(st.words) < 2 {
		return failf(ErrType, "%v is missing its type annotation", op)
	}
	var in Instruction
	in.Op = op
	for _, name := range strings.Split(st.words[1], ":") {
		t, ok := mem.ParseDataType(name)
		if !ok {
			return failf(ErrType, "%q", name)
		}
		in.Types = append(in.Types, t)
	}
	if op == CAST && len(in.Types) != 2 {
		return failf(ErrType, "CAST needs destination and source types")
	}

	words := st.words[2:]
	if err := op.checkOperands(len(words)); err != nil {
		return failWith(ErrOperand, err)
	}
	in.Operands = make([]mem.Operand, len(words))
	for i, w := range words {
		operand, err := as.operand(w)
		if err != nil {
			return err
		}
		in.Operands[i] = operand
	}

	if err := checkWrites(in); err != nil {
		return err
	}

	as.emit(in)
	if op == CALL {
		as.emit(Instruction{Op: NOP, Types: []mem.DataType{mem.Void}})
	}
	if op == END && len(in.Operands) > 1 {
		as.prog.Result = in.Operands[1]
	}
	return nil
}

func (as *assembler) emit(in Instruction) {
	in.Meta = as.meta
	as.prog.Code = append(as.prog.Code, in)
}

// checkWrites rejects instructions that would store into, or alias, a
// constant.
func checkWrites(in Instruction) error {
	if len(in.Operands) == 0 {
		return nil
	}
	if in.Op.Writes() && in.Operands[0].Part == mem.Constant {
		return failf(ErrConstantWrite, "%v destination %v is a constant", in.Op, in.Operands[0])
	}
	if (in.Op == REF || in.Op == REFELM) && len(in.Operands) > 1 && in.Operands[1].Part == mem.Constant {
		return failf(ErrConstantWrite, "%v source %v is a constant", in.Op, in.Operands[1])
	}
	return nil
}

func (as *assembler) constant(text string) mem.Operand {
	addr := as.prog.Constants.symbolicate(text)
	op := mem.At(mem.Constant, addr)
	as.prog.use(op)
	return op
}

func (as *assembler) operand(w string) (mem.Operand, error) {
	switch c := w[0]; c {
	case mem.ImmediatePrefix, '#':
		if c == '#' {
			w = string(mem.ImmediatePrefix) + w[1:]
		}
		if _, err := mem.DecodeImmediate(w); err != nil {
			return mem.NoOperand, failWith(ErrLiteral, err)
		}
		return as.constant(w), nil

	case 'R', 'L', 'G':
		addr, err := strconv.Atoi(w[1:])
		if err != nil || addr < 0 {
			return mem.NoOperand, failf(ErrOperand, "bad address %q", w)
		}
		part := mem.Register
		switch c {
		case 'L':
			part = mem.Local
		case 'G':
			part = mem.Global
		}
		op := mem.At(part, addr)
		as.prog.use(op)
		return op, nil

	case prefixIdentifier:
		if addr, ok := as.prog.Locals.Addr(w); ok {
			return mem.At(mem.Local, addr), nil
		}
		if addr, ok := as.prog.Globals.Addr(w); ok {
			return mem.At(mem.Global, addr), nil
		}
		if idx, ok := as.prog.Functions.Addr(w); ok {
			return as.constant(string(mem.ImmediatePrefix) + "int:" + strconv.Itoa(idx)), nil
		}
		return mem.NoOperand, failf(ErrUnresolved, "undefined identifier %v", w)

	case prefixLabel:
		addr, ok := as.prog.Labels.Addr(w)
		if !ok {
			return mem.NoOperand, failf(ErrUnresolved, "undefined label %v", w)
		}
		return as.constant(string(mem.ImmediatePrefix) + "int:" + strconv.Itoa(addr)), nil

	case prefixNone:
		if len(w) == 1 {
			return mem.NoOperand, nil
		}
	}
	return mem.NoOperand, failf(ErrOperand, "unrecognized operand %q", w)
}

// split breaks src into statements at semicolons outside string literals and
// each statement into words at spaces outside string literals.
func split(src string) ([]statement, error) {
	var (
		stmts []statement
		cur   statement
		word  strings.Builder
		text  strings.Builder
		line  = 1
		inStr bool
	)
	flushWord := func() {
		if word.Len() > 0 {
			cur.words = append(cur.words, word.String())
			word.Reset()
		}
	}
	flushStmt := func() {
		flushWord()
		if len(cur.words) > 0 {
			cur.text = strings.TrimSpace(text.String())
			stmts = append(stmts, cur)
		}
		cur = statement{}
		text.Reset()
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			line++
		}
		if inStr {
			word.WriteByte(c)
			text.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(src) {
					i++
					word.WriteByte(src[i])
					text.WriteByte(src[i])
				}
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case ';':
			flushStmt()
			continue
		case ' ', '\t', '\r', '\n':
			flushWord()
		default:
			if cur.line == 0 {
				cur.line = line
			}
			if c == '"' {
				inStr = true
			}
			word.WriteByte(c)
		}
		text.WriteByte(c)
	}
	if inStr {
		return nil, &Error{Line: line, Text: strings.TrimSpace(text.String()), Err: failf(ErrLiteral, "unterminated string literal")}
	}
	flushStmt()
	return stmts, nil
}
