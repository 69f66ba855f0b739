// Package proc implements the reference interpreter: the per-instruction
// semantics that every execution strategy must reproduce.
package proc

import (
	"context"
	"strconv"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/internal/logio"
	"github.com/jcorbin/vril/mem"
)

// Linker calls external functions on behalf of CALLX.
type Linker interface {
	CallFunction(index int, args []*mem.Container, ret *mem.Container) error
}

// Stats describes one Process call.
type Stats struct {
	// Steps counts executed instructions.
	Steps uint64

	// Specialized and Fallback count the execution units an accelerator built,
	// CachedScalars the addresses it kept in scalar caches; all zero for the
	// interpreter.
	Specialized   int
	Fallback      int
	CachedScalars int
}

// Processor executes a program against an allocated memory.
type Processor interface {
	Process(ctx context.Context, prog *asm.Program, memory *mem.Memory, link Linker) (Stats, error)
}

// ctxCheckMask sets how often the run loop polls its context.
const ctxCheckMask = 1<<8 - 1

// Option configures an Interpreter.
type Option interface{ apply(ip *Interpreter) }

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(ip *Interpreter) { ip.log.Logfn = logfn }

// WithLogf enables per-instruction trace logging.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// Interpreter is the reference Processor.
type Interpreter struct {
	log logio.Logging
}

// NewInterpreter returns an interpreter configured by opts.
func NewInterpreter(opts ...Option) *Interpreter {
	var ip Interpreter
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&ip)
		}
	}
	return &ip
}

// Process runs prog from its first instruction until it falls off the end or
// executes END, returning the first data error, or ctx's error if it is done.
func (ip *Interpreter) Process(ctx context.Context, prog *asm.Program, memory *mem.Memory, link Linker) (stats Stats, err error) {
	m := NewMachine(prog, memory, link)
	m.log.Logfn = ip.log.Logfn
	for pc := 0; pc >= 0 && pc < len(prog.Code); {
		if stats.Steps&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		stats.Steps++
		if pc, err = m.Step(pc); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Machine holds the per-run state of instruction execution; accelerators use
// it to run instructions they do not specialize.
type Machine struct {
	prog    *asm.Program
	mem     *mem.Memory
	link    Linker
	log     logio.Logging
	running map[int]bool // function addresses currently executing
	ops     []*mem.Container
}

// NewMachine binds a program to a memory and linker for one run.
func NewMachine(prog *asm.Program, memory *mem.Memory, link Linker) *Machine {
	return &Machine{prog: prog, mem: memory, link: link}
}

// SetLogf sets the trace logging function.
func (m *Machine) SetLogf(logfn func(mess string, args ...interface{})) { m.log.Logfn = logfn }

func (m *Machine) operands(in *asm.Instruction) []*mem.Container {
	ops := m.ops[:0]
	for _, op := range in.Operands {
		ops = append(ops, m.mem.Get(op))
	}
	m.ops = ops
	return ops
}

// Step executes the instruction at pc and returns the address of the next
// one; a negative address means the program ended.
func (m *Machine) Step(pc int) (next int, err error) {
	in := &m.prog.Code[pc]
	ops := m.operands(in)
	if m.log.Enabled() {
		m.log.Logf("@"+strconv.Itoa(pc), "%v -- %v", *in, ops)
	}

	next = pc + 1
	t := in.Type(0)
	switch in.Op {
	case asm.ADD, asm.SUB, asm.MUL, asm.DIV, asm.REM:
		err = arith(in.Op, t, ops[0], ops[1], ops[2])
	case asm.EQ, asm.NEQ, asm.GT, asm.LT, asm.GEQ, asm.LEQ:
		err = compare(in.Op, t, ops[0], ops[1], ops[2])
	case asm.ANDM, asm.ORM:
		err = logic(in.Op, t, ops[0], ops[1], ops[2])
	case asm.NEG:
		err = negate(t, ops[0], ops[1])
	case asm.NOT:
		err = not(t, ops[0], ops[1])

	case asm.ALLOC:
		err = alloc(t, ops[0], ops[1:])
	case asm.ALLOCR:
		err = allocLike(t, ops[0], ops[1])
	case asm.ALLOCP:
		err = allocLike(t, ops[0], m.mem.Peek())
	case asm.FREE:
		ops[0].Free()
	case asm.MOV:
		err = mov(t, ops[0], ops[1])
	case asm.CAST:
		err = cast(t, ops[0], ops[1])
	case asm.FILL:
		err = fill(t, ops[0], ops[1])
	case asm.REF:
		ops[0].Alias(ops[1])
	case asm.POP:
		m.mem.Pop()
	case asm.MOVPOP:
		err = mov(t, ops[0], m.mem.Pop())
	case asm.REFPOP:
		ops[0].Alias(m.mem.Pop())
	case asm.MOVELM:
		err = movelm(t, ops[0], ops[1], ops[2:])
	case asm.REFELM:
		err = refelm(ops[0], ops[1], ops[2:])

	case asm.JMP, asm.JMPN:
		var jump bool
		if jump, err = Branches(in.Op, ops[2]); jump {
			next = Label(ops[1])
		}
	case asm.CALL:
		next, err = m.call(pc, in, ops)
	case asm.CALLX:
		err = m.callx(in, ops)
	case asm.RET:
		next = m.ret(in, ops)
	case asm.ENDFUN:
		err = m.endfun(ops)
	case asm.END:
		next = -1

	case asm.NOP, asm.LABEL, asm.ALLOCT, asm.ENDPRM:

	default:
		panic(mem.Fault{Op: "dispatch", Detail: "unknown opcode " + in.Op.String()})
	}
	if err != nil {
		return pc, m.DataError(pc, ops, err)
	}
	return next, nil
}

// DataError wraps err with the context of the instruction at pc.
func (m *Machine) DataError(pc int, ops []*mem.Container, err error) error {
	in := m.prog.Code[pc]
	de := &DataError{PC: pc, Inst: in, Err: err}
	for _, c := range ops {
		de.Shapes = append(de.Shapes, Shape(c))
	}
	if !in.Meta.IsNone() {
		if meta := m.mem.Get(in.Meta); meta.Type() == mem.String {
			de.Meta = meta.Str()
		}
	}
	return de
}
