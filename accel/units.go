package accel

import (
	"golang.org/x/exp/slices"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

// unit executes the instruction at pc, returning the next pc.
type unit func(pc int) (next int, err error)

// slot caches one scalar container for the duration of a run.
type slot struct {
	c        *mem.Container
	typ      mem.DataType
	constant bool

	live bool // holds a value; false mirrors a void container
	i    int64
	f    float64
	b    bool
}

func (s *slot) load() {
	c := s.c
	s.live = c.Type() == s.typ && c.Rank() == 0 && c.Size() == 1
	if !s.live {
		return
	}
	switch s.typ {
	case mem.Int64:
		s.i = c.Int64()
	case mem.Float64:
		s.f = c.Float64()
	case mem.Bool:
		s.b = c.Bool()
	}
}

func (s *slot) flush() {
	if !s.live || s.constant {
		return
	}
	c := s.c
	if c.Type() != s.typ || c.Rank() != 0 {
		c.Alloc(s.typ)
	}
	switch s.typ {
	case mem.Int64:
		c.SetInt64(s.i)
	case mem.Float64:
		c.SetFloat64(s.f)
	case mem.Bool:
		c.SetBool(s.b)
	}
}

func (s *slot) float() float64 {
	if s.typ == mem.Int64 {
		return float64(s.i)
	}
	return s.f
}

// builder compiles the units of one plan.
type builder struct {
	*plan
	an    *analysis
	slots map[mem.Operand]*slot
}

func (bd *builder) slot(op mem.Operand) *slot {
	if s, ok := bd.slots[op]; ok {
		return s
	}
	t, ok := bd.an.typeOf(op)
	if !ok {
		return nil
	}
	s := &slot{c: bd.memory.Get(op), typ: t, constant: op.Part == mem.Constant}
	bd.slots[op] = s
	bd.all = append(bd.all, s)
	if !s.constant {
		bd.cached++
	}
	return s
}

// operandSlots returns the cache slot of each operand, and whether every
// operand has one.
func (bd *builder) operandSlots(in asm.Instruction) ([]*slot, bool) {
	slots := make([]*slot, len(in.Operands))
	all := true
	for i, op := range in.Operands {
		if slots[i] = bd.slot(op); slots[i] == nil {
			all = false
		}
	}
	return slots, all
}

// fallback runs the instruction on the interpreter machine, flushing any
// cached operands before and reloading them after.
func (bd *builder) fallback(in asm.Instruction) unit {
	var cached []*slot
	slots, _ := bd.operandSlots(in)
	for _, s := range slots {
		if s != nil && !slices.Contains(cached, s) {
			cached = append(cached, s)
		}
	}
	p := bd.plan
	if len(cached) == 0 {
		return func(pc int) (int, error) { return p.m.Step(pc) }
	}
	return func(pc int) (int, error) {
		for _, s := range cached {
			s.flush()
		}
		next, err := p.m.Step(pc)
		for _, s := range cached {
			s.load()
		}
		return next, err
	}
}

// build returns the unit for in, and whether it is specialized.
func (bd *builder) build(in asm.Instruction) (unit, bool) {
	switch in.Op {
	case asm.NOP, asm.LABEL, asm.ALLOCT, asm.ENDPRM:
		return func(pc int) (int, error) { return pc + 1, nil }, true
	}
	if bd.scalarCache {
		if u := bd.scalar(in); u != nil {
			return u, true
		}
	}
	if u := bd.vector(in); u != nil {
		return u, true
	}
	return bd.fallback(in), false
}

// scalar specializes in over cached slots, or returns nil. Every unit defers
// to the fallback whenever the interpreter would report an error, so errors
// are always built by the machine.
func (bd *builder) scalar(in asm.Instruction) unit {
	if in.Op == asm.ALLOC {
		return bd.scalarAlloc(in)
	}
	if in.Op == asm.JMP || in.Op == asm.JMPN {
		return bd.scalarJump(in)
	}
	if in.Op.Writes() {
		dst := bd.slot(in.Operands[0])
		if dst == nil {
			return nil
		}
		if t, ok := bd.an.produces(in); !ok || t != dst.typ {
			return nil
		}
	}
	slots, all := bd.operandSlots(in)
	if !all {
		return nil
	}
	fb := bd.fallback(in)
	t := in.Type(0)
	switch {
	case in.Op.IsArithmetic():
		return scalarArith(in.Op, t, slots[0], slots[1], slots[2], fb)
	case in.Op.IsComparison():
		return scalarCompare(in.Op, t, slots[0], slots[1], slots[2], fb)
	case in.Op == asm.ANDM, in.Op == asm.ORM:
		return scalarLogic(in.Op, slots[0], slots[1], slots[2], fb)
	case in.Op == asm.NEG:
		return scalarNeg(t, slots[0], slots[1], fb)
	case in.Op == asm.NOT:
		dst, a := slots[0], slots[1]
		return func(pc int) (int, error) {
			if !a.live {
				return fb(pc)
			}
			dst.b, dst.live = !a.b, true
			return pc + 1, nil
		}
	case in.Op == asm.MOV:
		return scalarMov(slots[0], slots[1], fb)
	}
	return nil
}

func (bd *builder) scalarAlloc(in asm.Instruction) unit {
	if len(in.Operands) != 1 {
		return nil
	}
	dst := bd.slot(in.Operands[0])
	if dst == nil || dst.typ != in.Type(0) {
		return nil
	}
	return func(pc int) (int, error) {
		if !dst.live {
			dst.i, dst.f, dst.b = 0, 0, false
			dst.live = true
		}
		return pc + 1, nil
	}
}

func (bd *builder) scalarJump(in asm.Instruction) unit {
	label := bd.memory.Get(in.Operands[1])
	if label.Type() != mem.Int64 || label.Rank() != 0 {
		return nil
	}
	cond := bd.slot(in.Operands[2])
	if cond == nil || cond.typ != mem.Bool {
		return nil
	}
	target, on := proc.Label(label), in.Op == asm.JMP
	fb := bd.fallback(in)
	return func(pc int) (int, error) {
		if !cond.live {
			return fb(pc)
		}
		if cond.b == on {
			return target, nil
		}
		return pc + 1, nil
	}
}

func scalarArith(op asm.Opcode, t mem.DataType, dst, a, b *slot, fb unit) unit {
	if t == mem.Int64 {
		f := proc.IntOp(op)
		divides := op == asm.DIV || op == asm.REM
		return func(pc int) (int, error) {
			if !a.live || !b.live || (divides && b.i == 0) {
				return fb(pc)
			}
			dst.i, dst.live = f(a.i, b.i), true
			return pc + 1, nil
		}
	}
	f := proc.FloatOp(op)
	return func(pc int) (int, error) {
		if !a.live || !b.live {
			return fb(pc)
		}
		dst.f, dst.live = f(a.float(), b.float()), true
		return pc + 1, nil
	}
}

func scalarCompare(op asm.Opcode, t mem.DataType, dst, a, b *slot, fb unit) unit {
	var f func(a, b *slot) bool
	switch t {
	case mem.Int64:
		cmp := proc.CompareOp[int64](op)
		f = func(a, b *slot) bool { return cmp(a.i, b.i) }
	case mem.Float64:
		cmp := proc.CompareOp[float64](op)
		f = func(a, b *slot) bool { return cmp(a.float(), b.float()) }
	case mem.Bool:
		eq := op == asm.EQ
		f = func(a, b *slot) bool { return (a.b == b.b) == eq }
	default:
		return nil
	}
	return func(pc int) (int, error) {
		if !a.live || !b.live {
			return fb(pc)
		}
		dst.b, dst.live = f(a, b), true
		return pc + 1, nil
	}
}

// scalarLogic never reads b when a decides the result.
func scalarLogic(op asm.Opcode, dst, a, b *slot, fb unit) unit {
	f := proc.LogicOp(op)
	decisive := op == asm.ORM
	return func(pc int) (int, error) {
		if !a.live {
			return fb(pc)
		}
		if a.b == decisive {
			dst.b, dst.live = a.b, true
			return pc + 1, nil
		}
		if !b.live {
			return fb(pc)
		}
		dst.b, dst.live = f(a.b, b.b), true
		return pc + 1, nil
	}
}

func scalarNeg(t mem.DataType, dst, a *slot, fb unit) unit {
	if t == mem.Int64 {
		return func(pc int) (int, error) {
			if !a.live {
				return fb(pc)
			}
			dst.i, dst.live = -a.i, true
			return pc + 1, nil
		}
	}
	return func(pc int) (int, error) {
		if !a.live {
			return fb(pc)
		}
		dst.f, dst.live = -a.float(), true
		return pc + 1, nil
	}
}

func scalarMov(dst, src *slot, fb unit) unit {
	return func(pc int) (int, error) {
		if !src.live {
			return fb(pc)
		}
		switch dst.typ {
		case mem.Int64:
			dst.i = src.i
		case mem.Float64:
			dst.f = src.float()
		case mem.Bool:
			dst.b = src.b
		}
		dst.live = true
		return pc + 1, nil
	}
}

// vector specializes same-typed, same-shaped int and float arithmetic over
// uncached operands; a guard defers every other case to the fallback.
func (bd *builder) vector(in asm.Instruction) unit {
	t := in.Type(0)
	switch in.Op {
	case asm.ADD, asm.SUB, asm.MUL:
	case asm.DIV:
		if t != mem.Float64 {
			return nil
		}
	default:
		return nil
	}
	if t != mem.Int64 && t != mem.Float64 {
		return nil
	}
	for _, op := range in.Operands {
		if op.IsNone() || bd.an.cacheable(op) {
			return nil
		}
	}

	fb := bd.fallback(in)
	p := bd.plan
	do, ao, bo := in.Operands[0], in.Operands[1], in.Operands[2]
	guard := func() (dst, a, b *mem.Container, ok bool) {
		dst, a, b = p.memory.Get(do), p.memory.Get(ao), p.memory.Get(bo)
		ok = a.Type() == t && b.Type() == t && dst.Type() == t &&
			a.Rank() > 0 &&
			slices.Equal(a.Lengths(), b.Lengths()) &&
			slices.Equal(a.Lengths(), dst.Lengths())
		return dst, a, b, ok
	}

	if t == mem.Int64 {
		f := proc.IntOp(in.Op)
		return func(pc int) (int, error) {
			dst, a, b, ok := guard()
			if !ok {
				return fb(pc)
			}
			out, _ := proc.Int64s(dst)
			xs, _ := proc.Int64s(a)
			ys, _ := proc.Int64s(b)
			for i := range out {
				out[i] = f(xs[i], ys[i])
			}
			return pc + 1, nil
		}
	}
	f := proc.FloatOp(in.Op)
	return func(pc int) (int, error) {
		dst, a, b, ok := guard()
		if !ok {
			return fb(pc)
		}
		out, _ := proc.Float64s(dst)
		xs, _ := proc.Float64s(a)
		ys, _ := proc.Float64s(b)
		for i := range out {
			out[i] = f(xs[i], ys[i])
		}
		return pc + 1, nil
	}
}
