package accel

import (
	"golang.org/x/tools/container/intsets"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
)

// analysis decides which addresses may live in scalar caches for a whole run.
//
// An address is cacheable when it always holds a rank-0 int, float or bool
// that no alias can observe: locals and registers only ever allocated as
// scalars of one type and only written by instructions producing that type
// from cacheable operands, and constant scalars.
type analysis struct {
	types       [mem.NumPartitions]map[int]mem.DataType
	uncacheable [mem.NumPartitions]intsets.Sparse
}

func cacheableType(t mem.DataType) bool {
	return t == mem.Int64 || t == mem.Float64 || t == mem.Bool
}

func analyze(prog *asm.Program, memory *mem.Memory) *analysis {
	var an analysis
	for part := range an.types {
		an.types[part] = make(map[int]mem.DataType)
	}

	for addr := 0; addr < memory.Len(mem.Constant); addr++ {
		c := memory.Get(mem.At(mem.Constant, addr))
		if cacheableType(c.Type()) && c.Rank() == 0 {
			an.types[mem.Constant][addr] = c.Type()
		}
	}

	for _, in := range prog.Code {
		an.scan(in)
	}
	for _, part := range [...]mem.Partition{mem.Local, mem.Register} {
		for addr := range an.types[part] {
			if an.uncacheable[part].Has(addr) {
				delete(an.types[part], addr)
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, in := range prog.Code {
			if !in.Op.Writes() || in.Op == asm.ALLOC || len(in.Operands) == 0 {
				continue
			}
			dst := in.Operands[0]
			t, ok := an.typeOf(dst)
			if !ok || dst.Part == mem.Constant {
				continue
			}
			if produced, ok := an.produces(in); !ok || produced != t {
				an.exclude(dst)
				changed = true
			}
		}
	}
	return &an
}

// scan records allocation types and excludes addresses that instruction in
// may alias, or write in a way the caches do not model.
func (an *analysis) scan(in asm.Instruction) {
	ops := in.Operands
	switch in.Op {
	case asm.ALLOC:
		t := in.Type(0)
		if len(ops) > 1 || !cacheableType(t) {
			an.exclude(ops[0])
			return
		}
		dst := ops[0]
		if dst.Part != mem.Local && dst.Part != mem.Register {
			an.exclude(dst)
			return
		}
		if prior, seen := an.types[dst.Part][dst.Addr]; seen && prior != t {
			an.exclude(dst)
			return
		}
		an.types[dst.Part][dst.Addr] = t

	case asm.REF, asm.REFELM:
		an.exclude(ops[0])
		an.exclude(ops[1])

	case asm.CALL:
		for _, op := range ops[2:] {
			an.exclude(op)
		}

	case asm.CALLX:
		an.exclude(ops[0])
		for _, op := range ops[2:] {
			an.exclude(op)
		}

	case asm.RET:
		if len(ops) > 2 {
			an.exclude(ops[2])
		}

	case asm.ALLOCR, asm.ALLOCP, asm.FREE, asm.CAST, asm.FILL,
		asm.MOVPOP, asm.REFPOP, asm.MOVELM:
		an.exclude(ops[0])
	}
}

func (an *analysis) exclude(op mem.Operand) {
	if op.IsNone() || int(op.Part) >= mem.NumPartitions {
		return
	}
	an.uncacheable[op.Part].Insert(op.Addr)
	delete(an.types[op.Part], op.Addr)
}

// typeOf returns the cached scalar type of op, if it is cacheable.
func (an *analysis) typeOf(op mem.Operand) (mem.DataType, bool) {
	switch op.Part {
	case mem.Local, mem.Register, mem.Constant:
		t, ok := an.types[op.Part][op.Addr]
		return t, ok
	}
	return mem.Void, false
}

// produces returns the scalar type written by in when every operand it
// reads is cacheable and of a type the operation accepts.
func (an *analysis) produces(in asm.Instruction) (mem.DataType, bool) {
	t := in.Type(0)
	srcs := in.Operands[1:]
	switch {
	case in.Op.IsArithmetic(), in.Op == asm.NEG:
		if t != mem.Int64 && t != mem.Float64 {
			return mem.Void, false
		}
		return t, an.reads(srcs, t)
	case in.Op.IsComparison():
		if t == mem.Bool && in.Op != asm.EQ && in.Op != asm.NEQ {
			return mem.Void, false
		}
		return mem.Bool, cacheableType(t) && an.reads(srcs, t)
	case in.Op == asm.ANDM, in.Op == asm.ORM, in.Op == asm.NOT:
		return mem.Bool, t == mem.Bool && an.reads(srcs, mem.Bool)
	case in.Op == asm.MOV:
		if t == mem.Any && len(srcs) == 1 {
			t, _ = an.typeOf(srcs[0])
		}
		return t, cacheableType(t) && an.reads(srcs, t)
	}
	return mem.Void, false
}

// reads returns true if every operand is cacheable and usable as t.
func (an *analysis) reads(ops []mem.Operand, t mem.DataType) bool {
	for _, op := range ops {
		st, ok := an.typeOf(op)
		if !ok || !converts(st, t) {
			return false
		}
	}
	return true
}

// converts reports whether a scalar of type from can be read as type to.
func converts(from, to mem.DataType) bool {
	return from == to || (from == mem.Int64 && to == mem.Float64)
}

// cacheable returns true if op can be held in a scalar cache.
func (an *analysis) cacheable(op mem.Operand) bool {
	_, ok := an.typeOf(op)
	return ok
}
