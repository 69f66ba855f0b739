// Package accel implements an accelerated Processor: programs are compiled
// into execution units, some specialized over scalar caches or same-shaped
// vectors, the rest deferring to the reference interpreter one instruction at
// a time. Results and errors are identical to the interpreter's.
package accel

import (
	"context"
	"strconv"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/internal/logio"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

const ctxCheckMask = 1<<8 - 1

// Option configures an Accelerator.
type Option interface{ apply(acc *Accelerator) }

type withScalarCache bool
type withLogfn func(mess string, args ...interface{})

func (enabled withScalarCache) apply(acc *Accelerator) { acc.scalarCache = bool(enabled) }
func (logfn withLogfn) apply(acc *Accelerator)         { acc.log.Logfn = logfn }

// WithScalarCache enables or disables keeping eligible scalars in native
// slots for a whole run; it is enabled by default.
func WithScalarCache(enabled bool) Option { return withScalarCache(enabled) }

// WithLogf enables per-instruction trace logging.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// Accelerator is a proc.Processor that reuses its compiled plan for as long
// as it is handed the same program and memory.
type Accelerator struct {
	log         logio.Logging
	scalarCache bool

	plan *plan
}

// New returns an Accelerator configured by opts.
func New(opts ...Option) *Accelerator {
	acc := &Accelerator{scalarCache: true}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(acc)
		}
	}
	return acc
}

// plan is a program compiled against one memory.
type plan struct {
	prog        *asm.Program
	memory      *mem.Memory
	scalarCache bool

	units    []unit
	fallback []bool // units that run on the machine, which traces them itself
	all      []*slot
	m     *proc.Machine

	specialized int
	fallbacks   int
	cached      int
}

func (acc *Accelerator) compile(prog *asm.Program, memory *mem.Memory) *plan {
	p := &plan{prog: prog, memory: memory, scalarCache: acc.scalarCache}
	bd := builder{plan: p, an: &analysis{}, slots: make(map[mem.Operand]*slot)}
	if acc.scalarCache {
		bd.an = analyze(prog, memory)
	}
	p.units = make([]unit, len(prog.Code))
	p.fallback = make([]bool, len(prog.Code))
	for pc, in := range prog.Code {
		u, specialized := bd.build(in)
		p.units[pc] = u
		p.fallback[pc] = !specialized
		if specialized {
			p.specialized++
		} else {
			p.fallbacks++
		}
	}
	if acc.log.Enabled() {
		acc.log.Logf("#", "compiled %v units: %v specialized, %v fallback, %v cached scalars",
			len(p.units), p.specialized, p.fallbacks, p.cached)
	}
	return p
}

// Process runs prog like proc.Interpreter does. Cached scalars are loaded
// from memory before the first instruction and flushed back after the last
// one, including when the run stops with an error.
func (acc *Accelerator) Process(ctx context.Context, prog *asm.Program, memory *mem.Memory, link proc.Linker) (stats proc.Stats, err error) {
	p := acc.plan
	if p == nil || p.prog != prog || p.memory != memory || p.scalarCache != acc.scalarCache {
		p = acc.compile(prog, memory)
		acc.plan = p
	}
	stats.Specialized = p.specialized
	stats.Fallback = p.fallbacks
	stats.CachedScalars = p.cached

	p.m = proc.NewMachine(prog, memory, link)
	p.m.SetLogf(acc.log.Logfn)
	defer func() { p.m = nil }()

	for _, s := range p.all {
		s.load()
	}
	defer func() {
		for _, s := range p.all {
			s.flush()
		}
	}()

	trace := acc.log.Enabled()
	for pc := 0; pc >= 0 && pc < len(p.units); {
		if stats.Steps&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		stats.Steps++
		if trace && !p.fallback[pc] {
			acc.log.Logf("@"+strconv.Itoa(pc), "%v", prog.Code[pc])
		}
		if pc, err = p.units[pc](pc); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
