package vril

import (
	"github.com/jcorbin/vril/accel"
	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/flushio"
	"github.com/jcorbin/vril/internal/logio"
	"github.com/jcorbin/vril/mem"
	"github.com/jcorbin/vril/proc"
)

// VM runs assembly programs against a table of bindings. A VM is not safe
// for concurrent use; separate VMs are independent.
type VM struct {
	log  logio.Logging
	dump flushio.WriteFlusher
	tab  *bind.Table

	accelerate   bool
	scalarCache  bool
	autoActivate bool
	reexecute    bool

	proc  proc.Processor
	cache reexecCache
	stats Stats
}

// Stats describes one run.
type Stats struct {
	proc.Stats

	// CacheHit is true if assembly and allocation were skipped because the
	// same source was run last.
	CacheHit bool

	// Runs counts the runs of the VM so far.
	Runs uint64
}

func (vm *VM) processor() proc.Processor {
	if vm.accelerate {
		return accel.New(
			accel.WithScalarCache(vm.scalarCache),
			accel.WithLogf(vm.log.Logfn))
	}
	return proc.NewInterpreter(proc.WithLogf(vm.log.Logfn))
}

// load returns an assembled program and its memory for src, reusing the last
// ones when the re-execution cache allows.
func (vm *VM) load(src string) (prog *asm.Program, memory *mem.Memory, hit bool, err error) {
	key := vm.cacheKey(src)
	if prog, memory, hit = vm.cache.lookup(key); hit {
		memory.Rewind()
		memory.BindGlobals(vm.tab.Globals())
		return prog, memory, true, nil
	}

	if prog, err = asm.Assemble(src, vm.tab); err != nil {
		return nil, nil, false, err
	}
	if vm.dump != nil {
		if err := prog.Dump(vm.dump); err != nil {
			return nil, nil, false, err
		}
		if err := vm.dump.Flush(); err != nil {
			return nil, nil, false, err
		}
	}
	if memory, err = mem.Allocate(prog, vm.tab.Globals()); err != nil {
		return nil, nil, false, err
	}
	if vm.reexecute {
		vm.cache.store(key, prog, memory)
	}
	return prog, memory, false, nil
}
