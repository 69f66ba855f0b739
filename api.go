package vril

import (
	"context"
	"errors"

	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/panicerr"
	"github.com/jcorbin/vril/mem"
)

// ErrNotActivated is returned by runs of a manually activated VM whose
// bindings have not been activated.
var ErrNotActivated = errors.New("bindings are not activated")

// New returns a VM configured by opts; by default it runs programs with the
// accelerator, scalar caching and the re-execution cache, activating its
// bindings around every run.
func New(opts ...VMOption) *VM {
	var vm VM
	vm.apply(opts...)
	vm.proc = vm.processor()
	return &vm
}

// Run assembles and executes src, returning the host value of its result
// operand, or nil if the program names none.
func (vm *VM) Run(ctx context.Context, src string) (interface{}, error) {
	res, err := vm.Exec(ctx, src)
	if err != nil || res == nil {
		return nil, err
	}
	return res.Value(), nil
}

// Exec is like Run but returns the result container itself; it belongs to
// the VM's memory and is only valid until the next run.
//
// Internal faults are returned as errors for which IsFault is true.
func (vm *VM) Exec(ctx context.Context, src string) (res *mem.Container, err error) {
	if !vm.autoActivate && !vm.tab.IsActive() {
		return nil, ErrNotActivated
	}
	err = panicerr.Recover("vril", func() (err error) {
		res, err = vm.exec(ctx, src)
		return err
	})
	if err != nil {
		vm.cache.invalidate()
		res = nil
	}
	return res, err
}

func (vm *VM) exec(ctx context.Context, src string) (_ *mem.Container, err error) {
	if vm.autoActivate && !vm.tab.IsActive() {
		if err := vm.tab.Activate(); err != nil {
			return nil, err
		}
		defer func() {
			if derr := vm.tab.Deactivate(); err == nil {
				err = derr
			}
		}()
	}

	prog, memory, hit, err := vm.load(src)
	if err != nil {
		return nil, err
	}
	vm.stats = Stats{CacheHit: hit, Runs: vm.stats.Runs + 1}
	vm.log.Logf("#", "run %v cache hit:%v", vm.stats.Runs, hit)

	vm.stats.Stats, err = vm.proc.Process(ctx, prog, memory, vm.tab)
	if err != nil {
		return nil, err
	}
	vm.log.Logf("#", "ran %v steps", vm.stats.Steps)
	if err := vm.tab.WriteBack(); err != nil {
		return nil, err
	}
	if prog.Result.IsNone() {
		return nil, nil
	}
	return memory.Get(prog.Result), nil
}

// Activate runs every binding's Activate hook; a manually activated VM must
// be activated before it can run.
func (vm *VM) Activate() error { return vm.tab.Activate() }

// Deactivate runs every binding's Deactivate hook.
func (vm *VM) Deactivate() error { return vm.tab.Deactivate() }

// Close deactivates the bindings if they are still active.
func (vm *VM) Close() error {
	if vm.tab.IsActive() {
		return vm.tab.Deactivate()
	}
	return nil
}

// Bindings returns the table of globals and external functions that programs
// run by this VM see.
func (vm *VM) Bindings() *bind.Table { return vm.tab }

// Stats describes the last run.
func (vm *VM) Stats() Stats { return vm.stats }

// IsFault returns true if err was raised by an internal fault, such as an out
// of range memory address, rather than by the program's data; "%+v"
// formatting of such errors includes the fault's stack.
func IsFault(err error) bool { return panicerr.IsPanic(err) }
