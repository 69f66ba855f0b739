package vril

import (
	"io"

	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/flushio"
)

// VMOption configures a VM.
type VMOption interface{ apply(vm *VM) }

var defaults = VMOptions(
	WithAccelerator(true),
	WithScalarCache(true),
	WithAutoActivation(true),
	WithReexecutionCache(true),
)

func (vm *VM) apply(opts ...VMOption) {
	defaults.apply(vm)
	VMOptions(opts...).apply(vm)
	if vm.tab == nil {
		vm.tab = &bind.Table{}
	}
}

// VMOptions combines options into one, applied in order; nil options are
// skipped.
func VMOptions(opts ...VMOption) VMOption { return options(opts) }

// WithAccelerator selects the accelerator, or the reference interpreter when
// disabled; results are the same either way.
func WithAccelerator(enabled bool) VMOption { return withAccelerator(enabled) }

// WithScalarCache enables the accelerator's scalar caches.
func WithScalarCache(enabled bool) VMOption { return withScalarCache(enabled) }

// WithAutoActivation sets whether every run activates and deactivates the
// bindings itself; when disabled, callers must Activate the VM first.
func WithAutoActivation(enabled bool) VMOption { return withAutoActivation(enabled) }

// WithReexecutionCache sets whether running the same source again reuses its
// assembled program and memory.
func WithReexecutionCache(enabled bool) VMOption { return withReexecutionCache(enabled) }

// WithBindings sets the table of globals and external functions.
func WithBindings(tab *bind.Table) VMOption { return withBindings{tab} }

// WithDump writes a listing of every newly assembled program to w.
func WithDump(w io.Writer) VMOption { return withDump{w} }

// WithLogf enables trace logging of runs and executed instructions.
func WithLogf(logfn func(mess string, args ...interface{})) VMOption { return withLogfn(logfn) }

type options []VMOption
type withAccelerator bool
type withScalarCache bool
type withAutoActivation bool
type withReexecutionCache bool
type withBindings struct{ *bind.Table }
type withDump struct{ io.Writer }
type withLogfn func(mess string, args ...interface{})

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

func (enabled withAccelerator) apply(vm *VM)      { vm.accelerate = bool(enabled) }
func (enabled withScalarCache) apply(vm *VM)      { vm.scalarCache = bool(enabled) }
func (enabled withAutoActivation) apply(vm *VM)   { vm.autoActivate = bool(enabled) }
func (enabled withReexecutionCache) apply(vm *VM) { vm.reexecute = bool(enabled) }
func (b withBindings) apply(vm *VM)               { vm.tab = b.Table }
func (logfn withLogfn) apply(vm *VM)              { vm.log.Logfn = logfn }

func (d withDump) apply(vm *VM) {
	if d.Writer == nil {
		return
	}
	if vm.dump != nil {
		vm.dump = flushio.Tee(vm.dump, flushio.NewWriteFlusher(d.Writer))
	} else {
		vm.dump = flushio.NewWriteFlusher(d.Writer)
	}
}
