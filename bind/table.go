// Package bind connects host data and functions to programs: global
// variables are bound into the GLOBAL partition by identity, external
// functions are reached through CALLX.
package bind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/vril/mem"
)

// Binding errors.
var (
	ErrDuplicate = errors.New("duplicate binding")
	ErrNoBinding = errors.New("no such binding")
)

// Hooks are optional lifecycle callbacks run when the table is activated or
// deactivated.
type Hooks struct {
	Activate   func() error
	Deactivate func() error
}

// Variable is a host value visible to programs as a global.
type Variable struct {
	Name  string
	Value *mem.Container

	// ReadOnly variables are not written back after runs.
	ReadOnly bool

	// WriteBack, if set, receives the variable's container after every
	// successful run.
	WriteBack func(value *mem.Container) error

	Hooks
}

// Function is a host function callable by programs.
type Function struct {
	Name string
	Call func(args []*mem.Container, ret *mem.Container) error
	Hooks
}

// Table holds the bindings of one engine. Its index assignment is stable:
// the n-th added variable is global address n, the n-th function is external
// function index n.
type Table struct {
	vars    []*Variable
	varIdx  map[string]int
	funcs   []*Function
	funcIdx map[string]int
	version uint64
	active  bool
}

// Version changes whenever a binding is added, so programs assembled against
// an older table can be told apart.
func (t *Table) Version() uint64 {
	if t == nil {
		return 0
	}
	return t.version
}

func symbolicate(idx *map[string]int, name string, n int) (int, bool) {
	if _, defined := (*idx)[name]; defined {
		return 0, false
	}
	if *idx == nil {
		*idx = make(map[string]int)
	}
	(*idx)[name] = n
	return n, true
}

// AddVariable binds v, returning its global address.
func (t *Table) AddVariable(v Variable) (int, error) {
	if v.Value == nil {
		v.Value = &mem.Container{}
	}
	i, ok := symbolicate(&t.varIdx, v.Name, len(t.vars))
	if !ok {
		return 0, fmt.Errorf("%w: variable %q", ErrDuplicate, v.Name)
	}
	t.vars = append(t.vars, &v)
	t.version++
	return i, nil
}

// AddFunction binds f, returning its external function index.
func (t *Table) AddFunction(f Function) (int, error) {
	i, ok := symbolicate(&t.funcIdx, f.Name, len(t.funcs))
	if !ok {
		return 0, fmt.Errorf("%w: function %q", ErrDuplicate, f.Name)
	}
	t.funcs = append(t.funcs, &f)
	t.version++
	return i, nil
}

// Set replaces the container bound to a variable. Running programs see the
// new container from their next run on.
func (t *Table) Set(name string, value *mem.Container) error {
	v, ok := t.Variable(name)
	if !ok {
		return fmt.Errorf("%w: variable %q", ErrNoBinding, name)
	}
	v.Value = value
	return nil
}

// Variable returns the named variable.
func (t *Table) Variable(name string) (*Variable, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.varIdx[name]
	if !ok {
		return nil, false
	}
	return t.vars[i], true
}

// Variables returns every bound variable in address order.
func (t *Table) Variables() []*Variable {
	if t == nil {
		return nil
	}
	return t.vars
}

func identName(ident string) string { return strings.TrimPrefix(ident, "_") }

// GlobalIndex resolves an assembly identifier such as "_x" to the address of
// variable "x".
func (t *Table) GlobalIndex(ident string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.varIdx[identName(ident)]
	return i, ok
}

// FunctionIndex resolves an assembly identifier such as "_print" to the
// index of function "print".
func (t *Table) FunctionIndex(ident string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.funcIdx[identName(ident)]
	return i, ok
}

// Globals returns the containers of every variable indexed by address.
func (t *Table) Globals() []*mem.Container {
	if t == nil {
		return nil
	}
	cs := make([]*mem.Container, len(t.vars))
	for i, v := range t.vars {
		cs[i] = v.Value
	}
	return cs
}

// CallFunction calls the function at index.
func (t *Table) CallFunction(index int, args []*mem.Container, ret *mem.Container) error {
	if t == nil || index < 0 || index >= len(t.funcs) {
		return fmt.Errorf("%w: function index %v", ErrNoBinding, index)
	}
	f := t.funcs[index]
	if f.Call == nil {
		return fmt.Errorf("%w: function %q has no implementation", ErrNoBinding, f.Name)
	}
	return f.Call(args, ret)
}

// IsActive returns true between Activate and Deactivate.
func (t *Table) IsActive() bool { return t != nil && t.active }

// Activate runs every Activate hook, stopping at the first failure.
func (t *Table) Activate() error {
	if t == nil {
		return nil
	}
	for _, hooks := range t.hooks() {
		if hooks.Activate != nil {
			if err := hooks.Activate(); err != nil {
				return fmt.Errorf("activating %v: %w", hooks.name, err)
			}
		}
	}
	t.active = true
	return nil
}

// Deactivate runs every Deactivate hook; every hook runs even if some fail.
func (t *Table) Deactivate() error {
	if t == nil {
		return nil
	}
	t.active = false
	var errs []error
	for _, hooks := range t.hooks() {
		if hooks.Deactivate != nil {
			if err := hooks.Deactivate(); err != nil {
				errs = append(errs, fmt.Errorf("deactivating %v: %w", hooks.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteBack hands every writable variable's container to its WriteBack
// function.
func (t *Table) WriteBack() error {
	if t == nil {
		return nil
	}
	for _, v := range t.vars {
		if v.ReadOnly || v.WriteBack == nil {
			continue
		}
		if err := v.WriteBack(v.Value); err != nil {
			return fmt.Errorf("writing back %v: %w", v.Name, err)
		}
	}
	return nil
}

type namedHooks struct {
	name string
	Hooks
}

func (t *Table) hooks() []namedHooks {
	hs := make([]namedHooks, 0, len(t.vars)+len(t.funcs))
	for _, v := range t.vars {
		hs = append(hs, namedHooks{name: v.Name, Hooks: v.Hooks})
	}
	for _, f := range t.funcs {
		hs = append(hs, namedHooks{name: f.Name, Hooks: f.Hooks})
	}
	return hs
}
