/*
Package vril is the execution core of an embeddable scripting engine: it runs
programs written in a small typed, register-and-stack assembly language that
script front ends compile to.

A program runs in three steps. The assembler (package asm) turns source text
into an immutable Program, resolving global names through a binding table
(package bind). The program's virtual memory (package mem) is then allocated:
every value is a Container, a tagged n-dimensional array that may be an alias
of another container, so that reference parameters and element references
share storage with what they refer to. Finally a Processor executes it,
either the reference interpreter (package proc) or the accelerator (package
accel), which compiles programs into specialized execution units and keeps
eligible scalars out of memory while a run lasts. Both produce the same
results and the same errors.

A VM ties these together:

	var tab bind.Table
	tab.AddVariable(bind.Variable{Name: "n", Value: mem.Int64Scalar(10)})
	vm := vril.New(vril.WithBindings(&tab))
	res, err := vm.Run(ctx, `
		#GLOBAL_VARIABLE _n;
		ALLOC int R0;
		MUL int R0 _n _n;
		END int - R0;
	`)

Running the same source again skips assembly and allocation: the VM keeps the
last program and memory, rewinds the memory and rebinds the globals, unless
the bindings changed in the meantime.

Errors come in three kinds. Assembly errors are *asm.Error values and data
errors raised by running instructions are *proc.DataError values; both wrap a
sentinel cause for errors.Is. Internal faults, like addressing memory out of
range, abort the run and are returned as errors for which IsFault is true.
*/
package vril
