package vril

import (
	"golang.org/x/crypto/blake2b"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
)

// cacheKey identifies everything a cached program and memory depend on.
type cacheKey struct {
	source      [blake2b.Size256]byte
	accelerate  bool
	scalarCache bool
	bindings    uint64
}

func (vm *VM) cacheKey(src string) cacheKey {
	return cacheKey{
		source:      blake2b.Sum256([]byte(src)),
		accelerate:  vm.accelerate,
		scalarCache: vm.scalarCache,
		bindings:    vm.tab.Version(),
	}
}

// reexecCache holds the program and memory of the last successful run.
type reexecCache struct {
	key    cacheKey
	prog   *asm.Program
	memory *mem.Memory
}

func (c *reexecCache) lookup(key cacheKey) (*asm.Program, *mem.Memory, bool) {
	if c.prog == nil || c.key != key {
		return nil, nil, false
	}
	return c.prog, c.memory, true
}

func (c *reexecCache) store(key cacheKey, prog *asm.Program, memory *mem.Memory) {
	c.key, c.prog, c.memory = key, prog, memory
}

func (c *reexecCache) invalidate() {
	*c = reexecCache{}
}
