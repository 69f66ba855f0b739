package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril"
)

func TestGlobalFlags(t *testing.T) {
	var gf globalFlags
	require.NoError(t, gf.Set("a=int:1"))
	require.NoError(t, gf.Set(`b=string:"x"`))
	assert.Error(t, gf.Set("c"))
	assert.Equal(t, "a,b", gf.String())
}

func TestPrefixLogf(t *testing.T) {
	var lines []string
	logf := prefixLogf("prog.vril", func(mess string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(mess, args...))
	})
	logf("@%v %v", 3, "ADD")
	assert.Equal(t, []string{"prog.vril: @3 ADD"}, lines)
}

func TestCommand_newVM(t *testing.T) {
	cli := command{cfg: &vril.Config{}}
	require.NoError(t, cli.globals.Set("n=int:6"))

	for i := 0; i < 2; i++ {
		vm, err := cli.newVM("test")
		require.NoError(t, err)
		res, err := vm.Run(context.Background(), `
			#GLOBAL_VARIABLE _n;
			ADD int _n _n ~int:1;
			END int - _n;
		`)
		require.NoError(t, err)
		assert.Equal(t, int64(7), res, "each VM gets its own copy of a global")
		require.NoError(t, vm.Close())
	}
}
