package vril

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/vril/bind"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
accelerator: false
reexecution_cache: false
trace: true
globals:
  b: float:1.5
  a: int:0x10
  s: string:"hi there"
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Accelerator)
	assert.False(t, *cfg.Accelerator)
	assert.Nil(t, cfg.ScalarCache)
	assert.True(t, cfg.Trace)
	assert.Len(t, cfg.Options(), 2)

	var tab bind.Table
	require.NoError(t, cfg.Bind(&tab))
	var names []string
	for _, v := range tab.Variables() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"b", "a", "s"}, names, "globals keep file order")

	vm := New(append(cfg.Options(), WithBindings(&tab))...)
	res, err := vm.Run(context.Background(), `
		#GLOBAL_VARIABLE _a;
		#GLOBAL_VARIABLE _b;
		ALLOC float R0;
		ADD float R0 _a _b;
		END float - R0;
	`)
	require.NoError(t, err)
	assert.Equal(t, 17.5, res)
	assert.False(t, vm.accelerate)
}

func TestLoadConfig_errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		err  string
	}{
		{"unknown key", "acelerator: true", "field acelerator not found"},
		{"bad literal", "globals:\n  x: int:nope", "global x (line 2)"},
		{"globals list", "globals: [1, 2]", "globals must be a mapping"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}

	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err, "an empty config is the default")
	assert.Empty(t, cfg.Options())
}

func TestReadConfigFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "vril.yaml")
	require.NoError(t, os.WriteFile(name, []byte("scalar_cache: false\n"), 0o644))
	cfg, err := ReadConfigFile(name)
	require.NoError(t, err)
	require.NotNil(t, cfg.ScalarCache)
	assert.False(t, *cfg.ScalarCache)

	_, err = ReadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestParseGlobal(t *testing.T) {
	g, err := ParseGlobal("n=int:42")
	require.NoError(t, err)
	assert.Equal(t, "n", g.Name)
	assert.Equal(t, int64(42), g.Value.Value())

	g, err = ParseGlobal(`s=string:"a=b"`)
	require.NoError(t, err)
	assert.Equal(t, "a=b", g.Value.Value())

	for _, bad := range []string{"n", "=int:1", "n=int:x", "n=void:1"} {
		_, err := ParseGlobal(bad)
		assert.Error(t, err, "%q", bad)
	}
}
