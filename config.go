package vril

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/mem"
)

// Config is the YAML form of a VM's options and global bindings:
//
//	accelerator: true
//	scalar_cache: false
//	globals:
//	  x: int:42
//	  name: string:"bob"
//
// Unset switches keep their defaults.
type Config struct {
	Accelerator      *bool      `yaml:"accelerator"`
	ScalarCache      *bool      `yaml:"scalar_cache"`
	AutoActivation   *bool      `yaml:"auto_activation"`
	ReexecutionCache *bool      `yaml:"reexecution_cache"`
	Trace            bool       `yaml:"trace"`
	Dump             bool       `yaml:"dump"`
	Globals          globalList `yaml:"globals"`
}

// Global is one configured global variable.
type Global struct {
	Name  string
	Value *mem.Container
}

// globalList keeps globals in file order, since that order assigns their
// addresses.
type globalList []Global

func (gl *globalList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*gl = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("config: globals must be a mapping")
	}
	items := make(globalList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name, text := value.Content[i].Value, value.Content[i+1].Value
		c, err := mem.DecodeImmediate(string(mem.ImmediatePrefix) + text)
		if err != nil {
			return fmt.Errorf("config: global %v (line %v): %w", name, value.Content[i].Line, err)
		}
		items = append(items, Global{Name: name, Value: c})
	}
	*gl = items
	return nil
}

// LoadConfig decodes a configuration; unknown keys are errors.
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ReadConfigFile loads the named configuration file.
func ReadConfigFile(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return cfg, nil
}

// Options returns the VM options the configuration sets; tracing and dumping
// need a destination, so they are left to the caller.
func (cfg *Config) Options() []VMOption {
	var opts []VMOption
	if cfg.Accelerator != nil {
		opts = append(opts, WithAccelerator(*cfg.Accelerator))
	}
	if cfg.ScalarCache != nil {
		opts = append(opts, WithScalarCache(*cfg.ScalarCache))
	}
	if cfg.AutoActivation != nil {
		opts = append(opts, WithAutoActivation(*cfg.AutoActivation))
	}
	if cfg.ReexecutionCache != nil {
		opts = append(opts, WithReexecutionCache(*cfg.ReexecutionCache))
	}
	return opts
}

// Bind adds the configured globals to tab.
func (cfg *Config) Bind(tab *bind.Table) error {
	for _, g := range cfg.Globals {
		if _, err := tab.AddVariable(bind.Variable{Name: g.Name, Value: g.Value}); err != nil {
			return err
		}
	}
	return nil
}

// ParseGlobal parses a "name=type:value" global definition, as given on the
// command line.
func ParseGlobal(def string) (Global, error) {
	name, text, ok := strings.Cut(def, "=")
	if !ok || name == "" {
		return Global{}, fmt.Errorf("invalid global %q, want name=type:value", def)
	}
	c, err := mem.DecodeImmediate(string(mem.ImmediatePrefix) + text)
	if err != nil {
		return Global{}, err
	}
	return Global{Name: name, Value: c}, nil
}
