// Command vril runs assembly programs: each file argument is run by its own
// VM, and with no arguments a program is read from stdin, or typed at an
// interactive prompt when stdin is a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/jcorbin/vril"
	"github.com/jcorbin/vril/bind"
	"github.com/jcorbin/vril/internal/flushio"
	"github.com/jcorbin/vril/internal/logio"
	"github.com/jcorbin/vril/mem"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cli command
	flag.DurationVar(&cli.timeout, "timeout", 0, "specify a time limit for each run")
	flag.BoolVar(&cli.trace, "trace", false, "enable trace logging")
	flag.BoolVar(&cli.dump, "dump", false, "log a listing of every assembled program")
	flag.BoolVar(&cli.interpret, "interpret", false, "use the reference interpreter instead of the accelerator")
	flag.IntVar(&cli.repeat, "repeat", 1, "run each program `N` times, reusing its assembly")
	flag.IntVar(&cli.jobs, "j", 1, "run up to `N` files in parallel")
	flag.StringVar(&cli.config, "config", "", "load options and globals from a YAML `file`")
	flag.Var(&cli.globals, "global", "bind a global variable given as `name=type:value`; may be repeated")
	flag.Parse()

	cli.setupLogging()
	if err := cli.loadConfig(); err != nil {
		cli.log.Errorf("%v", err)
		os.Exit(cli.log.ExitCode())
	}
	cli.out = flushio.NewWriteFlusher(os.Stdout)

	switch args := flag.Args(); {
	case len(args) > 0:
		cli.runFiles(ctx, args)
	case term.IsTerminal(int(os.Stdin.Fd())):
		cli.log.ErrorIf(cli.repl(ctx))
	default:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			cli.log.Errorf("reading stdin: %v", err)
			break
		}
		cli.runSource(ctx, "<stdin>", string(src))
	}

	cli.log.ErrorIf(cli.out.Flush())
	os.Exit(cli.log.ExitCode())
}

type command struct {
	timeout   time.Duration
	trace     bool
	dump      bool
	interpret bool
	repeat    int
	jobs      int
	config    string
	globals   globalFlags

	cfg     *vril.Config
	log     *logio.Logger
	outLock sync.Mutex
	out     flushio.WriteFlusher
}

// globalFlags collects -global definitions, validating each as it is given.
type globalFlags []vril.Global

func (gf *globalFlags) String() string {
	names := make([]string, len(*gf))
	for i, g := range *gf {
		names[i] = g.Name
	}
	return strings.Join(names, ",")
}

func (gf *globalFlags) Set(def string) error {
	g, err := vril.ParseGlobal(def)
	if err != nil {
		return err
	}
	*gf = append(*gf, g)
	return nil
}

func (cli *command) setupLogging() {
	level := zerolog.InfoLevel
	if cli.trace {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		TimeFormat: time.TimeOnly,
	}
	cli.log = logio.NewLogger(zerolog.New(cw).Level(level).With().Timestamp().Logger())
}

func (cli *command) loadConfig() error {
	cli.cfg = &vril.Config{}
	if cli.config == "" {
		return nil
	}
	cfg, err := vril.ReadConfigFile(cli.config)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	cli.trace = cli.trace || cfg.Trace
	cli.dump = cli.dump || cfg.Dump
	if cfg.Trace {
		cli.setupLogging()
	}
	return nil
}

// newVM returns a VM with its own copy of every configured global, so that
// VMs running in parallel share no containers.
func (cli *command) newVM(name string) (*vril.VM, error) {
	var tab bind.Table
	for _, g := range append(append([]vril.Global(nil), cli.cfg.Globals...), cli.globals...) {
		value, err := mem.FromValue(g.Value.Value())
		if err != nil {
			return nil, fmt.Errorf("global %v: %w", g.Name, err)
		}
		if _, err := tab.AddVariable(bind.Variable{Name: g.Name, Value: value}); err != nil {
			return nil, err
		}
	}

	opts := []vril.VMOption{vril.VMOptions(cli.cfg.Options()...), vril.WithBindings(&tab)}
	if cli.interpret {
		opts = append(opts, vril.WithAccelerator(false))
	}
	if cli.trace {
		opts = append(opts, vril.WithLogf(prefixLogf(name, cli.log.Leveledf(zerolog.DebugLevel))))
	}
	if cli.dump {
		opts = append(opts, vril.WithDump(&logio.Writer{
			Logf: prefixLogf(name, cli.log.Leveledf(zerolog.InfoLevel)),
		}))
	}
	return vril.New(opts...), nil
}

func prefixLogf(name string, logf func(mess string, args ...interface{})) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) {
		logf("%s: "+mess, append([]interface{}{name}, args...)...)
	}
}

func (cli *command) runFiles(ctx context.Context, names []string) {
	var eg errgroup.Group
	if cli.jobs > 0 {
		eg.SetLimit(cli.jobs)
	}
	for _, name := range names {
		name := name
		eg.Go(func() error {
			src, err := os.ReadFile(name)
			if err != nil {
				cli.log.Errorf("%v", err)
				return nil
			}
			cli.runSource(ctx, name, string(src))
			return nil
		})
	}
	_ = eg.Wait()
}

func (cli *command) runSource(ctx context.Context, name, src string) {
	vm, err := cli.newVM(name)
	if err != nil {
		cli.log.Errorf("%v: %v", name, err)
		return
	}
	defer func() { cli.log.ErrorIf(vm.Close()) }()
	n := max(cli.repeat, 1)
	for i := 1; i <= n; i++ {
		res, err := cli.runOnce(ctx, vm, name, src)
		if err != nil {
			cli.logRunError(name, err)
			return
		}
		if i == n {
			cli.printResult(name, res)
		}
	}
}

func (cli *command) runOnce(ctx context.Context, vm *vril.VM, name, src string) (interface{}, error) {
	if cli.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := vm.Run(ctx, src)
	st := vm.Stats()
	zl := cli.log.Zerolog()
	zl.Debug().
		Str("program", name).
		Uint64("run", st.Runs).
		Uint64("steps", st.Steps).
		Bool("cache_hit", st.CacheHit).
		Int("specialized", st.Specialized).
		Int("fallback", st.Fallback).
		Int("cached_scalars", st.CachedScalars).
		Dur("elapsed", time.Since(start)).
		Msg("ran")
	return res, err
}

func (cli *command) logRunError(name string, err error) {
	if vril.IsFault(err) {
		cli.log.Errorf("%v: %+v", name, err)
	} else {
		cli.log.Errorf("%v: %v", name, err)
	}
}

func (cli *command) printResult(name string, res interface{}) {
	cli.outLock.Lock()
	defer cli.outLock.Unlock()
	if flag.NArg() > 1 {
		fmt.Fprintf(cli.out, "%v: ", name)
	}
	fmt.Fprintf(cli.out, "%# v\n", pretty.Formatter(res))
	cli.log.ErrorIf(cli.out.Flush())
}
