package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	promptMain  = "vril> "
	promptCont  = "....> "
	historyFile = ".vril_history"
)

// repl reads programs interactively; a program ends at an empty line, and
// every program runs on the same VM so that repeating one hits the
// re-execution cache.
func (cli *command) repl(ctx context.Context) error {
	vm, err := cli.newVM("repl")
	if err != nil {
		return err
	}
	defer func() { cli.log.ErrorIf(vm.Close()) }()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		src, ok := readProgram(ln)
		if !ok {
			return nil
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case ":quit":
			return nil
		}
		res, err := cli.runOnce(ctx, vm, "repl", src)
		if err != nil {
			cli.logRunError("repl", err)
			continue
		}
		cli.printResult("repl", res)
	}
	return ctx.Err()
}

// readProgram collects lines up to the next empty one; each line is added to
// the history on its own.
func readProgram(ln *liner.State) (string, bool) {
	var lines []string
	for {
		prompt := promptMain
		if len(lines) > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return strings.Join(lines, "\n"), len(lines) > 0
		}
		if err != nil {
			return "", false
		}
		if strings.TrimSpace(line) == "" || (len(lines) == 0 && strings.HasPrefix(line, ":")) {
			return strings.Join(append(lines, line), "\n"), true
		}
		ln.AppendHistory(line)
		lines = append(lines, line)
	}
}
