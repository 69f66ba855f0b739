package asm

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Dump writes a human readable listing of prog: a hash header followed by
// its instructions and symbol tables.
func (prog *Program) Dump(out io.Writer) error {
	dump := programDumper{prog: prog, out: out}
	sum := prog.Hash()
	dump.printf("# Program Dump\n")
	dump.printf("  hash: %x\n", sum[:8])
	dump.dumpBody()
	return dump.err
}

// Hash returns a content hash over the program's instructions and symbol
// tables; two programs that hash equal execute identically.
func (prog *Program) Hash() (sum [blake2b.Size256]byte) {
	h, _ := blake2b.New256(nil)
	dump := programDumper{prog: prog, out: h}
	dump.dumpBody()
	copy(sum[:], h.Sum(nil))
	return sum
}

type programDumper struct {
	prog *Program
	out  io.Writer
	err  error

	addrWidth int
}

func (dump *programDumper) printf(format string, args ...interface{}) {
	if dump.err == nil {
		_, dump.err = fmt.Fprintf(dump.out, format, args...)
	}
}

func (dump *programDumper) dumpBody() {
	dump.addrWidth = len(strconv.Itoa(len(dump.prog.Code)))
	dump.dumpInfo()
	dump.dumpCode()
	dump.dumpTable("Labels", &dump.prog.Labels, "@")
	dump.dumpTable("Functions", &dump.prog.Functions, "#")
	dump.dumpTable("Globals", &dump.prog.Globals, "G")
	dump.dumpTable("Locals", &dump.prog.Locals, "L")
	dump.dumpConstants()
	dump.dumpRegisters()
	if !dump.prog.Result.IsNone() {
		dump.printf("## Result\n  %v\n", dump.prog.Result)
	}
}

func (dump *programDumper) dumpInfo() {
	if len(dump.prog.Info) == 0 {
		return
	}
	keys := make([]string, 0, len(dump.prog.Info))
	for k := range dump.prog.Info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dump.printf("## Info\n")
	for _, k := range keys {
		dump.printf("  %v %q\n", k, dump.prog.Info[k])
	}
}

func (dump *programDumper) dumpCode() {
	dump.printf("## Instructions\n")
	for pc, in := range dump.prog.Code {
		dump.printf("  @%-*d %v", dump.addrWidth, pc, in)
		if !in.Meta.IsNone() {
			dump.printf("  # %v", in.Meta)
		}
		dump.printf("\n")
	}
}

func (dump *programDumper) dumpTable(title string, st *SymbolTable, prefix string) {
	if st.Len() == 0 {
		return
	}
	dump.printf("## %v\n", title)
	for _, name := range st.Names() {
		addr, _ := st.Addr(name)
		dump.printf("  %v%v %v\n", prefix, addr, name)
	}
}

func (dump *programDumper) dumpConstants() {
	if dump.prog.Constants.Len() == 0 {
		return
	}
	dump.printf("## Constants\n")
	for addr, text := range dump.prog.Immediates() {
		dump.printf("  C%v %v\n", addr, text)
	}
}

func (dump *programDumper) dumpRegisters() {
	regs := dump.prog.Registers()
	if len(regs) == 0 {
		return
	}
	var sb strings.Builder
	for i, r := range regs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('R')
		sb.WriteString(strconv.Itoa(r))
	}
	dump.printf("## Registers\n  %v\n", sb.String())
}
