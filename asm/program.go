package asm

import (
	"sort"
	"strings"

	"github.com/jcorbin/vril/mem"
)

// Instruction is one assembled, address-resolved instruction.
type Instruction struct {
	Op       Opcode
	Types    []mem.DataType
	Operands []mem.Operand

	// Meta addresses the string constant of the last #META directive, if any.
	Meta mem.Operand
}

// Type returns the i-th type annotation, Void when absent.
func (in Instruction) Type(i int) mem.DataType {
	if i < len(in.Types) {
		return in.Types[i]
	}
	return mem.Void
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for i, t := range in.Types {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte(':')
		}
		sb.WriteString(t.String())
	}
	for _, op := range in.Operands {
		sb.WriteByte(' ')
		sb.WriteString(op.String())
	}
	return sb.String()
}

// SymbolTable is a bidirectional name/address map.
type SymbolTable struct {
	names map[int]string
	addrs map[string]int
	max   int
}

// Addr returns the address bound to name.
func (st SymbolTable) Addr(name string) (int, bool) {
	addr, ok := st.addrs[name]
	return addr, ok
}

// Name returns the name bound to addr, or "".
func (st SymbolTable) Name(addr int) string { return st.names[addr] }

// Len returns the number of bound names.
func (st SymbolTable) Len() int { return len(st.addrs) }

// Max returns the highest bound address, or -1 when empty.
func (st SymbolTable) Max() int {
	if len(st.addrs) == 0 {
		return -1
	}
	return st.max
}

// Names returns every bound name ordered by address.
func (st SymbolTable) Names() []string {
	names := make([]string, 0, len(st.addrs))
	for name := range st.addrs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := st.addrs[names[i]], st.addrs[names[j]]
		if ai != aj {
			return ai < aj
		}
		return names[i] < names[j]
	})
	return names
}

func (st *SymbolTable) define(name string, addr int) {
	if st.addrs == nil {
		st.addrs = make(map[string]int)
		st.names = make(map[int]string)
	}
	if len(st.addrs) == 0 || addr > st.max {
		st.max = addr
	}
	st.addrs[name] = addr
	st.names[addr] = name
}

// symbolicate returns name's address, binding it to the next free address
// when first seen.
func (st *SymbolTable) symbolicate(name string) int {
	if addr, ok := st.addrs[name]; ok {
		return addr
	}
	addr := st.Max() + 1
	st.define(name, addr)
	return addr
}

// Program is assembled object code: the instruction sequence plus its symbol
// tables. It is immutable once assembled and may be shared by any number of
// runs.
type Program struct {
	Code []Instruction

	Locals    SymbolTable
	Globals   SymbolTable
	Functions SymbolTable // external functions by call index
	Labels    SymbolTable // label name to instruction address
	Constants SymbolTable // immediate text to constant address

	// LocalFunctions lists #LOCAL_FUNCTION declarations.
	LocalFunctions []string

	// Info holds language identification directives by directive name.
	Info map[string]string

	// Result is the operand whose value the program returns, the operand of its
	// END instruction; absent for pure statement programs.
	Result mem.Operand

	maxAddr [mem.NumPartitions]int
	regs    []int
}

// Registers returns the register addresses in use, ascending.
func (prog *Program) Registers() []int { return prog.regs }

// MaxAddress returns the highest address used in part, or -1.
func (prog *Program) MaxAddress(part mem.Partition) int {
	if int(part) >= mem.NumPartitions {
		return -1
	}
	return prog.maxAddr[part]
}

// Immediates returns the constant pool text indexed by constant address.
func (prog *Program) Immediates() []string {
	imms := make([]string, prog.Constants.Max()+1)
	for i := range imms {
		imms[i] = prog.Constants.Name(i)
	}
	return imms
}

func (prog *Program) use(op mem.Operand) {
	if op.IsNone() || int(op.Part) >= mem.NumPartitions {
		return
	}
	if op.Addr > prog.maxAddr[op.Part] {
		prog.maxAddr[op.Part] = op.Addr
	}
	if op.Part == mem.Register {
		i := sort.SearchInts(prog.regs, op.Addr)
		if i == len(prog.regs) || prog.regs[i] != op.Addr {
			prog.regs = append(prog.regs, 0)
			copy(prog.regs[i+1:], prog.regs[i:])
			prog.regs[i] = op.Addr
		}
	}
}
