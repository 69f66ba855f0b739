package proc

import (
	"fmt"

	"github.com/jcorbin/vril/asm"
	"github.com/jcorbin/vril/mem"
)

// Label returns the instruction address held by a label constant.
func Label(c *mem.Container) int { return int(c.Int64()) }

// Branches reports whether JMP (every lane true) or JMPN (every lane false)
// takes its branch on cond.
func Branches(op asm.Opcode, cond *mem.Container) (bool, error) {
	lanes, err := Bools(cond)
	if err != nil {
		return false, err
	}
	want := op == asm.JMP
	for _, v := range lanes {
		if v != want {
			return false, nil
		}
	}
	return true, nil
}

// passed returns the container to hand to a callee for operand i of in;
// constants are copied so that a callee taking them by reference cannot
// change them.
func passed(in *asm.Instruction, ops []*mem.Container, i int) *mem.Container {
	if in.Operands[i].Part == mem.Constant {
		return ops[i].Clone()
	}
	return ops[i]
}

// call pushes the return address and arguments, then enters the function.
func (m *Machine) call(pc int, in *asm.Instruction, ops []*mem.Container) (int, error) {
	fn := Label(ops[1])
	if m.running[fn] {
		return pc, detailf(ErrRecursiveCall, "%v is already running", m.funcName(fn))
	}
	if m.running == nil {
		m.running = make(map[int]bool)
	}
	m.running[fn] = true
	m.mem.Push(mem.Int64Scalar(int64(pc + 1)))
	for i := 2; i < len(ops); i++ {
		m.mem.Push(passed(in, ops, i))
	}
	return fn, nil
}

// ret pops the return address, pushes the return value, and leaves the
// function.
func (m *Machine) ret(in *asm.Instruction, ops []*mem.Container) int {
	addr := Label(m.mem.Pop())
	if len(ops) > 2 {
		m.mem.Push(passed(in, ops, 2))
	} else {
		m.mem.Push(&mem.Container{})
	}
	delete(m.running, Label(ops[1]))
	return addr
}

func (m *Machine) callx(in *asm.Instruction, ops []*mem.Container) error {
	if m.link == nil {
		return detailf(ErrExternalFunction, "no external functions are bound")
	}
	idx := int(ops[1].Int64())
	args := make([]*mem.Container, 0, len(ops)-2)
	for i := 2; i < len(ops); i++ {
		args = append(args, passed(in, ops, i))
	}
	if err := m.link.CallFunction(idx, args, ops[0]); err != nil {
		return fmt.Errorf("%w %v: %w", ErrExternalFunction, m.prog.Functions.Name(idx), err)
	}
	return nil
}

func (m *Machine) endfun(ops []*mem.Container) error {
	name := ""
	if len(ops) > 0 {
		switch c := ops[0]; c.Type() {
		case mem.String:
			name = c.Str()
		case mem.Int64:
			name = m.funcName(Label(c))
		}
	}
	return detailf(ErrNoReturn, "%v", name)
}

func (m *Machine) funcName(addr int) string {
	if name := m.prog.Labels.Name(addr); name != "" {
		return name
	}
	return fmt.Sprintf("@%d", addr)
}
