package mem

// Layout describes what Allocate needs to know about an assembled program.
type Layout interface {
	// MaxAddress returns the highest address used in a partition, or -1.
	MaxAddress(part Partition) int

	// Immediates returns the constant pool: immediate text by constant address.
	Immediates() []string
}

// Memory is the partitioned virtual memory of one program run.
type Memory struct {
	parts [NumPartitions][]*Container
	stack []*Container
}

// Allocate lays out memory for a program: empty containers for every local
// and register address, globals bound by identity, and decoded constants.
func Allocate(layout Layout, globals []*Container) (*Memory, error) {
	var m Memory
	m.parts[Local] = emptyContainers(layout.MaxAddress(Local) + 1)
	m.parts[Register] = emptyContainers(layout.MaxAddress(Register) + 1)
	m.BindGlobals(globals)

	imms := layout.Immediates()
	consts := make([]*Container, len(imms))
	for i, text := range imms {
		c, err := DecodeImmediate(text)
		if err != nil {
			return nil, err
		}
		consts[i] = c
	}
	m.parts[Constant] = consts
	return &m, nil
}

func emptyContainers(n int) []*Container {
	if n <= 0 {
		return nil
	}
	cs := make([]*Container, n)
	for i := range cs {
		cs[i] = &Container{}
	}
	return cs
}

// BindGlobals replaces the global partition with the given containers,
// indexed by global address.
func (m *Memory) BindGlobals(globals []*Container) {
	m.parts[Global] = append(m.parts[Global][:0], globals...)
}

// Rewind prepares a used memory for another run of the same program: the
// stack is dropped and every local and register alias link is cut.
func (m *Memory) Rewind() {
	for i := range m.stack {
		m.stack[i] = nil
	}
	m.stack = m.stack[:0]
	for _, part := range [...]Partition{Local, Register} {
		for _, c := range m.parts[part] {
			c.Unalias()
		}
	}
}

// Len returns the number of addressable containers in a partition.
func (m *Memory) Len(part Partition) int {
	if part == Stack {
		return len(m.stack)
	}
	if part == None || int(part) >= NumPartitions {
		fault("len", At(part, 0), "unknown partition")
	}
	return len(m.parts[part])
}

// Get returns the container at op; the absent operand yields a fresh empty
// container. Any address outside the allocated range is a fault.
func (m *Memory) Get(op Operand) *Container {
	switch op.Part {
	case None:
		return &Container{}
	case Stack:
		if op.Addr < 0 || op.Addr >= len(m.stack) {
			fault("get", op, "outside stack of %v", len(m.stack))
		}
		return m.stack[op.Addr]
	case Global, Local, Constant, Register:
		cs := m.parts[op.Part]
		if op.Addr < 0 || op.Addr >= len(cs) {
			fault("get", op, "outside %v partition of %v", op.Part, len(cs))
		}
		return cs[op.Addr]
	}
	fault("get", op, "unknown partition")
	return nil
}

// Set stores c at op, padding the partition with empty containers when op
// lies past its end.
func (m *Memory) Set(op Operand, c *Container) {
	switch op.Part {
	case Global, Local, Constant, Register:
	default:
		fault("set", op, "not a settable partition")
	}
	if op.Addr < 0 {
		fault("set", op, "negative address")
	}
	cs := m.parts[op.Part]
	for len(cs) <= op.Addr {
		cs = append(cs, &Container{})
	}
	cs[op.Addr] = c
	m.parts[op.Part] = cs
}

// Push pushes c onto the stack.
func (m *Memory) Push(c *Container) { m.stack = append(m.stack, c) }

// Pop removes and returns the top of the stack.
func (m *Memory) Pop() *Container {
	i := len(m.stack) - 1
	if i < 0 {
		fault("pop", NoOperand, "stack underflow")
	}
	c := m.stack[i]
	m.stack[i] = nil
	m.stack = m.stack[:i]
	return c
}

// Peek returns the top of the stack without removing it.
func (m *Memory) Peek() *Container {
	i := len(m.stack) - 1
	if i < 0 {
		fault("peek", NoOperand, "stack underflow")
	}
	return m.stack[i]
}
