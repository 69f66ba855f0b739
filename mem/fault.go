package mem

import "fmt"

// Fault is the panic value raised for internal consistency violations: an
// address outside the allocated range, an unknown partition, or a container
// accessed as the wrong element type. Faults indicate a broken contract
// between the assembler and the processors, so they abort the run and are
// only recovered at the API boundary.
type Fault struct {
	Op     string
	Addr   Operand
	Detail string
}

func (f Fault) Error() string {
	switch {
	case f.Addr.IsNone() && f.Detail == "":
		return fmt.Sprintf("memory fault in %v", f.Op)
	case f.Addr.IsNone():
		return fmt.Sprintf("memory fault in %v: %v", f.Op, f.Detail)
	case f.Detail == "":
		return fmt.Sprintf("memory fault in %v @%v", f.Op, f.Addr)
	}
	return fmt.Sprintf("memory fault in %v @%v: %v", f.Op, f.Addr, f.Detail)
}

func fault(op string, addr Operand, detail string, args ...interface{}) {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	panic(Fault{op, addr, detail})
}
