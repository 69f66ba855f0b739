package mem

import (
	"fmt"
	"strconv"
)

// DataType tags the element type held by a Container buffer.
type DataType uint8

// Element types; Void marks an empty container, Any is only meaningful as an
// instruction type annotation.
const (
	Void DataType = iota
	Int64
	Float64
	Bool
	String
	Any
)

var typeNames = [...]string{
	Void:    "void",
	Int64:   "int",
	Float64: "float",
	Bool:    "bool",
	String:  "string",
	Any:     "any",
}

func (t DataType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// IsConcrete returns true for the element types a buffer can hold.
func (t DataType) IsConcrete() bool { return t >= Int64 && t <= String }

// ParseDataType resolves an assembly type name; "long" and "double" are
// accepted as spellings of int and float.
func ParseDataType(name string) (DataType, bool) {
	switch name {
	case "void":
		return Void, true
	case "int", "long":
		return Int64, true
	case "float", "double":
		return Float64, true
	case "bool":
		return Bool, true
	case "string":
		return String, true
	case "any":
		return Any, true
	}
	return Void, false
}

// Partition names an address space of the virtual memory.
type Partition uint8

// Partitions; None is the zero value so that a zero Operand means "no operand".
const (
	None Partition = iota
	Global
	Local
	Constant
	Register
	Stack

	NumPartitions = int(Stack) + 1
)

var partitionNames = [...]string{
	None:     "none",
	Global:   "global",
	Local:    "local",
	Constant: "constant",
	Register: "register",
	Stack:    "stack",
}

var partitionLetters = [...]byte{
	None:     '-',
	Global:   'G',
	Local:    'L',
	Constant: 'C',
	Register: 'R',
	Stack:    'S',
}

func (p Partition) String() string {
	if int(p) < len(partitionNames) {
		return partitionNames[p]
	}
	return fmt.Sprintf("Partition(%d)", uint8(p))
}

// Letter returns the single letter used for p in dumps and assembly.
func (p Partition) Letter() byte {
	if int(p) < len(partitionLetters) {
		return partitionLetters[p]
	}
	return '?'
}

// Operand addresses one Container; the zero Operand is the absent operand.
type Operand struct {
	Part Partition
	Addr int
}

// NoOperand is the absent operand.
var NoOperand Operand

// At constructs an addressed operand.
func At(part Partition, addr int) Operand { return Operand{part, addr} }

// IsNone returns true for the absent operand.
func (op Operand) IsNone() bool { return op.Part == None }

func (op Operand) String() string {
	if op.Part == None {
		return "-"
	}
	return string(op.Part.Letter()) + strconv.Itoa(op.Addr)
}
