package vm

import (
	"errors"
	"fmt"
)

// ErrFault is matched by every *Fault via errors.Is.
var ErrFault = errors.New("vm fault")

// FaultKind classifies a runtime fault.
type FaultKind int

const (
	FaultStackUnderflow FaultKind = iota
	FaultLocalOutOfRange
	FaultArgOutOfRange
	FaultPCOutOfBounds
	FaultFrameUnderflow
	FaultBadOpcode
)

var faultKindNames = [...]string{
	FaultStackUnderflow:  "stack underflow",
	FaultLocalOutOfRange: "local index out of range",
	FaultArgOutOfRange:   "argument index out of range",
	FaultPCOutOfBounds:   "program counter out of bounds",
	FaultFrameUnderflow:  "frame underflow",
	FaultBadOpcode:       "unknown opcode",
}

func (k FaultKind) String() string {
	if int(k) < len(faultKindNames) {
		return faultKindNames[k]
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// Fault is an unrecoverable execution error. It records the instruction
// that was executing when the machine stopped.
type Fault struct {
	Kind   FaultKind
	PC     int
	Insn   Insn
	Detail string
}

func (f *Fault) Error() string {
	if f.Kind == FaultPCOutOfBounds {
		return fmt.Sprintf("vm: %s at pc %d: %s", f.Kind, f.PC, f.Detail)
	}
	if f.Detail == "" {
		return fmt.Sprintf("vm: %s at pc %d (%s)", f.Kind, f.PC, f.Insn)
	}
	return fmt.Sprintf("vm: %s at pc %d (%s): %s", f.Kind, f.PC, f.Insn, f.Detail)
}

// Is reports whether target is ErrFault.
func (f *Fault) Is(target error) bool {
	return target == ErrFault
}
