package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("quill.vm")

// ---------------------------------------------------------------------------
// VM: the stack machine
// ---------------------------------------------------------------------------

// VM executes one Chunk against an operand stack and a frame-addressed
// locals array. A VM is owned by a single goroutine and runs exactly once.
type VM struct {
	code []Insn
	args []int64

	stack  []int64
	locals []int64
	fp     int // base of the active frame in locals
	pc     int

	out     io.Writer
	printed []int64

	steps    uint64
	halted   bool
	fault    *Fault
	profiler *Profiler
}

// NewVM prepares a VM for chunk with the given argument vector. The chunk
// is not copied and must not be modified while the VM runs.
func NewVM(chunk *Chunk, args []int64) *VM {
	return &VM{
		code:  chunk.Code,
		args:  args,
		stack: make([]int64, 0, 64),
		out:   os.Stdout,
	}
}

// SetOutput redirects printed values. A nil writer discards them; they are
// still recorded and available from Printed.
func (vm *VM) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	vm.out = w
}

// SetProfiler attaches a profiler built for the same chunk. Nil detaches.
func (vm *VM) SetProfiler(p *Profiler) {
	vm.profiler = p
}

// Printed returns the values printed so far, in order.
func (vm *VM) Printed() []int64 {
	return vm.printed
}

// Halted reports whether the VM executed Halt.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Run executes until Halt or a fault.
func (vm *VM) Run() error {
	for {
		running, err := vm.Step()
		if err != nil {
			log.Debugf("stopped after %d steps: %s", vm.steps, err)
			return err
		}
		if !running {
			log.Debugf("halted after %d steps, %d values printed", vm.steps, len(vm.printed))
			return nil
		}
	}
}

// Step executes one instruction. It returns false once the VM has halted.
// After a fault every further call returns the same fault.
func (vm *VM) Step() (bool, error) {
	if vm.fault != nil {
		return false, vm.fault
	}
	if vm.halted {
		return false, nil
	}
	if vm.pc < 0 || vm.pc >= len(vm.code) {
		return false, vm.fail(FaultPCOutOfBounds, Insn{}, fmt.Sprintf("code has %d instructions", len(vm.code)))
	}

	insn := vm.code[vm.pc]
	vm.steps++
	if vm.profiler != nil {
		vm.profiler.record(vm.pc, insn)
	}
	next := vm.pc + 1

	switch insn.Op {
	case OpHalt:
		vm.halted = true
		return false, nil

	case OpLiteral:
		vm.push(insn.Arg)

	case OpAdd, OpSub, OpMul, OpLessThan, OpGreaterThan:
		if len(vm.stack) < 2 {
			return false, vm.fail(FaultStackUnderflow, insn, "")
		}
		right := vm.pop()
		left := vm.pop()
		vm.push(binary(insn.Op, left, right))

	case OpPrint:
		if len(vm.stack) < 1 {
			return false, vm.fail(FaultStackUnderflow, insn, "")
		}
		v := vm.pop()
		vm.printed = append(vm.printed, v)
		if _, err := fmt.Fprintln(vm.out, v); err != nil {
			return false, fmt.Errorf("vm: print at pc %d: %w", vm.pc, err)
		}

	case OpInputRead:
		if len(vm.stack) < 1 {
			return false, vm.fail(FaultStackUnderflow, insn, "")
		}
		idx := vm.pop()
		if idx < 0 || idx >= int64(len(vm.args)) {
			return false, vm.fail(FaultArgOutOfRange, insn, fmt.Sprintf("index %d, %d arguments", idx, len(vm.args)))
		}
		vm.push(vm.args[idx])

	case OpEnter:
		n := int(insn.Arg)
		if n < 0 {
			return false, vm.fail(FaultFrameUnderflow, insn, "negative slot count")
		}
		vm.locals = append(vm.locals, int64(vm.fp))
		vm.fp = len(vm.locals)
		for range n {
			vm.locals = append(vm.locals, 0)
		}

	case OpExit:
		n := int(insn.Arg)
		if n < 0 || vm.fp == 0 || len(vm.locals)-n != vm.fp {
			return false, vm.fail(FaultFrameUnderflow, insn,
				fmt.Sprintf("frame at %d holds %d slots", vm.fp, len(vm.locals)-vm.fp))
		}
		vm.locals = vm.locals[:vm.fp]
		saved := vm.locals[len(vm.locals)-1]
		vm.locals = vm.locals[:len(vm.locals)-1]
		vm.fp = int(saved)

	case OpGetLocal:
		idx, ok := vm.local(insn.Arg)
		if !ok {
			return false, vm.fail(FaultLocalOutOfRange, insn, fmt.Sprintf("frame at %d, %d locals", vm.fp, len(vm.locals)))
		}
		vm.push(vm.locals[idx])

	case OpSetLocal:
		idx, ok := vm.local(insn.Arg)
		if !ok {
			return false, vm.fail(FaultLocalOutOfRange, insn, fmt.Sprintf("frame at %d, %d locals", vm.fp, len(vm.locals)))
		}
		if len(vm.stack) < 1 {
			return false, vm.fail(FaultStackUnderflow, insn, "")
		}
		vm.locals[idx] = vm.pop()

	case OpBranch:
		next = vm.pc + int(insn.Arg)

	case OpBranchIfZero:
		if len(vm.stack) < 1 {
			return false, vm.fail(FaultStackUnderflow, insn, "")
		}
		if vm.pop() == 0 {
			next = vm.pc + int(insn.Arg)
		}

	default:
		return false, vm.fail(FaultBadOpcode, insn, "")
	}

	vm.pc = next
	return true, nil
}

func binary(op Opcode, left, right int64) int64 {
	switch op {
	case OpAdd:
		return left + right
	case OpSub:
		return left - right
	case OpMul:
		return left * right
	case OpLessThan:
		if left < right {
			return 1
		}
		return 0
	case OpGreaterThan:
		if left > right {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("binary: not a binary opcode: %s", op))
}

func (vm *VM) push(v int64) {
	vm.stack = append(vm.stack, v)
}

// pop assumes the caller checked the stack depth.
func (vm *VM) pop() int64 {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) local(slot int64) (int, bool) {
	if slot < 0 {
		return 0, false
	}
	idx := vm.fp + int(slot)
	if vm.fp == 0 || idx >= len(vm.locals) {
		return 0, false
	}
	return idx, true
}

func (vm *VM) fail(kind FaultKind, insn Insn, detail string) *Fault {
	vm.fault = &Fault{Kind: kind, PC: vm.pc, Insn: insn, Detail: detail}
	return vm.fault
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// State is a snapshot of the machine for diagnostics. It is informational
// only and not part of a program's observable behavior.
type State struct {
	PC     int     `json:"pc"`
	FP     int     `json:"fp"`
	Stack  []int64 `json:"stack"`
	Locals []int64 `json:"locals"`
	Steps  uint64  `json:"steps"`
	Halted bool    `json:"halted"`
	Fault  string  `json:"fault,omitempty"`
}

// State returns a copy of the current machine state.
func (vm *VM) State() State {
	s := State{
		PC:     vm.pc,
		FP:     vm.fp,
		Stack:  append([]int64{}, vm.stack...),
		Locals: append([]int64{}, vm.locals...),
		Steps:  vm.steps,
		Halted: vm.halted,
	}
	if vm.fault != nil {
		s.Fault = vm.fault.Error()
	}
	return s
}

// DumpState writes a short human-readable state summary.
func (vm *VM) DumpState(w io.Writer) error {
	s := vm.State()
	var sb strings.Builder
	fmt.Fprintf(&sb, "pc: %d\n", s.PC)
	fmt.Fprintf(&sb, "fp: %d\n", s.FP)
	fmt.Fprintf(&sb, "stack: %v\n", s.Stack)
	fmt.Fprintf(&sb, "locals: %v\n", s.Locals)
	fmt.Fprintf(&sb, "steps: %d\n", s.Steps)
	if s.Fault != "" {
		fmt.Fprintf(&sb, "fault: %s\n", s.Fault)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// DumpStateJSON writes the state as an indented JSON object.
func (vm *VM) DumpStateJSON(w io.Writer) error {
	data, err := json.MarshalIndent(vm.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("vm: encode state: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
