package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func run(t *testing.T, code []Insn, args []int64) (*VM, string) {
	t.Helper()
	var out bytes.Buffer
	m := NewVM(&Chunk{Code: code}, args)
	m.SetOutput(&out)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return m, out.String()
}

func runFault(t *testing.T, code []Insn, args []int64) *Fault {
	t.Helper()
	m := NewVM(&Chunk{Code: code}, args)
	m.SetOutput(nil)
	err := m.Run()
	if err == nil {
		t.Fatal("expected a fault")
	}
	if !errors.Is(err, ErrFault) {
		t.Fatalf("error %v should match ErrFault", err)
	}
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("error %T is not a *Fault", err)
	}
	return f
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func TestBinaryOperandOrder(t *testing.T) {
	tests := []struct {
		op   Insn
		want string
	}{
		{Add(), "13\n"},
		{Sub(), "7\n"},
		{Mul(), "30\n"},
		{LessThan(), "0\n"},
		{GreaterThan(), "1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.op.Op.Name(), func(t *testing.T) {
			_, out := run(t, []Insn{Literal(10), Literal(3), tt.op, Print(), Halt()}, nil)
			if out != tt.want {
				t.Errorf("10 %s 3 printed %q, want %q", tt.op.Op.Name(), out, tt.want)
			}
		})
	}
}

func TestArithmeticWraps(t *testing.T) {
	m, _ := run(t, []Insn{Literal(1<<62), Literal(4), Mul(), Print(), Halt()}, nil)
	if got := m.Printed(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Printed() = %v, want [0]", got)
	}
}

func TestInputRead(t *testing.T) {
	m, out := run(t, []Insn{Literal(1), InputRead(), Literal(0), InputRead(), Sub(), Print(), Halt()}, []int64{3, 7})
	if out != "4\n" {
		t.Errorf("printed %q, want %q", out, "4\n")
	}
	if len(m.State().Stack) != 0 {
		t.Errorf("stack should be empty, got %v", m.State().Stack)
	}
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func TestFrameDiscipline(t *testing.T) {
	code := []Insn{
		Enter(2),
		Literal(5), SetLocal(1),
		Enter(1),
		Literal(9), SetLocal(0),
		Exit(1),
		GetLocal(1), Print(),
		Exit(2),
		Halt(),
	}
	m := NewVM(&Chunk{Code: code}, nil)
	m.SetOutput(nil)

	var fpStack []int
	for {
		pc := m.State().PC
		fpBefore := m.State().FP
		localsBefore := len(m.State().Locals)
		running, err := m.Step()
		if err != nil {
			t.Fatalf("Step at pc %d: %v", pc, err)
		}
		if !running {
			break
		}
		insn := code[pc]
		switch insn.Op {
		case OpEnter:
			fpStack = append(fpStack, fpBefore)
			s := m.State()
			if s.FP != localsBefore+1 {
				t.Errorf("pc %d: fp = %d, want %d", pc, s.FP, localsBefore+1)
			}
			if len(s.Locals) != localsBefore+1+int(insn.Arg) {
				t.Errorf("pc %d: %d locals after ENTER, want %d", pc, len(s.Locals), localsBefore+1+int(insn.Arg))
			}
		case OpExit:
			want := fpStack[len(fpStack)-1]
			fpStack = fpStack[:len(fpStack)-1]
			s := m.State()
			if s.FP != want {
				t.Errorf("pc %d: fp after EXIT = %d, want %d", pc, s.FP, want)
			}
			if len(s.Locals) != localsBefore-int(insn.Arg)-1 {
				t.Errorf("pc %d: %d locals after EXIT, want %d", pc, len(s.Locals), localsBefore-int(insn.Arg)-1)
			}
		}
	}

	if len(fpStack) != 0 {
		t.Errorf("unbalanced frames: %v", fpStack)
	}
	if got := m.Printed(); len(got) != 1 || got[0] != 5 {
		t.Errorf("Printed() = %v, want [5]", got)
	}
	if s := m.State(); s.FP != 0 || len(s.Locals) != 0 {
		t.Errorf("final fp=%d locals=%v, want 0 and empty", s.FP, s.Locals)
	}
}

func TestEnterZeroesSlots(t *testing.T) {
	_, out := run(t, []Insn{Enter(3), GetLocal(2), Print(), Exit(3), Halt()}, nil)
	if out != "0\n" {
		t.Errorf("printed %q, want %q", out, "0\n")
	}
}

// ---------------------------------------------------------------------------
// Branches
// ---------------------------------------------------------------------------

func TestBranchIfZeroTakesZeroOnly(t *testing.T) {
	// cond; BZ +4; print 1; BR +3; print 2; HALT
	program := func(cond int64) []Insn {
		return []Insn{
			Literal(cond),
			BranchIfZero(4),
			Literal(1), Print(),
			Branch(3),
			Literal(2), Print(),
			Halt(),
		}
	}
	if _, out := run(t, program(0), nil); out != "2\n" {
		t.Errorf("cond 0 printed %q, want %q", out, "2\n")
	}
	if _, out := run(t, program(-3), nil); out != "1\n" {
		t.Errorf("cond -3 printed %q, want %q", out, "1\n")
	}
}

func TestBackwardBranchCountsDown(t *testing.T) {
	code := []Insn{
		Enter(1),
		Literal(3), SetLocal(0),
		// loop:
		GetLocal(0), Literal(0), GreaterThan(),
		BranchIfZero(8),
		GetLocal(0), Print(),
		GetLocal(0), Literal(1), Sub(), SetLocal(0),
		Branch(-10),
		// end:
		Exit(1),
		Halt(),
	}
	_, out := run(t, code, nil)
	if out != "3\n2\n1\n" {
		t.Errorf("printed %q, want %q", out, "3\n2\n1\n")
	}
}

// ---------------------------------------------------------------------------
// Faults
// ---------------------------------------------------------------------------

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		code []Insn
		args []int64
		kind FaultKind
		pc   int
	}{
		{"add underflow", []Insn{Literal(1), Add(), Halt()}, nil, FaultStackUnderflow, 1},
		{"print underflow", []Insn{Print(), Halt()}, nil, FaultStackUnderflow, 0},
		{"branch underflow", []Insn{BranchIfZero(1), Halt()}, nil, FaultStackUnderflow, 0},
		{"get outside frame", []Insn{Enter(1), GetLocal(1), Halt()}, nil, FaultLocalOutOfRange, 1},
		{"get without frame", []Insn{GetLocal(0), Halt()}, nil, FaultLocalOutOfRange, 0},
		{"negative slot", []Insn{Enter(1), Literal(1), SetLocal(-1), Halt()}, nil, FaultLocalOutOfRange, 2},
		{"arg out of range", []Insn{Literal(2), InputRead(), Halt()}, []int64{1, 2}, FaultArgOutOfRange, 1},
		{"negative arg", []Insn{Literal(-1), InputRead(), Halt()}, []int64{1}, FaultArgOutOfRange, 1},
		{"run off the end", []Insn{Literal(1)}, nil, FaultPCOutOfBounds, 1},
		{"branch before start", []Insn{Branch(-1)}, nil, FaultPCOutOfBounds, -1},
		{"exit without enter", []Insn{Exit(0), Halt()}, nil, FaultFrameUnderflow, 0},
		{"exit size mismatch", []Insn{Enter(2), Exit(1), Halt()}, nil, FaultFrameUnderflow, 1},
		{"unknown opcode", []Insn{{Op: 0xEE}}, nil, FaultBadOpcode, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runFault(t, tt.code, tt.args)
			if f.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", f.Kind, tt.kind)
			}
			if f.PC != tt.pc {
				t.Errorf("pc = %d, want %d", f.PC, tt.pc)
			}
		})
	}
}

func TestFaultIsSticky(t *testing.T) {
	m := NewVM(&Chunk{Code: []Insn{Add(), Halt()}}, nil)
	_, first := m.Step()
	running, second := m.Step()
	if running || second != first {
		t.Errorf("second Step = (%v, %v), want (false, %v)", running, second, first)
	}
}

func TestStepAfterHalt(t *testing.T) {
	m, _ := run(t, []Insn{Literal(4), Halt()}, nil)
	running, err := m.Step()
	if running || err != nil {
		t.Errorf("Step after halt = (%v, %v), want (false, nil)", running, err)
	}
	if !m.Halted() {
		t.Error("Halted() should be true")
	}
	// Halt leaves the stack inspectable.
	if s := m.State(); len(s.Stack) != 1 || s.Stack[0] != 4 {
		t.Errorf("stack = %v, want [4]", s.Stack)
	}
}

// ---------------------------------------------------------------------------
// State dumps
// ---------------------------------------------------------------------------

func TestDumpState(t *testing.T) {
	m, _ := run(t, []Insn{Literal(4), Literal(5), Halt()}, nil)

	var text bytes.Buffer
	if err := m.DumpState(&text); err != nil {
		t.Fatalf("DumpState: %v", err)
	}
	if !strings.Contains(text.String(), "pc: 2\n") || !strings.Contains(text.String(), "stack: [4 5]\n") {
		t.Errorf("unexpected dump:\n%s", text.String())
	}

	var buf bytes.Buffer
	if err := m.DumpStateJSON(&buf); err != nil {
		t.Fatalf("DumpStateJSON: %v", err)
	}
	var s State
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.PC != 2 || !s.Halted || len(s.Stack) != 2 {
		t.Errorf("decoded state = %+v", s)
	}
}

func TestDumpStateAfterFault(t *testing.T) {
	m := NewVM(&Chunk{Code: []Insn{Print()}}, nil)
	_ = m.Run()
	var text bytes.Buffer
	if err := m.DumpState(&text); err != nil {
		t.Fatalf("DumpState: %v", err)
	}
	if !strings.Contains(text.String(), "fault: vm: stack underflow at pc 0") {
		t.Errorf("dump should include the fault:\n%s", text.String())
	}
}
