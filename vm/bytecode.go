package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a single bytecode instruction.
type Opcode byte

// Control
const (
	OpHalt Opcode = 0x00 // stop execution
)

// Constants
const (
	OpLiteral Opcode = 0x10 // push Arg
)

// Arithmetic and comparison (pop right, pop left, push result)
const (
	OpAdd         Opcode = 0x20
	OpSub         Opcode = 0x21
	OpMul         Opcode = 0x22
	OpLessThan    Opcode = 0x23 // push 1 if left < right, else 0
	OpGreaterThan Opcode = 0x24 // push 1 if left > right, else 0
)

// Side effects
const (
	OpPrint     Opcode = 0x30 // pop and emit one value
	OpInputRead Opcode = 0x31 // pop index, push args[index]
)

// Frames and locals
const (
	OpEnter    Opcode = 0x40 // save fp, open a frame of Arg zeroed slots
	OpExit     Opcode = 0x41 // drop Arg slots, restore fp
	OpGetLocal Opcode = 0x42 // push locals[fp+Arg]
	OpSetLocal Opcode = 0x43 // pop into locals[fp+Arg]
)

// Branches (Arg is a signed offset relative to the branch itself)
const (
	OpBranch       Opcode = 0x50
	OpBranchIfZero Opcode = 0x51 // pop; branch only when the value is zero
)

// OpcodeInfo describes an opcode for the disassembler and validation.
type OpcodeInfo struct {
	Name       string
	Pops       int  // values popped from the operand stack
	Pushes     int  // values pushed onto the operand stack
	HasOperand bool // Arg is meaningful
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpHalt:    {"HALT", 0, 0, false},
	OpLiteral: {"LITERAL", 0, 1, true},

	OpAdd:         {"ADD", 2, 1, false},
	OpSub:         {"SUB", 2, 1, false},
	OpMul:         {"MUL", 2, 1, false},
	OpLessThan:    {"LT", 2, 1, false},
	OpGreaterThan: {"GT", 2, 1, false},

	OpPrint:     {"PRINT", 1, 0, false},
	OpInputRead: {"INPUT", 1, 1, false},

	OpEnter:    {"ENTER", 0, 0, true},
	OpExit:     {"EXIT", 0, 0, true},
	OpGetLocal: {"GET_LOCAL", 0, 1, true},
	OpSetLocal: {"SET_LOCAL", 1, 0, true},

	OpBranch:       {"BRANCH", 0, 0, true},
	OpBranchIfZero: {"BRANCH_IF_ZERO", 1, 0, true},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// IsBranch reports whether the opcode transfers control by relative offset.
func (op Opcode) IsBranch() bool {
	return op == OpBranch || op == OpBranchIfZero
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Insn is one decoded instruction. Arg holds the literal value, the slot
// count, the slot index or the relative branch offset depending on Op.
type Insn struct {
	_   struct{} `cbor:",toarray"`
	Op  Opcode
	Arg int64
}

// Instruction constructors.

func Halt() Insn                   { return Insn{Op: OpHalt} }
func Literal(v int64) Insn         { return Insn{Op: OpLiteral, Arg: v} }
func Add() Insn                    { return Insn{Op: OpAdd} }
func Sub() Insn                    { return Insn{Op: OpSub} }
func Mul() Insn                    { return Insn{Op: OpMul} }
func LessThan() Insn               { return Insn{Op: OpLessThan} }
func GreaterThan() Insn            { return Insn{Op: OpGreaterThan} }
func Print() Insn                  { return Insn{Op: OpPrint} }
func InputRead() Insn              { return Insn{Op: OpInputRead} }
func Enter(slots int) Insn         { return Insn{Op: OpEnter, Arg: int64(slots)} }
func Exit(slots int) Insn          { return Insn{Op: OpExit, Arg: int64(slots)} }
func GetLocal(slot int) Insn       { return Insn{Op: OpGetLocal, Arg: int64(slot)} }
func SetLocal(slot int) Insn       { return Insn{Op: OpSetLocal, Arg: int64(slot)} }
func Branch(offset int) Insn       { return Insn{Op: OpBranch, Arg: int64(offset)} }
func BranchIfZero(offset int) Insn { return Insn{Op: OpBranchIfZero, Arg: int64(offset)} }

func (i Insn) String() string {
	info := i.Op.Info()
	if !info.HasOperand {
		return info.Name
	}
	return fmt.Sprintf("%s %d", info.Name, i.Arg)
}

// ---------------------------------------------------------------------------
// Chunk: a compiled program
// ---------------------------------------------------------------------------

// Chunk is a fully resolved, position-addressed instruction array. Branch
// offsets are already patched; nothing is resolved at run time.
type Chunk struct {
	Code     []Insn
	NumSlots int

	// SlotNames[i] is the variable stored in slot i (debug info only).
	SlotNames []string
}

// Len returns the number of instructions.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// BranchTarget returns the absolute target of the branch at pc.
func (c *Chunk) BranchTarget(pc int) int {
	return pc + int(c.Code[pc].Arg)
}

// Validate checks that every branch lands inside the code, that local slot
// operands are in range and that Enter and Exit open and close exactly
// NumSlots slots. Chunks produced by the compiler always pass;
// chunks decoded from images are validated before they run.
func (c *Chunk) Validate() error {
	for pc, insn := range c.Code {
		if _, ok := opcodeTable[insn.Op]; !ok {
			return fmt.Errorf("pc %d: unknown opcode 0x%02X", pc, byte(insn.Op))
		}
		switch insn.Op {
		case OpBranch, OpBranchIfZero:
			target := c.BranchTarget(pc)
			if target < 0 || target >= len(c.Code) {
				return fmt.Errorf("pc %d: branch target %d outside code [0, %d)", pc, target, len(c.Code))
			}
		case OpGetLocal, OpSetLocal:
			if insn.Arg < 0 || insn.Arg >= int64(c.NumSlots) {
				return fmt.Errorf("pc %d: slot %d outside frame of %d", pc, insn.Arg, c.NumSlots)
			}
		case OpEnter, OpExit:
			if insn.Arg != int64(c.NumSlots) {
				return fmt.Errorf("pc %d: %s of %d slots in a chunk of %d", pc, insn.Op, insn.Arg, c.NumSlots)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at pc.
func (c *Chunk) DisassembleInstruction(pc int) string {
	insn := c.Code[pc]
	info := insn.Op.Info()

	switch insn.Op {
	case OpBranch, OpBranchIfZero:
		return fmt.Sprintf("%04d  %s %+d (-> %04d)", pc, info.Name, insn.Arg, c.BranchTarget(pc))
	case OpGetLocal, OpSetLocal:
		if insn.Arg >= 0 && int(insn.Arg) < len(c.SlotNames) {
			return fmt.Sprintf("%04d  %s %d ; %s", pc, info.Name, insn.Arg, c.SlotNames[insn.Arg])
		}
		return fmt.Sprintf("%04d  %s %d", pc, info.Name, insn.Arg)
	default:
		if info.HasOperand {
			return fmt.Sprintf("%04d  %s %d", pc, info.Name, insn.Arg)
		}
		return fmt.Sprintf("%04d  %s", pc, info.Name)
	}
}

// Disassemble returns a listing of the whole chunk.
func Disassemble(c *Chunk) string {
	var sb strings.Builder
	if c.NumSlots > 0 {
		fmt.Fprintf(&sb, "; Locals: %d slots", c.NumSlots)
		if len(c.SlotNames) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(c.SlotNames, ", "))
		}
		sb.WriteString("\n")
	}
	for pc := range c.Code {
		sb.WriteString(c.DisassembleInstruction(pc))
		sb.WriteString("\n")
	}
	return sb.String()
}
