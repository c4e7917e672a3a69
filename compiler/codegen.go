package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/quill/vm"
)

// ErrUnresolvedVariable is returned when an expression reads a variable
// that no statement in the program assigns. It signals a malformed tree.
var ErrUnresolvedVariable = errors.New("unresolved variable")

// ---------------------------------------------------------------------------
// Codegen: compile AST to bytecode
// ---------------------------------------------------------------------------

// Compiler lowers a Program to a vm.Chunk. A Compiler may be reused; each
// CompileProgram call starts from scratch.
type Compiler struct {
	slots map[string]int // variable name -> slot index
	names []string       // slot index -> variable name
	code  []vm.Insn
}

// NewCompiler creates a new compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// CompileProgram compiles prog into a frame-scoped, halting chunk.
func (c *Compiler) CompileProgram(prog *Program) (*vm.Chunk, error) {
	c.slots, c.names = AssignSlots(prog.Body)
	c.code = nil

	n := len(c.names)
	c.emit(vm.Enter(n))
	if err := c.compileBlock(prog.Body); err != nil {
		return nil, err
	}
	c.emit(vm.Exit(n))
	c.emit(vm.Halt())

	return &vm.Chunk{
		Code:      c.code,
		NumSlots:  n,
		SlotNames: append([]string(nil), c.names...),
	}, nil
}

// Slots returns the slot assignment of the last compiled program.
func (c *Compiler) Slots() map[string]int {
	out := make(map[string]int, len(c.slots))
	for k, v := range c.slots {
		out[k] = v
	}
	return out
}

// AssignSlots gives every distinct assigned variable a slot, in order of
// first assignment. Assignments nested in If and While bodies count; no
// slot is ever reused.
func AssignSlots(b *Block) (map[string]int, []string) {
	slots := make(map[string]int)
	var names []string
	var visit func(*Block)
	visit = func(b *Block) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			switch s := s.(type) {
			case *Assign:
				if _, ok := slots[s.Target.Name]; !ok {
					slots[s.Target.Name] = len(names)
					names = append(names, s.Target.Name)
				}
			case *If:
				visit(s.Then)
				visit(s.Else)
			case *While:
				visit(s.Body)
			case *Print:
			}
		}
	}
	visit(b)
	return slots, names
}

func (c *Compiler) emit(insn vm.Insn) int {
	c.code = append(c.code, insn)
	return len(c.code) - 1
}

// here returns the position of the next instruction.
func (c *Compiler) here() int {
	return len(c.code)
}

// emitPlaceholder emits a branch whose offset is patched later.
func (c *Compiler) emitPlaceholder(op vm.Opcode) int {
	return c.emit(vm.Insn{Op: op})
}

// patchBranch points the branch at site to target.
func (c *Compiler) patchBranch(site, target int) {
	c.code[site].Arg = int64(target - site)
}

// emitBranchTo emits an unconditional branch to an already known target.
func (c *Compiler) emitBranchTo(target int) {
	site := c.here()
	c.emit(vm.Branch(target - site))
}

func (c *Compiler) compileBlock(b *Block) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case *Assign:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(vm.SetLocal(c.slots[s.Target.Name]))
		return nil

	case *Print:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(vm.Print())
		return nil

	case *If:
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		toElse := c.emitPlaceholder(vm.OpBranchIfZero)
		if err := c.compileBlock(s.Then); err != nil {
			return err
		}
		toEnd := c.emitPlaceholder(vm.OpBranch)
		c.patchBranch(toElse, c.here())
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
		c.patchBranch(toEnd, c.here())
		return nil

	case *While:
		loopStart := c.here()
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		toEnd := c.emitPlaceholder(vm.OpBranchIfZero)
		if err := c.compileBlock(s.Body); err != nil {
			return err
		}
		c.emitBranchTo(loopStart)
		c.patchBranch(toEnd, c.here())
		return nil
	}
	return fmt.Errorf("compile: unknown statement %T", stmt)
}

func (c *Compiler) compileExpr(expr Expr) error {
	switch e := expr.(type) {
	case *IntLiteral:
		c.emit(vm.Literal(e.Value))
		return nil

	case *Var:
		slot, ok := c.slots[e.Name]
		if !ok {
			if e.SpanVal.Start.Line > 0 {
				return fmt.Errorf("%w %q at line %d", ErrUnresolvedVariable, e.Name, e.SpanVal.Start.Line)
			}
			return fmt.Errorf("%w %q", ErrUnresolvedVariable, e.Name)
		}
		c.emit(vm.GetLocal(slot))
		return nil

	case *BinaryExpr:
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		op, ok := binOpcodes[e.Op]
		if !ok {
			return fmt.Errorf("compile: unknown operator %d", int(e.Op))
		}
		c.emit(vm.Insn{Op: op})
		return nil

	case *InputExpr:
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		c.emit(vm.InputRead())
		return nil
	}
	return fmt.Errorf("compile: unknown expression %T", expr)
}

var binOpcodes = map[BinOp]vm.Opcode{
	OpAdd: vm.OpAdd,
	OpSub: vm.OpSub,
	OpMul: vm.OpMul,
	OpLt:  vm.OpLessThan,
	OpGt:  vm.OpGreaterThan,
}

// ---------------------------------------------------------------------------
// Compile helper for external use
// ---------------------------------------------------------------------------

// Compile parses and compiles source code.
func Compile(source string) (*vm.Chunk, error) {
	prog, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}
	return NewCompiler().CompileProgram(prog)
}
