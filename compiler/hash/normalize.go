package hash

import (
	"github.com/chazu/quill/compiler"
)

// ---------------------------------------------------------------------------
// AST Normalization: compiler AST → frozen hashing AST
//
// Variables become the slot the compiler would give them, so renaming a
// variable consistently does not change the hash.
// ---------------------------------------------------------------------------

type normalizer struct {
	slots map[string]int
}

// NormalizeProgram transforms a compiler Program into a frozen HProgram.
func NormalizeProgram(prog *compiler.Program) *HProgram {
	slots, names := compiler.AssignSlots(prog.Body)
	n := &normalizer{slots: slots}
	return &HProgram{
		NumSlots: uint32(len(names)),
		Body:     n.normalizeBlock(prog.Body),
	}
}

func (n *normalizer) normalizeBlock(b *compiler.Block) *HBlock {
	hb := &HBlock{}
	if b == nil {
		return hb
	}
	hb.Stmts = make([]HNode, len(b.Stmts))
	for i, s := range b.Stmts {
		hb.Stmts[i] = n.normalizeStmt(s)
	}
	return hb
}

func (n *normalizer) normalizeStmt(stmt compiler.Stmt) HNode {
	switch s := stmt.(type) {
	case *compiler.Assign:
		return &HAssign{
			Slot:  uint32(n.slots[s.Target.Name]),
			Value: n.normalizeExpr(s.Value),
		}
	case *compiler.Print:
		return &HPrint{Value: n.normalizeExpr(s.Value)}
	case *compiler.If:
		return &HIf{
			Cond: n.normalizeExpr(s.Cond),
			Then: n.normalizeBlock(s.Then),
			Else: n.normalizeBlock(s.Else),
		}
	case *compiler.While:
		return &HWhile{
			Cond: n.normalizeExpr(s.Cond),
			Body: n.normalizeBlock(s.Body),
		}
	}
	panic("hash: unknown statement type")
}

var opBytes = map[compiler.BinOp]byte{
	compiler.OpAdd: OpByteAdd,
	compiler.OpSub: OpByteSub,
	compiler.OpMul: OpByteMul,
	compiler.OpLt:  OpByteLt,
	compiler.OpGt:  OpByteGt,
}

func (n *normalizer) normalizeExpr(expr compiler.Expr) HNode {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		return &HIntLiteral{Value: e.Value}
	case *compiler.Var:
		if slot, ok := n.slots[e.Name]; ok {
			return &HSlotRef{Slot: uint32(slot)}
		}
		return &HFreeVar{Name: e.Name}
	case *compiler.BinaryExpr:
		return &HBinary{
			Op:    opBytes[e.Op],
			Left:  n.normalizeExpr(e.Left),
			Right: n.normalizeExpr(e.Right),
		}
	case *compiler.InputExpr:
		return &HInput{Index: n.normalizeExpr(e.Index)}
	}
	panic("hash: unknown expression type")
}
