package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no Span data and
// slot indices instead of variable names. Two programs that differ only in
// how their variables are named produce identical hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type HIntLiteral struct{ Value int64 }

// HSlotRef reads the variable stored in Slot.
type HSlotRef struct{ Slot uint32 }

// HFreeVar reads a variable no statement assigns. The name is kept so that
// two programs failing on different names hash differently.
type HFreeVar struct{ Name string }

type HBinary struct {
	Op    byte
	Left  HNode
	Right HNode
}

type HInput struct{ Index HNode }

func (*HIntLiteral) hnode() {}
func (*HSlotRef) hnode()    {}
func (*HFreeVar) hnode()    {}
func (*HBinary) hnode()     {}
func (*HInput) hnode()      {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type HAssign struct {
	Slot  uint32
	Value HNode
}

type HPrint struct{ Value HNode }

type HIf struct {
	Cond HNode
	Then *HBlock
	Else *HBlock
}

type HWhile struct {
	Cond HNode
	Body *HBlock
}

type HBlock struct{ Stmts []HNode }

// HProgram is the root. NumSlots is part of the hash since it shapes the
// frame the program runs in.
type HProgram struct {
	NumSlots uint32
	Body     *HBlock
}

func (*HAssign) hnode()  {}
func (*HPrint) hnode()   {}
func (*HIf) hnode()      {}
func (*HWhile) hnode()   {}
func (*HBlock) hnode()   {}
func (*HProgram) hnode() {}
