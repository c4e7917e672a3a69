package compiler

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code. Nodes built by the optimizer
// carry the zero Span.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether pos falls inside the span.
func (s Span) Contains(pos Position) bool {
	if s.Start.Line == 0 {
		return false
	}
	if pos.Line < s.Start.Line || pos.Line > s.End.Line {
		return false
	}
	if pos.Line == s.Start.Line && pos.Column < s.Start.Column {
		return false
	}
	if pos.Line == s.End.Line && pos.Column > s.End.Column {
		return false
	}
	return true
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. The set is closed: Var,
// IntLiteral, BinaryExpr and InputExpr.
type Expr interface {
	Node
	expr() // marker method
}

// Var is a variable reference. Variables compare by name.
type Var struct {
	SpanVal Span
	Name    string
}

func (n *Var) Span() Span { return n.SpanVal }
func (n *Var) node()      {}
func (n *Var) expr()      {}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// BinOp is a binary operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpLt
	OpGt
)

var binOpSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpLt:  "<",
	OpGt:  ">",
}

func (op BinOp) String() string {
	if int(op) >= 0 && int(op) < len(binOpSymbols) {
		return binOpSymbols[op]
	}
	return "?"
}

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	SpanVal Span
	Op      BinOp
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// InputExpr reads the program argument at Index.
type InputExpr struct {
	SpanVal Span
	Index   Expr
}

func (n *InputExpr) Span() Span { return n.SpanVal }
func (n *InputExpr) node()      {}
func (n *InputExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes. The set is closed: Assign,
// Print, If and While.
type Stmt interface {
	Node
	stmt() // marker method
}

// Assign binds Target to the value of Value.
type Assign struct {
	SpanVal Span
	Target  *Var
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// Print emits the value of an expression.
type Print struct {
	SpanVal Span
	Value   Expr
}

func (n *Print) Span() Span { return n.SpanVal }
func (n *Print) node()      {}
func (n *Print) stmt()      {}

// If runs Then when Cond is nonzero and Else otherwise. Else is never nil
// but may be empty.
type If struct {
	SpanVal Span
	Cond    Expr
	Then    *Block
	Else    *Block
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While runs Body for as long as Cond is nonzero.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    *Block
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// ---------------------------------------------------------------------------
// Blocks and programs
// ---------------------------------------------------------------------------

// Block is an ordered sequence of statements.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}

// Program is the root of the tree.
type Program struct {
	SpanVal Span
	Body    *Block
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// IsStraightLine reports whether b contains no If or While statements.
func (b *Block) IsStraightLine() bool {
	for _, s := range b.Stmts {
		switch s.(type) {
		case *If, *While:
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Walking
// ---------------------------------------------------------------------------

// Walk calls fn for n and every node below it in source order. If fn
// returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Program:
		if n.Body != nil {
			Walk(n.Body, fn)
		}
	case *Block:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case *Assign:
		Walk(n.Target, fn)
		Walk(n.Value, fn)
	case *Print:
		Walk(n.Value, fn)
	case *If:
		Walk(n.Cond, fn)
		if n.Then != nil {
			Walk(n.Then, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *While:
		Walk(n.Cond, fn)
		if n.Body != nil {
			Walk(n.Body, fn)
		}
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *InputExpr:
		Walk(n.Index, fn)
	case *Var, *IntLiteral:
	}
}
