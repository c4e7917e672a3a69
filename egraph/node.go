package egraph

import (
	"fmt"
	"strconv"
)

// ID names an equivalence class. IDs are dense and never reused; after a
// union only the surviving ID is canonical.
type ID uint32

// Kind is the operator of a node.
type Kind uint8

const (
	KindNum    Kind = iota // integer literal
	KindSymbol             // opaque named value
	KindAdd
	KindSub
	KindMul
	KindLt
	KindGt
	KindArg    // program argument; one child, the index
	KindIOInit // start of the effect chain
	KindIOSeq  // effect: (prior effect, printed value)
)

var kindInfo = [...]struct {
	name  string
	arity int
}{
	KindNum:    {"num", 0},
	KindSymbol: {"sym", 0},
	KindAdd:    {"+", 2},
	KindSub:    {"-", 2},
	KindMul:    {"*", 2},
	KindLt:     {"<", 2},
	KindGt:     {">", 2},
	KindArg:    {"arg", 1},
	KindIOInit: {"io-init", 0},
	KindIOSeq:  {"io-seq", 2},
}

// Arity returns the number of children a node of this kind has.
func (k Kind) Arity() int {
	if int(k) < len(kindInfo) {
		return kindInfo[k].arity
	}
	return 0
}

func (k Kind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// kindByName maps pattern operator names back to kinds.
var kindByName = map[string]Kind{
	"+":       KindAdd,
	"-":       KindSub,
	"*":       KindMul,
	"<":       KindLt,
	">":       KindGt,
	"arg":     KindArg,
	"io-init": KindIOInit,
	"io-seq":  KindIOSeq,
}

// Node is one e-node. Nodes are compared by value and used directly as
// hash-cons keys, so unused Args entries must stay zero.
type Node struct {
	Kind   Kind
	Value  int64  // KindNum only
	Symbol string // KindSymbol only
	Args   [2]ID
}

// Node constructors.

func Num(v int64) Node          { return Node{Kind: KindNum, Value: v} }
func Symbol(name string) Node   { return Node{Kind: KindSymbol, Symbol: name} }
func Add(a, b ID) Node          { return Node{Kind: KindAdd, Args: [2]ID{a, b}} }
func Sub(a, b ID) Node          { return Node{Kind: KindSub, Args: [2]ID{a, b}} }
func Mul(a, b ID) Node          { return Node{Kind: KindMul, Args: [2]ID{a, b}} }
func Lt(a, b ID) Node           { return Node{Kind: KindLt, Args: [2]ID{a, b}} }
func Gt(a, b ID) Node           { return Node{Kind: KindGt, Args: [2]ID{a, b}} }
func Arg(index ID) Node         { return Node{Kind: KindArg, Args: [2]ID{index}} }
func IOInit() Node              { return Node{Kind: KindIOInit} }
func IOSeq(prev, value ID) Node { return Node{Kind: KindIOSeq, Args: [2]ID{prev, value}} }

// Children returns the child IDs in order.
func (n Node) Children() []ID {
	return n.Args[:n.Kind.Arity()]
}

// mapChildren returns n with every child replaced by f(child).
func (n Node) mapChildren(f func(ID) ID) Node {
	for i := 0; i < n.Kind.Arity(); i++ {
		n.Args[i] = f(n.Args[i])
	}
	return n
}

// less orders nodes by kind, payload and then children. Extraction breaks
// cost ties with this order.
func (n Node) less(o Node) bool {
	if n.Kind != o.Kind {
		return n.Kind < o.Kind
	}
	if n.Value != o.Value {
		return n.Value < o.Value
	}
	if n.Symbol != o.Symbol {
		return n.Symbol < o.Symbol
	}
	if n.Args[0] != o.Args[0] {
		return n.Args[0] < o.Args[0]
	}
	return n.Args[1] < o.Args[1]
}

func (n Node) String() string {
	switch n.Kind {
	case KindNum:
		return strconv.FormatInt(n.Value, 10)
	case KindSymbol:
		return n.Symbol
	case KindIOInit:
		return "io-init"
	case KindArg:
		return fmt.Sprintf("(arg #%d)", n.Args[0])
	}
	return fmt.Sprintf("(%s #%d #%d)", n.Kind, n.Args[0], n.Args[1])
}
