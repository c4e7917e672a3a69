package optimizer

import (
	"fmt"
	"strconv"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/egraph"
)

// LinearizeOptions tunes how a term is turned back into statements.
type LinearizeOptions struct {
	// RematerializeLiterals repeats shared integer literals at each use
	// instead of binding them to a temporary.
	RematerializeLiterals bool
}

// linearizer holds the state of one Linearize call.
type linearizer struct {
	term  egraph.Term
	opts  LinearizeOptions
	uses  []int
	names map[egraph.ID]string
	exprs map[egraph.ID]compiler.Expr
	taken map[string]bool
	stmts []compiler.Stmt
}

// Linearize turns an extracted term rooted at an effect into a block.
//
// Nodes used more than once are computed once into a temporary named
// t<index>; nodes used once are inlined at their use. Effect nodes become
// Print statements in chain order.
func Linearize(term egraph.Term, opts LinearizeOptions) (*compiler.Block, error) {
	if len(term.Nodes) == 0 {
		return nil, fmt.Errorf("optimizer: empty term")
	}
	if root := term.Nodes[term.Root()].Kind; !isEffect(root) {
		return nil, fmt.Errorf("optimizer: term root is %s, not an effect", root)
	}

	l := &linearizer{
		term:  term,
		opts:  opts,
		uses:  make([]int, len(term.Nodes)),
		names: make(map[egraph.ID]string),
		exprs: make(map[egraph.ID]compiler.Expr),
		taken: make(map[string]bool),
	}
	if err := l.countUses(); err != nil {
		return nil, err
	}
	for i := range term.Nodes {
		if err := l.emit(egraph.ID(i)); err != nil {
			return nil, err
		}
	}
	return &compiler.Block{Stmts: l.stmts}, nil
}

func isEffect(k egraph.Kind) bool {
	return k == egraph.KindIOInit || k == egraph.KindIOSeq
}

func (l *linearizer) countUses() error {
	for i, n := range l.term.Nodes {
		if n.Kind == egraph.KindSymbol {
			l.taken[n.Symbol] = true
		}
		for _, c := range n.Children() {
			if int(c) >= i {
				return fmt.Errorf("optimizer: node %d refers forward to %d", i, c)
			}
			l.uses[c]++
		}
	}
	return nil
}

// temp returns a temporary name for node id that no symbol in the term
// already uses.
func (l *linearizer) temp(id egraph.ID) string {
	name := "t" + strconv.Itoa(int(id))
	for l.taken[name] {
		name += "_"
	}
	l.taken[name] = true
	return name
}

// shared reports whether node id is bound to a temporary.
func (l *linearizer) shared(id egraph.ID) bool {
	if l.uses[id] <= 1 {
		return false
	}
	n := l.term.Nodes[id]
	if isEffect(n.Kind) {
		return false
	}
	return !(l.opts.RematerializeLiterals && n.Kind == egraph.KindNum)
}

// use returns the expression standing for an already emitted value node.
func (l *linearizer) use(parent, id egraph.ID) (compiler.Expr, error) {
	n := l.term.Nodes[id]
	if isEffect(n.Kind) {
		return nil, fmt.Errorf("optimizer: node %d uses effect %d as a value", parent, id)
	}
	if name, ok := l.names[id]; ok {
		return &compiler.Var{Name: name}, nil
	}
	if n.Kind == egraph.KindNum && l.uses[id] > 1 {
		return &compiler.IntLiteral{Value: n.Value}, nil
	}
	e, ok := l.exprs[id]
	if !ok {
		return nil, fmt.Errorf("optimizer: node %d has no value", id)
	}
	delete(l.exprs, id)
	return e, nil
}

func (l *linearizer) emit(id egraph.ID) error {
	n := l.term.Nodes[id]
	var e compiler.Expr
	switch n.Kind {
	case egraph.KindIOInit:
		return nil
	case egraph.KindIOSeq:
		if prev := l.term.Nodes[n.Args[0]].Kind; !isEffect(prev) {
			return fmt.Errorf("optimizer: effect %d follows non-effect %s", id, prev)
		}
		value, err := l.use(id, n.Args[1])
		if err != nil {
			return err
		}
		l.stmts = append(l.stmts, &compiler.Print{Value: value})
		return nil
	case egraph.KindNum:
		e = &compiler.IntLiteral{Value: n.Value}
	case egraph.KindSymbol:
		e = &compiler.Var{Name: n.Symbol}
	case egraph.KindArg:
		index, err := l.use(id, n.Args[0])
		if err != nil {
			return err
		}
		e = &compiler.InputExpr{Index: index}
	case egraph.KindAdd, egraph.KindSub, egraph.KindMul, egraph.KindLt, egraph.KindGt:
		left, err := l.use(id, n.Args[0])
		if err != nil {
			return err
		}
		right, err := l.use(id, n.Args[1])
		if err != nil {
			return err
		}
		e = &compiler.BinaryExpr{Op: binOps[n.Kind], Left: left, Right: right}
	default:
		return fmt.Errorf("optimizer: cannot linearize node kind %s", n.Kind)
	}

	if l.shared(id) {
		name := l.temp(id)
		l.names[id] = name
		l.stmts = append(l.stmts, &compiler.Assign{Target: &compiler.Var{Name: name}, Value: e})
		return nil
	}
	l.exprs[id] = e
	return nil
}

var binOps = map[egraph.Kind]compiler.BinOp{
	egraph.KindAdd: compiler.OpAdd,
	egraph.KindSub: compiler.OpSub,
	egraph.KindMul: compiler.OpMul,
	egraph.KindLt:  compiler.OpLt,
	egraph.KindGt:  compiler.OpGt,
}
