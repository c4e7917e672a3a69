package optimizer

import (
	"errors"
	"fmt"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/egraph"
)

// ErrUnsupported is matched by every *UnsupportedError.
var ErrUnsupported = errors.New("unsupported construct")

// UnsupportedError reports a statement the graph builder cannot
// translate.
type UnsupportedError struct {
	Construct string // "if" or "while"
	Span      compiler.Span
}

func (e *UnsupportedError) Error() string {
	if e.Span.Start.Line == 0 {
		return fmt.Sprintf("optimizer: %s statements cannot be optimized", e.Construct)
	}
	return fmt.Sprintf("optimizer: line %d, column %d: %s statements cannot be optimized",
		e.Span.Start.Line, e.Span.Start.Column, e.Construct)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// graphBuilder threads the variable bindings and the effect chain through
// one translation.
type graphBuilder struct {
	g        *egraph.EGraph
	env      map[string]egraph.ID
	assigned map[string]int
	ioRoot   egraph.ID
}

// BuildGraph translates a straight-line block into an e-graph and returns
// the class of the last effect. Each assignment rebinds its variable to the
// value's class; each print extends the effect chain.
//
// A read of a variable that is assigned later in the block sees the zeroed
// slot and becomes the literal 0. A read of a variable the block never
// assigns is an error wrapping compiler.ErrUnresolvedVariable, the same
// error compiling the block would report.
func BuildGraph(block *compiler.Block) (*egraph.EGraph, egraph.ID, error) {
	g := egraph.New()
	slots, _ := compiler.AssignSlots(block)
	b := &graphBuilder{
		g:        g,
		env:      make(map[string]egraph.ID),
		assigned: slots,
		ioRoot:   g.Add(egraph.IOInit()),
	}
	if err := b.block(block); err != nil {
		return nil, 0, err
	}
	return g, b.ioRoot, nil
}

func (b *graphBuilder) block(block *compiler.Block) error {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *compiler.Assign:
			value, err := b.expr(s.Value)
			if err != nil {
				return err
			}
			b.env[s.Target.Name] = value
		case *compiler.Print:
			value, err := b.expr(s.Value)
			if err != nil {
				return err
			}
			b.ioRoot = b.g.Add(egraph.IOSeq(b.ioRoot, value))
		case *compiler.If:
			return &UnsupportedError{Construct: "if", Span: s.Span()}
		case *compiler.While:
			return &UnsupportedError{Construct: "while", Span: s.Span()}
		default:
			return fmt.Errorf("optimizer: unknown statement %T", stmt)
		}
	}
	return nil
}

func (b *graphBuilder) expr(e compiler.Expr) (egraph.ID, error) {
	switch e := e.(type) {
	case *compiler.IntLiteral:
		return b.g.Add(egraph.Num(e.Value)), nil
	case *compiler.Var:
		if id, ok := b.env[e.Name]; ok {
			return id, nil
		}
		if _, ok := b.assigned[e.Name]; ok {
			return b.g.Add(egraph.Num(0)), nil
		}
		if e.SpanVal.Start.Line > 0 {
			return 0, fmt.Errorf("optimizer: %w %q at line %d", compiler.ErrUnresolvedVariable, e.Name, e.SpanVal.Start.Line)
		}
		return 0, fmt.Errorf("optimizer: %w %q", compiler.ErrUnresolvedVariable, e.Name)
	case *compiler.BinaryExpr:
		l, err := b.expr(e.Left)
		if err != nil {
			return 0, err
		}
		r, err := b.expr(e.Right)
		if err != nil {
			return 0, err
		}
		return b.g.Add(binaryNode(e.Op, l, r)), nil
	case *compiler.InputExpr:
		index, err := b.expr(e.Index)
		if err != nil {
			return 0, err
		}
		return b.g.Add(egraph.Arg(index)), nil
	}
	return 0, fmt.Errorf("optimizer: unknown expression %T", e)
}

func binaryNode(op compiler.BinOp, l, r egraph.ID) egraph.Node {
	switch op {
	case compiler.OpAdd:
		return egraph.Add(l, r)
	case compiler.OpSub:
		return egraph.Sub(l, r)
	case compiler.OpMul:
		return egraph.Mul(l, r)
	case compiler.OpLt:
		return egraph.Lt(l, r)
	case compiler.OpGt:
		return egraph.Gt(l, r)
	}
	panic(fmt.Sprintf("optimizer: unknown operator %d", op))
}
