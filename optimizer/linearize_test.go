package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/egraph"
)

func countVarUses(b *compiler.Block, name string) int {
	n := 0
	compiler.Walk(b, func(node compiler.Node) bool {
		if v, ok := node.(*compiler.Var); ok && v.Name == name {
			n++
		}
		return true
	})
	return n
}

func TestLinearizeSharesNodeUsedThreeTimes(t *testing.T) {
	term := egraph.Term{Nodes: []egraph.Node{
		egraph.IOInit(),    // 0
		egraph.Num(0),      // 1
		egraph.Arg(1),      // 2: used three times
		egraph.Add(2, 2),   // 3
		egraph.IOSeq(0, 3), // 4
		egraph.IOSeq(4, 2), // 5
	}}

	block, err := Linearize(term, LinearizeOptions{})
	require.NoError(t, err)
	require.Len(t, block.Stmts, 3)

	assign, ok := block.Stmts[0].(*compiler.Assign)
	require.True(t, ok)
	assert.Equal(t, "t2", assign.Target.Name)
	assert.Equal(t, "args(0)", compiler.FormatExpr(assign.Value))
	// Three reads plus the assignment target.
	assert.Equal(t, 4, countVarUses(block, "t2"))

	assert.Equal(t, "t2 = args(0);\nprint t2 + t2;\nprint t2;\n",
		compiler.Format(&compiler.Program{Body: block}))
}

func TestLinearizeLiterals(t *testing.T) {
	term := egraph.Term{Nodes: []egraph.Node{
		egraph.IOInit(),    // 0
		egraph.Num(7),      // 1
		egraph.Mul(1, 1),   // 2
		egraph.IOSeq(0, 2), // 3
	}}

	block, err := Linearize(term, LinearizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "t1 = 7;\nprint t1 * t1;\n", compiler.Format(&compiler.Program{Body: block}))

	block, err = Linearize(term, LinearizeOptions{RematerializeLiterals: true})
	require.NoError(t, err)
	assert.Equal(t, "print 7 * 7;\n", compiler.Format(&compiler.Program{Body: block}))
}

func TestLinearizeAvoidsSymbolNames(t *testing.T) {
	opt, _ := optimize(t, "print t1 + t1;")
	block := opt.Body
	require.Len(t, block.Stmts, 2)
	assign, ok := block.Stmts[0].(*compiler.Assign)
	require.True(t, ok)
	assert.Equal(t, "t1_", assign.Target.Name)
	assert.Equal(t, "t1", compiler.FormatExpr(assign.Value))
}

func TestLinearizeRejectsMalformedTerms(t *testing.T) {
	tests := []struct {
		name  string
		nodes []egraph.Node
	}{
		{"empty", nil},
		{"value root", []egraph.Node{egraph.Num(1)}},
		{"forward reference", []egraph.Node{egraph.IOInit(), egraph.IOSeq(0, 2), egraph.Num(1)}},
		{"effect as value", []egraph.Node{egraph.IOInit(), egraph.IOSeq(0, 0)}},
		{"value as effect", []egraph.Node{egraph.Num(1), egraph.IOSeq(0, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Linearize(egraph.Term{Nodes: tt.nodes}, LinearizeOptions{})
			assert.Error(t, err)
		})
	}
}
