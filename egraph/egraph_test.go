package egraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddHashConses(t *testing.T) {
	g := New()
	x := g.Add(Symbol("x"))
	one := g.Add(Num(1))
	a := g.Add(Add(x, one))
	b := g.Add(Add(x, one))

	assert.Equal(t, a, b)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.ClassCount())

	id, ok := g.Lookup(Add(x, one))
	require.True(t, ok)
	assert.Equal(t, a, id)

	_, ok = g.Lookup(Add(one, x))
	assert.False(t, ok)
}

func TestUnionRestoresCongruence(t *testing.T) {
	g := New()
	a := g.Add(Symbol("a"))
	b := g.Add(Symbol("b"))
	c := g.Add(Symbol("c"))
	fa := g.Add(Mul(a, c))
	fb := g.Add(Mul(b, c))
	ffa := g.Add(Add(fa, fa))
	ffb := g.Add(Add(fb, fb))
	require.NotEqual(t, g.Find(fa), g.Find(fb))

	_, changed := g.Union(a, b)
	require.True(t, changed)
	assert.False(t, g.Clean())
	g.Rebuild()
	assert.True(t, g.Clean())

	assert.Equal(t, g.Find(fa), g.Find(fb), "congruent parents merge")
	assert.Equal(t, g.Find(ffa), g.Find(ffb), "and so do their parents")
	assert.Equal(t, 4, g.ClassCount())
	// a, b, c, one Mul and one Add survive deduplication.
	assert.Equal(t, 5, g.NodeCount())

	_, changed = g.Union(a, b)
	assert.False(t, changed)
}

func TestClassNodesAreCanonicalAndSorted(t *testing.T) {
	g := New()
	x := g.Add(Symbol("x"))
	zero := g.Add(Num(0))
	sum := g.Add(Add(x, zero))
	g.Union(sum, x)
	g.Rebuild()

	class := g.Class(x)
	require.Len(t, class.Nodes, 2)
	assert.Equal(t, KindSymbol, class.Nodes[0].Kind)
	assert.Equal(t, KindAdd, class.Nodes[1].Kind)
	assert.Equal(t, g.Find(x), class.Nodes[1].Args[0], "self-reference is canonical")

	assert.Equal(t, []ID{g.Find(x), g.Find(zero)}, g.ClassIDs())
}

func TestKindArity(t *testing.T) {
	assert.Equal(t, 0, KindNum.Arity())
	assert.Equal(t, 1, KindArg.Arity())
	assert.Equal(t, 2, KindIOSeq.Arity())
	assert.Equal(t, "io-seq", KindIOSeq.String())
	assert.Len(t, Arg(3).Children(), 1)
}
