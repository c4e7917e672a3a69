package egraph

import (
	"fmt"
	"math"
	"strings"
)

// Term is an extracted expression stored as an arena. Each node's Args
// index earlier entries of Nodes, so a child shared by several parents
// appears once. The root is the last node.
type Term struct {
	Nodes []Node
}

// Root returns the index of the root node.
func (t Term) Root() ID {
	return ID(len(t.Nodes) - 1)
}

// String renders the term as an s-expression with shared nodes repeated.
func (t Term) String() string {
	if len(t.Nodes) == 0 {
		return "()"
	}
	var sb strings.Builder
	t.write(&sb, t.Root())
	return sb.String()
}

func (t Term) write(sb *strings.Builder, id ID) {
	n := t.Nodes[id]
	if n.Kind.Arity() == 0 {
		sb.WriteString(n.String())
		return
	}
	sb.WriteString("(")
	sb.WriteString(n.Kind.String())
	for _, c := range n.Children() {
		sb.WriteString(" ")
		t.write(sb, c)
	}
	sb.WriteString(")")
}

const infiniteCost = math.MaxUint64

// Extractor picks the cheapest node of every class, where a node costs one
// plus the cost of its children (the size of the tree it stands for). Ties
// go to the node that sorts first, so extraction is deterministic.
type Extractor struct {
	g    *EGraph
	cost map[ID]uint64
	best map[ID]Node
}

// NewExtractor computes best nodes for every class of g. The graph is
// rebuilt first and must not change while the extractor is in use.
func NewExtractor(g *EGraph) *Extractor {
	g.Rebuild()
	e := &Extractor{
		g:    g,
		cost: make(map[ID]uint64),
		best: make(map[ID]Node),
	}
	e.computeCosts()
	return e
}

func (e *Extractor) computeCosts() {
	ids := e.g.ClassIDs()
	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			for _, n := range e.g.classes[id].Nodes {
				c := e.nodeCost(n)
				if c == infiniteCost {
					continue
				}
				old, ok := e.cost[id]
				if !ok || c < old || (c == old && n.less(e.best[id])) {
					e.cost[id] = c
					e.best[id] = n
					changed = true
				}
			}
		}
	}
}

func (e *Extractor) nodeCost(n Node) uint64 {
	total := uint64(1)
	for _, child := range n.Children() {
		c, ok := e.cost[e.g.Find(child)]
		if !ok {
			return infiniteCost
		}
		if c >= infiniteCost-total {
			return infiniteCost - 1
		}
		total += c
	}
	return total
}

// Cost returns the cost of the best term for id's class.
func (e *Extractor) Cost(id ID) (uint64, bool) {
	c, ok := e.cost[e.g.Find(id)]
	return c, ok
}

// FindBest extracts the cheapest term for root. Children are emitted
// before parents and first children before second ones, so an effect
// chain comes out in the order it was built.
func (e *Extractor) FindBest(root ID) (uint64, Term, error) {
	root = e.g.Find(root)
	cost, ok := e.cost[root]
	if !ok {
		return 0, Term{}, fmt.Errorf("egraph: class %d has no finite term", root)
	}
	var t Term
	memo := make(map[ID]ID)
	e.build(root, &t, memo)
	return cost, t, nil
}

func (e *Extractor) build(id ID, t *Term, memo map[ID]ID) ID {
	id = e.g.Find(id)
	if idx, ok := memo[id]; ok {
		return idx
	}
	n := e.best[id]
	for i, child := range n.Children() {
		n.Args[i] = e.build(child, t, memo)
	}
	idx := ID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	memo[id] = idx
	return idx
}
