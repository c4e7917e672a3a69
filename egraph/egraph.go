// Package egraph implements an e-graph: a hash-consed term graph whose
// nodes are grouped into equivalence classes, kept congruence-closed by a
// deferred rebuild, and rewritten to saturation by pattern rules.
package egraph

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Class is an equivalence class of nodes. After Rebuild its nodes are
// canonical, sorted and free of duplicates.
type Class struct {
	ID      ID
	Nodes   []Node
	parents []parentRef
}

// parentRef records a node that uses a class as a child, and the class
// that node lives in.
type parentRef struct {
	node  Node
	class ID
}

// EGraph is a congruence-closed graph of nodes. It is not safe for
// concurrent use.
//
// Add and Union may leave the graph unclean: the hash-cons can hold stale
// keys and congruent nodes may sit in different classes. Rebuild restores
// both invariants; searching and extraction rebuild first.
type EGraph struct {
	unionFind []ID
	classes   []*Class // indexed by ID; nil once merged away
	memo      map[Node]ID

	pending []parentRef
	dirty   *bitset.BitSet

	nodeCount  int
	classCount int
}

// New returns an empty e-graph.
func New() *EGraph {
	return &EGraph{
		memo:  make(map[Node]ID),
		dirty: bitset.New(64),
	}
}

// Find returns the canonical ID of id's class.
func (g *EGraph) Find(id ID) ID {
	root := id
	for g.unionFind[root] != root {
		root = g.unionFind[root]
	}
	for g.unionFind[id] != root {
		next := g.unionFind[id]
		g.unionFind[id] = root
		id = next
	}
	return root
}

func (g *EGraph) canonicalize(n Node) Node {
	return n.mapChildren(g.Find)
}

// Add inserts n and returns its class. A node equal to an existing one
// (after canonicalizing its children) returns the existing class.
func (g *EGraph) Add(n Node) ID {
	n = g.canonicalize(n)
	if id, ok := g.memo[n]; ok {
		return g.Find(id)
	}

	id := ID(len(g.unionFind))
	g.unionFind = append(g.unionFind, id)
	g.classes = append(g.classes, &Class{ID: id, Nodes: []Node{n}})
	for _, child := range n.Children() {
		c := g.classes[child]
		c.parents = append(c.parents, parentRef{node: n, class: id})
	}
	g.memo[n] = id
	g.nodeCount++
	g.classCount++
	return id
}

// Lookup returns the class holding n, if any.
func (g *EGraph) Lookup(n Node) (ID, bool) {
	id, ok := g.memo[g.canonicalize(n)]
	if !ok {
		return 0, false
	}
	return g.Find(id), true
}

// Union merges the classes of a and b. It returns the surviving ID and
// whether anything changed.
func (g *EGraph) Union(a, b ID) (ID, bool) {
	a, b = g.Find(a), g.Find(b)
	if a == b {
		return a, false
	}
	ca, cb := g.classes[a], g.classes[b]
	// Keep the class with more parents so fewer entries are re-examined.
	if len(ca.parents) < len(cb.parents) {
		a, b = b, a
		ca, cb = cb, ca
	}

	g.unionFind[b] = a
	g.pending = append(g.pending, cb.parents...)
	ca.Nodes = append(ca.Nodes, cb.Nodes...)
	ca.parents = append(ca.parents, cb.parents...)
	g.classes[b] = nil
	g.classCount--
	g.dirty.Set(uint(a))
	return a, true
}

// Rebuild restores congruence closure and canonical hash-cons keys.
func (g *EGraph) Rebuild() {
	for len(g.pending) > 0 {
		todo := g.pending
		g.pending = nil
		for _, p := range todo {
			n := g.canonicalize(p.node)
			if n != p.node {
				// The old key mentions a merged-away ID and can never
				// be looked up again.
				delete(g.memo, p.node)
			}
			class := g.Find(p.class)
			if existing, ok := g.memo[n]; ok {
				class, _ = g.Union(existing, class)
			}
			g.memo[n] = class
			g.dirty.Set(uint(class))
		}
	}

	for i, ok := g.dirty.NextSet(0); ok; i, ok = g.dirty.NextSet(i + 1) {
		c := g.classes[g.Find(ID(i))]
		before := len(c.Nodes)
		c.Nodes = g.canonicalNodes(c.Nodes)
		g.nodeCount -= before - len(c.Nodes)
		c.parents = g.canonicalParents(c.parents)
	}
	g.dirty.ClearAll()
}

func (g *EGraph) canonicalNodes(nodes []Node) []Node {
	for i := range nodes {
		nodes[i] = g.canonicalize(nodes[i])
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].less(nodes[j]) })
	out := nodes[:0]
	for i, n := range nodes {
		if i == 0 || n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

func (g *EGraph) canonicalParents(parents []parentRef) []parentRef {
	seen := make(map[Node]bool, len(parents))
	out := parents[:0]
	for _, p := range parents {
		n := g.canonicalize(p.node)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, parentRef{node: n, class: g.Find(p.class)})
	}
	return out
}

// Class returns the class containing id.
func (g *EGraph) Class(id ID) *Class {
	return g.classes[g.Find(id)]
}

// ClassIDs returns the canonical class IDs in ascending order.
func (g *EGraph) ClassIDs() []ID {
	ids := make([]ID, 0, g.classCount)
	for i, c := range g.classes {
		if c != nil {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// NodeCount returns the number of distinct nodes. It may overcount until
// the next Rebuild.
func (g *EGraph) NodeCount() int {
	return g.nodeCount
}

// ClassCount returns the number of classes.
func (g *EGraph) ClassCount() int {
	return g.classCount
}

// Clean reports whether no rebuild is pending.
func (g *EGraph) Clean() bool {
	return len(g.pending) == 0 && g.dirty.None()
}
