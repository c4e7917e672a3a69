package egraph

import (
	"fmt"
)

// Rewrite is a named rule: wherever Searcher matches, the class is merged
// with the term Applier builds from the same bindings.
type Rewrite struct {
	Name     string
	Searcher *Pattern
	Applier  *Pattern
}

// NewRewrite parses both sides of a rule. Every variable on the right must
// appear on the left.
func NewRewrite(name, lhs, rhs string) (*Rewrite, error) {
	searcher, err := ParsePattern(lhs)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	if searcher.Var != "" {
		return nil, fmt.Errorf("rule %s: left side must not be a bare variable", name)
	}
	applier, err := ParsePattern(rhs)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	bound := make(map[string]bool)
	for _, v := range searcher.Vars() {
		bound[v] = true
	}
	for _, v := range applier.Vars() {
		if !bound[v] {
			return nil, fmt.Errorf("rule %s: variable %s is not bound by %s", name, v, lhs)
		}
	}
	return &Rewrite{Name: name, Searcher: searcher, Applier: applier}, nil
}

// MustRewrite is like NewRewrite but panics on error.
func MustRewrite(name, lhs, rhs string) *Rewrite {
	r, err := NewRewrite(name, lhs, rhs)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Rewrite) String() string {
	return fmt.Sprintf("%s: %s => %s", r.Name, r.Searcher, r.Applier)
}

// apply instantiates the right side for every binding of m and merges it
// into the matched class. It returns how many unions changed the graph.
func (r *Rewrite) apply(g *EGraph, m Match) int {
	changed := 0
	for _, s := range m.Substs {
		id := r.Applier.Instantiate(g, s)
		if _, merged := g.Union(m.Class, id); merged {
			changed++
		}
	}
	return changed
}
