package egraph

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Pattern is a term with variables, written as an s-expression:
//
//	(+ ?x 0)
//	(* ?a (+ ?b ?c))
//
// Atoms are variables (?name), integer literals, the operator names
// + - * < > arg io-seq, io-init, or any other word, which matches a
// symbol node of that name.
type Pattern struct {
	Var      string // non-empty for a pattern variable
	Kind     Kind
	Value    int64
	Symbol   string
	Children []*Pattern
}

// ParsePattern parses an s-expression pattern.
func ParsePattern(src string) (*Pattern, error) {
	toks := tokenizePattern(src)
	if len(toks) == 0 {
		return nil, fmt.Errorf("pattern %q: empty", src)
	}
	p, rest, err := parsePatternTokens(toks)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", src, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("pattern %q: unexpected %q after pattern", src, rest[0])
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error. It is meant
// for patterns fixed at compile time.
func MustParsePattern(src string) *Pattern {
	p, err := ParsePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

func tokenizePattern(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func parsePatternTokens(toks []string) (*Pattern, []string, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of pattern")
	}
	tok, rest := toks[0], toks[1:]
	switch tok {
	case ")":
		return nil, nil, fmt.Errorf("unexpected )")
	case "(":
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("unexpected end of pattern")
		}
		op := rest[0]
		kind, ok := kindByName[op]
		if !ok {
			return nil, nil, fmt.Errorf("unknown operator %q", op)
		}
		rest = rest[1:]
		p := &Pattern{Kind: kind}
		for len(rest) > 0 && rest[0] != ")" {
			child, r, err := parsePatternTokens(rest)
			if err != nil {
				return nil, nil, err
			}
			p.Children = append(p.Children, child)
			rest = r
		}
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("missing )")
		}
		if len(p.Children) != kind.Arity() {
			return nil, nil, fmt.Errorf("%s takes %d operands, got %d", op, kind.Arity(), len(p.Children))
		}
		return p, rest[1:], nil
	}
	return parseAtom(tok), rest, nil
}

func parseAtom(tok string) *Pattern {
	if strings.HasPrefix(tok, "?") {
		return &Pattern{Var: tok}
	}
	if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return &Pattern{Kind: KindNum, Value: v}
	}
	if tok == "io-init" {
		return &Pattern{Kind: KindIOInit}
	}
	return &Pattern{Kind: KindSymbol, Symbol: tok}
}

// Vars returns the distinct variables of p in first-occurrence order.
func (p *Pattern) Vars() []string {
	var vars []string
	seen := make(map[string]bool)
	var walk func(*Pattern)
	walk = func(p *Pattern) {
		if p.Var != "" {
			if !seen[p.Var] {
				seen[p.Var] = true
				vars = append(vars, p.Var)
			}
			return
		}
		for _, c := range p.Children {
			walk(c)
		}
	}
	walk(p)
	return vars
}

func (p *Pattern) String() string {
	if p.Var != "" {
		return p.Var
	}
	switch p.Kind {
	case KindNum:
		return strconv.FormatInt(p.Value, 10)
	case KindSymbol:
		return p.Symbol
	case KindIOInit:
		return "io-init"
	}
	parts := []string{p.Kind.String()}
	for _, c := range p.Children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// ---------------------------------------------------------------------------
// Matching
// ---------------------------------------------------------------------------

// Subst binds pattern variables to classes.
type Subst struct {
	names []string
	ids   []ID
}

// Get returns the class bound to name.
func (s Subst) Get(name string) (ID, bool) {
	for i, n := range s.names {
		if n == name {
			return s.ids[i], true
		}
	}
	return 0, false
}

// with returns a copy of s extended by name -> id.
func (s Subst) with(name string, id ID) Subst {
	out := Subst{
		names: make([]string, len(s.names), len(s.names)+1),
		ids:   make([]ID, len(s.ids), len(s.ids)+1),
	}
	copy(out.names, s.names)
	copy(out.ids, s.ids)
	out.names = append(out.names, name)
	out.ids = append(out.ids, id)
	return out
}

// Match is every way a pattern matched one class.
type Match struct {
	Class  ID
	Substs []Subst
}

// Search finds every class matching p. The graph is rebuilt first.
func (p *Pattern) Search(g *EGraph) []Match {
	g.Rebuild()
	var matches []Match
	for _, id := range g.ClassIDs() {
		if substs := p.match(g, id, Subst{}); len(substs) > 0 {
			matches = append(matches, Match{Class: id, Substs: substs})
		}
	}
	return matches
}

// SearchClass returns the substitutions under which p matches class id.
func (p *Pattern) SearchClass(g *EGraph, id ID) []Subst {
	g.Rebuild()
	return p.match(g, g.Find(id), Subst{})
}

func (p *Pattern) match(g *EGraph, id ID, s Subst) []Subst {
	id = g.Find(id)
	if p.Var != "" {
		if bound, ok := s.Get(p.Var); ok {
			if g.Find(bound) == id {
				return []Subst{s}
			}
			return nil
		}
		return []Subst{s.with(p.Var, id)}
	}

	var out []Subst
	for _, n := range g.classes[id].Nodes {
		if n.Kind != p.Kind {
			continue
		}
		if (n.Kind == KindNum && n.Value != p.Value) || (n.Kind == KindSymbol && n.Symbol != p.Symbol) {
			continue
		}
		substs := []Subst{s}
		for i, child := range p.Children {
			var next []Subst
			for _, cs := range substs {
				next = append(next, child.match(g, n.Args[i], cs)...)
			}
			substs = next
			if len(substs) == 0 {
				break
			}
		}
		out = append(out, substs...)
	}
	return out
}

// Instantiate adds the term p describes under s and returns its class.
func (p *Pattern) Instantiate(g *EGraph, s Subst) ID {
	if p.Var != "" {
		id, ok := s.Get(p.Var)
		if !ok {
			panic(fmt.Sprintf("egraph: unbound pattern variable %s", p.Var))
		}
		return id
	}
	n := Node{Kind: p.Kind, Value: p.Value, Symbol: p.Symbol}
	for i, c := range p.Children {
		n.Args[i] = c.Instantiate(g, s)
	}
	return g.Add(n)
}
