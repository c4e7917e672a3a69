package optimizer

import (
	"fmt"

	"github.com/chazu/quill/egraph"
)

// ruleSpecs lists every rule in application order. All of them hold for
// wrapping int64 arithmetic.
var ruleSpecs = []struct{ name, lhs, rhs string }{
	{"add-comm", "(+ ?x ?y)", "(+ ?y ?x)"},
	{"mul-comm", "(* ?x ?y)", "(* ?y ?x)"},
	{"add-0", "(+ ?x 0)", "?x"},
	{"mul-1", "(* ?x 1)", "?x"},
	{"sub-self", "(- ?x ?x)", "0"},
	{"mul-dist-add", "(* ?a (+ ?b ?c))", "(+ (* ?a ?b) (* ?a ?c))"},
}

// RuleNames returns the names of the default rules in order.
func RuleNames() []string {
	names := make([]string, len(ruleSpecs))
	for i, r := range ruleSpecs {
		names[i] = r.name
	}
	return names
}

// DefaultRules returns a fresh copy of the full rule set.
func DefaultRules() []*egraph.Rewrite {
	rules := make([]*egraph.Rewrite, len(ruleSpecs))
	for i, r := range ruleSpecs {
		rules[i] = egraph.MustRewrite(r.name, r.lhs, r.rhs)
	}
	return rules
}

// SelectRules returns the named rules in default order. An empty list
// selects every rule.
func SelectRules(names []string) ([]*egraph.Rewrite, error) {
	all := DefaultRules()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var rules []*egraph.Rewrite
	for _, r := range all {
		if want[r.Name] {
			rules = append(rules, r)
			delete(want, r.Name)
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, fmt.Errorf("optimizer: unknown rule %q", n)
		}
	}
	return rules, nil
}
