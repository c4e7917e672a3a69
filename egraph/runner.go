package egraph

import (
	"fmt"
)

// StopReason says why a Runner stopped.
type StopReason int

const (
	// StopSaturated means an iteration changed nothing: the graph holds
	// every equality the rules can derive.
	StopSaturated StopReason = iota
	StopIterationLimit
	StopNodeLimit
)

func (r StopReason) String() string {
	switch r {
	case StopSaturated:
		return "saturated"
	case StopIterationLimit:
		return "iteration limit"
	case StopNodeLimit:
		return "node limit"
	}
	return fmt.Sprintf("stop(%d)", int(r))
}

// Exhausted reports whether the runner stopped on a budget rather than at
// a fixpoint.
func (r StopReason) Exhausted() bool {
	return r != StopSaturated
}

// Default budgets.
const (
	DefaultIterLimit = 30
	DefaultNodeLimit = 10000
)

// Runner applies rules to an e-graph until saturation or a budget runs out.
type Runner struct {
	IterLimit int
	NodeLimit int
}

// NewRunner returns a runner with the default budgets.
func NewRunner() *Runner {
	return &Runner{IterLimit: DefaultIterLimit, NodeLimit: DefaultNodeLimit}
}

// Report summarizes a run.
type Report struct {
	Iterations int
	Stop       StopReason
	Nodes      int
	Classes    int
	Applied    map[string]int // changing applications per rule
}

// Run saturates g with rules. Each iteration searches every rule against
// the same clean graph, then applies all matches, then rebuilds, so the
// result does not depend on rule order within an iteration.
func (r *Runner) Run(g *EGraph, rules []*Rewrite) Report {
	report := Report{Applied: make(map[string]int)}
	g.Rebuild()

	stop := StopIterationLimit
loop:
	for report.Iterations < r.IterLimit {
		matches := make([][]Match, len(rules))
		for i, rule := range rules {
			matches[i] = rule.Searcher.Search(g)
		}

		changed := 0
		for i, rule := range rules {
			for _, m := range matches[i] {
				n := rule.apply(g, m)
				changed += n
				report.Applied[rule.Name] += n
				if r.NodeLimit > 0 && g.NodeCount() > r.NodeLimit {
					g.Rebuild()
					report.Iterations++
					stop = StopNodeLimit
					break loop
				}
			}
		}
		g.Rebuild()
		report.Iterations++

		if changed == 0 {
			stop = StopSaturated
			break
		}
	}

	report.Stop = stop
	report.Nodes = g.NodeCount()
	report.Classes = g.ClassCount()
	return report
}
