package optimizer

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/egraph"
)

var log = commonlog.GetLogger("quill.optimizer")

// ErrBudgetExhausted is returned by Optimize when Config.StrictBudget is
// set and the runner stopped before saturation.
var ErrBudgetExhausted = errors.New("optimizer: rewrite budget exhausted")

// Config controls one optimization.
type Config struct {
	IterLimit int      // zero means egraph.DefaultIterLimit
	NodeLimit int      // zero means egraph.DefaultNodeLimit
	Rules     []string // rule names; empty selects every rule

	// StrictBudget turns an exhausted budget into ErrBudgetExhausted
	// instead of extracting from the partially saturated graph.
	StrictBudget bool

	RematerializeLiterals bool
}

// Report describes an optimization.
type Report struct {
	egraph.Report

	Cost        uint64 // size of the extracted term
	Statements  int
	Temporaries int

	// DroppedInputs counts args(i) reads whose value no print depends on.
	// The optimized program skips them, so an out-of-range index there no
	// longer stops it.
	DroppedInputs int
}

// Optimize rewrites a straight-line program into an equivalent one that
// prints the same values in the same order.
//
// Errors are returned unchanged from the builder, so callers can test for
// ErrUnsupported. On error the program is nil; the report is non-nil only
// when saturation ran.
func Optimize(prog *compiler.Program, cfg Config) (*compiler.Program, *Report, error) {
	if prog == nil || prog.Body == nil {
		return nil, nil, fmt.Errorf("optimizer: empty program")
	}
	rules, err := SelectRules(cfg.Rules)
	if err != nil {
		return nil, nil, err
	}

	g, root, err := BuildGraph(prog.Body)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("built graph: %d nodes in %d classes", g.NodeCount(), g.ClassCount())

	runner := egraph.NewRunner()
	if cfg.IterLimit > 0 {
		runner.IterLimit = cfg.IterLimit
	}
	if cfg.NodeLimit > 0 {
		runner.NodeLimit = cfg.NodeLimit
	}
	report := &Report{Report: runner.Run(g, rules)}
	log.Debugf("saturation: %s after %d iterations, %d nodes in %d classes",
		report.Stop, report.Iterations, report.Nodes, report.Classes)

	if report.Stop.Exhausted() {
		if cfg.StrictBudget {
			return nil, report, fmt.Errorf("%w: %s after %d iterations", ErrBudgetExhausted, report.Stop, report.Iterations)
		}
		log.Warningf("rewriting stopped on %s after %d iterations; result is partially optimized",
			report.Stop, report.Iterations)
	}

	cost, term, err := egraph.NewExtractor(g).FindBest(root)
	if err != nil {
		return nil, report, fmt.Errorf("optimizer: %w", err)
	}
	block, err := Linearize(term, LinearizeOptions{RematerializeLiterals: cfg.RematerializeLiterals})
	if err != nil {
		return nil, report, err
	}

	report.Cost = cost
	report.Statements = len(block.Stmts)
	for _, s := range block.Stmts {
		if _, ok := s.(*compiler.Assign); ok {
			report.Temporaries++
		}
	}
	report.DroppedInputs = droppedInputs(g, term)
	if report.DroppedInputs > 0 {
		log.Warningf("%d unused args(i) reads removed; an out-of-range index there no longer faults",
			report.DroppedInputs)
	}
	log.Infof("optimized %d statements into %d (%d temporaries, cost %d)",
		len(prog.Body.Stmts), report.Statements, report.Temporaries, cost)
	return &compiler.Program{Body: block}, report, nil
}

// droppedInputs returns how many argument-read classes of g the term does
// not compute.
func droppedInputs(g *egraph.EGraph, term egraph.Term) int {
	inGraph := 0
	for _, id := range g.ClassIDs() {
		for _, n := range g.Class(id).Nodes {
			if n.Kind == egraph.KindArg {
				inGraph++
				break
			}
		}
	}
	inTerm := 0
	for _, n := range term.Nodes {
		if n.Kind == egraph.KindArg {
			inTerm++
		}
	}
	if inTerm > inGraph {
		return 0
	}
	return inGraph - inTerm
}
