package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: pre-codegen checks
// ---------------------------------------------------------------------------

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// Diagnostic is a problem found by the analyzer. Diagnostics never stop
// compilation by themselves; an error-severity diagnostic predicts a
// compile failure.
type Diagnostic struct {
	Span     Span
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	pos := d.Span.Start
	return fmt.Sprintf("%s: line %d, column %d: %s", d.Severity, pos.Line, pos.Column, d.Message)
}

// SemanticAnalyzer checks variable use before code generation. It reports
// reads of variables that are never assigned and reads that may happen
// before the first assignment on some path. The VM zeroes every slot on
// entry, so the latter read 0 rather than fault.
type SemanticAnalyzer struct {
	diagnostics []Diagnostic
	assigned    map[string]bool // assigned anywhere in the program
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

// Diagnostics returns accumulated diagnostics.
func (s *SemanticAnalyzer) Diagnostics() []Diagnostic {
	return s.diagnostics
}

func (s *SemanticAnalyzer) errorAt(node Node, format string, args ...interface{}) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Span:     node.Span(),
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...interface{}) {
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Span:     node.Span(),
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AnalyzeProgram performs semantic analysis on a program.
func (s *SemanticAnalyzer) AnalyzeProgram(prog *Program) {
	slots, _ := AssignSlots(prog.Body)
	s.assigned = make(map[string]bool, len(slots))
	for name := range slots {
		s.assigned[name] = true
	}
	s.analyzeBlock(prog.Body, varSet{})
}

// varSet holds the variables definitely assigned at a program point.
type varSet map[string]bool

func (v varSet) clone() varSet {
	out := make(varSet, len(v))
	for k := range v {
		out[k] = true
	}
	return out
}

func (v varSet) intersect(o varSet) varSet {
	out := make(varSet)
	for k := range v {
		if o[k] {
			out[k] = true
		}
	}
	return out
}

// analyzeBlock walks b with the definitely-assigned set def and returns
// the set at the end of the block.
func (s *SemanticAnalyzer) analyzeBlock(b *Block, def varSet) varSet {
	if b == nil {
		return def
	}
	for _, stmt := range b.Stmts {
		def = s.analyzeStmt(stmt, def)
	}
	return def
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt, def varSet) varSet {
	switch st := stmt.(type) {
	case *Assign:
		s.analyzeExpr(st.Value, def)
		def = def.clone()
		def[st.Target.Name] = true
		return def
	case *Print:
		s.analyzeExpr(st.Value, def)
		return def
	case *If:
		s.analyzeExpr(st.Cond, def)
		thenDef := s.analyzeBlock(st.Then, def)
		elseDef := s.analyzeBlock(st.Else, def)
		return thenDef.intersect(elseDef)
	case *While:
		s.analyzeExpr(st.Cond, def)
		if lit, ok := st.Cond.(*IntLiteral); ok && lit.Value != 0 {
			s.warnAt(st.Cond, "loop condition is always nonzero; the loop never ends")
		}
		s.analyzeBlock(st.Body, def)
		// The body may run zero times.
		return def
	}
	return def
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr, def varSet) {
	Walk(expr, func(n Node) bool {
		v, ok := n.(*Var)
		if !ok {
			return true
		}
		switch {
		case !s.assigned[v.Name]:
			s.errorAt(v, "variable %q is never assigned", v.Name)
		case !def[v.Name]:
			s.warnAt(v, "variable %q may be read before it is assigned (reads as 0)", v.Name)
		}
		return true
	})
}

// Analyze performs semantic analysis and returns diagnostics in source
// order.
func Analyze(prog *Program) []Diagnostic {
	s := NewSemanticAnalyzer()
	s.AnalyzeProgram(prog)
	diags := s.Diagnostics()
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Span.Start, diags[j].Span.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return diags
}
