package compiler

import (
	"strings"
	"testing"
)

func TestAnalyzeNeverAssigned(t *testing.T) {
	diags := Analyze(mustParse(t, "x = 1;\nprint x + y;"))
	if len(diags) != 1 {
		t.Fatalf("got %v, want one diagnostic", diags)
	}
	d := diags[0]
	if d.Severity != SeverityError || !strings.Contains(d.Message, `"y" is never assigned`) {
		t.Errorf("unexpected diagnostic: %s", d)
	}
	if d.Span.Start.Line != 2 || d.Span.Start.Column != 11 {
		t.Errorf("diagnostic at %+v, want line 2 column 11", d.Span.Start)
	}
}

func TestAnalyzeMaybeUnassigned(t *testing.T) {
	tests := []struct {
		name   string
		source string
		warn   string // variable expected in a warning, or "" for none
	}{
		{"assigned first", "x = 1; print x;", ""},
		{"both branches assign", "if 1 then x = 1; else x = 2; end print x;", ""},
		{"one branch assigns", "if 1 then x = 1; end print x;", "x"},
		{"loop body may not run", "n = 0; while n do x = 1; n = 0; end print x;", "x"},
		{"read before write in loop", "n = 1; while n do print x; x = 1; n = 0; end", "x"},
		{"self reference", "x = x + 1;", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Analyze(mustParse(t, tt.source))
			if tt.warn == "" {
				if len(diags) != 0 {
					t.Errorf("unexpected diagnostics: %v", diags)
				}
				return
			}
			if len(diags) != 1 {
				t.Fatalf("got %v, want one warning", diags)
			}
			if diags[0].Severity != SeverityWarning || !strings.Contains(diags[0].Message, `"`+tt.warn+`" may be read before`) {
				t.Errorf("unexpected diagnostic: %s", diags[0])
			}
		})
	}
}

func TestAnalyzeInfiniteLoop(t *testing.T) {
	diags := Analyze(mustParse(t, "while 1 do print 1; end"))
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "never ends") {
		t.Errorf("got %v, want a never-ending loop warning", diags)
	}
}

func TestAnalyzeSortedBySource(t *testing.T) {
	diags := Analyze(mustParse(t, "print b;\nprint a;\nif 1 then c = 1; end print c;"))
	if len(diags) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %v", len(diags), diags)
	}
	for i := 1; i < len(diags); i++ {
		if diags[i].Span.Start.Line < diags[i-1].Span.Start.Line {
			t.Errorf("diagnostics out of order: %v", diags)
		}
	}
}
