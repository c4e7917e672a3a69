package server

import (
	"strings"
	"sync"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	text := "print total"
	pos := protocol.Position{Line: 0, Character: 11}
	prefix := extractPrefix(text, pos)
	if prefix != "total" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "total")
	}
}

func TestExtractPrefix_AtStart(t *testing.T) {
	text := "pri"
	pos := protocol.Position{Line: 0, Character: 3}
	prefix := extractPrefix(text, pos)
	if prefix != "pri" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "pri")
	}
}

func TestExtractPrefix_EmptyLine(t *testing.T) {
	text := ""
	pos := protocol.Position{Line: 0, Character: 0}
	prefix := extractPrefix(text, pos)
	if prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_MultiLine(t *testing.T) {
	text := "first line\nsecond line\nwhi"
	pos := protocol.Position{Line: 2, Character: 3}
	prefix := extractPrefix(text, pos)
	if prefix != "whi" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "whi")
	}
}

func TestExtractPrefix_AfterOperator(t *testing.T) {
	text := "x = y*cou"
	pos := protocol.Position{Line: 0, Character: 9}
	prefix := extractPrefix(text, pos)
	if prefix != "cou" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "cou")
	}
}

func TestExtractPrefix_CursorAtBeginning(t *testing.T) {
	text := "hello"
	pos := protocol.Position{Line: 0, Character: 0}
	prefix := extractPrefix(text, pos)
	if prefix != "" {
		t.Errorf("extractPrefix at position 0 = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_LineBeyondDocument(t *testing.T) {
	text := "single line"
	pos := protocol.Position{Line: 5, Character: 0}
	prefix := extractPrefix(text, pos)
	if prefix != "" {
		t.Errorf("extractPrefix beyond doc = %q, want empty string", prefix)
	}
}

// ---------------------------------------------------------------------------
// extractWord
// ---------------------------------------------------------------------------

func TestExtractWord_SimpleWord(t *testing.T) {
	text := "hello world"
	pos := protocol.Position{Line: 0, Character: 3}
	word := extractWord(text, pos)
	if word != "hello" {
		t.Errorf("extractWord = %q, want %q", word, "hello")
	}
}

func TestExtractWord_AtSpace(t *testing.T) {
	text := "hello world"
	// Cursor just past "hello": walking back finds the word.
	pos := protocol.Position{Line: 0, Character: 5}
	word := extractWord(text, pos)
	if word != "hello" {
		t.Errorf("extractWord at space = %q, want %q", word, "hello")
	}
}

func TestExtractWord_SecondWord(t *testing.T) {
	text := "hello world"
	pos := protocol.Position{Line: 0, Character: 8}
	word := extractWord(text, pos)
	if word != "world" {
		t.Errorf("extractWord = %q, want %q", word, "world")
	}
}

func TestExtractWord_EmptyLine(t *testing.T) {
	text := ""
	pos := protocol.Position{Line: 0, Character: 0}
	word := extractWord(text, pos)
	if word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

func TestExtractWord_MultiLine(t *testing.T) {
	text := "first\r\ncounter"
	pos := protocol.Position{Line: 1, Character: 3}
	word := extractWord(text, pos)
	if word != "counter" {
		t.Errorf("extractWord = %q, want %q", word, "counter")
	}
}

func TestExtractWord_WithUnderscore(t *testing.T) {
	text := "print my_var+1;"
	pos := protocol.Position{Line: 0, Character: 9}
	word := extractWord(text, pos)
	if word != "my_var" {
		t.Errorf("extractWord = %q, want %q", word, "my_var")
	}
}

func TestExtractWord_LineBeyondDocument(t *testing.T) {
	text := "single line"
	pos := protocol.Position{Line: 5, Character: 0}
	word := extractWord(text, pos)
	if word != "" {
		t.Errorf("extractWord beyond doc = %q, want empty string", word)
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Errorf("boolPtr(true) = %v", p)
	}
	if p := boolPtr(false); p == nil || *p {
		t.Errorf("boolPtr(false) = %v", p)
	}
}

// ---------------------------------------------------------------------------
// Document analysis (hover, definition, references, completion)
// ---------------------------------------------------------------------------

const factorial = `x = 10;
y = 1;
while x > 0 do
  y = y * x;
  x = x - 1;
end
print y;
`

func TestDocument_Hover(t *testing.T) {
	doc := analyze("file:///f.ql", factorial)

	h := doc.hover("y")
	if h == nil {
		t.Fatal("hover(y) = nil")
	}
	value := h.Contents.(protocol.MarkupContent).Value
	for _, want := range []string{"**y**", "slot 1 of 2", "assigned 2 times", "read 2 times"} {
		if !strings.Contains(value, want) {
			t.Errorf("hover(y) = %q, missing %q", value, want)
		}
	}

	if h := doc.hover("while"); h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "nonzero") {
		t.Errorf("hover(while) = %v", h)
	}
	if h := doc.hover("nothing"); h != nil {
		t.Errorf("hover(nothing) = %v, want nil", h)
	}
}

func TestDocument_HoverUnassigned(t *testing.T) {
	doc := analyze("file:///f.ql", "print q;")
	h := doc.hover("q")
	if h == nil {
		t.Fatal("hover(q) = nil")
	}
	if value := h.Contents.(protocol.MarkupContent).Value; !strings.Contains(value, "never assigned") {
		t.Errorf("hover(q) = %q", value)
	}
}

func TestDocument_Definition(t *testing.T) {
	doc := analyze("file:///f.ql", factorial)
	locs := doc.definition("y")
	if len(locs) != 1 {
		t.Fatalf("definition(y) = %v, want one location", locs)
	}
	r := locs[0].Range
	if r.Start.Line != 1 || r.Start.Character != 0 || r.End.Character != 1 {
		t.Errorf("definition(y) range = %+v, want line 1, characters 0-1", r)
	}
	if locs[0].URI != "file:///f.ql" {
		t.Errorf("definition URI = %q", locs[0].URI)
	}
	if locs := doc.definition("nothing"); locs != nil {
		t.Errorf("definition(nothing) = %v, want nil", locs)
	}
}

func TestDocument_References(t *testing.T) {
	doc := analyze("file:///f.ql", factorial)

	all := doc.references("x", true)
	if len(all) != 5 {
		t.Fatalf("references(x, decl) = %d locations, want 5", len(all))
	}
	reads := doc.references("x", false)
	if len(reads) != 3 {
		t.Fatalf("references(x) = %d locations, want 3", len(reads))
	}
	// Source order: the loop condition comes first.
	if reads[0].Range.Start.Line != 2 || reads[0].Range.Start.Character != 6 {
		t.Errorf("first read of x at %+v, want 2:6", reads[0].Range.Start)
	}
}

func TestDocument_Complete(t *testing.T) {
	doc := analyze("file:///f.ql", "total = 1;\ntally = 2;\nprint t")

	var labels []string
	for _, item := range doc.complete("t") {
		labels = append(labels, item.Label)
	}
	got := strings.Join(labels, ",")
	if got != "then,tally,total" {
		t.Errorf("complete(t) = %s, want then,tally,total", got)
	}

	if items := doc.complete("zzz"); len(items) != 0 {
		t.Errorf("complete(zzz) = %v, want nothing", items)
	}
}

func TestDocument_Diagnostics(t *testing.T) {
	doc := analyze("file:///f.ql", "print a;\nx = ;\nprint never;\na = 1;\n")
	diags := doc.protocolDiagnostics()

	var errs, warnings int
	for _, d := range diags {
		switch *d.Severity {
		case protocol.DiagnosticSeverityError:
			errs++
		case protocol.DiagnosticSeverityWarning:
			warnings++
		}
		if *d.Source != lspName {
			t.Errorf("diagnostic source = %q", *d.Source)
		}
	}
	// The syntax error on line 2 and the read of never.
	if errs != 2 {
		t.Errorf("errors = %d, want 2: %+v", errs, diags)
	}
	// a is read before it is assigned.
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1: %+v", warnings, diags)
	}
	if diags[0].Range.Start.Line != 1 {
		t.Errorf("syntax error on line %d, want 1", diags[0].Range.Start.Line)
	}
}

func TestDocument_CleanHasNoDiagnostics(t *testing.T) {
	diags := analyze("file:///f.ql", factorial).protocolDiagnostics()
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %v, want an empty list", diags)
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorker_SerializesAndRecovers(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	_, err := w.Do(func(ws *workspace) interface{} {
		ws.docs["a"] = analyze("a", "x = 1; print x;")
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	got := w.withDocument("a", func(doc *document) interface{} {
		return len(doc.references("x", true))
	})
	if got != 2 {
		t.Errorf("references via worker = %v, want 2", got)
	}
	if got := w.withDocument("missing", func(*document) interface{} { return 1 }); got != nil {
		t.Errorf("missing document = %v, want nil", got)
	}

	_, err = w.Do(func(ws *workspace) interface{} {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("panic error = %v", err)
	}
}

func TestWorker_Stop(t *testing.T) {
	w := NewWorker()
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(*workspace) interface{} { return nil }); err != ErrWorkerStopped {
		t.Errorf("Do after Stop = %v, want ErrWorkerStopped", err)
	}
}

func TestWorker_ConcurrentStop(t *testing.T) {
	w := NewWorker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()
	if _, err := w.Do(func(*workspace) interface{} { return nil }); err != ErrWorkerStopped {
		t.Errorf("Do after Stop = %v, want ErrWorkerStopped", err)
	}
}
