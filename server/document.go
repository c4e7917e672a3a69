package server

import (
	"fmt"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/quill/compiler"
)

// occurrence is one appearance of a variable in the source.
type occurrence struct {
	span   compiler.Span
	assign bool
}

// document is an open .ql file and everything derived from its text.
type document struct {
	uri  string
	text string

	prog        *compiler.Program // partial when syntax errors exist
	syntax      []*compiler.SyntaxError
	diagnostics []compiler.Diagnostic

	slots       map[string]int
	occurrences map[string][]occurrence
}

// analyze parses text and indexes its variables. It never fails; problems
// become diagnostics.
func analyze(uri, text string) *document {
	p := compiler.NewParser(text)
	prog := p.ParseProgram()
	doc := &document{
		uri:         uri,
		text:        text,
		prog:        prog,
		syntax:      p.Errors(),
		occurrences: make(map[string][]occurrence),
	}
	doc.slots, _ = compiler.AssignSlots(prog.Body)
	doc.diagnostics = compiler.Analyze(prog)

	compiler.Walk(prog, func(n compiler.Node) bool {
		switch n := n.(type) {
		case *compiler.Assign:
			doc.add(n.Target, true)
			compiler.Walk(n.Value, func(n compiler.Node) bool {
				if v, ok := n.(*compiler.Var); ok {
					doc.add(v, false)
				}
				return true
			})
			return false
		case *compiler.Var:
			doc.add(n, false)
		}
		return true
	})
	return doc
}

func (d *document) add(v *compiler.Var, assign bool) {
	d.occurrences[v.Name] = append(d.occurrences[v.Name], occurrence{span: v.Span(), assign: assign})
}

// --- Diagnostics ---

func (d *document) protocolDiagnostics() []protocol.Diagnostic {
	source := lspName
	diagnostics := []protocol.Diagnostic{}
	for _, e := range d.syntax {
		severity := protocol.DiagnosticSeverityError
		start := toProtocol(e.Pos)
		end := start
		end.Character++
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Source:   &source,
			Message:  e.Msg,
		})
	}
	for _, diag := range d.diagnostics {
		severity := protocol.DiagnosticSeverityWarning
		if diag.Severity == compiler.SeverityError {
			severity = protocol.DiagnosticSeverityError
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    toRange(diag.Span),
			Severity: &severity,
			Source:   &source,
			Message:  diag.Message,
		})
	}
	return diagnostics
}

// --- Language features ---

var keywordDocs = map[string]string{
	"print": "`print e;` writes the value of `e` on its own line.",
	"if":    "`if c then ... else ... end` runs the first block when `c` is nonzero.",
	"then":  "Starts the block run when the `if` condition is nonzero.",
	"else":  "Starts the block run when the `if` condition is zero.",
	"while": "`while c do ... end` repeats the block while `c` is nonzero.",
	"do":    "Starts the body of a `while` loop.",
	"end":   "Closes an `if` or `while` block.",
	"args":  "`args(i)` reads program argument `i`. An index outside the argument vector stops the program.",
}

func (d *document) hover(word string) *protocol.Hover {
	if doc, ok := keywordDocs[word]; ok {
		return markdown(fmt.Sprintf("**%s**\n\n%s", word, doc))
	}
	occs := d.occurrences[word]
	if len(occs) == 0 {
		return nil
	}

	var assigns, reads int
	for _, o := range occs {
		if o.assign {
			assigns++
		} else {
			reads++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", word)
	if slot, ok := d.slots[word]; ok {
		fmt.Fprintf(&b, " (slot %d of %d)", slot, len(d.slots))
	} else {
		b.WriteString(" (never assigned)")
	}
	fmt.Fprintf(&b, "\n\nassigned %s, read %s", times(assigns), times(reads))
	return markdown(b.String())
}

func times(n int) string {
	if n == 1 {
		return "once"
	}
	return fmt.Sprintf("%d times", n)
}

func markdown(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// definition returns the first assignment of word.
func (d *document) definition(word string) []protocol.Location {
	for _, o := range d.occurrences[word] {
		if o.assign {
			return []protocol.Location{d.location(o.span)}
		}
	}
	return nil
}

func (d *document) references(word string, includeDeclaration bool) []protocol.Location {
	var locations []protocol.Location
	for _, o := range d.occurrences[word] {
		if o.assign && !includeDeclaration {
			continue
		}
		locations = append(locations, d.location(o.span))
	}
	return locations
}

func (d *document) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, kw := range compiler.Keywords() {
		if strings.HasPrefix(kw, lowerPrefix) {
			kind := protocol.CompletionItemKindKeyword
			detail := "keyword"
			kwCopy := kw
			items = append(items, protocol.CompletionItem{
				Label:      kw,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &kwCopy,
			})
		}
	}

	names := make([]string, 0, len(d.occurrences))
	for name := range d.occurrences {
		if name != prefix && strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		kind := protocol.CompletionItemKindVariable
		detail := "variable"
		if slot, ok := d.slots[name]; ok {
			detail = fmt.Sprintf("variable (slot %d)", slot)
		}
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (d *document) location(span compiler.Span) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentUri(d.uri),
		Range: toRange(span),
	}
}

// toProtocol converts a 1-based source position to a 0-based LSP one.
func toProtocol(pos compiler.Position) protocol.Position {
	line, col := pos.Line-1, pos.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func toRange(span compiler.Span) protocol.Range {
	return protocol.Range{Start: toProtocol(span.Start), End: toProtocol(span.End)}
}
