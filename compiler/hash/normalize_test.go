package hash

import (
	"testing"

	"github.com/chazu/quill/compiler"
)

func parse(t *testing.T, source string) *compiler.Program {
	t.Helper()
	prog, err := compiler.ParseProgram(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return prog
}

func TestNormalize_SlotResolution(t *testing.T) {
	hp := NormalizeProgram(parse(t, "a = 1; b = a; print b + c;"))

	if hp.NumSlots != 2 {
		t.Errorf("NumSlots: got %d, want 2", hp.NumSlots)
	}
	assign, ok := hp.Body.Stmts[1].(*HAssign)
	if !ok {
		t.Fatalf("stmt 1: got %T, want *HAssign", hp.Body.Stmts[1])
	}
	if assign.Slot != 1 {
		t.Errorf("assign slot: got %d, want 1", assign.Slot)
	}
	if ref, ok := assign.Value.(*HSlotRef); !ok || ref.Slot != 0 {
		t.Errorf("assign value: got %#v, want slot 0", assign.Value)
	}

	pr := hp.Body.Stmts[2].(*HPrint)
	bin := pr.Value.(*HBinary)
	if free, ok := bin.Right.(*HFreeVar); !ok || free.Name != "c" {
		t.Errorf("unassigned read: got %#v, want free var c", bin.Right)
	}
}

func TestNormalize_NilElse(t *testing.T) {
	prog := &compiler.Program{Body: &compiler.Block{Stmts: []compiler.Stmt{
		&compiler.If{Cond: &compiler.IntLiteral{Value: 1}, Then: &compiler.Block{}},
	}}}
	hp := NormalizeProgram(prog)
	ifs := hp.Body.Stmts[0].(*HIf)
	if ifs.Else == nil || len(ifs.Else.Stmts) != 0 {
		t.Errorf("nil else should normalize to an empty block, got %#v", ifs.Else)
	}
	if HashProgram(prog) != HashProgram(parse(t, "if 1 then end")) {
		t.Error("nil and empty else should hash the same")
	}
}

func TestHash_AlphaEquivalence(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"renamed variables", "x = args(0); print x * 2;", "n = args(0); print n * 2;", true},
		{"layout and comments", "x=1;print x;", "# c\nx = 1;\n\nprint x; # done", true},
		{"swapped slot order", "x = 1; y = 2; print x;", "x = 1; y = 2; print y;", false},
		{"different operator", "print 1 + 2;", "print 1 - 2;", false},
		{"different literal", "print 1;", "print 2;", false},
		{"different free names", "print p;", "print q;", false},
		{"if vs while", "if 1 then print 1; end", "while 1 do print 1; end", false},
		{"statement moved into else", "if 1 then print 1; end print 2;", "if 1 then print 1; else print 2; end", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := HashProgram(parse(t, tt.a))
			hb := HashProgram(parse(t, tt.b))
			if (ha == hb) != tt.same {
				t.Errorf("same hash = %v, want %v", ha == hb, tt.same)
			}
		})
	}
}

func TestString(t *testing.T) {
	h := HashProgram(parse(t, "print 1;"))
	s := String(h)
	if len(s) != 64 {
		t.Errorf("hex length = %d, want 64", len(s))
	}
}
