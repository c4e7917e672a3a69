package compiler

import (
	"reflect"
	"testing"

	"github.com/chazu/quill/vm"
)

func runSource(t *testing.T, source string, args ...int64) []int64 {
	t.Helper()
	chunk := compileSource(t, source)
	m := vm.NewVM(chunk, args)
	m.SetOutput(nil)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v\n%s", err, vm.Disassemble(chunk))
	}
	if s := m.State(); s.FP != 0 || len(s.Locals) != 0 || len(s.Stack) != 0 {
		t.Errorf("unbalanced machine after run: %+v", s)
	}
	return m.Printed()
}

func TestRunBranches(t *testing.T) {
	tests := []struct {
		name   string
		source string
		args   []int64
		want   []int64
	}{
		{"factorial", "x = 10; y = 1; while x > 0 do y = y * x; x = x - 1; end print y;", nil, []int64{3628800}},
		{"if taken", "x = 5; y = 3; if x > y then print 2; else print 4; end", nil, []int64{2}},
		{"if not taken", "x = 1; y = 3; if x > y then print 2; else print 4; end", nil, []int64{4}},
		{"if without else", "if 0 then print 1; end print 9;", nil, []int64{9}},
		{"nonzero is true", "if 0 - 7 then print 1; end", nil, []int64{1}},
		{"loop never entered", "while 0 do print 1; end print 2;", nil, []int64{2}},
		{"nested", "i = 0; while i < 3 do if i > 0 then print i; else print 100; end i = i + 1; end", nil, []int64{100, 1, 2}},
		{"args", "x = args(0); y = 2*x + args(1); print y - x - y; z = x + x; print z;", []int64{3, 7}, []int64{-3, 6}},
		{"slot reads zero before assignment", "if 0 then a = 5; end print a;", nil, []int64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runSource(t, tt.source, tt.args...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("printed %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWhileRunsBodyOncePerNonzeroCondition(t *testing.T) {
	for n := int64(0); n < 5; n++ {
		got := runSource(t, "n = args(0); c = 0; while n > 0 do c = c + 1; n = n - 1; end print c;", n)
		if len(got) != 1 || got[0] != n {
			t.Errorf("n=%d: body ran %v times", n, got)
		}
	}
}
