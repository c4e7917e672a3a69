package vm

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Profiler counts how often each instruction executes. Instructions that
// reach HotThreshold are reported as hot; in practice these are loop bodies.
type Profiler struct {
	// HotThreshold is the execution count at which an instruction becomes
	// hot. Default: 100.
	HotThreshold uint64

	// OnHot is called once per instruction when it becomes hot.
	OnHot func(pc int, insn Insn)

	chunk    *Chunk
	counts   []uint64 // per pc
	ops      map[Opcode]uint64
	hotCount int
}

// PCProfile is the execution count of one instruction.
type PCProfile struct {
	PC    int
	Insn  Insn
	Count uint64
}

// ProfilerStats summarizes a profile.
type ProfilerStats struct {
	Instructions int    // distinct instructions executed at least once
	Executed     uint64 // total instructions executed
	Hot          int
}

// NewProfiler creates a profiler for chunk with the default threshold.
func NewProfiler(chunk *Chunk) *Profiler {
	return &Profiler{
		HotThreshold: 100,
		chunk:        chunk,
		counts:       make([]uint64, len(chunk.Code)),
		ops:          make(map[Opcode]uint64),
	}
}

func (p *Profiler) record(pc int, insn Insn) {
	p.counts[pc]++
	p.ops[insn.Op]++
	if p.counts[pc] == p.HotThreshold {
		p.hotCount++
		if p.OnHot != nil {
			p.OnHot(pc, insn)
		}
	}
}

// Count returns how often the instruction at pc executed.
func (p *Profiler) Count(pc int) uint64 {
	if pc < 0 || pc >= len(p.counts) {
		return 0
	}
	return p.counts[pc]
}

// OpCount returns how often instructions with the given opcode executed.
func (p *Profiler) OpCount(op Opcode) uint64 {
	return p.ops[op]
}

// Stats returns summary counts.
func (p *Profiler) Stats() ProfilerStats {
	s := ProfilerStats{Hot: p.hotCount}
	for _, c := range p.counts {
		if c > 0 {
			s.Instructions++
			s.Executed += c
		}
	}
	return s
}

// Top returns the n most executed instructions, most executed first. Ties
// are ordered by pc.
func (p *Profiler) Top(n int) []PCProfile {
	var out []PCProfile
	for pc, c := range p.counts {
		if c > 0 {
			out = append(out, PCProfile{PC: pc, Insn: p.chunk.Code[pc], Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Hot returns every instruction at or above the threshold, most executed
// first.
func (p *Profiler) Hot() []PCProfile {
	all := p.Top(-1)
	for i, e := range all {
		if e.Count < p.HotThreshold {
			return all[:i]
		}
	}
	return all
}

// Report writes per-opcode totals followed by the n most executed
// instructions.
func (p *Profiler) Report(w io.Writer, n int) error {
	stats := p.Stats()
	fmt.Fprintf(w, "; %d instructions executed, %d distinct, %d hot\n", stats.Executed, stats.Instructions, stats.Hot)

	ops := make([]Opcode, 0, len(p.ops))
	for op := range p.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if p.ops[ops[i]] != p.ops[ops[j]] {
			return p.ops[ops[i]] > p.ops[ops[j]]
		}
		return ops[i] < ops[j]
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPCODE\tCOUNT")
	for _, op := range ops {
		fmt.Fprintf(tw, "%s\t%d\n", op, p.ops[op])
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "COUNT\tINSTRUCTION")
	for _, e := range p.Top(n) {
		fmt.Fprintf(tw, "%d\t%s\n", e.Count, p.chunk.DisassembleInstruction(e.PC))
	}
	return tw.Flush()
}

// Reset clears all counts.
func (p *Profiler) Reset() {
	clear(p.counts)
	clear(p.ops)
	p.hotCount = 0
}
