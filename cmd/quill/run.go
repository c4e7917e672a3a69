package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/compiler/hash"
	"github.com/chazu/quill/egraph"
	"github.com/chazu/quill/optimizer"
	"github.com/chazu/quill/store"
	"github.com/chazu/quill/vm"
	"github.com/chazu/quill/vm/image"
)

// ImageExt is the extension of compiled images.
const ImageExt = ".qlc"

type runOptions struct {
	optimize       bool
	optimizer      optimizer.Config
	disasm         bool
	printOptimized bool
	dumpState      string // "", "text" or "json"
	profile        bool
	output         string // image path; empty means run
	cachePath      string // empty disables the cache
}

// build is a program ready to run.
type build struct {
	chunk      *vm.Chunk
	sourceHash [32]byte
	optimized  bool
	cached     bool
	report     *optimizer.Report
}

func runFile(path string, args []int64, opts runOptions) error {
	b, err := loadBuild(path, opts, os.Stdout)
	if err != nil {
		return err
	}
	if opts.disasm {
		fmt.Print(vm.Disassemble(b.chunk))
		fmt.Println()
	}
	if opts.output != "" {
		return writeImage(b, opts.output)
	}
	_, err = execute(b.chunk, args, os.Stdout, opts)
	return err
}

// runCompare runs the program as written, then optimized, and fails when
// the two print different values.
func runCompare(path string, args []int64, opts runOptions) error {
	if filepath.Ext(path) == ImageExt {
		return fmt.Errorf("-compare needs a source file, got image %s", path)
	}
	plain := opts
	plain.optimize = false
	plain.cachePath = ""
	opt := opts
	opt.optimize = true
	opt.cachePath = ""

	fmt.Println("== original ==")
	before, err := compileAndRun(path, args, plain)
	if err != nil {
		return err
	}
	fmt.Println("== optimized ==")
	after, err := compileAndRun(path, args, opt)
	if err != nil {
		return err
	}
	if !slices.Equal(before, after) {
		return fmt.Errorf("optimized program printed %v, original printed %v", after, before)
	}
	fmt.Println("== outputs match ==")
	return nil
}

func compileAndRun(path string, args []int64, opts runOptions) ([]int64, error) {
	b, err := loadBuild(path, opts, os.Stdout)
	if err != nil {
		return nil, err
	}
	if opts.disasm {
		fmt.Print(vm.Disassemble(b.chunk))
		fmt.Println()
	}
	return execute(b.chunk, args, os.Stdout, opts)
}

// loadBuild reads an image or compiles a source file. The optimized program
// is written to out when opts.printOptimized is set.
func loadBuild(path string, opts runOptions, out io.Writer) (*build, error) {
	if filepath.Ext(path) == ImageExt {
		img, err := image.ReadFile(path)
		if err != nil {
			return nil, err
		}
		log.Debugf("loaded image %s (optimized: %t, %d instructions)", path, img.Optimized, len(img.Code))
		return &build{chunk: img.Chunk(), sourceHash: img.SourceHash, optimized: img.Optimized}, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := compiler.ParseProgram(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return compileProgram(prog, opts, out)
}

// compileProgram optimizes (when asked) and compiles prog, going through
// the image cache when one is configured.
func compileProgram(prog *compiler.Program, opts runOptions, out io.Writer) (*build, error) {
	sourceHash := hash.HashProgram(prog)

	var cache *store.Store
	if opts.cachePath != "" && !cacheable(opts) {
		log.Infof("not using the cache: optimizer settings differ from the defaults")
	} else if opts.cachePath != "" {
		var err error
		cache, err = store.Open(opts.cachePath)
		if err != nil {
			log.Warningf("cache unavailable: %s", err)
		} else {
			defer cache.Close()
		}
	}

	// Printing the optimized program needs the optimizer to run.
	if cache != nil && !opts.printOptimized {
		img, err := cache.Get(store.Key{Hash: sourceHash, Optimized: opts.optimize})
		switch {
		case err == nil:
			log.Infof("using cached image %s", store.KeyOf(img))
			return &build{chunk: img.Chunk(), sourceHash: sourceHash, optimized: img.Optimized, cached: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warningf("ignoring cache: %s", err)
		}
	}

	b := &build{sourceHash: sourceHash}
	target := prog
	if opts.optimize {
		optimized, report, err := optimizer.Optimize(prog, opts.optimizer)
		switch {
		case errors.Is(err, optimizer.ErrUnsupported):
			log.Warningf("not optimizing: %s", err)
		case err != nil:
			return nil, err
		default:
			target = optimized
			b.optimized = true
			b.report = report
			log.Infof("optimized: %s after %d iterations, cost %d, %d statements",
				report.Stop, report.Iterations, report.Cost, report.Statements)
			if report.DroppedInputs > 0 {
				fmt.Fprintf(os.Stderr, "Warning: optimization removed %d unused args(i) reads; use -compare to check out-of-range arguments\n",
					report.DroppedInputs)
			}
			if opts.printOptimized {
				fmt.Fprint(out, compiler.Format(optimized))
				fmt.Fprintln(out)
			}
		}
	}

	chunk, err := compiler.NewCompiler().CompileProgram(target)
	if err != nil {
		return nil, err
	}
	b.chunk = chunk

	if cache != nil {
		img := image.New(chunk, sourceHash, b.optimized)
		if _, err := cache.Put(img); err != nil {
			log.Warningf("not cached: %s", err)
		}
	}
	return b, nil
}

// cacheable reports whether a build may use the image cache. The cache key
// does not record optimizer settings, so optimized images are shared only
// under the default configuration.
func cacheable(opts runOptions) bool {
	if !opts.optimize {
		return true
	}
	cfg := opts.optimizer
	if cfg.StrictBudget || cfg.RematerializeLiterals {
		return false
	}
	if cfg.IterLimit != 0 && cfg.IterLimit != egraph.DefaultIterLimit {
		return false
	}
	if cfg.NodeLimit != 0 && cfg.NodeLimit != egraph.DefaultNodeLimit {
		return false
	}
	if len(cfg.Rules) == 0 {
		return true
	}
	selected := make(map[string]bool, len(cfg.Rules))
	for _, name := range cfg.Rules {
		selected[name] = true
	}
	for _, name := range optimizer.RuleNames() {
		if !selected[name] {
			return false
		}
	}
	return true
}

// execute runs chunk to completion and returns the printed values. The
// machine state and the profile go to stderr afterwards when requested,
// including after a fault.
func execute(chunk *vm.Chunk, args []int64, out io.Writer, opts runOptions) ([]int64, error) {
	machine := vm.NewVM(chunk, args)
	machine.SetOutput(out)
	var profiler *vm.Profiler
	if opts.profile {
		profiler = vm.NewProfiler(chunk)
		profiler.OnHot = func(pc int, insn vm.Insn) {
			log.Debugf("hot instruction at %04d: %s", pc, insn)
		}
		machine.SetProfiler(profiler)
	}
	runErr := machine.Run()

	switch opts.dumpState {
	case "text":
		if err := machine.DumpState(os.Stderr); err != nil {
			return nil, err
		}
	case "json":
		if err := machine.DumpStateJSON(os.Stderr); err != nil {
			return nil, err
		}
	}
	if profiler != nil {
		if err := profiler.Report(os.Stderr, 10); err != nil {
			return nil, err
		}
	}
	return machine.Printed(), runErr
}

func writeImage(b *build, output string) error {
	img := image.New(b.chunk, b.sourceHash, b.optimized)
	n, err := image.WriteFile(output, img)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d instructions, %s)\n", output, len(b.chunk.Code), formatBytes(n))
	return nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
