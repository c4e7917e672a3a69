// Quill CLI - compiles, optimizes and runs quill programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/server"
)

const version = "0.1.0"

var log = commonlog.GetLogger("quill.cli")

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fmt":
			handleFmtCommand(os.Args[2:])
			return
		case "cache":
			handleCacheCommand(os.Args[2:])
			return
		}
	}

	verbose := flag.Bool("v", false, "Verbose output")
	optimize := flag.Bool("O", false, "Optimize straight-line programs by equality saturation (unused args(i) reads are removed)")
	disasm := flag.Bool("disasm", false, "Print the bytecode before running")
	printOptimized := flag.Bool("print-optimized", false, "Print the optimized program")
	dumpState := flag.String("dump-state", "", "Dump the VM state after running: text or json")
	profile := flag.Bool("profile", false, "Report instruction counts after running")
	output := flag.String("o", "", "Write a compiled image (.qlc) instead of running")
	useCache := flag.Bool("cache", false, "Reuse compiled images from the project cache")
	compare := flag.Bool("compare", false, "Run the program, then its optimized form, and compare the output")
	strict := flag.Bool("strict-budget", false, "Fail when the optimizer runs out of budget")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quill [options] [file.ql|file.qlc] [args...]\n")
		fmt.Fprintf(os.Stderr, "       quill fmt [--check|-w] [files...]\n")
		fmt.Fprintf(os.Stderr, "       quill cache [ls|clear]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a quill program. Integer arguments after the file form the\n")
		fmt.Fprintf(os.Stderr, "argument vector read by args(i). Without a file, the entry and\n")
		fmt.Fprintf(os.Stderr, "arguments come from quill.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quill fact.ql                  # Run a program\n")
		fmt.Fprintf(os.Stderr, "  quill -O -disasm sum.ql 3 7    # Optimize, show bytecode, run with args\n")
		fmt.Fprintf(os.Stderr, "  quill -compare sum.ql 3 7      # Run before and after optimization\n")
		fmt.Fprintf(os.Stderr, "  quill -profile fact.ql         # Show the hottest instructions\n")
		fmt.Fprintf(os.Stderr, "  quill -O -o sum.qlc sum.ql     # Write an image\n")
		fmt.Fprintf(os.Stderr, "  quill sum.qlc 3 7              # Run an image\n")
		fmt.Fprintf(os.Stderr, "  quill -lsp                     # Start the language server\n")
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("quill", version)
		return
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fatal(err)
	}
	if m == nil {
		wd, _ := os.Getwd()
		m = manifest.Default(wd)
	}

	verbosity := m.Log.Verbosity
	if *verbose && verbosity < 2 {
		verbosity = 2
	}
	commonlog.Configure(verbosity, m.LogFile())

	if *lspMode {
		if err := server.NewLSP(version).Run(); err != nil {
			fatal(err)
		}
		return
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := runOptions{
		optimize:       m.Optimizer.Enabled,
		optimizer:      m.OptimizerConfig(),
		disasm:         *disasm,
		printOptimized: *printOptimized,
		dumpState:      *dumpState,
		profile:        *profile,
		output:         *output,
	}
	if *printOptimized {
		opts.optimize = true
	}
	if set["O"] {
		opts.optimize = *optimize
	}
	if set["strict-budget"] {
		opts.optimizer.StrictBudget = *strict
	}
	if *useCache && !m.Cache.Disabled {
		opts.cachePath = m.CachePath()
	}
	if opts.dumpState != "" && opts.dumpState != "text" && opts.dumpState != "json" {
		fatal(fmt.Errorf("-dump-state must be text or json, got %q", opts.dumpState))
	}

	path := m.EntryPath()
	args := m.Run.Args
	if rest := flag.Args(); len(rest) > 0 {
		path = rest[0]
		if len(rest) > 1 {
			args, err = parseArgs(rest[1:])
			if err != nil {
				fatal(err)
			}
		}
	}

	if *compare {
		err = runCompare(path, args, opts)
	} else {
		err = runFile(path, args, opts)
	}
	if err != nil {
		fatal(err)
	}
}

// parseArgs converts command-line words to the program's argument vector.
func parseArgs(words []string) ([]int64, error) {
	args := make([]int64, len(words))
	for i, w := range words {
		v, err := strconv.ParseInt(w, 10, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
				return nil, fmt.Errorf("argument %d (%s) does not fit in 64 bits", i, w)
			}
			return nil, fmt.Errorf("argument %d (%q) is not an integer", i, w)
		}
		args[i] = v
	}
	return args, nil
}

func fatal(err error) {
	msg := err.Error()
	fmt.Fprintf(os.Stderr, "Error: %s\n", strings.TrimPrefix(msg, "Error: "))
	os.Exit(1)
}
