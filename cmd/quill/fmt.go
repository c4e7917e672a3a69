package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/quill/compiler"
)

// SourceExt is the extension of quill source files.
const SourceExt = ".ql"

// errHasComments stops fmt from rewriting a file whose comments the
// printer cannot carry over.
var errHasComments = errors.New("file has comments, which formatting would drop")

// formatSource returns the canonical rendering of a quill source file.
func formatSource(source string) (string, error) {
	prog, err := compiler.ParseProgram(source)
	if err != nil {
		return "", err
	}
	if strings.ContainsRune(source, '#') {
		return "", errHasComments
	}
	return compiler.Format(prog), nil
}

func handleFmtCommand(args []string) {
	checkMode := false
	var files []string

	for _, arg := range args {
		switch arg {
		case "--check", "-check":
			checkMode = true
		case "--help", "-h":
			fmt.Fprintf(os.Stderr, "Usage: quill fmt [--check] <files or directories...>\n\n")
			fmt.Fprintf(os.Stderr, "Rewrite quill source files in canonical style.\n\n")
			fmt.Fprintf(os.Stderr, "Options:\n")
			fmt.Fprintf(os.Stderr, "  --check   Report files that need formatting without changing them.\n")
			fmt.Fprintf(os.Stderr, "            Exits with code 1 if any do.\n\n")
			fmt.Fprintf(os.Stderr, "Files with # comments are left alone.\n")
			fmt.Fprintf(os.Stderr, "If no files are given, formats every .ql file under the current directory.\n")
			os.Exit(0)
		default:
			files = append(files, arg)
		}
	}
	if len(files) == 0 {
		files = []string{"."}
	}

	qlFiles, err := collectSourceFiles(files)
	if err != nil {
		fatal(err)
	}
	if len(qlFiles) == 0 {
		fmt.Fprintf(os.Stderr, "No %s files found\n", SourceExt)
		return
	}

	anyChanged := false
	for _, path := range qlFiles {
		changed, err := formatFile(path, checkMode)
		if errors.Is(err, errHasComments) {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
			continue
		}
		if err != nil {
			fatal(fmt.Errorf("formatting %s: %w", path, err))
		}
		anyChanged = anyChanged || changed
	}
	if checkMode && anyChanged {
		os.Exit(1)
	}
}

// formatFile formats one file. In check mode it only reports whether the
// file would change; otherwise it rewrites the file when it differs.
func formatFile(path string, checkMode bool) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	original := string(content)
	formatted, err := formatSource(original)
	if err != nil {
		return false, err
	}
	if original == formatted {
		return false, nil
	}
	if checkMode {
		fmt.Printf("would format: %s\n", path)
		return true, nil
	}
	if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
		return false, err
	}
	fmt.Printf("formatted: %s\n", path)
	return true, nil
}

// collectSourceFiles expands directories into the .ql files below them.
func collectSourceFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == SourceExt {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
