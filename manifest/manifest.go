// Package manifest handles quill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/quill/optimizer"
)

// FileName is the name of the project file.
const FileName = "quill.toml"

// Manifest represents a quill.toml project configuration.
type Manifest struct {
	Project   Project   `toml:"project"`
	Run       Run       `toml:"run"`
	Optimizer Optimizer `toml:"optimizer"`
	Cache     Cache     `toml:"cache"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// Run configures program execution.
type Run struct {
	Args []int64 `toml:"args"`
}

// Optimizer configures the equality-saturation pass.
type Optimizer struct {
	Enabled               bool     `toml:"enabled"`
	IterLimit             int      `toml:"iter-limit"`
	NodeLimit             int      `toml:"node-limit"`
	Rules                 []string `toml:"rules"`
	StrictBudget          bool     `toml:"strict-budget"`
	RematerializeLiterals bool     `toml:"rematerialize-literals"`
}

// Cache configures the compiled image cache.
type Cache struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no quill.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Project.Entry == "" {
		m.Project.Entry = "main.ql"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".quill", "cache.db")
	}
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values the TOML decoder cannot.
func (m *Manifest) Validate() error {
	if m.Optimizer.IterLimit < 0 {
		return fmt.Errorf("optimizer.iter-limit must not be negative")
	}
	if m.Optimizer.NodeLimit < 0 {
		return fmt.Errorf("optimizer.node-limit must not be negative")
	}
	if _, err := optimizer.SelectRules(m.Optimizer.Rules); err != nil {
		return fmt.Errorf("optimizer.rules: %w", err)
	}
	if m.Log.Verbosity < -1 {
		return fmt.Errorf("log.verbosity must be -1 or more")
	}
	return nil
}

// EntryPath returns the absolute path of the entry program.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Project.Entry)
}

// CachePath returns the absolute path of the image cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// LogFile returns the log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.resolve(m.Log.File)
	return &path
}

// OptimizerConfig converts the [optimizer] table.
func (m *Manifest) OptimizerConfig() optimizer.Config {
	return optimizer.Config{
		IterLimit:             m.Optimizer.IterLimit,
		NodeLimit:             m.Optimizer.NodeLimit,
		Rules:                 m.Optimizer.Rules,
		StrictBudget:          m.Optimizer.StrictBudget,
		RematerializeLiterals: m.Optimizer.RematerializeLiterals,
	}
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}
