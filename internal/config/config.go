package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the fixed name of the configuration file searched for in the
// working directory and its ancestors
const FileName = ".sync-files.toml"

// ErrNotFound signals that no configuration file exists. A missing config is
// a no-op, not a failure; callers must treat it as success.
var ErrNotFound = errors.New(FileName + " not found")

// LoadError describes a configuration file that exists but cannot be read,
// parsed or validated
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Mode selects the reconciliation policy
type Mode string

const (
	// ModeCheck reports mismatches without mutating destination files
	ModeCheck Mode = "check"
	// ModeWrite overwrites mismatched destination files from source
	ModeWrite Mode = "write"
)

// Config represents the complete sync-files configuration
type Config struct {
	Source  SourceConfig  `toml:"source"`
	Files   []FileMapping `toml:"files"`
	Options OptionsConfig `toml:"options"`
}

// SourceConfig identifies the upstream repository holding the files of truth
type SourceConfig struct {
	Repo string `toml:"repo"`
	Ref  string `toml:"ref"`
}

// FileMapping maps one file in the source repository to one file in the
// consuming repository. Src is relative to the fetched checkout root, Dst
// relative to the consuming repository root.
type FileMapping struct {
	Src string `toml:"src"`
	Dst string `toml:"dst"`
}

// OptionsConfig configures sync behavior
type OptionsConfig struct {
	Mode Mode `toml:"mode"`
}

// Load reads and validates the configuration. When path is empty the config
// file is searched for in the current directory and each ancestor; a missing
// file yields ErrNotFound in either case.
func Load(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		found, ok := Find(cwd)
		if !ok {
			return nil, ErrNotFound
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to parse: %w", err)}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &cfg, nil
}

// Find searches dir and each of its ancestors for the config file
func Find(dir string) (string, bool) {
	current := dir
	for {
		path := filepath.Join(current, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// applyDefaults fills in zero-value fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Options.Mode == "" {
		c.Options.Mode = ModeCheck
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Source.Repo == "" {
		return fmt.Errorf("source.repo is required")
	}
	if c.Source.Ref == "" {
		return fmt.Errorf("source.ref is required")
	}

	if len(c.Files) == 0 {
		return fmt.Errorf("files must contain at least one file mapping")
	}
	for i, fm := range c.Files {
		if fm.Src == "" {
			return fmt.Errorf("files[%d] is missing required field: src", i)
		}
		if fm.Dst == "" {
			return fmt.Errorf("files[%d] is missing required field: dst", i)
		}
	}

	switch c.Options.Mode {
	case ModeCheck, ModeWrite:
		// valid
	default:
		return fmt.Errorf("options.mode must be %q or %q", ModeCheck, ModeWrite)
	}

	return nil
}
