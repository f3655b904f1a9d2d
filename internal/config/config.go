// Package config loads the patchloc TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from TOML strings like
// "5m" or "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config represents the top-level application configuration.
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Git      GitConfig      `toml:"git"`
	ASTDiff  ASTDiffConfig  `toml:"astdiff"`
	Dataset  DatasetConfig  `toml:"dataset"`
}

// PipelineConfig holds settings for snapshot capture and diff generation.
type PipelineConfig struct {
	// OutputRoot overrides the output folder given on the command line
	// when non-empty.
	OutputRoot string `toml:"output_root"`
	// Strategy selects the per-file diff implementation: "unified"
	// (in-process line diff) or "git" (git-native ref diff).
	Strategy string `toml:"strategy"`
	// Extensions is the allowlist of file extensions captured into
	// snapshots, each including the leading dot.
	Extensions []string `toml:"extensions"`
	// MaxFileSize is the snapshot size ceiling in bytes. Files above it
	// are skipped silently.
	MaxFileSize int64 `toml:"max_file_size"`
	// FullDiff controls whether the repository-level diff between the
	// two refs is captured as an additional artifact.
	FullDiff bool `toml:"full_diff"`
}

// GitConfig holds settings for git subprocess invocations.
type GitConfig struct {
	Timeout Duration `toml:"timeout"`
}

// ASTDiffConfig holds settings for the external structural-diff tool.
type ASTDiffConfig struct {
	// Command is the tool invocation prefix, e.g. ["java", "-jar",
	// "gumtree.jar"]. Empty disables structural diffing.
	Command []string `toml:"command"`
	Timeout Duration `toml:"timeout"`
}

// DatasetConfig holds settings for result serialization.
type DatasetConfig struct {
	// SQLite controls whether the dataset is mirrored into a SQLite
	// database next to the CSV.
	SQLite bool `toml:"sqlite"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Strategy:    "unified",
			Extensions:  []string{".py", ".js", ".ts", ".jsx", ".tsx", ".html", ".php", ".go", ".java", ".rb", ".c", ".cc", ".cpp", ".h"},
			MaxFileSize: 2_000_000,
			FullDiff:    true,
		},
		Git: GitConfig{
			Timeout: Duration{5 * time.Minute},
		},
		ASTDiff: ASTDiffConfig{
			Command: []string{"java", "-jar", "gumtree.jar"},
			Timeout: Duration{2 * time.Minute},
		},
		Dataset: DatasetConfig{
			SQLite: true,
		},
	}
}

// Load reads the configuration from path, merging it over the defaults.
// A missing file is not an error — the defaults are returned. The
// PATCHLOC_AST_TOOL environment variable, when set, replaces the
// structural-diff tool jar.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if tool := os.Getenv("PATCHLOC_AST_TOOL"); tool != "" {
		cfg.ASTDiff.Command = []string{"java", "-jar", tool}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Pipeline.Strategy {
	case "unified", "git":
	default:
		return fmt.Errorf("unknown diff strategy %q (want \"unified\" or \"git\")", c.Pipeline.Strategy)
	}
	if c.Pipeline.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.Pipeline.MaxFileSize)
	}
	if len(c.Pipeline.Extensions) == 0 {
		return fmt.Errorf("extensions allowlist is empty")
	}
	return nil
}

// WriteSample writes a commented sample configuration to path. It fails
// if the file already exists.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}

	sample := `# patchloc configuration

[pipeline]
strategy = "unified"        # "unified" (in-process) or "git" (git-native)
max_file_size = 2000000     # snapshot size ceiling in bytes
full_diff = true            # also capture the repository-level diff
extensions = [".py", ".js", ".ts", ".html", ".php"]

[git]
timeout = "5m"

[astdiff]
command = ["java", "-jar", "gumtree.jar"]
timeout = "2m"

[dataset]
sqlite = true
`
	return os.WriteFile(path, []byte(sample), 0o644)
}
