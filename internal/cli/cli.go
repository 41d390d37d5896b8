// Package cli provides terminal output formatting for schemasync: colored
// labels, statement previews, tables, and structured rendering of sync
// errors. Color is auto-detected and disabled for pipes and CI.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// OutputMode determines how output is formatted.
type OutputMode int

const (
	// ModeTTY enables colored output for interactive terminals.
	ModeTTY OutputMode = iota
	// ModePlain outputs plain text without colors.
	ModePlain
	// ModeJSON outputs structured JSON for programmatic consumption.
	ModeJSON
)

// Config holds output configuration, normally auto-detected.
type Config struct {
	Mode   OutputMode
	Writer io.Writer
}

// DetectConfig inspects stdout and the environment:
//   - stdout is a TTY and NO_COLOR unset -> ModeTTY
//   - otherwise -> ModePlain
//
// ModeJSON is only selected explicitly, via the --json flag.
func DetectConfig() *Config {
	mode := ModePlain
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		mode = ModeTTY
	}
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		mode = ModePlain
	}
	if os.Getenv("TERM") == "dumb" {
		mode = ModePlain
	}
	return &Config{Mode: mode, Writer: os.Stdout}
}

// IsTTY reports whether rich terminal output is active.
func (c *Config) IsTTY() bool { return c.Mode == ModeTTY }

// IsJSON reports whether structured JSON output was requested.
func (c *Config) IsJSON() bool { return c.Mode == ModeJSON }

var defaultCfg *Config

// Default returns the process-wide configuration, detecting it on first use.
func Default() *Config {
	if defaultCfg == nil {
		defaultCfg = DetectConfig()
	}
	return defaultCfg
}

// SetDefault overrides the process-wide configuration. Used by the --json
// flag and by tests.
func SetDefault(cfg *Config) {
	defaultCfg = cfg
}

// EnableColors reports whether styled output should be rendered.
func EnableColors() bool {
	return Default().IsTTY()
}
