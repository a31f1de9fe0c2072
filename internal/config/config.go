// Package config parses command-line arguments for the pmatch CLI.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jacoelho/pmatch/internal/exit"
	"github.com/jacoelho/pmatch/internal/match"
)

var (
	ErrNoArguments   = errors.New("no arguments provided")
	ErrNoPatternFile = errors.New("no pattern file specified")
	ErrBadFormat     = errors.New("format must be text or json")
)

// Output formats supported by the CLI.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the complete configuration for the pmatch tool.
type Config struct {
	PatternFile string
	ValueFiles  []string // "-" reads stdin; empty list also reads stdin

	Debug    bool
	Format   string
	FailFast bool

	RateLimit float64 // documents per second (0 = unlimited)
	MaxDepth  int
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.PatternFile == "" {
		return ErrNoPatternFile
	}

	if _, err := os.Stat(c.PatternFile); err != nil {
		return fmt.Errorf("pattern file %s not found: %w", c.PatternFile, err)
	}

	for _, file := range c.ValueFiles {
		if file == "-" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("value file %s not found: %w", file, err)
		}
	}

	if c.Format != FormatText && c.Format != FormatJSON {
		return fmt.Errorf("%w, got %q", ErrBadFormat, c.Format)
	}

	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Usage and errors are rendered by this package, not by flag.
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	var (
		debug     = fs.Bool("debug", false, "Print per-document match detail to stderr")
		format    = fs.String("format", FormatText, "Output format: text or json")
		failFast  = fs.Bool("fail-fast", false, "Stop at the first document that does not match")
		rateLimit = fs.Float64("rate-limit", 0, "Rate limit in documents per second (0 for unlimited)")
		maxDepth  = fs.Int("max-depth", match.DefaultMaxDepth, "Recursion depth budget for nested patterns")
	)

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Usagef("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoPatternFile, Usage())
	}

	config := &Config{
		PatternFile: rest[0],
		ValueFiles:  rest[1:],
		Debug:       *debug,
		Format:      *format,
		FailFast:    *failFast,
		RateLimit:   *rateLimit,
		MaxDepth:    *maxDepth,
	}

	if err := config.Validate(); err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `pmatch - structural pattern matching over dynamic values

Usage: pmatch [options] <pattern.yaml> [value-file ...]

Value files may be JSON (single document or concatenated documents) or
YAML (multi-document). Use "-" or no value file to read YAML from stdin.

Options:
  --format FORMAT    Output format: text or json (default: text)
  --debug            Print per-document match detail to stderr
  --fail-fast        Stop at the first document that does not match
  --rate-limit N     Rate limit in documents per second (0 for unlimited)
  --max-depth N      Recursion depth budget for nested patterns
  -h, --help         Show this help message

Exit codes:
  0  every document matched
  1  at least one document did not match
  2  bad arguments or malformed pattern document
  3  predicate fault or exhausted depth budget

Examples:
  pmatch pattern.yaml values.json            # Match every document in a file
  pmatch pattern.yaml a.yaml b.json          # Multiple value files in sequence
  cat values.yaml | pmatch pattern.yaml      # Read documents from stdin
  pmatch pattern.yaml feed.json --rate-limit 5`
}
