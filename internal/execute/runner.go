// Package execute streams value documents through a compiled pattern and
// reports per-document outcomes.
package execute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/time/rate"

	"github.com/jacoelho/pmatch/internal/config"
	"github.com/jacoelho/pmatch/internal/exit"
	"github.com/jacoelho/pmatch/internal/match"
	"github.com/jacoelho/pmatch/internal/output"
	"github.com/jacoelho/pmatch/internal/pattern"
	"github.com/jacoelho/pmatch/internal/patternfile"
	"github.com/jacoelho/pmatch/internal/value"
)

// Runner matches a compiled pattern against every document of the
// configured value files.
type Runner struct {
	cfg         *config.Config
	matcher     *match.Matcher
	compiled    pattern.Pattern
	rateLimiter *rate.Limiter
	stdin       io.Reader
	out         io.Writer
	errOut      io.Writer
}

// New loads and compiles the configured pattern file.
func New(cfg *config.Config) (*Runner, *exit.Result) {
	f, err := os.Open(cfg.PatternFile)
	if err != nil {
		return nil, exit.Usagef("Error: %v\n", err)
	}
	defer f.Close()

	doc, err := patternfile.Parse(f)
	if err != nil {
		return nil, exit.Usagef("Error: %s: %v\n", cfg.PatternFile, err)
	}

	compiled, _, err := doc.Compile()
	if err != nil {
		return nil, exit.Usagef("Error: %s: %v\n", cfg.PatternFile, err)
	}

	return &Runner{
		cfg:         cfg,
		matcher:     match.NewWithDepth(cfg.MaxDepth),
		compiled:    compiled,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		stdin:       os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
	}, nil
}

func newRateLimiter(documentsPerSecond float64) *rate.Limiter {
	if documentsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Limit(documentsPerSecond), 1)
}

// SetInput overrides stdin, used when a value file is "-".
func (r *Runner) SetInput(in io.Reader) {
	r.stdin = in
}

// SetOutput overrides the result destination.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// SetErrorOutput overrides the diagnostics destination.
func (r *Runner) SetErrorOutput(w io.Writer) {
	r.errOut = w
}

func (r *Runner) logf(format string, args ...any) {
	if r.cfg.Debug {
		fmt.Fprintf(r.errOut, format, args...)
	}
}

// Run matches every document and renders the summary. The returned exit
// code distinguishes mismatches from faults.
func (r *Runner) Run(ctx context.Context) int {
	files := r.cfg.ValueFiles
	if len(files) == 0 {
		files = []string{"-"}
	}

	summary := &output.Summary{}
	code := exit.CodeOK

scan:
	for _, file := range files {
		fileCode, err := r.runFile(ctx, file, summary)
		if fileCode > code {
			code = fileCode
		}
		switch {
		case err != nil:
			fmt.Fprintf(r.errOut, "Error: %s: %v\n", file, err)
			code = exit.CodeUsage
			break scan
		case fileCode == exit.CodeFault:
			break scan
		case fileCode == exit.CodeMismatch && r.cfg.FailFast:
			break scan
		}
	}

	if err := summary.Format(r.cfg.Format, r.out); err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return exit.CodeUsage
	}

	return code
}

// runFile matches every document of one value file. The returned code is
// CodeOK, CodeMismatch, or CodeFault; the error reports undecodable
// input or an interrupted context.
func (r *Runner) runFile(ctx context.Context, file string, summary *output.Summary) (int, error) {
	in, closeInput, err := r.openInput(file)
	if err != nil {
		return exit.CodeOK, err
	}
	defer closeInput()

	decode := newDecoder(file, in)
	code := exit.CodeOK

	for index := 0; ; index++ {
		var raw any
		if err := decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return code, nil
			}
			return code, fmt.Errorf("document %d: %w", index, err)
		}

		if err := r.rateLimiter.Wait(ctx); err != nil {
			return code, err
		}

		captures, ok, err := r.matcher.Match(r.compiled, value.FromAny(raw))
		switch {
		case err != nil:
			summary.Add(output.Document{Source: file, Index: index, Fault: err.Error()})
			r.logf("%s[%d]: fault: %v\n", file, index, err)
			return exit.CodeFault, nil
		case !ok:
			summary.Add(output.Document{Source: file, Index: index})
			r.logf("%s[%d]: no match\n", file, index)
			code = exit.CodeMismatch
			if r.cfg.FailFast {
				return code, nil
			}
		default:
			summary.Add(output.Document{
				Source:   file,
				Index:    index,
				Matched:  true,
				Captures: renderCaptures(captures),
			})
			r.logf("%s[%d]: match, %d captures\n", file, index, len(captures))
		}
	}
}

func (r *Runner) openInput(file string) (io.Reader, func(), error) {
	if file == "-" {
		return r.stdin, func() {}, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// newDecoder selects the document decoder by file extension: JSON files
// decode as a stream of concatenated documents, everything else as
// multi-document YAML. JSON numbers stay json.Number so the value model
// classifies them without precision loss.
func newDecoder(file string, in io.Reader) func(any) error {
	if strings.HasSuffix(file, ".json") {
		decoder := json.NewDecoder(in)
		decoder.UseNumber()
		return func(out any) error { return decoder.Decode(out) }
	}

	decoder := yaml.NewDecoder(in)
	return func(out any) error { return decoder.Decode(out) }
}

// renderCaptures flattens a capture map into plain host values for
// output; atoms render as their label form.
func renderCaptures(captures match.Captures) map[string]any {
	out := make(map[string]any, len(captures))
	for key, captured := range captures {
		out[key.String()] = renderValue(captured)
	}
	return out
}

func renderValue(v value.Value) any {
	switch v.Kind() {
	case value.KindAtom:
		return v.AtomRef().String()
	case value.KindMissing:
		return "missing"
	case value.KindSequence:
		elems := v.Elements()
		out := make([]any, len(elems))
		for i, elem := range elems {
			out[i] = renderValue(elem)
		}
		return out
	case value.KindRecord:
		fields := v.Fields()
		out := make(map[string]any, len(fields))
		for key, field := range fields {
			out[key.String()] = renderValue(field)
		}
		return out
	case value.KindOpaque:
		return fmt.Sprintf("%v", v.Host())
	default:
		return value.ToAny(v)
	}
}
