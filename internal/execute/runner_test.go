package execute

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jacoelho/pmatch/internal/config"
	"github.com/jacoelho/pmatch/internal/exit"
	"github.com/jacoelho/pmatch/internal/match"
	"github.com/jacoelho/pmatch/internal/output"
)

const userPattern = `
pattern:
  kind: record
  fields:
    - key: name
      pattern:
        kind: bind
        name: name
        where: {op: type_is, value: string}
    - key: age
      pattern:
        kind: bind
        name: age
        where: {op: greater_than_or_equal, value: 18}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func newRunner(t *testing.T, cfg *config.Config) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	if cfg.Format == "" {
		cfg.Format = config.FormatJSON
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = match.DefaultMaxDepth
	}

	r, exitResult := New(cfg)
	if exitResult != nil {
		t.Fatalf("New() exit = %+v, want runner", exitResult)
	}

	var out, errOut bytes.Buffer
	r.SetOutput(&out)
	r.SetErrorOutput(&errOut)
	return r, &out, &errOut
}

func decodeSummary(t *testing.T, out *bytes.Buffer) output.Summary {
	t.Helper()

	var summary output.Summary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", out.String(), err)
	}
	return summary
}

func TestNewRejectsBadPatternFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not_yaml", content: "{pattern: ["},
		{name: "missing_pattern", content: "atoms: [red]"},
		{name: "unknown_kind", content: "pattern: {kind: glob}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patternFile := writeFile(t, t.TempDir(), "pattern.yaml", tt.content)

			r, exitResult := New(&config.Config{PatternFile: patternFile})
			if r != nil {
				t.Fatalf("New() runner = %+v, want nil", r)
			}
			if exitResult == nil || exitResult.ExitCode != exit.CodeUsage {
				t.Fatalf("New() exit = %+v, want usage result", exitResult)
			}
		})
	}
}

func TestRunAllDocumentsMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.yaml", `
name: amy
age: 30
---
name: bob
age: 42
`)

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}

	summary := decodeSummary(t, out)
	if len(summary.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(summary.Documents))
	}
	if summary.Matched() != 2 {
		t.Fatalf("matched = %d, want 2", summary.Matched())
	}
	if got := summary.Documents[0].Captures["name"]; got != "amy" {
		t.Fatalf("document 0 name = %v, want amy", got)
	}
	if got := summary.Documents[1].Captures["age"]; got != float64(42) {
		t.Fatalf("document 1 age = %v, want 42", got)
	}
}

func TestRunReportsMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.yaml", `
name: amy
age: 30
---
name: kid
age: 7
`)

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeMismatch {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeMismatch)
	}

	summary := decodeSummary(t, out)
	if summary.Matched() != 1 || summary.Mismatched() != 1 {
		t.Fatalf("matched = %d, mismatched = %d, want 1 and 1", summary.Matched(), summary.Mismatched())
	}
}

func TestRunFailFastStopsAtFirstMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.yaml", `
name: kid
age: 7
---
name: amy
age: 30
`)

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
		FailFast:    true,
	})

	if code := r.Run(context.Background()); code != exit.CodeMismatch {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeMismatch)
	}

	summary := decodeSummary(t, out)
	if len(summary.Documents) != 1 {
		t.Fatalf("documents = %d, want 1 after fail-fast", len(summary.Documents))
	}
}

func TestRunReportsPredicateFault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", `
pattern:
  kind: bind
  name: x
  where: {expr: "value.missing.deeper > 1"}
`)
	valueFile := writeFile(t, dir, "values.yaml", "42\n")

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeFault {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeFault)
	}

	summary := decodeSummary(t, out)
	if len(summary.Documents) != 1 {
		t.Fatalf("documents = %d, want 1", len(summary.Documents))
	}
	if summary.Documents[0].Fault == "" {
		t.Fatalf("document fault is empty, want fault detail")
	}
}

func TestRunUndecodableInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", "pattern: {kind: any}")
	valueFile := writeFile(t, dir, "values.json", "{not json")

	r, _, errOut := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeUsage {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeUsage)
	}
	if errOut.Len() == 0 {
		t.Fatalf("stderr is empty, want decode error")
	}
}

func TestRunReadsStdinByDefault(t *testing.T) {
	t.Parallel()

	patternFile := writeFile(t, t.TempDir(), "pattern.yaml", userPattern)

	r, out, _ := newRunner(t, &config.Config{PatternFile: patternFile})
	r.SetInput(strings.NewReader("name: amy\nage: 30\n"))

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}

	summary := decodeSummary(t, out)
	if len(summary.Documents) != 1 || summary.Documents[0].Source != "-" {
		t.Fatalf("documents = %+v, want one stdin document", summary.Documents)
	}
}

func TestRunConcatenatedJSONDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.json",
		`{"name": "amy", "age": 30}{"name": "bob", "age": 42}`)

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}

	summary := decodeSummary(t, out)
	if summary.Matched() != 2 {
		t.Fatalf("matched = %d, want 2", summary.Matched())
	}
}

func TestRunMultipleValueFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	first := writeFile(t, dir, "a.yaml", "name: amy\nage: 30\n")
	second := writeFile(t, dir, "b.yaml", "name: kid\nage: 7\n")

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{first, second},
	})

	if code := r.Run(context.Background()); code != exit.CodeMismatch {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeMismatch)
	}

	summary := decodeSummary(t, out)
	if len(summary.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(summary.Documents))
	}
	if summary.Documents[0].Source != first || summary.Documents[1].Source != second {
		t.Fatalf("sources = %q, %q, want file order preserved",
			summary.Documents[0].Source, summary.Documents[1].Source)
	}
}

func TestRunRendersAtomCaptures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", `
atoms: [anything]
pattern:
  kind: bind
  name: ':anything'
`)
	valueFile := writeFile(t, dir, "values.yaml", "hello\n")

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
	})

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}

	summary := decodeSummary(t, out)
	captures := summary.Documents[0].Captures
	if got := captures[":anything"]; got != "hello" {
		t.Fatalf("captures = %v, want :anything = hello", captures)
	}
}

func TestRunTextFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.yaml", "name: amy\nage: 30\n")

	r, out, _ := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
		Format:      config.FormatText,
	})

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}

	got := out.String()
	if !strings.Contains(got, "match") || !strings.Contains(got, "name = amy") {
		t.Fatalf("Run() text output = %q", got)
	}
	if !strings.Contains(got, "1 documents, 1 matched, 0 did not match") {
		t.Fatalf("Run() text summary missing: %q", got)
	}
}

func TestRunDebugLogsToStderr(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", userPattern)
	valueFile := writeFile(t, dir, "values.yaml", "name: amy\nage: 30\n")

	r, _, errOut := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
		Debug:       true,
	})

	if code := r.Run(context.Background()); code != exit.CodeOK {
		t.Fatalf("Run() = %d, want %d", code, exit.CodeOK)
	}
	if !strings.Contains(errOut.String(), "match") {
		t.Fatalf("stderr = %q, want per-document detail", errOut.String())
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	patternFile := writeFile(t, dir, "pattern.yaml", "pattern: {kind: any}")
	valueFile := writeFile(t, dir, "values.yaml", "1\n---\n2\n")

	r, _, errOut := newRunner(t, &config.Config{
		PatternFile: patternFile,
		ValueFiles:  []string{valueFile},
		RateLimit:   0.001,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code := r.Run(ctx); code != exit.CodeUsage {
		t.Fatalf("Run() = %d, want %d on cancelled context", code, exit.CodeUsage)
	}
	if errOut.Len() == 0 {
		t.Fatalf("stderr is empty, want context error")
	}
}
