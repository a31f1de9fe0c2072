package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleSummary() *Summary {
	s := &Summary{}
	s.Add(Document{
		Source:  "values.yaml",
		Index:   0,
		Matched: true,
		Captures: map[string]any{
			"user": "amy",
			"age":  float64(30),
		},
	})
	s.Add(Document{Source: "values.yaml", Index: 1})
	s.Add(Document{Source: "feed.json", Index: 0, Fault: "predicate fault: boom"})
	return s
}

func TestSummaryCounts(t *testing.T) {
	t.Parallel()

	s := sampleSummary()
	if got := s.Matched(); got != 1 {
		t.Fatalf("Matched() = %d, want 1", got)
	}
	if got := s.Mismatched(); got != 2 {
		t.Fatalf("Mismatched() = %d, want 2", got)
	}
}

func TestFormatText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleSummary().Format("text", &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	got := buf.String()
	want := `values.yaml[0]: match
  age = 30
  user = amy
values.yaml[1]: no match
feed.json[0]: fault: predicate fault: boom
3 documents, 1 matched, 2 did not match
`
	if got != want {
		t.Fatalf("Format(text) = %q, want %q", got, want)
	}
}

func TestFormatTextEmptySummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := (&Summary{}).Format("text", &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if got := buf.String(); got != "0 documents, 0 matched, 0 did not match\n" {
		t.Fatalf("Format(text) = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := sampleSummary().Format("json", &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded.Documents) != 3 {
		t.Fatalf("documents = %d, want 3", len(decoded.Documents))
	}
	if !decoded.Documents[0].Matched {
		t.Fatalf("document 0 matched = false, want true")
	}
	if decoded.Documents[0].Captures["user"] != "amy" {
		t.Fatalf("document 0 user = %v, want amy", decoded.Documents[0].Captures["user"])
	}
	if decoded.Documents[2].Fault == "" {
		t.Fatalf("document 2 fault is empty")
	}

	// Mismatch documents omit empty capture maps.
	if strings.Contains(buf.String(), `"captures": {}`) {
		t.Fatalf("Format(json) renders empty capture maps: %s", buf.String())
	}
}
