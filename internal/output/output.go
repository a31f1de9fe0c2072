// Package output renders match results for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Document is the outcome of matching one input document.
type Document struct {
	Source   string         `json:"source"`
	Index    int            `json:"index"`
	Matched  bool           `json:"matched"`
	Captures map[string]any `json:"captures,omitempty"`
	Fault    string         `json:"fault,omitempty"`
}

// Summary accumulates per-document outcomes across all value files.
type Summary struct {
	Documents []Document `json:"documents"`
}

// Add records one document outcome.
func (s *Summary) Add(doc Document) {
	s.Documents = append(s.Documents, doc)
}

// Matched counts documents that matched.
func (s *Summary) Matched() int {
	count := 0
	for _, doc := range s.Documents {
		if doc.Matched {
			count++
		}
	}
	return count
}

// Mismatched counts documents that did not match, faults included.
func (s *Summary) Mismatched() int {
	return len(s.Documents) - s.Matched()
}

// Format renders the summary as text or json.
func (s *Summary) Format(format string, w io.Writer) error {
	switch format {
	case "json":
		return s.formatJSON(w)
	default:
		return s.formatText(w)
	}
}

func (s *Summary) formatJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func (s *Summary) formatText(w io.Writer) error {
	for _, doc := range s.Documents {
		status := "no match"
		if doc.Matched {
			status = "match"
		}
		if doc.Fault != "" {
			status = "fault: " + doc.Fault
		}

		if _, err := fmt.Fprintf(w, "%s[%d]: %s\n", doc.Source, doc.Index, status); err != nil {
			return err
		}

		names := make([]string, 0, len(doc.Captures))
		for name := range doc.Captures {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, err := fmt.Fprintf(w, "  %s = %v\n", name, doc.Captures[name]); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "%d documents, %d matched, %d did not match\n",
		len(s.Documents), s.Matched(), s.Mismatched())
	return err
}
