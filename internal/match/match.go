// Package match implements the recursive structural matcher.
//
// Match is pure and re-entrant: it is a function solely of the pattern
// and the value, allocates only transient capture maps and substrings,
// and touches no shared state, so one pattern may be matched concurrently
// from any number of goroutines.
package match

import (
	"errors"
	"fmt"

	"github.com/jacoelho/pmatch/internal/pattern"
	"github.com/jacoelho/pmatch/internal/value"
)

// DefaultMaxDepth bounds recursion for untrusted deeply nested patterns.
const DefaultMaxDepth = 10_000

var (
	// ErrDepthExceeded reports that pattern nesting exhausted the
	// matcher's depth budget. It is distinct from an ordinary mismatch.
	ErrDepthExceeded = errors.New("pattern nesting exceeds depth budget")

	// ErrPredicate reports a predicate that faulted instead of returning
	// a boolean. It is never downgraded to an ordinary mismatch.
	ErrPredicate = errors.New("predicate fault")
)

// Captures maps placeholder names to the values they captured during one
// successful match. A fresh map is built per call; nothing is retained
// between calls.
type Captures map[value.Key]value.Value

// merge inserts every entry of src into dst, overwriting on collision.
// Composite forms apply it in a fixed traversal order, so duplicate
// placeholder names resolve last-write-wins everywhere.
func merge(dst, src Captures) Captures {
	for key, captured := range src {
		dst[key] = captured
	}
	return dst
}

// Matcher matches patterns against values under a recursion budget.
// The zero value is not usable; construct with New.
type Matcher struct {
	maxDepth int
}

// New returns a matcher with the default depth budget.
func New() *Matcher {
	return NewWithDepth(DefaultMaxDepth)
}

// NewWithDepth returns a matcher bounded to the given nesting depth.
// Non-positive depths fall back to the default.
func NewWithDepth(maxDepth int) *Matcher {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Matcher{maxDepth: maxDepth}
}

// Match tests input against p. On success it returns the capture map and
// true. On an ordinary mismatch it returns (nil, false, nil): mismatches
// are values, not errors, and short-circuit at the first failing
// sub-pattern with no partial captures surviving. A non-nil error means
// the match could not be decided: a predicate fault or an exhausted depth
// budget.
func (m *Matcher) Match(p pattern.Pattern, input value.Value) (Captures, bool, error) {
	return m.match(p, input, 0)
}

// Match runs a single match under the default depth budget.
func Match(p pattern.Pattern, input value.Value) (Captures, bool, error) {
	return New().Match(p, input)
}

func (m *Matcher) match(p pattern.Pattern, input value.Value, depth int) (Captures, bool, error) {
	if depth > m.maxDepth {
		return nil, false, fmt.Errorf("%w: %d", ErrDepthExceeded, m.maxDepth)
	}

	switch current := p.(type) {
	case *pattern.Any:
		ok, err := admit(current.Pred, input)
		if err != nil || !ok {
			return nil, false, err
		}
		return Captures{}, true, nil

	case *pattern.Bind:
		ok, err := admit(current.Pred, input)
		if err != nil || !ok {
			return nil, false, err
		}
		return Captures{current.Name: input}, true, nil

	case *pattern.Template:
		return m.matchTemplate(current, input, depth)

	case *pattern.Seq:
		return m.matchSeq(current, input, depth)

	case *pattern.Record:
		return m.matchRecord(current, input, depth)

	case *pattern.Lit:
		if !value.Identical(current.Value, input) {
			return nil, false, nil
		}
		return Captures{}, true, nil

	default:
		return nil, false, fmt.Errorf("%w: unknown pattern form %T", pattern.ErrMalformed, p)
	}
}

// matchSeq applies the prefix rule: the target must be a sequence at
// least as long as the pattern; trailing target elements are ignored and
// never captured.
func (m *Matcher) matchSeq(p *pattern.Seq, input value.Value, depth int) (Captures, bool, error) {
	if input.Kind() != value.KindSequence {
		return nil, false, nil
	}

	elems := input.Elements()
	if len(elems) < len(p.Elems) {
		return nil, false, nil
	}

	captures := Captures{}
	for i, sub := range p.Elems {
		partial, ok, err := m.match(sub, elems[i], depth+1)
		if err != nil || !ok {
			return nil, false, err
		}
		captures = merge(captures, partial)
	}
	return captures, true, nil
}

// matchRecord applies the subset rule over any record-shaped target,
// including opaque hosts exposing fields: every declared key must be
// present, extra target keys are ignored, and partial captures merge in
// field-declaration order.
func (m *Matcher) matchRecord(p *pattern.Record, input value.Value, depth int) (Captures, bool, error) {
	if !input.RecordShaped() {
		return nil, false, nil
	}

	captures := Captures{}
	for _, field := range p.Fields {
		target, ok := input.Field(field.Key)
		if !ok {
			return nil, false, nil
		}
		partial, ok, err := m.match(field.Sub, target, depth+1)
		if err != nil || !ok {
			return nil, false, err
		}
		captures = merge(captures, partial)
	}
	return captures, true, nil
}

// matchTemplate decomposes a string target into one gap per sub-pattern
// and matches each gap; literal fragments contribute no captures.
func (m *Matcher) matchTemplate(p *pattern.Template, input value.Value, depth int) (Captures, bool, error) {
	if input.Kind() != value.KindString {
		return nil, false, nil
	}

	gaps, ok := p.Decompose(input.StringValue())
	if !ok {
		return nil, false, nil
	}

	captures := Captures{}
	for i, sub := range p.Subpatterns() {
		partial, ok, err := m.match(sub, value.String(gaps[i]), depth+1)
		if err != nil || !ok {
			return nil, false, err
		}
		captures = merge(captures, partial)
	}
	return captures, true, nil
}

// admit runs a placeholder predicate at most once. Predicate errors are
// faults, never mismatches.
func admit(pred pattern.Predicate, input value.Value) (bool, error) {
	if pred == nil {
		return true, nil
	}
	ok, err := pred(input)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPredicate, err)
	}
	return ok, nil
}
