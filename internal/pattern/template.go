package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Template matches a string value against an interleaving of literal
// fragments and sub-patterns. With n sub-patterns there are n+1 literal
// fragments: the string must start with the first, end with the last, and
// contain the middle fragments in order. Each gap between fragments is
// handed to the corresponding sub-pattern as a string value.
//
// The greedy flag selects the longest instead of the shortest valid gap
// when a separating fragment occurs more than once. The decomposition is
// compiled once, at construction, into an anchored RE2 expression, so
// matching is linear in the input and fragment characters are always
// treated as literal text.
type Template struct {
	literals []string
	subs     []Pattern
	greedy   bool
	re       *regexp.Regexp
}

// NewTemplate builds a template from n+1 literal fragments and n
// sub-patterns. A count mismatch is a construction-time error.
func NewTemplate(literals []string, subs []Pattern, greedy bool) (*Template, error) {
	if len(literals) != len(subs)+1 {
		return nil, fmt.Errorf("%w: template needs %d literal fragments for %d sub-patterns, got %d",
			ErrMalformed, len(subs)+1, len(subs), len(literals))
	}

	gap := "(.*?)"
	if greedy {
		gap = "(.*)"
	}

	var b strings.Builder
	b.WriteString(`(?s)\A`)
	b.WriteString(regexp.QuoteMeta(literals[0]))
	for _, literal := range literals[1:] {
		b.WriteString(gap)
		b.WriteString(regexp.QuoteMeta(literal))
	}
	b.WriteString(`\z`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &Template{
		literals: append([]string(nil), literals...),
		subs:     append([]Pattern(nil), subs...),
		greedy:   greedy,
		re:       re,
	}, nil
}

// Literals returns the literal fragments in order.
func (t *Template) Literals() []string {
	return t.literals
}

// Subpatterns returns the gap sub-patterns in order.
func (t *Template) Subpatterns() []Pattern {
	return t.subs
}

// Greedy reports the gap-extraction policy.
func (t *Template) Greedy() bool {
	return t.greedy
}

// Decompose splits input into one gap substring per sub-pattern. It
// reports false when no decomposition exists; in that case no sub-pattern
// is evaluated by the caller. A zero-width gap between adjacent fragments
// decomposes to the empty string.
func (t *Template) Decompose(input string) ([]string, bool) {
	groups := t.re.FindStringSubmatch(input)
	if groups == nil {
		return nil, false
	}
	return groups[1:], true
}
