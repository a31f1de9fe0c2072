package predicate

import (
	"fmt"

	"github.com/theory/jsonpath"

	"github.com/jacoelho/pmatch/internal/pattern"
	"github.com/jacoelho/pmatch/internal/value"
)

// JSONPath returns a predicate satisfied when the RFC 9535 query selects
// at least one node from the candidate value.
func JSONPath(path string) (pattern.Predicate, error) {
	parsed, err := jsonpath.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSONPath %q: %v", ErrInvalidInput, path, err)
	}

	return func(v value.Value) (bool, error) {
		return len(parsed.Select(value.ToAny(v))) > 0, nil
	}, nil
}
