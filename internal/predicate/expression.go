package predicate

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/jacoelho/pmatch/internal/pattern"
	"github.com/jacoelho/pmatch/internal/value"
)

// Expression compiles an expr program into a placeholder predicate. The
// candidate value is bound to `value` in plain host form. Compilation
// errors surface at pattern-construction time; evaluation errors are
// predicate faults.
func Expression(source string) (pattern.Predicate, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expression %q: %v", ErrInvalidInput, source, err)
	}

	return func(v value.Value) (bool, error) {
		out, err := expr.Run(program, map[string]any{"value": value.ToAny(v)})
		if err != nil {
			return false, fmt.Errorf("expression %q: %w", source, err)
		}

		admitted, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("expression %q returned %T, want bool", source, out)
		}
		return admitted, nil
	}, nil
}
