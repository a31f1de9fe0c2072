// Package pattern defines the closed set of pattern forms the matcher
// dispatches over. Patterns are constructed once, validated at
// construction time, and never mutated afterwards.
package pattern

import (
	"errors"

	"github.com/jacoelho/pmatch/internal/value"
)

// ErrMalformed reports a structural invariant violated at pattern
// construction time. It is never produced during matching.
var ErrMalformed = errors.New("malformed pattern")

// Predicate gates what a placeholder accepts. A nil Predicate accepts
// everything. A non-nil error is a predicate fault, not a match failure:
// it aborts the in-flight match and surfaces to the caller.
type Predicate func(value.Value) (bool, error)

// Pattern is a fully materialized shape description. The variant set is
// closed: Any, Bind, Seq, Record, Template and Lit.
type Pattern interface {
	pattern()
}

// Any is the anonymous placeholder: it matches any value admitted by its
// predicate and captures nothing.
type Any struct {
	Pred Predicate
}

// Bind is the named placeholder: it matches any value admitted by its
// predicate and captures it under Name.
type Bind struct {
	Name value.Key
	Pred Predicate
}

// Seq matches a prefix of an ordered sequence: the target must be a
// sequence at least as long as Elems, and trailing target elements are
// ignored.
type Seq struct {
	Elems []Pattern
}

// Field is one declared key/sub-pattern entry of a Record pattern.
type Field struct {
	Key value.Key
	Sub Pattern
}

// Record matches a subset of fields of any record-shaped target, in
// declared field order. Target keys not named here are ignored.
type Record struct {
	Fields []Field
}

// Lit matches a scalar, atom, or opaque value by strict identity.
// Containers are never represented as Lit.
type Lit struct {
	Value value.Value
}

func (*Any) pattern()      {}
func (*Bind) pattern()     {}
func (*Seq) pattern()      {}
func (*Record) pattern()   {}
func (*Template) pattern() {}
func (*Lit) pattern()      {}
