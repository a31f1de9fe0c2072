package value

import (
	"fmt"
	"strconv"
)

// Key is a record field key or capture name. Keys are string-, number-,
// or atom-kinded and are comparable, so they can index capture maps and
// record values directly.
type Key struct {
	kind Kind
	str  string
	num  float64
	atom *Atom
}

// StringKey returns a string-kinded key.
func StringKey(s string) Key {
	return Key{kind: KindString, str: s}
}

// NumberKey returns a number-kinded key.
func NumberKey(f float64) Key {
	return Key{kind: KindNumber, num: f}
}

// AtomKey returns an atom-kinded key.
func AtomKey(a *Atom) Key {
	return Key{kind: KindAtom, atom: a}
}

// Kind reports the key's kind.
func (k Key) Kind() Kind {
	return k.kind
}

func (k Key) String() string {
	switch k.kind {
	case KindString:
		return k.str
	case KindNumber:
		return strconv.FormatFloat(k.num, 'g', -1, 64)
	case KindAtom:
		return k.atom.String()
	default:
		return fmt.Sprintf("key(%s)", k.kind)
	}
}
