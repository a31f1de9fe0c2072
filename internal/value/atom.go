package value

import "github.com/google/uuid"

// Atom is an opaque unique identity token. Two atoms are the same atom
// only if they are the same token; names are labels, not identities.
type Atom struct {
	id   uuid.UUID
	name string
}

// NewAtom mints a fresh atom labelled name. Every call returns a distinct
// identity, including for repeated names.
func NewAtom(name string) *Atom {
	return &Atom{id: uuid.New(), name: name}
}

// Name returns the atom's label.
func (a *Atom) Name() string {
	return a.name
}

// ID returns the atom's unique identity.
func (a *Atom) ID() uuid.UUID {
	return a.id
}

func (a *Atom) String() string {
	if a == nil {
		return "atom(<nil>)"
	}
	return ":" + a.name
}
