package loader

import "github.com/google/uuid"

// Identifier is either a Name or a GroupToken. Load switches on the concrete
// type, so the two can never be confused.
type Identifier interface {
	identifier()
}

// Name is a module identifier such as "lodash/fp/map" or "config.json".
type Name string

func (Name) identifier() {}

func (n Name) String() string { return string(n) }

// GroupToken names an ordered group. Tokens come from Loader.NewGroup and are
// single-use: once drained they are rejected. The zero token is never valid.
type GroupToken struct {
	id uuid.UUID
}

func (GroupToken) identifier() {}

// IsZero reports whether t is the zero token.
func (t GroupToken) IsZero() bool { return t.id == uuid.Nil }

func (t GroupToken) String() string { return "group:" + t.id.String() }

func newGroupToken() GroupToken {
	return GroupToken{id: uuid.New()}
}
