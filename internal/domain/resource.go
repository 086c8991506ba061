package domain

import "time"

// Entity is anything a repository can store: it has an id and an owning principal.
type Entity interface {
	ResourceID() string
	Owner() string
}

// Meta carries the fields every resource shares.
type Meta struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newMeta(id, ownerID string, now time.Time) (Meta, error) {
	if id == "" {
		return Meta{}, NewMissingRequiredFieldError("id")
	}
	if ownerID == "" {
		return Meta{}, NewMissingRequiredFieldError("owner principal")
	}
	return Meta{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
}

func (m Meta) ResourceID() string { return m.ID }

func (m Meta) Owner() string { return m.OwnerID }

func (m Meta) touched(now time.Time) Meta {
	m.UpdatedAt = now
	return m
}

// lifecycle maps every known status of a resource to whether it is terminal.
type lifecycle[S ~string] map[S]bool

func (l lifecycle[S]) terminal(s S) bool {
	return l[s]
}

func (l lifecycle[S]) known(s S) bool {
	_, ok := l[s]
	return ok
}

func (l lifecycle[S]) parse(kind, raw string) (S, error) {
	s := S(raw)
	if !l.known(s) {
		return "", NewValidationError("unknown %s status %q", kind, raw)
	}
	return s, nil
}

// ensureOpen rejects any transition out of a terminal status.
func ensureOpen[S ~string](l lifecycle[S], kind, id string, current S) error {
	if l.terminal(current) {
		return NewAlreadyFinalizedError(kind, id, string(current))
	}
	return nil
}
