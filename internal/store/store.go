// Package store defines the live entity store the backup engine reads from
// and restores into. The engine treats it as an opaque persistence backend:
// fetch-all-of-type, insert, delete-all-of-type, plus link attachment for
// evidence. Two implementations are provided, an in-memory store and a
// MySQL-backed store.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Person is a tracked individual. Relationships to a person are held by
// evidence entities, never embedded here.
type Person struct {
	ID               string
	Name             string
	Roles            []string
	InteractionCount int
	Notes            []string
	Alerts           []string
}

// Context is an organizational context a person or record can belong to
// (a team, an account, a case)
type Context struct {
	ID           string
	Name         string
	Tags         []string
	MeetingCount int
	Notes        []string
	Alerts       []string
}

// Evidence is an evidentiary record. It carries the only cross-entity
// relationships in the model, as ID references to people and contexts.
type Evidence struct {
	ID         string
	Title      string
	Body       string
	CapturedAt time.Time
	Tags       []string
	PersonIDs  []string
	ContextIDs []string
}

// Store is the persistence backend for the three managed collections.
// Implementations must return copies the caller may mutate freely, and must
// preserve IDs verbatim on insert.
type Store interface {
	ListPeople(ctx context.Context) ([]Person, error)
	ListContexts(ctx context.Context) ([]Context, error)
	ListEvidence(ctx context.Context) ([]Evidence, error)

	InsertPerson(ctx context.Context, p Person) error
	InsertContext(ctx context.Context, c Context) error
	// InsertEvidence inserts the evidence entity without its relationship
	// lists; links are attached separately via SetEvidenceLinks.
	InsertEvidence(ctx context.Context, e Evidence) error

	// SetEvidenceLinks replaces the person and context links of an
	// existing evidence entity.
	SetEvidenceLinks(ctx context.Context, evidenceID string, personIDs, contextIDs []string) error

	DeleteAllEvidence(ctx context.Context) error
	DeleteAllContexts(ctx context.Context) error
	DeleteAllPeople(ctx context.Context) error
}

// NewID mints a new opaque entity identifier
func NewID() string {
	return uuid.NewString()
}
