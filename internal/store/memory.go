package store

import (
	"context"
	"sync"

	"sam-backup/internal/errors"
)

// MemoryStore is a mutex-guarded in-memory Store. Listing preserves
// insertion order. It is the default backend for tests and for callers that
// keep their data in process.
type MemoryStore struct {
	mu       sync.RWMutex
	people   []Person
	contexts []Context
	evidence []Evidence
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ListPeople returns copies of all people in insertion order
func (m *MemoryStore) ListPeople(_ context.Context) ([]Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Person, len(m.people))
	for i, p := range m.people {
		out[i] = copyPerson(p)
	}
	return out, nil
}

// ListContexts returns copies of all contexts in insertion order
func (m *MemoryStore) ListContexts(_ context.Context) ([]Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Context, len(m.contexts))
	for i, c := range m.contexts {
		out[i] = copyContext(c)
	}
	return out, nil
}

// ListEvidence returns copies of all evidence in insertion order, links
// included
func (m *MemoryStore) ListEvidence(_ context.Context) ([]Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Evidence, len(m.evidence))
	for i, e := range m.evidence {
		out[i] = copyEvidence(e)
	}
	return out, nil
}

// InsertPerson inserts a person, preserving its ID
func (m *MemoryStore) InsertPerson(_ context.Context, p Person) error {
	if p.ID == "" {
		return errors.NewStoreError("person ID is required", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.people {
		if existing.ID == p.ID {
			return errors.NewStoreError("duplicate person ID", nil).WithContext("id", p.ID)
		}
	}
	m.people = append(m.people, copyPerson(p))
	return nil
}

// InsertContext inserts a context, preserving its ID
func (m *MemoryStore) InsertContext(_ context.Context, c Context) error {
	if c.ID == "" {
		return errors.NewStoreError("context ID is required", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.contexts {
		if existing.ID == c.ID {
			return errors.NewStoreError("duplicate context ID", nil).WithContext("id", c.ID)
		}
	}
	m.contexts = append(m.contexts, copyContext(c))
	return nil
}

// InsertEvidence inserts an evidence entity without its links
func (m *MemoryStore) InsertEvidence(_ context.Context, e Evidence) error {
	if e.ID == "" {
		return errors.NewStoreError("evidence ID is required", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.evidence {
		if existing.ID == e.ID {
			return errors.NewStoreError("duplicate evidence ID", nil).WithContext("id", e.ID)
		}
	}

	bare := copyEvidence(e)
	bare.PersonIDs = nil
	bare.ContextIDs = nil
	m.evidence = append(m.evidence, bare)
	return nil
}

// SetEvidenceLinks replaces the links of an existing evidence entity
func (m *MemoryStore) SetEvidenceLinks(_ context.Context, evidenceID string, personIDs, contextIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.evidence {
		if m.evidence[i].ID == evidenceID {
			m.evidence[i].PersonIDs = append([]string(nil), personIDs...)
			m.evidence[i].ContextIDs = append([]string(nil), contextIDs...)
			return nil
		}
	}
	return errors.NewStoreError("evidence not found", nil).WithContext("id", evidenceID)
}

// DeleteAllEvidence removes every evidence entity
func (m *MemoryStore) DeleteAllEvidence(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence = nil
	return nil
}

// DeleteAllContexts removes every context entity
func (m *MemoryStore) DeleteAllContexts(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = nil
	return nil
}

// DeleteAllPeople removes every person entity
func (m *MemoryStore) DeleteAllPeople(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = nil
	return nil
}

func copyPerson(p Person) Person {
	p.Roles = append([]string(nil), p.Roles...)
	p.Notes = append([]string(nil), p.Notes...)
	p.Alerts = append([]string(nil), p.Alerts...)
	return p
}

func copyContext(c Context) Context {
	c.Tags = append([]string(nil), c.Tags...)
	c.Notes = append([]string(nil), c.Notes...)
	c.Alerts = append([]string(nil), c.Alerts...)
	return c
}

func copyEvidence(e Evidence) Evidence {
	e.Tags = append([]string(nil), e.Tags...)
	e.PersonIDs = append([]string(nil), e.PersonIDs...)
	e.ContextIDs = append([]string(nil), e.ContextIDs...)
	return e
}
