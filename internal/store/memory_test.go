package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertAndListPeople(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p1 := Person{ID: NewID(), Name: "Ayla", Roles: []string{"manager"}, InteractionCount: 3}
	p2 := Person{ID: NewID(), Name: "Deniz", Notes: []string{"intro call"}}

	require.NoError(t, s.InsertPerson(ctx, p1))
	require.NoError(t, s.InsertPerson(ctx, p2))

	people, err := s.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, p1.ID, people[0].ID)
	assert.Equal(t, "Ayla", people[0].Name)
	assert.Equal(t, []string{"manager"}, people[0].Roles)
	assert.Equal(t, p2.ID, people[1].ID)
}

func TestMemoryStore_InsertPerson_RequiresID(t *testing.T) {
	s := NewMemoryStore()

	err := s.InsertPerson(context.Background(), Person{Name: "No ID"})
	assert.Error(t, err)
}

func TestMemoryStore_InsertPerson_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := NewID()

	require.NoError(t, s.InsertPerson(ctx, Person{ID: id, Name: "First"}))
	err := s.InsertPerson(ctx, Person{ID: id, Name: "Second"})
	assert.Error(t, err)
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id := NewID()
	require.NoError(t, s.InsertPerson(ctx, Person{ID: id, Name: "Ayla", Roles: []string{"manager"}}))

	people, err := s.ListPeople(ctx)
	require.NoError(t, err)
	people[0].Roles[0] = "mutated"

	again, err := s.ListPeople(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"manager"}, again[0].Roles)
}

func TestMemoryStore_InsertEvidence_StripsLinks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := Evidence{
		ID:         NewID(),
		Title:      "Quarterly review notes",
		CapturedAt: time.Now(),
		PersonIDs:  []string{NewID()},
		ContextIDs: []string{NewID()},
	}
	require.NoError(t, s.InsertEvidence(ctx, e))

	evidence, err := s.ListEvidence(ctx)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Empty(t, evidence[0].PersonIDs)
	assert.Empty(t, evidence[0].ContextIDs)
}

func TestMemoryStore_SetEvidenceLinks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	evidenceID := NewID()
	personID := NewID()
	contextID := NewID()
	require.NoError(t, s.InsertEvidence(ctx, Evidence{ID: evidenceID, Title: "Notes"}))

	require.NoError(t, s.SetEvidenceLinks(ctx, evidenceID, []string{personID}, []string{contextID}))

	evidence, err := s.ListEvidence(ctx)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, []string{personID}, evidence[0].PersonIDs)
	assert.Equal(t, []string{contextID}, evidence[0].ContextIDs)
}

func TestMemoryStore_SetEvidenceLinks_UnknownEvidence(t *testing.T) {
	s := NewMemoryStore()

	err := s.SetEvidenceLinks(context.Background(), NewID(), nil, nil)
	assert.Error(t, err)
}

func TestMemoryStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertPerson(ctx, Person{ID: NewID(), Name: "Ayla"}))
	require.NoError(t, s.InsertContext(ctx, Context{ID: NewID(), Name: "Acme"}))
	require.NoError(t, s.InsertEvidence(ctx, Evidence{ID: NewID(), Title: "Notes"}))

	require.NoError(t, s.DeleteAllEvidence(ctx))
	require.NoError(t, s.DeleteAllContexts(ctx))
	require.NoError(t, s.DeleteAllPeople(ctx))

	people, err := s.ListPeople(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)

	contexts, err := s.ListContexts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contexts)

	evidence, err := s.ListEvidence(ctx)
	require.NoError(t, err)
	assert.Empty(t, evidence)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}
