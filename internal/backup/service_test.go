package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sam-backup/internal/crypto"
	"sam-backup/internal/errors"
	"sam-backup/internal/snapshot"
	"sam-backup/internal/store"
)

func seededStore(t *testing.T) (*store.MemoryStore, string, string, string) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	personID := store.NewID()
	contextID := store.NewID()
	evidenceID := store.NewID()

	require.NoError(t, s.InsertPerson(ctx, store.Person{
		ID: personID, Name: "Ayla", Roles: []string{"manager"}, InteractionCount: 4,
	}))
	require.NoError(t, s.InsertContext(ctx, store.Context{
		ID: contextID, Name: "Acme account", MeetingCount: 2,
	}))
	require.NoError(t, s.InsertEvidence(ctx, store.Evidence{
		ID: evidenceID, Title: "Renewal call notes",
		CapturedAt: time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.SetEvidenceLinks(ctx, evidenceID, []string{personID}, []string{contextID}))

	return s, personID, contextID, evidenceID
}

func TestService_ExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source, personID, contextID, evidenceID := seededStore(t)
	service := NewService(nil)

	blob, err := service.ExportStore(ctx, source, "hunter2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(blob), crypto.MinBlobSize)

	target := store.NewMemoryStore()
	require.NoError(t, service.ImportBlob(ctx, blob, "hunter2", target))

	// Identity preservation: original IDs survive the cycle verbatim
	people, err := target.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, personID, people[0].ID)
	assert.Equal(t, "Ayla", people[0].Name)
	assert.Equal(t, []string{"manager"}, people[0].Roles)

	contexts, err := target.ListContexts(ctx)
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, contextID, contexts[0].ID)

	evidence, err := target.ListEvidence(ctx)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, evidenceID, evidence[0].ID)
	assert.Equal(t, []string{personID}, evidence[0].PersonIDs)
	assert.Equal(t, []string{contextID}, evidence[0].ContextIDs)
}

func TestService_ExportImport_EmptyStore(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil)

	blob, err := service.ExportStore(ctx, store.NewMemoryStore(), "pw")
	require.NoError(t, err)

	target, _, _, _ := seededStore(t)
	require.NoError(t, service.ImportBlob(ctx, blob, "pw", target))

	people, err := target.ListPeople(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)
}

func TestService_ImportBlob_WrongPassword(t *testing.T) {
	ctx := context.Background()
	source, _, _, _ := seededStore(t)
	service := NewService(nil)

	blob, err := service.ExportStore(ctx, source, "right")
	require.NoError(t, err)

	target := store.NewMemoryStore()
	require.NoError(t, target.InsertPerson(ctx, store.Person{ID: "keep-me", Name: "Existing"}))

	err = service.ImportBlob(ctx, blob, "wrong", target)
	require.Error(t, err)
	assert.True(t, errors.IsWrongPassword(err))

	// The store is untouched on any failure before the wipe
	people, err := target.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "keep-me", people[0].ID)
}

func TestService_ImportBlob_TruncatedBlob(t *testing.T) {
	service := NewService(nil)

	err := service.ImportBlob(context.Background(), make([]byte, 20), "pw", store.NewMemoryStore())
	require.Error(t, err)
	assert.True(t, errors.IsInvalidFile(err))
}

func TestService_ImportBlob_UnsupportedVersion_StoreUntouched(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil)

	// Build a valid blob carrying a snapshot from a future format version
	engine := crypto.NewEngine()
	codec := snapshot.NewCodec()
	future := &snapshot.Snapshot{Version: snapshot.SupportedVersion + 1, CreatedAt: time.Now()}
	payload, err := codec.Serialize(future)
	require.NoError(t, err)
	blob, err := engine.Encrypt(payload, "pw")
	require.NoError(t, err)

	target, personID, _, _ := seededStore(t)
	err = service.ImportBlob(ctx, blob, "pw", target)
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedVersion(err))

	people, err := target.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, personID, people[0].ID)
}

func TestService_ImportBlob_DanglingReferenceTolerated(t *testing.T) {
	ctx := context.Background()
	service := NewService(nil)

	engine := crypto.NewEngine()
	codec := snapshot.NewCodec()
	snap := &snapshot.Snapshot{
		Version:   snapshot.SupportedVersion,
		CreatedAt: time.Now(),
		People:    []snapshot.PersonRecord{{ID: "p1", Name: "Ayla"}},
		Evidence: []snapshot.EvidenceRecord{{
			ID:           "e1",
			Title:        "Notes",
			LinkedPeople: []string{"p1", "absent"},
		}},
	}
	payload, err := codec.Serialize(snap)
	require.NoError(t, err)
	blob, err := engine.Encrypt(payload, "pw")
	require.NoError(t, err)

	target := store.NewMemoryStore()
	require.NoError(t, service.ImportBlob(ctx, blob, "pw", target))

	evidence, err := target.ListEvidence(ctx)
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, []string{"p1"}, evidence[0].PersonIDs)
}

func TestService_ExportThenApplyBack_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := seededStore(t)
	service := NewService(nil)

	beforePeople, err := s.ListPeople(ctx)
	require.NoError(t, err)
	beforeEvidence, err := s.ListEvidence(ctx)
	require.NoError(t, err)

	blob, err := service.ExportStore(ctx, s, "pw")
	require.NoError(t, err)
	require.NoError(t, service.ImportBlob(ctx, blob, "pw", s))

	afterPeople, err := s.ListPeople(ctx)
	require.NoError(t, err)
	afterEvidence, err := s.ListEvidence(ctx)
	require.NoError(t, err)

	assert.Equal(t, beforePeople, afterPeople)
	assert.Equal(t, beforeEvidence, afterEvidence)
}

func TestService_Export_NonDeterministicBlob(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := seededStore(t)
	service := NewService(nil)

	blob1, err := service.ExportStore(ctx, s, "pw")
	require.NoError(t, err)
	blob2, err := service.ExportStore(ctx, s, "pw")
	require.NoError(t, err)

	assert.NotEqual(t, blob1, blob2)
}
