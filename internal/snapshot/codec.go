package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"sam-backup/internal/errors"
	"sam-backup/internal/store"
)

// Codec converts between the live store and the serialized snapshot form
type Codec struct{}

// NewCodec creates a new snapshot codec
func NewCodec() *Codec {
	return &Codec{}
}

// Encode reads the current state of all three collections and flattens it
// into a Snapshot. It is a pure read: the store is never mutated, and the
// result is deterministic for a given store state.
func (c *Codec) Encode(ctx context.Context, s store.Store) (*Snapshot, error) {
	people, err := s.ListPeople(ctx)
	if err != nil {
		return nil, errors.NewStoreError("failed to read people for export", err)
	}
	contexts, err := s.ListContexts(ctx)
	if err != nil {
		return nil, errors.NewStoreError("failed to read contexts for export", err)
	}
	evidence, err := s.ListEvidence(ctx)
	if err != nil {
		return nil, errors.NewStoreError("failed to read evidence for export", err)
	}

	snap := &Snapshot{
		Version:   SupportedVersion,
		CreatedAt: time.Now().UTC(),
		People:    make([]PersonRecord, len(people)),
		Contexts:  make([]ContextRecord, len(contexts)),
		Evidence:  make([]EvidenceRecord, len(evidence)),
	}

	for i, p := range people {
		snap.People[i] = PersonRecord{
			ID:               p.ID,
			Name:             p.Name,
			Roles:            emptyIfNil(p.Roles),
			InteractionCount: p.InteractionCount,
			Notes:            emptyIfNil(p.Notes),
			Alerts:           emptyIfNil(p.Alerts),
		}
	}
	for i, cx := range contexts {
		snap.Contexts[i] = ContextRecord{
			ID:           cx.ID,
			Name:         cx.Name,
			Tags:         emptyIfNil(cx.Tags),
			MeetingCount: cx.MeetingCount,
			Notes:        emptyIfNil(cx.Notes),
			Alerts:       emptyIfNil(cx.Alerts),
		}
	}
	for i, e := range evidence {
		snap.Evidence[i] = EvidenceRecord{
			ID:             e.ID,
			Title:          e.Title,
			Body:           e.Body,
			CapturedAt:     e.CapturedAt,
			Tags:           emptyIfNil(e.Tags),
			LinkedPeople:   emptyIfNil(e.PersonIDs),
			LinkedContexts: emptyIfNil(e.ContextIDs),
		}
	}

	return snap, nil
}

// Serialize encodes a snapshot into its JSON payload form
func (c *Codec) Serialize(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.NewSerializationError("failed to marshal snapshot", err)
	}
	return data, nil
}

// Deserialize decodes the JSON payload back into a Snapshot. It fails with
// a deserialization error on structurally invalid input and with an
// unsupported-version error when the payload declares a format version
// newer than SupportedVersion. The version gate runs before structural
// validation: a newer writer may legitimately emit shapes this build does
// not understand.
func (c *Codec) Deserialize(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.NewDeserializationError("payload is not a valid snapshot encoding", err)
	}

	if snap.Version > SupportedVersion {
		return nil, errors.NewUnsupportedVersionError("snapshot version is newer than this build supports", nil).
			WithContext("version", snap.Version).
			WithContext("supported", SupportedVersion)
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}

	return &snap, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
