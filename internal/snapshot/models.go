// Package snapshot converts the live store into a versioned, portable
// snapshot and back. Relationships are flattened into identifier lists so
// the payload never contains forward references or cycles; the restore side
// re-links them through an id lookup.
package snapshot

import (
	"fmt"
	"time"

	"sam-backup/internal/errors"
)

// SupportedVersion is the newest snapshot format version this build
// understands. Readers must refuse any snapshot with a greater version.
const SupportedVersion = 1

// Snapshot is the versioned envelope holding the full contents of the
// store at one instant. It is constructed once per export and consumed
// once per restore; it is never persisted outside the encrypted blob.
type Snapshot struct {
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	People    []PersonRecord   `json:"people"`
	Contexts  []ContextRecord  `json:"contexts"`
	Evidence  []EvidenceRecord `json:"evidence"`
}

// PersonRecord is the flat serialized form of a person entity
type PersonRecord struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Roles            []string `json:"roles"`
	InteractionCount int      `json:"interactionCount"`
	Notes            []string `json:"notes"`
	Alerts           []string `json:"alerts"`
}

// ContextRecord is the flat serialized form of a context entity
type ContextRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags"`
	MeetingCount int      `json:"meetingCount"`
	Notes        []string `json:"notes"`
	Alerts       []string `json:"alerts"`
}

// EvidenceRecord is the flat serialized form of an evidence entity.
// LinkedPeople and LinkedContexts carry the only cross-entity
// relationships in the model, as identifier references.
type EvidenceRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CapturedAt     time.Time `json:"capturedAt"`
	Tags           []string  `json:"tags"`
	LinkedPeople   []string  `json:"linkedPeople"`
	LinkedContexts []string  `json:"linkedContexts"`
}

// Validate checks the structural invariants of the snapshot: IDs must be
// present and unique within each collection. Dangling evidence references
// are deliberately not validated here; they are tolerated and dropped at
// restore time.
func (s *Snapshot) Validate() error {
	if err := validateIDs("people", personIDs(s.People)); err != nil {
		return err
	}
	if err := validateIDs("contexts", contextIDs(s.Contexts)); err != nil {
		return err
	}
	if err := validateIDs("evidence", evidenceIDs(s.Evidence)); err != nil {
		return err
	}
	return nil
}

// Counts returns the number of records per collection
func (s *Snapshot) Counts() (people, contexts, evidence int) {
	return len(s.People), len(s.Contexts), len(s.Evidence)
}

func validateIDs(collection string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if id == "" {
			return errors.NewDeserializationError(
				fmt.Sprintf("record %d in %s has no id", i, collection), nil)
		}
		if seen[id] {
			return errors.NewDeserializationError(
				fmt.Sprintf("duplicate id in %s", collection), nil).
				WithContext("id", id)
		}
		seen[id] = true
	}
	return nil
}

func personIDs(records []PersonRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func contextIDs(records []ContextRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func evidenceIDs(records []EvidenceRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
