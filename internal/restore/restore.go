// Package restore sequences the mutation of the live store from a decoded
// snapshot: wipe, recreate entities in dependency order, then re-link
// relationships by identifier.
package restore

import (
	"context"
	"time"

	"sam-backup/internal/errors"
	"sam-backup/internal/logging"
	"sam-backup/internal/snapshot"
	"sam-backup/internal/store"
)

// Orchestrator replaces the store's contents with a snapshot's contents.
// The caller must guarantee no other writer mutates the three managed
// collections while Apply runs; the wipe-then-recreate sequence is not
// isolated from external writers, and there is no cancellation once the
// wipe step begins.
type Orchestrator struct {
	logger *logging.Logger
}

// NewOrchestrator creates a restore orchestrator
func NewOrchestrator(logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{logger: logger}
}

// Apply replaces all tracked collections in the store with the snapshot's
// contents, preserving original IDs, then re-establishes cross-entity
// relationships. Evidence references that do not resolve to an ID present
// in the snapshot are dropped silently rather than failing the restore.
//
// If Apply fails partway through, the store may be left empty or partially
// populated; failures before the wipe leave it untouched.
func (o *Orchestrator) Apply(ctx context.Context, snap *snapshot.Snapshot, s store.Store) error {
	// Pass 0: wipe, most-dependent collection first so stores that
	// enforce referential constraints never see a dangling row
	start := time.Now()
	if err := s.DeleteAllEvidence(ctx); err != nil {
		return errors.NewStoreError("failed to wipe evidence", err)
	}
	if err := s.DeleteAllContexts(ctx); err != nil {
		return errors.NewStoreError("failed to wipe contexts", err)
	}
	if err := s.DeleteAllPeople(ctx); err != nil {
		return errors.NewStoreError("failed to wipe people", err)
	}
	o.logger.LogRestorePhase("wipe", 0, time.Since(start))

	// Pass 1: recreate every entity bare, original IDs intact,
	// relationship fields empty
	start = time.Now()
	for _, r := range snap.People {
		p := store.Person{
			ID:               r.ID,
			Name:             r.Name,
			Roles:            r.Roles,
			InteractionCount: r.InteractionCount,
			Notes:            r.Notes,
			Alerts:           r.Alerts,
		}
		if err := s.InsertPerson(ctx, p); err != nil {
			return errors.NewStoreError("failed to recreate person", err).WithContext("id", r.ID)
		}
	}
	for _, r := range snap.Contexts {
		c := store.Context{
			ID:           r.ID,
			Name:         r.Name,
			Tags:         r.Tags,
			MeetingCount: r.MeetingCount,
			Notes:        r.Notes,
			Alerts:       r.Alerts,
		}
		if err := s.InsertContext(ctx, c); err != nil {
			return errors.NewStoreError("failed to recreate context", err).WithContext("id", r.ID)
		}
	}
	for _, r := range snap.Evidence {
		e := store.Evidence{
			ID:         r.ID,
			Title:      r.Title,
			Body:       r.Body,
			CapturedAt: r.CapturedAt,
			Tags:       r.Tags,
		}
		if err := s.InsertEvidence(ctx, e); err != nil {
			return errors.NewStoreError("failed to recreate evidence", err).WithContext("id", r.ID)
		}
	}
	total := len(snap.People) + len(snap.Contexts) + len(snap.Evidence)
	o.logger.LogRestorePhase("recreate", total, time.Since(start))

	// Pass 2: relink evidence through id lookups built from the snapshot
	// itself; every entity already exists, so no placeholder references
	// are ever needed
	start = time.Now()
	knownPeople := make(map[string]bool, len(snap.People))
	for _, r := range snap.People {
		knownPeople[r.ID] = true
	}
	knownContexts := make(map[string]bool, len(snap.Contexts))
	for _, r := range snap.Contexts {
		knownContexts[r.ID] = true
	}

	for _, r := range snap.Evidence {
		personIDs, droppedPeople := resolve(r.LinkedPeople, knownPeople)
		contextIDs, droppedContexts := resolve(r.LinkedContexts, knownContexts)

		if droppedPeople > 0 || droppedContexts > 0 {
			o.logger.LogDroppedReferences(r.ID, droppedPeople, droppedContexts)
		}

		if err := s.SetEvidenceLinks(ctx, r.ID, personIDs, contextIDs); err != nil {
			return errors.NewStoreError("failed to relink evidence", err).WithContext("id", r.ID)
		}
	}
	o.logger.LogRestorePhase("relink", len(snap.Evidence), time.Since(start))

	return nil
}

// resolve filters ids against the known set, preserving order and counting
// the dropped references
func resolve(ids []string, known map[string]bool) ([]string, int) {
	resolved := make([]string, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		if known[id] {
			resolved = append(resolved, id)
		} else {
			dropped++
		}
	}
	return resolved, dropped
}
