package backup

import (
	"context"
	"time"

	"sam-backup/internal/crypto"
	"sam-backup/internal/logging"
	"sam-backup/internal/restore"
	"sam-backup/internal/snapshot"
	"sam-backup/internal/store"
)

// FileExtension is the suggested extension for backup artifacts. The file
// contents are exactly the wire-format blob; there is no outer container.
const FileExtension = ".sam-backup"

// Service orchestrates export and import end to end. All operations are
// synchronous and CPU-bound; key derivation alone takes tens of
// milliseconds by design, so callers should keep these calls off any
// latency-sensitive thread.
type Service struct {
	engine       *crypto.Engine
	codec        *snapshot.Codec
	orchestrator *restore.Orchestrator
	logger       *logging.Logger
}

// NewService creates a backup service with its collaborators
func NewService(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		engine:       crypto.NewEngine(),
		codec:        snapshot.NewCodec(),
		orchestrator: restore.NewOrchestrator(logger),
		logger:       logger,
	}
}

// ExportStore serializes the entire store into a versioned snapshot and
// encrypts it under the supplied password, returning the opaque blob
func (s *Service) ExportStore(ctx context.Context, st store.Store, password string) ([]byte, error) {
	start := time.Now()

	snap, err := s.codec.Encode(ctx, st)
	if err != nil {
		s.logger.LogExport(0, 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	payload, err := s.codec.Serialize(snap)
	if err != nil {
		s.logger.LogExport(0, 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	blob, err := s.engine.Encrypt(payload, password)
	if err != nil {
		s.logger.LogExport(0, 0, 0, 0, time.Since(start), err)
		return nil, err
	}

	people, contexts, evidence := snap.Counts()
	s.logger.LogExport(people, contexts, evidence, int64(len(blob)), time.Since(start), nil)
	return blob, nil
}

// ImportBlob decrypts and decodes a blob, then replaces the store's
// contents with the snapshot it contains. Decryption, decoding,
// and the version gate all run before the store is touched; a failure in
// any of them leaves the live data intact.
func (s *Service) ImportBlob(ctx context.Context, blob []byte, password string, st store.Store) error {
	start := time.Now()

	payload, err := s.engine.Decrypt(blob, password)
	if err != nil {
		s.logger.LogImport(0, 0, 0, 0, time.Since(start), err)
		return err
	}

	snap, err := s.codec.Deserialize(payload)
	if err != nil {
		s.logger.LogImport(0, 0, 0, 0, time.Since(start), err)
		return err
	}

	if err := s.orchestrator.Apply(ctx, snap, st); err != nil {
		people, contexts, evidence := snap.Counts()
		s.logger.LogImport(snap.Version, people, contexts, evidence, time.Since(start), err)
		return err
	}

	people, contexts, evidence := snap.Counts()
	s.logger.LogImport(snap.Version, people, contexts, evidence, time.Since(start), nil)
	return nil
}
