// Package archive persists encrypted backup blobs. Providers store the
// blob bytes plus a small metadata sidecar; the blob handed back by
// Retrieve is always byte-identical to what was stored, regardless of the
// at-rest compression applied by the provider.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sam-backup/internal/backup"
	"sam-backup/internal/errors"
)

// Metadata describes one stored archive
type Metadata struct {
	Name        string          `json:"name"`
	CreatedAt   time.Time       `json:"created_at"`
	BlobSize    int64           `json:"blob_size"`
	StoredSize  int64           `json:"stored_size"`
	Checksum    string          `json:"checksum"`
	Compression CompressionType `json:"compression"`
	Location    string          `json:"location"`
}

// StorageProvider abstracts archive persistence across backends
type StorageProvider interface {
	// Store persists a blob under the given archive name and returns its
	// metadata
	Store(ctx context.Context, name string, blob []byte) (*Metadata, error)
	// Retrieve returns the exact blob bytes that were stored
	Retrieve(ctx context.Context, name string) ([]byte, error)
	// List returns metadata for all stored archives, newest first
	List(ctx context.Context) ([]*Metadata, error)
	// Delete removes an archive and its metadata
	Delete(ctx context.Context, name string) error
}

// GenerateArchiveName generates a unique, sortable archive name
func GenerateArchiveName() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("sam-%s-%s", timestamp, short)
}

// BlobFileName returns the payload object name for an archive
func BlobFileName(name string) string {
	return name + backup.FileExtension
}

// MetadataFileName returns the sidecar object name for an archive
func MetadataFileName(name string) string {
	return name + ".meta.json"
}

// Checksum calculates the hex-encoded SHA-256 checksum of a blob
func Checksum(blob []byte) string {
	hash := sha256.Sum256(blob)
	return hex.EncodeToString(hash[:])
}

// prepareForStore compresses the blob for at-rest storage and builds its
// metadata. The checksum always covers the original blob so Retrieve can
// verify the round trip after decompression.
func prepareForStore(name string, blob []byte, compression CompressionType) ([]byte, *Metadata, error) {
	stored, err := Compress(blob, compression)
	if err != nil {
		return nil, nil, err
	}

	meta := &Metadata{
		Name:        name,
		CreatedAt:   time.Now().UTC(),
		BlobSize:    int64(len(blob)),
		StoredSize:  int64(len(stored)),
		Checksum:    Checksum(blob),
		Compression: compression,
	}
	return stored, meta, nil
}

// restoreFromStore reverses prepareForStore and verifies the checksum
func restoreFromStore(stored []byte, meta *Metadata) ([]byte, error) {
	blob, err := Decompress(stored, meta.Compression)
	if err != nil {
		return nil, err
	}

	if sum := Checksum(blob); sum != meta.Checksum {
		return nil, errors.NewStorageError("archive checksum mismatch", nil).
			WithContext("name", meta.Name).
			WithContext("expected", meta.Checksum).
			WithContext("actual", sum)
	}
	return blob, nil
}

func encodeMetadata(meta *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.NewStorageError("failed to marshal archive metadata", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.NewStorageError("failed to unmarshal archive metadata", err)
	}
	return &meta, nil
}

func sortNewestFirst(metas []*Metadata) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
}
