package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"sam-backup/internal/errors"
)

// LocalConfig holds settings for the local filesystem provider
type LocalConfig struct {
	BasePath string
	// KeepLast limits how many archives are retained after Store; zero
	// disables pruning
	KeepLast int
}

// Validate checks the local configuration
func (c *LocalConfig) Validate() error {
	if c.BasePath == "" {
		return errors.NewConfigurationError("base path is required for local archive storage", nil)
	}
	if c.KeepLast < 0 {
		return errors.NewConfigurationError("keep-last cannot be negative", nil)
	}
	return nil
}

// LocalProvider stores archives on the local filesystem. Blob files are
// written with owner-only permissions; each archive gets a metadata
// sidecar for listing without reading the payload.
type LocalProvider struct {
	basePath    string
	compression CompressionType
	keepLast    int
}

// NewLocalProvider creates a local provider rooted at config.BasePath
func NewLocalProvider(config *LocalConfig, compression CompressionType) (*LocalProvider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("local archive configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.BasePath, 0o700); err != nil {
		return nil, errors.NewStorageError("failed to create archive directory", err)
	}

	return &LocalProvider{
		basePath:    config.BasePath,
		compression: compression,
		keepLast:    config.KeepLast,
	}, nil
}

// Store writes the blob and its metadata sidecar, then applies retention
func (p *LocalProvider) Store(ctx context.Context, name string, blob []byte) (*Metadata, error) {
	stored, meta, err := prepareForStore(name, blob, p.compression)
	if err != nil {
		return nil, err
	}
	meta.Location = filepath.Join(p.basePath, BlobFileName(name))

	if err := os.WriteFile(meta.Location, stored, 0o600); err != nil {
		return nil, errors.NewStorageError("failed to write archive file", err).WithContext("name", name)
	}

	metaData, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	metaPath := filepath.Join(p.basePath, MetadataFileName(name))
	if err := os.WriteFile(metaPath, metaData, 0o600); err != nil {
		return nil, errors.NewStorageError("failed to write archive metadata", err).WithContext("name", name)
	}

	if p.keepLast > 0 {
		if err := p.applyRetention(ctx); err != nil {
			return nil, err
		}
	}

	return meta, nil
}

// Retrieve reads an archive back and verifies its checksum
func (p *LocalProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	meta, err := p.readMetadata(name)
	if err != nil {
		return nil, err
	}

	stored, err := os.ReadFile(filepath.Join(p.basePath, BlobFileName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStorageError("archive not found", err).WithContext("name", name)
		}
		return nil, errors.NewStorageError("failed to read archive file", err).WithContext("name", name)
	}

	return restoreFromStore(stored, meta)
}

// List returns metadata for all archives, newest first
func (p *LocalProvider) List(ctx context.Context) ([]*Metadata, error) {
	entries, err := os.ReadDir(p.basePath)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive directory", err)
	}

	var metas []*Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".meta.json")
		meta, err := p.readMetadata(name)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}

	sortNewestFirst(metas)
	return metas, nil
}

// Delete removes an archive and its metadata sidecar
func (p *LocalProvider) Delete(ctx context.Context, name string) error {
	blobPath := filepath.Join(p.basePath, BlobFileName(name))
	if err := os.Remove(blobPath); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("failed to delete archive file", err).WithContext("name", name)
	}

	metaPath := filepath.Join(p.basePath, MetadataFileName(name))
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("failed to delete archive metadata", err).WithContext("name", name)
	}
	return nil
}

// applyRetention prunes the oldest archives beyond the keep-last limit
func (p *LocalProvider) applyRetention(ctx context.Context) error {
	metas, err := p.List(ctx)
	if err != nil {
		return err
	}

	for _, meta := range metas[min(p.keepLast, len(metas)):] {
		if err := p.Delete(ctx, meta.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *LocalProvider) readMetadata(name string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(p.basePath, MetadataFileName(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStorageError("archive metadata not found", err).WithContext("name", name)
		}
		return nil, errors.NewStorageError("failed to read archive metadata", err).WithContext("name", name)
	}
	return decodeMetadata(data)
}
