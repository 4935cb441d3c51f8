package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"sam-backup/internal/errors"
)

const gcsPrefix = "archives/"

// GCSConfig holds settings for the Google Cloud Storage provider
type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsPath string
}

// Validate checks the GCS configuration
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return errors.NewConfigurationError("GCS bucket name is required", nil)
	}
	return nil
}

// GCSProvider stores archives in a Google Cloud Storage bucket
type GCSProvider struct {
	client      *storage.Client
	bucket      string
	compression CompressionType
}

// NewGCSProvider creates a GCS provider. When no credentials path is set,
// default credentials from the environment or metadata server are used.
func NewGCSProvider(ctx context.Context, config *GCSConfig, compression CompressionType) (*GCSProvider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("GCS archive configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to create GCS client", err)
	}

	return &GCSProvider{
		client:      client,
		bucket:      config.Bucket,
		compression: compression,
	}, nil
}

// Close releases the underlying GCS client
func (p *GCSProvider) Close() error {
	return p.client.Close()
}

// Store uploads the blob and its metadata sidecar
func (p *GCSProvider) Store(ctx context.Context, name string, blob []byte) (*Metadata, error) {
	stored, meta, err := prepareForStore(name, blob, p.compression)
	if err != nil {
		return nil, err
	}
	meta.Location = fmt.Sprintf("gs://%s/%s", p.bucket, gcsPrefix+BlobFileName(name))

	if err := p.upload(ctx, gcsPrefix+BlobFileName(name), stored, "application/octet-stream"); err != nil {
		return nil, errors.NewStorageError("failed to upload archive to GCS", err).WithContext("name", name)
	}

	metaData, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	if err := p.upload(ctx, gcsPrefix+MetadataFileName(name), metaData, "application/json"); err != nil {
		return nil, errors.NewStorageError("failed to upload archive metadata to GCS", err).WithContext("name", name)
	}

	return meta, nil
}

// Retrieve downloads an archive and verifies its checksum
func (p *GCSProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	meta, err := p.readMetadata(ctx, name)
	if err != nil {
		return nil, err
	}

	stored, err := p.download(ctx, gcsPrefix+BlobFileName(name))
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive from GCS", err).WithContext("name", name)
	}

	return restoreFromStore(stored, meta)
}

// List returns metadata for all archives in the bucket, newest first
func (p *GCSProvider) List(ctx context.Context) ([]*Metadata, error) {
	var metas []*Metadata

	it := p.client.Bucket(p.bucket).Objects(ctx, &storage.Query{Prefix: gcsPrefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.NewStorageError("failed to list archives in GCS", err)
		}
		if !strings.HasSuffix(attrs.Name, ".meta.json") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(attrs.Name, gcsPrefix), ".meta.json")
		meta, metaErr := p.readMetadata(ctx, name)
		if metaErr != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sortNewestFirst(metas)
	return metas, nil
}

// Delete removes an archive and its metadata sidecar
func (p *GCSProvider) Delete(ctx context.Context, name string) error {
	bucket := p.client.Bucket(p.bucket)
	for _, objectName := range []string{gcsPrefix + BlobFileName(name), gcsPrefix + MetadataFileName(name)} {
		if err := bucket.Object(objectName).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			return errors.NewStorageError("failed to delete archive from GCS", err).
				WithContext("name", name).
				WithContext("object", objectName)
		}
	}
	return nil
}

func (p *GCSProvider) upload(ctx context.Context, objectName string, data []byte, contentType string) error {
	writer := p.client.Bucket(p.bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (p *GCSProvider) download(ctx context.Context, objectName string) ([]byte, error) {
	reader, err := p.client.Bucket(p.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (p *GCSProvider) readMetadata(ctx context.Context, name string) (*Metadata, error) {
	data, err := p.download(ctx, gcsPrefix+MetadataFileName(name))
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive metadata from GCS", err).WithContext("name", name)
	}
	return decodeMetadata(data)
}
