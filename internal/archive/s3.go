package archive

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"sam-backup/internal/errors"
)

const s3Prefix = "archives/"

// S3Config holds settings for the S3 provider
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Validate checks the S3 configuration
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.NewConfigurationError("S3 bucket name is required", nil)
	}
	if c.Region == "" {
		return errors.NewConfigurationError("S3 region is required", nil)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.NewConfigurationError("S3 credentials are required", nil)
	}
	return nil
}

// S3Provider stores archives in an Amazon S3 bucket
type S3Provider struct {
	client      *s3.S3
	bucket      string
	compression CompressionType
}

// NewS3Provider creates an S3 provider
func NewS3Provider(config *S3Config, compression CompressionType) (*S3Provider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("S3 archive configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		),
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to create AWS session", err)
	}

	return &S3Provider{
		client:      s3.New(sess),
		bucket:      config.Bucket,
		compression: compression,
	}, nil
}

// Store uploads the blob and its metadata sidecar
func (p *S3Provider) Store(ctx context.Context, name string, blob []byte) (*Metadata, error) {
	stored, meta, err := prepareForStore(name, blob, p.compression)
	if err != nil {
		return nil, err
	}
	meta.Location = "s3://" + p.bucket + "/" + s3Prefix + BlobFileName(name)

	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(s3Prefix + BlobFileName(name)),
		Body:        bytes.NewReader(stored),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to upload archive to S3", err).WithContext("name", name)
	}

	metaData, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(s3Prefix + MetadataFileName(name)),
		Body:        bytes.NewReader(metaData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to upload archive metadata to S3", err).WithContext("name", name)
	}

	return meta, nil
}

// Retrieve downloads an archive and verifies its checksum
func (p *S3Provider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	meta, err := p.readMetadata(ctx, name)
	if err != nil {
		return nil, err
	}

	result, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(s3Prefix + BlobFileName(name)),
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive from S3", err).WithContext("name", name)
	}
	defer result.Body.Close()

	stored, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive body from S3", err).WithContext("name", name)
	}

	return restoreFromStore(stored, meta)
}

// List returns metadata for all archives in the bucket, newest first
func (p *S3Provider) List(ctx context.Context) ([]*Metadata, error) {
	var metas []*Metadata

	err := p.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(s3Prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			key := aws.StringValue(object.Key)
			if !strings.HasSuffix(key, ".meta.json") {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(key, s3Prefix), ".meta.json")
			meta, metaErr := p.readMetadata(ctx, name)
			if metaErr != nil {
				continue
			}
			metas = append(metas, meta)
		}
		return true
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to list archives in S3", err)
	}

	sortNewestFirst(metas)
	return metas, nil
}

// Delete removes an archive and its metadata sidecar
func (p *S3Provider) Delete(ctx context.Context, name string) error {
	for _, key := range []string{s3Prefix + BlobFileName(name), s3Prefix + MetadataFileName(name)} {
		_, err := p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return errors.NewStorageError("failed to delete archive from S3", err).
				WithContext("name", name).
				WithContext("key", key)
		}
	}
	return nil
}

func (p *S3Provider) readMetadata(ctx context.Context, name string) (*Metadata, error) {
	result, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(s3Prefix + MetadataFileName(name)),
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive metadata from S3", err).WithContext("name", name)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive metadata from S3", err).WithContext("name", name)
	}
	return decodeMetadata(data)
}
