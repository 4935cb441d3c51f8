package archive

import (
	"context"
	"fmt"

	"sam-backup/internal/errors"
)

// ProviderType identifies a storage backend
type ProviderType string

const (
	ProviderLocal ProviderType = "local"
	ProviderS3    ProviderType = "s3"
	ProviderAzure ProviderType = "azure"
	ProviderGCS   ProviderType = "gcs"
)

// Config selects and configures a storage provider
type Config struct {
	Provider    ProviderType    `yaml:"provider" mapstructure:"provider"`
	Compression CompressionType `yaml:"compression" mapstructure:"compression"`
	Local       *LocalConfig    `yaml:"local,omitempty" mapstructure:"local"`
	S3          *S3Config       `yaml:"s3,omitempty" mapstructure:"s3"`
	Azure       *AzureConfig    `yaml:"azure,omitempty" mapstructure:"azure"`
	GCS         *GCSConfig      `yaml:"gcs,omitempty" mapstructure:"gcs"`
}

// Validate checks that the selected provider is configured
func (c *Config) Validate() error {
	if c.Compression == "" {
		c.Compression = CompressionTypeNone
	}
	if !IsValidCompressionType(c.Compression) {
		return errors.NewConfigurationError(fmt.Sprintf("unsupported compression type: %s", c.Compression), nil)
	}

	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			return errors.NewConfigurationError("local archive configuration is required", nil)
		}
		return c.Local.Validate()
	case ProviderS3:
		if c.S3 == nil {
			return errors.NewConfigurationError("S3 archive configuration is required", nil)
		}
		return c.S3.Validate()
	case ProviderAzure:
		if c.Azure == nil {
			return errors.NewConfigurationError("Azure archive configuration is required", nil)
		}
		return c.Azure.Validate()
	case ProviderGCS:
		if c.GCS == nil {
			return errors.NewConfigurationError("GCS archive configuration is required", nil)
		}
		return c.GCS.Validate()
	default:
		return errors.NewConfigurationError(fmt.Sprintf("unsupported archive provider: %s", c.Provider), nil)
	}
}

// SupportedProviders lists the storage backends this build can create
func SupportedProviders() []ProviderType {
	return []ProviderType{ProviderLocal, ProviderS3, ProviderAzure, ProviderGCS}
}

// NewStorageProvider creates the storage provider selected by the configuration
func NewStorageProvider(ctx context.Context, config *Config) (StorageProvider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("archive configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ProviderLocal:
		return NewLocalProvider(config.Local, config.Compression)
	case ProviderS3:
		return NewS3Provider(config.S3, config.Compression)
	case ProviderAzure:
		return NewAzureProvider(config.Azure, config.Compression)
	case ProviderGCS:
		return NewGCSProvider(ctx, config.GCS, config.Compression)
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported archive provider: %s", config.Provider), nil)
	}
}
