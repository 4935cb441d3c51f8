package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"sam-backup/internal/errors"
)

const azurePrefix = "archives/"

// AzureConfig holds settings for the Azure Blob Storage provider
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
}

// Validate checks the Azure configuration
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return errors.NewConfigurationError("Azure account name is required", nil)
	}
	if c.AccountKey == "" {
		return errors.NewConfigurationError("Azure account key is required", nil)
	}
	if c.ContainerName == "" {
		return errors.NewConfigurationError("Azure container name is required", nil)
	}
	return nil
}

// AzureProvider stores archives in an Azure Blob Storage container
type AzureProvider struct {
	containerURL azblob.ContainerURL
	container    string
	compression  CompressionType
}

// NewAzureProvider creates an Azure Blob Storage provider
func NewAzureProvider(config *AzureConfig, compression CompressionType) (*AzureProvider, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("Azure archive configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, errors.NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, errors.NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureProvider{
		containerURL: azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		container:    config.ContainerName,
		compression:  compression,
	}, nil
}

// Store uploads the blob and its metadata sidecar
func (p *AzureProvider) Store(ctx context.Context, name string, blob []byte) (*Metadata, error) {
	stored, meta, err := prepareForStore(name, blob, p.compression)
	if err != nil {
		return nil, err
	}
	meta.Location = fmt.Sprintf("azure://%s/%s", p.container, azurePrefix+BlobFileName(name))

	blobURL := p.containerURL.NewBlockBlobURL(azurePrefix + BlobFileName(name))
	_, err = azblob.UploadBufferToBlockBlob(ctx, stored, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to upload archive to Azure", err).WithContext("name", name)
	}

	metaData, err := encodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	metaURL := p.containerURL.NewBlockBlobURL(azurePrefix + MetadataFileName(name))
	_, err = azblob.UploadBufferToBlockBlob(ctx, metaData, metaURL, azblob.UploadToBlockBlobOptions{})
	if err != nil {
		return nil, errors.NewStorageError("failed to upload archive metadata to Azure", err).WithContext("name", name)
	}

	return meta, nil
}

// Retrieve downloads an archive and verifies its checksum
func (p *AzureProvider) Retrieve(ctx context.Context, name string) ([]byte, error) {
	meta, err := p.readMetadata(ctx, name)
	if err != nil {
		return nil, err
	}

	stored, err := p.download(ctx, azurePrefix+BlobFileName(name))
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive from Azure", err).WithContext("name", name)
	}

	return restoreFromStore(stored, meta)
}

// List returns metadata for all archives in the container, newest first
func (p *AzureProvider) List(ctx context.Context) ([]*Metadata, error) {
	var metas []*Metadata

	for marker := (azblob.Marker{}); marker.NotDone(); {
		listing, err := p.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: azurePrefix,
		})
		if err != nil {
			return nil, errors.NewStorageError("failed to list archives in Azure", err)
		}
		marker = listing.NextMarker

		for _, item := range listing.Segment.BlobItems {
			if !strings.HasSuffix(item.Name, ".meta.json") {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(item.Name, azurePrefix), ".meta.json")
			meta, metaErr := p.readMetadata(ctx, name)
			if metaErr != nil {
				continue
			}
			metas = append(metas, meta)
		}
	}

	sortNewestFirst(metas)
	return metas, nil
}

// Delete removes an archive and its metadata sidecar
func (p *AzureProvider) Delete(ctx context.Context, name string) error {
	for _, blobName := range []string{azurePrefix + BlobFileName(name), azurePrefix + MetadataFileName(name)} {
		blobURL := p.containerURL.NewBlockBlobURL(blobName)
		_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
		if err != nil {
			return errors.NewStorageError("failed to delete archive from Azure", err).
				WithContext("name", name).
				WithContext("blob", blobName)
		}
	}
	return nil
}

func (p *AzureProvider) readMetadata(ctx context.Context, name string) (*Metadata, error) {
	data, err := p.download(ctx, azurePrefix+MetadataFileName(name))
	if err != nil {
		return nil, errors.NewStorageError("failed to download archive metadata from Azure", err).WithContext("name", name)
	}
	return decodeMetadata(data)
}

func (p *AzureProvider) download(ctx context.Context, blobName string) ([]byte, error) {
	blobURL := p.containerURL.NewBlockBlobURL(blobName)
	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, err
	}

	body := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()

	return io.ReadAll(body)
}
