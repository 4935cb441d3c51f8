package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sam-backup/internal/errors"
)

func newTestLocalProvider(t *testing.T, compression CompressionType, keepLast int) *LocalProvider {
	t.Helper()

	provider, err := NewLocalProvider(&LocalConfig{
		BasePath: t.TempDir(),
		KeepLast: keepLast,
	}, compression)
	require.NoError(t, err)
	return provider
}

func TestLocalProviderStoreRetrieve(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 0)
	ctx := context.Background()

	blob := []byte("opaque encrypted payload bytes")
	name := GenerateArchiveName()

	meta, err := provider.Store(ctx, name, blob)
	require.NoError(t, err)
	assert.Equal(t, name, meta.Name)
	assert.Equal(t, int64(len(blob)), meta.BlobSize)
	assert.Equal(t, Checksum(blob), meta.Checksum)
	assert.FileExists(t, meta.Location)

	retrieved, err := provider.Retrieve(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, blob, retrieved)
}

func TestLocalProviderCompressedRoundTrip(t *testing.T) {
	for _, compression := range []CompressionType{CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd} {
		t.Run(string(compression), func(t *testing.T) {
			provider := newTestLocalProvider(t, compression, 0)
			ctx := context.Background()

			blob := []byte("payload stored with at-rest compression")
			name := GenerateArchiveName()

			meta, err := provider.Store(ctx, name, blob)
			require.NoError(t, err)
			assert.Equal(t, compression, meta.Compression)

			retrieved, err := provider.Retrieve(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, blob, retrieved, "retrieved blob must be byte-identical")
		})
	}
}

func TestLocalProviderRetrieveMissing(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 0)

	_, err := provider.Retrieve(context.Background(), "sam-20260101-000000-deadbeef")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindStorage))
}

func TestLocalProviderChecksumMismatch(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 0)
	ctx := context.Background()

	name := GenerateArchiveName()
	_, err := provider.Store(ctx, name, []byte("original bytes"))
	require.NoError(t, err)

	blobPath := filepath.Join(provider.basePath, BlobFileName(name))
	require.NoError(t, os.WriteFile(blobPath, []byte("tampered bytes"), 0o600))

	_, err = provider.Retrieve(ctx, name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestLocalProviderList(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 0)
	ctx := context.Background()

	names := make([]string, 3)
	for i := range names {
		names[i] = fmt.Sprintf("archive-%d", i)
		_, err := provider.Store(ctx, names[i], []byte{byte(i)})
		require.NoError(t, err)
	}

	metas, err := provider.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 3)

	// Newest first
	assert.Equal(t, names[2], metas[0].Name)
	assert.Equal(t, names[0], metas[2].Name)
	for i := 0; i < len(metas)-1; i++ {
		assert.False(t, metas[i].CreatedAt.Before(metas[i+1].CreatedAt))
	}
}

func TestLocalProviderDelete(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 0)
	ctx := context.Background()

	name := GenerateArchiveName()
	_, err := provider.Store(ctx, name, []byte("to be deleted"))
	require.NoError(t, err)

	require.NoError(t, provider.Delete(ctx, name))

	metas, err := provider.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, metas)

	// Deleting a missing archive is not an error
	assert.NoError(t, provider.Delete(ctx, name))
}

func TestLocalProviderRetention(t *testing.T) {
	provider := newTestLocalProvider(t, CompressionTypeNone, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := provider.Store(ctx, fmt.Sprintf("archive-%d", i), []byte{byte(i)})
		require.NoError(t, err)
	}

	metas, err := provider.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "archive-4", metas[0].Name)
	assert.Equal(t, "archive-3", metas[1].Name)
}

func TestLocalConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  LocalConfig
		wantErr bool
	}{
		{"valid", LocalConfig{BasePath: "/tmp/archives"}, false},
		{"valid with retention", LocalConfig{BasePath: "/tmp/archives", KeepLast: 5}, false},
		{"missing base path", LocalConfig{}, true},
		{"negative keep-last", LocalConfig{BasePath: "/tmp/archives", KeepLast: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
