package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sam-backup/internal/archive"
	"sam-backup/internal/errors"
	"sam-backup/internal/store"
)

func TestDefaultIsValid(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())
	assert.Equal(t, StoreDriverMemory, config.Store.Driver)
	assert.False(t, config.Archive.Enabled)
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, config.Store.Driver)
	assert.Equal(t, "normal", config.Logging.Level)
	assert.Equal(t, archive.ProviderLocal, config.Archive.Provider)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
store:
  driver: mysql
  mysql:
    host: db.internal
    port: 3307
    username: sam
    password: hunter2
    database: sam_prod
    timeout: 10s
archive:
  enabled: true
  provider: local
  compression: zstd
  local:
    basepath: /var/backups/sam
    keeplast: 7
logging:
  level: verbose
  format: json
`
	path := filepath.Join(t.TempDir(), "sam-backup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMySQL, config.Store.Driver)
	assert.Equal(t, "db.internal", config.Store.MySQL.Host)
	assert.Equal(t, 3307, config.Store.MySQL.Port)
	assert.Equal(t, "sam_prod", config.Store.MySQL.Database)
	assert.Equal(t, 10*time.Second, config.Store.MySQL.Timeout)

	assert.True(t, config.Archive.Enabled)
	assert.Equal(t, archive.CompressionTypeZstd, config.Archive.Compression)
	require.NotNil(t, config.Archive.Local)
	assert.Equal(t, "/var/backups/sam", config.Archive.Local.BasePath)
	assert.Equal(t, 7, config.Archive.Local.KeepLast)

	assert.Equal(t, "verbose", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SAM_BACKUP_STORE_DRIVER", "mysql")
	t.Setenv("SAM_BACKUP_STORE_MYSQL_HOST", "env-host")

	// Driver comes from the environment but the database name is still
	// missing, so validation must reject the result.
	_, err = Load("")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
	assert.Contains(t, err.Error(), "database")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestStoreConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  StoreConfig
		wantErr string
	}{
		{"memory", StoreConfig{Driver: StoreDriverMemory}, ""},
		{"unknown driver", StoreConfig{Driver: "postgres"}, "unsupported store driver"},
		{"mysql missing host", StoreConfig{Driver: StoreDriverMySQL}, "host is required"},
		{
			"mysql bad port",
			StoreConfig{Driver: StoreDriverMySQL, MySQL: mysqlConfig(0)},
			"invalid mysql port",
		},
		{
			"mysql ok",
			StoreConfig{Driver: StoreDriverMySQL, MySQL: mysqlConfig(3306)},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSkipsDisabledArchive(t *testing.T) {
	config := Default()
	config.Archive.Enabled = false
	config.Archive.Provider = "ftp"
	assert.NoError(t, config.Validate())

	config.Archive.Enabled = true
	assert.Error(t, config.Validate())
}

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sam-backup.yaml")
	require.NoError(t, WriteTemplate(path))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, config.Store.Driver)
	assert.False(t, config.Archive.Enabled)

	// Refuses to overwrite
	err = WriteTemplate(path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Store.MySQL.Password = "hunter2"
	cfg.Archive.S3 = &archive.S3Config{Bucket: "b", SecretKey: "aws-secret"}
	cfg.Archive.Azure = &archive.AzureConfig{AccountName: "acct", AccountKey: "az-key"}

	redacted := cfg.Redacted()
	assert.Equal(t, "[redacted]", redacted.Store.MySQL.Password)
	assert.Equal(t, "[redacted]", redacted.Archive.S3.SecretKey)
	assert.Equal(t, "[redacted]", redacted.Archive.Azure.AccountKey)

	// Original untouched
	assert.Equal(t, "hunter2", cfg.Store.MySQL.Password)
	assert.Equal(t, "aws-secret", cfg.Archive.S3.SecretKey)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Store.MySQL.Password = "hunter2"

	data, err := cfg.Redacted().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: memory")
	assert.NotContains(t, string(data), "hunter2")
}

func mysqlConfig(port int) store.MySQLConfig {
	return store.MySQLConfig{
		Host:     "localhost",
		Port:     port,
		Username: "sam",
		Database: "sam",
	}
}
