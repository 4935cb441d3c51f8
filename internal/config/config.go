// Package config loads application configuration from YAML files and
// environment variables. Precedence is flags, then environment, then the
// configuration file, then built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sam-backup/internal/archive"
	"sam-backup/internal/errors"
	"sam-backup/internal/store"
)

const (
	// EnvPrefix is the prefix for all environment variable overrides,
	// e.g. SAM_BACKUP_STORE_DRIVER.
	EnvPrefix = "sam_backup"

	// DefaultConfigName is the config file name searched for when no
	// explicit path is given.
	DefaultConfigName = "sam-backup"
)

// StoreDriver selects the backing store implementation
type StoreDriver string

const (
	StoreDriverMemory StoreDriver = "memory"
	StoreDriverMySQL  StoreDriver = "mysql"
)

// StoreConfig selects and configures the backing store
type StoreConfig struct {
	Driver StoreDriver       `yaml:"driver" mapstructure:"driver"`
	MySQL  store.MySQLConfig `yaml:"mysql" mapstructure:"mysql"`
}

// Validate checks the store configuration
func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case StoreDriverMemory:
		return nil
	case StoreDriverMySQL:
		if c.MySQL.Host == "" {
			return errors.NewConfigurationError("mysql host is required", nil)
		}
		if c.MySQL.Port <= 0 || c.MySQL.Port > 65535 {
			return errors.NewConfigurationError(
				fmt.Sprintf("invalid mysql port: %d", c.MySQL.Port), nil)
		}
		if c.MySQL.Database == "" {
			return errors.NewConfigurationError("mysql database name is required", nil)
		}
		return nil
	default:
		return errors.NewConfigurationError(
			fmt.Sprintf("unsupported store driver: %s", c.Driver), nil)
	}
}

// ArchiveConfig wraps the archive settings with an enable switch. When
// disabled, export and import operate on plain files only.
type ArchiveConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	archive.Config `yaml:",inline" mapstructure:",squash"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Config is the root application configuration
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Archive.Enabled {
		if err := c.Archive.Config.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads configuration from the given path, falling back to default
// search locations when the path is empty. Environment variables with the
// SAM_BACKUP_ prefix override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when relying on default search paths;
		// defaults and environment variables still apply.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if configPath != "" || !notFound {
			return nil, errors.NewConfigurationError("failed to read config file", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigurationError("failed to parse configuration", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the built-in configuration without reading any file
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: StoreDriverMemory},
		Archive: ArchiveConfig{
			Enabled: false,
			Config: archive.Config{
				Provider:    archive.ProviderLocal,
				Compression: archive.CompressionTypeNone,
				Local:       &archive.LocalConfig{BasePath: "./archives"},
			},
		},
		Logging: LoggingConfig{Level: "normal", Format: "text"},
	}
}

func setupViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sam-backup")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(strings.ToUpper(EnvPrefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", string(StoreDriverMemory))
	v.SetDefault("store.mysql.host", "localhost")
	v.SetDefault("store.mysql.port", 3306)
	v.SetDefault("store.mysql.timeout", "30s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.provider", string(archive.ProviderLocal))
	v.SetDefault("archive.compression", string(archive.CompressionTypeNone))
	v.SetDefault("archive.local.basepath", "./archives")
	v.SetDefault("archive.local.keeplast", 0)

	v.SetDefault("logging.level", "normal")
	v.SetDefault("logging.format", "text")
}

const redactedValue = "[redacted]"

// Redacted returns a deep copy with credentials masked, safe for display
// and logging.
func (c *Config) Redacted() *Config {
	out := *c

	if out.Store.MySQL.Password != "" {
		out.Store.MySQL.Password = redactedValue
	}
	if c.Archive.S3 != nil {
		s3 := *c.Archive.S3
		if s3.SecretKey != "" {
			s3.SecretKey = redactedValue
		}
		out.Archive.S3 = &s3
	}
	if c.Archive.Azure != nil {
		azure := *c.Archive.Azure
		if azure.AccountKey != "" {
			azure.AccountKey = redactedValue
		}
		out.Archive.Azure = &azure
	}
	if c.Archive.Local != nil {
		local := *c.Archive.Local
		out.Archive.Local = &local
	}
	if c.Archive.GCS != nil {
		gcs := *c.Archive.GCS
		out.Archive.GCS = &gcs
	}
	return &out
}

// YAML renders the configuration as YAML
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to render configuration", err)
	}
	return data, nil
}

// GenerateTemplate returns a commented starter configuration file
func GenerateTemplate() string {
	return `# sam-backup configuration file

# Backing store for people, contexts and evidence
store:
  driver: memory            # Store driver (memory, mysql)
  mysql:
    host: localhost         # Database hostname or IP
    port: 3306              # Database port
    username: root          # Database username
    password: ""            # Database password (prefer SAM_BACKUP_STORE_MYSQL_PASSWORD)
    database: sam           # Database name
    timeout: 30s            # Connection timeout

# Archive storage for exported backup files
archive:
  enabled: false            # Store exports in archive storage instead of plain files
  provider: local           # Storage provider (local, s3, azure, gcs)
  compression: none         # At-rest compression (none, gzip, lz4, zstd)

  local:
    basepath: ./archives    # Local archive directory
    keeplast: 0             # Archives to retain after each store (0 = unlimited)

  # s3:
  #   bucket: my-backups    # S3 bucket name
  #   region: us-east-1     # AWS region
  #   accesskey: ""         # AWS access key (prefer env var)
  #   secretkey: ""         # AWS secret key (prefer env var)

  # azure:
  #   accountname: ""       # Azure storage account name
  #   accountkey: ""        # Azure storage account key
  #   containername: backups

  # gcs:
  #   bucket: my-backups    # GCS bucket name
  #   credentialspath: ""   # Path to credentials JSON (empty = default credentials)
  #   projectid: ""         # GCP project ID

# Log output
logging:
  level: normal             # Log level (quiet, normal, verbose, debug)
  format: text              # Log format (text, json)

# Environment variable overrides use the SAM_BACKUP_ prefix, for example:
# SAM_BACKUP_STORE_DRIVER=mysql
# SAM_BACKUP_STORE_MYSQL_PASSWORD=secret
# SAM_BACKUP_ARCHIVE_PROVIDER=s3
# SAM_BACKUP_ARCHIVE_S3_BUCKET=my-backups
`
}

// WriteTemplate writes the starter configuration to a file, refusing to
// overwrite an existing one.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.NewConfigurationError(
			fmt.Sprintf("config file already exists: %s", path), nil)
	}
	if err := os.WriteFile(path, []byte(GenerateTemplate()), 0o600); err != nil {
		return errors.NewConfigurationError("failed to write config template", err)
	}
	return nil
}
