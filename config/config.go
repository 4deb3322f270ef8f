package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendS3       = "s3"
	BackendConsul   = "consul"
)

type Config struct {
	Listen        string `yaml:"listen"`
	BasePath      string `yaml:"base_path"`
	MaxUploadSize int64  `yaml:"max_upload_size"`

	// Log Settings
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	LogJSON  bool   `yaml:"log_json"`

	Metadata MetadataConfig `yaml:"metadata"`
	Blobs    BlobConfig     `yaml:"blobs"`
}

type MetadataConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects the blob store. An empty backend stores the blobs in
// the metadata backend.
type BlobConfig struct {
	Backend   string       `yaml:"backend"`
	LocalPath string       `yaml:"local_path"`
	S3        S3Config     `yaml:"s3"`
	Consul    ConsulConfig `yaml:"consul"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ConsulConfig struct {
	Address    string `yaml:"address"`
	Token      string `yaml:"token"`
	Datacenter string `yaml:"datacenter"`
	Prefix     string `yaml:"prefix"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		Listen:        ":3001",
		BasePath:      "/dicomweb",
		MaxUploadSize: 512 << 20,
		LogLevel:      "info",
		Metadata: MetadataConfig{
			Backend:    BackendSQLite,
			SQLitePath: "dicomweb.db",
		},
		Blobs: BlobConfig{
			Backend:   BackendLocal,
			LocalPath: "uploads",
			Consul: ConsulConfig{
				Prefix: "dicomweb/blobs",
			},
		},
	}
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// A missing file keeps the defaults
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":3001"
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 512 << 20
	}
	if cfg.Metadata.Backend == "" {
		cfg.Metadata.Backend = BackendSQLite
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the backend selection and its required settings.
func (c *Config) Validate() error {
	switch c.Metadata.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Metadata.SQLitePath == "" {
			return fmt.Errorf("metadata backend 'sqlite' requires sqlite_path")
		}
	case BackendPostgres:
		if c.Metadata.PostgresDSN == "" {
			return fmt.Errorf("metadata backend 'postgres' requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown metadata backend '%s'", c.Metadata.Backend)
	}

	switch c.Blobs.Backend {
	case "":
	case BackendLocal:
		if c.Blobs.LocalPath == "" {
			return fmt.Errorf("blob backend 'local' requires local_path")
		}
	case BackendS3:
		if c.Blobs.S3.Endpoint == "" || c.Blobs.S3.Bucket == "" {
			return fmt.Errorf("blob backend 's3' requires endpoint and bucket")
		}
	case BackendConsul:
	default:
		return fmt.Errorf("unknown blob backend '%s'", c.Blobs.Backend)
	}

	return nil
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
