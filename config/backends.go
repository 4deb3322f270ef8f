package config

import (
	"context"
	"fmt"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/backend/consul"
	"github.com/mwantia/dicomweb/backend/local"
	"github.com/mwantia/dicomweb/backend/memory"
	"github.com/mwantia/dicomweb/backend/postgres"
	"github.com/mwantia/dicomweb/backend/s3"
	"github.com/mwantia/dicomweb/backend/sqlite"
)

// NewMetadataBackend creates the configured metadata backend without opening it.
func (c *Config) NewMetadataBackend(ctx context.Context) (backend.MetadataBackend, error) {
	switch c.Metadata.Backend {
	case BackendMemory:
		return memory.NewMemoryBackend(), nil
	case BackendSQLite:
		return sqlite.NewSQLiteBackend(c.Metadata.SQLitePath)
	case BackendPostgres:
		return postgres.NewPostgresBackend(ctx, c.Metadata.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown metadata backend '%s'", c.Metadata.Backend)
	}
}

// NewBlobBackend creates the configured blob backend without opening it.
// It returns nil when blobs share the metadata backend.
func (c *Config) NewBlobBackend() (backend.BlobBackend, error) {
	switch c.Blobs.Backend {
	case "":
		return nil, nil
	case BackendLocal:
		return local.NewLocalBackend(c.Blobs.LocalPath), nil
	case BackendS3:
		sb, err := s3.NewS3Backend(c.Blobs.S3.Endpoint, c.Blobs.S3.Bucket, c.Blobs.S3.AccessKey, c.Blobs.S3.SecretKey, c.Blobs.S3.UseSSL)
		if err != nil {
			return nil, err
		}
		return sb.WithPrefix(c.Blobs.S3.Prefix), nil
	case BackendConsul:
		return consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:    c.Blobs.Consul.Address,
			Token:      c.Blobs.Consul.Token,
			Datacenter: c.Blobs.Consul.Datacenter,
			Prefix:     c.Blobs.Consul.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend '%s'", c.Blobs.Backend)
	}
}
