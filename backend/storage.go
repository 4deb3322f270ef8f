package backend

import (
	"context"
	"io"

	"github.com/mwantia/dicomweb/data"
)

// BlobBackend stores the binary objects under opaque keys.
// Missing keys are reported as data.ErrNotExist.
type BlobBackend interface {
	Backend

	PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error)

	OpenBlob(ctx context.Context, key string) (io.ReadCloser, error)

	StatBlob(ctx context.Context, key string) (*data.BlobStat, error)

	DeleteBlob(ctx context.Context, key string) error
}
