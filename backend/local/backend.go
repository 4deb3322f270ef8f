package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/data"
)

// LocalBackend stores every blob as a single file inside one directory.
type LocalBackend struct {
	mu   sync.RWMutex
	path string
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{
		path: filepath.Clean(path),
	}
}

// Name returns the identifier name defined for this backend
func (*LocalBackend) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
// The storage directory is created when it does not exist yet.
func (lb *LocalBackend) Open(ctx context.Context) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if err := os.MkdirAll(lb.path, 0755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return data.ErrPermission
		}
		return errors.Join(data.ErrBackendFailed, err)
	}

	// Verify the root directory exists
	info, err := os.Stat(lb.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return data.ErrPermission
		}

		return errors.Join(data.ErrBackendFailed, err)
	}

	// Ensure the root is a directory
	if !info.IsDir() {
		return data.ErrNotDirectory
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (lb *LocalBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
			backend.CapabilityStreaming,
		},
		MaxObjectSize: 10737418240, // 10 GB
	}
}

// resolvePath joins the backend path with the key. Keys must be plain file names.
func (lb *LocalBackend) resolvePath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", data.ErrInvalid
	}

	return filepath.Join(lb.path, key), nil
}

// toBlobStat converts os.FileInfo to a BlobStat.
func (lb *LocalBackend) toBlobStat(key string, fileInfo os.FileInfo) *data.BlobStat {
	return &data.BlobStat{
		Key:         key,
		Size:        fileInfo.Size(),
		ModifyTime:  fileInfo.ModTime(),
		ContentType: data.ContentTypeDicom,
	}
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return data.ErrNotExist
	}
	if errors.Is(err, fs.ErrPermission) {
		return data.ErrPermission
	}
	return err
}
