package local

import (
	"context"
	"io"
	"os"

	"github.com/mwantia/dicomweb/data"
)

// PutBlob writes into a temporary file first and renames it into place,
// so readers never observe a partially written blob.
func (lb *LocalBackend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	fullPath, err := lb.resolvePath(key)
	if err != nil {
		return nil, err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	file, err := os.CreateTemp(lb.path, ".upload-*")
	if err != nil {
		return nil, mapError(err)
	}
	tempPath := file.Name()

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tempPath)
		return nil, err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return nil, mapError(err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return lb.toBlobStat(key, info), nil
}

func (lb *LocalBackend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := lb.resolvePath(key)
	if err != nil {
		return nil, err
	}

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return file, nil
}

func (lb *LocalBackend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	fullPath, err := lb.resolvePath(key)
	if err != nil {
		return nil, err
	}

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, data.ErrNotExist
	}

	return lb.toBlobStat(key, info), nil
}

func (lb *LocalBackend) DeleteBlob(ctx context.Context, key string) error {
	fullPath, err := lb.resolvePath(key)
	if err != nil {
		return err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	return mapError(os.Remove(fullPath))
}
