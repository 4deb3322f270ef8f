package memory

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/mwantia/dicomweb/data"
)

func (mb *MemoryBackend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	blob := &memoryBlob{
		content:    content,
		modifyTime: time.Now(),
	}
	mb.blobs.Set(key, blob)

	return blob.stat(key), nil
}

func (mb *MemoryBackend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	blob, exists := mb.blobs.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	return io.NopCloser(bytes.NewReader(blob.content)), nil
}

func (mb *MemoryBackend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	blob, exists := mb.blobs.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	return blob.stat(key), nil
}

func (mb *MemoryBackend) DeleteBlob(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.blobs.Delete(key); !exists {
		return data.ErrNotExist
	}

	return nil
}

func (b *memoryBlob) stat(key string) *data.BlobStat {
	return &data.BlobStat{
		Key:         key,
		Size:        int64(len(b.content)),
		ModifyTime:  b.modifyTime,
		ContentType: data.ContentTypeDicom,
	}
}
