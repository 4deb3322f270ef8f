package consul

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/dicomweb/data"
)

func (cb *ConsulBackend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if !cb.GetCapabilities().Accepts(int64(len(content))) {
		return nil, data.ErrTooLarge
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	pair := &api.KVPair{
		Key:   cb.buildKey(key),
		Flags: uint64(now.Unix()),
		Value: content,
	}

	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        int64(len(content)),
		ModifyTime:  time.Unix(now.Unix(), 0),
		ContentType: data.ContentTypeDicom,
		ETag:        etag(content),
	}, nil
}

func (cb *ConsulBackend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	pair, err := cb.get(ctx, key)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(pair.Value)), nil
}

func (cb *ConsulBackend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	pair, err := cb.get(ctx, key)
	if err != nil {
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        int64(len(pair.Value)),
		ModifyTime:  time.Unix(int64(pair.Flags), 0),
		ContentType: data.ContentTypeDicom,
		ETag:        etag(pair.Value),
	}, nil
}

func (cb *ConsulBackend) DeleteBlob(ctx context.Context, key string) error {
	if _, err := cb.get(ctx, key); err != nil {
		return err
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	_, err := cb.kv.Delete(cb.buildKey(key), (&api.WriteOptions{}).WithContext(ctx))
	return err
}

func (cb *ConsulBackend) get(ctx context.Context, key string) (*api.KVPair, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, _, err := cb.kv.Get(cb.buildKey(key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	return pair, nil
}

// etag derives a short content fingerprint, Consul has no native one.
func etag(content []byte) string {
	hash := fnv.New64a()
	hash.Write(content)
	return fmt.Sprintf("%x", hash.Sum64())
}
