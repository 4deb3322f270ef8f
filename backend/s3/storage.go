package s3

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/dicomweb/data"
)

func (sb *S3Backend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	info, err := sb.client.PutObject(ctx, sb.bucketName, sb.objectName(key), reader, size, minio.PutObjectOptions{
		ContentType: data.ContentTypeDicom,
	})
	if err != nil {
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        info.Size,
		ModifyTime:  info.LastModified,
		ContentType: data.ContentTypeDicom,
		ETag:        info.ETag,
	}, nil
}

func (sb *S3Backend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	// GetObject only reports missing keys on first read, stat first
	if _, err := sb.client.StatObject(ctx, sb.bucketName, sb.objectName(key), minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	object, err := sb.client.GetObject(ctx, sb.bucketName, sb.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	return object, nil
}

func (sb *S3Backend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	info, err := sb.client.StatObject(ctx, sb.bucketName, sb.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        info.Size,
		ModifyTime:  info.LastModified,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

func (sb *S3Backend) DeleteBlob(ctx context.Context, key string) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	// RemoveObject succeeds for missing keys
	if _, err := sb.client.StatObject(ctx, sb.bucketName, sb.objectName(key), minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return data.ErrNotExist
		}
		return err
	}

	return sb.client.RemoveObject(ctx, sb.bucketName, sb.objectName(key), minio.RemoveObjectOptions{})
}
