package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/mwantia/dicomweb/data"
)

func (sb *SQLiteBackend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := sb.db.ExecContext(ctx, `
		INSERT INTO blobs (key, content, size, modify_time) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			modify_time = excluded.modify_time
	`, key, content, len(content), now.UnixNano()); err != nil {
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        int64(len(content)),
		ModifyTime:  now,
		ContentType: data.ContentTypeDicom,
	}, nil
}

func (sb *SQLiteBackend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	var content []byte
	err := sb.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE key = ?`, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (sb *SQLiteBackend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	var size, modifyTime int64
	err := sb.db.QueryRowContext(ctx, `SELECT size, modify_time FROM blobs WHERE key = ?`, key).Scan(&size, &modifyTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	return &data.BlobStat{
		Key:         key,
		Size:        size,
		ModifyTime:  time.Unix(0, modifyTime),
		ContentType: data.ContentTypeDicom,
	}, nil
}

func (sb *SQLiteBackend) DeleteBlob(ctx context.Context, key string) error {
	result, err := sb.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return data.ErrNotExist
	}

	return nil
}
