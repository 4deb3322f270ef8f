package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/dicomweb/data"
)

func (pb *PostgresBackend) PutBlob(ctx context.Context, key string, reader io.Reader, size int64) (*data.BlobStat, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	now := time.Now()
	if _, err := conn.Exec(ctx, `
		INSERT INTO blobs (key, content, size, modify_time) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			modify_time = EXCLUDED.modify_time
	`, key, content, int64(len(content)), now.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	return &data.BlobStat{
		Key:         key,
		Size:        int64(len(content)),
		ModifyTime:  now,
		ContentType: data.ContentTypeDicom,
	}, nil
}

func (pb *PostgresBackend) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var content []byte
	err = conn.QueryRow(ctx, `SELECT content FROM blobs WHERE key = $1`, key).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (pb *PostgresBackend) StatBlob(ctx context.Context, key string) (*data.BlobStat, error) {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var size, modifyTime int64
	err = conn.QueryRow(ctx, `SELECT size, modify_time FROM blobs WHERE key = $1`, key).Scan(&size, &modifyTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	return &data.BlobStat{
		Key:         key,
		Size:        size,
		ModifyTime:  time.Unix(0, modifyTime),
		ContentType: data.ContentTypeDicom,
	}, nil
}

func (pb *PostgresBackend) DeleteBlob(ctx context.Context, key string) error {
	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM blobs WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrNotExist
	}

	return nil
}
