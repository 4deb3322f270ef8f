package data

import "time"

// BlobStat is the minimal description a blob backend returns for a stored object.
type BlobStat struct {
	// Key within the backend
	Key string `json:"key"`

	// Size in bytes
	Size int64 `json:"size"`

	ModifyTime time.Time `json:"modify_time"`

	// Content MIME type
	ContentType string `json:"content_type"`

	ETag string `json:"etag"`
}
