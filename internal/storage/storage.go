package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectStorage captures the minimal S3-compatible operations snapshot
// import and plan export need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}
