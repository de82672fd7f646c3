package ports

import (
	"context"
	"io"
	"time"
)

// S3Storage : для S3
type S3Storage interface {
	UploadObject(ctx context.Context, key string, body io.Reader, contentType string) error
	DownloadObject(ctx context.Context, key string) (io.ReadCloser, error)
	GeneratePresignedGetURL(ctx context.Context, key string, expire time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
