package ports

import (
	"context"

	"infoclass-files/internal/model"
)

// CacheRepository : Redis слой
type CacheRepository interface {
	SetAttachment(ctx context.Context, attachment *model.Attachment) error
	GetAttachment(ctx context.Context, uuid string) (*model.Attachment, error)
	DeleteAttachment(ctx context.Context, uuid string) error
}
