package ports

import (
	"context"
	"io"

	"github.com/jmoiron/sqlx"

	"infoclass-files/internal/model"
)

// AttachmentRepository : SQL слой
type AttachmentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, attachment *model.Attachment) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string) (*model.Attachment, error)
	ListByOwner(ctx context.Context, exec sqlx.ExtContext, owner model.OwnerRef) ([]model.Attachment, error)
	CountByOwner(ctx context.Context, exec sqlx.ExtContext, owner model.OwnerRef) (int, error)
	SetOwner(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string, owner model.OwnerRef) error
	Delete(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string) (string, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

// AttachmentService : серверная бизнес-логика работы с вложениями
type AttachmentService interface {
	Upload(ctx context.Context, input *model.UploadInput) (*model.Attachment, error)
	Download(ctx context.Context, attachmentUUID string) (*model.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, attachmentUUID string, userUUID string) error
	Reassociate(ctx context.Context, attachmentUUID string, owner model.OwnerRef, userUUID string) (*model.Attachment, error)
	ListByOwner(ctx context.Context, owner model.OwnerRef) ([]model.GetAttachmentResult, error)
}
