package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"infoclass-files/config"
	"infoclass-files/internal/model"
	"infoclass-files/internal/util"
)

type AttachmentRepository struct {
	*config.Database
}

func NewAttachmentRepository(database *config.Database) *AttachmentRepository {
	return &AttachmentRepository{database}
}

// ownerColumn : колонка внешнего ключа для типа владельца
func ownerColumn(kind model.OwnerKind) (string, error) {
	switch kind {
	case model.OwnerSubmission:
		return "submission_uuid", nil
	case model.OwnerAssignment:
		return "assignment_uuid", nil
	case model.OwnerAnnouncement:
		return "announcement_uuid", nil
	}
	return "", fmt.Errorf("неизвестный тип владельца: %s", kind)
}

// Create : сохраняем новое вложение
func (r *AttachmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, attachment *model.Attachment) error {
	query := `
		INSERT INTO attachments (uuid, filename_original, storage_path, size_bytes, mime_type,
		                         submission_uuid, assignment_uuid, announcement_uuid, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		attachment.UUID,
		attachment.FilenameOriginal,
		attachment.StoragePath,
		attachment.SizeBytes,
		attachment.MimeType,
		attachment.SubmissionUUID,
		attachment.AssignmentUUID,
		attachment.AnnouncementUUID,
		attachment.UploadedBy)

	return err
}

// GetByUUID : возвращает вложение по его идентификатору
func (r *AttachmentRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string) (*model.Attachment, error) {
	query := `
		SELECT uuid, filename_original, storage_path, size_bytes, mime_type,
		       submission_uuid, assignment_uuid, announcement_uuid, uploaded_by, created_at, deleted_at
		FROM attachments
		WHERE uuid = $1 AND deleted_at IS NULL
	`

	var attachment model.Attachment
	if err := sqlx.GetContext(ctx, exec, &attachment, query, attachmentUUID); err != nil {
		return nil, err
	}

	return &attachment, nil
}

// ListByOwner : вложения владельца в порядке загрузки (created_at, uuid)
// Порядок вставки сохраняется независимо от того, в каком порядке завершались загрузки.
func (r *AttachmentRepository) ListByOwner(ctx context.Context, exec sqlx.ExtContext, owner model.OwnerRef) ([]model.Attachment, error) {
	column, err := ownerColumn(owner.Kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT uuid, filename_original, storage_path, size_bytes, mime_type,
		       submission_uuid, assignment_uuid, announcement_uuid, uploaded_by, created_at, deleted_at
		FROM attachments
		WHERE %s = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, uuid ASC
	`, column)

	attachments := []model.Attachment{}
	rows, err := exec.QueryxContext(ctx, query, owner.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var attachment model.Attachment
		if err := rows.StructScan(&attachment); err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}

	return attachments, rows.Err()
}

// CountByOwner : количество живых вложений у владельца, для проверки лимита
func (r *AttachmentRepository) CountByOwner(ctx context.Context, exec sqlx.ExtContext, owner model.OwnerRef) (int, error) {
	column, err := ownerColumn(owner.Kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM attachments
		WHERE %s = $1 AND deleted_at IS NULL
	`, column)

	var count int
	if err := sqlx.GetContext(ctx, exec, &count, query, owner.UUID); err != nil {
		return 0, err
	}

	return count, nil
}

// SetOwner : привязывает вложение к владельцу, снимая прежнюю привязку
func (r *AttachmentRepository) SetOwner(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string, owner model.OwnerRef) error {
	column, err := ownerColumn(owner.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE attachments
		SET submission_uuid = NULL, assignment_uuid = NULL, announcement_uuid = NULL,
		    %s = $2
		WHERE uuid = $1 AND deleted_at IS NULL
	`, column)

	result, err := exec.ExecContext(ctx, query, attachmentUUID, owner.UUID)
	if err != nil {
		return util.LogError("не удалось сохранить изменения", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("вложение не найдено")
	}

	return nil
}

// Delete : помечает вложение удалённым и возвращает storage_path для очистки S3
func (r *AttachmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, attachmentUUID string) (string, error) {
	query := `
		UPDATE attachments
		SET deleted_at = NOW()
		WHERE uuid = $1 AND deleted_at IS NULL
		RETURNING storage_path
	`

	var storagePath string
	if err := sqlx.GetContext(ctx, exec, &storagePath, query, attachmentUUID); err != nil {
		return "", err
	}

	return storagePath, nil
}

func (r *AttachmentRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}
