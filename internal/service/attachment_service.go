package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"infoclass-files/config"
	"infoclass-files/internal/model"
	"infoclass-files/internal/ports"
	"infoclass-files/internal/util"
)

type AttachmentService struct {
	attachmentRepository ports.AttachmentRepository
	cacheRepository      ports.CacheRepository
	storageInterface     ports.S3Storage
	limits               *config.LimitsConfig
	ttl                  time.Duration
}

func NewAttachmentService(
	attachmentRepository ports.AttachmentRepository,
	cacheRepository ports.CacheRepository,
	storageInterface ports.S3Storage,
	limits *config.LimitsConfig,
	ttl time.Duration,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepository: attachmentRepository,
		cacheRepository:      cacheRepository,
		storageInterface:     storageInterface,
		limits:               limits,
		ttl:                  ttl,
	}
}

// Upload : проверяет лимиты, кладёт файл в S3, сохраняет метаданные в БД и кэширует их.
// Лимиты проверяются повторно даже если клиент уже проверил их у себя.
func (s *AttachmentService) Upload(ctx context.Context, input *model.UploadInput) (*model.Attachment, error) {
	if util.IsAllowedFilename(input.FilenameOriginal) == false {
		return nil, fmt.Errorf("[AttachmentService] недопустимый тип файла")
	}

	if int64(len(input.Data)) > s.limits.MaxSizeBytes() {
		return nil, fmt.Errorf("[AttachmentService] файл превышает максимальный размер %d МБ", s.limits.MaxSizeMB)
	}

	exec, rollback, commit, err := s.attachmentRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[AttachmentService] не удалось начать транзакцию", err)
	}
	defer rollback()

	if input.Owner.IsPending() == false {
		count, err := s.attachmentRepository.CountByOwner(ctx, exec, input.Owner)
		if err != nil {
			return nil, util.LogError("[AttachmentService] ошибка проверки лимита вложений", err)
		}
		if count >= s.limits.MaxFilesPerOwner {
			return nil, fmt.Errorf("[AttachmentService] превышен лимит вложений: максимум %d файлов", s.limits.MaxFilesPerOwner)
		}
	}

	mimeType := input.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = util.DetectContentType(input.FilenameOriginal)
	}

	fileExt := filepath.Ext(input.FilenameOriginal)
	fileName := strings.TrimSuffix(input.FilenameOriginal, fileExt)
	storagePath := fmt.Sprintf("users/%s/attachments/%s-%s%s",
		input.UploadedBy,
		url.PathEscape(fileName),
		uuid.New().String()[:8],
		fileExt,
	)

	attachment := &model.Attachment{
		UUID:             uuid.New().String(),
		FilenameOriginal: input.FilenameOriginal,
		StoragePath:      storagePath,
		SizeBytes:        int64(len(input.Data)),
		MimeType:         mimeType,
		UploadedBy:       input.UploadedBy,
		CreatedAt:        time.Now(),
	}
	attachment.SetOwner(input.Owner)

	if err := s.storageInterface.UploadObject(ctx, storagePath, bytes.NewReader(input.Data), mimeType); err != nil {
		return nil, util.LogError("[AttachmentService] не удалось загрузить файл в S3", err)
	}

	if err := s.attachmentRepository.Create(ctx, exec, attachment); err != nil {
		// файл уже в S3, метаданных нет — убираем объект, чтобы не копить сирот
		if delErr := s.storageInterface.DeleteObject(ctx, storagePath); delErr != nil {
			log.Printf("[AttachmentService] не удалось удалить осиротевший объект %s: %v", storagePath, delErr)
		}
		return nil, util.LogError("[AttachmentService] не удалось сохранить вложение в БД", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AttachmentService] не удалось закоммитить транзакцию", err)
	}

	if err := s.cacheRepository.SetAttachment(ctx, attachment); err != nil {
		log.Printf("[AttachmentService] ошибка кэширования вложения: %v", err)
	}

	log.Printf("[AttachmentService] вложение %s успешно загружено", attachment.FilenameOriginal)

	return attachment, nil
}

// getByUUID : метаданные вложения, сначала из кэша, затем из БД
func (s *AttachmentService) getByUUID(ctx context.Context, attachmentUUID string) (*model.Attachment, error) {
	attachment, err := s.cacheRepository.GetAttachment(ctx, attachmentUUID)
	if err != nil {
		log.Printf("[AttachmentService] ошибка кэширования: %v", err)
	}
	if attachment != nil {
		log.Printf("[AttachmentService] вложение %s взято из кэша Redis", attachment.FilenameOriginal)
		return attachment, nil
	}

	db, ok := ctx.Value("db").(*config.Database)
	if ok == false {
		return nil, fmt.Errorf("[AttachmentService] database connection не найден в context")
	}

	attachment, err = s.attachmentRepository.GetByUUID(ctx, db, attachmentUUID)
	if err != nil {
		return nil, util.LogError("[AttachmentService] вложение не найдено", err)
	}

	if err := s.cacheRepository.SetAttachment(ctx, attachment); err != nil {
		log.Printf("[AttachmentService] ошибка кэширования вложения: %v", err)
	}

	return attachment, nil
}

// Download : возвращает метаданные и поток содержимого вложения
func (s *AttachmentService) Download(ctx context.Context, attachmentUUID string) (*model.Attachment, io.ReadCloser, error) {
	attachment, err := s.getByUUID(ctx, attachmentUUID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.storageInterface.DownloadObject(ctx, attachment.StoragePath)
	if err != nil {
		return nil, nil, util.LogError("[AttachmentService] не удалось скачать файл из S3", err)
	}

	return attachment, body, nil
}

// Delete : удаляет вложение владельцем, инвалидирует кэш и удаляет файл из S3
func (s *AttachmentService) Delete(ctx context.Context, attachmentUUID string, userUUID string) error {
	exec, rollback, commit, err := s.attachmentRepository.BeginTX(ctx)
	if err != nil {
		return util.LogError("[AttachmentService] ошибка начала транзакции", err)
	}
	defer rollback()

	attachment, err := s.attachmentRepository.GetByUUID(ctx, exec, attachmentUUID)
	if err != nil {
		return util.LogError("[AttachmentService] вложение не найдено", err)
	}

	if attachment.UploadedBy != userUUID {
		return fmt.Errorf("[AttachmentService] только загрузивший может удалить вложение")
	}

	storagePath, err := s.attachmentRepository.Delete(ctx, exec, attachmentUUID)
	if err != nil {
		return util.LogError("[AttachmentService] ошибка удаления вложения из БД", err)
	}

	if err := commit(); err != nil {
		return fmt.Errorf("[AttachmentService] ошибка коммита транзакции: %w", err)
	}

	if err := s.cacheRepository.DeleteAttachment(ctx, attachmentUUID); err != nil {
		log.Printf("[AttachmentService] ошибка удаления из кэша: %v", err)
	}

	if err := s.storageInterface.DeleteObject(ctx, storagePath); err != nil {
		return util.LogError("[AttachmentService] ошибка удаления файла из S3", err)
	}

	log.Printf("[AttachmentService] вложение %s успешно удалено", attachment.FilenameOriginal)

	return nil
}

// Reassociate : привязывает загруженное заранее вложение к созданному владельцу.
// Используется когда файлы были выбраны до того, как задание или объявление получило id.
func (s *AttachmentService) Reassociate(ctx context.Context, attachmentUUID string, owner model.OwnerRef, userUUID string) (*model.Attachment, error) {
	if owner.IsPending() {
		return nil, fmt.Errorf("[AttachmentService] владелец вложения не указан")
	}

	exec, rollback, commit, err := s.attachmentRepository.BeginTX(ctx)
	if err != nil {
		return nil, util.LogError("[AttachmentService] не удалось начать транзакцию", err)
	}
	defer rollback()

	attachment, err := s.attachmentRepository.GetByUUID(ctx, exec, attachmentUUID)
	if err != nil {
		return nil, util.LogError("[AttachmentService] вложение не найдено", err)
	}

	if attachment.UploadedBy != userUUID {
		return nil, fmt.Errorf("[AttachmentService] только загрузивший может привязать вложение")
	}

	count, err := s.attachmentRepository.CountByOwner(ctx, exec, owner)
	if err != nil {
		return nil, util.LogError("[AttachmentService] ошибка проверки лимита вложений", err)
	}
	if count >= s.limits.MaxFilesPerOwner {
		return nil, fmt.Errorf("[AttachmentService] превышен лимит вложений: максимум %d файлов", s.limits.MaxFilesPerOwner)
	}

	if err := s.attachmentRepository.SetOwner(ctx, exec, attachmentUUID, owner); err != nil {
		return nil, util.LogError("[AttachmentService] не удалось привязать вложение", err)
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AttachmentService] ошибка коммита транзакции", err)
	}

	if err := s.cacheRepository.DeleteAttachment(ctx, attachmentUUID); err != nil {
		log.Printf("[AttachmentService] ошибка удаления вложения из кэша: %v", err)
	}

	attachment.SetOwner(owner)

	log.Printf("[AttachmentService] вложение %s привязано к %s", attachment.FilenameOriginal, owner)

	return attachment, nil
}

// ListByOwner : список вложений владельца с pre-signed URL для скачивания
func (s *AttachmentService) ListByOwner(ctx context.Context, owner model.OwnerRef) ([]model.GetAttachmentResult, error) {
	db, ok := ctx.Value("db").(*config.Database)
	if !ok {
		return nil, fmt.Errorf("[AttachmentService] database connection не найден в context")
	}

	attachments, err := s.attachmentRepository.ListByOwner(ctx, db, owner)
	if err != nil {
		return nil, util.LogError("[AttachmentService] не удалось получить список вложений", err)
	}

	results := make([]model.GetAttachmentResult, 0, len(attachments))
	for i := range attachments {
		attachment := attachments[i]

		getURL, err := s.storageInterface.GeneratePresignedGetURL(ctx, attachment.StoragePath, s.ttl)
		if err != nil {
			log.Printf("[AttachmentService] ошибка генерации pre-signed URL для вложения %s: %v", attachment.UUID, err)
			getURL = ""
		}

		results = append(results, model.GetAttachmentResult{
			Attachment: &attachment,
			GetURL:     getURL,
		})
	}

	return results, nil
}
