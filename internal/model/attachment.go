package model

import "time"

// OwnerKind : тип сущности, которой принадлежит вложение
type OwnerKind string

const (
	OwnerSubmission   OwnerKind = "submission"
	OwnerAssignment   OwnerKind = "assignment"
	OwnerAnnouncement OwnerKind = "announcement"
)

// OwnerRef : ссылка на владельца вложения.
// Нулевое значение означает "pending" — файл загружен до создания владельца
// (например, при составлении нового задания) и будет привязан позже.
type OwnerRef struct {
	Kind OwnerKind
	UUID string
}

// IsPending : вложение ещё не привязано ни к одной сущности
func (o OwnerRef) IsPending() bool {
	return o.Kind == "" || o.UUID == ""
}

func (o OwnerRef) String() string {
	if o.IsPending() {
		return "pending"
	}
	return string(o.Kind) + ":" + o.UUID
}

type Attachment struct {
	UUID             string     `db:"uuid" json:"id"`
	FilenameOriginal string     `db:"filename_original" json:"original_filename"`
	StoragePath      string     `db:"storage_path" json:"-"`
	SizeBytes        int64      `db:"size_bytes" json:"size_bytes"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	SubmissionUUID   *string    `db:"submission_uuid" json:"submission_id,omitempty"`
	AssignmentUUID   *string    `db:"assignment_uuid" json:"assignment_id,omitempty"`
	AnnouncementUUID *string    `db:"announcement_uuid" json:"announcement_id,omitempty"`
	UploadedBy       string     `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Owner : возвращает владельца вложения, активна максимум одна ссылка
func (a *Attachment) Owner() OwnerRef {
	switch {
	case a.SubmissionUUID != nil && *a.SubmissionUUID != "":
		return OwnerRef{Kind: OwnerSubmission, UUID: *a.SubmissionUUID}
	case a.AssignmentUUID != nil && *a.AssignmentUUID != "":
		return OwnerRef{Kind: OwnerAssignment, UUID: *a.AssignmentUUID}
	case a.AnnouncementUUID != nil && *a.AnnouncementUUID != "":
		return OwnerRef{Kind: OwnerAnnouncement, UUID: *a.AnnouncementUUID}
	}
	return OwnerRef{}
}

// SetOwner : привязывает вложение к владельцу, снимая прежнюю привязку
func (a *Attachment) SetOwner(owner OwnerRef) {
	a.SubmissionUUID = nil
	a.AssignmentUUID = nil
	a.AnnouncementUUID = nil

	if owner.IsPending() {
		return
	}

	uuid := owner.UUID
	switch owner.Kind {
	case OwnerSubmission:
		a.SubmissionUUID = &uuid
	case OwnerAssignment:
		a.AssignmentUUID = &uuid
	case OwnerAnnouncement:
		a.AnnouncementUUID = &uuid
	}
}

// GetAttachmentResult : вложение вместе с pre-signed URL для скачивания
type GetAttachmentResult struct {
	Attachment *Attachment
	GetURL     string
}

// UploadInput : данные новой загрузки, собранные хендлером из multipart-формы
type UploadInput struct {
	FilenameOriginal string
	MimeType         string
	Data             []byte
	Owner            OwnerRef
	UploadedBy       string
}
