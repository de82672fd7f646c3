package requestresponse

import (
	"time"

	"infoclass-files/internal/model"
)

// AttachmentResponse : описывает вложение для JSON-ответа
type AttachmentResponse struct {
	UUID             string `json:"id" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	FilenameOriginal string `json:"original_filename" example:"homework.pdf"`
	SizeBytes        int64  `json:"size_bytes" example:"102400"`
	MimeType         string `json:"mime_type" example:"application/pdf"`
	SubmissionUUID   string `json:"submission_id,omitempty" example:"sub-uuid-1234"`
	AssignmentUUID   string `json:"assignment_id,omitempty" example:"asg-uuid-1234"`
	AnnouncementUUID string `json:"announcement_id,omitempty" example:"ann-uuid-1234"`
	UploadedBy       string `json:"uploaded_by" example:"user-uuid-1234"`
	CreatedAt        string `json:"created_at" example:"2025-08-23T12:34:56Z"`
	GetURL           string `json:"get_url,omitempty"`
}

// AttachmentResponseFromModel : конвертирует model.Attachment в AttachmentResponse
func AttachmentResponseFromModel(attachment *model.Attachment, getURL string) AttachmentResponse {
	resp := AttachmentResponse{
		UUID:             attachment.UUID,
		FilenameOriginal: attachment.FilenameOriginal,
		SizeBytes:        attachment.SizeBytes,
		MimeType:         attachment.MimeType,
		UploadedBy:       attachment.UploadedBy,
		CreatedAt:        attachment.CreatedAt.Format(time.RFC3339),
		GetURL:           getURL,
	}
	if attachment.SubmissionUUID != nil {
		resp.SubmissionUUID = *attachment.SubmissionUUID
	}
	if attachment.AssignmentUUID != nil {
		resp.AssignmentUUID = *attachment.AssignmentUUID
	}
	if attachment.AnnouncementUUID != nil {
		resp.AnnouncementUUID = *attachment.AnnouncementUUID
	}
	return resp
}

// UploadFileResponse : ответ на успешную загрузку файла
type UploadFileResponse struct {
	File AttachmentResponse `json:"file"`
}

// ReassociateRequest : тело запроса на привязку вложения к владельцу.
// Должно быть заполнено ровно одно из трёх полей.
type ReassociateRequest struct {
	SubmissionUUID   string `json:"submission_id,omitempty" example:"sub-uuid-1234"`
	AssignmentUUID   string `json:"assignment_id,omitempty" example:"asg-uuid-1234"`
	AnnouncementUUID string `json:"announcement_id,omitempty" example:"ann-uuid-1234"`
}

// ReassociateResponse : ответ на успешную привязку
type ReassociateResponse struct {
	File AttachmentResponse `json:"file"`
}

// ListFilesResponse : ответ API со списком вложений владельца
type ListFilesResponse struct {
	Files []AttachmentResponse `json:"files"`
	Count int                  `json:"count" example:"3"`
}

// ErrorDetail : детальная информация об ошибке
type ErrorDetail struct {
	Code int    `json:"code" example:"400"`
	Text string `json:"text" example:"описание ошибки"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
