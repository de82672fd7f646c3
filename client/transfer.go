package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"infoclass-files/internal/model"
)

// Transfer : граница с внешним файловым сервисом InfoClass
type Transfer interface {
	Upload(ctx context.Context, file StagedFile, owner model.OwnerRef) (*model.Attachment, error)
	Fetch(ctx context.Context, attachmentUUID string) ([]byte, error)
	Delete(ctx context.Context, attachmentUUID string) error
	Reassociate(ctx context.Context, attachmentUUID string, owner model.OwnerRef) (*model.Attachment, error)
	ListByOwner(ctx context.Context, owner model.OwnerRef) ([]model.Attachment, error)
}

// Credentials : источник bearer токена. Передаётся явно, а не берётся
// из глобального состояния, чтобы клиент оставался тестируемым.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken : фиксированный токен, достаточно для тестов и CLI
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// HTTPTransfer : реализация Transfer поверх REST API файлового сервиса
type HTTPTransfer struct {
	baseURL     string
	client      *http.Client
	credentials Credentials
}

func NewHTTPTransfer(baseURL string, credentials Credentials) *HTTPTransfer {
	return &HTTPTransfer{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		credentials: credentials,
	}
}

// ownerField : имя поля формы или JSON для типа владельца
func ownerField(kind model.OwnerKind) string {
	switch kind {
	case model.OwnerSubmission:
		return "submission_id"
	case model.OwnerAssignment:
		return "assignment_id"
	case model.OwnerAnnouncement:
		return "announcement_id"
	}
	return ""
}

// Upload : POST /api/files/upload, multipart с файлом и владельцем если он известен
func (t *HTTPTransfer) Upload(ctx context.Context, file StagedFile, owner model.OwnerRef) (*model.Attachment, error) {
	source, err := os.Open(file.Path)
	if err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка открытия файла: %w", err)}
	}
	defer source.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	if _, err := io.Copy(part, source); err != nil {
		return nil, &TransferError{Err: err}
	}

	if owner.IsPending() == false {
		if err := writer.WriteField(ownerField(owner.Kind), owner.UUID); err != nil {
			return nil, &TransferError{Err: err}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, &TransferError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/files/upload", &body)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var payload struct {
		File attachmentPayload `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка разбора ответа: %w", err)}
	}

	return payload.File.toModel()
}

// Fetch : GET /api/files/{id}, возвращает содержимое файла
func (t *HTTPTransfer) Fetch(ctx context.Context, attachmentUUID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/files/"+attachmentUUID, nil)
	if err != nil {
		return nil, &TransferError{Err: err}
	}

	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка чтения ответа: %w", err)}
	}

	return data, nil
}

// Delete : DELETE /api/files/{id}. Ответ 404 не считается ошибкой:
// подтверждение могло разминуться с локальным удалением.
func (t *HTTPTransfer) Delete(ctx context.Context, attachmentUUID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.baseURL+"/api/files/"+attachmentUUID, nil)
	if err != nil {
		return &TransferError{Err: err}
	}

	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNotFound {
		return parseErrorResponse(resp)
	}

	return nil
}

// Reassociate : PUT /api/files/{id}, привязка вложения к владельцу
func (t *HTTPTransfer) Reassociate(ctx context.Context, attachmentUUID string, owner model.OwnerRef) (*model.Attachment, error) {
	if owner.IsPending() {
		return nil, &TransferError{Err: fmt.Errorf("владелец вложения не указан")}
	}

	payload := map[string]string{
		ownerField(owner.Kind): owner.UUID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransferError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/api/files/"+attachmentUUID, bytes.NewReader(body))
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var response struct {
		File attachmentPayload `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка разбора ответа: %w", err)}
	}

	return response.File.toModel()
}

// ListByOwner : GET /api/{submissions,assignments,announcements}/{id}/files
func (t *HTTPTransfer) ListByOwner(ctx context.Context, owner model.OwnerRef) ([]model.Attachment, error) {
	if owner.IsPending() {
		return nil, &TransferError{Err: fmt.Errorf("владелец вложений не указан")}
	}

	url := fmt.Sprintf("%s/api/%ss/%s/files", t.baseURL, owner.Kind, owner.UUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransferError{Err: err}
	}

	resp, err := t.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var response struct {
		Files []attachmentPayload `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка разбора ответа: %w", err)}
	}

	attachments := make([]model.Attachment, 0, len(response.Files))
	for _, payload := range response.Files {
		attachment, err := payload.toModel()
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *attachment)
	}

	return attachments, nil
}

func (t *HTTPTransfer) do(req *http.Request) (*http.Response, error) {
	token, err := t.credentials.Token(req.Context())
	if err != nil {
		return nil, &TransferError{Err: fmt.Errorf("ошибка получения токена: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransferError{Err: err}
	}
	return resp, nil
}

// attachmentPayload : форма вложения на проводе. Разбор происходит явно
// на границе с сервисом, а не откладывается до отображения.
type attachmentPayload struct {
	UUID             string `json:"id"`
	FilenameOriginal string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	MimeType         string `json:"mime_type"`
	SubmissionUUID   string `json:"submission_id"`
	AssignmentUUID   string `json:"assignment_id"`
	AnnouncementUUID string `json:"announcement_id"`
	UploadedBy       string `json:"uploaded_by"`
	CreatedAt        string `json:"created_at"`
}

func (p *attachmentPayload) toModel() (*model.Attachment, error) {
	if p.UUID == "" {
		return nil, &TransferError{Err: fmt.Errorf("ответ сервиса без id вложения")}
	}
	if p.FilenameOriginal == "" {
		return nil, &TransferError{Err: fmt.Errorf("ответ сервиса без имени файла")}
	}

	attachment := &model.Attachment{
		UUID:             p.UUID,
		FilenameOriginal: p.FilenameOriginal,
		SizeBytes:        p.SizeBytes,
		MimeType:         p.MimeType,
		UploadedBy:       p.UploadedBy,
	}

	if p.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, p.CreatedAt)
		if err != nil {
			return nil, &TransferError{Err: fmt.Errorf("ошибка разбора created_at: %w", err)}
		}
		attachment.CreatedAt = createdAt
	}

	owner, err := ownerFromPayload(p.SubmissionUUID, p.AssignmentUUID, p.AnnouncementUUID)
	if err != nil {
		return nil, err
	}
	attachment.SetOwner(owner)

	return attachment, nil
}

func ownerFromPayload(submissionUUID, assignmentUUID, announcementUUID string) (model.OwnerRef, error) {
	var owner model.OwnerRef
	set := 0

	if submissionUUID != "" {
		owner = model.OwnerRef{Kind: model.OwnerSubmission, UUID: submissionUUID}
		set++
	}
	if assignmentUUID != "" {
		owner = model.OwnerRef{Kind: model.OwnerAssignment, UUID: assignmentUUID}
		set++
	}
	if announcementUUID != "" {
		owner = model.OwnerRef{Kind: model.OwnerAnnouncement, UUID: announcementUUID}
		set++
	}

	if set > 1 {
		return model.OwnerRef{}, &TransferError{Err: fmt.Errorf("ответ сервиса с несколькими владельцами вложения")}
	}

	return owner, nil
}

// parseErrorResponse : извлекает человекочитаемое сообщение из не-2xx ответа
func parseErrorResponse(resp *http.Response) *TransferError {
	transferErr := &TransferError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		transferErr.Message = body.Message
	}

	return transferErr
}
