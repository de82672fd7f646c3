package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"infoclass-files/internal/model"
	requestresponse "infoclass-files/internal/model/requestresponse"
	"infoclass-files/internal/ports"
	"infoclass-files/internal/security"
	"infoclass-files/internal/util"
)

type FileHandler struct {
	ports.AttachmentService
}

func NewFileHandler(attachmentService ports.AttachmentService) *FileHandler {
	return &FileHandler{attachmentService}
}

// ownerFromValues : собирает ссылку на владельца из параметров формы или JSON.
// Заполнено должно быть не больше одного поля.
func ownerFromValues(submissionUUID, assignmentUUID, announcementUUID string) (model.OwnerRef, error) {
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
		return model.OwnerRef{}, fmt.Errorf("указано больше одного владельца")
	}

	return owner, nil
}

// UploadFile godoc
// @Summary Загрузка нового вложения
// @Description Загружает файл через multipart/form-data. Опционально принимает ровно одно из полей
// submission_id, assignment_id, announcement_id — владельца вложения. Если владелец ещё не создан,
// файл остаётся непривязанным и позже привязывается через PUT /api/files/{file_id}.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Файл вложения"
// @Param submission_id formData string false "UUID сдачи задания"
// @Param assignment_id formData string false "UUID задания"
// @Param announcement_id formData string false "UUID объявления"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 201 {object} requestresponse.UploadFileResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Неверный формат запроса, недопустимый тип или размер файла"
// @Failure 401 {object} requestresponse.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/files/upload [post]
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		util.HandleError(w, "файл не найден в запросе", http.StatusBadRequest)
		return
	}
	defer file.Close()

	claims, err := security.GetClaimsFromContext(ctx)
	if err != nil || claims == nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	owner, err := ownerFromValues(
		r.FormValue("submission_id"),
		r.FormValue("assignment_id"),
		r.FormValue("announcement_id"),
	)
	if err != nil {
		util.HandleError(w, "вложение может принадлежать только одной сущности", http.StatusBadRequest)
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		util.HandleError(w, "ошибка чтения файла", http.StatusInternalServerError)
		return
	}

	input := &model.UploadInput{
		FilenameOriginal: header.Filename,
		MimeType:         header.Header.Get("Content-Type"),
		Data:             fileBytes,
		Owner:            owner,
		UploadedBy:       claims.UserUUID,
	}

	attachment, err := h.AttachmentService.Upload(ctx, input)
	if err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "недопустимый тип файла"),
			strings.Contains(err.Error(), "превышает максимальный размер"),
			strings.Contains(err.Error(), "превышен лимит вложений"):
			util.HandleError(w, trimComponentPrefix(err.Error()), http.StatusBadRequest)
		default:
			util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	response := requestresponse.UploadFileResponse{
		File: requestresponse.AttachmentResponseFromModel(attachment, ""),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// DownloadFile godoc
// @Summary Скачивание вложения
// @Description Возвращает содержимое файла как бинарное тело с Content-Disposition.
// @Tags Files
// @Produce octet-stream
// @Param file_id path string true "UUID вложения"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {file} binary
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_id} [get]
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileUUID := chi.URLParam(r, "file_id")
	if fileUUID == "" {
		util.HandleError(w, "ID вложения обязателен", http.StatusBadRequest)
		return
	}

	attachment, body, err := h.AttachmentService.Download(r.Context(), fileUUID)
	if err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не найдено"):
			util.HandleError(w, "вложение не найдено", http.StatusNotFound)
		default:
			util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.SizeBytes, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", attachment.FilenameOriginal))

	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[FileHandler] ошибка отдачи файла %s: %v", fileUUID, err)
	}
}

// DeleteFile godoc
// @Summary Удаление вложения
// @Description Удаляет вложение из хранилища и метаданные. Удалять может только загрузивший.
// @Tags Files
// @Produce json
// @Param file_id path string true "UUID вложения"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 204 "Вложение удалено"
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_id} [delete]
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileUUID := chi.URLParam(r, "file_id")
	if fileUUID == "" {
		util.HandleError(w, "ID вложения обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil || claims == nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	if err := h.AttachmentService.Delete(r.Context(), fileUUID, claims.UserUUID); err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не найдено"):
			util.HandleError(w, "вложение не найдено", http.StatusNotFound)
		case strings.Contains(err.Error(), "только загрузивший"):
			util.HandleError(w, "доступ запрещён", http.StatusForbidden)
		default:
			util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReassociateFile godoc
// @Summary Привязка вложения к владельцу
// @Description Привязывает загруженное заранее вложение к созданной сущности
// (сдаче, заданию или объявлению). В теле указывается ровно одно из полей владельца.
// @Tags Files
// @Accept json
// @Produce json
// @Param file_id path string true "UUID вложения"
// @Param request body requestresponse.ReassociateRequest true "Владелец вложения"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ReassociateResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/files/{file_id} [put]
func (h *FileHandler) ReassociateFile(w http.ResponseWriter, r *http.Request) {
	fileUUID := chi.URLParam(r, "file_id")
	if fileUUID == "" {
		util.HandleError(w, "ID вложения обязателен", http.StatusBadRequest)
		return
	}

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil || claims == nil {
		util.HandleError(w, "пользователь не авторизован", http.StatusUnauthorized)
		return
	}

	var request requestresponse.ReassociateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		util.HandleError(w, "неверный формат запроса", http.StatusBadRequest)
		return
	}

	owner, err := ownerFromValues(request.SubmissionUUID, request.AssignmentUUID, request.AnnouncementUUID)
	if err != nil {
		util.HandleError(w, "вложение может принадлежать только одной сущности", http.StatusBadRequest)
		return
	}
	if owner.IsPending() {
		util.HandleError(w, "владелец вложения не указан", http.StatusBadRequest)
		return
	}

	attachment, err := h.AttachmentService.Reassociate(r.Context(), fileUUID, owner, claims.UserUUID)
	if err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не найдено"):
			util.HandleError(w, "вложение не найдено", http.StatusNotFound)
		case strings.Contains(err.Error(), "только загрузивший"):
			util.HandleError(w, "доступ запрещён", http.StatusForbidden)
		case strings.Contains(err.Error(), "превышен лимит вложений"):
			util.HandleError(w, trimComponentPrefix(err.Error()), http.StatusBadRequest)
		default:
			util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	response := requestresponse.ReassociateResponse{
		File: requestresponse.AttachmentResponseFromModel(attachment, ""),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListSubmissionFiles godoc
// @Summary Список вложений сдачи задания
// @Tags Files
// @Produce json
// @Param id path string true "UUID сдачи"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListFilesResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/submissions/{id}/files [get]
func (h *FileHandler) ListSubmissionFiles(w http.ResponseWriter, r *http.Request) {
	h.listFiles(w, r, model.OwnerSubmission)
}

// ListAssignmentFiles godoc
// @Summary Список вложений задания
// @Tags Files
// @Produce json
// @Param id path string true "UUID задания"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListFilesResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/assignments/{id}/files [get]
func (h *FileHandler) ListAssignmentFiles(w http.ResponseWriter, r *http.Request) {
	h.listFiles(w, r, model.OwnerAssignment)
}

// ListAnnouncementFiles godoc
// @Summary Список вложений объявления
// @Tags Files
// @Produce json
// @Param id path string true "UUID объявления"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.ListFilesResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/announcements/{id}/files [get]
func (h *FileHandler) ListAnnouncementFiles(w http.ResponseWriter, r *http.Request) {
	h.listFiles(w, r, model.OwnerAnnouncement)
}

func (h *FileHandler) listFiles(w http.ResponseWriter, r *http.Request, kind model.OwnerKind) {
	ownerUUID := chi.URLParam(r, "id")
	if ownerUUID == "" {
		util.HandleError(w, "ID владельца обязателен", http.StatusBadRequest)
		return
	}

	results, err := h.AttachmentService.ListByOwner(r.Context(), model.OwnerRef{Kind: kind, UUID: ownerUUID})
	if err != nil {
		log.Println(err)
		util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	response := requestresponse.ListFilesResponse{
		Files: make([]requestresponse.AttachmentResponse, 0, len(results)),
		Count: len(results),
	}
	for _, result := range results {
		response.Files = append(response.Files, requestresponse.AttachmentResponseFromModel(result.Attachment, result.GetURL))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// trimComponentPrefix : убирает служебный префикс "[AttachmentService] " из текста ошибки
func trimComponentPrefix(message string) string {
	if idx := strings.Index(message, "] "); idx != -1 && strings.HasPrefix(message, "[") {
		return message[idx+2:]
	}
	return message
}
