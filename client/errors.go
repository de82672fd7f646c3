package client

import (
	"errors"
	"fmt"
)

// RejectReason : причина отказа при локальной валидации выбранных файлов
type RejectReason string

const (
	ReasonTooManyFiles RejectReason = "TooManyFiles"
	ReasonFileTooLarge RejectReason = "FileTooLarge"
)

// ValidationError : файл отклонён до какого-либо сетевого вызова
type ValidationError struct {
	Filename string
	Reason   RejectReason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooManyFiles:
		return fmt.Sprintf("файл %s отклонён: превышен лимит количества вложений", e.Filename)
	case ReasonFileTooLarge:
		return fmt.Sprintf("файл %s отклонён: превышен максимальный размер", e.Filename)
	}
	return fmt.Sprintf("файл %s отклонён", e.Filename)
}

// TransferError : сетевой вызов завершился ошибкой или не-2xx ответом.
// Message содержит человекочитаемый текст из поля message ответа сервера.
type TransferError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка обмена с файловым сервисом: %v", e.Err)
	}
	return fmt.Sprintf("ошибка обмена с файловым сервисом: %d %s", e.StatusCode, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnsupportedPreviewType : предпросмотр запрошен для файла не-PDF, сетевой вызов не выполнялся
	ErrUnsupportedPreviewType = errors.New("предпросмотр поддерживается только для PDF файлов")

	// ErrRetrievalFailed : не удалось получить содержимое вложения, повтор возможен
	ErrRetrievalFailed = errors.New("не удалось получить содержимое вложения")
)
