package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"infoclass-files/internal/model"
	"infoclass-files/internal/util"
)

// PreviewHandle : временный ресурс предпросмотра одного вложения.
// Владеет временным файлом со скачанным содержимым и обязан быть
// освобождён ровно один раз через Close.
type PreviewHandle struct {
	attachmentUUID string
	path           string

	mu       sync.Mutex
	released bool
	onClose  func()
}

// Path : путь к временному файлу для встроенного просмотра
func (h *PreviewHandle) Path() string {
	return h.path
}

// Close : освобождает ресурс предпросмотра. Повторный вызов не ошибка:
// закрытие при размонтировании представления может совпасть с обычным закрытием.
func (h *PreviewHandle) Close() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	if h.onClose != nil {
		h.onClose()
	}

	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return util.LogError("[Preview] не удалось удалить временный файл", err)
	}
	return nil
}

type previewFetch struct {
	done   chan struct{}
	handle *PreviewHandle
	err    error
}

// Preview : скачивание содержимого вложений по требованию и управление
// временными ресурсами предпросмотра. На одно вложение одновременно
// живёт не больше одного ресурса и не больше одной незавершённой загрузки.
type Preview struct {
	transfer Transfer

	mu       sync.Mutex
	inflight map[string]*previewFetch
	open     map[string]*PreviewHandle
}

func NewPreview(transfer Transfer) *Preview {
	return &Preview{
		transfer: transfer,
		inflight: make(map[string]*previewFetch),
		open:     make(map[string]*PreviewHandle),
	}
}

// OpenPreview : открывает предпросмотр PDF вложения.
// Не-PDF файлы отклоняются до какого-либо сетевого вызова.
// Повторный вызов для того же вложения во время незавершённой загрузки
// не порождает второй запрос: оба вызова получают один и тот же ресурс.
// При ошибке маркер незавершённой загрузки снимается и повтор возможен.
func (p *Preview) OpenPreview(ctx context.Context, attachment *model.Attachment) (*PreviewHandle, error) {
	if util.IsPDF(attachment.FilenameOriginal) == false {
		return nil, ErrUnsupportedPreviewType
	}

	p.mu.Lock()
	if handle, ok := p.open[attachment.UUID]; ok {
		p.mu.Unlock()
		return handle, nil
	}
	if fetch, ok := p.inflight[attachment.UUID]; ok {
		p.mu.Unlock()
		<-fetch.done
		return fetch.handle, fetch.err
	}
	fetch := &previewFetch{done: make(chan struct{})}
	p.inflight[attachment.UUID] = fetch
	p.mu.Unlock()

	handle, err := p.fetchPreview(ctx, attachment)

	p.mu.Lock()
	delete(p.inflight, attachment.UUID)
	if handle != nil {
		p.open[attachment.UUID] = handle
	}
	p.mu.Unlock()

	fetch.handle, fetch.err = handle, err
	close(fetch.done)

	return handle, err
}

func (p *Preview) fetchPreview(ctx context.Context, attachment *model.Attachment) (*PreviewHandle, error) {
	data, err := p.transfer.Fetch(ctx, attachment.UUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	path, err := util.SaveTempFile(data, attachment.FilenameOriginal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	attachmentUUID := attachment.UUID
	return &PreviewHandle{
		attachmentUUID: attachmentUUID,
		path:           path,
		onClose: func() {
			p.mu.Lock()
			delete(p.open, attachmentUUID)
			p.mu.Unlock()
		},
	}, nil
}

// CloseAll : освобождает все живые ресурсы предпросмотра,
// вызывается при размонтировании владеющего представления
func (p *Preview) CloseAll() {
	p.mu.Lock()
	handles := make([]*PreviewHandle, 0, len(p.open))
	for _, handle := range p.open {
		handles = append(handles, handle)
	}
	p.mu.Unlock()

	for _, handle := range handles {
		if err := handle.Close(); err != nil {
			log.Printf("[Preview] ошибка освобождения ресурса %s: %v", handle.attachmentUUID, err)
		}
	}
}

// Download : скачивает вложение и сохраняет его в destDir под исходным именем.
// Содержимое проходит через временный файл, который освобождается синхронно
// до возврата. При ошибке частичных эффектов не остаётся.
func (p *Preview) Download(ctx context.Context, attachmentUUID string, filename string, destDir string) error {
	data, err := p.transfer.Fetch(ctx, attachmentUUID)
	if err != nil {
		return err
	}

	tmpPath, err := util.SaveTempFile(data, filename)
	if err != nil {
		return util.LogError("[Preview] ошибка сохранения файла", err)
	}
	defer os.Remove(tmpPath)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return util.LogError("[Preview] ошибка создания директории", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(filename))
	if err := copyFile(tmpPath, destPath); err != nil {
		os.Remove(destPath)
		return util.LogError("[Preview] ошибка сохранения файла", err)
	}

	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
