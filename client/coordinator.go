package client

import (
	"context"
	"log"
	"sync"

	"infoclass-files/internal/model"
)

// UploadFailure : исход одной неудачной загрузки
type UploadFailure struct {
	File StagedFile
	Err  error
}

// UploadResult : итог пакетной загрузки, исходы файлов независимы друг от друга
type UploadResult struct {
	Succeeded []model.Attachment
	Failed    []UploadFailure
}

// Coordinator : превращает очередь ожидающих файлов в сохранённые вложения.
// Не хранит собственного состояния между вызовами, все изменения видны
// только через Store и возвращаемый результат.
type Coordinator struct {
	store    *Store
	transfer Transfer
}

func NewCoordinator(store *Store, transfer Transfer) *Coordinator {
	return &Coordinator{store: store, transfer: transfer}
}

// UploadAll : загружает все ожидающие файлы владельца, по одной операции на файл,
// параллельно. Ошибка одного файла не откатывает и не блокирует остальные:
// успешные файлы попадают в Store по мере завершения, неудачные остаются
// в очереди для повтора или явного удаления. Порядок в результате совпадает
// с порядком очереди независимо от порядка завершения загрузок.
func (c *Coordinator) UploadAll(ctx context.Context, owner model.OwnerRef) *UploadResult {
	pending := c.store.Pending(owner)
	if len(pending) == 0 {
		return &UploadResult{}
	}

	type outcome struct {
		attachment *model.Attachment
		err        error
	}
	outcomes := make([]outcome, len(pending))

	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(i int, file StagedFile) {
			defer wg.Done()

			attachment, err := c.transfer.Upload(ctx, file, owner)
			if err != nil {
				outcomes[i] = outcome{err: err}
				return
			}

			c.store.RecordPersisted(attachment)
			outcomes[i] = outcome{attachment: attachment}
		}(i, pending[i])
	}
	wg.Wait()

	result := &UploadResult{}
	for i, out := range outcomes {
		if out.err != nil {
			result.Failed = append(result.Failed, UploadFailure{File: pending[i], Err: out.err})
			continue
		}
		result.Succeeded = append(result.Succeeded, *out.attachment)
	}

	log.Printf("[Coordinator] загружено %d из %d файлов", len(result.Succeeded), len(pending))

	return result
}
