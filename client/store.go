package client

import (
	"sync"

	"infoclass-files/internal/model"
)

// StagedFile : выбранный пользователем файл, ещё не загруженный на сервер
type StagedFile struct {
	Path      string
	Name      string
	SizeBytes int64
}

// Rejected : файл, не прошедший локальную валидацию
type Rejected struct {
	File   StagedFile
	Reason RejectReason
}

// Item : элемент списка вложений владельца, заполнено ровно одно из полей
type Item struct {
	Staged    *StagedFile
	Persisted *model.Attachment
}

// Event : уведомление об изменении состояния владельца
type Event struct {
	Owner model.OwnerRef
}

// Store : единственный источник истины о вложениях на клиенте.
// Держит очередь ожидающих загрузки файлов и уже сохранённые вложения
// по каждому владельцу. Координатор, сервис предпросмотра и резолвер
// меняют состояние только через его операции.
type Store struct {
	mu           sync.Mutex
	maxFiles     int
	maxSizeBytes int64

	staged    map[string][]StagedFile
	persisted map[string][]model.Attachment

	subscribers []func(Event)
}

func NewStore(maxFiles int, maxSizeBytes int64) *Store {
	return &Store{
		maxFiles:     maxFiles,
		maxSizeBytes: maxSizeBytes,
		staged:       make(map[string][]StagedFile),
		persisted:    make(map[string][]model.Attachment),
	}
}

// Subscribe : подписывает обработчик на изменения состояния
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(owner model.OwnerRef) {
	s.mu.Lock()
	subscribers := make([]func(Event), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(Event{Owner: owner})
	}
}

// Stage : локальная валидация выбранных файлов, без сетевых вызовов.
// Принятые файлы попадают в очередь загрузки в порядке выбора,
// отклонённые возвращаются с причиной TooManyFiles или FileTooLarge.
func (s *Store) Stage(files []StagedFile, owner model.OwnerRef) (accepted []StagedFile, rejected []Rejected) {
	s.mu.Lock()

	key := owner.String()
	current := len(s.staged[key]) + len(s.persisted[key])

	for _, file := range files {
		if file.SizeBytes > s.maxSizeBytes {
			rejected = append(rejected, Rejected{File: file, Reason: ReasonFileTooLarge})
			continue
		}
		if current+len(accepted) >= s.maxFiles {
			rejected = append(rejected, Rejected{File: file, Reason: ReasonTooManyFiles})
			continue
		}
		accepted = append(accepted, file)
	}

	s.staged[key] = append(s.staged[key], accepted...)
	s.mu.Unlock()

	if len(accepted) > 0 {
		s.notify(owner)
	}
	return accepted, rejected
}

// Pending : очередь ожидающих загрузки файлов владельца
func (s *Store) Pending(owner model.OwnerRef) []StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]StagedFile, len(s.staged[owner.String()]))
	copy(pending, s.staged[owner.String()])
	return pending
}

// RemoveStaged : убирает файл из очереди загрузки, например после отказа от повтора
func (s *Store) RemoveStaged(owner model.OwnerRef, name string) {
	s.mu.Lock()

	key := owner.String()
	queue := s.staged[key]
	for i := range queue {
		if queue[i].Name == name {
			s.staged[key] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(owner)
}

// RecordPersisted : переносит файл из очереди загрузки в сохранённые.
// Идемпотентна: повторный вызов с тем же id ничего не меняет.
func (s *Store) RecordPersisted(attachment *model.Attachment) {
	owner := attachment.Owner()

	s.mu.Lock()
	key := owner.String()

	for _, existing := range s.persisted[key] {
		if existing.UUID == attachment.UUID {
			s.mu.Unlock()
			return
		}
	}

	// убираем соответствующий файл из очереди по имени
	queue := s.staged[key]
	for i := range queue {
		if queue[i].Name == attachment.FilenameOriginal {
			s.staged[key] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}

	s.persisted[key] = append(s.persisted[key], *attachment)
	s.mu.Unlock()

	s.notify(owner)
}

// RecordDeleted : убирает вложение из того списка, где оно находится.
// Отсутствие id не ошибка: подтверждение удаления может прийти позже
// локального удаления.
func (s *Store) RecordDeleted(attachmentUUID string) {
	s.mu.Lock()

	var owner model.OwnerRef
	found := false
	for key, bucket := range s.persisted {
		for i := range bucket {
			if bucket[i].UUID == attachmentUUID {
				owner = bucket[i].Owner()
				s.persisted[key] = append(bucket[:i:i], bucket[i+1:]...)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.notify(owner)
	}
}

// Relink : переносит сохранённое вложение из непривязанных к новому владельцу
func (s *Store) Relink(attachmentUUID string, owner model.OwnerRef) {
	s.mu.Lock()

	pendingKey := model.OwnerRef{}.String()
	bucket := s.persisted[pendingKey]
	for i := range bucket {
		if bucket[i].UUID == attachmentUUID {
			attachment := bucket[i]
			attachment.SetOwner(owner)
			s.persisted[pendingKey] = append(bucket[:i:i], bucket[i+1:]...)
			s.persisted[owner.String()] = append(s.persisted[owner.String()], attachment)
			break
		}
	}
	s.mu.Unlock()

	s.notify(owner)
}

// Ownerless : сохранённые, но не привязанные ни к кому вложения
func (s *Store) Ownerless() []model.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.persisted[model.OwnerRef{}.String()]
	orphans := make([]model.Attachment, len(bucket))
	copy(orphans, bucket)
	return orphans
}

// ListFor : вложения владельца для отображения, сначала очередь загрузки,
// затем сохранённые, каждые в порядке добавления
func (s *Store) ListFor(owner model.OwnerRef) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.String()
	items := make([]Item, 0, len(s.staged[key])+len(s.persisted[key]))

	for i := range s.staged[key] {
		staged := s.staged[key][i]
		items = append(items, Item{Staged: &staged})
	}
	for i := range s.persisted[key] {
		persisted := s.persisted[key][i]
		items = append(items, Item{Persisted: &persisted})
	}

	return items
}
