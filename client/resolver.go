package client

import (
	"context"
	"fmt"
	"log"

	"infoclass-files/internal/model"
)

// AssociateFailure : исход одной неудачной привязки
type AssociateFailure struct {
	Attachment model.Attachment
	Err        error
}

// AssociateResult : итог привязки, исходы вложений независимы друг от друга
type AssociateResult struct {
	Linked []model.Attachment
	Failed []AssociateFailure
}

// Resolver : привязывает загруженные заранее вложения к созданному владельцу.
// Файлы, выбранные при составлении нового задания или объявления, загружаются
// до того как сущность получит id; после её создания резолвер переносит
// непривязанные вложения к новому владельцу.
type Resolver struct {
	store    *Store
	transfer Transfer
}

func NewResolver(store *Store, transfer Transfer) *Resolver {
	return &Resolver{store: store, transfer: transfer}
}

// Associate : привязывает все непривязанные вложения к владельцу.
// Ошибка одного вложения не блокирует остальные и не отменяет уже
// состоявшееся создание владельца: неудачные вложения остаются
// непривязанными и возвращаются по отдельности.
func (r *Resolver) Associate(ctx context.Context, owner model.OwnerRef) (*AssociateResult, error) {
	if owner.IsPending() {
		return nil, fmt.Errorf("[Resolver] владелец вложений не указан")
	}

	orphans := r.store.Ownerless()
	result := &AssociateResult{}

	for _, orphan := range orphans {
		updated, err := r.transfer.Reassociate(ctx, orphan.UUID, owner)
		if err != nil {
			result.Failed = append(result.Failed, AssociateFailure{Attachment: orphan, Err: err})
			continue
		}

		r.store.Relink(orphan.UUID, owner)
		result.Linked = append(result.Linked, *updated)
	}

	if len(orphans) > 0 {
		log.Printf("[Resolver] привязано %d из %d вложений к %s", len(result.Linked), len(orphans), owner)
	}

	return result, nil
}
