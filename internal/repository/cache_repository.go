package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"infoclass-files/config"
	"infoclass-files/internal/model"
	"infoclass-files/internal/util"
)

type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetAttachment(ctx context.Context, attachment *model.Attachment) error {
	data, err := json.Marshal(attachment)
	if err != nil {
		return util.LogError("ошибка сериализации вложения", err)
	}

	cmd := r.client.Client.Set(ctx, r.key(attachment.UUID), data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

func (r *CacheRepository) GetAttachment(ctx context.Context, uuid string) (*model.Attachment, error) {
	val, err := r.client.Client.Get(ctx, r.key(uuid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil // нет в кэше
	} else if err != nil {
		return nil, util.LogError("ошибка получения вложения из Redis", err)
	}

	var attachment model.Attachment
	if err := json.Unmarshal([]byte(val), &attachment); err != nil {
		return nil, util.LogError("ошибка десериализации вложения из кэша", err)
	}
	return &attachment, nil
}

func (r *CacheRepository) DeleteAttachment(ctx context.Context, uuid string) error {
	if err := r.client.Client.Del(ctx, r.key(uuid)).Err(); err != nil {
		return util.LogError("ошибка удаления вложения из Redis", err)
	}
	return nil
}

func (r *CacheRepository) key(uuid string) string {
	return fmt.Sprintf("attachment:%s", uuid)
}
