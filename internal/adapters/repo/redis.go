package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/cache"
	"sticks-bot/internal/infra/metrics"
)

// RedisStore хранит подписчиков JSON-массивом под одним ключом.
type RedisStore struct {
	client cache.KV
	key    string
}

// NewRedisStore создаёт хранилище подписчиков в Redis.
func NewRedisStore(client cache.KV, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (ids []int64, err error) {
	start := time.Now()
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", s.key, start, nil)
		return nil, fmt.Errorf("%s: %w", s.key, domain.ErrStoreMissing)
	}
	metrics.ObserveNetworkRequest("redis", "get", s.key, start, err)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.key, domain.ErrStoreCorrupt, err)
	}
	return ids, nil
}

func (s *RedisStore) Save(ctx context.Context, chatIDs []int64) error {
	if chatIDs == nil {
		chatIDs = []int64{}
	}
	raw, err := json.Marshal(chatIDs)
	if err != nil {
		return fmt.Errorf("marshal subscribers: %w", err)
	}
	start := time.Now()
	err = s.client.Set(ctx, s.key, raw, 0).Err()
	metrics.ObserveNetworkRequest("redis", "set", s.key, start, err)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
