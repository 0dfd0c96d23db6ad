package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

// Connect создаёт клиента Redis и проверяет соединение.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	err := client.Ping(pingCtx).Err()
	metrics.ObserveNetworkRequest("redis", "ping", addr, start, err)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCache реализует domain.SnapshotCache через Redis. Снимок общий для всех копий
// бота.
type RedisCache struct {
	client KV
	key    string
}

// KV содержит команды Redis, которыми пользуются кэш и хранилище подписчиков.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedSnapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Records   []cachedRecord `json:"records"`
}

type cachedRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewRedis создаёт кэш.
func NewRedis(client KV, key string) *RedisCache {
	return &RedisCache{client: client, key: key}
}

// Get возвращает сохранённый снимок.
func (c *RedisCache) Get(ctx context.Context) (domain.Snapshot, time.Time, bool, error) {
	start := time.Now()
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", c.key, start, nil)
		return nil, time.Time{}, false, nil
	}
	metrics.ObserveNetworkRequest("redis", "get", c.key, start, err)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var payload cachedSnapshot
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	snapshot := make(domain.Snapshot, 0, len(payload.Records))
	for _, r := range payload.Records {
		snapshot = append(snapshot, domain.Record{Name: r.Name, Count: r.Count})
	}
	return snapshot, payload.FetchedAt, true, nil
}

// Set сохраняет снимок без TTL: устаревший снимок нужен как запасной вариант.
func (c *RedisCache) Set(ctx context.Context, snapshot domain.Snapshot, fetchedAt time.Time) error {
	payload := cachedSnapshot{FetchedAt: fetchedAt, Records: make([]cachedRecord, 0, len(snapshot))}
	for _, r := range snapshot {
		payload.Records = append(payload.Records, cachedRecord{Name: r.Name, Count: r.Count})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	start := time.Now()
	err = c.client.Set(ctx, c.key, raw, 0).Err()
	metrics.ObserveNetworkRequest("redis", "set", c.key, start, err)
	return err
}

// Clear удаляет снимок.
func (c *RedisCache) Clear(ctx context.Context) error {
	start := time.Now()
	err := c.client.Del(ctx, c.key).Err()
	metrics.ObserveNetworkRequest("redis", "del", c.key, start, err)
	return err
}
