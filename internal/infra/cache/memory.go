package cache

import (
	"context"
	"sync"
	"time"

	"sticks-bot/internal/domain"
)

// Memory хранит снимок таблицы в памяти процесса.
type Memory struct {
	mu        sync.RWMutex
	snapshot  domain.Snapshot
	fetchedAt time.Time
	ok        bool
}

// NewMemory создаёт пустой кэш.
func NewMemory() *Memory {
	return &Memory{}
}

// Get возвращает сохранённый снимок и время его получения.
func (m *Memory) Get(context.Context) (domain.Snapshot, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ok {
		return nil, time.Time{}, false, nil
	}
	return append(domain.Snapshot(nil), m.snapshot...), m.fetchedAt, true, nil
}

// Set сохраняет снимок.
func (m *Memory) Set(_ context.Context, snapshot domain.Snapshot, fetchedAt time.Time) error {
	m.mu.Lock()
	m.snapshot = append(domain.Snapshot(nil), snapshot...)
	m.fetchedAt = fetchedAt
	m.ok = true
	m.mu.Unlock()
	return nil
}

// Clear удаляет снимок.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.snapshot = nil
	m.fetchedAt = time.Time{}
	m.ok = false
	m.mu.Unlock()
	return nil
}
