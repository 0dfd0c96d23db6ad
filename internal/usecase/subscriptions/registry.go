package subscriptions

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

// Registry хранит множество чатов, подписанных на уведомления. Каждое изменение
// синхронно сохраняется в хранилище целиком; ошибка сохранения не откатывает изменение
// в памяти.
type Registry struct {
	store domain.SubscriberStore
	log   zerolog.Logger

	// writeMu упорядочивает запись в хранилище, чтобы более старый список
	// не перезаписал более новый.
	writeMu sync.Mutex
	mu      sync.RWMutex
	ids     map[int64]struct{}
}

// Load читает подписчиков из хранилища. Отсутствующее или повреждённое хранилище
// считается пустым и сразу перезаписывается.
func Load(ctx context.Context, store domain.SubscriberStore, log zerolog.Logger) *Registry {
	r := &Registry{store: store, log: log, ids: make(map[int64]struct{})}
	ids, err := store.Load(ctx)
	switch {
	case err == nil:
		for _, id := range ids {
			r.ids[id] = struct{}{}
		}
		r.log.Info().Int("count", len(r.ids)).Msg("загружены подписчики")
	case errors.Is(err, domain.ErrStoreMissing), errors.Is(err, domain.ErrStoreCorrupt):
		r.log.Warn().Err(err).Msg("хранилище подписчиков не прочитано, начинаем с пустого списка")
		r.persist(ctx, nil)
	default:
		r.log.Error().Err(err).Msg("не удалось загрузить подписчиков")
	}
	metrics.Subscribers.Set(float64(len(r.ids)))
	return r
}

// Add добавляет чат. Возвращает false, если чат уже подписан.
func (r *Registry) Add(ctx context.Context, chatID int64) bool {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if _, ok := r.ids[chatID]; ok {
		r.mu.Unlock()
		return false
	}
	r.ids[chatID] = struct{}{}
	snapshot := r.sortedLocked()
	r.mu.Unlock()

	r.persist(ctx, snapshot)
	return true
}

// Remove удаляет чат. Возвращает false, если чат не был подписан.
func (r *Registry) Remove(ctx context.Context, chatID int64) bool {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if _, ok := r.ids[chatID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.ids, chatID)
	snapshot := r.sortedLocked()
	r.mu.Unlock()

	r.persist(ctx, snapshot)
	return true
}

// Evict удаляет пачку чатов одной записью в хранилище и возвращает число удалённых.
func (r *Registry) Evict(ctx context.Context, chatIDs []int64) int {
	if len(chatIDs) == 0 {
		return 0
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	removed := 0
	for _, id := range chatIDs {
		if _, ok := r.ids[id]; ok {
			delete(r.ids, id)
			removed++
		}
	}
	snapshot := r.sortedLocked()
	r.mu.Unlock()

	if removed > 0 {
		r.persist(ctx, snapshot)
	}
	return removed
}

// Has сообщает, подписан ли чат.
func (r *Registry) Has(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[chatID]
	return ok
}

// Size возвращает количество подписчиков.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// All возвращает подписчиков в порядке возрастания идентификатора.
func (r *Registry) All() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

func (r *Registry) sortedLocked() []int64 {
	ids := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) persist(ctx context.Context, ids []int64) {
	if ids == nil {
		ids = []int64{}
	}
	metrics.Subscribers.Set(float64(len(ids)))
	if err := r.store.Save(ctx, ids); err != nil {
		r.log.Error().Err(err).Int("count", len(ids)).Msg("не удалось сохранить подписчиков")
		return
	}
	r.log.Debug().Int("count", len(ids)).Msg("подписчики сохранены")
}
