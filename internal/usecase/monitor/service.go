package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
	"sticks-bot/internal/usecase/changes"
	"sticks-bot/internal/usecase/notify"
)

// DefaultInterval — период проверки таблицы по умолчанию.
const DefaultInterval = 15 * time.Second

// Source отдаёт свежий снимок таблицы.
type Source interface {
	FetchSnapshot(ctx context.Context, useCache bool) (domain.Snapshot, error)
}

// Notifier рассылает изменения подписчикам.
type Notifier interface {
	Ready() bool
	Notify(ctx context.Context, list []domain.Change) notify.Report
}

// Subscribers сообщает количество подписчиков.
type Subscribers interface {
	Size() int
}

// Service периодически перечитывает таблицу и рассылает изменения.
// Цикл работает, только пока есть подписчики.
type Service struct {
	source   Source
	notifier Notifier
	subs     Subscribers
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	last    domain.Snapshot
	hasLast bool

	loopMu sync.Mutex
	cancel context.CancelFunc

	inFlight atomic.Bool
}

// NewService создаёт сервис мониторинга.
func NewService(source Source, notifier Notifier, subs Subscribers, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{source: source, notifier: notifier, subs: subs, interval: interval, log: log}
}

// Start запускает цикл проверки. Повторный вызов перезапускает таймер.
// Первая проверка выполняется сразу.
func (s *Service) Start(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	s.startLocked(ctx)
}

// EnsureRunning запускает цикл, если он ещё не работает. Работающий цикл не трогает.
func (s *Service) EnsureRunning(ctx context.Context) bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.cancel != nil {
		return false
	}
	s.startLocked(ctx)
	return true
}

// Stop отменяет будущие проверки. Уже идущая проверка доработает до конца.
func (s *Service) Stop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	s.stopLocked()
}

// StopIfIdle останавливает цикл, если подписчиков не осталось. Проверка количества
// и остановка выполняются под одной блокировкой с EnsureRunning.
func (s *Service) StopIfIdle() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.subs.Size() > 0 {
		return false
	}
	return s.stopLocked()
}

func (s *Service) startLocked(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(loopCtx)
	s.log.Info().Dur("interval", s.interval).Msg("мониторинг изменений запущен")
}

func (s *Service) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.log.Info().Msg("мониторинг изменений остановлен")
	return true
}

// Running сообщает, запущен ли цикл.
func (s *Service) Running() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.cancel != nil
}

// Baseline возвращает снимок, с которым сравнивается следующая проверка.
func (s *Service) Baseline() (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(domain.Snapshot(nil), s.last...), s.hasLast
}

func (s *Service) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.ObserveCycle("overlap")
		s.log.Warn().Msg("предыдущая проверка ещё не завершилась, пропускаем тик")
		return
	}
	defer s.inFlight.Store(false)
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveCycle("panic")
			s.log.Error().Interface("panic", r).Msg("паника в цикле мониторинга")
		}
	}()

	if err := s.RunCycle(context.WithoutCancel(ctx)); err != nil {
		s.log.Error().Err(err).Msg("ошибка при проверке обновлений")
	}
	s.StopIfIdle()
}

// RunCycle выполняет одну проверку: свежее чтение таблицы, сравнение с сохранённым
// снимком и рассылку. Первая проверка только запоминает снимок.
func (s *Service) RunCycle(ctx context.Context) error {
	log := s.log.With().Str("cycle_id", uuid.NewString()).Logger()
	if !s.notifier.Ready() {
		metrics.ObserveCycle("skipped")
		log.Debug().Msg("пропуск проверки обновлений: нет бота или подписчиков")
		return nil
	}

	snapshot, err := s.source.FetchSnapshot(ctx, false)
	if err != nil {
		metrics.ObserveCycle("error")
		return fmt.Errorf("получение данных: %w", err)
	}
	if dups := changes.Duplicates(snapshot); len(dups) > 0 {
		log.Warn().Strs("names", dups).Msg("в таблице повторяются имена, учитывается последнее значение")
	}

	s.mu.Lock()
	if !s.hasLast {
		s.last = snapshot
		s.hasLast = true
		s.mu.Unlock()
		metrics.ObserveCycle("baseline")
		log.Debug().Int("rows", len(snapshot)).Msg("первичное получение данных для сравнения")
		return nil
	}
	prev := s.last
	s.mu.Unlock()

	list := changes.Detect(prev, snapshot)
	if len(list) == 0 {
		metrics.ObserveCycle("unchanged")
		log.Debug().Msg("изменений не обнаружено")
		return nil
	}
	for _, c := range list {
		metrics.ObserveChange(string(c.Kind))
	}

	report := s.notifier.Notify(ctx, list)

	s.mu.Lock()
	s.last = snapshot
	s.mu.Unlock()

	metrics.ObserveCycle("changed")
	log.Info().
		Int("changes", len(list)).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Int("evicted", len(report.Evicted)).
		Msg("обнаружены изменения, уведомления отправлены")
	return nil
}
