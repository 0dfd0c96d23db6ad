package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

// Postgres хранит подписчиков в таблице subscribers.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.SubscriberStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу подписчиков, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS subscribers (
	chat_id BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "subscribers", start, err)
	if err != nil {
		return fmt.Errorf("create subscribers: %w", err)
	}
	return nil
}

// Load возвращает все подписанные чаты. Пустая таблица даёт пустой список без ошибки.
func (p *Postgres) Load(ctx context.Context) ([]int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT chat_id FROM subscribers ORDER BY chat_id`)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "load_subscribers", "subscribers", start, err)
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	metrics.ObserveNetworkRequest("postgres", "load_subscribers", "subscribers", start, err)
	if err != nil {
		return nil, fmt.Errorf("scan subscribers: %w", err)
	}
	return ids, nil
}

// Save заменяет содержимое таблицы переданным списком в одной транзакции.
func (p *Postgres) Save(ctx context.Context, chatIDs []int64) (err error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("postgres", "save_subscribers", "subscribers", start, err)
	}()

	if chatIDs == nil {
		chatIDs = []int64{}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM subscribers WHERE NOT (chat_id = ANY($1))`, chatIDs); err != nil {
		return fmt.Errorf("delete subscribers: %w", err)
	}
	batch := &pgx.Batch{}
	for _, id := range chatIDs {
		batch.Queue(`INSERT INTO subscribers (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING`, id)
	}
	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert subscribers: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
