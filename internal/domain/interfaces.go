package domain

import (
	"context"
	"time"
)

// DataSource читает и изменяет таблицу с палками.
type DataSource interface {
	FetchSnapshot(ctx context.Context, useCache bool) (Snapshot, error)
	FindByName(ctx context.Context, name string) (Record, error)
	UpdateCount(ctx context.Context, name string, count int) error
}

// SnapshotCache хранит последний прочитанный снимок таблицы.
type SnapshotCache interface {
	Get(ctx context.Context) (Snapshot, time.Time, bool, error)
	Set(ctx context.Context, snapshot Snapshot, fetchedAt time.Time) error
	Clear(ctx context.Context) error
}

// SendOptions задаёт параметры отправки сообщения.
type SendOptions struct {
	ParseMode string
	ReplyTo   int
}

// Messenger отправляет сообщения в мессенджер.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error
	SendImage(ctx context.Context, chatID int64, name string, image []byte) error
}

// ChartRenderer строит изображение столбчатой диаграммы.
type ChartRenderer interface {
	RenderBarChart(ctx context.Context, records []Record) ([]byte, error)
}

// SubscriberStore сохраняет список подписанных чатов.
type SubscriberStore interface {
	Load(ctx context.Context) ([]int64, error)
	Save(ctx context.Context, chatIDs []int64) error
}

// ParticipantDirectory сопоставляет автора сообщения с именем участника.
type ParticipantDirectory interface {
	Resolve(id Identity) (string, bool)
	Participants() []string
}
