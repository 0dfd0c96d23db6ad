package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sticks-bot/internal/adapters/participants"
	"sticks-bot/internal/domain"
	"sticks-bot/internal/usecase/poll"
	"sticks-bot/internal/usecase/stats"
	"sticks-bot/internal/usecase/subscriptions"
)

type sentMessage struct {
	chatID int64
	text   string
	opts   domain.SendOptions
}

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
}

type fakeMessenger struct {
	sent    []sentMessage
	edits   []editedMessage
	images  int
	editErr error
	nextID  int
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, opts domain.SendOptions) (int, error) {
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, chatID int64, messageID int, text string, _ domain.SendOptions) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeMessenger) SendImage(context.Context, int64, string, []byte) error {
	f.images++
	return nil
}

func (f *fakeMessenger) texts() []string {
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.text
	}
	return out
}

type fakeSource struct {
	snapshot  domain.Snapshot
	fetchErr  error
	updateErr error
	updated   map[string]int
	panicOn   bool
}

func (f *fakeSource) FetchSnapshot(context.Context, bool) (domain.Snapshot, error) {
	if f.panicOn {
		panic("boom")
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.snapshot, nil
}

func (f *fakeSource) FindByName(_ context.Context, name string) (domain.Record, error) {
	for _, r := range f.snapshot {
		if r.Name == name {
			return r, nil
		}
	}
	return domain.Record{}, fmt.Errorf("%q: %w", name, domain.ErrNotFound)
}

func (f *fakeSource) UpdateCount(_ context.Context, name string, count int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]int)
	}
	f.updated[name] = count
	return nil
}

type fakeChart struct {
	records []domain.Record
}

func (f *fakeChart) RenderBarChart(_ context.Context, records []domain.Record) ([]byte, error) {
	f.records = records
	return []byte("PNG"), nil
}

type fakeMonitor struct {
	subs    interface{ Size() int }
	running bool
	starts  int
	stops   int
}

func (f *fakeMonitor) Start(context.Context) { f.running = true; f.starts++ }

func (f *fakeMonitor) EnsureRunning(ctx context.Context) bool {
	if f.running {
		return false
	}
	f.Start(ctx)
	return true
}

func (f *fakeMonitor) StopIfIdle() bool {
	if !f.running || f.subs.Size() > 0 {
		return false
	}
	f.running = false
	f.stops++
	return true
}

type memStore struct {
	ids []int64
}

func (m *memStore) Load(context.Context) ([]int64, error) { return m.ids, nil }
func (m *memStore) Save(_ context.Context, ids []int64) error {
	m.ids = append([]int64(nil), ids...)
	return nil
}

type env struct {
	h       *Handler
	out     *fakeMessenger
	source  *fakeSource
	chart   *fakeChart
	monitor *fakeMonitor
	store   *memStore
	subs    *subscriptions.Registry
	polls   *poll.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir, err := participants.New([]participants.Entry{
		{Name: "Аня", Usernames: []string{"anya"}},
		{Name: "Боря", Usernames: []string{"borya"}},
		{Name: "Вова", UserIDs: []int64{3}},
	})
	require.NoError(t, err)

	e := &env{
		out: &fakeMessenger{},
		source: &fakeSource{snapshot: domain.Snapshot{
			{Name: "Аня", Count: 1},
			{Name: "Боря", Count: 4},
			{Name: "Правила", Count: 0},
		}},
		chart:   &fakeChart{},
		monitor: &fakeMonitor{},
		store:   &memStore{},
		polls:   poll.NewService(dir, 16, 23, 5, nil),
	}
	e.subs = subscriptions.Load(context.Background(), e.store, zerolog.Nop())
	e.monitor.subs = e.subs
	e.h = NewHandler(Deps{
		Messenger:    e.out,
		Source:       e.source,
		Chart:        e.chart,
		Subscribers:  e.subs,
		Monitor:      e.monitor,
		Polls:        e.polls,
		Participants: dir,
	}, zerolog.Nop())
	return e
}

var msgSeq int

func (e *env) send(chatID int64, username, text string) int {
	msgSeq++
	e.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: msgSeq,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: int64(len(username)) + 100, UserName: username},
	}})
	return msgSeq
}

func TestStartAndUnknown(t *testing.T) {
	e := newEnv(t)

	e.send(1, "anya", "/start")
	e.send(1, "anya", "/nope")
	e.send(1, "anya", "/nope 19:00")
	e.send(1, "anya", "просто текст")

	assert.Equal(t, []string{stats.Welcome, stats.UnknownCommand}, e.out.texts())
}

func TestCommandWithBotMention(t *testing.T) {
	e := newEnv(t)

	e.send(1, "anya", "/rules@sticks_bot")
	require.Len(t, e.out.sent, 1)
	assert.Equal(t, stats.Rules, e.out.sent[0].text)
	assert.Equal(t, "HTML", e.out.sent[0].opts.ParseMode)
}

func TestStats(t *testing.T) {
	e := newEnv(t)

	e.send(1, "anya", "/stats")
	require.Len(t, e.out.sent, 2)
	assert.Contains(t, e.out.sent[1].text, "🥇 <b>Боря</b>: 4 палок")
	assert.NotContains(t, e.out.sent[1].text, "Правила")

	e.source.fetchErr = domain.ErrDataUnavailable
	e.send(1, "anya", "/stats")
	assert.Contains(t, e.out.sent[3].text, "Ошибка при получении статистики")
}

func TestChart(t *testing.T) {
	e := newEnv(t)

	e.send(1, "anya", "/chart")
	assert.Equal(t, 1, e.out.images)
	assert.Equal(t, []domain.Record{{Name: "Боря", Count: 4}, {Name: "Аня", Count: 1}}, e.chart.records)
}

func TestSticks(t *testing.T) {
	e := newEnv(t)

	e.send(1, "stranger", "/sticks Аня 3")
	e.send(1, "anya", "/sticks")
	e.send(1, "anya", "/палки Аня минус")
	e.send(1, "anya", "/sticks Аня -1")
	e.send(1, "anya", "/stick Гена 2")
	require.Len(t, e.out.sent, 5)
	assert.Contains(t, e.out.sent[0].text, "только участники")
	assert.Equal(t, stats.SticksUsage, e.out.sent[1].text)
	assert.Contains(t, e.out.sent[2].text, "положительным числом")
	assert.Contains(t, e.out.sent[3].text, "положительным числом")
	assert.Contains(t, e.out.sent[4].text, `"Гена" не найден`)
	assert.Empty(t, e.source.updated)

	e.send(1, "anya", "/sticks Аня 3")
	assert.Equal(t, map[string]int{"Аня": 3}, e.source.updated)
	require.Len(t, e.out.sent, 7)
	assert.Equal(t, "✅ Обновлено количество палок для Аня: 3", e.out.sent[5].text)
	assert.Contains(t, e.out.sent[6].text, "Статистика по палочникам")

	e.source.updateErr = fmt.Errorf("write: %w", domain.ErrPermissionDenied)
	e.send(1, "anya", "/sticks Боря 1")
	assert.Equal(t, "❌ Ошибка: нет прав на редактирование таблицы", e.out.sent[7].text)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	e := newEnv(t)

	e.send(10, "anya", "/subscribe")
	require.Len(t, e.out.sent, 2)
	assert.Contains(t, e.out.sent[0].text, "успешно подписались")
	assert.Contains(t, e.out.sent[1].text, "Тестовое уведомление")
	assert.Equal(t, 1, e.monitor.starts)
	assert.Equal(t, []int64{10}, e.store.ids)

	e.send(10, "anya", "/subscribe")
	assert.Contains(t, e.out.sent[2].text, "уже подписаны")
	assert.Equal(t, 1, e.monitor.starts)

	e.send(10, "anya", "/unsubscribe")
	assert.Contains(t, e.out.sent[3].text, "успешно отписались")
	assert.Equal(t, 1, e.monitor.stops)
	assert.Empty(t, e.store.ids)

	e.send(10, "anya", "/unsubscribe")
	assert.Contains(t, e.out.sent[4].text, "не подписаны")
}

func TestUnsubscribeKeepsMonitorForOtherChats(t *testing.T) {
	e := newEnv(t)

	e.send(10, "anya", "/subscribe")
	e.send(11, "borya", "/subscribe")
	assert.Equal(t, 1, e.monitor.starts)

	e.send(10, "anya", "/unsubscribe")
	assert.True(t, e.monitor.running)
	assert.Equal(t, 0, e.monitor.stops)
}

func TestPollIgnoresStrangers(t *testing.T) {
	e := newEnv(t)

	e.send(5, "stranger", "/time")
	assert.Empty(t, e.out.sent)
	_, ok := e.polls.Poll(5)
	assert.False(t, ok)
}

func TestPollFlow(t *testing.T) {
	e := newEnv(t)

	e.send(5, "anya", "/results")
	assert.Contains(t, e.out.sent[0].text, "Активного опроса нет")

	e.send(5, "anya", "/time")
	require.Len(t, e.out.sent, 2)
	assert.Contains(t, e.out.sent[1].text, "Во сколько играем?")
	p, ok := e.polls.Poll(5)
	require.True(t, ok)
	assert.Equal(t, 2, p.MessageID)

	voteID := e.send(5, "borya", "16:03")
	require.Len(t, e.out.sent, 3)
	assert.Contains(t, e.out.sent[2].text, "кратны 5")
	assert.Equal(t, voteID, e.out.sent[2].opts.ReplyTo)

	e.send(5, "stranger", "19:30")
	require.Len(t, e.out.sent, 3)

	voteID = e.send(5, "borya", "давайте в 19:30")
	require.Len(t, e.out.edits, 1)
	assert.Equal(t, 2, e.out.edits[0].messageID)
	assert.Contains(t, e.out.edits[0].text, "<b>19:30</b> (1): Боря")
	require.Len(t, e.out.sent, 4)
	assert.Contains(t, e.out.sent[3].text, "Боря, ваш голос за <b>19:30</b> учтён")
	assert.Equal(t, voteID, e.out.sent[3].opts.ReplyTo)

	e.send(5, "borya", "/time")
	assert.Contains(t, e.out.sent[4].text, "Опрос уже активен")
	p, _ = e.polls.Poll(5)
	assert.Equal(t, map[string]string{"Боря": "19:30"}, p.Votes)
}

func TestPollEditFallback(t *testing.T) {
	e := newEnv(t)
	e.send(5, "anya", "/time")
	e.out.editErr = errors.New("message to edit not found")

	e.send(5, "anya", "20:00")
	require.Len(t, e.out.sent, 3)
	assert.Contains(t, e.out.sent[1].text, "<b>20:00</b> (1): Аня")
	assert.Contains(t, e.out.sent[2].text, "учтён")

	p, _ := e.polls.Poll(5)
	assert.Equal(t, 2, p.MessageID)
}

func TestPanicIsRecoveredAndMonitorResumed(t *testing.T) {
	e := newEnv(t)
	e.send(10, "anya", "/subscribe")
	e.monitor.running = false
	e.source.panicOn = true

	assert.NotPanics(t, func() { e.send(10, "anya", "/stats") })
	assert.Equal(t, 2, e.monitor.starts)
}
