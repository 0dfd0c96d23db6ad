package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"runtime/debug"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/usecase/poll"
	"sticks-bot/internal/usecase/stats"
	"sticks-bot/internal/usecase/subscriptions"
)

const parseHTML = "HTML"

// Monitor управляет циклом проверки таблицы.
type Monitor interface {
	Start(ctx context.Context)
	EnsureRunning(ctx context.Context) bool
	StopIfIdle() bool
}

// Deps — зависимости обработчика.
type Deps struct {
	Messenger    domain.Messenger
	Source       domain.DataSource
	Chart        domain.ChartRenderer
	Subscribers  *subscriptions.Registry
	Monitor      Monitor
	Polls        *poll.Service
	Participants domain.ParticipantDirectory
}

// Handler разбирает входящие сообщения и команды бота.
type Handler struct {
	out     domain.Messenger
	source  domain.DataSource
	chart   domain.ChartRenderer
	subs    *subscriptions.Registry
	monitor Monitor
	polls   *poll.Service
	dir     domain.ParticipantDirectory
	log     zerolog.Logger
}

// NewHandler создаёт обработчик.
func NewHandler(deps Deps, log zerolog.Logger) *Handler {
	return &Handler{
		out:     deps.Messenger,
		source:  deps.Source,
		chart:   deps.Chart,
		subs:    deps.Subscribers,
		monitor: deps.Monitor,
		polls:   deps.Polls,
		dir:     deps.Participants,
		log:     log.With().Str("component", "bot").Logger(),
	}
}

// HandleUpdate обрабатывает входящий апдейт. Паника в обработке не роняет процесс:
// она логируется, а мониторинг перезапускается, если есть подписчики.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Int("update_id", upd.UpdateID).
				Msg("необработанная ошибка при обработке апдейта")
			if h.subs.Size() > 0 {
				h.monitor.Start(context.WithoutCancel(ctx))
			}
		}
	}()

	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chatID := msg.Chat.ID
	var author domain.Identity
	if msg.From != nil {
		author = domain.Identity{UserID: msg.From.ID, Username: msg.From.UserName}
	}
	h.log.Debug().Int64("chat", chatID).Str("username", author.Username).Str("text", text).Msg("получено сообщение")

	if !strings.HasPrefix(text, "/") {
		if poll.ContainsTime(text) {
			h.handleVote(ctx, msg, author, text)
		}
		return
	}

	cmd, args := parseCommand(text)
	switch cmd {
	case "/start", "/help":
		h.reply(ctx, chatID, stats.Welcome, domain.SendOptions{})
	case "/chart":
		h.handleChart(ctx, chatID)
	case "/stats":
		h.handleStats(ctx, chatID)
	case "/rules":
		h.reply(ctx, chatID, stats.Rules, domain.SendOptions{ParseMode: parseHTML})
	case "/sticks", "/stics", "/stick", "/палки":
		h.handleSticks(ctx, chatID, author, args)
	case "/subscribe":
		h.handleSubscribe(ctx, chatID)
	case "/unsubscribe":
		h.handleUnsubscribe(ctx, chatID)
	case "/time":
		h.handleStartPoll(ctx, chatID, author)
	case "/results":
		h.handleResults(ctx, chatID)
	default:
		if poll.ContainsTime(text) {
			return
		}
		h.reply(ctx, chatID, stats.UnknownCommand, domain.SendOptions{})
	}
}

// parseCommand отделяет команду от аргументов и убирает упоминание бота (/stats@bot).
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

func (h *Handler) handleChart(ctx context.Context, chatID int64) {
	h.reply(ctx, chatID, "Получаю данные из таблицы и создаю диаграмму...", domain.SendOptions{})

	snapshot, err := h.source.FetchSnapshot(ctx, true)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка получения данных для диаграммы")
		h.reply(ctx, chatID, "❌ Ошибка при создании диаграммы. Пожалуйста, попробуйте позже.", domain.SendOptions{})
		return
	}
	records := stats.Filter(snapshot)
	if len(records) == 0 {
		h.reply(ctx, chatID, stats.NoData, domain.SendOptions{})
		return
	}
	image, err := h.chart.RenderBarChart(ctx, records)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка при создании диаграммы")
		h.reply(ctx, chatID, "❌ Ошибка при создании диаграммы. Пожалуйста, попробуйте позже.", domain.SendOptions{})
		return
	}
	if err := h.out.SendImage(ctx, chatID, "chart.png", image); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить диаграмму")
	}
}

func (h *Handler) handleStats(ctx context.Context, chatID int64) {
	h.reply(ctx, chatID, "Получаю статистику по палочникам...", domain.SendOptions{})

	snapshot, err := h.source.FetchSnapshot(ctx, true)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка в получении статистики")
		h.reply(ctx, chatID, "❌ Ошибка при получении статистики. Пожалуйста, попробуйте позже.", domain.SendOptions{})
		return
	}
	h.reply(ctx, chatID, stats.FormatStats(stats.Filter(snapshot)), domain.SendOptions{ParseMode: parseHTML})
}

func (h *Handler) handleSticks(ctx context.Context, chatID int64, author domain.Identity, args []string) {
	if _, ok := h.dir.Resolve(author); !ok {
		h.reply(ctx, chatID, "⛔ Изменять количество палок могут только участники.", domain.SendOptions{})
		return
	}
	if len(args) < 2 {
		h.reply(ctx, chatID, stats.SticksUsage, domain.SendOptions{})
		return
	}
	count, err := strconv.Atoi(args[len(args)-1])
	if err != nil || count < 0 {
		h.reply(ctx, chatID, "❌ Количество палок должно быть положительным числом", domain.SendOptions{})
		return
	}
	name := strings.Join(args[:len(args)-1], " ")

	rec, err := h.source.FindByName(ctx, name)
	if err == nil {
		err = h.source.UpdateCount(ctx, rec.Name, count)
	}
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Int("count", count).Msg("ошибка при обновлении палок")
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.reply(ctx, chatID, fmt.Sprintf("❌ Пользователь \"%s\" не найден в таблице", name), domain.SendOptions{})
		case errors.Is(err, domain.ErrPermissionDenied):
			h.reply(ctx, chatID, "❌ Ошибка: нет прав на редактирование таблицы", domain.SendOptions{})
		default:
			h.reply(ctx, chatID, "❌ Ошибка при обновлении. Пожалуйста, попробуйте позже.", domain.SendOptions{})
		}
		return
	}
	h.log.Info().Str("name", rec.Name).Int("count", count).Str("by", author.Username).Msg("количество палок изменено")
	h.reply(ctx, chatID, fmt.Sprintf("✅ Обновлено количество палок для %s: %d", rec.Name, count), domain.SendOptions{})

	snapshot, err := h.source.FetchSnapshot(ctx, false)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось перечитать таблицу после обновления")
		return
	}
	if records := stats.Filter(snapshot); len(records) > 0 {
		h.reply(ctx, chatID, stats.FormatStats(records), domain.SendOptions{ParseMode: parseHTML})
	}
}

func (h *Handler) handleSubscribe(ctx context.Context, chatID int64) {
	if !h.subs.Add(ctx, chatID) {
		h.reply(ctx, chatID, "Вы уже подписаны на уведомления об изменениях в таблице.", domain.SendOptions{})
		return
	}
	h.monitor.EnsureRunning(context.WithoutCancel(ctx))
	h.reply(ctx, chatID,
		"Вы успешно подписались на уведомления об изменениях в таблице.\n"+
			"Вы будете получать уведомления, когда изменится количество палок у участников.\n"+
			"Для отмены подписки используйте команду /unsubscribe",
		domain.SendOptions{})
	h.reply(ctx, chatID,
		"🔄 <b>Тестовое уведомление</b>\n\n"+
			"Система мониторинга активирована и работает.\n"+
			"Вы будете получать уведомления при изменении данных в таблице.",
		domain.SendOptions{ParseMode: parseHTML})
	h.log.Info().Int64("chat", chatID).Int("total", h.subs.Size()).Msg("чат подписался на обновления")
}

func (h *Handler) handleUnsubscribe(ctx context.Context, chatID int64) {
	if !h.subs.Remove(ctx, chatID) {
		h.reply(ctx, chatID, "Вы не подписаны на уведомления об изменениях в таблице.", domain.SendOptions{})
		return
	}
	h.monitor.StopIfIdle()
	h.reply(ctx, chatID, "Вы успешно отписались от уведомлений об изменениях в таблице.", domain.SendOptions{})
	h.log.Info().Int64("chat", chatID).Int("total", h.subs.Size()).Msg("чат отписался от обновлений")
}

func (h *Handler) handleStartPoll(ctx context.Context, chatID int64, author domain.Identity) {
	p, err := h.polls.Open(chatID, author)
	switch {
	case errors.Is(err, poll.ErrUnknownParticipant):
		h.log.Debug().Int64("chat", chatID).Int64("user", author.UserID).Msg("опрос запрошен не участником, игнорируем")
		return
	case errors.Is(err, poll.ErrPollActive):
		h.reply(ctx, chatID, "⚠️ Опрос уже активен. Используйте /results, чтобы посмотреть голоса.", domain.SendOptions{})
		return
	case err != nil:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось создать опрос")
		return
	}

	messageID, err := h.out.SendText(ctx, chatID, poll.Render(p, h.dir.Participants()), domain.SendOptions{ParseMode: parseHTML})
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить опрос")
		return
	}
	h.polls.SetMessageID(chatID, p.ID, messageID)
	h.log.Info().Int64("chat", chatID).Str("poll_id", p.ID).Str("creator", p.Creator).Msg("опрос создан")
}

func (h *Handler) handleResults(ctx context.Context, chatID int64) {
	p, ok := h.polls.Poll(chatID)
	if !ok {
		h.reply(ctx, chatID, "Активного опроса нет. Создайте его командой /time", domain.SendOptions{})
		return
	}
	h.reply(ctx, chatID, poll.Render(p, h.dir.Participants()), domain.SendOptions{ParseMode: parseHTML})
}

func (h *Handler) handleVote(ctx context.Context, msg *tgbotapi.Message, author domain.Identity, text string) {
	chatID := msg.Chat.ID
	at, p, err := h.polls.CastVote(chatID, author, text)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, poll.ErrNoPoll), errors.Is(err, poll.ErrUnknownParticipant):
			return
		case errors.As(err, &verr):
			h.reply(ctx, chatID, "❌ "+verr.Hint, domain.SendOptions{ReplyTo: msg.MessageID})
		default:
			h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка при обработке голоса")
		}
		return
	}

	name, _ := h.dir.Resolve(author)
	h.log.Info().Int64("chat", chatID).Str("name", name).Str("time", at).Msg("голос принят")

	rendered := poll.Render(p, h.dir.Participants())
	edited := false
	if p.MessageID != 0 {
		if err := h.out.EditText(ctx, chatID, p.MessageID, rendered, domain.SendOptions{ParseMode: parseHTML}); err != nil {
			h.log.Warn().Err(err).Int64("chat", chatID).Int("message_id", p.MessageID).Msg("не удалось обновить опрос, отправляем заново")
		} else {
			edited = true
		}
	}
	if !edited {
		messageID, err := h.out.SendText(ctx, chatID, rendered, domain.SendOptions{ParseMode: parseHTML})
		if err != nil {
			h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить результаты опроса")
		} else {
			h.polls.SetMessageID(chatID, p.ID, messageID)
		}
	}

	h.reply(ctx, chatID, fmt.Sprintf("✅ %s, ваш голос за <b>%s</b> учтён", html.EscapeString(name), at),
		domain.SendOptions{ParseMode: parseHTML, ReplyTo: msg.MessageID})
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, opts domain.SendOptions) {
	if _, err := h.out.SendText(ctx, chatID, text, opts); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
	}
}
