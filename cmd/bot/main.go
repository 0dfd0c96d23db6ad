package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sticks-bot/internal/adapters/bot"
	"sticks-bot/internal/adapters/chart"
	"sticks-bot/internal/adapters/participants"
	"sticks-bot/internal/adapters/repo"
	"sticks-bot/internal/adapters/sheets"
	"sticks-bot/internal/adapters/telegram"
	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/cache"
	"sticks-bot/internal/infra/config"
	"sticks-bot/internal/infra/db"
	httpinfra "sticks-bot/internal/infra/http"
	"sticks-bot/internal/infra/log"
	"sticks-bot/internal/infra/metrics"
	"sticks-bot/internal/usecase/monitor"
	"sticks-bot/internal/usecase/notify"
	"sticks-bot/internal/usecase/poll"
	"sticks-bot/internal/usecase/subscriptions"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	botAPI.Debug = cfg.Telegram.Debug
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("авторизация в Telegram выполнена")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("нет подключения к Redis")
		}
		defer redisClient.Close()
	}

	var snapshotCache domain.SnapshotCache = cache.NewMemory()
	if cfg.Sheets.CacheBackend == "redis" {
		snapshotCache = cache.NewRedis(redisClient, cfg.Sheets.CacheRedisKey)
	}

	sheetsService, err := sheets.NewService(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось инициализировать Google Sheets")
	}
	source := sheets.New(sheetsService, snapshotCache, sheets.Options{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		Range:         cfg.Sheets.Range,
		NameHeader:    cfg.Sheets.NameHeader,
		CountHeader:   cfg.Sheets.CountHeader,
		CacheTTL:      cfg.Sheets.CacheTTL,
	}, logger)

	var store domain.SubscriberStore
	switch cfg.Subscribers.Backend {
	case "redis":
		store = repo.NewRedisStore(redisClient, cfg.Subscribers.RedisKey)
	case "postgres":
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
		}
		store = pg
	default:
		store = repo.NewFileStore(cfg.Subscribers.File)
	}
	registry := subscriptions.Load(ctx, store, component(logger, "subscriptions"))

	directory, err := participants.LoadFile(cfg.Poll.ParticipantsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.Poll.ParticipantsFile).Msg("не удалось загрузить список участников")
	}

	messenger := telegram.NewClient(botAPI)
	renderer := chart.New(cfg.Chart.URL,
		chart.WithSize(cfg.Chart.Width, cfg.Chart.Height),
		chart.WithTimeout(cfg.Chart.Timeout),
	)
	notifier := notify.NewNotifier(messenger, registry, component(logger, "notify"))
	monitorService := monitor.NewService(source, notifier, registry, cfg.Monitor.Interval, component(logger, "monitor"))
	pollService := poll.NewService(directory, cfg.Poll.MinHour, cfg.Poll.MaxHour, cfg.Poll.MinuteStep, time.Now)

	handler := bot.NewHandler(bot.Deps{
		Messenger:    messenger,
		Source:       source,
		Chart:        renderer,
		Subscribers:  registry,
		Monitor:      monitorService,
		Polls:        pollService,
		Participants: directory,
	}, logger)

	if err := messenger.RegisterCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("не удалось зарегистрировать меню команд")
	}
	if registry.Size() > 0 {
		monitorService.Start(ctx)
	}

	server := httpinfra.NewServer(logger)
	switch cfg.Telegram.Mode {
	case "webhook":
		server.MountWebhook(cfg.Telegram.WebhookPath, handler)
		if err := messenger.SetWebhook(ctx, cfg.Telegram.WebhookURL); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
	default:
		if err := messenger.DeleteWebhook(ctx); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		go runPolling(ctx, botAPI, handler, logger)
	}

	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()
	logger.Info().Str("mode", cfg.Telegram.Mode).Int("subscribers", registry.Size()).Msg("бот запущен")

	<-ctx.Done()
	logger.Info().Msg("получен сигнал остановки, завершаю работу")
	monitorService.Stop()
	botAPI.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ошибка остановки HTTP сервера")
	}
}

// runPolling получает апдейты long polling и обрабатывает их по одному.
func runPolling(ctx context.Context, botAPI *tgbotapi.BotAPI, handler *bot.Handler, logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)
	logger.Info().Msg("long polling запущен")
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			handler.HandleUpdate(ctx, upd)
		}
	}
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
