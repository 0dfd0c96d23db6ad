package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN" required:"true"`
		Mode        string `envconfig:"TG_MODE" default:"polling"`
		WebhookURL  string `envconfig:"TG_WEBHOOK_URL"`
		WebhookPath string `envconfig:"TG_WEBHOOK_PATH" default:"/bot/webhook"`
		Debug       bool   `envconfig:"TG_DEBUG" default:"false"`
	} `envconfig:""`

	Sheets struct {
		SpreadsheetID   string        `envconfig:"GOOGLE_SHEET_ID" required:"true"`
		CredentialsFile string        `envconfig:"GOOGLE_CREDENTIALS_FILE" default:"credentials.json"`
		Range           string        `envconfig:"SHEET_RANGE" default:"A:B"`
		NameHeader      string        `envconfig:"SHEET_NAME_HEADER" default:"Имя"`
		CountHeader     string        `envconfig:"SHEET_COUNT_HEADER" default:"Кол-во палок"`
		CacheTTL        time.Duration `envconfig:"SHEET_CACHE_TTL" default:"10s"`
		CacheBackend    string        `envconfig:"SHEET_CACHE_BACKEND" default:"memory"`
		CacheRedisKey   string        `envconfig:"SHEET_CACHE_REDIS_KEY" default:"sticks:snapshot"`
	} `envconfig:""`

	Monitor struct {
		Interval time.Duration `envconfig:"CHECK_INTERVAL" default:"15s"`
	} `envconfig:""`

	Subscribers struct {
		Backend  string `envconfig:"SUBSCRIBERS_BACKEND" default:"file"`
		File     string `envconfig:"SUBSCRIBERS_FILE" default:"subscribers.json"`
		RedisKey string `envconfig:"SUBSCRIBERS_REDIS_KEY" default:"sticks:subscribers"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	} `envconfig:""`

	Chart struct {
		URL     string        `envconfig:"CHART_URL" default:"https://quickchart.io/chart"`
		Width   int           `envconfig:"CHART_WIDTH" default:"800"`
		Height  int           `envconfig:"CHART_HEIGHT" default:"400"`
		Timeout time.Duration `envconfig:"CHART_TIMEOUT" default:"15s"`
	} `envconfig:""`

	Poll struct {
		ParticipantsFile string `envconfig:"PARTICIPANTS_FILE" default:"participants.yaml"`
		MinHour          int    `envconfig:"POLL_MIN_HOUR" default:"16"`
		MaxHour          int    `envconfig:"POLL_MAX_HOUR" default:"23"`
		MinuteStep       int    `envconfig:"POLL_MINUTE_STEP" default:"5"`
	} `envconfig:""`
}

// Parse читает .env (если он есть) и переменные окружения.
func Parse() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("чтение .env: %w", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения и завершает процесс при ошибке.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

func (c AppConfig) validate() error {
	switch c.Telegram.Mode {
	case "polling":
	case "webhook":
		if c.Telegram.WebhookURL == "" {
			return errors.New("TG_WEBHOOK_URL обязателен в режиме webhook")
		}
	default:
		return fmt.Errorf("неизвестный TG_MODE %q", c.Telegram.Mode)
	}
	switch c.Subscribers.Backend {
	case "file":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR обязателен для SUBSCRIBERS_BACKEND=redis")
		}
	case "postgres":
		if c.PGDSN == "" {
			return errors.New("PG_DSN обязателен для SUBSCRIBERS_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("неизвестный SUBSCRIBERS_BACKEND %q", c.Subscribers.Backend)
	}
	switch c.Sheets.CacheBackend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR обязателен для SHEET_CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("неизвестный SHEET_CACHE_BACKEND %q", c.Sheets.CacheBackend)
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("CHECK_INTERVAL должен быть положительным")
	}
	if c.Poll.MinHour < 0 || c.Poll.MaxHour > 23 || c.Poll.MinHour > c.Poll.MaxHour {
		return fmt.Errorf("некорректный диапазон часов опроса %d-%d", c.Poll.MinHour, c.Poll.MaxHour)
	}
	if c.Poll.MinuteStep <= 0 || c.Poll.MinuteStep > 60 {
		return fmt.Errorf("некорректный шаг минут %d", c.Poll.MinuteStep)
	}
	return nil
}
