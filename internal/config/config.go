// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPPort         int           `envconfig:"HTTP_PORT" default:"8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"scrapyard"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"scrapyard"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Admin ---
	// Argon2id-хеш пароля админки, генерируется scripts/generate_hash.go.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Payout (циклы выплат скрапов) ---
	// Эпоха — начало нулевого цикла. Формат: 2006-01-02 (UTC).
	PayoutEpoch     string `envconfig:"PAYOUT_EPOCH" default:"2026-06-16"`
	PayoutCycleDays int    `envconfig:"PAYOUT_CYCLE_DAYS" default:"2"`

	// --- Telegram (канал анонсов) ---
	// Если токен пустой — уведомления отключены (Noop-нотификатор).
	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	AnnounceChannelID int64  `envconfig:"ANNOUNCE_CHANNEL_ID"`

	// --- Hackatime (тайм-трекинг) ---
	HackatimeBaseURL      string        `envconfig:"HACKATIME_BASE_URL" default:"https://hackatime.hackclub.com/api/v1"`
	HackatimeAPIToken     string        `envconfig:"HACKATIME_API_TOKEN"`
	HackatimeSyncInterval time.Duration `envconfig:"HACKATIME_SYNC_INTERVAL" default:"30m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// PayoutEpochTime парсит эпоху выплат. Время всегда в UTC,
// чтобы номер цикла не зависел от таймзоны сервера.
func (c *Config) PayoutEpochTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.PayoutEpoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректный PAYOUT_EPOCH %q: %w", c.PayoutEpoch, err)
	}
	return t.UTC(), nil
}

func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT должен быть в диапазоне 1..65535")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.PayoutCycleDays <= 0 {
		return fmt.Errorf("PAYOUT_CYCLE_DAYS должен быть > 0")
	}
	if _, err := c.PayoutEpochTime(); err != nil {
		return err
	}
	if c.TelegramBotToken != "" && c.AnnounceChannelID == 0 {
		return fmt.Errorf("задан TELEGRAM_BOT_TOKEN, но не задан ANNOUNCE_CHANNEL_ID")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
