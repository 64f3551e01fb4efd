// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы,
// обработчики и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/config"
	"serotonyl.ru/scrapyard/internal/db/postgres"
	"serotonyl.ru/scrapyard/internal/features/ledger"
	"serotonyl.ru/scrapyard/internal/features/members"
	"serotonyl.ru/scrapyard/internal/features/payout"
	"serotonyl.ru/scrapyard/internal/features/projects"
	"serotonyl.ru/scrapyard/internal/features/shop"
	"serotonyl.ru/scrapyard/internal/jobs"
	"serotonyl.ru/scrapyard/internal/notify"
	"serotonyl.ru/scrapyard/internal/server"
	"serotonyl.ru/scrapyard/internal/server/middleware"
	"serotonyl.ru/scrapyard/internal/timetracking"
)

// App содержит все компоненты приложения.
type App struct {
	Server      *server.Server
	Scheduler   *jobs.Scheduler
	DB          *pgxpool.Pool
	RateLimiter *middleware.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Нотификатор ===
	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.AnnounceChannelID)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка создания Telegram-нотификатора: %w", err)
		}
		notifier = tg
	} else {
		log.Info("Telegram-токен не задан, уведомления отключены")
	}

	// === 3. Репозитории ===
	memberRepo := members.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	projectRepo := projects.NewRepository(pool)
	shopRepo := shop.NewRepository(pool)
	payoutRepo := payout.NewRepository(pool)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	projectService := projects.NewService(projectRepo)
	shopService := shop.NewService(shopRepo, ledgerService, notifier)

	epoch, err := cfg.PayoutEpochTime()
	if err != nil {
		pool.Close()
		return nil, err
	}
	payoutService := payout.NewService(payoutRepo, projectService, notifier, epoch, cfg.PayoutCycleDays)

	// === 5. Тайм-трекинг ===
	var provider timetracking.Provider
	if cfg.HackatimeAPIToken != "" {
		provider = timetracking.NewHackatimeClient(cfg.HackatimeBaseURL, cfg.HackatimeAPIToken)
	} else {
		log.Info("Hackatime-токен не задан, синк часов отключён")
	}

	// === 6. Обработчики ===
	handlers := &server.Handlers{
		Ledger:   ledger.NewHandler(ledgerService),
		Shop:     shop.NewHandler(shopService),
		Projects: projects.NewHandler(projectService),
		Members:  members.NewHandler(memberService),
	}

	// === 7. HTTP-сервер ===
	rl := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	router := server.NewRouter(cfg, memberService, rl, handlers)
	srv := server.New(cfg, router)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(
		cfg.AppTimezone,
		payoutService, projectService, memberService,
		provider, cfg.HackatimeSyncInterval,
	)

	return &App{
		Server:      srv,
		Scheduler:   scheduler,
		DB:          pool,
		RateLimiter: rl,
	}, nil
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.RateLimiter.Close()
	a.DB.Close()
}

// runMigrations выполняет все SQL-миграции по порядку.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Members},
		{2, migration002Projects},
		{3, migration003Bonuses},
		{4, migration004Shop},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return err
		}
	}

	log.Info("Миграции применены")
	return nil
}
