// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасный тик выплат
// и периодический синк часов из тайм-трекера.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/features/members"
	"serotonyl.ru/scrapyard/internal/features/payout"
	"serotonyl.ru/scrapyard/internal/features/projects"
	"serotonyl.ru/scrapyard/internal/timetracking"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	payout       *payout.Service
	projects     *projects.Service
	members      *members.Service
	provider     timetracking.Provider
	syncInterval time.Duration
}

// NewScheduler создаёт планировщик задач в заданном часовом поясе.
func NewScheduler(
	timezone string,
	payoutService *payout.Service,
	projectService *projects.Service,
	memberService *members.Service,
	provider timetracking.Provider,
	syncInterval time.Duration,
) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", timezone).Warn("Не удалось загрузить часовой пояс, используем UTC")
		loc = time.UTC
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		payout:       payoutService,
		projects:     projectService,
		members:      memberService,
		provider:     provider,
		syncInterval: syncInterval,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежечасный тик выплат: сам сервис решает, попали ли мы в окно
	// цикла и не платили ли уже в этом цикле.
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Тик цикла выплат")
		s.payout.RunScheduled(ctx)
	})

	// Периодический синк часов из тайм-трекера
	if s.provider != nil {
		schedule := fmt.Sprintf("@every %s", s.syncInterval)
		s.cron.AddFunc(schedule, func() {
			log.Debug("[CRON] Синк часов из тайм-трекера")
			if err := s.syncHours(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка синка часов")
			}
		})
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик, дожидаясь активных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// syncHours подтягивает суммы секунд по сессиям каждого участника
// и пересчитывает сырые часы его проектов.
// Ошибка по одному участнику не прерывает синк остальных.
func (s *Scheduler) syncHours(ctx context.Context) error {
	ids, err := s.members.ExternalIDs(ctx)
	if err != nil {
		return err
	}

	for userID, externalID := range ids {
		totals, err := s.provider.TotalsForUser(ctx, externalID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("[CRON] Не удалось получить часы участника")
			continue
		}
		if err := s.projects.SyncUserHours(ctx, userID, totals); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("[CRON] Не удалось обновить часы участника")
		}
	}
	return nil
}
