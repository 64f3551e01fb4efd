// Package payout — service.go запускает цикл выплат.
//
// Раз в час планировщик зовёт RunScheduled. Если сейчас первый час
// нового цикла и процесс ещё не платил в этом цикле — прогоняется
// выплата и публикуется ровно один анонс итога. Любая ошибка логируется
// и не валит процесс: следующая ежечасная проверка попробует снова.
package payout

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/features/projects"
	"serotonyl.ru/scrapyard/internal/notify"
)

// Service управляет циклами выплат.
type Service struct {
	repo     *Repository
	projects *projects.Service
	notifier notify.Notifier

	epoch    time.Time
	cycleLen time.Duration
	guard    *Guard

	// now подменяется в тестах.
	now func() time.Time
}

// NewService создаёт сервис выплат.
func NewService(repo *Repository, projectService *projects.Service, notifier notify.Notifier, epoch time.Time, cycleDays int) *Service {
	return &Service{
		repo:     repo,
		projects: projectService,
		notifier: notifier,
		epoch:    epoch,
		cycleLen: time.Duration(cycleDays) * 24 * time.Hour,
		guard:    NewGuard(),
		now:      time.Now,
	}
}

// RunScheduled — ежечасный тик планировщика.
// Ничего не делает вне окна выплат и при повторном тике в том же цикле.
func (s *Service) RunScheduled(ctx context.Context) {
	now := s.now().UTC()
	if !InPayoutWindow(now, s.epoch, s.cycleLen) {
		return
	}

	cycle := CurrentCycle(now, s.epoch, s.cycleLen)
	if !s.guard.TryMark(cycle) {
		// В этом цикле уже платили — ежечасный тик попал в то же окно
		return
	}

	// Хаускипинг перед выплатой: дубликаты одного репозитория не должны
	// быть оплачены дважды. Шаг отдельный и явно упорядоченный — его
	// ошибка не отменяет саму выплату.
	if _, err := s.projects.RevertDuplicateShips(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка отката дубликатов перед выплатой")
	}

	if err := s.PayoutPendingScraps(ctx, cycle); err != nil {
		// Отметку возвращаем: пока окно открыто, следующий тик
		// повторит выплату. Сама выплата идемпотентна.
		s.guard.Unmark(cycle)
		log.WithError(err).WithField("cycle", cycle).Error("[CRON] Ошибка цикла выплат")
	}
}

// PayoutPendingScraps закрывает все неоплаченные награды и анонсирует итог.
// Идемпотентна: повторный вызов в том же цикле не найдёт неоплаченных строк.
func (s *Service) PayoutPendingScraps(ctx context.Context, cycle int64) error {
	res, err := s.repo.MarkPendingPaid(ctx)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"cycle":    cycle,
		"total":    res.Total,
		"projects": res.Projects,
		"users":    res.Users,
	}).Info("[CRON] Цикл выплат завершён")

	if res.Projects > 0 {
		s.notifier.Notify(notify.EventPayoutCycle, map[string]any{
			"cycle": cycle,
			"total": res.Total,
			"users": res.Users,
		})
	}
	return nil
}
