// Package projects — service.go содержит бизнес-логику проектов:
// зачёт наград, зачётные часы, синк часов из тайм-трекера,
// откат дубликатов репозиториев.
package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/common"
)

// Service управляет проектами.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис проектов.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreditAward зачитывает награду проекту при одобрении ревьюером.
// Вызывается внешним воркфлоу ревью.
func (s *Service) CreditAward(ctx context.Context, projectID, scraps int64) error {
	if scraps < 0 {
		return common.ErrInvalidInput("награда не может быть отрицательной")
	}
	err := s.repo.CreditAward(ctx, projectID, scraps)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound("проект")
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"project_id": projectID,
		"scraps":     scraps,
	}).Info("Награда зачтена")
	return nil
}

// EffectiveHours возвращает зачётные часы проекта после вычета
// пересечений сессий с более ранними шипами того же участника.
func (s *Service) EffectiveHours(ctx context.Context, projectID int64) (float64, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if p == nil || p.IsDeleted() {
		return 0, common.ErrNotFound("проект")
	}

	siblings, err := s.repo.ShippedByUser(ctx, p.UserID)
	if err != nil {
		return 0, err
	}
	return EffectiveHours(p, siblings), nil
}

// SetHoursOverride выставляет ревьюерские часы.
// Оверрайд не может превышать сырые часы из тайм-трекера.
func (s *Service) SetHoursOverride(ctx context.Context, projectID int64, hours *float64) error {
	if hours != nil && *hours < 0 {
		return common.ErrInvalidInput("часы не могут быть отрицательными")
	}

	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil || p.IsDeleted() {
		return common.ErrNotFound("проект")
	}

	if hours != nil && p.Hours != nil && *hours > *p.Hours {
		capped := *p.Hours
		hours = &capped
	}

	if err := s.repo.SetHoursOverride(ctx, projectID, hours); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrNotFound("проект")
		}
		return err
	}
	return nil
}

// SyncUserHours пересчитывает сырые часы всех проектов участника
// по суммам секунд из тайм-трекера (имя сессии → секунды).
// Проект без распознаваемых имён сессий не трогаем.
func (s *Service) SyncUserHours(ctx context.Context, userID int64, totals map[string]int64) error {
	list, err := s.repo.ByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, p := range list {
		set := ParseSessionSet(p.WorkSessions)
		if set.Empty() {
			continue
		}
		var seconds int64
		for name := range set {
			seconds += totals[name]
		}
		hours := float64(seconds) / 3600.0
		if err := s.repo.UpdateRawHours(ctx, p.ID, hours); err != nil {
			return err
		}
	}
	return nil
}

// RevertDuplicateShips откатывает шипы с повторяющимся repo_url.
// Хаускипинг перед выплатами: один и тот же код не должен быть
// оплачен дважды. Возвращает число откатанных проектов.
func (s *Service) RevertDuplicateShips(ctx context.Context) (int, error) {
	ids, err := s.repo.RevertDuplicateShips(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		log.WithField("project_ids", ids).Warn("Откатаны дубликаты шипов")
	}
	return len(ids), nil
}
