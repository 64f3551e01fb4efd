// Package ledger — service.go содержит бизнес-логику баланса:
// снимки, проверку платёжеспособности, бонусы, лидерборд.
package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/common"
)

// Service управляет балансом скрапов.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис баланса.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetBalance возвращает текущий снимок баланса пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*Snapshot, error) {
	return s.repo.Snapshot(ctx, userID)
}

// CanAfford проверяет платёжеспособность внутри открытой транзакции.
// Возвращает снимок и типизированную ошибку INSUFFICIENT_FUNDS,
// если баланс меньше cost.
func (s *Service) CanAfford(ctx context.Context, tx pgx.Tx, userID int64, cost int64) (*Snapshot, error) {
	snap, err := s.repo.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Balance < cost {
		return snap, common.ErrInsufficientFunds(cost, snap.Balance)
	}
	return snap, nil
}

// SnapshotTx возвращает снимок баланса внутри открытой транзакции
// без проверки платёжеспособности (например, после возврата средств).
func (s *Service) SnapshotTx(ctx context.Context, tx pgx.Tx, userID int64) (*Snapshot, error) {
	return s.repo.SnapshotTx(ctx, tx, userID)
}

// GrantBonus начисляет ручной бонус участнику.
func (s *Service) GrantBonus(ctx context.Context, userID, amount, grantedBy int64, reason string) error {
	if amount <= 0 {
		return common.ErrInvalidInput("сумма бонуса должна быть положительной")
	}
	if err := s.repo.InsertBonus(ctx, &Bonus{
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		GrantedBy: grantedBy,
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"amount":     amount,
		"granted_by": grantedBy,
	}).Info("Начислен бонус")
	return nil
}

// Leaderboard возвращает топ участников по заработанным скрапам.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.repo.Leaderboard(ctx, limit)
}
