// Package payout — repository.go помечает награды выплаченными.
package payout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository выполняет запросы выплат.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий выплат.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Result — итог одного прогона выплат.
type Result struct {
	Total    int64 // Всего выплачено скрапов
	Projects int   // Сколько проектов закрыто
	Users    int   // Скольким участникам
}

// MarkPendingPaid одним UPDATE проставляет отметку выплаты всем
// зашипленным, неудалённым, неоплаченным проектам с положительной
// наградой. Операция идемпотентна: повторный прогон не найдёт строк,
// потому что первый уже проставил scraps_paid_at.
func (r *Repository) MarkPendingPaid(ctx context.Context) (*Result, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE projects
		SET scraps_paid_at = NOW(), updated_at = NOW()
		WHERE status = 'shipped'
		  AND COALESCE(deleted, 0) = 0
		  AND scraps_paid_at IS NULL
		  AND scraps_awarded > 0
		RETURNING user_id, scraps_awarded
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выплаты: %w", err)
	}
	defer rows.Close()

	res := &Result{}
	users := make(map[int64]struct{})
	for rows.Next() {
		var userID, scraps int64
		if err := rows.Scan(&userID, &scraps); err != nil {
			return nil, fmt.Errorf("ошибка сканирования выплаты: %w", err)
		}
		res.Total += scraps
		res.Projects++
		users[userID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.Users = len(users)
	return res, nil
}
