// Package ledger — repository.go агрегирует факты в снимок баланса.
// Один и тот же запрос умеет работать и с пулом, и с открытой транзакцией:
// денежные операции обязаны проверять баланс на том же транзакционном
// снимке, в который будут писать.
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryer — общий интерфейс для pgxpool.Pool и pgx.Tx.
// Позволяет выполнять агрегацию баланса внутри чужой транзакции.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// snapshotQuery собирает earned и spent одним запросом.
//
//	earned = награды по неудалённым проектам + бонусы
//	spent  = заказы (кроме отменённых) + история трат на апгрейды
//
// История трат (refinery_spend_history) участвует в spent вместо
// refinery_orders: при выигрыше заказы апгрейдов стираются, но деньги
// за них не возвращаются — возврат происходит только при явной отмене
// апгрейда, которая удаляет и заказ, и ровно одну строку истории.
const snapshotQuery = `
	SELECT
		COALESCE((SELECT SUM(p.scraps_awarded) FROM projects p
		          WHERE p.user_id = $1 AND COALESCE(p.deleted, 0) = 0), 0)
		+ COALESCE((SELECT SUM(b.amount) FROM bonuses b WHERE b.user_id = $1), 0)
		AS earned,
		COALESCE((SELECT SUM(o.total_price) FROM orders o
		          WHERE o.user_id = $1 AND o.status <> 'cancelled'), 0)
		+ COALESCE((SELECT SUM(h.cost) FROM refinery_spend_history h
		            WHERE h.user_id = $1), 0)
		AS spent
`

// Repository читает потоки фактов и отдаёт снимки баланса.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий баланса.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Snapshot возвращает снимок баланса пользователя.
// Без побочных эффектов, безопасно вызывать сколько угодно раз.
func (r *Repository) Snapshot(ctx context.Context, userID int64) (*Snapshot, error) {
	return snapshot(ctx, r.db, userID)
}

// SnapshotTx возвращает снимок баланса внутри открытой транзакции.
// Используется денежными операциями: проверка платёжеспособности
// видит ровно то состояние, в которое операция будет коммитить.
func (r *Repository) SnapshotTx(ctx context.Context, tx pgx.Tx, userID int64) (*Snapshot, error) {
	return snapshot(ctx, tx, userID)
}

func snapshot(ctx context.Context, q queryer, userID int64) (*Snapshot, error) {
	var s Snapshot
	if err := q.QueryRow(ctx, snapshotQuery, userID).Scan(&s.Earned, &s.Spent); err != nil {
		return nil, fmt.Errorf("ошибка агрегации баланса: %w", err)
	}
	s.Balance = s.Earned - s.Spent
	return &s, nil
}

// InsertBonus записывает ручной бонус (append-only).
func (r *Repository) InsertBonus(ctx context.Context, b *Bonus) error {
	query := `
		INSERT INTO bonuses (user_id, amount, reason, granted_by)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, b.UserID, b.Amount, b.Reason, b.GrantedBy)
	if err != nil {
		return fmt.Errorf("ошибка записи бонуса: %w", err)
	}
	return nil
}

// Leaderboard возвращает топ участников по заработанным скрапам.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username,
			COALESCE((SELECT SUM(p.scraps_awarded) FROM projects p
			          WHERE p.user_id = u.id AND COALESCE(p.deleted, 0) = 0), 0)
			+ COALESCE((SELECT SUM(b.amount) FROM bonuses b WHERE b.user_id = u.id), 0)
			AS earned
		FROM users u
		WHERE u.role <> 'banned'
		ORDER BY earned DESC, u.id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса лидерборда: %w", err)
	}
	defer rows.Close()

	var entries []*LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Earned); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лидерборда: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
