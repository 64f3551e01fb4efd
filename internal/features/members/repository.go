// Package members — repository.go выполняет операции с таблицами users и user_sessions.
package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с участниками.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий участников.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByID возвращает участника по внутреннему ID.
func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, external_id, username, role, COALESCE(notes, ''), created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.ExternalID, &u.Username, &u.Role, &u.Notes, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения участника: %w", err)
	}
	return &u, nil
}

// GetSessionByToken ищет активную сессию по токену.
// Возвращает nil без ошибки, если токен не найден или сессия истекла.
func (r *Repository) GetSessionByToken(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT u.id, u.role
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW()
	`
	var s Session
	err := r.db.QueryRow(ctx, query, token).Scan(&s.UserID, &s.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска сессии: %w", err)
	}
	return &s, nil
}

// EnsureUser создаёт участника по внешнему ID, если его ещё нет.
// Вызывается при первой успешной авторизации. Возвращает внутренний ID.
func (r *Repository) EnsureUser(ctx context.Context, externalID, username string) (int64, error) {
	query := `
		INSERT INTO users (external_id, username, role)
		VALUES ($1, $2, 'member')
		ON CONFLICT (external_id) DO UPDATE SET username = EXCLUDED.username, updated_at = NOW()
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRow(ctx, query, externalID, username).Scan(&id); err != nil {
		return 0, fmt.Errorf("ошибка создания участника: %w", err)
	}
	return id, nil
}

// CreateSession выдаёт участнику сессионный токен с ограниченным сроком жизни.
func (r *Repository) CreateSession(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	query := `
		INSERT INTO user_sessions (user_id, token, expires_at)
		VALUES ($1, $2, NOW() + $3::interval)
	`
	_, err := r.db.Exec(ctx, query, userID, token, ttl.String())
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// SetRole меняет роль участника. Используется админкой.
func (r *Repository) SetRole(ctx context.Context, userID int64, role string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, userID, role)
	if err != nil {
		return fmt.Errorf("ошибка смены роли: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("участник %d не найден", userID)
	}
	return nil
}

// ExternalIDs возвращает соответствие внутренних ID внешним.
// Нужно джобе синхронизации часов: тайм-трекер знает только внешние ID.
func (r *Repository) ExternalIDs(ctx context.Context) (map[int64]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id, external_id FROM users WHERE role <> 'banned'`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки участников: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var ext string
		if err := rows.Scan(&id, &ext); err != nil {
			return nil, fmt.Errorf("ошибка сканирования участника: %w", err)
		}
		out[id] = ext
	}
	return out, rows.Err()
}
