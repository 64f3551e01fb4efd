// Package projects — repository.go выполняет операции с таблицами
// projects и project_status_events.
package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с проектами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий проектов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// selectProject — базовая выборка проекта вместе с моментом первого шипа.
// Момент первого шипа — самое раннее событие перехода в shipped,
// а не поле проекта: проект может быть одобрен, отозван и одобрен снова.
const selectProject = `
	SELECT p.id, p.user_id, p.title, p.status, COALESCE(p.repo_url, ''),
	       p.hours, p.hours_override, p.tier, p.scraps_awarded, p.scraps_paid_at,
	       p.deleted, COALESCE(p.work_sessions, ''), fs.first_shipped_at,
	       p.created_at, p.updated_at
	FROM projects p
	LEFT JOIN LATERAL (
		SELECT MIN(e.created_at) AS first_shipped_at
		FROM project_status_events e
		WHERE e.project_id = p.id AND e.to_status = 'shipped'
	) fs ON TRUE
`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Status, &p.RepoURL,
		&p.Hours, &p.HoursOverride, &p.Tier, &p.ScrapsAwarded, &p.ScrapsPaidAt,
		&p.Deleted, &p.WorkSessions, &p.FirstShippedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID возвращает проект по ID (nil, если не найден).
func (r *Repository) GetByID(ctx context.Context, projectID int64) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, selectProject+` WHERE p.id = $1`, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения проекта: %w", err)
	}
	return p, nil
}

// ShippedByUser возвращает все зашипленные неудалённые проекты участника.
// Именно этот набор нужен резолверу пересечений часов.
func (r *Repository) ShippedByUser(ctx context.Context, userID int64) ([]*Project, error) {
	query := selectProject + `
		WHERE p.user_id = $1 AND p.status = 'shipped' AND COALESCE(p.deleted, 0) = 0
		ORDER BY fs.first_shipped_at NULLS LAST, p.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки проектов: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проекта: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByUser возвращает все неудалённые проекты участника (для синка часов).
func (r *Repository) ByUser(ctx context.Context, userID int64) ([]*Project, error) {
	query := selectProject + `
		WHERE p.user_id = $1 AND COALESCE(p.deleted, 0) = 0
		ORDER BY p.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки проектов: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проекта: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreditAward зачитывает награду проекту при одобрении.
// Атомарно: обновление проекта и запись события статуса в одной транзакции.
// Повторное одобрение после отклонения перезаписывает награду и сбрасывает
// отметку выплаты — проект попадёт в следующий цикл выплат.
func (r *Repository) CreditAward(ctx context.Context, projectID, scraps int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldStatus string
	err = tx.QueryRow(ctx, `
		SELECT status FROM projects
		WHERE id = $1 AND COALESCE(deleted, 0) = 0
		FOR UPDATE
	`, projectID).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("ошибка блокировки проекта: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE projects
		SET status = 'shipped', scraps_awarded = $2, scraps_paid_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, projectID, scraps)
	if err != nil {
		return fmt.Errorf("ошибка зачёта награды: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO project_status_events (project_id, from_status, to_status)
		VALUES ($1, $2, 'shipped')
	`, projectID, oldStatus)
	if err != nil {
		return fmt.Errorf("ошибка записи события статуса: %w", err)
	}

	return tx.Commit(ctx)
}

// SetHoursOverride выставляет ревьюерские часы проекту.
func (r *Repository) SetHoursOverride(ctx context.Context, projectID int64, hours *float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE projects SET hours_override = $2, updated_at = NOW()
		WHERE id = $1 AND COALESCE(deleted, 0) = 0
	`, projectID, hours)
	if err != nil {
		return fmt.Errorf("ошибка установки оверрайда часов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateRawHours записывает сырые часы из тайм-трекера.
func (r *Repository) UpdateRawHours(ctx context.Context, projectID int64, hours float64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE projects SET hours = $2, updated_at = NOW()
		WHERE id = $1 AND COALESCE(deleted, 0) = 0
	`, projectID, hours)
	if err != nil {
		return fmt.Errorf("ошибка обновления часов: %w", err)
	}
	return nil
}

// RevertDuplicateShips откатывает в in_review все зашипленные проекты,
// которые делят один и тот же repo_url с более ранним шипом — независимо
// от того, один это участник или разные. Первый по моменту шипа остаётся.
// Возвращает ID откатанных проектов.
func (r *Repository) RevertDuplicateShips(ctx context.Context) ([]int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		WITH ranked AS (
			SELECT p.id, ROW_NUMBER() OVER (
				PARTITION BY p.repo_url
				ORDER BY fs.first_shipped_at NULLS LAST, p.id
			) AS rn
			FROM projects p
			LEFT JOIN LATERAL (
				SELECT MIN(e.created_at) AS first_shipped_at
				FROM project_status_events e
				WHERE e.project_id = p.id AND e.to_status = 'shipped'
			) fs ON TRUE
			WHERE p.status = 'shipped'
			  AND COALESCE(p.deleted, 0) = 0
			  AND COALESCE(p.repo_url, '') <> ''
		)
		SELECT id FROM ranked WHERE rn > 1
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска дубликатов: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования дубликата: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
			UPDATE projects SET status = 'in_review', updated_at = NOW() WHERE id = $1
		`, id); err != nil {
			return nil, fmt.Errorf("ошибка отката проекта %d: %w", id, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO project_status_events (project_id, from_status, to_status)
			VALUES ($1, 'shipped', 'in_review')
		`, id); err != nil {
			return nil, fmt.Errorf("ошибка записи события отката %d: %w", id, err)
		}
	}

	return ids, tx.Commit(ctx)
}
