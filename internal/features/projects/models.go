// Package projects управляет проектами участников и зачётом часов.
// models.go описывает структуры проектов.
package projects

import "time"

// Статусы проекта. Машина состояний ревью живёт во внешнем воркфлоу,
// движку экономики важны только "shipped" (награда зачтена) и откат
// в "in_review" при обнаружении дубликата репозитория.
const (
	StatusDraft    = "draft"
	StatusInReview = "in_review"
	StatusShipped  = "shipped"
	StatusDenied   = "denied"
)

// Project представляет проект участника.
//
// Поле Deleted намеренно тройственное (NULL/0/1): в исторических строках
// «не удалён» записан как NULL, поэтому все выборки фильтруют через
// COALESCE(deleted, 0) = 0.
type Project struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	Title         string     `db:"title"`
	Status        string     `db:"status"`
	RepoURL       string     `db:"repo_url"`       // Ссылка на репозиторий с кодом
	Hours         *float64   `db:"hours"`          // Сырые часы из тайм-трекера
	HoursOverride *float64   `db:"hours_override"` // Часы, выставленные ревьюером (не больше сырых)
	Tier          int        `db:"tier"`
	ScrapsAwarded int64      `db:"scraps_awarded"` // Награда, зачтённая при одобрении
	ScrapsPaidAt  *time.Time `db:"scraps_paid_at"` // Когда награда была выплачена (NULL = не выплачена)
	Deleted       *int16     `db:"deleted"`        // Мягкое удаление: NULL/0 = жив, 1 = удалён
	WorkSessions  string     `db:"work_sessions"`  // Имена сессий тайм-трекера через запятую

	// FirstShippedAt — момент первого одобрения, выводится из самого
	// раннего события перехода в shipped, а не из метаданных проекта:
	// проект может быть одобрен, отозван и одобрен заново.
	FirstShippedAt *time.Time `db:"first_shipped_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BaseHours возвращает часы проекта с учётом оверрайда:
// hoursOverride ?? hours ?? 0.
func (p *Project) BaseHours() float64 {
	if p.HoursOverride != nil {
		return *p.HoursOverride
	}
	if p.Hours != nil {
		return *p.Hours
	}
	return 0
}

// IsDeleted учитывает тройственность флага удаления.
func (p *Project) IsDeleted() bool {
	return p.Deleted != nil && *p.Deleted == 1
}

// StatusEvent — запись о смене статуса проекта (append-only).
// По этим событиям выводится момент первого шипа.
type StatusEvent struct {
	ID         int64     `db:"id"`
	ProjectID  int64     `db:"project_id"`
	FromStatus string    `db:"from_status"`
	ToStatus   string    `db:"to_status"`
	CreatedAt  time.Time `db:"created_at"`
}
