// Package members управляет участниками платформы и их сессиями.
// models.go описывает структуры участников.
package members

import "time"

// Роли участников. Роль banned блокирует любые денежные операции.
const (
	RoleMember   = "member"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
	RoleBanned   = "banned"
)

// User представляет участника платформы.
// Участник создаётся при первой успешной авторизации и никогда
// не удаляется физически — только меняет роль (в т.ч. на banned).
type User struct {
	ID         int64     `db:"id"`          // Внутренний ID
	ExternalID string    `db:"external_id"` // ID во внешней системе авторизации (Slack)
	Username   string    `db:"username"`    // Отображаемое имя
	Role       string    `db:"role"`        // member | reviewer | admin | banned
	Notes      string    `db:"notes"`       // Заметки ревьюеров/админов
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Session — результат резолва сессионного токена.
// Больше ничего о пользователе движку экономики знать не нужно.
type Session struct {
	UserID int64
	Role   string
}

// IsStaff сообщает, имеет ли сессия права ревьюера или админа.
func (s *Session) IsStaff() bool {
	return s.Role == RoleReviewer || s.Role == RoleAdmin
}
