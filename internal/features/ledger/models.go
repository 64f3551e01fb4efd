// Package ledger отвечает за баланс скрапов.
// Баланс никогда не хранится как счётчик — он всегда вычисляется заново
// из четырёх append-only потоков фактов: награды за проекты, ручные бонусы,
// покупки и траты на апгрейды вероятности. Это исключает гонки записи
// и даёт бесплатный аудит.
package ledger

import "time"

// Snapshot — снимок баланса пользователя.
type Snapshot struct {
	Earned  int64 `json:"earned"`  // Всего заработано (награды + бонусы)
	Spent   int64 `json:"spent"`   // Всего потрачено (заказы + апгрейды)
	Balance int64 `json:"balance"` // earned - spent
}

// Bonus — ручное начисление скрапов участнику.
// Факт неизменяемый: бонусы никогда не удаляются и не редактируются.
type Bonus struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`    // Кому начислено
	Amount    int64     `db:"amount"`     // Сумма (всегда положительная)
	Reason    string    `db:"reason"`     // За что
	GrantedBy int64     `db:"granted_by"` // Кто начислил
	CreatedAt time.Time `db:"created_at"`
}

// LeaderboardEntry — строка публичного лидерборда по заработанным скрапам.
type LeaderboardEntry struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Earned   int64  `json:"earned"`
}
