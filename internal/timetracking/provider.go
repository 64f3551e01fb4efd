// Package timetracking получает суммы часов из внешнего тайм-трекера
// (Hackatime). Движок экономики сам в трекер не ходит — он потребляет
// только поля hours/hours_override на проектах, которые заполняет
// фоновая джоба синка через этот интерфейс.
package timetracking

import "context"

// Provider отдаёт суммарную длительность по именованным сессиям
// одного пользователя: имя сессии → секунды.
type Provider interface {
	TotalsForUser(ctx context.Context, externalID string) (map[string]int64, error)
}
