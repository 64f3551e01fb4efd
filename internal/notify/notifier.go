// Package notify доставляет уведомления во внешний канал (Telegram).
// Доставка строго fire-and-forget: падение уведомления логируется
// и НИКОГДА не откатывает и не валит денежную операцию.
package notify

// События, о которых анонсируем.
const (
	EventLuckWin     = "luck_win"     // Участник выиграл товар в гача
	EventPayoutCycle = "payout_cycle" // Завершён цикл выплат
)

// Notifier — канал уведомлений.
// Реализации не возвращают ошибок наружу: всё, что сломалось,
// остаётся в логах реализации.
type Notifier interface {
	Notify(event string, payload map[string]any)
}

// Noop — заглушка, когда канал уведомлений не настроен.
type Noop struct{}

// Notify ничего не делает.
func (Noop) Notify(event string, payload map[string]any) {}
