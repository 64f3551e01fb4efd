// Package payout завершает циклы выплат скрапов.
// cycle.go — чистая арифметика циклов: номер цикла выводится из
// настенных часов относительно фиксированной эпохи, без состояния в БД.
package payout

import (
	"sync"
	"time"
)

// CurrentCycle возвращает номер цикла для момента now.
// Нулевой цикл начинается в epoch; до эпохи номера отрицательные.
func CurrentCycle(now, epoch time.Time, cycleLen time.Duration) int64 {
	d := now.Sub(epoch)
	cycle := d / cycleLen
	// Целочисленное деление в Go округляет к нулю — для моментов до
	// эпохи вручную сдвигаем вниз, чтобы floor был честным.
	if d < 0 && d%cycleLen != 0 {
		cycle--
	}
	return int64(cycle)
}

// InPayoutWindow сообщает, попадает ли момент now в первый час
// текущего цикла. Фоновый таймер проверяет это ежечасно: окно шириной
// в час гарантирует ровно одно срабатывание на цикл.
func InPayoutWindow(now, epoch time.Time, cycleLen time.Duration) bool {
	if now.Before(epoch) {
		return false
	}
	offset := now.Sub(epoch) % cycleLen
	return offset < time.Hour
}

// Guard — процессное состояние «в каком цикле выплата уже прошла».
// Явный объект вместо глобальной переменной; обнуляется при рестарте
// процесса. После рестарта возможна максимум одна повторная попытка
// выплаты за жизнь процесса — это безопасно, потому что сама выплата
// идемпотентна: второй прогон не найдёт ничего неоплаченного.
type Guard struct {
	mu       sync.Mutex
	lastPaid int64
	hasPaid  bool
}

// NewGuard создаёт guard, ещё не видевший ни одной выплаты.
func NewGuard() *Guard {
	return &Guard{}
}

// TryMark отмечает цикл как обработанный.
// Возвращает false, если этот цикл уже был обработан в этом процессе.
func (g *Guard) TryMark(cycle int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasPaid && g.lastPaid == cycle {
		return false
	}
	g.lastPaid = cycle
	g.hasPaid = true
	return true
}

// Unmark снимает отметку цикла после неудачной выплаты: следующий
// ежечасный тик в том же окне повторит попытку. Отметка другого цикла
// не трогается.
func (g *Guard) Unmark(cycle int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasPaid && g.lastPaid == cycle {
		g.hasPaid = false
	}
}
