package payout

import (
	"testing"
	"time"
)

var (
	testEpoch    = time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)
	testCycleLen = 48 * time.Hour
)

func TestCurrentCycle(t *testing.T) {
	cases := []struct {
		name     string
		now      time.Time
		expected int64
	}{
		{"момент эпохи", testEpoch, 0},
		{"внутри нулевого цикла", testEpoch.Add(47 * time.Hour), 0},
		{"начало первого цикла", testEpoch.Add(48 * time.Hour), 1},
		{"десятый цикл", testEpoch.Add(10 * 48 * time.Hour), 10},
		{"час до эпохи", testEpoch.Add(-time.Hour), -1},
		{"ровно цикл до эпохи", testEpoch.Add(-48 * time.Hour), -1},
		{"глубоко до эпохи", testEpoch.Add(-49 * time.Hour), -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CurrentCycle(tc.now, testEpoch, testCycleLen)
			if got != tc.expected {
				t.Errorf("CurrentCycle(%v) = %d, ожидалось %d", tc.now, got, tc.expected)
			}
		})
	}
}

func TestInPayoutWindow(t *testing.T) {
	cases := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"начало цикла", testEpoch, true},
		{"внутри первого часа", testEpoch.Add(59 * time.Minute), true},
		{"ровно час", testEpoch.Add(time.Hour), false},
		{"середина цикла", testEpoch.Add(24 * time.Hour), false},
		{"начало следующего цикла", testEpoch.Add(48 * time.Hour), true},
		{"до эпохи окна нет", testEpoch.Add(-30 * time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InPayoutWindow(tc.now, testEpoch, testCycleLen)
			if got != tc.expected {
				t.Errorf("InPayoutWindow(%v) = %v, ожидалось %v", tc.now, got, tc.expected)
			}
		})
	}
}

func TestGuardTryMark(t *testing.T) {
	t.Run("повтор в том же цикле блокируется", func(t *testing.T) {
		g := NewGuard()
		if !g.TryMark(5) {
			t.Fatal("первый вызов должен пройти")
		}
		if g.TryMark(5) {
			t.Error("повторный вызов в том же цикле должен блокироваться")
		}
	})

	t.Run("новый цикл проходит", func(t *testing.T) {
		g := NewGuard()
		g.TryMark(5)
		if !g.TryMark(6) {
			t.Error("следующий цикл должен пройти")
		}
	})

	t.Run("нулевой цикл после создания проходит", func(t *testing.T) {
		// Нулевое значение lastPaid не должно маскировать цикл 0
		g := NewGuard()
		if !g.TryMark(0) {
			t.Error("первый вызов для цикла 0 должен пройти")
		}
		if g.TryMark(0) {
			t.Error("повторный вызов для цикла 0 должен блокироваться")
		}
	})
}

func TestGuardUnmark(t *testing.T) {
	t.Run("после снятия отметки цикл можно повторить", func(t *testing.T) {
		// Неудачная выплата снимает отметку, и следующий тик
		// в том же окне получает вторую попытку
		g := NewGuard()
		if !g.TryMark(5) {
			t.Fatal("первый вызов должен пройти")
		}
		g.Unmark(5)
		if !g.TryMark(5) {
			t.Error("после Unmark повторная попытка того же цикла должна пройти")
		}
	})

	t.Run("чужой цикл отметку не снимает", func(t *testing.T) {
		g := NewGuard()
		g.TryMark(5)
		g.Unmark(4)
		if g.TryMark(5) {
			t.Error("Unmark другого цикла не должен открывать повтор")
		}
	})

	t.Run("на пустом guard ничего не ломает", func(t *testing.T) {
		g := NewGuard()
		g.Unmark(0)
		if !g.TryMark(0) {
			t.Error("первый вызов после холостого Unmark должен пройти")
		}
	})
}
