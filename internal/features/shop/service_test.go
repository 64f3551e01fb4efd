package shop

import (
	"testing"
	"time"
)

func TestUndoEligible(t *testing.T) {
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) time.Time { return base.Add(offset) }

	t.Run("нет апгрейдов", func(t *testing.T) {
		if undoEligible(nil, nil) {
			t.Error("нечего откатывать без апгрейдов")
		}
	})

	t.Run("апгрейд без покупок откатывается", func(t *testing.T) {
		latest := &RefineryOrder{CreatedAt: at(0)}
		if !undoEligible(latest, nil) {
			t.Error("апгрейд без покупок должен откатываться")
		}
	})

	t.Run("апгрейд после покупки откатывается", func(t *testing.T) {
		latest := &RefineryOrder{CreatedAt: at(time.Hour)}
		purchase := at(0)
		if !undoEligible(latest, &purchase) {
			t.Error("апгрейд, купленный после покупки, должен откатываться")
		}
	})

	t.Run("апгрейд до выигрыша не откатывается", func(t *testing.T) {
		// Выигрыш уже сжёг бусты — откатывать старый апгрейд нельзя
		latest := &RefineryOrder{CreatedAt: at(0)}
		win := at(time.Hour)
		if undoEligible(latest, &win) {
			t.Error("апгрейд, купленный до выигрыша, не должен откатываться")
		}
	})

	t.Run("одновременные события не откатываются", func(t *testing.T) {
		latest := &RefineryOrder{CreatedAt: at(0)}
		same := at(0)
		if undoEligible(latest, &same) {
			t.Error("апгрейд с тем же временем, что и покупка, не должен откатываться")
		}
	})
}
