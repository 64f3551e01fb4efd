package shop

import "testing"

func TestAdjustedBaseProbability(t *testing.T) {
	cases := []struct {
		name     string
		base     int
		penalty  int
		expected int
	}{
		{"без штрафа", 40, 100, 40},
		{"штраф после первого выигрыша", 40, 50, 20},
		{"округление вниз", 25, 50, 12},
		{"минимальный штраф", 40, 1, 0},
		{"нулевая база", 0, 100, 0},
		{"отрицательная база", -5, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustedBaseProbability(tc.base, tc.penalty)
			if got != tc.expected {
				t.Errorf("AdjustedBaseProbability(%d, %d) = %d, ожидалось %d",
					tc.base, tc.penalty, got, tc.expected)
			}
		})
	}
}

func TestEffectiveProbability(t *testing.T) {
	t.Run("база плюс буст", func(t *testing.T) {
		if got := EffectiveProbability(20, 15); got != 35 {
			t.Errorf("получено %d, ожидалось 35", got)
		}
	})
	t.Run("потолок 100", func(t *testing.T) {
		if got := EffectiveProbability(80, 50); got != 100 {
			t.Errorf("получено %d, ожидалось 100", got)
		}
	})
	t.Run("не уходит в минус", func(t *testing.T) {
		if got := EffectiveProbability(-10, 0); got != 0 {
			t.Errorf("получено %d, ожидалось 0", got)
		}
	})
}

func TestMaxBoost(t *testing.T) {
	t.Run("дополняет до 100", func(t *testing.T) {
		if got := MaxBoost(30); got != 70 {
			t.Errorf("получено %d, ожидалось 70", got)
		}
	})
	t.Run("не бывает отрицательным", func(t *testing.T) {
		if got := MaxBoost(120); got != 0 {
			t.Errorf("получено %d, ожидалось 0", got)
		}
	})

	// Штраф УВЕЛИЧИВАЕТ доступный буст: чем ниже скорректированная
	// база, тем больше пунктов можно докупить.
	t.Run("штраф расширяет потолок буста", func(t *testing.T) {
		if MaxBoost(AdjustedBaseProbability(40, 50)) <= MaxBoost(AdjustedBaseProbability(40, 100)) {
			t.Error("ожидалось, что после штрафа потолок буста вырастет")
		}
	})
}

func TestUpgradeCost(t *testing.T) {
	t.Run("первый апгрейд по базовой цене", func(t *testing.T) {
		if got := UpgradeCost(100, 115, 0); got != 100 {
			t.Errorf("получено %d, ожидалось 100", got)
		}
	})

	t.Run("геометрическая кривая 1.15^n", func(t *testing.T) {
		// floor(100 * 1.15^n): 100, 115, 132.25, 152.0875, 174.900625
		expected := []int64{100, 115, 132, 152, 174}
		for n, want := range expected {
			if got := UpgradeCost(100, 115, n); got != want {
				t.Errorf("UpgradeCost(100, 115, %d) = %d, ожидалось %d", n, got, want)
			}
		}
	})

	t.Run("целые точки кривой точны", func(t *testing.T) {
		// Произведение целое — floor обязан вернуть его без потерь
		if got := UpgradeCost(100, 115, 1); got != 115 {
			t.Errorf("UpgradeCost(100, 115, 1) = %d, ожидалось 115", got)
		}
		if got := UpgradeCost(1000, 110, 2); got != 1210 {
			t.Errorf("UpgradeCost(1000, 110, 2) = %d, ожидалось 1210", got)
		}
		if got := UpgradeCost(200, 150, 3); got != 675 {
			t.Errorf("UpgradeCost(200, 150, 3) = %d, ожидалось 675", got)
		}
	})

	t.Run("строго возрастает", func(t *testing.T) {
		prev := int64(0)
		for n := 0; n < 20; n++ {
			got := UpgradeCost(500, 130, n)
			if got <= prev {
				t.Fatalf("цена апгрейда %d (%d) не выросла относительно %d", n, got, prev)
			}
			prev = got
		}
	})
}

func TestRollCost(t *testing.T) {
	cases := []struct {
		name     string
		price    int64
		baseProb int
		expected int64
	}{
		{"матожидание от базовой вероятности", 1000, 40, 400},
		{"округление вниз", 99, 33, 32},
		{"минимум один скрап", 10, 5, 1},
		{"нулевая вероятность всё равно стоит скрап", 1000, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RollCost(tc.price, tc.baseProb)
			if got != tc.expected {
				t.Errorf("RollCost(%d, %d) = %d, ожидалось %d",
					tc.price, tc.baseProb, got, tc.expected)
			}
		})
	}
}

func TestNextPenalty(t *testing.T) {
	t.Run("выигрыш режет множитель вдвое", func(t *testing.T) {
		if got := NextPenalty(100); got != 50 {
			t.Errorf("получено %d, ожидалось 50", got)
		}
		if got := NextPenalty(50); got != 25 {
			t.Errorf("получено %d, ожидалось 25", got)
		}
	})

	t.Run("никогда не падает ниже 1", func(t *testing.T) {
		if got := NextPenalty(3); got != 1 {
			t.Errorf("NextPenalty(3) = %d, ожидалось 1", got)
		}
		if got := NextPenalty(1); got != 1 {
			t.Errorf("NextPenalty(1) = %d, ожидалось 1", got)
		}
	})

	t.Run("серия выигрышей сходится к 1", func(t *testing.T) {
		m := DefaultPenaltyMultiplier
		for i := 0; i < 10; i++ {
			m = NextPenalty(m)
			if m < 1 {
				t.Fatalf("множитель упал до %d", m)
			}
		}
		if m != 1 {
			t.Errorf("после 10 выигрышей множитель %d, ожидалось 1", m)
		}
	})
}
