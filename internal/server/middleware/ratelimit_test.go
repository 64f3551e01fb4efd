package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Run("пропускает до лимита", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		defer rl.Close()

		for i := 0; i < 3; i++ {
			if !rl.Allow("user") {
				t.Fatalf("запрос %d должен пройти", i+1)
			}
		}
		if rl.Allow("user") {
			t.Error("запрос сверх лимита должен блокироваться")
		}
	})

	t.Run("ключи независимы", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Close()

		if !rl.Allow("a") {
			t.Fatal("первый запрос ключа a должен пройти")
		}
		if !rl.Allow("b") {
			t.Error("лимит ключа a не должен трогать ключ b")
		}
	})

	t.Run("окно скользит", func(t *testing.T) {
		rl := NewRateLimiter(1, 30*time.Millisecond)
		defer rl.Close()

		if !rl.Allow("user") {
			t.Fatal("первый запрос должен пройти")
		}
		if rl.Allow("user") {
			t.Fatal("второй запрос внутри окна должен блокироваться")
		}

		time.Sleep(50 * time.Millisecond)
		if !rl.Allow("user") {
			t.Error("после истечения окна запрос должен пройти")
		}
	})
}
