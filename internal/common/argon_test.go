package common

import (
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
)

// encodeHash собирает строку в том же формате, что scripts/generate_hash.go.
func encodeHash(password string, salt []byte) string {
	var (
		memory      uint32 = 65536
		iterations  uint32 = 3
		parallelism uint8  = 2
	)
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestVerifyArgonHash(t *testing.T) {
	salt := []byte("0123456789abcdef")
	encoded := encodeHash("секретный-пароль", salt)

	t.Run("верный пароль", func(t *testing.T) {
		ok, err := VerifyArgonHash("секретный-пароль", encoded)
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if !ok {
			t.Error("верный пароль должен проходить проверку")
		}
	})

	t.Run("неверный пароль", func(t *testing.T) {
		ok, err := VerifyArgonHash("не тот пароль", encoded)
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if ok {
			t.Error("неверный пароль не должен проходить проверку")
		}
	})

	t.Run("мусорный формат", func(t *testing.T) {
		if _, err := VerifyArgonHash("пароль", "не-хеш"); err == nil {
			t.Error("ожидалась ошибка формата")
		}
	})

	t.Run("чужой алгоритм", func(t *testing.T) {
		if _, err := VerifyArgonHash("пароль", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$BBBB"); err == nil {
			t.Error("ожидалась ошибка формата")
		}
	})
}
