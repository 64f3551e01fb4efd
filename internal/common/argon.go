// Package common — argon.go проверяет Argon2id-хеши паролей.
// Формат хеша совпадает с тем, что генерирует scripts/generate_hash.go:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
package common

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// VerifyArgonHash сравнивает пароль с закодированным Argon2id-хешем.
// Сравнение хешей — constant-time, чтобы не утекало время совпадения.
func VerifyArgonHash(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("некорректный формат хеша")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("некорректная версия хеша: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("неподдерживаемая версия argon2: %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("некорректные параметры хеша: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("некорректная соль: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("некорректный хеш: %w", err)
	}

	actual := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}
