// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация валюты, форматирование чисел и времени.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizeScraps возвращает правильную форму слова «скрап» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "скрап" (1, 21, 31, 101, ...)
//   - n%10 в [2,4] И n%100 НЕ в [12,14] → "скрапа" (2, 3, 4, 22, ...)
//   - Остальные случаи → "скрапов" (0, 5-20, 25-30, 100, ...)
func PluralizeScraps(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "скрап"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "скрапа"
	}
	return "скрапов"
}

// FormatScraps форматирует сумму в читабельную строку.
// Пример: FormatScraps(150) → "150 скрапов"
func FormatScraps(amount int64) string {
	return fmt.Sprintf("%d %s", amount, PluralizeScraps(amount))
}

// PluralizeUsers возвращает правильную форму слова «участник».
func PluralizeUsers(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "участник"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "участника"
	}
	return "участников"
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат заказов и выплат.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
