// Package shop — pricing.go реализует модель вероятностей и цен гача-магазина.
//
// Все функции чистые, без I/O. Вероятности считаются в целых процентах
// с округлением вниз — как и у источника фактов в БД.
//
// Модель:
//   - базовая вероятность товара дисконтируется персональным штрафным
//     множителем (анти-фарминг: каждый выигрыш товара режет множитель вдвое);
//   - поверх прибавляется купленный аддитивный буст, потолок — 100%;
//   - цена попытки зависит только от цены товара и БАЗОВОЙ вероятности,
//     чтобы апгрейды не меняли стоимость билета;
//   - цена каждого следующего апгрейда растёт геометрически.
package shop

import (
	"math"
	"math/big"
)

// DefaultPenaltyMultiplier — штрафной множитель до первого выигрыша.
const DefaultPenaltyMultiplier = 100

// AdjustedBaseProbability возвращает базовую вероятность товара
// с учётом персонального штрафного множителя (в процентах):
// floor(base * multiplier / 100).
func AdjustedBaseProbability(baseProbability, penaltyMultiplier int) int {
	if baseProbability < 0 {
		return 0
	}
	if penaltyMultiplier < 0 {
		penaltyMultiplier = 0
	}
	return baseProbability * penaltyMultiplier / 100
}

// EffectiveProbability возвращает итоговую вероятность выигрыша:
// скорректированная база плюс купленный буст, потолок 100.
func EffectiveProbability(adjustedBase, boostPercent int) int {
	p := adjustedBase + boostPercent
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// MaxBoost возвращает максимальный суммарный буст для пользователя:
// буст не может поднять вероятность выше 100%.
func MaxBoost(adjustedBase int) int {
	b := 100 - adjustedBase
	if b < 0 {
		return 0
	}
	return b
}

// UpgradeCost возвращает цену N-го апгрейда вероятности:
// floor(baseUpgradeCost * (costMultiplier/100)^upgradesPurchased).
// upgradesPurchased — счётчик уже купленных апгрейдов, не проценты.
//
// Считаем точно в целых числах: baseCost * mult^n / 100^n.
// float64 здесь нельзя: двоичное представление 1.15 чуть меньше точного,
// и floor срезал бы единицу ровно в тех точках, где произведение целое
// (floor(100 * 1.15) обязан быть 115, а не 114).
func UpgradeCost(baseUpgradeCost int64, costMultiplier, upgradesPurchased int) int64 {
	if upgradesPurchased <= 0 {
		return baseUpgradeCost
	}

	n := big.NewInt(int64(upgradesPurchased))
	num := new(big.Int).Exp(big.NewInt(int64(costMultiplier)), n, nil)
	num.Mul(num, big.NewInt(baseUpgradeCost))
	den := new(big.Int).Exp(big.NewInt(100), n, nil)
	num.Quo(num, den) // для положительных значений Quo и есть floor

	if !num.IsInt64() {
		return math.MaxInt64
	}
	return num.Int64()
}

// RollCost возвращает цену одной попытки.
// Считается ТОЛЬКО от цены товара и базовой вероятности — матожидание
// честной попытки при базовых шансах. Бусты пользователя на цену билета
// не влияют. Минимум 1 скрап.
func RollCost(price int64, baseProbability int) int64 {
	cost := price * int64(baseProbability) / 100
	if cost < 1 {
		return 1
	}
	return cost
}

// NextPenalty возвращает штрафной множитель после выигрыша:
// max(1, floor(old / 2)). Множитель никогда не падает до нуля.
func NextPenalty(old int) int {
	next := old / 2
	if next < 1 {
		return 1
	}
	return next
}
