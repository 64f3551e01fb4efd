// Package shop реализует вероятностный магазин: покупки, гача-попытки,
// апгрейды вероятности и их откат. models.go описывает структуры данных.
package shop

import "time"

// Типы заказов. Тип различает, за что были списаны скрапы.
const (
	OrderTypePurchase    = "purchase"    // Обычная покупка
	OrderTypeLuckWin     = "luck_win"    // Выигранная гача-попытка
	OrderTypeConsolation = "consolation" // Проигранная гача-попытка (билет всё равно оплачен)
)

// Статусы заказов. В spent попадает всё, кроме cancelled.
const (
	OrderStatusPending   = "pending"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

// Item — товар магазина.
type Item struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	Price           int64     `db:"price" json:"price"`                       // Цена в скрапах
	Stock           int       `db:"stock" json:"stock"`                       // Остаток на складе
	BaseProbability int       `db:"base_probability" json:"baseProbability"`  // Базовая вероятность выигрыша, 0–100
	BaseUpgradeCost int64     `db:"base_upgrade_cost" json:"baseUpgradeCost"`
	CostMultiplier  int       `db:"cost_multiplier" json:"costMultiplier"` // Проценты, > 100: геометрический рост цены апгрейда
	BoostAmount     int       `db:"boost_amount" json:"boostAmount"`       // Процентных пунктов за один апгрейд
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Order — неизменяемая запись о покупке или исходе гача-попытки.
type Order struct {
	ID              int64     `db:"id" json:"-"`
	Reference       string    `db:"reference" json:"reference"` // Публичный UUID заказа
	UserID          int64     `db:"user_id" json:"-"`
	ItemID          int64     `db:"item_id" json:"itemId"`
	OrderType       string    `db:"order_type" json:"orderType"`
	Status          string    `db:"status" json:"status"`
	Quantity        int       `db:"quantity" json:"quantity"`
	PricePerItem    int64     `db:"price_per_item" json:"pricePerItem"` // Фактически списанные скрапы за единицу
	TotalPrice      int64     `db:"total_price" json:"totalPrice"`
	ShippingAddress string    `db:"shipping_address" json:"shippingAddress,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// RefineryOrder — покупка одного апгрейда вероятности.
// Сумма boost_percent по паре (user, item) даёт текущий буст,
// количество строк — счётчик для геометрической кривой цены.
// Записи стираются при выигрыше (буст сгорает) и при откате.
type RefineryOrder struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	ItemID       int64     `db:"item_id"`
	Cost         int64     `db:"cost"`
	BoostPercent int       `db:"boost_percent"`
	CreatedAt    time.Time `db:"created_at"`
}

// Penalty — персональный штрафной множитель (user, item), анти-фарминг.
// Не больше одной строки на пару; отсутствие строки означает 100.
type Penalty struct {
	UserID     int64     `db:"user_id"`
	ItemID     int64     `db:"item_id"`
	Multiplier int       `db:"multiplier"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Roll — неизменяемый факт одной гача-попытки (аудит и лидерборды).
type Roll struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ItemID    int64     `db:"item_id"`
	Drawn     int       `db:"drawn"`     // Выпавшее число 1..100
	Threshold int       `db:"threshold"` // Использованная эффективная вероятность
	Won       bool      `db:"won"`
	CreatedAt time.Time `db:"created_at"`
}

// boostState — агрегат по refinery_orders для пары (user, item).
type boostState struct {
	BoostPercent int // Суммарный купленный буст
	Upgrades     int // Сколько апгрейдов куплено (индекс кривой цены)
}

// ItemView — товар глазами конкретного пользователя:
// его штраф, его буст и его цены.
type ItemView struct {
	Item                 *Item `json:"item"`
	RollCost             int64 `json:"rollCost"`
	AdjustedProbability  int   `json:"adjustedProbability"`
	BoostPercent         int   `json:"boostPercent"`
	EffectiveProbability int   `json:"effectiveProbability"`
	MaxBoost             int   `json:"maxBoost"`
	// NextUpgradeCost == nil, когда буст упёрся в потолок.
	NextUpgradeCost *int64 `json:"nextUpgradeCost"`
}

// LuckResult — исход гача-попытки.
type LuckResult struct {
	Won         bool   `json:"won"`
	Drawn       int    `json:"drawn"`
	Threshold   int    `json:"threshold"`
	Charged     int64  `json:"charged"`
	OrderRef    string `json:"orderRef"`
	NewBalance  int64  `json:"newBalance"`
	NewPenalty  int    `json:"newPenalty,omitempty"`  // Только при выигрыше
	BoostBurned bool   `json:"boostBurned,omitempty"` // Только при выигрыше
}

// UpgradeResult — состояние буста после покупки или отката апгрейда.
type UpgradeResult struct {
	BoostPercent         int    `json:"boostPercent"`
	EffectiveProbability int    `json:"effectiveProbability"`
	Charged              int64  `json:"charged,omitempty"`
	Refunded             int64  `json:"refunded,omitempty"`
	NewBalance           int64  `json:"newBalance"`
	NextUpgradeCost      *int64 `json:"nextUpgradeCost"` // nil = достигнут потолок
}

// PurchaseResult — успешная покупка.
type PurchaseResult struct {
	OrderRef   string `json:"orderRef"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"totalPrice"`
	NewBalance int64  `json:"newBalance"`
}
