// Package shop — repository.go выполняет операции с таблицами магазина.
// Методы с суффиксом Tx работают внутри чужой транзакции: денежные
// операции сервиса собирают из них одну атомарную единицу под
// эксклюзивной блокировкой строки пользователя.
package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами магазина в БД.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий магазина.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Begin открывает транзакцию денежной операции.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	return tx, nil
}

// LockUserTx берёт эксклюзивную блокировку строки пользователя.
// Это сериализует ВСЕ денежные операции одного пользователя:
// блокировка берётся ДО любых чтений, на которых строится решение,
// поэтому окно «прочитал — а баланс уже другой» закрыто.
// Операции разных пользователей друг друга не блокируют.
func (r *Repository) LockUserTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("ошибка блокировки пользователя: %w", err)
	}
	return nil
}

const selectItem = `
	SELECT id, name, COALESCE(description, ''), price, stock, base_probability,
	       base_upgrade_cost, cost_multiplier, boost_amount, active, created_at, updated_at
	FROM shop_items
`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.Name, &it.Description, &it.Price, &it.Stock, &it.BaseProbability,
		&it.BaseUpgradeCost, &it.CostMultiplier, &it.BoostAmount, &it.Active,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItem возвращает товар по ID (nil, если не найден).
func (r *Repository) GetItem(ctx context.Context, itemID int64) (*Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, selectItem+` WHERE id = $1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товара: %w", err)
	}
	return it, nil
}

// GetItemTx перечитывает товар внутри транзакции денежной операции.
func (r *Repository) GetItemTx(ctx context.Context, tx pgx.Tx, itemID int64) (*Item, error) {
	it, err := scanItem(tx.QueryRow(ctx, selectItem+` WHERE id = $1 AND active`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товара: %w", err)
	}
	return it, nil
}

// ListActiveItems возвращает все активные товары.
func (r *Repository) ListActiveItems(ctx context.Context) ([]*Item, error) {
	rows, err := r.db.Query(ctx, selectItem+` WHERE active ORDER BY price, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки товаров: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DecrementStockTx уменьшает остаток, только если его хватает.
// Гонку за последнюю единицу между РАЗНЫМИ пользователями разрешает
// условие stock >= quantity в том же UPDATE, что и списывает остаток.
func (r *Repository) DecrementStockTx(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE shop_items SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, itemID, quantity)
	if err != nil {
		return false, fmt.Errorf("ошибка списания остатка: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertOrderTx записывает заказ и возвращает его ID.
func (r *Repository) InsertOrderTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (reference, user_id, item_id, order_type, status,
		                    quantity, price_per_item, total_price, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, o.Reference, o.UserID, o.ItemID, o.OrderType, o.Status,
		o.Quantity, o.PricePerItem, o.TotalPrice, o.ShippingAddress,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи заказа: %w", err)
	}
	return nil
}

// BoostStateTx возвращает суммарный буст и число купленных апгрейдов
// пользователя по товару.
func (r *Repository) BoostStateTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*boostState, error) {
	var st boostState
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(boost_percent), 0), COUNT(*)
		FROM refinery_orders
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&st.BoostPercent, &st.Upgrades)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения буста: %w", err)
	}
	return &st, nil
}

// PenaltyMultiplierTx возвращает штрафной множитель пользователя
// по товару; отсутствие строки означает 100.
func (r *Repository) PenaltyMultiplierTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (int, error) {
	var m int
	err := tx.QueryRow(ctx, `
		SELECT multiplier FROM shop_penalties WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&m)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPenaltyMultiplier, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения штрафа: %w", err)
	}
	return m, nil
}

// UpsertPenaltyTx записывает новый штрафной множитель пары (user, item).
func (r *Repository) UpsertPenaltyTx(ctx context.Context, tx pgx.Tx, userID, itemID int64, multiplier int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO shop_penalties (user_id, item_id, multiplier)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE
			SET multiplier = EXCLUDED.multiplier, updated_at = NOW()
	`, userID, itemID, multiplier)
	if err != nil {
		return fmt.Errorf("ошибка записи штрафа: %w", err)
	}
	return nil
}

// DeleteRefineryOrdersTx сжигает все апгрейды пользователя по товару.
// История трат (refinery_spend_history) при этом НЕ трогается:
// потраченное на сгоревшие бусты не возвращается.
func (r *Repository) DeleteRefineryOrdersTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM refinery_orders WHERE user_id = $1 AND item_id = $2
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("ошибка сжигания апгрейдов: %w", err)
	}
	return nil
}

// InsertRefineryOrderTx записывает покупку апгрейда и строку истории трат.
// Заказ апгрейда изменяем (его можно откатить или сжечь),
// история — append-only аудит.
func (r *Repository) InsertRefineryOrderTx(ctx context.Context, tx pgx.Tx, ro *RefineryOrder) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO refinery_orders (user_id, item_id, cost, boost_percent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, ro.UserID, ro.ItemID, ro.Cost, ro.BoostPercent).Scan(&ro.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи апгрейда: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refinery_spend_history (user_id, item_id, cost)
		VALUES ($1, $2, $3)
	`, ro.UserID, ro.ItemID, ro.Cost)
	if err != nil {
		return fmt.Errorf("ошибка записи истории трат: %w", err)
	}
	return nil
}

// LatestRefineryOrderTx возвращает самый свежий апгрейд пары (user, item),
// либо nil.
func (r *Repository) LatestRefineryOrderTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*RefineryOrder, error) {
	var ro RefineryOrder
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, item_id, cost, boost_percent, created_at
		FROM refinery_orders
		WHERE user_id = $1 AND item_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, itemID).Scan(&ro.ID, &ro.UserID, &ro.ItemID, &ro.Cost, &ro.BoostPercent, &ro.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска апгрейда: %w", err)
	}
	return &ro, nil
}

// LatestPurchaseOrWinAtTx возвращает время последнего заказа типа
// purchase или luck_win по паре (user, item), либо nil.
// Апгрейды старше этого момента откатывать нельзя.
func (r *Repository) LatestPurchaseOrWinAtTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*time.Time, error) {
	var t *time.Time
	err := tx.QueryRow(ctx, `
		SELECT MAX(created_at) FROM orders
		WHERE user_id = $1 AND item_id = $2
		  AND order_type IN ('purchase', 'luck_win')
		  AND status <> 'cancelled'
	`, userID, itemID).Scan(&t)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска последней покупки: %w", err)
	}
	return t, nil
}

// DeleteRefineryOrderTx удаляет один заказ апгрейда по ID.
func (r *Repository) DeleteRefineryOrderTx(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM refinery_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления апгрейда: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteOneSpendRecordTx удаляет РОВНО ОДНУ строку истории трат
// с заданной стоимостью — самую свежую. Цены апгрейдов повторяются,
// удаление по (user, item, cost) без LIMIT снесло бы лишние строки.
func (r *Repository) DeleteOneSpendRecordTx(ctx context.Context, tx pgx.Tx, userID, itemID, cost int64) error {
	tag, err := tx.Exec(ctx, `
		DELETE FROM refinery_spend_history
		WHERE id = (
			SELECT id FROM refinery_spend_history
			WHERE user_id = $1 AND item_id = $2 AND cost = $3
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`, userID, itemID, cost)
	if err != nil {
		return fmt.Errorf("ошибка удаления строки истории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// InsertRollTx записывает факт гача-попытки (append-only).
func (r *Repository) InsertRollTx(ctx context.Context, tx pgx.Tx, roll *Roll) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO rolls (user_id, item_id, drawn, threshold, won)
		VALUES ($1, $2, $3, $4, $5)
	`, roll.UserID, roll.ItemID, roll.Drawn, roll.Threshold, roll.Won)
	if err != nil {
		return fmt.Errorf("ошибка записи попытки: %w", err)
	}
	return nil
}

// BoostsByUser возвращает буст-агрегаты пользователя по всем товарам.
// Используется листингом магазина (вне транзакций).
func (r *Repository) BoostsByUser(ctx context.Context, userID int64) (map[int64]*boostState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, COALESCE(SUM(boost_percent), 0), COUNT(*)
		FROM refinery_orders
		WHERE user_id = $1
		GROUP BY item_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки бустов: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*boostState)
	for rows.Next() {
		var itemID int64
		var st boostState
		if err := rows.Scan(&itemID, &st.BoostPercent, &st.Upgrades); err != nil {
			return nil, fmt.Errorf("ошибка сканирования буста: %w", err)
		}
		out[itemID] = &st
	}
	return out, rows.Err()
}

// PenaltiesByUser возвращает штрафные множители пользователя по товарам.
func (r *Repository) PenaltiesByUser(ctx context.Context, userID int64) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, multiplier FROM shop_penalties WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки штрафов: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var itemID int64
		var m int
		if err := rows.Scan(&itemID, &m); err != nil {
			return nil, fmt.Errorf("ошибка сканирования штрафа: %w", err)
		}
		out[itemID] = m
	}
	return out, rows.Err()
}

// OrdersByUser возвращает последние заказы пользователя.
func (r *Repository) OrdersByUser(ctx context.Context, userID int64, limit int) ([]*Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, reference, user_id, item_id, order_type, status,
		       quantity, price_per_item, total_price, COALESCE(shipping_address, ''), created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки заказов: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Reference, &o.UserID, &o.ItemID, &o.OrderType, &o.Status,
			&o.Quantity, &o.PricePerItem, &o.TotalPrice, &o.ShippingAddress, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// CreateItem создаёт товар (админка).
func (r *Repository) CreateItem(ctx context.Context, it *Item) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO shop_items (name, description, price, stock, base_probability,
		                        base_upgrade_cost, cost_multiplier, boost_amount, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, it.Name, it.Description, it.Price, it.Stock, it.BaseProbability,
		it.BaseUpgradeCost, it.CostMultiplier, it.BoostAmount, it.Active,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания товара: %w", err)
	}
	return nil
}

// UpdateItem обновляет товар (админка).
func (r *Repository) UpdateItem(ctx context.Context, it *Item) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shop_items
		SET name = $2, description = $3, price = $4, stock = $5, base_probability = $6,
		    base_upgrade_cost = $7, cost_multiplier = $8, boost_amount = $9, active = $10,
		    updated_at = NOW()
		WHERE id = $1
	`, it.ID, it.Name, it.Description, it.Price, it.Stock, it.BaseProbability,
		it.BaseUpgradeCost, it.CostMultiplier, it.BoostAmount, it.Active)
	if err != nil {
		return fmt.Errorf("ошибка обновления товара: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
