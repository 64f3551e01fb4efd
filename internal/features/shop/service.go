// Package shop — service.go координирует денежные операции магазина.
//
// Каждая операция — одна атомарная транзакция под эксклюзивной блокировкой
// строки пользователя: блокировка берётся ПЕРВОЙ, до любых чтений, на
// которых строится решение. Две гонящиеся покупки одного пользователя
// сериализуются на уровне БД, а не клиентскими ретраями. Типизированная
// ошибка внутри транзакции означает полный откат: остаток, заказы и
// состояние штрафов/бустов двигаются только вместе.
package shop

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/features/ledger"
	"serotonyl.ru/scrapyard/internal/notify"
)

// Store — операции хранилища, которыми пользуются денежные операции.
// Боевая реализация — *Repository поверх pgx; тесты подставляют
// in-memory двойник с той же семантикой блокировок.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockUserTx(ctx context.Context, tx pgx.Tx, userID int64) error
	GetItemTx(ctx context.Context, tx pgx.Tx, itemID int64) (*Item, error)
	ListActiveItems(ctx context.Context) ([]*Item, error)
	DecrementStockTx(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (bool, error)
	InsertOrderTx(ctx context.Context, tx pgx.Tx, o *Order) error
	BoostStateTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*boostState, error)
	PenaltyMultiplierTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (int, error)
	UpsertPenaltyTx(ctx context.Context, tx pgx.Tx, userID, itemID int64, multiplier int) error
	DeleteRefineryOrdersTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) error
	InsertRefineryOrderTx(ctx context.Context, tx pgx.Tx, ro *RefineryOrder) error
	LatestRefineryOrderTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*RefineryOrder, error)
	LatestPurchaseOrWinAtTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*time.Time, error)
	DeleteRefineryOrderTx(ctx context.Context, tx pgx.Tx, id int64) error
	DeleteOneSpendRecordTx(ctx context.Context, tx pgx.Tx, userID, itemID, cost int64) error
	InsertRollTx(ctx context.Context, tx pgx.Tx, roll *Roll) error
	BoostsByUser(ctx context.Context, userID int64) (map[int64]*boostState, error)
	PenaltiesByUser(ctx context.Context, userID int64) (map[int64]int, error)
	OrdersByUser(ctx context.Context, userID int64, limit int) ([]*Order, error)
	CreateItem(ctx context.Context, it *Item) error
	UpdateItem(ctx context.Context, it *Item) error
}

// BalanceSource — проверка платёжеспособности и снимки баланса
// внутри открытой транзакции. Боевая реализация — *ledger.Service.
type BalanceSource interface {
	CanAfford(ctx context.Context, tx pgx.Tx, userID, cost int64) (*ledger.Snapshot, error)
	SnapshotTx(ctx context.Context, tx pgx.Tx, userID int64) (*ledger.Snapshot, error)
}

// Service управляет магазином.
type Service struct {
	repo     Store
	ledger   BalanceSource
	notifier notify.Notifier

	// draw возвращает равномерное целое 1..100.
	// Подменяется в тестах на детерминированный источник.
	draw func() int
}

// NewService создаёт сервис магазина.
func NewService(repo Store, ledgerService BalanceSource, notifier notify.Notifier) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledgerService,
		notifier: notifier,
		draw:     func() int { return rand.IntN(100) + 1 },
	}
}

// Purchase покупает quantity единиц товара.
// Остаток и баланс перечитываются уже под блокировкой.
func (s *Service) Purchase(ctx context.Context, userID, itemID int64, quantity int, shippingAddress string) (*PurchaseResult, error) {
	if quantity < 1 {
		return nil, common.ErrInvalidInput("количество должно быть не меньше 1")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, common.ErrNotFound("участник")
	}

	item, err := s.repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, common.ErrNotFound("товар")
	}
	if item.Stock < quantity {
		return nil, common.ErrOutOfStock()
	}

	total := item.Price * int64(quantity)
	snap, err := s.ledger.CanAfford(ctx, tx, userID, total)
	if err != nil {
		return nil, err
	}

	// Гонку за последнюю единицу с ДРУГИМ пользователем закрывает
	// условный UPDATE: если остатка уже не хватает — вся операция откатывается.
	ok, err := s.repo.DecrementStockTx(ctx, tx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrOutOfStock()
	}

	order := &Order{
		Reference:       uuid.NewString(),
		UserID:          userID,
		ItemID:          itemID,
		OrderType:       OrderTypePurchase,
		Status:          OrderStatusPending,
		Quantity:        quantity,
		PricePerItem:    item.Price,
		TotalPrice:      total,
		ShippingAddress: shippingAddress,
	}
	if err := s.repo.InsertOrderTx(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"item_id":  itemID,
		"quantity": quantity,
		"total":    total,
	}).Info("Покупка оформлена")

	return &PurchaseResult{
		OrderRef:   order.Reference,
		Quantity:   quantity,
		TotalPrice: total,
		NewBalance: snap.Balance - total,
	}, nil
}

// TryLuck выполняет одну гача-попытку.
// Билет оплачивается независимо от исхода: цена покупает шанс, а не товар.
// Выигрыш режет штрафной множитель вдвое и сжигает все купленные бусты
// по этому товару. Каждая попытка фиксируется в rolls для аудита.
func (s *Service) TryLuck(ctx context.Context, userID, itemID int64) (*LuckResult, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, common.ErrNotFound("участник")
	}

	item, err := s.repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, common.ErrNotFound("товар")
	}
	if item.Stock < 1 {
		return nil, common.ErrOutOfStock()
	}

	// Шансы и цена пересчитываются уже под блокировкой
	penalty, err := s.repo.PenaltyMultiplierTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	boost, err := s.repo.BoostStateTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}

	adjusted := AdjustedBaseProbability(item.BaseProbability, penalty)
	effective := EffectiveProbability(adjusted, boost.BoostPercent)
	cost := RollCost(item.Price, item.BaseProbability)

	snap, err := s.ledger.CanAfford(ctx, tx, userID, cost)
	if err != nil {
		return nil, err
	}

	drawn := s.draw()
	won := drawn <= effective

	if err := s.repo.InsertRollTx(ctx, tx, &Roll{
		UserID:    userID,
		ItemID:    itemID,
		Drawn:     drawn,
		Threshold: effective,
		Won:       won,
	}); err != nil {
		return nil, err
	}

	result := &LuckResult{
		Won:        won,
		Drawn:      drawn,
		Threshold:  effective,
		Charged:    cost,
		NewBalance: snap.Balance - cost,
	}

	if won {
		ok, err := s.repo.DecrementStockTx(ctx, tx, itemID, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrOutOfStock()
		}

		order := &Order{
			Reference:    uuid.NewString(),
			UserID:       userID,
			ItemID:       itemID,
			OrderType:    OrderTypeLuckWin,
			Status:       OrderStatusPending,
			Quantity:     1,
			PricePerItem: cost,
			TotalPrice:   cost,
		}
		if err := s.repo.InsertOrderTx(ctx, tx, order); err != nil {
			return nil, err
		}
		result.OrderRef = order.Reference

		// Анти-фарминг: выигрыш вдвое режет персональные шансы
		// и сжигает все купленные бусты по этому товару.
		newPenalty := NextPenalty(penalty)
		if err := s.repo.UpsertPenaltyTx(ctx, tx, userID, itemID, newPenalty); err != nil {
			return nil, err
		}
		if err := s.repo.DeleteRefineryOrdersTx(ctx, tx, userID, itemID); err != nil {
			return nil, err
		}
		result.NewPenalty = newPenalty
		result.BoostBurned = boost.Upgrades > 0
	} else {
		order := &Order{
			Reference:    uuid.NewString(),
			UserID:       userID,
			ItemID:       itemID,
			OrderType:    OrderTypeConsolation,
			Status:       OrderStatusFulfilled,
			Quantity:     1,
			PricePerItem: cost,
			TotalPrice:   cost,
		}
		if err := s.repo.InsertOrderTx(ctx, tx, order); err != nil {
			return nil, err
		}
		result.OrderRef = order.Reference
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"item_id":   itemID,
		"drawn":     drawn,
		"threshold": effective,
		"won":       won,
	}).Info("Гача-попытка")

	// Уведомление после коммита: его падение не должно трогать транзакцию
	if won {
		s.notifier.Notify(notify.EventLuckWin, map[string]any{
			"user_id": userID,
			"item":    item.Name,
		})
	}

	return result, nil
}

// UpgradeProbability покупает один апгрейд вероятности по товару.
// Цена растёт геометрически с числом уже купленных апгрейдов.
func (s *Service) UpgradeProbability(ctx context.Context, userID, itemID int64) (*UpgradeResult, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, common.ErrNotFound("участник")
	}

	item, err := s.repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, common.ErrNotFound("товар")
	}

	penalty, err := s.repo.PenaltyMultiplierTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	boost, err := s.repo.BoostStateTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}

	adjusted := AdjustedBaseProbability(item.BaseProbability, penalty)
	maxBoost := MaxBoost(adjusted)
	if boost.BoostPercent >= maxBoost {
		return nil, common.ErrMaxProbability()
	}

	cost := UpgradeCost(item.BaseUpgradeCost, item.CostMultiplier, boost.Upgrades)
	snap, err := s.ledger.CanAfford(ctx, tx, userID, cost)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertRefineryOrderTx(ctx, tx, &RefineryOrder{
		UserID:       userID,
		ItemID:       itemID,
		Cost:         cost,
		BoostPercent: item.BoostAmount,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	newBoost := boost.BoostPercent + item.BoostAmount
	result := &UpgradeResult{
		BoostPercent:         newBoost,
		EffectiveProbability: EffectiveProbability(adjusted, newBoost),
		Charged:              cost,
		NewBalance:           snap.Balance - cost,
	}
	if newBoost < maxBoost {
		next := UpgradeCost(item.BaseUpgradeCost, item.CostMultiplier, boost.Upgrades+1)
		result.NextUpgradeCost = &next
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"item_id":   itemID,
		"cost":      cost,
		"new_boost": newBoost,
	}).Info("Куплен апгрейд вероятности")

	return result, nil
}

// UndoLastUpgrade откатывает последний апгрейд по товару.
// Откатить можно только апгрейд, купленный ПОСЛЕ последней покупки
// или выигрыша этого товара: выигрыш уже сжёг всё, что было до него.
// Удаляются заказ апгрейда и ровно одна строка истории трат с той же
// стоимостью — деньги возвращаются на баланс.
func (s *Service) UndoLastUpgrade(ctx context.Context, userID, itemID int64) (*UpgradeResult, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockUserTx(ctx, tx, userID); err != nil {
		return nil, common.ErrNotFound("участник")
	}

	item, err := s.repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, common.ErrNotFound("товар")
	}

	latest, err := s.repo.LatestRefineryOrderTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	lastPurchase, err := s.repo.LatestPurchaseOrWinAtTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !undoEligible(latest, lastPurchase) {
		return nil, common.ErrNothingToUndo()
	}

	if err := s.repo.DeleteRefineryOrderTx(ctx, tx, latest.ID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOneSpendRecordTx(ctx, tx, userID, itemID, latest.Cost); err != nil {
		return nil, err
	}

	// Перечитываем состояние после удаления — из той же транзакции
	boost, err := s.repo.BoostStateTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	penalty, err := s.repo.PenaltyMultiplierTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	adjusted := AdjustedBaseProbability(item.BaseProbability, penalty)
	result := &UpgradeResult{
		BoostPercent:         boost.BoostPercent,
		EffectiveProbability: EffectiveProbability(adjusted, boost.BoostPercent),
		Refunded:             latest.Cost,
		NewBalance:           snap.Balance,
	}
	if boost.BoostPercent < MaxBoost(adjusted) {
		next := UpgradeCost(item.BaseUpgradeCost, item.CostMultiplier, boost.Upgrades)
		result.NextUpgradeCost = &next
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"item_id":  itemID,
		"refunded": latest.Cost,
	}).Info("Апгрейд откатан")

	return result, nil
}

// undoEligible решает, можно ли откатить апгрейд latest.
// Откатываются только апгрейды, купленные строго после последней
// покупки/выигрыша товара (lastPurchase == nil — покупок не было).
func undoEligible(latest *RefineryOrder, lastPurchase *time.Time) bool {
	if latest == nil {
		return false
	}
	if lastPurchase == nil {
		return true
	}
	return latest.CreatedAt.After(*lastPurchase)
}

// ListItems возвращает активные товары глазами пользователя:
// с его штрафами, бустами и ценами.
func (s *Service) ListItems(ctx context.Context, userID int64) ([]*ItemView, error) {
	items, err := s.repo.ListActiveItems(ctx)
	if err != nil {
		return nil, err
	}
	boosts, err := s.repo.BoostsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	penalties, err := s.repo.PenaltiesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		penalty, ok := penalties[item.ID]
		if !ok {
			penalty = DefaultPenaltyMultiplier
		}
		st := boosts[item.ID]
		if st == nil {
			st = &boostState{}
		}

		adjusted := AdjustedBaseProbability(item.BaseProbability, penalty)
		view := &ItemView{
			Item:                 item,
			RollCost:             RollCost(item.Price, item.BaseProbability),
			AdjustedProbability:  adjusted,
			BoostPercent:         st.BoostPercent,
			EffectiveProbability: EffectiveProbability(adjusted, st.BoostPercent),
			MaxBoost:             MaxBoost(adjusted),
		}
		if st.BoostPercent < view.MaxBoost {
			next := UpgradeCost(item.BaseUpgradeCost, item.CostMultiplier, st.Upgrades)
			view.NextUpgradeCost = &next
		}
		views = append(views, view)
	}
	return views, nil
}

// Orders возвращает последние заказы пользователя.
func (s *Service) Orders(ctx context.Context, userID int64) ([]*Order, error) {
	return s.repo.OrdersByUser(ctx, userID, 50)
}

// CreateItem создаёт товар (админка).
func (s *Service) CreateItem(ctx context.Context, item *Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	return s.repo.CreateItem(ctx, item)
}

// UpdateItem обновляет товар (админка).
func (s *Service) UpdateItem(ctx context.Context, item *Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	err := s.repo.UpdateItem(ctx, item)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound("товар")
	}
	return err
}

// validateItem проверяет параметры товара и кривой цен.
func validateItem(item *Item) error {
	switch {
	case item.Name == "":
		return common.ErrInvalidInput("имя товара не может быть пустым")
	case item.Price <= 0:
		return common.ErrInvalidInput("цена должна быть положительной")
	case item.Stock < 0:
		return common.ErrInvalidInput("остаток не может быть отрицательным")
	case item.BaseProbability < 0 || item.BaseProbability > 100:
		return common.ErrInvalidInput("базовая вероятность должна быть в диапазоне 0..100")
	case item.BaseUpgradeCost <= 0:
		return common.ErrInvalidInput("базовая цена апгрейда должна быть положительной")
	case item.CostMultiplier <= 100:
		return common.ErrInvalidInput("множитель цены должен быть больше 100")
	case item.BoostAmount < 0:
		return common.ErrInvalidInput("буст за апгрейд не может быть отрицательным")
	}
	return nil
}
