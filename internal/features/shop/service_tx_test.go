package shop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/scrapyard/internal/common"
	"serotonyl.ru/scrapyard/internal/features/ledger"
	"serotonyl.ru/scrapyard/internal/notify"
)

// memStore — in-memory двойник репозитория магазина с той же семантикой,
// что у Postgres-реализации: блокировка строки пользователя держится до
// конца транзакции, откат возвращает все изменения, остаток списывается
// условно. Позволяет гонять денежные операции сервиса без БД.
type memStore struct {
	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex

	earned    map[int64]int64 // Заработанное участником (projects + bonuses)
	items     map[int64]*Item
	orders    []*Order
	refinery  []*RefineryOrder
	history   []spendRecord
	penalties map[[2]int64]int
	rolls     []*Roll

	seq int64
	now time.Time
}

type spendRecord struct {
	userID, itemID, cost int64
	at                   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		userLocks: make(map[int64]*sync.Mutex),
		earned:    make(map[int64]int64),
		items:     make(map[int64]*Item),
		penalties: make(map[[2]int64]int),
		now:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick выдаёт строго возрастающие отметки времени — суррогат created_at.
// Вызывать под mu.
func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

// nextID — суррогат автоинкремента. Вызывать под mu.
func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

// memTx изображает pgx.Tx: копит undo-шаги и отпускает блокировку
// пользователя ровно один раз — на Commit или Rollback.
type memTx struct {
	pgx.Tx
	store  *memStore
	locked *sync.Mutex
	undo   []func()
	done   sync.Once
}

func (t *memTx) Commit(ctx context.Context) error {
	t.finish(false)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.finish(true)
	return nil
}

func (t *memTx) finish(rollback bool) {
	t.done.Do(func() {
		if rollback {
			t.store.mu.Lock()
			for i := len(t.undo) - 1; i >= 0; i-- {
				t.undo[i]()
			}
			t.store.mu.Unlock()
		}
		if t.locked != nil {
			t.locked.Unlock()
		}
	})
}

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{store: s}, nil
}

func (s *memStore) LockUserTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	t := tx.(*memTx)
	s.mu.Lock()
	if _, ok := s.earned[userID]; !ok {
		s.mu.Unlock()
		return pgx.ErrNoRows
	}
	lk, ok := s.userLocks[userID]
	if !ok {
		lk = &sync.Mutex{}
		s.userLocks[userID] = lk
	}
	s.mu.Unlock()

	lk.Lock()
	t.locked = lk
	return nil
}

func (s *memStore) GetItemTx(ctx context.Context, tx pgx.Tx, itemID int64) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok || !it.Active {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) ListActiveItems(ctx context.Context) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Item
	for _, it := range s.items {
		if it.Active {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) DecrementStockTx(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (bool, error) {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok || it.Stock < quantity {
		return false, nil
	}
	it.Stock -= quantity
	t.undo = append(t.undo, func() { it.Stock += quantity })
	return true, nil
}

func (s *memStore) InsertOrderTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID()
	o.CreatedAt = s.tick()
	s.orders = append(s.orders, o)
	t.undo = append(t.undo, func() {
		for i, x := range s.orders {
			if x == o {
				s.orders = append(s.orders[:i], s.orders[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *memStore) BoostStateTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*boostState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &boostState{}
	for _, ro := range s.refinery {
		if ro.UserID == userID && ro.ItemID == itemID {
			st.BoostPercent += ro.BoostPercent
			st.Upgrades++
		}
	}
	return st, nil
}

func (s *memStore) PenaltyMultiplierTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.penalties[[2]int64{userID, itemID}]; ok {
		return m, nil
	}
	return DefaultPenaltyMultiplier, nil
}

func (s *memStore) UpsertPenaltyTx(ctx context.Context, tx pgx.Tx, userID, itemID int64, multiplier int) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{userID, itemID}
	old, had := s.penalties[key]
	s.penalties[key] = multiplier
	t.undo = append(t.undo, func() {
		if had {
			s.penalties[key] = old
		} else {
			delete(s.penalties, key)
		}
	})
	return nil
}

func (s *memStore) DeleteRefineryOrdersTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*RefineryOrder
	var removed []*RefineryOrder
	for _, ro := range s.refinery {
		if ro.UserID == userID && ro.ItemID == itemID {
			removed = append(removed, ro)
		} else {
			kept = append(kept, ro)
		}
	}
	s.refinery = kept
	t.undo = append(t.undo, func() { s.refinery = append(s.refinery, removed...) })
	return nil
}

func (s *memStore) InsertRefineryOrderTx(ctx context.Context, tx pgx.Tx, ro *RefineryOrder) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	ro.ID = s.nextID()
	ro.CreatedAt = s.tick()
	s.refinery = append(s.refinery, ro)
	rec := spendRecord{userID: ro.UserID, itemID: ro.ItemID, cost: ro.Cost, at: ro.CreatedAt}
	s.history = append(s.history, rec)
	t.undo = append(t.undo, func() {
		for i, x := range s.refinery {
			if x == ro {
				s.refinery = append(s.refinery[:i], s.refinery[i+1:]...)
				break
			}
		}
		for i := len(s.history) - 1; i >= 0; i-- {
			if s.history[i] == rec {
				s.history = append(s.history[:i], s.history[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (s *memStore) LatestRefineryOrderTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*RefineryOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *RefineryOrder
	for _, ro := range s.refinery {
		if ro.UserID != userID || ro.ItemID != itemID {
			continue
		}
		if latest == nil || ro.CreatedAt.After(latest.CreatedAt) ||
			(ro.CreatedAt.Equal(latest.CreatedAt) && ro.ID > latest.ID) {
			latest = ro
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) LatestPurchaseOrWinAtTx(ctx context.Context, tx pgx.Tx, userID, itemID int64) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, o := range s.orders {
		if o.UserID != userID || o.ItemID != itemID || o.Status == OrderStatusCancelled {
			continue
		}
		if o.OrderType != OrderTypePurchase && o.OrderType != OrderTypeLuckWin {
			continue
		}
		if latest == nil || o.CreatedAt.After(*latest) {
			at := o.CreatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (s *memStore) DeleteRefineryOrderTx(ctx context.Context, tx pgx.Tx, id int64) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ro := range s.refinery {
		if ro.ID == id {
			s.refinery = append(s.refinery[:i], s.refinery[i+1:]...)
			t.undo = append(t.undo, func() { s.refinery = append(s.refinery, ro) })
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *memStore) DeleteOneSpendRecordTx(ctx context.Context, tx pgx.Tx, userID, itemID, cost int64) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for i, h := range s.history {
		if h.userID != userID || h.itemID != itemID || h.cost != cost {
			continue
		}
		if best == -1 || h.at.After(s.history[best].at) {
			best = i
		}
	}
	if best == -1 {
		return pgx.ErrNoRows
	}
	rec := s.history[best]
	s.history = append(s.history[:best], s.history[best+1:]...)
	t.undo = append(t.undo, func() { s.history = append(s.history, rec) })
	return nil
}

func (s *memStore) InsertRollTx(ctx context.Context, tx pgx.Tx, roll *Roll) error {
	t := tx.(*memTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	roll.ID = s.nextID()
	roll.CreatedAt = s.tick()
	s.rolls = append(s.rolls, roll)
	t.undo = append(t.undo, func() {
		for i, x := range s.rolls {
			if x == roll {
				s.rolls = append(s.rolls[:i], s.rolls[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *memStore) BoostsByUser(ctx context.Context, userID int64) (map[int64]*boostState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]*boostState)
	for _, ro := range s.refinery {
		if ro.UserID != userID {
			continue
		}
		st := out[ro.ItemID]
		if st == nil {
			st = &boostState{}
			out[ro.ItemID] = st
		}
		st.BoostPercent += ro.BoostPercent
		st.Upgrades++
	}
	return out, nil
}

func (s *memStore) PenaltiesByUser(ctx context.Context, userID int64) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int)
	for key, m := range s.penalties {
		if key[0] == userID {
			out[key[1]] = m
		}
	}
	return out, nil
}

func (s *memStore) OrdersByUser(ctx context.Context, userID int64, limit int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for i := len(s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if s.orders[i].UserID == userID {
			cp := *s.orders[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateItem(ctx context.Context, it *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it.ID = s.nextID()
	s.items[it.ID] = it
	return nil
}

func (s *memStore) UpdateItem(ctx context.Context, it *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; !ok {
		return pgx.ErrNoRows
	}
	s.items[it.ID] = it
	return nil
}

// memLedger считает баланс по тем же правилам, что SQL-агрегат:
// earned минус (заказы кроме отменённых + история трат на апгрейды).
type memLedger struct {
	store *memStore
}

func (l *memLedger) SnapshotTx(ctx context.Context, tx pgx.Tx, userID int64) (*ledger.Snapshot, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	snap := &ledger.Snapshot{Earned: l.store.earned[userID]}
	for _, o := range l.store.orders {
		if o.UserID == userID && o.Status != OrderStatusCancelled {
			snap.Spent += o.TotalPrice
		}
	}
	for _, h := range l.store.history {
		if h.userID == userID {
			snap.Spent += h.cost
		}
	}
	snap.Balance = snap.Earned - snap.Spent
	return snap, nil
}

func (l *memLedger) CanAfford(ctx context.Context, tx pgx.Tx, userID, cost int64) (*ledger.Snapshot, error) {
	snap, err := l.SnapshotTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Balance < cost {
		return snap, common.ErrInsufficientFunds(cost, snap.Balance)
	}
	return snap, nil
}

// newTestShop собирает сервис магазина поверх in-memory хранилища.
func newTestShop(t *testing.T) (*Service, *memStore, *memLedger) {
	t.Helper()
	store := newMemStore()
	led := &memLedger{store: store}
	return NewService(store, led, notify.Noop{}), store, led
}

func (s *memStore) addUser(userID, earned int64) {
	s.mu.Lock()
	s.earned[userID] = earned
	s.mu.Unlock()
}

func (s *memStore) addItem(it *Item) *Item {
	s.mu.Lock()
	it.ID = s.nextID()
	it.Active = true
	s.items[it.ID] = it
	s.mu.Unlock()
	return it
}

func balanceOf(t *testing.T, led *memLedger, userID int64) int64 {
	t.Helper()
	snap, err := led.SnapshotTx(context.Background(), nil, userID)
	if err != nil {
		t.Fatalf("снимок баланса: %v", err)
	}
	return snap.Balance
}

func TestPurchaseConcurrentSpend(t *testing.T) {
	svc, store, led := newTestShop(t)
	store.addUser(1, 100)
	item := store.addItem(&Item{
		Name: "Паяльник", Price: 100, Stock: 10,
		BaseProbability: 40, BaseUpgradeCost: 50, CostMultiplier: 115, BoostAmount: 5,
	})

	// Баланса хватает ровно на одну покупку. Две гонящиеся транзакции
	// сериализуются на блокировке пользователя: пройти должна ровно одна.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), 1, item.ID, 1, "ул. Ленина, 1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, refused int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case common.AsError(err).Code == common.CodeInsufficientFunds:
			refused++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	if succeeded != 1 || refused != 1 {
		t.Fatalf("прошло %d покупок и %d отказов, ожидалось 1 и 1", succeeded, refused)
	}
	if got := balanceOf(t, led, 1); got != 0 {
		t.Errorf("баланс после гонки %d, ожидалось 0", got)
	}
	if item.Stock != 9 {
		t.Errorf("остаток %d, ожидалось 9: списывать можно только оплаченное", item.Stock)
	}
}

func TestTryLuckBalanceNeverNegative(t *testing.T) {
	svc, store, led := newTestShop(t)
	store.addUser(1, 1000)
	item := store.addItem(&Item{
		Name: "Осциллограф", Price: 700, Stock: 5,
		BaseProbability: 40, BaseUpgradeCost: 100, CostMultiplier: 115, BoostAmount: 10,
	})

	// Каждая попытка стоит 280; на четвёртую денег уже не хватает.
	svc.draw = func() int { return 100 } // всегда проигрыш
	for i := 0; i < 3; i++ {
		if _, err := svc.TryLuck(context.Background(), 1, item.ID); err != nil {
			t.Fatalf("попытка %d: %v", i+1, err)
		}
		if got := balanceOf(t, led, 1); got < 0 {
			t.Fatalf("баланс ушёл в минус: %d", got)
		}
	}

	_, err := svc.TryLuck(context.Background(), 1, item.ID)
	if common.AsError(err).Code != common.CodeInsufficientFunds {
		t.Fatalf("ожидался отказ по балансу, получено %v", err)
	}
	if got := balanceOf(t, led, 1); got != 160 {
		t.Errorf("баланс после отказа %d, ожидалось 160: неудачная попытка не списывает", got)
	}
}

func TestUpgradeUndoRoundTrip(t *testing.T) {
	svc, store, led := newTestShop(t)
	store.addUser(1, 1000)
	item := store.addItem(&Item{
		Name: "Мультиметр", Price: 500, Stock: 3,
		BaseProbability: 40, BaseUpgradeCost: 100, CostMultiplier: 115, BoostAmount: 10,
	})
	ctx := context.Background()

	// Два апгрейда по геометрической кривой: 100, затем 115.
	up1, err := svc.UpgradeProbability(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("первый апгрейд: %v", err)
	}
	if up1.Charged != 100 || up1.BoostPercent != 10 || up1.NewBalance != 900 {
		t.Fatalf("первый апгрейд: %+v", up1)
	}
	up2, err := svc.UpgradeProbability(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("второй апгрейд: %v", err)
	}
	if up2.Charged != 115 || up2.BoostPercent != 20 || up2.NewBalance != 785 {
		t.Fatalf("второй апгрейд: %+v", up2)
	}

	// Откат возвращает последний апгрейд: деньги, буст и цену
	// следующего апгрейда — ровно в состояние до покупки.
	undo1, err := svc.UndoLastUpgrade(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("первый откат: %v", err)
	}
	if undo1.Refunded != 115 || undo1.BoostPercent != 10 || undo1.NewBalance != 900 {
		t.Fatalf("первый откат: %+v", undo1)
	}
	if undo1.NextUpgradeCost == nil || *undo1.NextUpgradeCost != 115 {
		t.Fatalf("цена следующего апгрейда после отката: %v", undo1.NextUpgradeCost)
	}

	undo2, err := svc.UndoLastUpgrade(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("второй откат: %v", err)
	}
	if undo2.Refunded != 100 || undo2.BoostPercent != 0 || undo2.NewBalance != 1000 {
		t.Fatalf("второй откат: %+v", undo2)
	}
	if got := balanceOf(t, led, 1); got != 1000 {
		t.Errorf("баланс после полного отката %d, ожидалось 1000", got)
	}

	// Откатывать больше нечего
	_, err = svc.UndoLastUpgrade(ctx, 1, item.ID)
	if common.AsError(err).Code != common.CodeNothingToUndo {
		t.Fatalf("ожидался отказ NOTHING_TO_UNDO, получено %v", err)
	}
}

func TestTryLuckWinBurnsBoostWithoutRefund(t *testing.T) {
	svc, store, led := newTestShop(t)
	store.addUser(1, 1000)
	item := store.addItem(&Item{
		Name: "Генератор сигналов", Price: 500, Stock: 2,
		BaseProbability: 40, BaseUpgradeCost: 100, CostMultiplier: 115, BoostAmount: 10,
	})
	ctx := context.Background()

	if _, err := svc.UpgradeProbability(ctx, 1, item.ID); err != nil {
		t.Fatalf("апгрейд: %v", err)
	}

	svc.draw = func() int { return 1 } // гарантированный выигрыш
	res, err := svc.TryLuck(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("попытка: %v", err)
	}
	if !res.Won || res.Charged != 200 || res.NewPenalty != 50 || !res.BoostBurned {
		t.Fatalf("исход выигрыша: %+v", res)
	}
	if item.Stock != 1 {
		t.Errorf("остаток %d, ожидалось 1", item.Stock)
	}

	// Сгоревший буст НЕ возвращает деньги: 1000 - 100 (апгрейд) - 200 (билет)
	if got := balanceOf(t, led, 1); got != 700 {
		t.Errorf("баланс после выигрыша %d, ожидалось 700", got)
	}

	// После выигрыша откатывать нечего: апгрейды сожжены,
	// а история трат осталась.
	_, err = svc.UndoLastUpgrade(ctx, 1, item.ID)
	if common.AsError(err).Code != common.CodeNothingToUndo {
		t.Fatalf("ожидался отказ NOTHING_TO_UNDO, получено %v", err)
	}
}
