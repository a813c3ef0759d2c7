package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx     pgx.Tx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn  func(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	getMenuItemForOrderFn func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	getMenuSetForOrderFn  func(ctx context.Context, arg database.GetMenuSetForOrderParams) (database.GetMenuSetForOrderRow, error)
	createOrderFn         func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn     func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	deleteOrderItemsFn    func(ctx context.Context, orderID uuid.UUID) (int64, error)
	deleteOrderFn         func(ctx context.Context, arg database.DeleteOrderParams) (int64, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	return m.getNextOrderNumberFn(ctx, restaurantID)
}
func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
	return m.getMenuItemForOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetMenuSetForOrder(ctx context.Context, arg database.GetMenuSetForOrderParams) (database.GetMenuSetForOrderRow, error) {
	return m.getMenuSetForOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.deleteOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) DeleteOrder(ctx context.Context, arg database.DeleteOrderParams) (int64, error) {
	return m.deleteOrderFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
// store is the mock OrderStore that will be returned by the NewOrderStore factory.
func newTestService(store *mockOrderStore, hooks ...OrderPlacedHook) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, hooks...), tx
}

// defaultStore returns a mockOrderStore that knows one menu item priced at
// 12.50 and one active menu set priced at 20.00.
// Individual tests override the functions they care about.
func defaultStore(restaurantID, menuItemID, menuSetID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context, rid uuid.UUID) (int32, error) {
			return 1, nil
		},
		getMenuItemForOrderFn: func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
			if arg.ID == menuItemID && arg.RestaurantID == restaurantID {
				return database.GetMenuItemForOrderRow{
					ID:          menuItemID,
					Name:        "Burger",
					Price:       makeNumeric("12.50"),
					IsAvailable: true,
				}, nil
			}
			return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
		},
		getMenuSetForOrderFn: func(ctx context.Context, arg database.GetMenuSetForOrderParams) (database.GetMenuSetForOrderRow, error) {
			if arg.ID == menuSetID && arg.RestaurantID == restaurantID {
				return database.GetMenuSetForOrderRow{
					ID:     menuSetID,
					Name:   "Lunch Set",
					Price:  makeNumeric("20.00"),
					Status: database.MenuSetStatusActive,
				}, nil
			}
			return database.GetMenuSetForOrderRow{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:           uuid.New(),
				RestaurantID: arg.RestaurantID,
				OrderNumber:  arg.OrderNumber,
				CustomerName: arg.CustomerName,
				TableRef:     arg.TableRef,
				Status:       database.OrderStatusPending,
				TotalAmount:  arg.TotalAmount,
				CheckoutRef:  arg.CheckoutRef,
				CreatedBy:    arg.CreatedBy,
				CreatedAt:    time.Now(),
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				MenuSetID:  arg.MenuSetID,
				Quantity:   arg.Quantity,
				UnitPrice:  arg.UnitPrice,
				TotalPrice: arg.TotalPrice,
			}, nil
		},
		deleteOrderItemsFn: func(ctx context.Context, orderID uuid.UUID) (int64, error) {
			return 1, nil
		},
		deleteOrderFn: func(ctx context.Context, arg database.DeleteOrderParams) (int64, error) {
			return 1, nil
		},
	}
}

func basicReq(restaurantID, menuItemID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		RestaurantID: restaurantID,
		CreatedBy:    uuid.New(),
		CustomerName: "Ayla",
		TableRef:     "T4",
		Lines: []CreateOrderLine{
			{Target: MenuItemTarget{MenuItemID: menuItemID}, Quantity: 2},
		},
	}
}

// recordingHook captures OrderPlaced events.
type recordingHook struct {
	events []OrderPlaced
	err    error
}

func (h *recordingHook) OrderPlaced(ctx context.Context, evt OrderPlaced) error {
	h.events = append(h.events, evt)
	return h.err
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	store := defaultStore(uuid.New(), uuid.New(), uuid.New())
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: uuid.New(),
		Lines:        nil,
	})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())
	svc, _ := newTestService(store)

	req := basicReq(rid, mid)
	req.Lines[0].Quantity = 0
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
	if !strings.Contains(err.Error(), "item[0]") {
		t.Errorf("expected line index in error, got: %v", err)
	}
}

func TestCreateOrder_MissingTarget(t *testing.T) {
	rid := uuid.New()
	store := defaultStore(rid, uuid.New(), uuid.New())
	store.getMenuItemForOrderFn = func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
		t.Fatal("no store calls expected for an invalid line")
		return database.GetMenuItemForOrderRow{}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: rid,
		Lines:        []CreateOrderLine{{Target: nil, Quantity: 1}},
	})
	if !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("expected ErrMissingTarget, got: %v", err)
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	rid := uuid.New()
	store := defaultStore(rid, uuid.New(), uuid.New()) // store knows a different item
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(rid, uuid.New()))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestCreateOrder_MenuItemOfOtherRestaurant(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.New(), mid))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

func TestCreateOrder_MenuItemUnavailable(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())
	store.getMenuItemForOrderFn = func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
		return database.GetMenuItemForOrderRow{ID: mid, Price: makeNumeric("5.00"), IsAvailable: false}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got: %v", err)
	}
}

func TestCreateOrder_MenuSetNotFound(t *testing.T) {
	rid := uuid.New()
	store := defaultStore(rid, uuid.New(), uuid.New())
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: rid,
		Lines:        []CreateOrderLine{{Target: MenuSetTarget{MenuSetID: uuid.New()}, Quantity: 1}},
	})
	if !errors.Is(err, ErrMenuSetNotFound) {
		t.Fatalf("expected ErrMenuSetNotFound, got: %v", err)
	}
}

func TestCreateOrder_MenuSetInactive(t *testing.T) {
	rid, sid := uuid.New(), uuid.New()
	store := defaultStore(rid, uuid.New(), sid)
	store.getMenuSetForOrderFn = func(ctx context.Context, arg database.GetMenuSetForOrderParams) (database.GetMenuSetForOrderRow, error) {
		return database.GetMenuSetForOrderRow{ID: sid, Price: makeNumeric("20.00"), Status: database.MenuSetStatusInactive}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: rid,
		Lines:        []CreateOrderLine{{Target: MenuSetTarget{MenuSetID: sid}, Quantity: 1}},
	})
	if !errors.Is(err, ErrMenuSetInactive) {
		t.Fatalf("expected ErrMenuSetInactive, got: %v", err)
	}
}

// =====================
// Pricing tests
// =====================

func TestCreateOrder_BasicPrice(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	var capturedItem database.CreateOrderItemParams
	innerItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		capturedItem = arg
		return innerItem(ctx, arg)
	}

	svc, tx := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// unit_price is the stored menu price
	if !numericEquals(capturedItem.UnitPrice, "12.50") {
		t.Errorf("item unit_price: got %v, want 12.50", numericToDecimal(capturedItem.UnitPrice))
	}
	// total_price = 12.50 * 2
	if !numericEquals(capturedItem.TotalPrice, "25.00") {
		t.Errorf("item total_price: got %v, want 25.00", numericToDecimal(capturedItem.TotalPrice))
	}
	if !capturedItem.MenuItemID.Valid || capturedItem.MenuSetID.Valid {
		t.Errorf("item should reference only the menu item: %+v", capturedItem)
	}
	if !numericEquals(captured.TotalAmount, "25.00") {
		t.Errorf("order total: got %v, want 25.00", numericToDecimal(captured.TotalAmount))
	}
	if captured.OrderNumber != "ORD-001" {
		t.Errorf("order number: got %q, want ORD-001", captured.OrderNumber)
	}
	if captured.CustomerName != "Ayla" || captured.TableRef != "T4" {
		t.Errorf("header: got customer %q table %q", captured.CustomerName, captured.TableRef)
	}
	if captured.CheckoutRef.Valid {
		t.Error("checkout_ref should be NULL when not provided")
	}
	if len(result.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(result.Items))
	}
	if tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", tx.commits)
	}
}

func TestCreateOrder_MixedItemsAndSets(t *testing.T) {
	rid, mid, sid := uuid.New(), uuid.New(), uuid.New()
	store := defaultStore(rid, mid, sid)

	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: rid,
		Lines: []CreateOrderLine{
			{Target: MenuItemTarget{MenuItemID: mid}, Quantity: 3}, // 37.50
			{Target: MenuSetTarget{MenuSetID: sid}, Quantity: 2},   // 40.00
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(captured.TotalAmount, "77.50") {
		t.Errorf("order total: got %v, want 77.50", numericToDecimal(captured.TotalAmount))
	}
	if len(result.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(result.Items))
	}
	if !result.Items[1].MenuSetID.Valid || result.Items[1].MenuItemID.Valid {
		t.Errorf("second line should reference only the set: %+v", result.Items[1])
	}
	if !numericEquals(result.Items[1].UnitPrice, "20.00") {
		t.Errorf("set unit_price: got %v, want 20.00", numericToDecimal(result.Items[1].UnitPrice))
	}
}

func TestCreateOrder_DefaultsCustomerAndTable(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestService(store)
	req := basicReq(rid, mid)
	req.CustomerName = ""
	req.TableRef = ""
	req.CreatedBy = uuid.Nil
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.CustomerName != enum.DefaultCustomerName {
		t.Errorf("customer name: got %q, want %q", captured.CustomerName, enum.DefaultCustomerName)
	}
	if captured.TableRef != enum.DefaultTableRef {
		t.Errorf("table ref: got %q, want %q", captured.TableRef, enum.DefaultTableRef)
	}
	if captured.CreatedBy.Valid {
		t.Error("created_by should be NULL without an acting user")
	}
}

func TestCreateOrder_SubsequentOrderNumber(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())
	store.getNextOrderNumberFn = func(ctx context.Context, r uuid.UUID) (int32, error) {
		return 42, nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.OrderNumber != "ORD-042" {
		t.Errorf("order number: got %q, want ORD-042", result.Order.OrderNumber)
	}
}

// =====================
// Retry / conflict tests
// =====================

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	createCallCount := 0
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_restaurant_id_order_number_key",
			}
		}
		return inner(ctx, arg)
	}

	orderNumCallCount := 0
	store.getNextOrderNumberFn = func(ctx context.Context, r uuid.UUID) (int32, error) {
		orderNumCallCount++
		return int32(orderNumCallCount), nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if result.Order.OrderNumber != "ORD-002" {
		t.Errorf("order number: got %q, want ORD-002", result.Order.OrderNumber)
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCallCount)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_restaurant_id_order_number_key",
		}
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
	if calls != maxOrderNumberRetries {
		t.Errorf("calls: got %d, want %d", calls, maxOrderNumberRetries)
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	callCount := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, errors.New("some other DB error")
	}

	svc, _ := newTestService(store)
	if _, err := svc.CreateOrder(context.Background(), basicReq(rid, mid)); err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("non-unique errors should not retry: expected 1 call, got %d", callCount)
	}
}

func TestCreateOrder_DuplicateCheckout(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	callCount := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_checkout_ref_key",
		}
	}

	hook := &recordingHook{}
	svc, _ := newTestService(store, hook)
	req := basicReq(rid, mid)
	req.CheckoutRef = "cs_test_123"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrDuplicateCheckout) {
		t.Fatalf("expected ErrDuplicateCheckout, got: %v", err)
	}
	if callCount != 1 {
		t.Errorf("checkout conflicts should not retry: got %d calls", callCount)
	}
	if len(hook.events) != 0 {
		t.Error("hooks must not run for a rejected order")
	}
}

func TestCreateOrder_LineInsertFailureNotCommitted(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{}, errors.New("insert failed")
	}

	hook := &recordingHook{}
	svc, tx := newTestService(store, hook)
	_, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err == nil || !strings.Contains(err.Error(), "create order item") {
		t.Fatalf("expected create order item error, got: %v", err)
	}
	if tx.commits != 0 {
		t.Errorf("header must not commit without its lines: got %d commits", tx.commits)
	}
	if len(hook.events) != 0 {
		t.Error("hooks must not run for a failed order")
	}
}

// =====================
// Hook tests
// =====================

func TestCreateOrder_HookReceivesPlacedOrder(t *testing.T) {
	rid, mid, sid := uuid.New(), uuid.New(), uuid.New()
	store := defaultStore(rid, mid, sid)

	hook := &recordingHook{}
	svc, _ := newTestService(store, hook)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: rid,
		Lines: []CreateOrderLine{
			{Target: MenuItemTarget{MenuItemID: mid}, Quantity: 2},
			{Target: MenuSetTarget{MenuSetID: sid}, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hook.events) != 1 {
		t.Fatalf("hook events: got %d, want 1", len(hook.events))
	}
	evt := hook.events[0]
	if evt.OrderID != result.Order.ID || evt.RestaurantID != rid {
		t.Errorf("event ids: got order %v restaurant %v", evt.OrderID, evt.RestaurantID)
	}
	if !evt.TotalAmount.Equal(decimal.RequireFromString("45.00")) {
		t.Errorf("event total: got %s, want 45.00", evt.TotalAmount)
	}
	want := []PlacedLine{
		{Kind: enum.LineKindMenuItem, ID: mid, Quantity: 2},
		{Kind: enum.LineKindMenuSet, ID: sid, Quantity: 1},
	}
	if len(evt.Lines) != len(want) {
		t.Fatalf("event lines: got %d, want %d", len(evt.Lines), len(want))
	}
	for i := range want {
		if evt.Lines[i] != want[i] {
			t.Errorf("line[%d]: got %+v, want %+v", i, evt.Lines[i], want[i])
		}
	}
}

func TestCreateOrder_HookFailureDoesNotFailOrder(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	failing := &recordingHook{err: errors.New("inventory down")}
	after := &recordingHook{}
	svc, _ := newTestService(store, failing, after)

	result, err := svc.CreateOrder(context.Background(), basicReq(rid, mid))
	if err != nil {
		t.Fatalf("hook failure must not fail the order: %v", err)
	}
	if result == nil {
		t.Fatal("expected result")
	}
	if len(after.events) != 1 {
		t.Error("later hooks should still run after a failing hook")
	}
}

func TestCreateOrder_HookContextSurvivesCancel(t *testing.T) {
	rid, mid := uuid.New(), uuid.New()
	store := defaultStore(rid, mid, uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	var hookErr error
	hook := OrderPlacedHookFunc(func(hctx context.Context, evt OrderPlaced) error {
		cancel()
		hookErr = hctx.Err()
		return nil
	})

	svc, _ := newTestService(store, hook)
	if _, err := svc.CreateOrder(ctx, basicReq(rid, mid)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hookErr != nil {
		t.Errorf("hook context should not be cancelled with the request: %v", hookErr)
	}
}

// =====================
// Delete tests
// =====================

func TestDeleteOrder_RemovesLinesThenHeader(t *testing.T) {
	rid, oid := uuid.New(), uuid.New()
	store := defaultStore(rid, uuid.New(), uuid.New())

	var calls []string
	store.deleteOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) (int64, error) {
		calls = append(calls, "items")
		return 2, nil
	}
	store.deleteOrderFn = func(ctx context.Context, arg database.DeleteOrderParams) (int64, error) {
		calls = append(calls, "order")
		if arg.ID != oid || arg.RestaurantID != rid {
			t.Errorf("delete params: got %+v", arg)
		}
		return 1, nil
	}

	svc, tx := newTestService(store)
	if err := svc.DeleteOrder(context.Background(), rid, oid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(calls, ",") != "items,order" {
		t.Errorf("call order: got %v", calls)
	}
	if tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", tx.commits)
	}
}

func TestDeleteOrder_NotFound(t *testing.T) {
	store := defaultStore(uuid.New(), uuid.New(), uuid.New())
	store.deleteOrderFn = func(ctx context.Context, arg database.DeleteOrderParams) (int64, error) {
		return 0, nil
	}

	svc, tx := newTestService(store)
	err := svc.DeleteOrder(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
	if tx.commits != 0 {
		t.Error("nothing should commit when the order is missing")
	}
}

func TestPlacedLinesFromRows(t *testing.T) {
	mid, sid := uuid.New(), uuid.New()
	lines := PlacedLinesFromRows([]database.ListOrderItemsByOrderRow{
		{MenuItemID: pgtype.UUID{Bytes: mid, Valid: true}, Quantity: 2},
		{MenuSetID: pgtype.UUID{Bytes: sid, Valid: true}, Quantity: 1},
	})
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	if lines[0].Kind != enum.LineKindMenuItem || lines[0].ID != mid {
		t.Errorf("line[0]: got %+v", lines[0])
	}
	if lines[1].Kind != enum.LineKindMenuSet || lines[1].ID != sid {
		t.Errorf("line[1]: got %+v", lines[1])
	}
}
