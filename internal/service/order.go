package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrMissingTarget       = errors.New("line must reference a menu item or a menu set")
	ErrMenuItemNotFound    = errors.New("menu item not found in restaurant")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrMenuSetNotFound     = errors.New("menu set not found in restaurant")
	ErrMenuSetInactive     = errors.New("menu set is inactive")
	ErrDuplicateCheckout   = errors.New("checkout already recorded")
	ErrOrderNotFound       = errors.New("order not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and delete orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	GetMenuSetForOrder(ctx context.Context, arg database.GetMenuSetForOrderParams) (database.GetMenuSetForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	DeleteOrder(ctx context.Context, arg database.DeleteOrderParams) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderLineTarget is what an order line sells: a MenuItemTarget or a
// MenuSetTarget. No other implementations exist.
type OrderLineTarget interface {
	isOrderLineTarget()
}

// MenuItemTarget is a line for a single menu item.
type MenuItemTarget struct {
	MenuItemID uuid.UUID
}

// MenuSetTarget is a line for a bundled menu set.
type MenuSetTarget struct {
	MenuSetID uuid.UUID
}

func (MenuItemTarget) isOrderLineTarget() {}
func (MenuSetTarget) isOrderLineTarget()  {}

// CreateOrderLine is a single cart line.
type CreateOrderLine struct {
	Target   OrderLineTarget
	Quantity int32
}

// CreateOrderRequest is the validated input for creating an order.
// CreatedBy is uuid.Nil when no staff user placed the order.
type CreateOrderRequest struct {
	RestaurantID uuid.UUID
	CreatedBy    uuid.UUID
	CustomerName string
	TableRef     string
	CheckoutRef  string
	Lines        []CreateOrderLine
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderPlaced describes a committed order to follow-up consumers.
type OrderPlaced struct {
	OrderID      uuid.UUID       `json:"order_id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	OrderNumber  string          `json:"order_number"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Lines        []PlacedLine    `json:"lines"`
	PlacedAt     time.Time       `json:"placed_at"`
}

// PlacedLine is one line of a placed order. Kind is enum.LineKindMenuItem or
// enum.LineKindMenuSet.
type PlacedLine struct {
	Kind     string    `json:"kind"`
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

// OrderPlacedHook runs after an order commits.
type OrderPlacedHook interface {
	OrderPlaced(ctx context.Context, evt OrderPlaced) error
}

// OrderPlacedHookFunc adapts a function to OrderPlacedHook.
type OrderPlacedHookFunc func(ctx context.Context, evt OrderPlaced) error

func (f OrderPlacedHookFunc) OrderPlaced(ctx context.Context, evt OrderPlaced) error {
	return f(ctx, evt)
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	hooks    []OrderPlacedHook
}

// NewOrderService creates a new OrderService. Hooks run in order after each
// successful CreateOrder.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, hooks ...OrderPlacedHook) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, hooks: hooks}
}

// CreateOrder validates, prices, and persists an order with its lines in one
// transaction, then notifies the registered hooks. Hook failures are logged
// and never fail the order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate lines ---
	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		switch line.Target.(type) {
		case MenuItemTarget, MenuSetTarget:
		default:
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMissingTarget)
		}
	}

	// Retry loop: handles order_number unique constraint race condition.
	var (
		result  *CreateOrderResult
		lastErr error
	)
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, lastErr = s.createOrderTx(ctx, req)
		if lastErr == nil || !isOrderNumberConflict(lastErr) {
			break
		}
	}
	if lastErr != nil {
		if isCheckoutConflict(lastErr) {
			return nil, ErrDuplicateCheckout
		}
		return nil, lastErr
	}

	s.dispatch(ctx, result)
	return result, nil
}

// dispatch hands the committed order to every hook. It detaches from the
// request's cancellation so a disconnecting client does not abort follow-up work.
func (s *OrderService) dispatch(ctx context.Context, result *CreateOrderResult) {
	if len(s.hooks) == 0 {
		return
	}
	evt := OrderPlacedFromResult(result)
	hookCtx := context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		if err := h.OrderPlaced(hookCtx, evt); err != nil {
			log.Printf("ERROR: order %s placed hook: %v", evt.OrderNumber, err)
		}
	}
}

// DeleteOrder hard-deletes an order and its lines in one transaction. Stock
// already consumed by the order is not restored.
func (s *OrderService) DeleteOrder(ctx context.Context, restaurantID, orderID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.DeleteOrderItemsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	n, err := store.DeleteOrder(ctx, database.DeleteOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_restaurant_id_order_number_key"
	}
	return false
}

func isCheckoutConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_checkout_ref_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Price lines from current menu prices ---
	total := decimal.Zero
	items := make([]database.CreateOrderItemParams, 0, len(req.Lines))

	for i, line := range req.Lines {
		params := database.CreateOrderItemParams{Quantity: line.Quantity}
		var unitPrice decimal.Decimal

		switch target := line.Target.(type) {
		case MenuItemTarget:
			mi, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
				ID:           target.MenuItemID,
				RestaurantID: req.RestaurantID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
				}
				return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
			}
			if !mi.IsAvailable {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
			}
			unitPrice = numericToDecimal(mi.Price)
			params.MenuItemID = pgtype.UUID{Bytes: target.MenuItemID, Valid: true}

		case MenuSetTarget:
			ms, err := store.GetMenuSetForOrder(ctx, database.GetMenuSetForOrderParams{
				ID:           target.MenuSetID,
				RestaurantID: req.RestaurantID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuSetNotFound)
				}
				return nil, fmt.Errorf("item[%d]: get menu set: %w", i, err)
			}
			if ms.Status != database.MenuSetStatusActive {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuSetInactive)
			}
			unitPrice = numericToDecimal(ms.Price)
			params.MenuSetID = pgtype.UUID{Bytes: target.MenuSetID, Valid: true}
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		params.UnitPrice = decimalToNumeric(unitPrice)
		params.TotalPrice = decimalToNumeric(lineTotal)
		total = total.Add(lineTotal)
		items = append(items, params)
	}

	// --- Generate order number ---
	nextNum, err := store.GetNextOrderNumber(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	// --- Insert order ---
	customerName := req.CustomerName
	if customerName == "" {
		customerName = enum.DefaultCustomerName
	}
	tableRef := req.TableRef
	if tableRef == "" {
		tableRef = enum.DefaultTableRef
	}
	checkoutRef := pgtype.Text{}
	if req.CheckoutRef != "" {
		checkoutRef = pgtype.Text{String: req.CheckoutRef, Valid: true}
	}
	createdBy := pgtype.UUID{}
	if req.CreatedBy != uuid.Nil {
		createdBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID: req.RestaurantID,
		OrderNumber:  fmt.Sprintf("ORD-%03d", nextNum),
		CustomerName: customerName,
		TableRef:     tableRef,
		TotalAmount:  decimalToNumeric(total),
		CheckoutRef:  checkoutRef,
		CreatedBy:    createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	created := make([]database.OrderItem, 0, len(items))
	for _, params := range items {
		params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Items: created,
	}, nil
}

// OrderPlacedFromResult builds the follow-up event for a created order.
func OrderPlacedFromResult(result *CreateOrderResult) OrderPlaced {
	lines := make([]PlacedLine, 0, len(result.Items))
	for _, it := range result.Items {
		lines = append(lines, placedLine(it.MenuItemID, it.MenuSetID, it.Quantity))
	}
	return OrderPlaced{
		OrderID:      result.Order.ID,
		RestaurantID: result.Order.RestaurantID,
		OrderNumber:  result.Order.OrderNumber,
		TotalAmount:  numericToDecimal(result.Order.TotalAmount),
		Lines:        lines,
		PlacedAt:     result.Order.CreatedAt,
	}
}

// PlacedLinesFromRows rebuilds placed lines from stored order items.
func PlacedLinesFromRows(rows []database.ListOrderItemsByOrderRow) []PlacedLine {
	lines := make([]PlacedLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, placedLine(r.MenuItemID, r.MenuSetID, r.Quantity))
	}
	return lines
}

func placedLine(menuItemID, menuSetID pgtype.UUID, qty int32) PlacedLine {
	if menuSetID.Valid {
		return PlacedLine{Kind: enum.LineKindMenuSet, ID: menuSetID.Bytes, Quantity: qty}
	}
	return PlacedLine{Kind: enum.LineKindMenuItem, ID: menuItemID.Bytes, Quantity: qty}
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// stockToNumeric keeps the three fractional digits used for stock quantities.
func stockToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(3))
	return n
}
