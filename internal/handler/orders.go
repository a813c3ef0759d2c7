package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/middleware"
	"github.com/restodesk/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	DeleteOrder(ctx context.Context, restaurantID, orderID uuid.UUID) error
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
}

// OrderStatusNotifier is told about committed status changes.
type OrderStatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order database.Order)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	notifier OrderStatusNotifier
}

// NewOrderHandler creates a new OrderHandler. notifier may be nil.
func NewOrderHandler(svc OrderServicer, store OrderStore, notifier OrderStatusNotifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName string                   `json:"customer_name"`
	TableRef     string                   `json:"table"`
	Items        []createOrderLineRequest `json:"items"`
}

// createOrderLineRequest names exactly one of MenuItemID or MenuSetID.
type createOrderLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	MenuSetID  string `json:"menu_set_id"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	RestaurantID uuid.UUID           `json:"restaurant_id"`
	OrderNumber  string              `json:"order_number"`
	CustomerName string              `json:"customer_name"`
	TableRef     string              `json:"table"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"total_amount"`
	CheckoutRef  *string             `json:"checkout_ref"`
	CreatedBy    *uuid.UUID          `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Items        []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID  `json:"id"`
	MenuItemID *uuid.UUID `json:"menu_item_id"`
	MenuSetID  *uuid.UUID `json:"menu_set_id"`
	Name       string     `json:"name,omitempty"`
	Quantity   int32      `json:"quantity"`
	UnitPrice  string     `json:"unit_price"`
	TotalPrice string     `json:"total_price"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines := make([]service.CreateOrderLine, len(req.Items))
	for i, item := range req.Items {
		target, msg := parseLineTarget(item.MenuItemID, item.MenuSetID)
		if msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, msg)})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
		lines[i] = service.CreateOrderLine{Target: target, Quantity: item.Quantity}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID: restaurantID,
		CreatedBy:    claims.UserID,
		CustomerName: req.CustomerName,
		TableRef:     req.TableRef,
		Lines:        lines,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /restaurants/{rid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		RestaurantID: restaurantID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := database.OrderStatus(s)
		if !isValidOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = database.NullOrderStatus{OrderStatus: status, Valid: true}
	}
	if r.URL.Query().Get("start_date") != "" || r.URL.Query().Get("end_date") != "" {
		start, end, err := parseDateRange(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: start, Valid: true}
		params.EndDate = pgtype.Timestamptz{Time: end, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseScopedID(w, r, "order")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemToResponse(item.ID, item.MenuItemID, item.MenuSetID, item.Quantity, item.UnitPrice, item.TotalPrice)
		resp.Items[i].Name = item.ItemName
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /restaurants/{rid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseScopedID(w, r, "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	newStatus := database.OrderStatus(req.Status)
	if !isValidOrderStatus(newStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateStatusTransition(current.Status, newStatus); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:           orderID,
		RestaurantID: restaurantID,
		Status:       newStatus,
		Status_2:     current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyStatus(r.Context(), updated)
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Cancel handles POST /restaurants/{rid}/orders/{id}/cancel. Stock consumed by
// the order is not restored.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseScopedID(w, r, "order")
	if !ok {
		return
	}

	// CancelOrder only matches orders that are neither delivered nor cancelled.
	cancelled, err := h.store.CancelOrder(r.Context(), database.CancelOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, fetchErr := h.store.GetOrder(r.Context(), database.GetOrderParams{
				ID:           orderID,
				RestaurantID: restaurantID,
			})
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
					return
				}
				log.Printf("ERROR: get order for cancel: %v", fetchErr)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			switch current.Status {
			case database.OrderStatusDelivered:
				writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot cancel a delivered order"})
			case database.OrderStatusCancelled:
				writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already cancelled"})
			default:
				writeJSON(w, http.StatusConflict, map[string]string{"error": "order cannot be cancelled"})
			}
			return
		}
		log.Printf("ERROR: cancel order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.notifyStatus(r.Context(), cancelled)
	writeJSON(w, http.StatusOK, dbOrderToResponse(cancelled))
}

// Delete handles DELETE /restaurants/{rid}/orders/{id}. The order and its
// lines are removed; stock is not restored.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseScopedID(w, r, "order")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), restaurantID, orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *OrderHandler) notifyStatus(ctx context.Context, o database.Order) {
	if h.notifier != nil {
		h.notifier.OrderStatusChanged(ctx, o)
	}
}

// parseLineTarget returns the line target or a validation message.
func parseLineTarget(menuItemID, menuSetID string) (service.OrderLineTarget, string) {
	switch {
	case menuItemID != "" && menuSetID != "":
		return nil, "only one of menu_item_id or menu_set_id may be set"
	case menuItemID != "":
		id, err := uuid.Parse(menuItemID)
		if err != nil {
			return nil, "invalid menu_item_id"
		}
		return service.MenuItemTarget{MenuItemID: id}, ""
	case menuSetID != "":
		id, err := uuid.Parse(menuSetID)
		if err != nil {
			return nil, "invalid menu_set_id"
		}
		return service.MenuSetTarget{MenuSetID: id}, ""
	default:
		return nil, "menu_item_id or menu_set_id is required"
	}
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrMissingTarget) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrMenuSetNotFound) ||
		errors.Is(err, service.ErrMenuSetInactive)
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = orderItemToResponse(item.ID, item.MenuItemID, item.MenuSetID, item.Quantity, item.UnitPrice, item.TotalPrice)
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TableRef:     o.TableRef,
		Status:       string(o.Status),
		TotalAmount:  numericToString(o.TotalAmount),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.CheckoutRef.Valid {
		resp.CheckoutRef = &o.CheckoutRef.String
	}
	if o.CreatedBy.Valid {
		id := uuid.UUID(o.CreatedBy.Bytes)
		resp.CreatedBy = &id
	}
	return resp
}

func orderItemToResponse(id uuid.UUID, menuItemID, menuSetID pgtype.UUID, qty int32, unit, total pgtype.Numeric) orderItemResponse {
	resp := orderItemResponse{
		ID:         id,
		Quantity:   qty,
		UnitPrice:  numericToString(unit),
		TotalPrice: numericToString(total),
	}
	if menuItemID.Valid {
		v := uuid.UUID(menuItemID.Bytes)
		resp.MenuItemID = &v
	}
	if menuSetID.Valid {
		v := uuid.UUID(menuSetID.Bytes)
		resp.MenuSetID = &v
	}
	return resp
}

// isValidOrderStatus checks if the given status is a valid order status.
func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending,
		database.OrderStatusPreparing,
		database.OrderStatusReady,
		database.OrderStatusDelivered,
		database.OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:   {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing: {database.OrderStatusReady, database.OrderStatusCancelled},
	database.OrderStatusReady:     {database.OrderStatusDelivered, database.OrderStatusCancelled},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
