package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/middleware"
	"github.com/restodesk/api/internal/service"
)

// CheckoutOrderCreator persists the order for a completed checkout.
// Satisfied by *service.OrderService.
type CheckoutOrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// CheckoutUserStore looks up the acting user for the customer name.
// Satisfied by *database.Queries; narrow interface for testability.
type CheckoutUserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// CheckoutGuard remembers checkout sessions that already produced an order.
// Satisfied by *cache.RedisCache.
type CheckoutGuard interface {
	ClaimCheckout(ctx context.Context, restaurantID uuid.UUID, sessionID string) (bool, error)
	ReleaseCheckout(ctx context.Context, restaurantID uuid.UUID, sessionID string) error
}

// CheckoutHandler saves the order once payment succeeded.
type CheckoutHandler struct {
	orders CheckoutOrderCreator
	users  CheckoutUserStore
	guard  CheckoutGuard
}

// NewCheckoutHandler creates a new CheckoutHandler. guard may be nil, in which
// case only the unique checkout_ref column rejects duplicates.
func NewCheckoutHandler(orders CheckoutOrderCreator, users CheckoutUserStore, guard CheckoutGuard) *CheckoutHandler {
	return &CheckoutHandler{orders: orders, users: users, guard: guard}
}

// RegisterRoutes registers checkout endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/checkout
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/complete", h.Complete)
}

// --- Request types ---

type completeCheckoutRequest struct {
	SessionID string             `json:"session_id"`
	Table     string             `json:"table"`
	Items     []checkoutCartLine `json:"items"`
}

type checkoutCartLine struct {
	ID       string `json:"id"`
	Quantity int32  `json:"quantity"`
	IsSet    bool   `json:"is_set"`
}

// --- Handlers ---

// Complete handles POST /restaurants/{rid}/checkout/complete.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
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

	var req completeCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines := make([]service.CreateOrderLine, len(req.Items))
	for i, item := range req.Items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "invalid id")})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
		var target service.OrderLineTarget = service.MenuItemTarget{MenuItemID: id}
		if item.IsSet {
			target = service.MenuSetTarget{MenuSetID: id}
		}
		lines[i] = service.CreateOrderLine{Target: target, Quantity: item.Quantity}
	}

	claimed := false
	if h.guard != nil {
		ok, err := h.guard.ClaimCheckout(r.Context(), restaurantID, req.SessionID)
		if err != nil {
			log.Printf("WARN: checkout marker for session %s: %v", req.SessionID, err)
		} else if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "checkout already completed"})
			return
		} else {
			claimed = true
		}
	}

	table := req.Table
	if table == "" {
		table = enum.DefaultTableRef
	}

	result, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID: restaurantID,
		CreatedBy:    claims.UserID,
		CustomerName: h.customerName(r.Context(), claims.UserID),
		TableRef:     table,
		CheckoutRef:  req.SessionID,
		Lines:        lines,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateCheckout) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "checkout already completed"})
			return
		}
		if claimed {
			if relErr := h.guard.ReleaseCheckout(context.WithoutCancel(r.Context()), restaurantID, req.SessionID); relErr != nil {
				log.Printf("WARN: release checkout marker for session %s: %v", req.SessionID, relErr)
			}
		}
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: complete checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// --- Helpers ---

func (h *CheckoutHandler) customerName(ctx context.Context, userID uuid.UUID) string {
	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		return enum.DefaultCustomerName
	}
	if user.FullName == "" {
		return enum.DefaultCustomerName
	}
	return user.FullName
}
