package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/service"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]database.Inventory, error)
	ListLowStockInventory(ctx context.Context, restaurantID uuid.UUID) ([]database.Inventory, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.Inventory, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.Inventory, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.Inventory, error)
	DeleteInventoryItem(ctx context.Context, arg database.DeleteInventoryItemParams) (int64, error)
	AdjustInventoryStock(ctx context.Context, arg database.AdjustInventoryStockParams) (database.AdjustInventoryStockRow, error)
}

// InventoryHandler handles inventory CRUD and manual stock adjustments.
type InventoryHandler struct {
	store    InventoryStore
	notifier service.LowStockNotifier
}

// NewInventoryHandler creates a new InventoryHandler. notifier may be nil.
func NewInventoryHandler(store InventoryStore, notifier service.LowStockNotifier) *InventoryHandler {
	return &InventoryHandler{store: store, notifier: notifier}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/adjust", h.Adjust)
}

// --- Request / Response types ---

type inventoryRequest struct {
	ItemName     string `json:"item_name"`
	Category     string `json:"category"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
	Unit         string `json:"unit"`
	Supplier     string `json:"supplier"`
}

type adjustStockRequest struct {
	Delta  string `json:"delta"`
	Reason string `json:"reason"`
}

type inventoryResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	ItemName     string    `json:"item_name"`
	Category     *string   `json:"category"`
	CurrentStock string    `json:"current_stock"`
	MinStock     string    `json:"min_stock"`
	Unit         string    `json:"unit"`
	Supplier     *string   `json:"supplier"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toInventoryResponse(inv database.Inventory) inventoryResponse {
	resp := inventoryResponse{
		ID:           inv.ID,
		RestaurantID: inv.RestaurantID,
		ItemName:     inv.ItemName,
		CurrentStock: stockToString(inv.CurrentStock),
		MinStock:     stockToString(inv.MinStock),
		Unit:         inv.Unit,
		Status:       service.StockStatus(numericToDecimal(inv.CurrentStock), numericToDecimal(inv.MinStock)),
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
	if inv.Category.Valid {
		resp.Category = &inv.Category.String
	}
	if inv.Supplier.Valid {
		resp.Supplier = &inv.Supplier.String
	}
	return resp
}

func toInventoryList(rows []database.Inventory) []inventoryResponse {
	resp := make([]inventoryResponse, len(rows))
	for i, inv := range rows {
		resp[i] = toInventoryResponse(inv)
	}
	return resp
}

type validInventory struct {
	req     inventoryRequest
	current pgtype.Numeric
	minimum pgtype.Numeric
}

func decodeInventory(w http.ResponseWriter, r *http.Request) (validInventory, bool) {
	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return validInventory{}, false
	}
	if req.ItemName == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_name and unit are required"})
		return validInventory{}, false
	}
	if req.CurrentStock == "" {
		req.CurrentStock = "0"
	}
	if req.MinStock == "" {
		req.MinStock = "0"
	}
	cur, curN, err := parseStock(req.CurrentStock)
	if err != nil || cur.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current_stock must be a number >= 0"})
		return validInventory{}, false
	}
	minStock, minN, err := parseStock(req.MinStock)
	if err != nil || minStock.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_stock must be a number >= 0"})
		return validInventory{}, false
	}
	return validInventory{req: req, current: curN, minimum: minN}, true
}

// --- Handlers ---

// List returns every inventory item of the restaurant with its stock status.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	rows, err := h.store.ListInventory(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryList(rows))
}

// ListLowStock returns items whose current stock is below their minimum.
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	rows, err := h.store.ListLowStockInventory(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list low stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryList(rows))
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, id, ok := parseScopedID(w, r, "inventory")
	if !ok {
		return
	}

	inv, err := h.store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: get inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(inv))
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	v, ok := decodeInventory(w, r)
	if !ok {
		return
	}

	inv, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		RestaurantID: restaurantID,
		ItemName:     v.req.ItemName,
		Category:     optionalText(v.req.Category),
		CurrentStock: v.current,
		MinStock:     v.minimum,
		Unit:         v.req.Unit,
		Supplier:     optionalText(v.req.Supplier),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "inventory item already exists"})
			return
		}
		log.Printf("ERROR: create inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryResponse(inv))
}

// Update overwrites an inventory row, including its stock level. Use Adjust
// for relative changes.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, id, ok := parseScopedID(w, r, "inventory")
	if !ok {
		return
	}

	v, ok := decodeInventory(w, r)
	if !ok {
		return
	}

	inv, err := h.store.UpdateInventoryItem(r.Context(), database.UpdateInventoryItemParams{
		ID:           id,
		RestaurantID: restaurantID,
		ItemName:     v.req.ItemName,
		Category:     optionalText(v.req.Category),
		CurrentStock: v.current,
		MinStock:     v.minimum,
		Unit:         v.req.Unit,
		Supplier:     optionalText(v.req.Supplier),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "inventory item already exists"})
			return
		}
		log.Printf("ERROR: update inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(inv))
}

// Delete removes an inventory item. Items still used as ingredients cannot be
// deleted.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, id, ok := parseScopedID(w, r, "inventory")
	if !ok {
		return
	}

	n, err := h.store.DeleteInventoryItem(r.Context(), database.DeleteInventoryItemParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "inventory item is used as an ingredient"})
			return
		}
		log.Printf("ERROR: delete inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adjust adds delta (negative to remove) to current stock, clamping at zero.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	restaurantID, id, ok := parseScopedID(w, r, "inventory")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	delta, deltaN, err := parseStock(req.Delta)
	if err != nil || delta.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be a non-zero number"})
		return
	}

	row, err := h.store.AdjustInventoryStock(r.Context(), database.AdjustInventoryStockParams{
		ID:           id,
		RestaurantID: restaurantID,
		Delta:        deltaN,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: adjust inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	inv := row.Inventory
	log.Printf("INFO: inventory %s adjusted by %s (%s)", inv.ItemName, delta.String(), req.Reason)

	// The stored value is clamped, so the previous level comes from the row.
	current := numericToDecimal(inv.CurrentStock)
	minStock := numericToDecimal(inv.MinStock)
	previous := numericToDecimal(row.PreviousStock)
	if h.notifier != nil && previous.GreaterThanOrEqual(minStock) && current.LessThan(minStock) {
		h.notifier.LowStock(r.Context(), service.LowStockAlert{
			RestaurantID: inv.RestaurantID,
			InventoryID:  inv.ID,
			ItemName:     inv.ItemName,
			CurrentStock: current,
			MinStock:     minStock,
		})
	}

	writeJSON(w, http.StatusOK, toInventoryResponse(inv))
}
