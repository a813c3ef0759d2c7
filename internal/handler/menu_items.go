package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/service"
	"github.com/shopspring/decimal"
)

// MenuItemStore defines the database methods needed by menu item handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) (int64, error)
	ListIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.ListIngredientsByMenuItemRow, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.Inventory, error)
	DeleteIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.MenuItemIngredient, error)
}

// NewMenuItemStore creates a MenuItemStore from a DBTX (pool or tx).
type NewMenuItemStore func(db database.DBTX) MenuItemStore

// MenuItemHandler handles menu item CRUD and bill-of-materials endpoints.
type MenuItemHandler struct {
	store    MenuItemStore
	pool     service.TxBeginner
	newStore NewMenuItemStore
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore, pool service.TxBeginner, newStore NewMenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers menu item endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/menu-items
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/ingredients", h.ListIngredients)
	r.Put("/{id}/ingredients", h.ReplaceIngredients)
}

// --- Request / Response types ---

type menuItemRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	IsAvailable *bool  `json:"is_available"`
	PrepTime    *int32 `json:"prep_time"`
}

type menuItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	CategoryID   *uuid.UUID `json:"category_id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description"`
	Price        string     `json:"price"`
	IsAvailable  bool       `json:"is_available"`
	PrepTime     *int32     `json:"prep_time"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ingredientLineRequest struct {
	InventoryID string `json:"inventory_id"`
	Quantity    string `json:"quantity"`
}

type replaceIngredientsRequest struct {
	Ingredients []ingredientLineRequest `json:"ingredients"`
}

type ingredientResponse struct {
	ID          uuid.UUID `json:"id"`
	InventoryID uuid.UUID `json:"inventory_id"`
	ItemName    string    `json:"item_name,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Quantity    string    `json:"quantity"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Price:        numericToString(m.Price),
		IsAvailable:  m.IsAvailable,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.CategoryID.Valid {
		id := uuid.UUID(m.CategoryID.Bytes)
		resp.CategoryID = &id
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.PrepTime.Valid {
		pt := m.PrepTime.Int32
		resp.PrepTime = &pt
	}
	return resp
}

// --- Helpers ---

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var errNegativeAmount = errors.New("negative amount")

// parseMoney parses a non-negative price with two fractional digits.
func parseMoney(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativeAmount
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// parseStock parses a stock quantity with three fractional digits.
func parseStock(s string) (decimal.Decimal, pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(3)); err != nil {
		return decimal.Zero, pgtype.Numeric{}, err
	}
	return d, n, nil
}

// decodeMenuItem validates a create/update body into its column values.
func decodeMenuItem(w http.ResponseWriter, r *http.Request) (menuItemRequest, pgtype.UUID, pgtype.Numeric, bool) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, pgtype.UUID{}, pgtype.Numeric{}, false
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return req, pgtype.UUID{}, pgtype.Numeric{}, false
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return req, pgtype.UUID{}, pgtype.Numeric{}, false
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}

	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return req, pgtype.UUID{}, pgtype.Numeric{}, false
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		if errors.Is(err, errNegativeAmount) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return req, pgtype.UUID{}, pgtype.Numeric{}, false
	}

	if req.PrepTime != nil && *req.PrepTime < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prep_time must be >= 0"})
		return req, pgtype.UUID{}, pgtype.Numeric{}, false
	}

	return req, categoryID, price, true
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func optionalInt4(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}

// --- Handlers ---

// List returns the restaurant's menu items. Optional filters: category_id,
// available=true.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	params := database.ListMenuItemsParams{
		RestaurantID:  restaurantID,
		AvailableOnly: r.URL.Query().Get("available") == "true",
	}
	if c := r.URL.Query().Get("category_id"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, itemID, ok := parseScopedID(w, r, "menu item")
	if !ok {
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{
		ID:           itemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create adds a menu item to the restaurant.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	req, categoryID, price, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		RestaurantID: restaurantID,
		CategoryID:   categoryID,
		Name:         req.Name,
		Description:  optionalText(req.Description),
		Price:        price,
		IsAvailable:  available,
		PrepTime:     optionalInt4(req.PrepTime),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update modifies an existing menu item. Price changes never touch orders
// already placed.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, itemID, ok := parseScopedID(w, r, "menu item")
	if !ok {
		return
	}

	req, categoryID, price, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:           itemID,
		RestaurantID: restaurantID,
		CategoryID:   categoryID,
		Name:         req.Name,
		Description:  optionalText(req.Description),
		Price:        price,
		IsAvailable:  available,
		PrepTime:     optionalInt4(req.PrepTime),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item and its ingredient rows. Items referenced by
// orders or menu sets cannot be deleted.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, itemID, ok := parseScopedID(w, r, "menu item")
	if !ok {
		return
	}

	n, err := h.store.DeleteMenuItem(r.Context(), database.DeleteMenuItemParams{
		ID:           itemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item is used by orders or menu sets; mark it unavailable instead"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListIngredients returns the bill of materials of one menu item.
func (h *MenuItemHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	restaurantID, itemID, ok := parseScopedID(w, r, "menu item")
	if !ok {
		return
	}

	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: list ingredients: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rows, err := h.store.ListIngredientsByMenuItem(r.Context(), itemID)
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(rows))
	for i, row := range rows {
		resp[i] = ingredientResponse{
			ID:          row.ID,
			InventoryID: row.InventoryID,
			ItemName:    row.ItemName,
			Unit:        row.Unit,
			Quantity:    stockToString(row.Quantity),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReplaceIngredients swaps the whole bill of materials of a menu item in one
// transaction. Every inventory item must belong to the same restaurant.
func (h *MenuItemHandler) ReplaceIngredients(w http.ResponseWriter, r *http.Request) {
	restaurantID, itemID, ok := parseScopedID(w, r, "menu item")
	if !ok {
		return
	}

	var req replaceIngredientsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	type line struct {
		inventoryID uuid.UUID
		quantity    pgtype.Numeric
	}
	lines := make([]line, 0, len(req.Ingredients))
	seen := make(map[uuid.UUID]bool, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		invID, err := uuid.Parse(ing.InventoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("ingredients[%d]: invalid inventory_id", i)})
			return
		}
		if seen[invID] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("ingredients[%d]: duplicate inventory_id", i)})
			return
		}
		seen[invID] = true
		qty, n, err := parseStock(ing.Quantity)
		if err != nil || !qty.IsPositive() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("ingredients[%d]: quantity must be > 0", i)})
			return
		}
		lines = append(lines, line{inventoryID: invID, quantity: n})
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: replace ingredients: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	if _, err := store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, RestaurantID: restaurantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: replace ingredients: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if _, err := store.DeleteIngredientsByMenuItem(r.Context(), itemID); err != nil {
		log.Printf("ERROR: replace ingredients: delete: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, 0, len(lines))
	for i, l := range lines {
		inv, err := store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{ID: l.inventoryID, RestaurantID: restaurantID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("ingredients[%d]: inventory item not found in restaurant", i)})
				return
			}
			log.Printf("ERROR: replace ingredients: get inventory: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		created, err := store.CreateIngredient(r.Context(), database.CreateIngredientParams{
			MenuItemID:  itemID,
			InventoryID: l.inventoryID,
			Quantity:    l.quantity,
		})
		if err != nil {
			log.Printf("ERROR: replace ingredients: create: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp = append(resp, ingredientResponse{
			ID:          created.ID,
			InventoryID: created.InventoryID,
			ItemName:    inv.ItemName,
			Unit:        inv.Unit,
			Quantity:    stockToString(created.Quantity),
		})
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: replace ingredients: commit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
