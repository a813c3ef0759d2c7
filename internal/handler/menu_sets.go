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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/service"
)

// MenuSetStore defines the database methods needed by menu set handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuSetStore interface {
	ListMenuSets(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuSet, error)
	GetMenuSet(ctx context.Context, arg database.GetMenuSetParams) (database.MenuSet, error)
	CreateMenuSet(ctx context.Context, arg database.CreateMenuSetParams) (database.MenuSet, error)
	UpdateMenuSet(ctx context.Context, arg database.UpdateMenuSetParams) (database.MenuSet, error)
	DeleteMenuSet(ctx context.Context, arg database.DeleteMenuSetParams) (int64, error)
	ListMenuSetItems(ctx context.Context, menuSetID uuid.UUID) ([]database.MenuSetItem, error)
	DeleteMenuSetItems(ctx context.Context, menuSetID uuid.UUID) (int64, error)
	CreateMenuSetItem(ctx context.Context, arg database.CreateMenuSetItemParams) (database.MenuSetItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
}

// NewMenuSetStore creates a MenuSetStore from a DBTX (pool or tx).
type NewMenuSetStore func(db database.DBTX) MenuSetStore

// MenuSetHandler handles menu set endpoints. A set's composition is always
// written together with its header.
type MenuSetHandler struct {
	store    MenuSetStore
	pool     service.TxBeginner
	newStore NewMenuSetStore
}

// NewMenuSetHandler creates a new MenuSetHandler.
func NewMenuSetHandler(store MenuSetStore, pool service.TxBeginner, newStore NewMenuSetStore) *MenuSetHandler {
	return &MenuSetHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers menu set endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/menu-sets
func (h *MenuSetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuSetItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type menuSetRequest struct {
	Name   string               `json:"name"`
	Price  string               `json:"price"`
	Status string               `json:"status"`
	Items  []menuSetItemRequest `json:"items"`
}

type menuSetItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int32     `json:"quantity"`
}

type menuSetResponse struct {
	ID           uuid.UUID             `json:"id"`
	RestaurantID uuid.UUID             `json:"restaurant_id"`
	Name         string                `json:"name"`
	Price        string                `json:"price"`
	Status       string                `json:"status"`
	Items        []menuSetItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toMenuSetResponse(s database.MenuSet, items []database.MenuSetItem) menuSetResponse {
	resp := menuSetResponse{
		ID:           s.ID,
		RestaurantID: s.RestaurantID,
		Name:         s.Name,
		Price:        numericToString(s.Price),
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if items != nil {
		resp.Items = make([]menuSetItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = menuSetItemResponse{ID: it.ID, MenuItemID: it.MenuItemID, Quantity: it.Quantity}
		}
	}
	return resp
}

type validMenuSet struct {
	name   string
	price  pgtype.Numeric
	status database.MenuSetStatus
	items  []database.CreateMenuSetItemParams
}

// decodeMenuSet validates a create/update body. On failure it writes the 400
// response and returns false.
func decodeMenuSet(w http.ResponseWriter, r *http.Request) (validMenuSet, bool) {
	var req menuSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return validMenuSet{}, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return validMenuSet{}, false
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be a number >= 0"})
		return validMenuSet{}, false
	}

	status := req.Status
	if status == "" {
		status = enum.MenuSetStatusActive
	}
	if status != enum.MenuSetStatusActive && status != enum.MenuSetStatusInactive {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be active or inactive"})
		return validMenuSet{}, false
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return validMenuSet{}, false
	}
	items := make([]database.CreateMenuSetItemParams, len(req.Items))
	for i, it := range req.Items {
		id, err := uuid.Parse(it.MenuItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("items[%d]: invalid menu_item_id", i)})
			return validMenuSet{}, false
		}
		if it.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("items[%d]: quantity must be > 0", i)})
			return validMenuSet{}, false
		}
		items[i] = database.CreateMenuSetItemParams{MenuItemID: id, Quantity: it.Quantity}
	}

	return validMenuSet{
		name:   req.Name,
		price:  price,
		status: database.MenuSetStatus(status),
		items:  items,
	}, true
}

// errSetItemNotFound marks a composition entry outside the restaurant.
type errSetItemNotFound int

func (e errSetItemNotFound) Error() string {
	return fmt.Sprintf("items[%d]: menu item not found in restaurant", int(e))
}

// writeComposition replaces the set's items. Each menu item must belong to
// restaurantID.
func writeComposition(ctx context.Context, store MenuSetStore, restaurantID, setID uuid.UUID, items []database.CreateMenuSetItemParams) ([]database.MenuSetItem, error) {
	if _, err := store.DeleteMenuSetItems(ctx, setID); err != nil {
		return nil, fmt.Errorf("delete set items: %w", err)
	}
	created := make([]database.MenuSetItem, 0, len(items))
	for i, it := range items {
		if _, err := store.GetMenuItem(ctx, database.GetMenuItemParams{ID: it.MenuItemID, RestaurantID: restaurantID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, errSetItemNotFound(i)
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}
		it.MenuSetID = setID
		row, err := store.CreateMenuSetItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("create set item: %w", err)
		}
		created = append(created, row)
	}
	return created, nil
}

// --- Handlers ---

// List returns all menu sets of the restaurant without their items.
func (h *MenuSetHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	sets, err := h.store.ListMenuSets(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list menu sets: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuSetResponse, len(sets))
	for i, s := range sets {
		resp[i] = toMenuSetResponse(s, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one menu set with its composition.
func (h *MenuSetHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, setID, ok := parseScopedID(w, r, "menu set")
	if !ok {
		return
	}

	set, err := h.store.GetMenuSet(r.Context(), database.GetMenuSetParams{ID: setID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu set not found"})
			return
		}
		log.Printf("ERROR: get menu set: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListMenuSetItems(r.Context(), set.ID)
	if err != nil {
		log.Printf("ERROR: list menu set items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if items == nil {
		items = []database.MenuSetItem{}
	}

	writeJSON(w, http.StatusOK, toMenuSetResponse(set, items))
}

// Create inserts a menu set and its composition in one transaction.
func (h *MenuSetHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	v, ok := decodeMenuSet(w, r)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: create menu set: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	set, err := store.CreateMenuSet(r.Context(), database.CreateMenuSetParams{
		RestaurantID: restaurantID,
		Name:         v.name,
		Price:        v.price,
		Status:       v.status,
	})
	if err != nil {
		log.Printf("ERROR: create menu set: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := writeComposition(r.Context(), store, restaurantID, set.ID, v.items)
	if err != nil {
		h.writeCompositionError(w, "create menu set", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: create menu set: commit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuSetResponse(set, items))
}

// Update replaces a menu set's header and composition in one transaction.
func (h *MenuSetHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, setID, ok := parseScopedID(w, r, "menu set")
	if !ok {
		return
	}

	v, ok := decodeMenuSet(w, r)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: update menu set: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	set, err := store.UpdateMenuSet(r.Context(), database.UpdateMenuSetParams{
		ID:           setID,
		RestaurantID: restaurantID,
		Name:         v.name,
		Price:        v.price,
		Status:       v.status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu set not found"})
			return
		}
		log.Printf("ERROR: update menu set: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := writeComposition(r.Context(), store, restaurantID, set.ID, v.items)
	if err != nil {
		h.writeCompositionError(w, "update menu set", err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: update menu set: commit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuSetResponse(set, items))
}

// Delete removes a menu set. Sets referenced by orders cannot be deleted;
// mark them inactive instead.
func (h *MenuSetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, setID, ok := parseScopedID(w, r, "menu set")
	if !ok {
		return
	}

	n, err := h.store.DeleteMenuSet(r.Context(), database.DeleteMenuSetParams{ID: setID, RestaurantID: restaurantID})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu set is used by orders; mark it inactive instead"})
			return
		}
		log.Printf("ERROR: delete menu set: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu set not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *MenuSetHandler) writeCompositionError(w http.ResponseWriter, op string, err error) {
	var notFound errSetItemNotFound
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": notFound.Error()})
		return
	}
	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
