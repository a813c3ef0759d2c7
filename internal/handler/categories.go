package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategoriesByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.ListCategoriesByRestaurantRow, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.MenuCategory, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.MenuCategory, error)
	CountMenuItemsInCategory(ctx context.Context, arg database.CountMenuItemsInCategoryParams) (int64, error)
	SoftDeleteCategory(ctx context.Context, arg database.SoftDeleteCategoryParams) (uuid.UUID, error)
}

// CategoryHandler groups a restaurant's menu items for the POS and the menu
// editor. Names are unique per restaurant, ignoring case, among active
// categories.
type CategoryHandler struct {
	store CategoryStore
}

func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers category endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/categories
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

// categoryRequest is the body of both create and update. Update replaces
// every field, so an omitted description clears it.
type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sort_order"`
}

func (req *categoryRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.Name == "":
		return "name is required"
	case len(req.Name) > 100:
		return "name must be at most 100 characters"
	case req.SortOrder < 0:
		return "sort_order must not be negative"
	}
	return ""
}

func (req categoryRequest) description() pgtype.Text {
	if req.Description == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: req.Description, Valid: true}
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	SortOrder    int32     `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	ItemCount    *int64    `json:"item_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCategoryResponse(c database.MenuCategory) categoryResponse {
	resp := categoryResponse{
		ID:           c.ID,
		RestaurantID: c.RestaurantID,
		Name:         c.Name,
		SortOrder:    c.SortOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
	}
	if c.Description.Valid {
		resp.Description = &c.Description.String
	}
	return resp
}

// --- Handlers ---

// List returns the restaurant's active categories in menu order, each with
// the number of menu items filed under it.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	rows, err := h.store.ListCategoriesByRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list categories for restaurant %s: %v", restaurantID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(rows))
	for i, row := range rows {
		resp[i] = toCategoryResponse(database.MenuCategory{
			ID:           row.ID,
			RestaurantID: row.RestaurantID,
			Name:         row.Name,
			Description:  row.Description,
			SortOrder:    row.SortOrder,
			IsActive:     row.IsActive,
			CreatedAt:    row.CreatedAt,
		})
		count := row.ItemCount
		resp[i].ItemCount = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	req, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Description:  req.description(),
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		h.writeStoreError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, catID, ok := parseScopedID(w, r, "category")
	if !ok {
		return
	}

	req, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:           catID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Description:  req.description(),
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		h.writeStoreError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete deactivates an empty category. Categories that still hold menu
// items are refused so the POS never shows orphaned items.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, catID, ok := parseScopedID(w, r, "category")
	if !ok {
		return
	}

	count, err := h.store.CountMenuItemsInCategory(r.Context(), database.CountMenuItemsInCategoryParams{
		CategoryID:   catID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		h.writeStoreError(w, "count items of", err)
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      "category still has menu items",
			"item_count": count,
		})
		return
	}

	if _, err := h.store.SoftDeleteCategory(r.Context(), database.SoftDeleteCategoryParams{
		ID:           catID,
		RestaurantID: restaurantID,
	}); err != nil {
		h.writeStoreError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func decodeCategoryRequest(w http.ResponseWriter, r *http.Request) (categoryRequest, bool) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return req, false
	}
	return req, true
}

func (h *CategoryHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
	case isUniqueViolation(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "category name already exists"})
	default:
		log.Printf("ERROR: %s category: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
