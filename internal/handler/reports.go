package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetTopItems(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error)
	GetIngredientUsage(ctx context.Context, arg database.GetIngredientUsageParams) ([]database.GetIngredientUsageRow, error)
}

// ReportsHandler handles dashboard report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers restaurant-scoped report endpoints.
// Expected to be mounted at /restaurants/{rid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/top-items", h.TopItems)
	r.Get("/ingredient-usage", h.IngredientUsage)
}

// --- Response types ---

type dailySalesResponse struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

type topItemResponse struct {
	ItemID       uuid.UUID `json:"item_id"`
	ItemName     string    `json:"item_name"`
	IsSet        bool      `json:"is_set"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type ingredientUsageResponse struct {
	InventoryID  uuid.UUID `json:"inventory_id"`
	ItemName     string    `json:"item_name"`
	Unit         string    `json:"unit"`
	QuantityUsed string    `json:"quantity_used"`
	CurrentStock string    `json:"current_stock"`
	LowStock     bool      `json:"low_stock"`
}

// --- Handlers ---

// DailySales handles GET /restaurants/{rid}/reports/daily-sales.
// Cancelled orders are excluded.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		RestaurantID: restaurantID,
		CreatedAt:    start,
		CreatedAt_2:  end,
	})
	if err != nil {
		log.Printf("ERROR: daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:         row.SaleDate.Time.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// TopItems handles GET /restaurants/{rid}/reports/top-items. Menu items and
// menu sets are ranked together by quantity sold.
func (h *ReportsHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 50 {
		limit = 50
	}

	rows, err := h.store.GetTopItems(r.Context(), database.GetTopItemsParams{
		RestaurantID: restaurantID,
		CreatedAt:    start,
		CreatedAt_2:  end,
		Limit:        int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: top items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = topItemResponse{
			ItemID:       row.ItemID,
			ItemName:     row.ItemName,
			IsSet:        row.IsSet,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// IngredientUsage handles GET /restaurants/{rid}/reports/ingredient-usage.
// Usage is derived from the menu item lines ordered in the range and the
// current recipes. Cancelled orders count because cancelling does not return
// stock; set lines are not counted because they never consume stock.
func (h *ReportsHandler) IngredientUsage(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetIngredientUsage(r.Context(), database.GetIngredientUsageParams{
		RestaurantID: restaurantID,
		CreatedAt:    start,
		CreatedAt_2:  end,
	})
	if err != nil {
		log.Printf("ERROR: ingredient usage for restaurant %s: %v", restaurantID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientUsageResponse, len(rows))
	for i, row := range rows {
		current := numericToDecimal(row.CurrentStock)
		resp[i] = ingredientUsageResponse{
			InventoryID:  row.InventoryID,
			ItemName:     row.ItemName,
			Unit:         row.Unit,
			QuantityUsed: stockToString(row.QuantityUsed),
			CurrentStock: current.StringFixed(3),
			LowStock:     current.LessThan(numericToDecimal(row.MinStock)),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// reportLocation matches the UTC day boundaries used by GetDailySales.
var reportLocation = time.UTC

// parseDateRange parses start_date and end_date (YYYY-MM-DD) query params.
// Defaults to the last 30 days. The returned end is exclusive (midnight after
// end_date).
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := time.Now().In(reportLocation)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, reportLocation)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, reportLocation)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, reportLocation)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must not be after end_date")
	}

	return startDate, endDate, nil
}
