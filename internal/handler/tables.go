package handler

import (
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// TableHandler issues POS deep links for restaurant tables.
type TableHandler struct {
	orderBaseURL string
}

// NewTableHandler creates a new TableHandler. orderBaseURL is the POS page
// that reads the ?table= parameter.
func NewTableHandler(orderBaseURL string) *TableHandler {
	return &TableHandler{orderBaseURL: orderBaseURL}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{table}/link", h.Link)
	r.Get("/{table}/qrcode", h.QRCode)
}

type tableLinkResponse struct {
	Table string `json:"table"`
	URL   string `json:"url"`
}

// Link handles GET /restaurants/{rid}/tables/{table}/link.
func (h *TableHandler) Link(w http.ResponseWriter, r *http.Request) {
	table, link, ok := h.parseTable(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tableLinkResponse{Table: table, URL: link})
}

// QRCode handles GET /restaurants/{rid}/tables/{table}/qrcode and returns a
// PNG. The optional size query param is clamped to 128..1024 pixels.
func (h *TableHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	table, link, ok := h.parseTable(w, r)
	if !ok {
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid size"})
			return
		}
		size = min(max(v, minQRSize), maxQRSize)
	}

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		log.Printf("ERROR: qrcode for table %s: %v", table, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "inline; filename=\"table-"+url.PathEscape(table)+".png\"")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

// --- Helpers ---

func (h *TableHandler) parseTable(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	if _, err := uuid.Parse(chi.URLParam(r, "rid")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return "", "", false
	}
	table := chi.URLParam(r, "table")
	if table == "" || len(table) > 64 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table"})
		return "", "", false
	}
	return table, h.orderURL(table), true
}

// orderURL appends table to the base URL, keeping any existing query.
func (h *TableHandler) orderURL(table string) string {
	u, err := url.Parse(h.orderBaseURL)
	if err != nil {
		return h.orderBaseURL + "?table=" + url.QueryEscape(table)
	}
	q := u.Query()
	q.Set("table", table)
	u.RawQuery = q.Encode()
	return u.String()
}
