package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// parseScopedID reads {rid} and {id} from the path. On failure it writes the
// 400 response and returns false.
func parseScopedID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, uuid.UUID, bool) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + what + " ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return restaurantID, id, true
}

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

// numericToString renders a money column with two decimals.
func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

// stockToString renders a stock quantity with three decimals.
func stockToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(3)
}
