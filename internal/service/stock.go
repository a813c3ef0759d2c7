package service

import (
	"github.com/restodesk/api/internal/enum"
	"github.com/shopspring/decimal"
)

var mediumStockFactor = decimal.NewFromFloat(1.5)

// StockStatus classifies a stock level against its minimum: LOW below the
// minimum, MEDIUM below one and a half times it, GOOD otherwise.
func StockStatus(current, minStock decimal.Decimal) string {
	switch {
	case current.LessThan(minStock):
		return enum.StockStatusLow
	case current.LessThan(minStock.Mul(mediumStockFactor)):
		return enum.StockStatusMedium
	default:
		return enum.StockStatusGood
	}
}
