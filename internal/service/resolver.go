package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Demand is the total quantity required per inventory item.
type Demand map[uuid.UUID]decimal.Decimal

// InventoryIDs returns the demanded inventory ids in ascending string order.
func (d Demand) InventoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// IngredientStore loads bill-of-materials rows.
// Satisfied by *database.Queries.
type IngredientStore interface {
	ListIngredientsByMenuItems(ctx context.Context, menuItemIDs []uuid.UUID) ([]database.MenuItemIngredient, error)
}

// IngredientResolver turns placed lines into ingredient demand. It only reads,
// so resolving the same lines twice gives the same answer.
type IngredientResolver struct {
	store IngredientStore
}

func NewIngredientResolver(store IngredientStore) *IngredientResolver {
	return &IngredientResolver{store: store}
}

// Resolve loads the ingredients for every menu item line and aggregates them.
// Menu set lines do not consume inventory.
func (r *IngredientResolver) Resolve(ctx context.Context, lines []PlacedLine) (Demand, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, l := range lines {
		if l.Kind != enum.LineKindMenuItem {
			continue
		}
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}
	if len(ids) == 0 {
		return Demand{}, nil
	}

	ingredients, err := r.store.ListIngredientsByMenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return AggregateDemand(lines, ingredients), nil
}

// AggregateDemand sums ingredient quantity × line quantity per inventory item.
// Lines for the same menu item each contribute, and set lines are skipped.
func AggregateDemand(lines []PlacedLine, ingredients []database.MenuItemIngredient) Demand {
	byItem := make(map[uuid.UUID][]database.MenuItemIngredient)
	for _, ing := range ingredients {
		byItem[ing.MenuItemID] = append(byItem[ing.MenuItemID], ing)
	}

	demand := make(Demand)
	for _, l := range lines {
		if l.Kind != enum.LineKindMenuItem || l.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt32(l.Quantity)
		for _, ing := range byItem[l.ID] {
			used := numericToDecimal(ing.Quantity).Mul(qty)
			demand[ing.InventoryID] = demand[ing.InventoryID].Add(used)
		}
	}
	return demand
}
