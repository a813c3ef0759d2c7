package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/service"
	"github.com/shopspring/decimal"
)

// Event types pushed to restaurant clients.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventLowStock     = "inventory.low_stock"
)

// Broadcaster is satisfied by *Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event Event)
}

// Notifier turns domain events into websocket events. It serves as an order
// placed hook, an order status notifier and a low-stock notifier.
type Notifier struct {
	hub Broadcaster
}

func NewNotifier(hub Broadcaster) *Notifier {
	return &Notifier{hub: hub}
}

type orderPayload struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status,omitempty"`
	TableRef    string          `json:"table,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count,omitempty"`
}

type lowStockPayload struct {
	InventoryID  uuid.UUID       `json:"inventory_id"`
	ItemName     string          `json:"item_name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
}

// OrderPlaced broadcasts order.created.
func (n *Notifier) OrderPlaced(_ context.Context, evt service.OrderPlaced) error {
	return n.send(evt.RestaurantID, EventOrderCreated, orderPayload{
		OrderID:     evt.OrderID,
		OrderNumber: evt.OrderNumber,
		Status:      enum.OrderStatusPending,
		TotalAmount: evt.TotalAmount,
		ItemCount:   len(evt.Lines),
	})
}

// OrderStatusChanged broadcasts order.updated.
func (n *Notifier) OrderStatusChanged(_ context.Context, o database.Order) {
	total, _ := decimal.NewFromString(numericString(o))
	if err := n.send(o.RestaurantID, EventOrderUpdated, orderPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		TableRef:    o.TableRef,
		TotalAmount: total,
	}); err != nil {
		log.Printf("ERROR: ws order.updated: %v", err)
	}
}

// LowStock broadcasts inventory.low_stock.
func (n *Notifier) LowStock(_ context.Context, a service.LowStockAlert) {
	if err := n.send(a.RestaurantID, EventLowStock, lowStockPayload{
		InventoryID:  a.InventoryID,
		ItemName:     a.ItemName,
		CurrentStock: a.CurrentStock,
		MinStock:     a.MinStock,
	}); err != nil {
		log.Printf("ERROR: ws inventory.low_stock: %v", err)
	}
}

func (n *Notifier) send(restaurantID uuid.UUID, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	n.hub.BroadcastToRestaurant(restaurantID, Event{Type: eventType, Payload: raw})
	return nil
}

func numericString(o database.Order) string {
	v, err := o.TotalAmount.Value()
	if err != nil || v == nil {
		return "0"
	}
	s, _ := v.(string)
	return s
}
