package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool // Valid is true if OrderStatus is not NULL
}

type MenuSetStatus string

const (
	MenuSetStatusActive   MenuSetStatus = "active"
	MenuSetStatusInactive MenuSetStatus = "inactive"
)

func (e *MenuSetStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = MenuSetStatus(s)
	case string:
		*e = MenuSetStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for MenuSetStatus: %T", src)
	}
	return nil
}

type Restaurant struct {
	ID          uuid.UUID
	Name        string
	Slug        pgtype.Text
	Description pgtype.Text
	Address     pgtype.Text
	Phone       pgtype.Text
	Email       pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
}

type Package struct {
	ID           uuid.UUID
	Name         string
	Description  pgtype.Text
	PriceMonthly pgtype.Numeric
	PriceYearly  pgtype.Numeric
	IsActive     bool
	CreatedAt    time.Time
}

type User struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Pin            pgtype.Text
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RolePermission struct {
	ID         uuid.UUID
	Role       string
	Permission string
	CreatedAt  time.Time
}

type MenuCategory struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	SortOrder    int32
	IsActive     bool
	CreatedAt    time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	CategoryID   pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	PrepTime     pgtype.Int4
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuSet struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Price        pgtype.Numeric
	Status       MenuSetStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuSetItem struct {
	ID         uuid.UUID
	MenuSetID  uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
}

type Inventory struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	ItemName     string
	Category     pgtype.Text
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
	Unit         string
	Supplier     pgtype.Text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuItemIngredient struct {
	ID          uuid.UUID
	MenuItemID  uuid.UUID
	InventoryID uuid.UUID
	Quantity    pgtype.Numeric
}

type Order struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	OrderNumber  string
	CustomerName string
	TableRef     string
	Status       OrderStatus
	TotalAmount  pgtype.Numeric
	CheckoutRef  pgtype.Text
	CreatedBy    pgtype.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID pgtype.UUID
	MenuSetID  pgtype.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	CreatedAt  time.Time
}
