package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	MenuSetStatusActive   = "active"
	MenuSetStatusInactive = "inactive"
)

// ── Group C: Borderline (stored as text, checked in handlers) ──

const (
	UserRoleSystemSuperAdmin = "system_super_admin"
	UserRoleSuperAdmin       = "super_admin"
	UserRoleOwner            = "owner"
	UserRoleAdmin            = "admin"
	UserRoleManager          = "manager"
	UserRoleStaff            = "staff"
	UserRoleFrontStaff       = "front_staff"
	UserRoleKitchenStaff     = "kitchen_staff"
	UserRoleCashier          = "cashier"
	UserRoleCustomer         = "customer"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	StockStatusLow    = "LOW"
	StockStatusMedium = "MEDIUM"
	StockStatusGood   = "GOOD"
)

const (
	LineKindMenuItem = "menu_item"
	LineKindMenuSet  = "menu_set"
)

const (
	InventoryModeReconcile = "reconcile"
	InventoryModeRPC       = "rpc"
)

const (
	OrderEventsInline = "inline"
	OrderEventsKafka  = "kafka"
)

// DefaultTableRef is used when a checkout carries no table.
const DefaultTableRef = "POS"

// DefaultCustomerName is used when the acting user has no full name.
const DefaultCustomerName = "Customer"
