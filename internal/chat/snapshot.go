package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
)

const snapshotLimit = 20

// Snapshotter reads tenant rows for the assistant.
// Satisfied by *database.Queries.
type Snapshotter interface {
	SnapshotRows(ctx context.Context, table database.SnapshotTable, restaurantID uuid.UUID, limit int32) ([]database.SnapshotRow, error)
	CountRows(ctx context.Context, table database.SnapshotTable, restaurantID uuid.UUID) (int64, error)
}

type tableSection struct {
	table  database.SnapshotTable
	header string
}

var tableSections = map[string]tableSection{
	"menu":      {database.SnapshotMenuItems, "DATABASE SNAPSHOT - MENU ITEMS\nUse only this data when asked about the menu."},
	"menu-sets": {database.SnapshotMenuSets, "DATABASE SNAPSHOT - MENU SETS\nSet menus currently defined."},
	"orders":    {database.SnapshotOrders, "DATABASE SNAPSHOT - ORDERS\nThese are the most recent orders."},
	"inventory": {database.SnapshotInventory, "DATABASE SNAPSHOT - INVENTORY\nCurrent stock items:"},
	"staff":     {database.SnapshotStaff, "DATABASE SNAPSHOT - STAFF\nStaff members:"},
}

var dashboardTables = []database.SnapshotTable{
	database.SnapshotOrders,
	database.SnapshotMenuItems,
	database.SnapshotMenuSets,
	database.SnapshotInventory,
	database.SnapshotStaff,
}

// CanonicalSection maps a client-supplied section name onto one the
// snapshot builder knows. Anything else renders the overview as "general".
func CanonicalSection(section string) string {
	if _, ok := tableSections[section]; ok {
		return section
	}
	switch section {
	case "pos", "dashboard":
		return section
	}
	return "general"
}

// BuildSectionContext renders the data snapshot for a UI section. Load
// failures are logged and described in the snapshot text instead of failing.
func BuildSectionContext(ctx context.Context, src Snapshotter, restaurantID uuid.UUID, section string) string {
	snap, _ := buildSection(ctx, src, restaurantID, section)
	return snap
}

// buildSection reports false when any read failed, so the result is not cached.
func buildSection(ctx context.Context, src Snapshotter, restaurantID uuid.UUID, section string) (string, bool) {
	if ts, ok := tableSections[section]; ok {
		rows, err := src.SnapshotRows(ctx, ts.table, restaurantID, snapshotLimit)
		if err != nil {
			log.Printf("ERROR: chat snapshot %s: %v", ts.table, err)
			return fmt.Sprintf("Database snapshot (%s): error while loading %s.", section, ts.table), false
		}
		return ts.header + "\n" + SummarizeRows(rows), true
	}

	switch section {
	case "pos":
		return posSnapshot(ctx, src, restaurantID)
	case "dashboard":
		complete := true
		counts := make([]string, len(dashboardTables))
		for i, table := range dashboardTables {
			n, err := src.CountRows(ctx, table, restaurantID)
			if err != nil {
				log.Printf("ERROR: chat count %s: %v", table, err)
				counts[i] = fmt.Sprintf("%s: error", table)
				complete = false
				continue
			}
			counts[i] = fmt.Sprintf("%s: %d", table, n)
		}
		return "DATABASE SNAPSHOT - DASHBOARD COUNTS\nApproximate row counts:\n" + strings.Join(counts, "\n"), complete
	default:
		return overviewSnapshot(ctx, src, restaurantID)
	}
}

func posSnapshot(ctx context.Context, src Snapshotter, restaurantID uuid.UUID) (string, bool) {
	var b strings.Builder
	b.WriteString("DATABASE SNAPSHOT - POS\n")
	complete := true

	orders, err := src.SnapshotRows(ctx, database.SnapshotOrders, restaurantID, 10)
	if err != nil {
		log.Printf("ERROR: chat snapshot pos/orders: %v", err)
		b.WriteString("\nError loading orders for POS.\n")
		complete = false
	} else {
		b.WriteString("\nOpen / recent orders:\n" + SummarizeRows(orders))
	}

	items, err := src.SnapshotRows(ctx, database.SnapshotMenuItems, restaurantID, snapshotLimit)
	if err != nil {
		log.Printf("ERROR: chat snapshot pos/menu_items: %v", err)
		b.WriteString("\nError loading menu items for POS.\n")
		complete = false
	} else {
		b.WriteString("\nMenu items:\n" + SummarizeRows(items))
	}

	return b.String(), complete
}

func overviewSnapshot(ctx context.Context, src Snapshotter, restaurantID uuid.UUID) (string, bool) {
	complete := true
	count := func(table database.SnapshotTable) int64 {
		n, err := src.CountRows(ctx, table, restaurantID)
		if err != nil {
			log.Printf("ERROR: chat count %s: %v", table, err)
			complete = false
			return 0
		}
		return n
	}

	orders := count(database.SnapshotOrders)
	items := count(database.SnapshotMenuItems)
	stock := count(database.SnapshotInventory)

	return fmt.Sprintf(`DATABASE SNAPSHOT - OVERVIEW
Orders: %d
Menu items: %d
Inventory items: %d

Use these numbers to answer high-level questions. For detailed questions, ask the user which area (menu, orders, inventory, etc.) they care about.`,
		orders, items, stock,
	), complete
}
