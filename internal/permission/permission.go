// Package permission resolves what a role may do and which pages it may see.
package permission

import (
	"context"
	"log"
	"sort"
)

// Permission names stored in role_permissions.
const (
	ViewReports       = "view_reports"
	ViewAnalytics     = "view_analytics"
	ViewTables        = "view_tables"
	ViewPOS           = "view_pos"
	ViewReservations  = "view_reservations"
	ViewOrders        = "view_orders"
	ManageOrders      = "manage_orders"
	ViewMenuItems     = "view_menu_items"
	ManageMenuItems   = "manage_menu_items"
	ViewInventory     = "view_inventory"
	ManageInventory   = "manage_inventory"
	ViewCustomers     = "view_customers"
	ViewStaff         = "view_staff"
	ManageStaff       = "manage_staff"
	ViewSettings      = "view_settings"
	ManagePermissions = "manage_permissions"
	UseAssistant      = "use_assistant"
)

// pagePermissions maps a page to the permissions that unlock it. Holding any
// one of them is enough.
var pagePermissions = map[string][]string{
	"dashboard":    {ViewReports, ViewAnalytics},
	"tables":       {ViewTables},
	"pos":          {ViewPOS},
	"reservations": {ViewReservations},
	"orders":       {ViewOrders},
	"menu-items":   {ViewMenuItems},
	"inventory":    {ViewInventory},
	"customers":    {ViewCustomers},
	"staff":        {ViewStaff},
	"reports":      {ViewReports},
	"settings":     {ViewSettings},
}

// Set is the permissions granted to one role.
type Set map[string]struct{}

func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

func (s Set) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// CanViewPage reports whether the page is visible. Pages without an entry in
// the page table are always visible.
func (s Set) CanViewPage(page string) bool {
	required, ok := pagePermissions[page]
	if !ok {
		return true
	}
	return s.HasAny(required...)
}

// VisiblePages returns the known pages this set can view, sorted.
func (s Set) VisiblePages() []string {
	pages := make([]string, 0, len(pagePermissions))
	for page := range pagePermissions {
		if s.CanViewPage(page) {
			pages = append(pages, page)
		}
	}
	sort.Strings(pages)
	return pages
}

// List returns the permissions in the set, sorted.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsKnown reports whether perm is one of the permission names above.
func IsKnown(perm string) bool {
	_, ok := known[perm]
	return ok
}

var known = NewSet(
	ViewReports, ViewAnalytics, ViewTables, ViewPOS, ViewReservations,
	ViewOrders, ManageOrders, ViewMenuItems, ManageMenuItems, ViewInventory,
	ManageInventory, ViewCustomers, ViewStaff, ManageStaff, ViewSettings,
	ManagePermissions, UseAssistant,
)

// Store loads role permissions.
// Satisfied by *database.Queries.
type Store interface {
	ListPermissionsByRole(ctx context.Context, role string) ([]string, error)
}

// Checker resolves a role to its permission Set.
type Checker struct {
	store Store
}

func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// ForRole loads the role's permissions. A store failure yields an empty set,
// so every check denies.
func (c *Checker) ForRole(ctx context.Context, role string) Set {
	perms, err := c.store.ListPermissionsByRole(ctx, role)
	if err != nil {
		log.Printf("ERROR: load permissions for role %s: %v", role, err)
		return Set{}
	}
	return NewSet(perms...)
}
