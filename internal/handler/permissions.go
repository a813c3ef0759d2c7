package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/middleware"
	"github.com/restodesk/api/internal/permission"
	"github.com/restodesk/api/internal/service"
)

// RolePermissionStore defines the database methods needed by permission handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RolePermissionStore interface {
	ListPermissionsByRole(ctx context.Context, role string) ([]string, error)
	ListRolePermissions(ctx context.Context) ([]database.RolePermission, error)
	DeleteRolePermissions(ctx context.Context, role string) (int64, error)
	CreateRolePermission(ctx context.Context, arg database.CreateRolePermissionParams) (database.RolePermission, error)
}

// NewRolePermissionStore creates a RolePermissionStore from a DBTX (pool or tx).
type NewRolePermissionStore func(db database.DBTX) RolePermissionStore

// PermissionHandler serves the caller's permissions and role administration.
type PermissionHandler struct {
	store    RolePermissionStore
	checker  middleware.PermissionChecker
	pool     service.TxBeginner
	newStore NewRolePermissionStore
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(store RolePermissionStore, checker middleware.PermissionChecker, pool service.TxBeginner, newStore NewRolePermissionStore) *PermissionHandler {
	return &PermissionHandler{store: store, checker: checker, pool: pool, newStore: newStore}
}

// RegisterMeRoutes registers caller-facing endpoints.
// Expected to be mounted at /me
func (h *PermissionHandler) RegisterMeRoutes(r chi.Router) {
	r.Get("/permissions", h.Mine)
}

// RegisterRoutes registers role administration endpoints.
// Expected to be mounted at /role-permissions
func (h *PermissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Get("/{role}", h.GetRole)
	r.Put("/{role}", h.ReplaceRole)
}

// --- Request / Response types ---

type myPermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Pages       []string `json:"pages"`
}

type rolePermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type replaceRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// --- Handlers ---

// Mine handles GET /me/permissions.
func (h *PermissionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	set := h.checker.ForRole(r.Context(), claims.Role)
	writeJSON(w, http.StatusOK, myPermissionsResponse{
		Role:        claims.Role,
		Permissions: set.List(),
		Pages:       set.VisiblePages(),
	})
}

// ListAll handles GET /role-permissions. Roles without rows are omitted.
func (h *PermissionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListRolePermissions(r.Context())
	if err != nil {
		log.Printf("ERROR: list role permissions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// rows arrive ordered by role, permission
	resp := []rolePermissionsResponse{}
	for _, row := range rows {
		if n := len(resp); n > 0 && resp[n-1].Role == row.Role {
			resp[n-1].Permissions = append(resp[n-1].Permissions, row.Permission)
			continue
		}
		resp = append(resp, rolePermissionsResponse{Role: row.Role, Permissions: []string{row.Permission}})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRole handles GET /role-permissions/{role}.
func (h *PermissionHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if !isKnownRole(role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	perms, err := h.store.ListPermissionsByRole(r.Context(), role)
	if err != nil {
		log.Printf("ERROR: list permissions for role %s: %v", role, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if perms == nil {
		perms = []string{}
	}

	writeJSON(w, http.StatusOK, rolePermissionsResponse{Role: role, Permissions: perms})
}

// ReplaceRole handles PUT /role-permissions/{role}. The role's permissions are
// replaced as a whole.
func (h *PermissionHandler) ReplaceRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if !isKnownRole(role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	var req replaceRolePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	set := permission.NewSet()
	for _, p := range req.Permissions {
		if !permission.IsKnown(p) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown permission: " + p})
			return
		}
		set[p] = struct{}{}
	}
	perms := set.List()

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)
	if _, err := store.DeleteRolePermissions(r.Context(), role); err != nil {
		log.Printf("ERROR: delete role permissions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	for _, p := range perms {
		if _, err := store.CreateRolePermission(r.Context(), database.CreateRolePermissionParams{
			Role:       role,
			Permission: p,
		}); err != nil {
			log.Printf("ERROR: create role permission: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	log.Printf("INFO: role %s permissions replaced (%d)", role, len(perms))
	writeJSON(w, http.StatusOK, rolePermissionsResponse{Role: role, Permissions: perms})
}

// --- Helpers ---

// isKnownRole accepts every role that can hold permissions, including the
// platform roles a restaurant cannot assign.
func isKnownRole(role string) bool {
	switch role {
	case enum.UserRoleSystemSuperAdmin, enum.UserRoleSuperAdmin, enum.UserRoleCustomer:
		return true
	}
	return isValidRole(role)
}
