package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restodesk/api/internal/auth"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/permission"
)

type contextKey string

const (
	claimsKey      contextKey = "claims"
	permissionsKey contextKey = "permissions"
)

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRestaurant restricts a /restaurants/{rid} route to members of that
// restaurant. Only system_super_admin crosses tenants.
func RequireRestaurant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}

		if claims.Role == enum.UserRoleSystemSuperAdmin {
			next.ServeHTTP(w, r)
			return
		}

		ridStr := chi.URLParam(r, "rid")
		if ridStr == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing restaurant ID"})
			return
		}

		rid, err := uuid.Parse(ridStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
			return
		}

		if claims.RestaurantID != rid {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this restaurant"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSystemAdmin limits a route to the platform operator role.
func RequireSystemAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		if claims.Role != enum.UserRoleSystemSuperAdmin {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "system administrator only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PermissionChecker resolves a role to its permissions.
// Satisfied by *permission.Checker.
type PermissionChecker interface {
	ForRole(ctx context.Context, role string) permission.Set
}

// RequirePermission lets the request through when the caller's role holds any
// of perms. The loaded set is stored on the context for handlers to reuse.
func RequirePermission(checker PermissionChecker, perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			set := PermissionsFromContext(r.Context())
			if set == nil {
				set = checker.ForRole(r.Context(), claims.Role)
			}
			if !set.HasAny(perms...) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
				return
			}

			ctx := context.WithValue(r.Context(), permissionsKey, set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// PermissionsFromContext returns the set loaded by RequirePermission, or nil.
func PermissionsFromContext(ctx context.Context) permission.Set {
	set, _ := ctx.Value(permissionsKey).(permission.Set)
	return set
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
