package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// RestaurantStore defines the database methods needed by restaurant handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RestaurantStore interface {
	ListRestaurants(ctx context.Context) ([]database.Restaurant, error)
	ListRestaurantAdmins(ctx context.Context) ([]database.User, error)
	ListRestaurantPackages(ctx context.Context) ([]database.ListRestaurantPackagesRow, error)
	ListActivePackages(ctx context.Context) ([]database.Package, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	CreateRestaurant(ctx context.Context, arg database.CreateRestaurantParams) (database.Restaurant, error)
	AddRestaurantPackage(ctx context.Context, arg database.AddRestaurantPackageParams) (bool, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// NewRestaurantStore creates a RestaurantStore from a DBTX (pool or tx).
type NewRestaurantStore func(db database.DBTX) RestaurantStore

// RestaurantHandler is the platform operator's tenant administration:
// onboarding restaurants, their packages and their first admin account.
type RestaurantHandler struct {
	store    RestaurantStore
	pool     service.TxBeginner
	newStore NewRestaurantStore
}

func NewRestaurantHandler(store RestaurantStore, pool service.TxBeginner, newStore NewRestaurantStore) *RestaurantHandler {
	return &RestaurantHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers tenant administration endpoints.
// Expected to be mounted at the API root behind Authenticate and RequireSystemAdmin.
func (h *RestaurantHandler) RegisterRoutes(r chi.Router) {
	r.Get("/restaurants", h.List)
	r.Post("/restaurants", h.Create)
	r.Get("/packages", h.ListPackages)
}

// RegisterRestaurantRoutes registers per-restaurant administration endpoints.
// Expected to be mounted at /restaurants/{rid} behind RequireSystemAdmin.
func (h *RestaurantHandler) RegisterRestaurantRoutes(r chi.Router) {
	r.Post("/admins", h.AssignAdmin)
}

// --- Request / Response types ---

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases name and joins its alphanumeric runs with dashes.
func slugify(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type createRestaurantRequest struct {
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Address     string      `json:"address"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	PackageIDs  []uuid.UUID `json:"package_ids"`
}

func (req *createRestaurantRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	req.Email = normalizeEmail(req.Email)
	if req.Slug == "" {
		req.Slug = slugify(req.Name)
	}
	switch {
	case req.Name == "":
		return "name is required"
	case len(req.Name) > 200:
		return "name must be at most 200 characters"
	case !slugPattern.MatchString(req.Slug):
		return "slug must be lowercase letters, digits and single dashes"
	case req.Email != "" && !strings.Contains(req.Email, "@"):
		return "invalid email format"
	}
	return ""
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

type assignAdminRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req *assignAdminRequest) validate() string {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Role == "" {
		req.Role = enum.UserRoleAdmin
	}
	switch {
	case req.Email == "" || req.FullName == "" || req.Password == "":
		return "email, full_name, and password are required"
	case !strings.Contains(req.Email, "@"):
		return "invalid email format"
	case len(req.Password) < 8:
		return "password must be at least 8 characters"
	case !isAdminRole(req.Role):
		return "role must be one of super_admin, owner, admin, manager"
	}
	return ""
}

type packageResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	PriceMonthly string    `json:"price_monthly"`
	PriceYearly  string    `json:"price_yearly"`
}

func toPackageResponse(p database.Package) packageResponse {
	return packageResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  textPtr(p.Description),
		PriceMonthly: numericToString(p.PriceMonthly),
		PriceYearly:  numericToString(p.PriceYearly),
	}
}

type restaurantResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Slug        *string              `json:"slug"`
	Description *string              `json:"description"`
	Address     *string              `json:"address"`
	Phone       *string              `json:"phone"`
	Email       *string              `json:"email"`
	IsActive    bool                 `json:"is_active"`
	CreatedAt   time.Time            `json:"created_at"`
	Packages    []packageResponse    `json:"packages"`
	Admins      []userDetailResponse `json:"admins"`
}

func toRestaurantResponse(rest database.Restaurant) restaurantResponse {
	return restaurantResponse{
		ID:          rest.ID,
		Name:        rest.Name,
		Slug:        textPtr(rest.Slug),
		Description: textPtr(rest.Description),
		Address:     textPtr(rest.Address),
		Phone:       textPtr(rest.Phone),
		Email:       textPtr(rest.Email),
		IsActive:    rest.IsActive,
		CreatedAt:   rest.CreatedAt,
		Packages:    []packageResponse{},
		Admins:      []userDetailResponse{},
	}
}

// --- Handlers ---

// List returns every restaurant with its packages and management accounts.
func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurants, err := h.store.ListRestaurants(ctx)
	if err != nil {
		log.Printf("ERROR: list restaurants: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	packages, err := h.store.ListRestaurantPackages(ctx)
	if err != nil {
		log.Printf("ERROR: list restaurant packages: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	admins, err := h.store.ListRestaurantAdmins(ctx)
	if err != nil {
		log.Printf("ERROR: list restaurant admins: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]restaurantResponse, len(restaurants))
	index := make(map[uuid.UUID]int, len(restaurants))
	for i, rest := range restaurants {
		resp[i] = toRestaurantResponse(rest)
		index[rest.ID] = i
	}
	for _, p := range packages {
		if i, ok := index[p.RestaurantID]; ok {
			resp[i].Packages = append(resp[i].Packages, toPackageResponse(p.Package))
		}
	}
	for _, u := range admins {
		if i, ok := index[u.RestaurantID]; ok {
			resp[i].Admins = append(resp[i].Admins, toUserDetailResponse(u))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPackages returns the packages that can be attached to a restaurant.
func (h *RestaurantHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.store.ListActivePackages(r.Context())
	if err != nil {
		log.Printf("ERROR: list packages: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp := make([]packageResponse, len(packages))
	for i, p := range packages {
		resp[i] = toPackageResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create onboards a restaurant and links its packages in one transaction.
// The slug defaults to one derived from the name.
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := h.newStore(tx)
	rest, err := store.CreateRestaurant(ctx, database.CreateRestaurantParams{
		Name:        req.Name,
		Slug:        pgtype.Text{String: req.Slug, Valid: true},
		Description: optionalText(strings.TrimSpace(req.Description)),
		Address:     optionalText(strings.TrimSpace(req.Address)),
		Phone:       optionalText(strings.TrimSpace(req.Phone)),
		Email:       optionalText(req.Email),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slug already exists"})
			return
		}
		log.Printf("ERROR: create restaurant: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	seen := make(map[uuid.UUID]bool, len(req.PackageIDs))
	for _, pkgID := range req.PackageIDs {
		if seen[pkgID] {
			continue
		}
		seen[pkgID] = true
		linked, err := store.AddRestaurantPackage(ctx, database.AddRestaurantPackageParams{
			RestaurantID: rest.ID,
			PackageID:    pkgID,
		})
		if err != nil {
			log.Printf("ERROR: link package %s to restaurant %s: %v", pkgID, rest.ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if !linked {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown package: " + pkgID.String()})
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	log.Printf("INFO: restaurant %s (%s) created with %d packages", rest.Name, rest.ID, len(seen))
	writeJSON(w, http.StatusCreated, toRestaurantResponse(rest))
}

// AssignAdmin creates a management account inside an existing restaurant.
func (h *RestaurantHandler) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req assignAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if _, err := h.store.GetRestaurant(r.Context(), restaurantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		log.Printf("ERROR: get restaurant %s: %v", restaurantID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password for %s: %v", req.Email, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		RestaurantID:   restaurantID,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           req.Role,
	})
	if err != nil {
		writeUserStoreError(w, "assign admin", err)
		return
	}

	log.Printf("INFO: %s assigned as %s of restaurant %s", user.Email, user.Role, restaurantID)
	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// --- Helpers ---

func isAdminRole(role string) bool {
	switch role {
	case enum.UserRoleSuperAdmin, enum.UserRoleOwner, enum.UserRoleAdmin, enum.UserRoleManager:
		return true
	}
	return false
}
