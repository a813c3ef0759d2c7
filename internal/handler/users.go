package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/auth"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByRestaurantAndPin(ctx context.Context, arg database.GetUserByRestaurantAndPinParams) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, arg database.SoftDeleteUserParams) (uuid.UUID, error)
}

// UserHandler manages a restaurant's staff accounts.
//
// Callers can only grant, edit or remove roles ranked at or below their own,
// and nobody can remove their own account. PINs are unique within a
// restaurant because PIN login resolves a single user from (restaurant, PIN).
type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers staff endpoints on the given Chi router.
// Expected to be mounted at /restaurants/{rid}/users behind Authenticate.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type userRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` // create only
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Pin      string `json:"pin"`
}

func (req *userRequest) validate(creating bool) string {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	switch {
	case creating && (req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == ""):
		return "email, password, full_name, and role are required"
	case !creating && (req.Email == "" || req.FullName == "" || req.Role == ""):
		return "email, full_name, and role are required"
	case !strings.Contains(req.Email, "@"):
		return "invalid email format"
	case creating && len(req.Password) < 8:
		return "password must be at least 8 characters"
	case !isValidRole(req.Role):
		return "invalid role"
	case req.Pin != "" && !isValidPin(req.Pin):
		return "PIN must be 4-6 digits"
	}
	return ""
}

func (req userRequest) pin() pgtype.Text {
	if req.Pin == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: req.Pin, Valid: true}
}

// userDetailResponse never carries the PIN itself.
type userDetailResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	HasPin       bool      `json:"has_pin"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:           u.ID,
		RestaurantID: u.RestaurantID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		HasPin:       u.Pin.Valid,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns the active staff of the restaurant.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	users, err := h.store.ListUsersByRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list staff of restaurant %s: %v", restaurantID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	req, ok := decodeUserRequest(w, r, true)
	if !ok {
		return
	}
	if !canManageRole(claims.Role, req.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot assign a role above your own"})
		return
	}
	if !h.pinAvailable(w, r, restaurantID, uuid.Nil, req.Pin) {
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
		Pin:            req.pin(),
	})
	if err != nil {
		writeUserStoreError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update replaces a staff member's profile, role and PIN. An omitted PIN
// removes PIN login for that user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	target, ok := h.loadTarget(w, r, claims)
	if !ok {
		return
	}

	req, ok := decodeUserRequest(w, r, false)
	if !ok {
		return
	}
	if !canManageRole(claims.Role, req.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot assign a role above your own"})
		return
	}
	if !h.pinAvailable(w, r, target.RestaurantID, target.ID, req.Pin) {
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:           target.ID,
		RestaurantID: target.RestaurantID,
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		Pin:          req.pin(),
	})
	if err != nil {
		writeUserStoreError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete deactivates a staff member. Their past orders keep referencing
// the row.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	target, ok := h.loadTarget(w, r, claims)
	if !ok {
		return
	}
	if target.ID == claims.UserID {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot delete your own account"})
		return
	}

	if _, err := h.store.SoftDeleteUser(r.Context(), database.SoftDeleteUserParams{
		ID:           target.ID,
		RestaurantID: target.RestaurantID,
	}); err != nil {
		writeUserStoreError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// roleRank orders roles for staff management. Roles missing here rank 0 and
// can manage nobody.
var roleRank = map[string]int{
	enum.UserRoleSystemSuperAdmin: 6,
	enum.UserRoleSuperAdmin:       5,
	enum.UserRoleOwner:            4,
	enum.UserRoleAdmin:            3,
	enum.UserRoleManager:          2,
	enum.UserRoleStaff:            1,
	enum.UserRoleFrontStaff:       1,
	enum.UserRoleKitchenStaff:     1,
	enum.UserRoleCashier:          1,
}

func canManageRole(actor, target string) bool {
	rank := roleRank[actor]
	return rank > 0 && roleRank[target] <= rank
}

// isValidRole accepts the roles a restaurant may assign to its own staff.
func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleOwner, enum.UserRoleAdmin, enum.UserRoleManager,
		enum.UserRoleStaff, enum.UserRoleFrontStaff, enum.UserRoleKitchenStaff,
		enum.UserRoleCashier:
		return true
	}
	return false
}

func isValidPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return nil, false
	}
	return claims, true
}

func decodeUserRequest(w http.ResponseWriter, r *http.Request, creating bool) (userRequest, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if msg := req.validate(creating); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return req, false
	}
	return req, true
}

// loadTarget resolves the {id} user inside the {rid} restaurant and checks
// the caller outranks or matches them.
func (h *UserHandler) loadTarget(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (database.User, bool) {
	restaurantID, userID, ok := parseScopedID(w, r, "user")
	if !ok {
		return database.User{}, false
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		writeUserStoreError(w, "load", err)
		return database.User{}, false
	}
	if err != nil || user.RestaurantID != restaurantID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return database.User{}, false
	}
	if !canManageRole(claims.Role, user.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot manage a user ranked above you"})
		return database.User{}, false
	}
	return user, true
}

// pinAvailable reports whether pin is free in the restaurant for userID,
// writing a 409 when another active user holds it.
func (h *UserHandler) pinAvailable(w http.ResponseWriter, r *http.Request, restaurantID, userID uuid.UUID, pin string) bool {
	if pin == "" {
		return true
	}
	holder, err := h.store.GetUserByRestaurantAndPin(r.Context(), database.GetUserByRestaurantAndPinParams{
		RestaurantID: restaurantID,
		Pin:          pgtype.Text{String: pin, Valid: true},
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true
	case err != nil:
		writeUserStoreError(w, "check PIN for", err)
		return false
	case holder.ID != userID:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "PIN already in use"})
		return false
	}
	return true
}

func writeUserStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	case isUniqueViolation(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already exists"})
	default:
		log.Printf("ERROR: %s user: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
