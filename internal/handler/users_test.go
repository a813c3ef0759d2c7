package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restodesk/api/internal/auth"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/handler"
	"github.com/restodesk/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users   map[uuid.UUID]database.User
	listErr error
	created []database.CreateUserParams
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) add(restaurantID uuid.UUID, email, role, pin string) database.User {
	u := database.User{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Email:        email,
		FullName:     strings.Split(email, "@")[0],
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if pin != "" {
		u.Pin = pgtype.Text{String: pin, Valid: true}
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserStore) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range m.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (m *mockUserStore) ListUsersByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]database.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []database.User
	for _, u := range m.users {
		if u.RestaurantID == restaurantID && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserStore) GetUserByRestaurantAndPin(_ context.Context, arg database.GetUserByRestaurantAndPinParams) (database.User, error) {
	for _, u := range m.users {
		if u.RestaurantID == arg.RestaurantID && u.IsActive && u.Pin.Valid && u.Pin.String == arg.Pin.String {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if m.emailTaken(arg.Email, uuid.Nil) {
		return database.User{}, &pgconn.PgError{Code: "23505"}
	}
	m.created = append(m.created, arg)
	u := database.User{
		ID:             uuid.New(),
		RestaurantID:   arg.RestaurantID,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		Pin:            arg.Pin,
		IsActive:       true,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || u.RestaurantID != arg.RestaurantID || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	if m.emailTaken(arg.Email, arg.ID) {
		return database.User{}, &pgconn.PgError{Code: "23505"}
	}
	u.Email = arg.Email
	u.FullName = arg.FullName
	u.Role = arg.Role
	u.Pin = arg.Pin
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) SoftDeleteUser(_ context.Context, arg database.SoftDeleteUserParams) (uuid.UUID, error) {
	u, ok := m.users[arg.ID]
	if !ok || u.RestaurantID != arg.RestaurantID || !u.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.IsActive = false
	m.users[u.ID] = u
	return u.ID, nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/restaurants/{rid}/users", handler.NewUserHandler(store).RegisterRoutes)
	return r
}

func usersPath(restaurantID uuid.UUID, id ...uuid.UUID) string {
	p := "/restaurants/" + restaurantID.String() + "/users"
	if len(id) > 0 {
		p += "/" + id[0].String()
	}
	return p
}

func actor(u database.User) *auth.Claims {
	return &auth.Claims{UserID: u.ID, RestaurantID: u.RestaurantID, Role: u.Role}
}

func newStaffBody(email, role, pin string) map[string]interface{} {
	return map[string]interface{}{
		"email":     email,
		"password":  "password123",
		"full_name": "New Staff",
		"role":      role,
		"pin":       pin,
	}
}

// --- List ---

func TestUserList_HidesPins(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	store.add(rid, "cook@bistro.test", enum.UserRoleKitchenStaff, "4821")
	store.add(uuid.New(), "elsewhere@other.test", enum.UserRoleCashier, "")

	rr := doAuthRequest(t, setupUserRouter(store), "GET", usersPath(rid), nil, actor(owner))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "4821") {
		t.Error("response leaked a PIN")
	}

	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 staff, got %d", len(resp))
	}
	for _, u := range resp {
		wantPin := u["email"] == "cook@bistro.test"
		if u["has_pin"] != wantPin {
			t.Errorf("%v has_pin: got %v, want %v", u["email"], u["has_pin"], wantPin)
		}
	}
}

func TestUserList_Errors(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")

	rr := doRequest(t, setupUserRouter(store), "GET", usersPath(rid), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	store.listErr = errors.New("connection reset")
	rr = doAuthRequest(t, setupUserRouter(store), "GET", usersPath(rid), nil, actor(owner))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("store error: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

// --- Create ---

func TestUserCreate(t *testing.T) {
	rid := uuid.New()

	tests := []struct {
		name       string
		actorRole  string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"owner adds cashier", enum.UserRoleOwner, newStaffBody("cashier@bistro.test", enum.UserRoleCashier, "1234"), http.StatusCreated, ""},
		{"manager adds manager", enum.UserRoleManager, newStaffBody("shift@bistro.test", enum.UserRoleManager, ""), http.StatusCreated, ""},
		{"manager cannot add owner", enum.UserRoleManager, newStaffBody("boss@bistro.test", enum.UserRoleOwner, ""), http.StatusForbidden, "cannot assign a role above your own"},
		{"cashier cannot add manager", enum.UserRoleCashier, newStaffBody("m@bistro.test", enum.UserRoleManager, ""), http.StatusForbidden, "cannot assign a role above your own"},
		{"platform role rejected", enum.UserRoleOwner, newStaffBody("root@bistro.test", enum.UserRoleSystemSuperAdmin, ""), http.StatusBadRequest, "invalid role"},
		{"missing fields", enum.UserRoleOwner, map[string]interface{}{"email": "x@bistro.test"}, http.StatusBadRequest, "email, password, full_name, and role are required"},
		{"bad email", enum.UserRoleOwner, newStaffBody("not-an-email", enum.UserRoleCashier, ""), http.StatusBadRequest, "invalid email format"},
		{"short password", enum.UserRoleOwner, map[string]interface{}{"email": "p@bistro.test", "password": "short", "full_name": "P", "role": enum.UserRoleCashier}, http.StatusBadRequest, "password must be at least 8 characters"},
		{"bad pin", enum.UserRoleOwner, newStaffBody("pin@bistro.test", enum.UserRoleCashier, "12a4"), http.StatusBadRequest, "PIN must be 4-6 digits"},
		{"pin in use", enum.UserRoleOwner, newStaffBody("dup@bistro.test", enum.UserRoleCashier, "9999"), http.StatusConflict, "PIN already in use"},
		{"email in use", enum.UserRoleOwner, newStaffBody("taken@bistro.test", enum.UserRoleCashier, ""), http.StatusConflict, "email already exists"},
		{"bad body", enum.UserRoleOwner, "nope", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockUserStore()
			store.add(rid, "taken@bistro.test", enum.UserRoleCashier, "9999")
			caller := store.add(rid, "caller@bistro.test", tt.actorRole, "")

			rr := doAuthRequest(t, setupUserRouter(store), "POST", usersPath(rid), tt.body, actor(caller))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			resp := decodeResponse(t, rr)
			if tt.wantError != "" && resp["error"] != tt.wantError {
				t.Errorf("error: got %v, want %q", resp["error"], tt.wantError)
			}
			if tt.wantStatus != http.StatusCreated && len(store.created) != 0 {
				t.Error("rejected request reached the store")
			}
		})
	}
}

func TestUserCreate_NormalizesAndHashes(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")

	rr := doAuthRequest(t, setupUserRouter(store), "POST", usersPath(rid),
		newStaffBody("  Chef@Bistro.TEST ", enum.UserRoleKitchenStaff, "5555"), actor(owner))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["email"] != "chef@bistro.test" {
		t.Errorf("email: got %v, want chef@bistro.test", resp["email"])
	}
	if resp["has_pin"] != true {
		t.Errorf("has_pin: got %v, want true", resp["has_pin"])
	}
	if resp["restaurant_id"] != rid.String() {
		t.Errorf("restaurant_id: got %v, want %s", resp["restaurant_id"], rid)
	}

	created := store.created[0]
	if bcrypt.CompareHashAndPassword([]byte(created.HashedPassword), []byte("password123")) != nil {
		t.Error("stored password is not a bcrypt hash of the request password")
	}
}

func TestUserCreate_PinFreeInOtherRestaurant(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	store.add(uuid.New(), "other@cafe.test", enum.UserRoleCashier, "1234")

	rr := doAuthRequest(t, setupUserRouter(store), "POST", usersPath(rid),
		newStaffBody("cashier@bistro.test", enum.UserRoleCashier, "1234"), actor(owner))
	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

// --- Update ---

func TestUserUpdate_ChangesRoleAndClearsPin(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	cashier := store.add(rid, "cashier@bistro.test", enum.UserRoleCashier, "1234")

	rr := doAuthRequest(t, setupUserRouter(store), "PUT", usersPath(rid, cashier.ID), map[string]interface{}{
		"email":     "cashier@bistro.test",
		"full_name": "Floor Lead",
		"role":      enum.UserRoleManager,
	}, actor(owner))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	got := store.users[cashier.ID]
	if got.Role != enum.UserRoleManager || got.FullName != "Floor Lead" {
		t.Errorf("got role=%s name=%s", got.Role, got.FullName)
	}
	if got.Pin.Valid {
		t.Error("omitted PIN should clear PIN login")
	}
}

func TestUserUpdate_KeepsOwnPin(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	cashier := store.add(rid, "cashier@bistro.test", enum.UserRoleCashier, "1234")

	rr := doAuthRequest(t, setupUserRouter(store), "PUT", usersPath(rid, cashier.ID),
		newStaffBody("cashier@bistro.test", enum.UserRoleCashier, "1234"), actor(owner))
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestUserUpdate_Errors(t *testing.T) {
	rid := uuid.New()
	store := newMockUserStore()
	manager := store.add(rid, "manager@bistro.test", enum.UserRoleManager, "")
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	cashier := store.add(rid, "cashier@bistro.test", enum.UserRoleCashier, "1111")
	store.add(rid, "cook@bistro.test", enum.UserRoleKitchenStaff, "2222")
	foreign := store.add(uuid.New(), "foreign@cafe.test", enum.UserRoleCashier, "")

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"promote above self", usersPath(rid, cashier.ID), newStaffBody("cashier@bistro.test", enum.UserRoleOwner, ""), http.StatusForbidden},
		{"edit owner", usersPath(rid, owner.ID), newStaffBody("owner@bistro.test", enum.UserRoleManager, ""), http.StatusForbidden},
		{"other restaurant", usersPath(rid, foreign.ID), newStaffBody("foreign@cafe.test", enum.UserRoleCashier, ""), http.StatusNotFound},
		{"unknown user", usersPath(rid, uuid.New()), newStaffBody("x@bistro.test", enum.UserRoleCashier, ""), http.StatusNotFound},
		{"pin held by cook", usersPath(rid, cashier.ID), newStaffBody("cashier@bistro.test", enum.UserRoleCashier, "2222"), http.StatusConflict},
		{"email held by owner", usersPath(rid, cashier.ID), newStaffBody("owner@bistro.test", enum.UserRoleCashier, ""), http.StatusConflict},
		{"missing fields", usersPath(rid, cashier.ID), map[string]interface{}{"role": enum.UserRoleCashier}, http.StatusBadRequest},
		{"bad user id", "/restaurants/" + rid.String() + "/users/nope", newStaffBody("x@bistro.test", enum.UserRoleCashier, ""), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, setupUserRouter(store), "PUT", tt.path, tt.body, actor(manager))
			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
	if store.users[cashier.ID].Pin.String != "1111" {
		t.Error("rejected updates changed the cashier")
	}
}

// --- Delete ---

func TestUserDelete(t *testing.T) {
	rid := uuid.New()

	tests := []struct {
		name       string
		actorRole  string
		targetRole string
		self       bool
		wantStatus int
	}{
		{"owner removes cashier", enum.UserRoleOwner, enum.UserRoleCashier, false, http.StatusNoContent},
		{"manager removes manager", enum.UserRoleManager, enum.UserRoleManager, false, http.StatusNoContent},
		{"manager cannot remove owner", enum.UserRoleManager, enum.UserRoleOwner, false, http.StatusForbidden},
		{"owner cannot remove self", enum.UserRoleOwner, enum.UserRoleOwner, true, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockUserStore()
			caller := store.add(rid, "caller@bistro.test", tt.actorRole, "")
			target := caller
			if !tt.self {
				target = store.add(rid, "target@bistro.test", tt.targetRole, "")
			}

			rr := doAuthRequest(t, setupUserRouter(store), "DELETE", usersPath(rid, target.ID), nil, actor(caller))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if active := store.users[target.ID].IsActive; active == (tt.wantStatus == http.StatusNoContent) {
				t.Errorf("target is_active=%v after status %d", active, rr.Code)
			}
		})
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	store := newMockUserStore()
	rid := uuid.New()
	owner := store.add(rid, "owner@bistro.test", enum.UserRoleOwner, "")
	gone := store.add(rid, "gone@bistro.test", enum.UserRoleCashier, "")
	gone.IsActive = false
	store.users[gone.ID] = gone
	foreign := store.add(uuid.New(), "foreign@cafe.test", enum.UserRoleCashier, "")

	for _, id := range []uuid.UUID{gone.ID, foreign.ID, uuid.New()} {
		rr := doAuthRequest(t, setupUserRouter(store), "DELETE", usersPath(rid, id), nil, actor(owner))
		if rr.Code != http.StatusNotFound {
			t.Errorf("delete %s: got %d, want %d", id, rr.Code, http.StatusNotFound)
		}
	}
	if !store.users[foreign.ID].IsActive {
		t.Error("another restaurant's user was deleted")
	}
}
