package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/restodesk/api/internal/auth"
	"github.com/restodesk/api/internal/enum"
)

const testSecret = "ws-test-secret"

func wsRequest(t *testing.T, rid, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ws/restaurants/"+rid+"/events?token="+token, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("rid", rid)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAuthorize(t *testing.T) {
	rid := uuid.New()
	own, _ := auth.GenerateToken(testSecret, uuid.New(), rid, enum.UserRoleCashier)
	other, _ := auth.GenerateToken(testSecret, uuid.New(), uuid.New(), enum.UserRoleOwner)
	sysAdmin, _ := auth.GenerateToken(testSecret, uuid.New(), uuid.New(), enum.UserRoleSystemSuperAdmin)

	tests := []struct {
		name       string
		rid        string
		token      string
		wantStatus int
	}{
		{"own restaurant", rid.String(), own, http.StatusOK},
		{"missing token", rid.String(), "", http.StatusUnauthorized},
		{"bad token", rid.String(), "garbage", http.StatusUnauthorized},
		{"bad restaurant id", "nope", own, http.StatusBadRequest},
		{"other tenant", rid.String(), other, http.StatusForbidden},
		{"system super admin crosses tenants", rid.String(), sysAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status, _ := authorize(wsRequest(t, tt.rid, tt.token), testSecret)
			if status != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, status)
			}
			if status == http.StatusOK && got != rid {
				t.Errorf("expected restaurant %s, got %s", rid, got)
			}
		})
	}
}

func TestParseEventTypes(t *testing.T) {
	if parseEventTypes("") != nil {
		t.Error("empty filter should accept everything")
	}
	types := parseEventTypes(" order.created, ,inventory.low_stock")
	if len(types) != 2 || !types[EventOrderCreated] || !types[EventLowStock] {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestHubSkipsUnsubscribedTypes(t *testing.T) {
	hub := startHub(t)
	rid := uuid.New()

	kitchen := mockClient(hub, rid)
	kitchen.types = parseEventTypes(EventOrderCreated)
	hub.register <- kitchen
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToRestaurant(rid, Event{Type: EventLowStock, Payload: json.RawMessage(`{}`)})
	hub.BroadcastToRestaurant(rid, Event{Type: EventOrderCreated, Payload: json.RawMessage(`{}`)})

	if got := receive(t, kitchen); got.Type != EventOrderCreated {
		t.Fatalf("expected %s first, got %s", EventOrderCreated, got.Type)
	}
	select {
	case msg := <-kitchen.send:
		t.Fatalf("unexpected extra message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeWS_DeliversEvents(t *testing.T) {
	hub := startHub(t)
	rid := uuid.New()
	token, _ := auth.GenerateToken(testSecret, uuid.New(), rid, enum.UserRoleCashier)

	r := chi.NewRouter()
	r.Get("/ws/restaurants/{rid}/events", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, testSecret, w, r)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/restaurants/" + rid.String() + "/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(rid) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastToRestaurant(rid, Event{Type: EventOrderUpdated, Payload: json.RawMessage(`{"status":"ready"}`)})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventOrderUpdated || string(got.Payload) != `{"status":"ready"}` {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestServeWS_RejectsBeforeUpgrade(t *testing.T) {
	rr := httptest.NewRecorder()
	ServeWS(NewHub(), testSecret, rr, wsRequest(t, uuid.NewString(), ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
