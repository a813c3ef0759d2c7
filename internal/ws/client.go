package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/restodesk/api/internal/auth"
	"github.com/restodesk/api/internal/enum"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // auth is the JWT in the query string
	},
}

// Client is one dashboard, POS or kitchen screen subscribed to a restaurant.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	restaurantID uuid.UUID
	// types limits delivery to these event types; nil means every type.
	types map[string]bool
	send  chan []byte
}

// accepts reports whether the client subscribed to eventType.
func (c *Client) accepts(eventType string) bool {
	return c.types == nil || c.types[eventType]
}

// parseEventTypes reads a comma separated ?events= filter.
func parseEventTypes(raw string) map[string]bool {
	var types map[string]bool
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if types == nil {
			types = make(map[string]bool)
		}
		types[t] = true
	}
	return types
}

// ReadPump only watches for pongs and disconnects; screens never send
// application messages.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: websocket read (restaurant %s): %v", c.restaurantID, err)
			}
			return
		}
	}
}

// WritePump writes one event per text frame and pings on idle.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// authorize checks the token and the tenant of a websocket request. On
// failure it returns the HTTP status and message to reply with.
func authorize(r *http.Request, jwtSecret string) (uuid.UUID, int, string) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		return uuid.Nil, http.StatusUnauthorized, "missing token"
	}
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		return uuid.Nil, http.StatusUnauthorized, "invalid token"
	}

	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, "invalid restaurant id"
	}
	if claims.Role != enum.UserRoleSystemSuperAdmin && claims.RestaurantID != restaurantID {
		return uuid.Nil, http.StatusForbidden, "restaurant access denied"
	}
	return restaurantID, http.StatusOK, ""
}

// ServeWS upgrades and registers a restaurant subscriber.
// Endpoint: WS /ws/restaurants/{rid}/events?token=JWT[&events=order.created,order.updated]
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	restaurantID, status, msg := authorize(r, jwtSecret)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade: %v", err)
		return
	}

	client := &Client{
		hub:          hub,
		conn:         conn,
		restaurantID: restaurantID,
		types:        parseEventTypes(r.URL.Query().Get("events")),
		send:         make(chan []byte, sendBuffer),
	}
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
