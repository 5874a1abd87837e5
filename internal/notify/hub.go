package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/celiscope/celiscope/internal/identity"
)

const writeTimeout = 5 * time.Second

// Message is the JSON frame pushed to websocket clients.
type Message struct {
	Type   string    `json:"type"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// Hub keeps the notification websockets of connected users.
type Hub struct {
	tokens         identity.TokenParser
	originPatterns []string

	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewHub creates a hub authenticating clients with tokens. origins are the
// allowed browser origins as URLs.
func NewHub(tokens identity.TokenParser, origins []string) *Hub {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, o)
		}
	}
	return &Hub{
		tokens:         tokens,
		originPatterns: patterns,
		active:         make(map[string]map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades an authenticated request and keeps the connection
// until the client leaves. The access token is read from the "token"
// query parameter or the Authorization header.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = identity.BearerToken(r)
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	profile, err := h.tokens.ParseAccess(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := profile.ID

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	connID := uuid.NewString()
	h.register(userID, connID, ws)
	defer h.unregister(userID, connID, ws)

	h.readLoop(r.Context(), ws, userID)
}

func (h *Hub) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Notification socket closed by client", "user_id", userID)
			} else {
				slog.Debug("Notification socket read error", "error", err, "user_id", userID)
			}
			return
		}
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		}
	}
}

func (h *Hub) register(userID, connID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[userID]; !ok {
		h.active[userID] = make(map[string]*websocket.Conn)
	}
	h.active[userID][connID] = ws
	slog.Info("Notification socket registered", "user_id", userID, "connections", len(h.active[userID]))
}

func (h *Hub) unregister(userID, connID string, ws *websocket.Conn) {
	h.mu.Lock()
	if conns, ok := h.active[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.active, userID)
		}
	}
	h.mu.Unlock()
	_ = ws.Close(websocket.StatusNormalClosure, "bye")
}

// Connections returns the number of open sockets of a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// Push writes msg to every socket of the user and returns how many
// received it.
func (h *Hub) Push(ctx context.Context, userID string, msg Message) int {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[userID]))
	for _, c := range h.active[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if err := writeJSON(ctx, c, msg); err != nil {
			slog.Debug("Notification push failed", "error", err, "user_id", userID)
			continue
		}
		delivered++
	}
	return delivered
}

// Close closes every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.active {
		for _, c := range conns {
			_ = c.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(h.active, userID)
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
