package websocket

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 256
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler serves the event stream. allowedOrigins follows the CORS
// setting; "*" accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || slices.Contains(allowedOrigins, "*") {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeHTTP upgrades the connection. An optional comma separated kind query
// parameter restricts which events are streamed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kinds := map[domain.EventKind]bool{}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			kind, ok := domain.ParseEventKind(strings.TrimSpace(s))
			if !ok {
				http.Error(w, "invalid event kind", http.StatusBadRequest)
				return
			}
			kinds[kind] = true
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("failed to upgrade to websocket", "error", err)
		return
	}

	client := &Client{
		kinds: kinds,
		send:  make(chan []byte, sendBuffer),
	}
	h.hub.RegisterClient(client)

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// readPump only handles control frames; clients never send events.
func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.hub.UnregisterClient(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.hub.logger.Warn("stream read failed", "error", err)
			}
			return
		}
	}
}

// writePump sends one event per text message.
func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
