package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parking_allocator/internal/domain"
)

var ErrBroadcastFull = errors.New("websocket broadcast queue is full")

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn      *websocket.Conn
	principal domain.Principal
}

// WebSocketManager fans parking events out to connected dashboards. Booking
// and billing fields reach only admins and the user they belong to.
type WebSocketManager struct {
	clients    map[*websocket.Conn]domain.Principal
	register   chan wsClient
	unregister chan *websocket.Conn
	broadcast  chan domain.ParkingEvent
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]domain.Principal),
		register:   make(chan wsClient),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan domain.ParkingEvent, 64),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop until ctx is done, then closes every client.
func (wsm *WebSocketManager) Start(ctx context.Context) {
	defer close(wsm.done)
	for {
		select {
		case <-ctx.Done():
			wsm.mutex.Lock()
			for client := range wsm.clients {
				client.Close()
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client.conn] = client.principal
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			zap.L().Debug("websocket client connected",
				zap.Int("user_id", client.principal.UserID), zap.Int("total", total))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			zap.L().Debug("websocket client disconnected", zap.Int("total", total))

		case event := <-wsm.broadcast:
			wsm.send(event)
		}
	}
}

func (wsm *WebSocketManager) send(event domain.ParkingEvent) {
	full, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("encode websocket event", zap.Error(err))
		return
	}
	redacted, err := json.Marshal(event.Redacted())
	if err != nil {
		zap.L().Error("encode websocket event", zap.Error(err))
		return
	}

	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()
	for client, p := range wsm.clients {
		message := redacted
		if event.VisibleTo(p) {
			message = full
		}
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			zap.L().Debug("dropping websocket client", zap.Error(err))
			client.Close()
			delete(wsm.clients, client)
		}
	}
}

// join reports false once the hub has stopped.
func (wsm *WebSocketManager) join(conn *websocket.Conn, p domain.Principal) bool {
	select {
	case wsm.register <- wsClient{conn: conn, principal: p}:
		return true
	case <-wsm.done:
		return false
	}
}

func (wsm *WebSocketManager) leave(conn *websocket.Conn) {
	select {
	case wsm.unregister <- conn:
	case <-wsm.done:
	}
}

func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

func (wsm *WebSocketManager) Name() string { return "websocket" }

// Publish queues the event for broadcast without blocking the caller.
func (wsm *WebSocketManager) Publish(_ context.Context, event domain.ParkingEvent) error {
	select {
	case wsm.broadcast <- event:
		return nil
	default:
		return ErrBroadcastFull
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if !h.wsManager.join(conn, p) {
		conn.Close()
		return
	}

	// Clients only listen; reading detects the disconnect.
	go func() {
		defer h.wsManager.leave(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					zap.L().Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()
}
