package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"sap2d/internal/metrics"
	"sap2d/internal/service"
	"sap2d/internal/spatial"

	"github.com/gorilla/websocket"
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub manages all WebSocket connections with DoS protection and
// broadcasts the broadphase's live pair set to subscribed clients.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	wsLimiter *WebSocketRateLimiter
	maxTotal  int
}

// NewWebSocketHub creates a new hub with connection limiting. maxTotal and
// maxPerIP come from config.ResourceLimits; checker decides which Origin
// headers are allowed to upgrade.
func NewWebSocketHub(maxTotal, maxPerIP int, checker *OriginChecker) *WebSocketHub {
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(maxPerIP),
		maxTotal:   maxTotal,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if checker.Allowed(origin) {
				return true
			}
			log.Printf("WebSocket connection rejected from origin: %s", origin)
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub's event loop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			h.mu.Unlock()

			count := len(h.clients)
			log.Printf("Client connected from %s (%d total)", client.ip, count)
			metrics.UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

			count := len(h.clients)
			log.Printf("Client disconnected (%d remaining)", count)
			metrics.UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				err := conn.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					conn.Close()
					h.mu.RUnlock()
					h.mu.Lock()
					if client, ok := h.clients[conn]; ok {
						h.wsLimiter.Release(client.ip)
						delete(h.clients, conn)
					}
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
			metrics.IncrementWSMessages()
		}
	}
}

// Broadcast sends an event to all connected clients.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// pairJSON is the wire shape of one overlapping pair sent to subscribers.
type pairJSON struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

// StartBroadcastLoop periodically pushes the current pair set to every
// connected client. It reads svc through its locked Pairs/Stats accessors
// rather than touching a *spatial.Broadphase directly, since svc mutates the
// broadphase under its write lock and only those accessors take the read lock.
func (h *WebSocketHub) StartBroadcastLoop(svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		for range ticker.C {
			if h.ClientCount() == 0 {
				continue
			}

			words := svc.Pairs()
			pairs := make([]pairJSON, len(words))
			for i, w := range words {
				pairs[i] = pairJSON{
					A: uint32(spatial.FirstEntityFromPair(w)),
					B: uint32(spatial.SecondEntityFromPair(w)),
				}
			}

			stats := svc.Stats()
			h.Broadcast("broadphase:pairs", map[string]interface{}{
				"pairs":       pairs,
				"numEntities": stats.NumEntities,
				"numPairs":    stats.NumPairs,
			})
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	totalConnections := len(h.clients)
	h.mu.RUnlock()

	if totalConnections >= h.maxTotal {
		log.Printf("WebSocket connection rejected: total limit reached (%d)", totalConnections)
		metrics.RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("WebSocket connection rejected from %s: per-IP limit reached", ip)
		metrics.RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{conn: conn, ip: ip}
	h.register <- client

	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			// Clients only subscribe; inbound messages carry no commands.
		}
	}()
}
