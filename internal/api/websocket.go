package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal caps connected viewers.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps viewers per source address.
	MaxWSConnectionsPerIP = 10

	// broadcastInterval is the state push rate; the full simulation runs
	// faster, viewers interpolate between pushes.
	broadcastInterval = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket rejected from origin %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// IsAllowedOrigin accepts same-host and localhost origins. Browsers that
// send no Origin header (non-browser clients) pass.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://localhost")
}

type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// Hub manages viewer WebSocket connections.
type Hub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	connLimiter *ConnLimiter

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewHub creates a hub with per-IP connection limiting.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*websocket.Conn]*wsClient),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *wsClient),
		unregister:  make(chan *websocket.Conn),
		connLimiter: NewConnLimiter(MaxWSConnectionsPerIP),
		stopChan:    make(chan struct{}),
	}
}

// Run processes hub events until Stop. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("viewer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.connLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("viewer disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.connLimiter.Release(client.ip)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()

		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.connLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast queues an event for all viewers; drops under backpressure.
func (h *Hub) Broadcast(event string, data interface{}) {
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
		// Channel full; this push is stale by the next tick anyway
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes aquarium state to viewers at a fixed rate.
func (h *Hub) StartBroadcastLoop(engine EngineSource, objects ObjectSource) {
	go func() {
		ticker := time.NewTicker(broadcastInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				snap := engine.Snapshot()
				if snap == nil {
					continue
				}
				h.Broadcast("aquarium:state", map[string]interface{}{
					"tick":         snap.TickNumber,
					"fish":         snap.Fish,
					"bubbles":      snap.Bubbles,
					"fishCount":    snap.FishCount,
					"visibleCount": snap.VisibleCount,
					"objects":      objects.Objects(),
				})
			case <-h.stopChan:
				return
			}
		}
	}()
}

// HandleWebSocket upgrades a viewer connection with connection caps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.connLimiter.Allow(ip) {
		log.Printf("websocket rejected from %s: per-IP limit", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from this address", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.connLimiter.Release(ip)
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.register <- &wsClient{conn: conn, ip: ip}

	// Reader goroutine: we ignore inbound messages but need the read
	// loop for close/ping handling.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadLimit(4096)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
