package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"robot-arena/internal/config"
	"robot-arena/internal/logging"
)

const (
	// MaxWSConnectionsPerIP bounds concurrent sockets from one address
	MaxWSConnectionsPerIP = 10

	wsWriteWait     = 5 * time.Second
	wsMaxMessage    = 4096
	wsSendBuffer    = 16
	eventArenaState = "arena:state"
	eventError      = "error"
)

// HubConfig configures the WebSocket hub
type HubConfig struct {
	AllowedOrigins []string
	MaxClients     int
	MaxPerIP       int
	BroadcastEvery time.Duration
}

// HubConfigFrom takes the hub settings from the server section
func HubConfigFrom(cfg config.ServerConfig) HubConfig {
	return HubConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxClients:     cfg.MaxWSClients,
		MaxPerIP:       MaxWSConnectionsPerIP,
		BroadcastEvery: cfg.BroadcastEvery,
	}
}

// ClientMessage is what clients send. "key" steers a user controlled robot
// with a W/A/S/D token. "wheels" applies a wheel preset (Mode) to a
// wheel-driven robot.
type ClientMessage struct {
	Type    string `json:"type"`
	RobotID int    `json:"robotId"`
	Key     string `json:"key,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// envelope is what the hub sends
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type wsClient struct {
	id   string
	ip   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// trySend queues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *wsClient) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WebSocketHub fans arena snapshots out to connected clients and forwards
// their key presses to the engine.
type WebSocketHub struct {
	engine   Engine
	cfg      HubConfig
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient

	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient

	ipLimiter *connLimiter
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewWebSocketHub builds a hub. Nothing runs until Run is called.
func NewWebSocketHub(engine Engine, cfg HubConfig, log *zap.Logger) *WebSocketHub {
	log = logging.OrNop(log)
	if cfg.BroadcastEvery <= 0 {
		cfg.BroadcastEvery = config.DefaultServer().BroadcastEvery
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultCORSOrigins
	}

	h := &WebSocketHub{
		engine:     engine,
		cfg:        cfg,
		log:        log.Named("ws"),
		clients:    make(map[string]*wsClient),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		ipLimiter:  newConnLimiter(cfg.MaxPerIP),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if originAllowed(h.cfg.AllowedOrigins, origin) {
				return true
			}
			h.log.Warn("websocket origin rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set until Stop is called.
func (h *WebSocketHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Info("client connected", zap.String("client", c.id), zap.String("ip", c.ip), zap.Int("total", count))
			UpdateWSConnections(count)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*wsClient
			for _, c := range h.clients {
				if c.trySend(msg) {
					recordWSMessage("out")
				} else {
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.log.Warn("dropping slow client", zap.String("client", c.id))
				h.drop(c)
			}

		case <-h.stopChan:
			h.mu.Lock()
			for id, c := range h.clients {
				c.close()
				h.ipLimiter.Release(c.ip)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

func (h *WebSocketHub) drop(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.ipLimiter.Release(c.ip)
	h.log.Info("client disconnected", zap.String("client", c.id), zap.Int("remaining", count))
	UpdateWSConnections(count)
}

// Stop ends Run and the broadcast loop and closes every client.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// Broadcast queues an event for every client. It never blocks; when the
// queue is full the event is dropped.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error("marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the engine snapshot every BroadcastEvery while
// clients are connected. Unchanged snapshots are not resent.
func (h *WebSocketHub) StartBroadcastLoop() {
	ticker := time.NewTicker(h.cfg.BroadcastEvery)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}
			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.Snapshot()
			if snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast(eventArenaState, snap)
		}
	}()
}

// HandleWebSocket upgrades the request and registers the client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.cfg.MaxClients > 0 && h.ClientCount() >= h.cfg.MaxClients {
		h.log.Warn("websocket rejected, hub full", zap.Int("max", h.cfg.MaxClients))
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.ipLimiter.Acquire(ip) {
		h.log.Warn("websocket rejected, per-ip limit", zap.String("ip", ip))
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		h.ipLimiter.Release(ip)
		return
	}

	c := &wsClient{
		id:   uuid.NewString(),
		ip:   ip,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.stopChan:
		h.ipLimiter.Release(ip)
		conn.Close()
		return
	}

	// Send the current state right away so clients do not wait a tick.
	if msg, err := json.Marshal(envelope{Event: eventArenaState, Data: h.engine.Snapshot()}); err == nil {
		c.trySend(msg)
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHub) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopChan:
		}
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		recordWSMessage("in")
		h.handleMessage(c, data)
	}
}

func (h *WebSocketHub) handleMessage(c *wsClient, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(c, eventError, map[string]string{"error": "invalid message"})
		return
	}

	switch msg.Type {
	case "key":
		if err := h.engine.SetDirection(msg.RobotID, msg.Key); err != nil {
			h.reply(c, eventError, map[string]string{"error": err.Error()})
			return
		}
		h.log.Debug("key", zap.String("client", c.id), zap.Int("robot", msg.RobotID), zap.String("key", msg.Key))
	case "wheels":
		if err := h.engine.SetWheels(msg.RobotID, msg.Mode); err != nil {
			h.reply(c, eventError, map[string]string{"error": err.Error()})
			return
		}
		h.log.Debug("wheels", zap.String("client", c.id), zap.Int("robot", msg.RobotID), zap.String("mode", msg.Mode))
	default:
		h.reply(c, eventError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func (h *WebSocketHub) reply(c *wsClient, event string, data interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.trySend(msg)
}
