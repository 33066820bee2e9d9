package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Clients only send control frames.
	maxReadSize = 512

	hubQueue    = 256
	clientQueue = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxReadSize,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Config describes the process for the greeting sent on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
	// Status, when set, is included in the greeting.
	Status func() strategy.Status
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams tick reports to dashboard clients. Reports come straight from
// the engine (PublishReport) or from a Redis channel (Relay) when several
// processes share one dashboard. A client whose queue fills is disconnected
// so one slow browser cannot stall the others.
type Hub struct {
	cfg    Config
	logger *slog.Logger
	queue  chan []byte

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a Hub. Run must be started for reports to flow.
func NewHub(logger *slog.Logger, cfg Config) *Hub {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = "unknown"
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now().UTC()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "ws_hub")),
		queue:   make(chan []byte, hubQueue),
		clients: make(map[*client]struct{}),
	}
}

// Run fans queued reports out to every client until ctx is cancelled, then
// disconnects them all.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed = true
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return nil

		case data := <-h.queue:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("ws: disconnecting slow client")
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop forgets c and closes its queue, which makes its writer hang up.
// h.mu must be held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) enqueue(data []byte) {
	select {
	case h.queue <- data:
	default:
		h.logger.Warn("ws: queue full, dropping report")
	}
}

// PublishReport implements domain.ReportSink. It never blocks the engine.
func (h *Hub) PublishReport(_ context.Context, r domain.TickReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	h.enqueue(data)
	return nil
}

// Relay forwards every payload received on a bus channel until ctx is
// cancelled or the subscription closes.
func (h *Hub) Relay(ctx context.Context, bus domain.SignalBus, channel string) error {
	msgs, err := bus.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	h.logger.Info("ws: relaying channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: relay subscription closed", slog.String("channel", channel))
				return nil
			}
			h.enqueue(data)
		}
	}
}

// HandleWS upgrades the request and streams reports to it.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueue)}
	if greet, err := h.greeting(); err == nil {
		c.send <- greet
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws: client connected", slog.Int("clients", n))

	go h.write(c)
	go h.read(c)
}

// read discards client frames. It keeps the read deadline moving on pongs
// and notices when the peer goes away.
func (h *Hub) read(c *client) {
	defer func() {
		h.mu.Lock()
		h.drop(c)
		n := len(h.clients)
		h.mu.Unlock()
		c.conn.Close()
		h.logger.Info("ws: client disconnected", slog.Int("clients", n))
	}()

	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *Hub) write(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) greeting() ([]byte, error) {
	payload := map[string]any{
		"mode":           h.cfg.Mode,
		"ws_connected":   true,
		"uptime_seconds": max(int64(time.Since(h.cfg.StartedAt).Seconds()), 0),
	}
	if h.cfg.Status != nil {
		payload["loop"] = h.cfg.Status()
	}
	return json.Marshal(map[string]any{
		"type":    "bot_status",
		"payload": payload,
	})
}

var _ domain.ReportSink = (*Hub)(nil)
