package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/observability"
)

// HubConfig configures websocket fan-out.
type HubConfig struct {
	// Buffer is the per-subscriber queue; a subscriber that falls this far
	// behind is disconnected.
	Buffer int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHubConfig returns default websocket configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Buffer:       64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Hub fans engine events out to websocket subscribers. It implements
// engine.EventSink.
type Hub struct {
	config   HubConfig
	log      logrus.FieldLogger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	filter issuance.ID
	send   chan engine.Event
	once   sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.send) }) }

// NewHub creates an empty hub.
func NewHub(cfg HubConfig, log logrus.FieldLogger, m *observability.Metrics) *Hub {
	def := DefaultHubConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Hub{
		config:  cfg,
		log:     log,
		metrics: m,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Publish queues ev for every matching subscriber without blocking.
func (h *Hub) Publish(ev engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.filter != "" && sub.filter != ev.IssuanceID {
			continue
		}
		select {
		case sub.send <- ev:
		default:
			h.log.WithField("event", ev.Type).Warn("dropping slow event subscriber")
			h.removeLocked(sub)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the connection and streams events as JSON text frames.
// ?issuance=<id> restricts the stream to one issuance.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	sub := &subscriber{
		filter: issuance.ID(r.URL.Query().Get("issuance")),
		send:   make(chan engine.Event, h.config.Buffer),
	}
	h.add(sub)

	done := make(chan struct{})
	go h.readLoop(conn, sub, done)
	h.writeLoop(conn, sub, done)
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.EventSubscribers.Set(float64(n))
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.close()
	if h.metrics != nil {
		h.metrics.EventSubscribers.Set(float64(len(h.subs)))
	}
}

// readLoop discards client frames and reports when the peer goes away.
func (h *Hub) readLoop(conn *websocket.Conn, sub *subscriber, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber, done <-chan struct{}) {
	ping := time.NewTicker(h.config.PingInterval)
	defer func() {
		ping.Stop()
		h.remove(sub)
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
