// Package realtime holds the websocket connections of this instance. The Hub
// is the notification sink and keeps the presence directory current.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/auth"
	"github.com/dmitrijs2005/pairsync/internal/server/metrics"
	"github.com/dmitrijs2005/pairsync/internal/server/presence"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errSendBufferFull = errors.New("send buffer full")

// Message is the frame pushed to clients.
type Message struct {
	Method  string `json:"method"`
	Payload any    `json:"payload"`
}

// Hub keeps at most one connection per UID; a newer connection replaces an
// older one.
type Hub struct {
	instanceID string
	registry   presence.Registry
	secret     []byte
	logger     logging.Logger
	upgrader   websocket.Upgrader
	refresh    time.Duration

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub builds a hub. refresh is how often live entries are refreshed so
// they outlive the presence TTL.
func NewHub(instanceID string, reg presence.Registry, secret []byte, refresh time.Duration, l logging.Logger) *Hub {
	return &Hub{
		instanceID: instanceID,
		registry:   reg,
		secret:     secret,
		logger:     l.With("module", "realtime_hub"),
		refresh:    refresh,
		clients:    make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func tokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if t := r.Header.Get(common.AccessTokenHeaderName); t != "" {
		return t
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// ServeHTTP authenticates the caller and upgrades the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, err := auth.GetUIDFromToken(tokenFromRequest(r), h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "websocket upgrade failed", "uid", uid, "error", err)
		return
	}

	c := &client{
		hub:   h,
		uid:   uid,
		ident: uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
	if err := h.add(ctx, c); err != nil {
		h.logger.Error(ctx, "presence register failed", "uid", uid, "error", err)
		_ = conn.Close()
		return
	}
	c.start()
}

func (h *Hub) add(ctx context.Context, c *client) error {
	if err := h.registry.Register(ctx, h.entry(c)); err != nil {
		return err
	}

	h.mu.Lock()
	old := h.clients[c.uid]
	h.clients[c.uid] = c
	h.mu.Unlock()

	if old != nil {
		old.close()
	} else {
		metrics.LocalConnections.Inc()
	}
	h.logger.Info(ctx, "client connected", "uid", c.uid, "ident", c.ident)
	return nil
}

func (h *Hub) remove(c *client) {
	ctx := context.Background()

	h.mu.Lock()
	current := h.clients[c.uid] == c
	if current {
		delete(h.clients, c.uid)
	}
	h.mu.Unlock()
	c.close()

	if !current {
		return
	}
	metrics.LocalConnections.Dec()
	if err := h.registry.Unregister(ctx, c.uid, c.ident); err != nil {
		h.logger.Warn(ctx, "presence unregister failed", "uid", c.uid, "error", err)
	}
	h.logger.Info(ctx, "client disconnected", "uid", c.uid, "ident", c.ident)
}

func (h *Hub) entry(c *client) presence.Entry {
	return presence.Entry{UID: c.uid, Ident: c.ident, Instance: h.instanceID}
}

// PushToUser queues a frame for uid. It is a no-op when uid is not
// connected here.
func (h *Hub) PushToUser(ctx context.Context, uid, method string, payload any) error {
	h.mu.RLock()
	c := h.clients[uid]
	h.mu.RUnlock()
	if c == nil {
		return nil
	}

	data, err := json.Marshal(Message{Method: method, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return nil
	default:
		return fmt.Errorf("push %s to %s: %w", method, uid, errSendBufferFull)
	}
}

// Connected reports whether uid has a connection on this instance.
func (h *Hub) Connected(uid string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[uid]
	return ok
}

// Serve refreshes presence entries until ctx is done, then closes every
// connection.
func (h *Hub) Serve(ctx context.Context) error {
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-ticker.C:
			h.refreshAll(ctx)
		}
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// refreshAll extends the entries this instance still holds. A client whose
// entry now names another connection has been replaced elsewhere and is
// closed.
func (h *Hub) refreshAll(ctx context.Context) {
	for _, c := range h.snapshot() {
		ok, err := h.registry.Refresh(ctx, h.entry(c))
		if err != nil {
			h.logger.Warn(ctx, "presence refresh failed", "uid", c.uid, "error", err)
			continue
		}
		if !ok {
			h.logger.Info(ctx, "connection replaced on another instance", "uid", c.uid, "ident", c.ident)
			c.close()
		}
	}
}

func (h *Hub) closeAll() {
	for _, c := range h.snapshot() {
		c.close()
	}
}
