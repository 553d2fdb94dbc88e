package notify

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

const (
	defaultBufferSize = 16
	writeTimeout      = 5 * time.Second
)

// Message is the JSON frame sent to WebSocket subscribers.
type Message struct {
	Type         string               `json:"type"`
	SessionID    string               `json:"sessionId"`
	Notification session.Notification `json:"notification"`
	SentAt       time.Time            `json:"sentAt"`
}

type subscriber struct {
	sessionID string
	send      chan Message
}

// Hub fans notifications out to WebSocket connections grouped by session.
// A subscriber whose buffer is full is dropped rather than blocking Publish.
type Hub struct {
	mu             sync.RWMutex
	subs           map[string]map[*subscriber]struct{}
	bufferSize     int
	originPatterns []string
	logger         *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets how many undelivered messages a subscriber may queue.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithOriginPatterns allows cross-origin WebSocket handshakes from these hosts.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) {
		h.originPatterns = append(h.originPatterns, patterns...)
	}
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		subs:       make(map[string]map[*subscriber]struct{}),
		bufferSize: defaultBufferSize,
		logger:     logger.With("component", "notify"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish queues n for every subscriber of sessionID. It never blocks.
func (h *Hub) Publish(_ context.Context, sessionID string, n session.Notification) error {
	msg := Message{
		Type:         "notification",
		SessionID:    sessionID,
		Notification: n,
		SentAt:       time.Now().UTC(),
	}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow subscriber", "session_id", sessionID)
		h.unsubscribe(sub)
	}
	return nil
}

// Subscribers returns the number of live connections for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// ServeHTTP upgrades the request and streams the session's notifications.
// The session is read from the "session" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe(sessionID)
	defer h.unsubscribe(sub)

	h.logger.Info("subscriber connected", "session_id", sessionID)

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.send:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.logger.Debug("websocket write failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, subs := range h.subs {
		for sub := range subs {
			close(sub.send)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func (h *Hub) subscribe(sessionID string) *subscriber {
	sub := &subscriber{
		sessionID: sessionID,
		send:      make(chan Message, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sessionID]; !ok {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.subs, sub.sessionID)
	}
}
