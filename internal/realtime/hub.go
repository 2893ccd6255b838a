// Package realtime fans lifecycle events out to connected dashboard
// observers over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Observer is a registered connection. Writes to one observer are
// serialized by its own mutex.
type Observer struct {
	conn        Conn
	UserID      string
	Role        domain.Role
	ConnectedAt time.Time

	writeMu sync.Mutex
}

func (o *Observer) write(payload []byte, timeout time.Duration) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	if timeout > 0 {
		if err := o.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

// Stats summarises the registry.
type Stats struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"by_role"`
}

// Hub is the registry of live observers, indexed both by connection and
// by role so a role-scoped broadcast only visits that role's bucket.
type Hub struct {
	mu           sync.RWMutex
	observers    map[Conn]*Observer
	byRole       map[domain.Role]map[Conn]*Observer
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// NewHub builds an empty hub. metrics may be nil.
func NewHub(writeTimeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		observers:    make(map[Conn]*Observer),
		byRole:       make(map[domain.Role]map[Conn]*Observer),
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// Connect registers conn. Registering the same conn again returns the
// existing observer unchanged.
func (h *Hub) Connect(conn Conn, userID string, role domain.Role) *Observer {
	h.mu.Lock()
	if existing, ok := h.observers[conn]; ok {
		h.mu.Unlock()
		return existing
	}
	obs := &Observer{conn: conn, UserID: userID, Role: role, ConnectedAt: time.Now().UTC()}
	h.observers[conn] = obs
	bucket := h.byRole[role]
	if bucket == nil {
		bucket = make(map[Conn]*Observer)
		h.byRole[role] = bucket
	}
	bucket[conn] = obs
	count := len(bucket)
	h.mu.Unlock()

	h.metrics.SetObservers(string(role), count)
	h.logger.Info("observer connected", zap.String("user_id", userID), zap.String("role", string(role)))
	return obs
}

// Disconnect removes conn. It reports whether conn was registered and is
// safe to call more than once.
func (h *Hub) Disconnect(conn Conn) bool {
	h.mu.Lock()
	obs, ok := h.observers[conn]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.observers, conn)
	bucket := h.byRole[obs.Role]
	delete(bucket, conn)
	count := len(bucket)
	if count == 0 {
		delete(h.byRole, obs.Role)
	}
	h.mu.Unlock()

	h.metrics.SetObservers(string(obs.Role), count)
	h.logger.Info("observer disconnected", zap.String("user_id", obs.UserID), zap.String("role", string(obs.Role)))
	return true
}

// Broadcast delivers event to every observer holding targetRole, or to
// every observer when targetRole is empty. Observers whose write fails are
// disconnected. It returns the number of successful deliveries.
func (h *Hub) Broadcast(ctx context.Context, event events.Event, targetRole domain.Role) int {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	source := h.observers
	if targetRole != "" {
		source = h.byRole[targetRole]
	}
	targets := make([]*Observer, 0, len(source))
	for _, obs := range source {
		targets = append(targets, obs)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, obs := range targets {
		if ctx.Err() != nil {
			break
		}
		if err := obs.write(payload, h.writeTimeout); err != nil {
			h.metrics.RecordDelivery(string(event.Type), false)
			h.logger.Warn("broadcast write failed; dropping observer",
				zap.String("user_id", obs.UserID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			if h.Disconnect(obs.conn) {
				_ = obs.conn.Close()
			}
			continue
		}
		h.metrics.RecordDelivery(string(event.Type), true)
		delivered++
	}
	return delivered
}

// Send writes a raw text frame to a single registered observer.
func (h *Hub) Send(conn Conn, payload []byte) error {
	h.mu.RLock()
	obs, ok := h.observers[conn]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("observer not registered")
	}
	return obs.write(payload, h.writeTimeout)
}

// Close disconnects and closes every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	observers := h.observers
	h.observers = make(map[Conn]*Observer)
	h.byRole = make(map[domain.Role]map[Conn]*Observer)
	h.mu.Unlock()

	for conn := range observers {
		_ = conn.Close()
	}
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RolePorter, domain.RoleService} {
		h.metrics.SetObservers(string(role), 0)
	}
	h.logger.Info("hub closed", zap.Int("observers", len(observers)))
}

// Stats returns the total and per-role observer counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := Stats{Total: len(h.observers), ByRole: make(map[string]int, len(h.byRole))}
	for role, bucket := range h.byRole {
		stats.ByRole[string(role)] = len(bucket)
	}
	return stats
}
