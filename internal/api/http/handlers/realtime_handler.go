package handlers

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/realtime"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const (
	localObserverID   = "observer_id"
	localObserverRole = "observer_role"
)

// RealtimeHandler serves the observer websocket and hub statistics.
type RealtimeHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{hub: hub, logger: logger.Named("ws")}
}

// Stats GET /api/v1/realtime/stats.
func (h *RealtimeHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.hub.Stats()})
}

// Upgrade rejects plain HTTP requests and hands the principal to the
// websocket handler.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	c.Locals(localObserverID, principal.ID)
	c.Locals(localObserverRole, principal.Role)
	return c.Next()
}

// Serve GET /ws.
func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localObserverID).(string)
		role, _ := conn.Locals(localObserverRole).(domain.Role)
		h.hub.Connect(conn, userID, role)
		defer func() {
			h.hub.Disconnect(conn)
			_ = conn.Close()
		}()

		for {
			messageType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if strings.TrimSpace(string(msg)) == "ping" {
				if err := h.hub.Send(conn, []byte("pong")); err != nil {
					h.logger.Debug("pong failed", zap.String("user_id", userID), zap.Error(err))
					return
				}
			}
		}
	})
}
