package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// AlertSender delivers a plain text message to a chat.
type AlertSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// NotificationService turns lifecycle events into chat messages for the
// admin channel and for the reporter.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     AlertSender
	tickets    repository.TicketRepository
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Sender     AlertSender
	TicketRepo repository.TicketRepository
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service. A nil sender disables chat
// delivery but events are still logged.
func NewNotificationService(cfg config.NotificationConfig, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		sender:     deps.Sender,
		tickets:    deps.TicketRepo,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		metrics:    deps.Metrics,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventNewTicket, n.handleNewTicket)
	n.dispatcher.Subscribe(events.EventStatusUpdate, n.handleStatusUpdate)
	n.dispatcher.Subscribe(events.EventAssignmentUpdate, n.handleAssignmentUpdate)
}

func (n *NotificationService) handleNewTicket(ctx context.Context, event events.Event) error {
	n.logger.Info("new_ticket", zap.String("ticket_id", event.TicketID))
	severity := fmt.Sprint(event.Data["severity"])
	if n.cfg.HighSeverityOnly && severity != string(domain.SeverityHigh) {
		return nil
	}
	text := fmt.Sprintf("New complaint %s\nHostel: %v, room %v\nCategory: %v\nSeverity: %s",
		shortID(event.TicketID), event.Data["hostel"], event.Data["room_number"], event.Data["category"], strings.ToUpper(severity))
	return n.sendAdmin(ctx, text)
}

func (n *NotificationService) handleStatusUpdate(ctx context.Context, event events.Event) error {
	n.logger.Info("status_update", zap.String("ticket_id", event.TicketID), zap.Any("data", event.Data))
	text := fmt.Sprintf("Complaint %s: %v -> %v", shortID(event.TicketID), event.Data["old_status"], event.Data["new_status"])
	if err := n.sendAdmin(ctx, text); err != nil {
		n.logger.Warn("admin alert failed", zap.Error(err))
	}
	if !n.cfg.NotifyReporter {
		return nil
	}
	return n.notifyReporter(ctx, event)
}

func (n *NotificationService) handleAssignmentUpdate(_ context.Context, event events.Event) error {
	n.logger.Info("assignment_update", zap.String("ticket_id", event.TicketID), zap.Any("data", event.Data))
	return nil
}

func (n *NotificationService) sendAdmin(ctx context.Context, text string) error {
	if n.sender == nil || n.cfg.AdminChatID == 0 {
		return nil
	}
	if !n.limiter.Allow() {
		n.logger.Warn("admin alert dropped by rate limit")
		n.metrics.RecordNotification("admin", false)
		return nil
	}
	err := n.sender.SendText(ctx, n.cfg.AdminChatID, text)
	n.metrics.RecordNotification("admin", err == nil)
	return err
}

func (n *NotificationService) notifyReporter(ctx context.Context, event events.Event) error {
	if n.sender == nil || n.tickets == nil {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(ticket.ReporterID, 10, 64)
	if err != nil {
		n.logger.Debug("reporter is not a chat id", zap.String("reporter_id", ticket.ReporterID))
		return nil
	}
	status := domain.TicketStatus(fmt.Sprint(event.Data["new_status"]))
	text := fmt.Sprintf("Your complaint %s is now %s.", shortID(ticket.ID), statusLabel(status))
	err = n.sender.SendText(ctx, chatID, text)
	n.metrics.RecordNotification("reporter", err == nil)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusLabel(status domain.TicketStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}
