// Package intake runs the per-chat complaint reporting conversation.
package intake

import (
	"context"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// State is a step of the reporting conversation.
type State string

const (
	StateSelectHostel   State = "select_hostel"
	StateGetRoomNumber  State = "get_room_number"
	StateSelectCategory State = "select_category"
	StateGetDescription State = "get_description"
	StateSelectSeverity State = "select_severity"
	StateAttachPhotos   State = "attach_photos"
)

// Session is the conversation state of one chat.
type Session struct {
	ChatID    int64                 `json:"chat_id"`
	UserID    string                `json:"user_id"`
	State     State                 `json:"state"`
	Draft     domain.ComplaintDraft `json:"draft"`
	TicketID  string                `json:"current_ticket_id,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// SessionStore keeps sessions between turns. Get returns nil, nil when the
// chat has no live session. Sessions idle longer than the store's TTL are
// gone.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, chatID int64) error
}
