package lifecycle

import (
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
)

// EffectKind says which channel an effect is routed to.
type EffectKind string

const (
	// EffectBroadcast pushes the event to live observers.
	EffectBroadcast EffectKind = "broadcast"
	// EffectNotify hands the event to external notification channels.
	EffectNotify EffectKind = "notify"
)

// Effect is a side effect the caller performs after commit.
type Effect struct {
	Kind  EffectKind
	Event events.Event
	// TargetRole scopes a broadcast; empty means every observer.
	TargetRole domain.Role
}
