package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/lifecycle"
)

const effectQueueSize = 256

// Broadcaster fans an event out to live observers.
type Broadcaster interface {
	Broadcast(ctx context.Context, event events.Event, targetRole domain.Role) int
}

type effectBatch struct {
	ctx     context.Context
	effects []lifecycle.Effect
}

// EffectRunner performs lifecycle effects after their transaction
// committed. Batches are applied by a single goroutine in submission order
// and never fail the request that produced them.
type EffectRunner struct {
	hub        Broadcaster
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan effectBatch
	pending sync.WaitGroup
	done    chan struct{}
}

// NewEffectRunner builds a runner and starts its worker. Either
// collaborator may be nil.
func NewEffectRunner(hub Broadcaster, dispatcher events.Dispatcher, logger *zap.Logger) *EffectRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &EffectRunner{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger.Named("effects"),
		queue:      make(chan effectBatch, effectQueueSize),
		done:       make(chan struct{}),
	}
	go r.loop()
	return r
}

// Run queues effects on a context detached from the request. It blocks
// only while the queue is full.
func (r *EffectRunner) Run(ctx context.Context, effects []lifecycle.Effect) {
	if len(effects) == 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("effects dropped after shutdown", zap.Int("count", len(effects)))
		return
	}
	r.pending.Add(1)
	r.queue <- effectBatch{ctx: context.WithoutCancel(ctx), effects: effects}
}

// Wait blocks until every queued batch was applied.
func (r *EffectRunner) Wait() {
	r.pending.Wait()
}

// Close stops accepting effects and waits for the queue to drain.
func (r *EffectRunner) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *EffectRunner) loop() {
	defer close(r.done)
	for batch := range r.queue {
		for _, effect := range batch.effects {
			r.apply(batch.ctx, effect)
		}
		r.pending.Done()
	}
}

func (r *EffectRunner) apply(ctx context.Context, effect lifecycle.Effect) {
	switch effect.Kind {
	case lifecycle.EffectBroadcast:
		if r.hub == nil {
			return
		}
		delivered := r.hub.Broadcast(ctx, effect.Event, effect.TargetRole)
		r.logger.Debug("event broadcast",
			zap.String("event_type", string(effect.Event.Type)),
			zap.String("ticket_id", effect.Event.TicketID),
			zap.Int("delivered", delivered))
	case lifecycle.EffectNotify:
		if r.dispatcher == nil {
			return
		}
		if err := r.dispatcher.Publish(ctx, effect.Event); err != nil {
			r.logger.Warn("notify failed",
				zap.String("event_type", string(effect.Event.Type)),
				zap.String("ticket_id", effect.Event.TicketID),
				zap.Error(err))
		}
	default:
		r.logger.Warn("unknown effect kind", zap.String("kind", string(effect.Kind)))
	}
}
