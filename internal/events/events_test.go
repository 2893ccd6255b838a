package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherContinuesAfterHandlerFailure(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventNewTicket, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventNewTicket, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventStatusUpdate, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventNewTicket}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	reached := false
	d.Subscribe(EventStatusUpdate, func(context.Context, Event) error {
		panic("nil map")
	})
	d.Subscribe(EventStatusUpdate, func(context.Context, Event) error {
		reached = true
		return nil
	})

	assert.NotPanics(t, func() {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventStatusUpdate}))
	})
	assert.True(t, reached)
}

func TestNATSPublisherSubjectsAndPayload(t *testing.T) {
	type published struct {
		subject string
		data    []byte
	}
	var got []published
	p := NewPublisherFunc(func(subject string, data []byte) error {
		got = append(got, published{subject, data})
		return nil
	}, "hostel.events.", nil)

	d := NewInMemoryDispatcher(nil)
	p.Register(d)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	from := "p-1"
	require.NoError(t, d.Publish(context.Background(), AssignmentUpdateEvent("t-9", &from, "p-2", "admin", at)))

	require.Len(t, got, 1)
	assert.Equal(t, "hostel.events.assignment_update", got[0].subject)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got[0].data, &decoded))
	assert.Equal(t, "t-9", decoded["ticket_id"])
	assert.Equal(t, "assignment_update", decoded["event_type"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "p-1", data["previous_porter_id"])
	assert.Equal(t, "p-2", data["assigned_to"])
}

func TestNATSPublisherPropagatesError(t *testing.T) {
	p := NewPublisherFunc(func(string, []byte) error { return errors.New("no responders") }, "", nil)
	err := p.Handle(context.Background(), Event{Type: EventStatusUpdate})
	require.Error(t, err)
	assert.Equal(t, "complaints.events.status_update", p.Subject(EventStatusUpdate))
}
