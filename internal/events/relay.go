package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher sends a serialized event to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Relay forwards dispatched events as JSON to an external channel.
type Relay struct {
	publisher Publisher
	channel   string
}

// NewRelay builds a relay for channel.
func NewRelay(publisher Publisher, channel string) *Relay {
	return &Relay{publisher: publisher, channel: channel}
}

// Attach subscribes the relay to every event type.
func (r *Relay) Attach(d Dispatcher) {
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, r.Forward)
	}
}

// Forward publishes a single event.
func (r *Relay) Forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := r.publisher.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("relay event %s: %w", event.ID, err)
	}
	return nil
}
