package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher appends events to the store and forwards them to the optional
// sink. It is the single entry point services use to record actions.
type Publisher struct {
	store Store
	sink  Sink
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSink attaches a fan-out sink (e.g. Kafka).
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

// NewPublisher constructs a Publisher writing to store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records the event. The store write participates in the caller's
// transaction when the store supports it; the sink fan-out is fire-and-forget.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		p.sink.Send(ctx, event)
	}
	return nil
}

// List returns the audit trail for one subject.
func (p *Publisher) List(ctx context.Context, subjectID uuid.UUID) ([]Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}
