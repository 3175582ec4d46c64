// Package audit captures structured audit events for governance actions.
// Events are append-only; the publisher persists them and optionally fans
// out to Kafka for downstream compliance tooling.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names a governance operation for the audit trail.
type Action string

const (
	ActionProfessionalApproved Action = "professional.approved"
	ActionProfessionalRejected Action = "professional.rejected"
	ActionProfessionalRetired  Action = "professional.retired"
	ActionAuthorityCreated     Action = "authority.created"
	ActionAuthorityDeactivated Action = "authority.deactivated"
	ActionAuthorityReactivated Action = "authority.reactivated"
	ActionBootstrapCompleted   Action = "authority.bootstrap"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   uuid.UUID `json:"actor_id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Action    Action    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Event, error)
}

// Sink receives a copy of every event after persistence. Sink failures are
// the sink's own problem; they never fail the emitting operation.
type Sink interface {
	Send(ctx context.Context, event Event)
}
