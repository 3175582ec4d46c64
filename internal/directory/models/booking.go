package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of an appointment.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

// CancelledBySystem tags cancellations produced by the retirement cascade
// rather than a person.
const CancelledBySystem = "system"

// Booking is an appointment between a client and a professional.
//
// Invariant enforced by the lifecycle service: once the professional is
// retired, no booking against them may remain Pending or Confirmed with a
// future date. Past and completed bookings are untouched.
type Booking struct {
	ID             uuid.UUID     `json:"id"`
	ProfessionalID uuid.UUID     `json:"professional_id"`
	ClientID       uuid.UUID     `json:"client_id"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Status         BookingStatus `json:"status"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancelledBy        string `json:"cancelled_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCancellableOnRetirement reports whether the retirement cascade must
// cancel this booking: a future appointment still pending or confirmed.
func (b *Booking) IsCancellableOnRetirement(now time.Time) bool {
	if !b.ScheduledAt.After(now) {
		return false
	}
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// ApplyCancellation transitions the booking to Cancelled.
func (b *Booking) ApplyCancellation(reason, by string, now time.Time) {
	b.Status = BookingCancelled
	b.CancellationReason = reason
	b.CancelledBy = by
	b.UpdatedAt = now
}
