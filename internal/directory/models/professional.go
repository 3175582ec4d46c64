package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "medicineweb/pkg/domain-errors"
)

// ProfessionalStatus is the review state of a professional, managed
// exclusively by administrators.
type ProfessionalStatus string

const (
	StatusPendingReview ProfessionalStatus = "pending_review"
	StatusActive        ProfessionalStatus = "active"
	StatusRejected      ProfessionalStatus = "rejected"
	StatusSuspended     ProfessionalStatus = "suspended"
	StatusDeleted       ProfessionalStatus = "deleted"
)

// StatusFilter selects which professionals an admin listing returns.
type StatusFilter string

const (
	FilterPending  StatusFilter = "pending"
	FilterActive   StatusFilter = "active"
	FilterRejected StatusFilter = "rejected"
	FilterDeleted  StatusFilter = "deleted"
	// FilterNone is the default view: everything except retired records.
	FilterNone StatusFilter = ""
)

// ParseStatusFilter validates a raw filter string from the transport layer.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	switch StatusFilter(raw) {
	case FilterPending, FilterActive, FilterRejected, FilterDeleted, FilterNone:
		return StatusFilter(raw), nil
	default:
		return FilterNone, dErrors.NewField(dErrors.CodeValidation, "status",
			fmt.Sprintf("unknown status filter %q", raw))
	}
}

// Professional is the reviewed marketplace participant.
//
// Invariants:
//   - Status transitions exposed by this core: PendingReview → Active
//     (approve), PendingReview → Rejected (reject), any non-retired state →
//     Deleted (retire). Suspended is reserved and has no exposed transition.
//   - RetiredAt != nil ⇔ Status == Deleted. Once set the marker is never
//     cleared and the status never leaves Deleted. Historical financial and
//     care records must survive; rows are never physically deleted.
//   - Retired professionals are excluded from every default listing and only
//     appear under the explicit "deleted" filter.
type Professional struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	FullName  string    `json:"full_name"`
	License   string    `json:"license"`
	Specialty string    `json:"specialty"`

	Status       ProfessionalStatus `json:"status"`
	StatusReason string             `json:"status_reason,omitempty"`
	ReviewedBy   *uuid.UUID         `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time         `json:"reviewed_at,omitempty"`

	// Legal-retention marker, orthogonal to Status and monotonic: set once
	// by retirement, never cleared by any operation.
	RetiredAt     *time.Time `json:"retired_at,omitempty"`
	RetiredReason string     `json:"retired_reason,omitempty"`
	RetiredBy     *uuid.UUID `json:"retired_by,omitempty"`

	AcceptingClients bool      `json:"accepting_clients"`
	RegisteredAt     time.Time `json:"registered_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsRetired reports whether the permanent retirement marker is set.
func (p *Professional) IsRetired() bool {
	return p.RetiredAt != nil
}

// IsPubliclyVisible reports whether the professional may appear in public
// directory listings.
func (p *Professional) IsPubliclyVisible() bool {
	return p.Status == StatusActive && !p.IsRetired() && p.AcceptingClients
}

// CanApprove checks whether the professional may transition to Active.
// Use with ApplyApproval inside a store Execute callback so validation and
// mutation happen under the same lock.
func (p *Professional) CanApprove() error {
	if p.IsRetired() {
		return dErrors.New(dErrors.CodeInvalidState, "professional is retired")
	}
	if p.Status == StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, "professional is already active")
	}
	return nil
}

// ApplyApproval transitions the professional to Active and stamps the
// reviewing authority. Call CanApprove first.
func (p *Professional) ApplyApproval(reviewer uuid.UUID, now time.Time) {
	p.Status = StatusActive
	p.StatusReason = ""
	p.ReviewedBy = &reviewer
	reviewedAt := now
	p.ReviewedAt = &reviewedAt
	p.UpdatedAt = now
}

// CanReject checks whether the professional may be rejected. Re-rejecting an
// already-Rejected professional is deliberately permitted: rejection is
// idempotent, unlike approve and retire which guard their terminal states.
func (p *Professional) CanReject() error {
	if p.IsRetired() {
		return dErrors.New(dErrors.CodeInvalidState, "professional is retired")
	}
	return nil
}

// ApplyRejection records the rejection and its reason. Call CanReject first.
func (p *Professional) ApplyRejection(reviewer uuid.UUID, reason string, now time.Time) {
	p.Status = StatusRejected
	p.StatusReason = reason
	p.ReviewedBy = &reviewer
	reviewedAt := now
	p.ReviewedAt = &reviewedAt
	p.UpdatedAt = now
}

// CanRetire checks whether the professional may be retired.
func (p *Professional) CanRetire() error {
	if p.IsRetired() {
		return dErrors.New(dErrors.CodeInvalidState, "professional is already retired")
	}
	return nil
}

// ApplyRetirement sets the one-way retirement marker. The status becomes
// Deleted and no later operation may move it back. Call CanRetire first.
func (p *Professional) ApplyRetirement(actor uuid.UUID, reason string, now time.Time) {
	p.Status = StatusDeleted
	retiredAt := now
	p.RetiredAt = &retiredAt
	p.RetiredReason = reason
	p.RetiredBy = &actor
	p.AcceptingClients = false
	p.UpdatedAt = now
}

// NewProfessional constructs a professional in the initial PendingReview
// state, as the registration flow does.
func NewProfessional(id, accountID uuid.UUID, fullName, license, specialty string, now time.Time) (*Professional, error) {
	if fullName == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "full_name", "full name is required")
	}
	if license == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "license", "professional license is required")
	}
	return &Professional{
		ID:               id,
		AccountID:        accountID,
		FullName:         fullName,
		License:          license,
		Specialty:        specialty,
		Status:           StatusPendingReview,
		AcceptingClients: true,
		RegisteredAt:     now,
		UpdatedAt:        now,
	}, nil
}
