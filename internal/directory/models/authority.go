package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "medicineweb/pkg/domain-errors"
)

// Authority is an administrator account record.
//
// Invariants:
//   - Exactly one authority row has IsTopAuthority == true for the lifetime
//     of the system. That row is created once, by the bootstrap path, only
//     when zero authority rows exist. No runtime operation creates,
//     promotes, or demotes a top authority.
//   - The top authority can never be deactivated, by anyone, including
//     itself.
//   - Authority rows are never physically deleted.
type Authority struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	FullName       string    `json:"full_name"`
	IsTopAuthority bool      `json:"is_top_authority"`
	IsActive       bool      `json:"is_active"`
	Department     string    `json:"department,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanDeactivate checks whether the authority may be deactivated. The top
// authority is permanently protected.
func (a *Authority) CanDeactivate() error {
	if a.IsTopAuthority {
		return dErrors.New(dErrors.CodeInvalidState, "the top authority cannot be deactivated")
	}
	return nil
}

// ApplyDeactivation marks the authority inactive. Call CanDeactivate first.
// Deactivating an already-inactive authority is a no-op, not an error.
func (a *Authority) ApplyDeactivation(now time.Time) {
	a.IsActive = false
	a.UpdatedAt = now
}

// CanReactivate mirrors CanDeactivate: the top authority's active flag is
// immutable in both directions.
func (a *Authority) CanReactivate() error {
	if a.IsTopAuthority {
		return dErrors.New(dErrors.CodeInvalidState, "the top authority cannot be modified")
	}
	return nil
}

// ApplyReactivation marks the authority active again.
func (a *Authority) ApplyReactivation(now time.Time) {
	a.IsActive = true
	a.UpdatedAt = now
}

// NewAuthority constructs an ordinary (non-top) authority. The top-authority
// row is only ever built by the bootstrap seeder.
func NewAuthority(id, accountID uuid.UUID, fullName, department string, now time.Time) (*Authority, error) {
	if fullName == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "full_name", "full name is required")
	}
	return &Authority{
		ID:             id,
		AccountID:      accountID,
		FullName:       fullName,
		IsTopAuthority: false,
		IsActive:       true,
		Department:     department,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
