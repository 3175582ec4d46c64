package handler

import (
	"strings"

	dErrors "medicineweb/pkg/domain-errors"
)

// minReasonLength keeps review and retirement reasons meaningful enough to
// stand in the audit trail.
const minReasonLength = 10

// ReasonRequest is the body of reject and retire calls.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ReasonRequest) Validate() error {
	if len(r.Reason) < minReasonLength {
		return dErrors.NewField(dErrors.CodeValidation, "reason",
			"reason must be at least 10 characters")
	}
	return nil
}
