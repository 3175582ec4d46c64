package handler

import (
	"strings"

	dErrors "medicineweb/pkg/domain-errors"
)

const minPasswordLength = 8

// CreateAuthorityRequest is the body for registering a new administrator.
type CreateAuthorityRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
}

func (r *CreateAuthorityRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Department = strings.TrimSpace(r.Department)
}

func (r *CreateAuthorityRequest) Validate() error {
	if r.Email == "" {
		return dErrors.NewField(dErrors.CodeValidation, "email", "email is required")
	}
	at := strings.IndexByte(r.Email, '@')
	if at <= 0 || at == len(r.Email)-1 {
		return dErrors.NewField(dErrors.CodeValidation, "email", "email is not valid")
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.NewField(dErrors.CodeValidation, "password",
			"password must be at least 8 characters")
	}
	if r.FullName == "" {
		return dErrors.NewField(dErrors.CodeValidation, "full_name", "full name is required")
	}
	return nil
}
