package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what kind of participant a login account belongs to.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleProfessional Role = "professional"
	RoleClient       Role = "client"
)

// Account is a login account. Professionals and authorities each link to one;
// the governance services toggle Active alongside the owning record so a
// rejected or retired professional (or a deactivated authority) loses access
// in the same transaction.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
