// Package sentinel defines sentinel errors for infrastructure facts. Stores
// return these (optionally wrapped) so services can translate them into domain
// errors without depending on driver-specific error types.
package sentinel

import "errors"

// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a uniqueness constraint was violated
//   - ErrInvalidState: entity in the wrong state for the requested mutation
//   - ErrUnavailable: backing resource temporarily unavailable
//
// For input validation use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
