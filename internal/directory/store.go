// Package directory declares the persistent store contracts for the
// professional-account governance core. Stores are interface-driven so the
// services stay testable against the in-memory implementation while
// production runs on PostgreSQL.
package directory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
)

// StoreTx runs fn inside one atomic transaction boundary. Every mutating
// governance operation goes through it so partial cascades are never visible
// to other readers. The PostgreSQL implementation opens a *sql.Tx and places
// it in ctx; the in-memory implementation takes a coarse store lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfessionalStore persists professional records.
//
// Execute is the compare-and-set primitive: it loads the row under a lock
// (mutex or SELECT ... FOR UPDATE), runs validate against the now-current
// state, applies mutate, and persists — so a racing second transition
// observes the committed status and fails instead of double-applying.
type ProfessionalStore interface {
	Create(ctx context.Context, p *models.Professional) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Professional, error)
	// ListPending returns PendingReview professionals with no retirement
	// marker, ordered by registration time ascending.
	ListPending(ctx context.Context) ([]*models.Professional, error)
	// ListByFilter applies the admin status filter, ordered by registration
	// time descending. The empty filter excludes retired records.
	ListByFilter(ctx context.Context, filter models.StatusFilter) ([]*models.Professional, error)
	// ListPublic returns publicly visible professionals (active, accepting,
	// not retired).
	ListPublic(ctx context.Context) ([]*models.Professional, error)
	Execute(ctx context.Context, id uuid.UUID,
		validate func(p *models.Professional) error,
		mutate func(p *models.Professional)) (*models.Professional, error)
	CountByStatus(ctx context.Context, status models.ProfessionalStatus) (int, error)
}

// BookingStore persists appointments.
type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Booking, error)
	// CancelFutureByProfessional transitions every future Pending/Confirmed
	// booking of the professional to Cancelled with the given reason, tagged
	// as a system cancellation, and reports how many were cancelled. Runs in
	// the caller's transaction.
	CancelFutureByProfessional(ctx context.Context, professionalID uuid.UUID, now time.Time, reason string) (int, error)
	Count(ctx context.Context) (int, error)
}

// AuthorityStore persists administrator records. Create must refuse a second
// top-authority row (guarded insert in memory, unique partial index in
// PostgreSQL) so the singleton invariant survives restarts and races.
type AuthorityStore interface {
	Create(ctx context.Context, a *models.Authority) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Authority, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Authority, error)
	// List returns all authorities, the top authority first, then by
	// creation time ascending.
	List(ctx context.Context) ([]*models.Authority, error)
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	Execute(ctx context.Context, id uuid.UUID,
		validate func(a *models.Authority) error,
		mutate func(a *models.Authority)) (*models.Authority, error)
}

// AccountStore persists login accounts.
type AccountStore interface {
	// CreateIfEmailAvailable enforces email uniqueness atomically, returning
	// sentinel.ErrConflict when the address is taken.
	CreateIfEmailAvailable(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error
}
