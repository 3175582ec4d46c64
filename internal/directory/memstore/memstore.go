// Package memstore is the in-memory directory store. It backs unit tests and
// local development; the transaction boundary is a coarse store lock, which
// gives the same serialization guarantees the PostgreSQL store gets from
// row locks.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
	"medicineweb/pkg/platform/sentinel"
)

type txTokenKey struct{}

// InMemory holds every directory entity behind one mutex so that RunInTx can
// serialize whole governance operations the way a database transaction would.
// Entity stores are exposed as typed views sharing that lock.
type InMemory struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]*models.Professional
	bookings      map[uuid.UUID]*models.Booking
	authorities   map[uuid.UUID]*models.Authority
	accounts      map[uuid.UUID]*models.Account
}

// New creates an empty in-memory directory store.
func New() *InMemory {
	return &InMemory{
		professionals: make(map[uuid.UUID]*models.Professional),
		bookings:      make(map[uuid.UUID]*models.Booking),
		authorities:   make(map[uuid.UUID]*models.Authority),
		accounts:      make(map[uuid.UUID]*models.Account),
	}
}

// Professionals returns the ProfessionalStore view.
func (s *InMemory) Professionals() *ProfessionalStore { return &ProfessionalStore{s: s} }

// Bookings returns the BookingStore view.
func (s *InMemory) Bookings() *BookingStore { return &BookingStore{s: s} }

// Authorities returns the AuthorityStore view.
func (s *InMemory) Authorities() *AuthorityStore { return &AuthorityStore{s: s} }

// Accounts returns the AccountStore view.
func (s *InMemory) Accounts() *AccountStore { return &AccountStore{s: s} }

// RunInTx takes the store lock for the duration of fn. Nested calls reuse the
// surrounding transaction. In-memory mutations are not rolled back on error;
// services order all validation before the first mutation so a failed
// operation leaves no partial state behind.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, txTokenKey{}, true))
}

func inTx(ctx context.Context) bool {
	held, _ := ctx.Value(txTokenKey{}).(bool)
	return held
}

// lock acquires the store mutex unless the context already holds the
// transaction lock. It returns the matching release func.
func (s *InMemory) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// -----------------------------------------------------------------------------
// Professionals
// -----------------------------------------------------------------------------

// ProfessionalStore is the professional view over the shared store.
type ProfessionalStore struct{ s *InMemory }

func (v *ProfessionalStore) Create(ctx context.Context, p *models.Professional) error {
	defer v.s.lock(ctx)()
	if _, ok := v.s.professionals[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	v.s.professionals[p.ID] = &cp
	return nil
}

func (v *ProfessionalStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	defer v.s.lock(ctx)()
	p, ok := v.s.professionals[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (v *ProfessionalStore) ListPending(ctx context.Context) ([]*models.Professional, error) {
	defer v.s.lock(ctx)()
	var out []*models.Professional
	for _, p := range v.s.professionals {
		if p.Status == models.StatusPendingReview && !p.IsRetired() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (v *ProfessionalStore) ListByFilter(ctx context.Context, filter models.StatusFilter) ([]*models.Professional, error) {
	defer v.s.lock(ctx)()
	var out []*models.Professional
	for _, p := range v.s.professionals {
		if matchesFilter(p, filter) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

func matchesFilter(p *models.Professional, filter models.StatusFilter) bool {
	switch filter {
	case models.FilterPending:
		return p.Status == models.StatusPendingReview && !p.IsRetired()
	case models.FilterActive:
		return p.Status == models.StatusActive && !p.IsRetired()
	case models.FilterRejected:
		return p.Status == models.StatusRejected && !p.IsRetired()
	case models.FilterDeleted:
		return p.IsRetired()
	default:
		return !p.IsRetired()
	}
}

func (v *ProfessionalStore) ListPublic(ctx context.Context) ([]*models.Professional, error) {
	defer v.s.lock(ctx)()
	var out []*models.Professional
	for _, p := range v.s.professionals {
		if p.IsPubliclyVisible() {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].FullName) < strings.ToLower(out[j].FullName)
	})
	return out, nil
}

func (v *ProfessionalStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(p *models.Professional) error,
	mutate func(p *models.Professional)) (*models.Professional, error) {

	defer v.s.lock(ctx)()
	p, ok := v.s.professionals[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	cp := *p
	return &cp, nil
}

func (v *ProfessionalStore) CountByStatus(ctx context.Context, status models.ProfessionalStatus) (int, error) {
	defer v.s.lock(ctx)()
	n := 0
	for _, p := range v.s.professionals {
		if p.Status != status {
			continue
		}
		// Retired rows only count under their own status.
		if status != models.StatusDeleted && p.IsRetired() {
			continue
		}
		n++
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Bookings
// -----------------------------------------------------------------------------

// BookingStore is the booking view over the shared store.
type BookingStore struct{ s *InMemory }

func (v *BookingStore) Create(ctx context.Context, b *models.Booking) error {
	defer v.s.lock(ctx)()
	if _, ok := v.s.bookings[b.ID]; ok {
		return sentinel.ErrConflict
	}
	cb := *b
	v.s.bookings[b.ID] = &cb
	return nil
}

func (v *BookingStore) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Booking, error) {
	defer v.s.lock(ctx)()
	var out []*models.Booking
	for _, b := range v.s.bookings {
		if b.ProfessionalID == professionalID {
			cb := *b
			out = append(out, &cb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (v *BookingStore) CancelFutureByProfessional(ctx context.Context, professionalID uuid.UUID, now time.Time, reason string) (int, error) {
	defer v.s.lock(ctx)()
	cancelled := 0
	for _, b := range v.s.bookings {
		if b.ProfessionalID != professionalID {
			continue
		}
		if b.IsCancellableOnRetirement(now) {
			b.ApplyCancellation(reason, models.CancelledBySystem, now)
			cancelled++
		}
	}
	return cancelled, nil
}

func (v *BookingStore) Count(ctx context.Context) (int, error) {
	defer v.s.lock(ctx)()
	return len(v.s.bookings), nil
}

// -----------------------------------------------------------------------------
// Authorities
// -----------------------------------------------------------------------------

// AuthorityStore is the authority view over the shared store.
type AuthorityStore struct{ s *InMemory }

func (v *AuthorityStore) Create(ctx context.Context, a *models.Authority) error {
	defer v.s.lock(ctx)()
	if _, ok := v.s.authorities[a.ID]; ok {
		return sentinel.ErrConflict
	}
	if a.IsTopAuthority {
		// Guarded check-and-insert under the store lock keeps the singleton
		// invariant across concurrent bootstrap attempts.
		for _, existing := range v.s.authorities {
			if existing.IsTopAuthority {
				return sentinel.ErrConflict
			}
		}
	}
	ca := *a
	v.s.authorities[a.ID] = &ca
	return nil
}

func (v *AuthorityStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	defer v.s.lock(ctx)()
	a, ok := v.s.authorities[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ca := *a
	return &ca, nil
}

func (v *AuthorityStore) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Authority, error) {
	defer v.s.lock(ctx)()
	for _, a := range v.s.authorities {
		if a.AccountID == accountID {
			ca := *a
			return &ca, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (v *AuthorityStore) List(ctx context.Context) ([]*models.Authority, error) {
	defer v.s.lock(ctx)()
	var out []*models.Authority
	for _, a := range v.s.authorities {
		ca := *a
		out = append(out, &ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsTopAuthority != out[j].IsTopAuthority {
			return out[i].IsTopAuthority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (v *AuthorityStore) Count(ctx context.Context) (int, error) {
	defer v.s.lock(ctx)()
	return len(v.s.authorities), nil
}

func (v *AuthorityStore) CountActive(ctx context.Context) (int, error) {
	defer v.s.lock(ctx)()
	n := 0
	for _, a := range v.s.authorities {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

func (v *AuthorityStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(a *models.Authority) error,
	mutate func(a *models.Authority)) (*models.Authority, error) {

	defer v.s.lock(ctx)()
	a, ok := v.s.authorities[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	ca := *a
	return &ca, nil
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

// AccountStore is the login-account view over the shared store.
type AccountStore struct{ s *InMemory }

func (v *AccountStore) CreateIfEmailAvailable(ctx context.Context, a *models.Account) error {
	defer v.s.lock(ctx)()
	lowered := strings.ToLower(a.Email)
	for _, existing := range v.s.accounts {
		if strings.ToLower(existing.Email) == lowered {
			return sentinel.ErrConflict
		}
	}
	ca := *a
	v.s.accounts[a.ID] = &ca
	return nil
}

func (v *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	defer v.s.lock(ctx)()
	a, ok := v.s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ca := *a
	return &ca, nil
}

func (v *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	defer v.s.lock(ctx)()
	lowered := strings.ToLower(email)
	for _, a := range v.s.accounts {
		if strings.ToLower(a.Email) == lowered {
			ca := *a
			return &ca, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (v *AccountStore) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	defer v.s.lock(ctx)()
	a, ok := v.s.accounts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = now
	return nil
}
