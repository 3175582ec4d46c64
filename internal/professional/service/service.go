// Package service implements the professional lifecycle engine: admin
// listings, the approve/reject/retire state machine, and the cached public
// directory read side.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/audit"
	"medicineweb/internal/directory"
	"medicineweb/internal/directory/models"
	"medicineweb/internal/professional/cache"
	"medicineweb/internal/professional/metrics"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/sentinel"
)

// AuditPublisher records governance actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates professional lifecycle transitions. Every mutating
// operation resolves the acting administrator first, then runs the
// transition through the store's compare-and-set primitive so racing
// administrators cannot double-apply a transition.
type Service struct {
	professionals directory.ProfessionalStore
	bookings      directory.BookingStore
	authorities   directory.AuthorityStore
	accounts      directory.AccountStore
	tx            directory.StoreTx

	cache       cache.Cache
	invalidator *cache.Invalidator
	cacheTTL    time.Duration

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCache enables the read-through listing cache and its invalidation.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(
	professionals directory.ProfessionalStore,
	bookings directory.BookingStore,
	authorities directory.AuthorityStore,
	accounts directory.AccountStore,
	tx directory.StoreTx,
	opts ...Option,
) *Service {
	s := &Service{
		professionals: professionals,
		bookings:      bookings,
		authorities:   authorities,
		accounts:      accounts,
		tx:            tx,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.invalidator = cache.NewInvalidator(s.cache, s.logger)
	return s
}

// ListPending returns professionals awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.Professional, error) {
	list, err := s.professionals.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending professionals")
	}
	return list, nil
}

// ListAll returns the admin view of professionals for the given filter.
// The empty filter excludes retired records; the "deleted" filter returns
// only them.
func (s *Service) ListAll(ctx context.Context, filter models.StatusFilter) ([]*models.Professional, error) {
	list, err := s.professionals.ListByFilter(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list professionals")
	}
	return list, nil
}

// Get returns one professional record for the admin view, retired or not.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	p, err := s.professionals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "professional not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional")
	}
	return p, nil
}

// ListPublic returns the public directory listing, optionally filtered to a
// specialty, served read-through from the cache. Cache failures are absorbed:
// the store answer is authoritative and a stale entry just expires.
func (s *Service) ListPublic(ctx context.Context, specialty string) ([]*models.Professional, error) {
	key := cache.KeyActiveListing
	if specialty != "" {
		key = cache.KeySpecialtyListing(specialty)
	}

	if cached, ok := s.cacheGet(ctx, key); ok {
		var list []*models.Professional
		if err := json.Unmarshal(cached, &list); err == nil {
			s.recordCacheHit()
			return list, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	}
	s.recordCacheMiss()

	all, err := s.professionals.ListPublic(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list public professionals")
	}
	list := all
	if specialty != "" {
		list = list[:0:0]
		for _, p := range all {
			if p.Specialty == specialty {
				list = append(list, p)
			}
		}
	}

	s.cacheSet(ctx, key, list)
	return list, nil
}

// GetPublicProfile returns one publicly visible professional through the
// per-profile cache. Hidden and retired professionals read as not found.
func (s *Service) GetPublicProfile(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	key := cache.KeyProfessional(id)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var p models.Professional
		if err := json.Unmarshal(cached, &p); err == nil {
			s.recordCacheHit()
			return &p, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	}
	s.recordCacheMiss()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPubliclyVisible() {
		return nil, dErrors.New(dErrors.CodeNotFound, "professional not found")
	}
	s.cacheSet(ctx, key, p)
	return p, nil
}

// Approve transitions a pending or rejected professional to Active. The
// validation runs inside the store's compare-and-set, so of two racing
// approvals exactly one succeeds and the other observes InvalidState.
func (s *Service) Approve(ctx context.Context, actorAccountID, professionalID uuid.UUID) (*models.Professional, error) {
	authority, err := s.requireActiveAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}

	var p *models.Professional
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err = s.professionals.Execute(ctx, professionalID,
			func(p *models.Professional) error { return p.CanApprove() },
			func(p *models.Professional) { p.ApplyApproval(authority.ID, now) },
		)
		if err != nil {
			return err
		}
		// An approved professional can log in again after a rejection.
		if err := s.accounts.SetActive(ctx, p.AccountID, true, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate professional account")
		}
		return nil
	})
	if err != nil {
		s.recordTransition("approve", err)
		return nil, translateTransitionErr(err)
	}
	s.recordTransition("approve", nil)

	s.invalidator.OnProfileChanged(ctx, p.ID, p.Specialty)
	s.emitAudit(ctx, audit.Event{
		ActorID:   authority.ID,
		SubjectID: p.ID,
		Action:    audit.ActionProfessionalApproved,
	})
	s.logger.InfoContext(ctx, "professional approved",
		"professional_id", p.ID, "authority_id", authority.ID)
	return p, nil
}

// Reject marks a professional as Rejected with the reviewer's reason.
// Re-rejecting an already-rejected professional succeeds and updates the
// reason; only retirement blocks the transition.
func (s *Service) Reject(ctx context.Context, actorAccountID, professionalID uuid.UUID, reason string) (*models.Professional, error) {
	authority, err := s.requireActiveAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "reason", "a rejection reason is required")
	}

	var p *models.Professional
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err = s.professionals.Execute(ctx, professionalID,
			func(p *models.Professional) error { return p.CanReject() },
			func(p *models.Professional) { p.ApplyRejection(authority.ID, reason, now) },
		)
		if err != nil {
			return err
		}
		if err := s.accounts.SetActive(ctx, p.AccountID, false, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate professional account")
		}
		return nil
	})
	if err != nil {
		s.recordTransition("reject", err)
		return nil, translateTransitionErr(err)
	}
	s.recordTransition("reject", nil)

	s.invalidator.OnProfileChanged(ctx, p.ID, p.Specialty)
	s.emitAudit(ctx, audit.Event{
		ActorID:   authority.ID,
		SubjectID: p.ID,
		Action:    audit.ActionProfessionalRejected,
		Reason:    reason,
	})
	s.logger.InfoContext(ctx, "professional rejected",
		"professional_id", p.ID, "authority_id", authority.ID)
	return p, nil
}

// RetireResult reports the outcome of a retirement, including the cascade.
type RetireResult struct {
	Professional      *models.Professional
	BookingsCancelled int
}

// Retire permanently retires a professional: the status moves to Deleted,
// the retirement marker is stamped, the login account is deactivated, and
// every future pending or confirmed booking is cancelled. All of it commits
// in one transaction or none of it does.
func (s *Service) Retire(ctx context.Context, actorAccountID, professionalID uuid.UUID, reason string) (*RetireResult, error) {
	start := time.Now()
	authority, err := s.requireActiveAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "reason", "a retirement reason is required")
	}

	var (
		p         *models.Professional
		cancelled int
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err = s.professionals.Execute(ctx, professionalID,
			func(p *models.Professional) error { return p.CanRetire() },
			func(p *models.Professional) { p.ApplyRetirement(authority.ID, reason, now) },
		)
		if err != nil {
			return err
		}
		if err := s.accounts.SetActive(ctx, p.AccountID, false, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate professional account")
		}
		cancelled, err = s.bookings.CancelFutureByProfessional(ctx, p.ID, now,
			"professional retired from practice: "+reason)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel future bookings")
		}
		return nil
	})
	if err != nil {
		s.recordTransition("retire", err)
		return nil, translateTransitionErr(err)
	}
	s.recordTransition("retire", nil)
	if s.metrics != nil {
		s.metrics.AddBookingsCancelled(cancelled)
		s.metrics.ObserveRetire(start)
	}

	s.invalidator.OnProfileChanged(ctx, p.ID, p.Specialty)
	s.emitAudit(ctx, audit.Event{
		ActorID:   authority.ID,
		SubjectID: p.ID,
		Action:    audit.ActionProfessionalRetired,
		Reason:    reason,
	})
	s.logger.InfoContext(ctx, "professional retired",
		"professional_id", p.ID,
		"authority_id", authority.ID,
		"bookings_cancelled", cancelled)
	return &RetireResult{Professional: p, BookingsCancelled: cancelled}, nil
}

func (s *Service) requireActiveAuthority(ctx context.Context, accountID uuid.UUID) (*models.Authority, error) {
	authority, err := s.authorities.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "administrator privileges required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve administrator")
	}
	if !authority.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "administrator account is deactivated")
	}
	return authority, nil
}

// translateTransitionErr maps store sentinels to domain errors; coded errors
// from Can* validators pass through untouched.
func translateTransitionErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "professional not found")
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "professional transition failed")
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return nil, false
	}
	return payload, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (s *Service) recordTransition(action string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		if errors.Is(err, sentinel.ErrNotFound) {
			outcome = string(dErrors.CodeNotFound)
		}
	}
	s.metrics.RecordTransition(action, outcome)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (s *Service) recordCacheHit() {
	if s.metrics != nil {
		s.metrics.ListingCacheHits.Inc()
	}
}

func (s *Service) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.ListingCacheMiss.Inc()
	}
}
