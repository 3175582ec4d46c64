// Package service implements the authority guard: the two-tier administrator
// model with a singleton top authority, authority lifecycle toggles, and the
// admin dashboard read side.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"medicineweb/internal/admin/metrics"
	"medicineweb/internal/audit"
	"medicineweb/internal/directory"
	"medicineweb/internal/directory/models"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/sentinel"
	"medicineweb/pkg/secrets"
)

// AuditPublisher records governance actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates administrator management. Creating, deactivating and
// reactivating authorities is reserved for the top authority; every other
// operation only requires an active authority record.
type Service struct {
	authorities   directory.AuthorityStore
	accounts      directory.AccountStore
	professionals directory.ProfessionalStore
	bookings      directory.BookingStore
	tx            directory.StoreTx

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
	authorities directory.AuthorityStore,
	accounts directory.AccountStore,
	professionals directory.ProfessionalStore,
	bookings directory.BookingStore,
	tx directory.StoreTx,
	opts ...Option,
) *Service {
	s := &Service{
		authorities:   authorities,
		accounts:      accounts,
		professionals: professionals,
		bookings:      bookings,
		tx:            tx,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsTopAuthority reports whether the account belongs to the active top
// authority. Unknown accounts read as false, not as an error.
func (s *Service) IsTopAuthority(ctx context.Context, accountID uuid.UUID) (bool, error) {
	authority, err := s.authorities.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve authority")
	}
	return authority.IsTopAuthority && authority.IsActive, nil
}

// CreateAuthorityRequest carries the inputs for a new administrator.
type CreateAuthorityRequest struct {
	Email      string
	Password   string
	FullName   string
	Department string
}

// CreateAuthority registers a new ordinary administrator: a login account
// plus an authority row, in one transaction. Only the top authority may call
// it, and the created authority is never a top authority itself.
func (s *Service) CreateAuthority(ctx context.Context, actorAccountID uuid.UUID, req CreateAuthorityRequest) (*models.Authority, error) {
	actor, err := s.requireTopAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "email", "email is required")
	}
	if req.Password == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "password", "password is required")
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := s.now()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	authority, err := models.NewAuthority(uuid.New(), account.ID, strings.TrimSpace(req.FullName), req.Department, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.CreateIfEmailAvailable(ctx, account); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.NewField(dErrors.CodeConflict, "email", "an account with this email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin account")
		}
		if err := s.authorities.Create(ctx, authority); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authority")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AuthorityCreated.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		ActorID:   actor.ID,
		SubjectID: authority.ID,
		Action:    audit.ActionAuthorityCreated,
	})
	s.logger.InfoContext(ctx, "authority created",
		"authority_id", authority.ID, "created_by", actor.ID)
	return authority, nil
}

// DeactivateAuthority suspends an ordinary administrator and their login in
// one transaction. The top authority can never be deactivated.
func (s *Service) DeactivateAuthority(ctx context.Context, actorAccountID, authorityID uuid.UUID) (*models.Authority, error) {
	actor, err := s.requireTopAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}

	var authority *models.Authority
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		authority, err = s.authorities.Execute(ctx, authorityID,
			func(a *models.Authority) error { return a.CanDeactivate() },
			func(a *models.Authority) { a.ApplyDeactivation(now) },
		)
		if err != nil {
			return err
		}
		if err := s.accounts.SetActive(ctx, authority.AccountID, false, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate admin account")
		}
		return nil
	})
	if err != nil {
		return nil, translateAuthorityErr(err)
	}

	if s.metrics != nil {
		s.metrics.AuthorityDeactivated.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		ActorID:   actor.ID,
		SubjectID: authority.ID,
		Action:    audit.ActionAuthorityDeactivated,
	})
	s.logger.InfoContext(ctx, "authority deactivated",
		"authority_id", authority.ID, "deactivated_by", actor.ID)
	return authority, nil
}

// ReactivateAuthority restores a suspended administrator and their login.
func (s *Service) ReactivateAuthority(ctx context.Context, actorAccountID, authorityID uuid.UUID) (*models.Authority, error) {
	actor, err := s.requireTopAuthority(ctx, actorAccountID)
	if err != nil {
		return nil, err
	}

	var authority *models.Authority
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		authority, err = s.authorities.Execute(ctx, authorityID,
			func(a *models.Authority) error { return a.CanReactivate() },
			func(a *models.Authority) { a.ApplyReactivation(now) },
		)
		if err != nil {
			return err
		}
		if err := s.accounts.SetActive(ctx, authority.AccountID, true, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reactivate admin account")
		}
		return nil
	})
	if err != nil {
		return nil, translateAuthorityErr(err)
	}

	if s.metrics != nil {
		s.metrics.AuthorityReactivated.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		ActorID:   actor.ID,
		SubjectID: authority.ID,
		Action:    audit.ActionAuthorityReactivated,
	})
	s.logger.InfoContext(ctx, "authority reactivated",
		"authority_id", authority.ID, "reactivated_by", actor.ID)
	return authority, nil
}

// ListAuthorities returns every administrator, the top authority first, then
// by creation time. Administrator management is the top authority's
// territory, reads included.
func (s *Service) ListAuthorities(ctx context.Context, actorAccountID uuid.UUID) ([]*models.Authority, error) {
	if _, err := s.requireTopAuthority(ctx, actorAccountID); err != nil {
		return nil, err
	}
	list, err := s.authorities.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorities")
	}
	return list, nil
}

// Me is the requesting administrator's own view.
type Me struct {
	Authority *models.Authority `json:"authority"`
	Email     string            `json:"email"`
}

// GetMe returns the authority record and email behind the account.
func (s *Service) GetMe(ctx context.Context, accountID uuid.UUID) (*Me, error) {
	authority, err := s.authorities.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "administrator not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load administrator")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin account")
	}
	return &Me{Authority: authority, Email: account.Email}, nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	PendingProfessionals  int `json:"pending_professionals"`
	ActiveProfessionals   int `json:"active_professionals"`
	RejectedProfessionals int `json:"rejected_professionals"`
	TotalBookings         int `json:"total_bookings"`
	ActiveAuthorities     int `json:"active_authorities"`
}

// GetStats fans the dashboard counts out concurrently.
func (s *Service) GetStats(ctx context.Context, actorAccountID uuid.UUID) (*Stats, error) {
	if _, err := s.requireActiveAuthority(ctx, actorAccountID); err != nil {
		return nil, err
	}
	start := time.Now()

	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.professionals.CountByStatus(ctx, models.StatusPendingReview)
		stats.PendingProfessionals = n
		return err
	})
	g.Go(func() error {
		n, err := s.professionals.CountByStatus(ctx, models.StatusActive)
		stats.ActiveProfessionals = n
		return err
	})
	g.Go(func() error {
		n, err := s.professionals.CountByStatus(ctx, models.StatusRejected)
		stats.RejectedProfessionals = n
		return err
	})
	g.Go(func() error {
		n, err := s.bookings.Count(ctx)
		stats.TotalBookings = n
		return err
	})
	g.Go(func() error {
		n, err := s.authorities.CountActive(ctx)
		stats.ActiveAuthorities = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather dashboard stats")
	}

	if s.metrics != nil {
		s.metrics.ObserveStats(start)
	}
	return &stats, nil
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

func (s *Service) requireTopAuthority(ctx context.Context, accountID uuid.UUID) (*models.Authority, error) {
	authority, err := s.requireActiveAuthority(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !authority.IsTopAuthority {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top authority may manage administrators")
	}
	return authority, nil
}

func translateAuthorityErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "authority not found")
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "authority transition failed")
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
