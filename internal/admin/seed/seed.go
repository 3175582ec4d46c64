// Package seed creates the singleton top authority on first startup.
package seed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/audit"
	"medicineweb/internal/directory"
	"medicineweb/internal/directory/models"
	"medicineweb/internal/platform/config"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/sentinel"
	"medicineweb/pkg/secrets"
)

// AuditPublisher records governance actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Seeder bootstraps the top authority. It runs exactly once per deployment:
// when the create-on-startup flag is set and zero authority rows exist. Every
// later startup is a silent no-op, so restarts can never mint a second top
// authority — the store's singleton guard backs this up against races.
type Seeder struct {
	authorities directory.AuthorityStore
	accounts    directory.AccountStore
	tx          directory.StoreTx
	logger      *slog.Logger
	auditor     AuditPublisher
}

// New constructs a Seeder. auditor may be nil.
func New(
	authorities directory.AuthorityStore,
	accounts directory.AccountStore,
	tx directory.StoreTx,
	logger *slog.Logger,
	auditor AuditPublisher,
) *Seeder {
	return &Seeder{
		authorities: authorities,
		accounts:    accounts,
		tx:          tx,
		logger:      logger,
		auditor:     auditor,
	}
}

// Run applies the bootstrap settings. It returns the created authority, or
// nil when bootstrapping was skipped.
func (s *Seeder) Run(ctx context.Context, cfg config.BootstrapConfig) (*models.Authority, error) {
	if !cfg.CreateOnStartup {
		return nil, nil
	}
	count, err := s.authorities.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count authorities")
	}
	if count > 0 {
		s.logger.DebugContext(ctx, "bootstrap skipped, authorities already exist", "count", count)
		return nil, nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		return nil, dErrors.New(dErrors.CodeValidation,
			"bootstrap requires an email and password when enabled")
	}
	hash, err := secrets.Hash(cfg.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash bootstrap password")
	}

	now := time.Now()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	authority := &models.Authority{
		ID:             uuid.New(),
		AccountID:      account.ID,
		FullName:       cfg.FullName,
		IsTopAuthority: true,
		IsActive:       true,
		Department:     cfg.Department,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.CreateIfEmailAvailable(ctx, account); err != nil {
			return err
		}
		return s.authorities.Create(ctx, authority)
	})
	if err != nil {
		// A racing replica won the bootstrap; treat it as already seeded.
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.InfoContext(ctx, "bootstrap skipped, top authority already seeded")
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed top authority")
	}

	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			ActorID:   authority.ID,
			SubjectID: authority.ID,
			Action:    audit.ActionBootstrapCompleted,
		})
	}
	s.logger.InfoContext(ctx, "top authority bootstrapped",
		"authority_id", authority.ID, "email", email)
	return authority, nil
}
