package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
	"medicineweb/pkg/platform/sentinel"
)

// AccountStore is the login-account view over the PostgreSQL store.
type AccountStore struct{ s *Store }

const accountColumns = `id, email, password_hash, role, active, created_at, updated_at`

// CreateIfEmailAvailable relies on the case-insensitive unique index on
// email, so concurrent registrations of the same address collapse to one
// winner.
func (v *AccountStore) CreateIfEmailAvailable(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := v.s.q(ctx).ExecContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.Role, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err)
	}
	return nil
}

func (v *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return v.findOne(ctx, query, id)
}

func (v *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return v.findOne(ctx, query, email)
}

func (v *AccountStore) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var a models.Account
	err := v.s.q(ctx).QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (v *AccountStore) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	res, err := v.s.q(ctx).ExecContext(ctx,
		`UPDATE accounts SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active, now,
	)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
