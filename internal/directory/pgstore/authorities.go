package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
	"medicineweb/pkg/platform/sentinel"
)

// AuthorityStore is the authority view over the PostgreSQL store. The
// partial unique index authorities_single_top turns a second top-authority
// insert into a unique violation, which surfaces as sentinel.ErrConflict.
type AuthorityStore struct{ s *Store }

const authorityColumns = `id, account_id, full_name, is_top_authority, is_active,
	department, created_at, updated_at`

func (v *AuthorityStore) Create(ctx context.Context, a *models.Authority) error {
	query := `
		INSERT INTO authorities (` + authorityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := v.s.q(ctx).ExecContext(ctx, query,
		a.ID, a.AccountID, a.FullName, a.IsTopAuthority, a.IsActive,
		a.Department, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create authority: %w", mapPQError(err))
	}
	return nil
}

func (v *AuthorityStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	query := `SELECT ` + authorityColumns + ` FROM authorities WHERE id = $1`
	return v.findOne(ctx, query, id)
}

func (v *AuthorityStore) FindByAccount(ctx context.Context, accountID uuid.UUID) (*models.Authority, error) {
	query := `SELECT ` + authorityColumns + ` FROM authorities WHERE account_id = $1`
	return v.findOne(ctx, query, accountID)
}

func (v *AuthorityStore) findOne(ctx context.Context, query string, arg any) (*models.Authority, error) {
	var a models.Authority
	err := v.s.q(ctx).QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.AccountID, &a.FullName, &a.IsTopAuthority, &a.IsActive,
		&a.Department, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find authority: %w", err)
	}
	return &a, nil
}

func (v *AuthorityStore) List(ctx context.Context) ([]*models.Authority, error) {
	query := `
		SELECT ` + authorityColumns + `
		FROM authorities
		ORDER BY is_top_authority DESC, created_at ASC
	`
	rows, err := v.s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list authorities: %w", err)
	}
	defer rows.Close()

	var out []*models.Authority
	for rows.Next() {
		var a models.Authority
		if err := rows.Scan(
			&a.ID, &a.AccountID, &a.FullName, &a.IsTopAuthority, &a.IsActive,
			&a.Department, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan authority: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (v *AuthorityStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM authorities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count authorities: %w", err)
	}
	return n, nil
}

func (v *AuthorityStore) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := v.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM authorities WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active authorities: %w", err)
	}
	return n, nil
}

// Execute mirrors ProfessionalStore.Execute for authority rows.
func (v *AuthorityStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(a *models.Authority) error,
	mutate func(a *models.Authority)) (*models.Authority, error) {

	var out *models.Authority
	err := v.s.RunInTx(ctx, func(txCtx context.Context) error {
		query := `SELECT ` + authorityColumns + ` FROM authorities WHERE id = $1 FOR UPDATE`
		var a models.Authority
		err := v.s.q(txCtx).QueryRowContext(txCtx, query, id).Scan(
			&a.ID, &a.AccountID, &a.FullName, &a.IsTopAuthority, &a.IsActive,
			&a.Department, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock authority: %w", err)
		}
		if err := validate(&a); err != nil {
			return err
		}
		mutate(&a)

		update := `
			UPDATE authorities SET
				full_name = $2, is_active = $3, department = $4, updated_at = $5
			WHERE id = $1
		`
		if _, err := v.s.q(txCtx).ExecContext(txCtx, update,
			a.ID, a.FullName, a.IsActive, a.Department, a.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update authority: %w", err)
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
