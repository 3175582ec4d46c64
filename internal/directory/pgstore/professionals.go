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

// ProfessionalStore is the professional view over the PostgreSQL store.
type ProfessionalStore struct{ s *Store }

const professionalColumns = `id, account_id, full_name, license, specialty, status, status_reason,
	reviewed_by, reviewed_at, retired_at, retired_reason, retired_by,
	accepting_clients, registered_at, updated_at`

func (v *ProfessionalStore) Create(ctx context.Context, p *models.Professional) error {
	query := `
		INSERT INTO professionals (` + professionalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := v.s.q(ctx).ExecContext(ctx, query,
		p.ID, p.AccountID, p.FullName, p.License, p.Specialty, p.Status, p.StatusReason,
		nullUUID(p.ReviewedBy), nullTime(p.ReviewedAt),
		nullTime(p.RetiredAt), p.RetiredReason, nullUUID(p.RetiredBy),
		p.AcceptingClients, p.RegisteredAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create professional: %w", mapPQError(err))
	}
	return nil
}

func (v *ProfessionalStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	query := `SELECT ` + professionalColumns + ` FROM professionals WHERE id = $1`
	p, err := scanProfessional(v.s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find professional: %w", err)
	}
	return p, nil
}

func (v *ProfessionalStore) ListPending(ctx context.Context) ([]*models.Professional, error) {
	query := `
		SELECT ` + professionalColumns + `
		FROM professionals
		WHERE status = $1 AND retired_at IS NULL
		ORDER BY registered_at ASC
	`
	return v.list(ctx, query, models.StatusPendingReview)
}

func (v *ProfessionalStore) ListByFilter(ctx context.Context, filter models.StatusFilter) ([]*models.Professional, error) {
	base := `SELECT ` + professionalColumns + ` FROM professionals `
	order := ` ORDER BY registered_at DESC`
	switch filter {
	case models.FilterPending:
		return v.list(ctx, base+`WHERE status = $1 AND retired_at IS NULL`+order, models.StatusPendingReview)
	case models.FilterActive:
		return v.list(ctx, base+`WHERE status = $1 AND retired_at IS NULL`+order, models.StatusActive)
	case models.FilterRejected:
		return v.list(ctx, base+`WHERE status = $1 AND retired_at IS NULL`+order, models.StatusRejected)
	case models.FilterDeleted:
		return v.list(ctx, base+`WHERE retired_at IS NOT NULL`+order)
	default:
		return v.list(ctx, base+`WHERE retired_at IS NULL`+order)
	}
}

func (v *ProfessionalStore) ListPublic(ctx context.Context) ([]*models.Professional, error) {
	query := `
		SELECT ` + professionalColumns + `
		FROM professionals
		WHERE status = $1 AND retired_at IS NULL AND accepting_clients
		ORDER BY LOWER(full_name) ASC
	`
	return v.list(ctx, query, models.StatusActive)
}

func (v *ProfessionalStore) list(ctx context.Context, query string, args ...any) ([]*models.Professional, error) {
	rows, err := v.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	defer rows.Close()

	var out []*models.Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professional: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Execute loads the row FOR UPDATE, validates against the now-current state,
// applies the mutation, and writes it back. Outside a surrounding RunInTx it
// opens its own transaction so the lock still covers validate and mutate.
func (v *ProfessionalStore) Execute(ctx context.Context, id uuid.UUID,
	validate func(p *models.Professional) error,
	mutate func(p *models.Professional)) (*models.Professional, error) {

	var out *models.Professional
	err := v.s.RunInTx(ctx, func(txCtx context.Context) error {
		query := `SELECT ` + professionalColumns + ` FROM professionals WHERE id = $1 FOR UPDATE`
		p, err := scanProfessional(v.s.q(txCtx).QueryRowContext(txCtx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock professional: %w", err)
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		update := `
			UPDATE professionals SET
				full_name = $2, specialty = $3, status = $4, status_reason = $5,
				reviewed_by = $6, reviewed_at = $7,
				retired_at = $8, retired_reason = $9, retired_by = $10,
				accepting_clients = $11, updated_at = $12
			WHERE id = $1
		`
		if _, err := v.s.q(txCtx).ExecContext(txCtx, update,
			p.ID, p.FullName, p.Specialty, p.Status, p.StatusReason,
			nullUUID(p.ReviewedBy), nullTime(p.ReviewedAt),
			nullTime(p.RetiredAt), p.RetiredReason, nullUUID(p.RetiredBy),
			p.AcceptingClients, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update professional: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *ProfessionalStore) CountByStatus(ctx context.Context, status models.ProfessionalStatus) (int, error) {
	query := `SELECT COUNT(*) FROM professionals WHERE status = $1`
	if status != models.StatusDeleted {
		query += ` AND retired_at IS NULL`
	}
	var n int
	if err := v.s.q(ctx).QueryRowContext(ctx, query, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count professionals: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfessional(row rowScanner) (*models.Professional, error) {
	var (
		p          models.Professional
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
		retiredAt  sql.NullTime
		retiredBy  uuid.NullUUID
	)
	err := row.Scan(
		&p.ID, &p.AccountID, &p.FullName, &p.License, &p.Specialty, &p.Status, &p.StatusReason,
		&reviewedBy, &reviewedAt, &retiredAt, &p.RetiredReason, &retiredBy,
		&p.AcceptingClients, &p.RegisteredAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy.Valid {
		p.ReviewedBy = &reviewedBy.UUID
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		p.ReviewedAt = &t
	}
	if retiredAt.Valid {
		t := retiredAt.Time
		p.RetiredAt = &t
	}
	if retiredBy.Valid {
		p.RetiredBy = &retiredBy.UUID
	}
	return &p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
