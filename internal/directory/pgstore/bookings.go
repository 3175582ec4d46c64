package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medicineweb/internal/directory/models"
)

// BookingStore is the booking view over the PostgreSQL store.
type BookingStore struct{ s *Store }

const bookingColumns = `id, professional_id, client_id, scheduled_at, status,
	cancellation_reason, cancelled_by, created_at, updated_at`

func (v *BookingStore) Create(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := v.s.q(ctx).ExecContext(ctx, query,
		b.ID, b.ProfessionalID, b.ClientID, b.ScheduledAt, b.Status,
		b.CancellationReason, b.CancelledBy, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", mapPQError(err))
	}
	return nil
}

func (v *BookingStore) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE professional_id = $1
		ORDER BY scheduled_at ASC
	`
	rows, err := v.s.q(ctx).QueryContext(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.ProfessionalID, &b.ClientID, &b.ScheduledAt, &b.Status,
			&b.CancellationReason, &b.CancelledBy, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// CancelFutureByProfessional is the retirement cascade: one statement flips
// every future pending/confirmed booking to cancelled so the transition is
// atomic with the professional's own update in the surrounding transaction.
func (v *BookingStore) CancelFutureByProfessional(ctx context.Context, professionalID uuid.UUID, now time.Time, reason string) (int, error) {
	query := `
		UPDATE bookings SET
			status = $1,
			cancellation_reason = $2,
			cancelled_by = $3,
			updated_at = $4
		WHERE professional_id = $5
		  AND scheduled_at > $4
		  AND status IN ($6, $7)
	`
	res, err := v.s.q(ctx).ExecContext(ctx, query,
		models.BookingCancelled, reason, models.CancelledBySystem, now,
		professionalID, models.BookingPending, models.BookingConfirmed,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel future bookings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel future bookings: %w", err)
	}
	return int(n), nil
}

func (v *BookingStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}
