// Package pgstore is the PostgreSQL directory store. Transactions are the
// serialization mechanism: mutating governance operations run inside one
// *sql.Tx carried in context, and compare-and-set transitions take row locks
// with SELECT ... FOR UPDATE.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"medicineweb/pkg/platform/sentinel"
	pgtx "medicineweb/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Store wraps the database handle and exposes entity store views.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed directory store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the directory schema. Statements are idempotent so startup
// can run it unconditionally.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply directory schema: %w", err)
	}
	return nil
}

// Professionals returns the ProfessionalStore view.
func (s *Store) Professionals() *ProfessionalStore { return &ProfessionalStore{s: s} }

// Bookings returns the BookingStore view.
func (s *Store) Bookings() *BookingStore { return &BookingStore{s: s} }

// Authorities returns the AuthorityStore view.
func (s *Store) Authorities() *AuthorityStore { return &AuthorityStore{s: s} }

// Accounts returns the AccountStore view.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s: s} }

// RunInTx executes fn inside a single database transaction. A nested call
// joins the surrounding transaction. The transaction either commits fully or
// rolls back fully; fn must not retain the context beyond its scope.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if pgtx.Has(ctx) {
		return fn(ctx)
	}
	dbx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(pgtx.WithTx(ctx, dbx)); err != nil {
		if rbErr := dbx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := dbx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q picks the context transaction when one is active.
func (s *Store) q(ctx context.Context) querier {
	if dbx, ok := pgtx.From(ctx); ok {
		return dbx
	}
	return s.db
}

// mapPQError translates driver-level constraint violations into sentinels.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	return err
}
