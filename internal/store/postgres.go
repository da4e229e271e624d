package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"

	"marketplace-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrUserNotFound         = fmt.Errorf("store: user %w", domain.ErrNotFound)
	ErrUsernameTaken        = errors.New("store: username already taken")
	ErrEmailTaken           = errors.New("store: email already registered")
	ErrCategoryNotFound     = fmt.Errorf("store: category %w", domain.ErrNotFound)
	ErrCategoryNameExists   = errors.New("store: category name already exists")
	ErrProductNotFound      = fmt.Errorf("store: product %w", domain.ErrNotFound)
	ErrProductImageNotFound = fmt.Errorf("store: product image %w", domain.ErrNotFound)
	ErrSellerImageNotFound  = fmt.Errorf("store: seller image %w", domain.ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("store: profile %w", domain.ErrNotFound)
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Repository using PostgreSQL.
type PostgresStore struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// WithTx implements Repository. Calls nested inside fn reuse the outer transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// LockSeller implements Repository with a transaction-scoped advisory lock.
// Outside WithTx the lock is released as soon as the statement finishes.
func (s *PostgresStore) LockSeller(ctx context.Context, sellerID int64) error {
	if _, err := s.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", sellerID); err != nil {
		return fmt.Errorf("store: LockSeller failed for seller %d: %w", sellerID, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Info("Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Error("Failed to close database connection pool", "err", err)
			return err
		}
		log.Info("Database connection pool closed successfully.")
		return nil
	}
	return nil
}

// constraintViolated reports whether err is a unique violation on the named constraint.
func constraintViolated(err error, constraint, column string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return strings.Contains(pqErr.Constraint, constraint) || strings.Contains(pqErr.Detail, "Key ("+column+")")
}

// rowsAffected returns notFound when an exec touched no rows.
func rowsAffected(result sql.Result, op string, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
