package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"catalog-builder-service/internal/metrics"
)

// Predefined errors for store operations
var (
	ErrBusinessNotFound       = errors.New("store: business not found")
	ErrBusinessSlugExists     = errors.New("store: business slug already exists")
	ErrBusinessHasDependents  = errors.New("store: business still has products or catalogs")
	ErrProductNotFound        = errors.New("store: product not found")
	ErrProductSlugExists      = errors.New("store: product slug already exists")
	ErrCatalogNotFound        = errors.New("store: catalog not found")
	ErrCatalogSlugExists      = errors.New("store: catalog slug already exists")
	ErrSupportMessageNotFound = errors.New("store: support message not found")
	ErrProfileNotFound        = errors.New("store: profile not found")
	ErrUpdateFailed           = errors.New("store: update failed, 0 rows affected")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidTextRepr     = "22P02" // e.g. a malformed uuid
)

// PostgresStore implements every Storer interface using PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	metrics *metrics.Metrics
	newID   func() string
}

// NewPostgresStore creates a new PostgresStore instance. m may be nil.
func NewPostgresStore(db *sql.DB, m *metrics.Metrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: m, newID: uuid.NewString}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.S().Warnf("store: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return strings.Contains(pqErr.Constraint, constraint)
}

// notFound maps "no row" and "not a valid id" to the entity's NotFound error.
func notFound(err error, notFoundErr error) bool {
	return errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqInvalidTextRepr || errors.Is(err, notFoundErr)
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	return n, nil
}

// ensureOwned checks that table row id belongs to userID.
func ensureOwned(ctx context.Context, q querier, table, id, userID string, notFoundErr error) error {
	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1 AND user_id = $2", table)
	if err := q.QueryRowContext(ctx, query, id, userID).Scan(&one); err != nil {
		if notFound(err, notFoundErr) {
			return notFoundErr
		}
		return fmt.Errorf("store: ownership check on %s failed: %w", table, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		zap.S().Info("Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			zap.S().Errorf("Failed to close database connection pool: %v", err)
			return err
		}
		zap.S().Info("Database connection pool closed successfully.")
		return nil
	}
	return nil
}
