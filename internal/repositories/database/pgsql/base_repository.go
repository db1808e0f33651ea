package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes the repositories translate.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err, "failed to begin transaction")
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "failed to commit transaction")
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (r *BaseRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	// Will be ignored if transaction is committed successfully
	defer r.Rollback(ctx, tx)

	if err := fn(tx); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// mapPgError translates driver errors into the apperrors sentinels the services branch on.
func mapPgError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", msg, apperrors.ErrDuplicate)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", msg, apperrors.ErrNotFound)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w", msg, apperrors.ErrConflict)
		}
		return apperrors.NewAppError(500, msg, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", msg, apperrors.ErrStoreUnavailable, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewAppError(500, msg, err)
}

// ensureAggregate creates the owner's aggregate row if it does not exist yet.
// Concurrent first writes for one owner both succeed: the loser's insert is a no-op.
func ensureAggregate(ctx context.Context, tx pgx.Tx, ownerID string, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_aggregates (owner_id, created_at, last_updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (owner_id) DO NOTHING;
	`, ownerID, now)
	if err != nil {
		return mapPgError(err, "failed to create aggregate for owner "+ownerID)
	}
	return nil
}

// applyBalanceChanges increments the owner's per-currency balances, creating missing rows at zero.
// Rows are touched in currency order so two writers never lock them in opposite orders.
func applyBalanceChanges(ctx context.Context, tx pgx.Tx, ownerID string, changes domain.BalanceChanges, now time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	if err := ensureAggregate(ctx, tx, ownerID, now); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO user_balances (owner_id, currency_code, balance, last_updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, currency_code)
		DO UPDATE SET balance = user_balances.balance + EXCLUDED.balance,
		              last_updated_at = EXCLUDED.last_updated_at;
	`
	currencies := changes.Currencies()
	for _, currency := range currencies {
		batch.Queue(query, ownerID, currency, changes[currency], now)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for _, currency := range currencies {
		if _, err := br.Exec(); err != nil {
			return mapPgError(err, "failed to apply balance change for "+currency)
		}
	}
	return nil
}
