package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/SscSPs/ledger_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAggregateRepository struct {
	BaseRepository
}

func newPgxAggregateRepository(pool *pgxpool.Pool) portsrepo.AggregateRepositoryFacade {
	return &PgxAggregateRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.AggregateRepositoryFacade = (*PgxAggregateRepository)(nil)

// FindAggregate reads the aggregate row and its balances from one snapshot.
func (r *PgxAggregateRepository) FindAggregate(ctx context.Context, ownerID string) (*domain.UserAggregate, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, mapPgError(err, "failed to begin aggregate read")
	}
	defer r.Rollback(ctx, tx)

	var m models.UserAggregate
	err = tx.QueryRow(ctx, `
		SELECT owner_id, default_currency, pinned_budget_id, created_at, last_updated_at
		FROM user_aggregates WHERE owner_id = $1;
	`, ownerID).Scan(&m.OwnerID, &m.DefaultCurrency, &m.PinnedBudgetID, &m.CreatedAt, &m.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("aggregate", ownerID)
		}
		return nil, mapPgError(err, "failed to read aggregate of "+ownerID)
	}

	rows, err := tx.Query(ctx, `
		SELECT owner_id, currency_code, balance FROM user_balances WHERE owner_id = $1 ORDER BY currency_code;
	`, ownerID)
	if err != nil {
		return nil, mapPgError(err, "failed to read balances of "+ownerID)
	}
	balances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UserBalance, error) {
		var b models.UserBalance
		err := row.Scan(&b.OwnerID, &b.Currency, &b.Balance)
		return b, err
	})
	if err != nil {
		return nil, mapPgError(err, "failed to scan balances")
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	agg := mapping.ToDomainUserAggregate(m, balances)
	return &agg, nil
}

func (r *PgxAggregateRepository) SetDefaultCurrency(ctx context.Context, ownerID, currency string) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO user_aggregates (owner_id, default_currency, created_at, last_updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (owner_id)
		DO UPDATE SET default_currency = EXCLUDED.default_currency, last_updated_at = EXCLUDED.last_updated_at;
	`, ownerID, currency, time.Now().UTC())
	return mapPgError(err, "failed to set default currency of "+ownerID)
}

// SetPinnedBudget pins through an INSERT ... SELECT so the budget's ownership is checked by the same statement.
func (r *PgxAggregateRepository) SetPinnedBudget(ctx context.Context, ownerID string, budgetID *string) error {
	now := time.Now().UTC()
	if budgetID == nil {
		_, err := r.Pool.Exec(ctx, `
			UPDATE user_aggregates SET pinned_budget_id = NULL, last_updated_at = $2 WHERE owner_id = $1;
		`, ownerID, now)
		return mapPgError(err, "failed to unpin budget of "+ownerID)
	}

	tag, err := r.Pool.Exec(ctx, `
		INSERT INTO user_aggregates (owner_id, pinned_budget_id, created_at, last_updated_at)
		SELECT b.owner_id, b.budget_id, $3, $3 FROM budgets b WHERE b.owner_id = $1 AND b.budget_id = $2
		ON CONFLICT (owner_id)
		DO UPDATE SET pinned_budget_id = EXCLUDED.pinned_budget_id, last_updated_at = EXCLUDED.last_updated_at;
	`, ownerID, *budgetID, now)
	if err != nil {
		return mapPgError(err, "failed to pin budget "+*budgetID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("budget", *budgetID)
	}
	return nil
}
