package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/SscSPs/ledger_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const budgetColumns = `budget_id, owner_id, category, amount, created_at, last_updated_at`

type PgxBudgetRepository struct {
	BaseRepository
}

func newPgxBudgetRepository(pool *pgxpool.Pool) portsrepo.BudgetRepositoryFacade {
	return &PgxBudgetRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.BudgetRepositoryFacade = (*PgxBudgetRepository)(nil)

func scanBudget(row pgx.Row) (models.Budget, error) {
	var m models.Budget
	err := row.Scan(&m.BudgetID, &m.OwnerID, &m.Category, &m.Amount, &m.CreatedAt, &m.LastUpdatedAt)
	return m, err
}

func (r *PgxBudgetRepository) findOne(ctx context.Context, query, what string, args ...any) (*domain.Budget, error) {
	m, err := scanBudget(r.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("budget %s: %w", what, apperrors.ErrNotFound)
		}
		return nil, mapPgError(err, "failed to find budget "+what)
	}
	budget := mapping.ToDomainBudget(m)
	return &budget, nil
}

func (r *PgxBudgetRepository) FindBudgetByID(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error) {
	return r.findOne(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = $1 AND budget_id = $2;`, budgetID, ownerID, budgetID)
}

func (r *PgxBudgetRepository) FindBudgetByCategory(ctx context.Context, ownerID, category string) (*domain.Budget, error) {
	return r.findOne(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = $1 AND category = $2;`, "for category "+category, ownerID, category)
}

func (r *PgxBudgetRepository) ListBudgets(ctx context.Context, ownerID string) ([]domain.Budget, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = $1 ORDER BY category;`, ownerID)
	if err != nil {
		return nil, mapPgError(err, "failed to list budgets for owner "+ownerID)
	}
	modelBudgets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Budget, error) {
		return scanBudget(row)
	})
	if err != nil {
		return nil, mapPgError(err, "failed to scan budgets")
	}
	budgets := make([]domain.Budget, len(modelBudgets))
	for i, m := range modelBudgets {
		budgets[i] = mapping.ToDomainBudget(m)
	}
	return budgets, nil
}

// SaveBudget relies on UNIQUE (owner_id, category); a violation surfaces as apperrors.ErrDuplicate.
func (r *PgxBudgetRepository) SaveBudget(ctx context.Context, budget domain.Budget) error {
	m := mapping.ToModelBudget(budget)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, m.BudgetID, m.OwnerID, m.Category, m.Amount, m.CreatedAt, m.LastUpdatedAt)
	return mapPgError(err, "failed to save budget for category "+m.Category)
}

func (r *PgxBudgetRepository) UpdateBudget(ctx context.Context, budget domain.Budget) error {
	m := mapping.ToModelBudget(budget)
	tag, err := r.Pool.Exec(ctx, `
		UPDATE budgets SET category = $3, amount = $4, last_updated_at = $5
		WHERE owner_id = $1 AND budget_id = $2;
	`, m.OwnerID, m.BudgetID, m.Category, m.Amount, m.LastUpdatedAt)
	if err != nil {
		return mapPgError(err, "failed to update budget "+m.BudgetID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("budget", m.BudgetID)
	}
	return nil
}

// DeleteBudget removes the budget. The pinned_budget_id foreign key is ON DELETE SET NULL, so the
// owner's pin is cleared by the same statement.
func (r *PgxBudgetRepository) DeleteBudget(ctx context.Context, ownerID, budgetID string) (bool, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM budgets WHERE owner_id = $1 AND budget_id = $2;`, ownerID, budgetID)
	if err != nil {
		return false, mapPgError(err, "failed to delete budget "+budgetID)
	}
	return tag.RowsAffected() > 0, nil
}
