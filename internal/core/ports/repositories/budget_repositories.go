package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// BudgetReader defines read operations for budgets.
type BudgetReader interface {
	FindBudgetByID(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error)

	// FindBudgetByCategory returns apperrors.ErrNotFound when the owner has no budget for the category.
	FindBudgetByCategory(ctx context.Context, ownerID, category string) (*domain.Budget, error)

	// ListBudgets returns all budgets of an owner ordered by category.
	ListBudgets(ctx context.Context, ownerID string) ([]domain.Budget, error)
}

// BudgetWriter defines write operations for budgets.
type BudgetWriter interface {
	// SaveBudget inserts a budget. A second budget for the same (owner, category) fails with apperrors.ErrDuplicate.
	SaveBudget(ctx context.Context, budget domain.Budget) error

	UpdateBudget(ctx context.Context, budget domain.Budget) error

	// DeleteBudget removes a budget and clears the owner's pin if it referenced it.
	// It reports whether a budget was removed.
	DeleteBudget(ctx context.Context, ownerID, budgetID string) (bool, error)
}

// BudgetRepositoryFacade combines all budget-related repository interfaces.
type BudgetRepositoryFacade interface {
	BudgetReader
	BudgetWriter
}
