package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// BudgetReaderSvc defines read operations for budgets.
type BudgetReaderSvc interface {
	GetBudget(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error)

	// Consumption sums the owner's expenses of category over the half-open interval [start, end).
	// normalizeTo, when set, converts every expense into that currency first.
	Consumption(ctx context.Context, ownerID, category string, start, end domain.Date, normalizeTo string) (*domain.BudgetConsumption, error)

	// ListBudgetConsumption returns every budget of the owner with its consumption over [start, end).
	ListBudgetConsumption(ctx context.Context, ownerID string, start, end domain.Date, normalizeTo string) ([]domain.BudgetConsumption, error)
}

// BudgetWriterSvc defines budget mutations and pinning.
type BudgetWriterSvc interface {
	// CreateBudget fails with apperrors.ErrDuplicateCategory if the owner already has a budget for the category.
	CreateBudget(ctx context.Context, ownerID string, req dto.CreateBudgetRequest) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, ownerID, budgetID string, req dto.UpdateBudgetRequest) (*domain.Budget, error)

	// DeleteBudget is a no-op for a missing budget and clears the pin when it pointed at the budget.
	DeleteBudget(ctx context.Context, ownerID, budgetID string) error

	// PinBudget replaces any existing pin. UnpinBudget clears it. Both are idempotent.
	PinBudget(ctx context.Context, ownerID, budgetID string) error
	UnpinBudget(ctx context.Context, ownerID string) error
}

// BudgetSvcFacade combines all budget-related service interfaces.
type BudgetSvcFacade interface {
	BudgetReaderSvc
	BudgetWriterSvc
}
