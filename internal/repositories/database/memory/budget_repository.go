package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
)

type budgetRepository struct {
	store *Store
}

var _ portsrepo.BudgetRepositoryFacade = (*budgetRepository)(nil)

func (r *budgetRepository) FindBudgetByID(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	budget, ok := r.store.budgets[ownerID][budgetID]
	if !ok {
		return nil, apperrors.NewNotFoundError("budget", budgetID)
	}
	return &budget, nil
}

func (r *budgetRepository) FindBudgetByCategory(ctx context.Context, ownerID, category string) (*domain.Budget, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, budget := range r.store.budgets[ownerID] {
		if budget.Category == category {
			return &budget, nil
		}
	}
	return nil, apperrors.NewNotFoundError("budget for category", category)
}

func (r *budgetRepository) ListBudgets(ctx context.Context, ownerID string) ([]domain.Budget, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	budgets := make([]domain.Budget, 0, len(r.store.budgets[ownerID]))
	for _, budget := range r.store.budgets[ownerID] {
		budgets = append(budgets, budget)
	}
	r.store.mu.RUnlock()
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Category < budgets[j].Category })
	return budgets, nil
}

// categoryTakenLocked mirrors the UNIQUE(owner_id, category) constraint of the SQL schema.
func (r *budgetRepository) categoryTakenLocked(ownerID, category, exceptID string) bool {
	for id, budget := range r.store.budgets[ownerID] {
		if id != exceptID && budget.Category == category {
			return true
		}
	}
	return false
}

func (r *budgetRepository) SaveBudget(ctx context.Context, budget domain.Budget) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.categoryTakenLocked(budget.OwnerID, budget.Category, "") {
		return apperrors.ErrDuplicate
	}
	owned := r.store.budgets[budget.OwnerID]
	if owned == nil {
		owned = make(map[string]domain.Budget)
		r.store.budgets[budget.OwnerID] = owned
	}
	if _, exists := owned[budget.ID]; exists {
		return apperrors.ErrDuplicate
	}
	owned[budget.ID] = budget
	return nil
}

func (r *budgetRepository) UpdateBudget(ctx context.Context, budget domain.Budget) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.budgets[budget.OwnerID][budget.ID]; !ok {
		return apperrors.NewNotFoundError("budget", budget.ID)
	}
	if r.categoryTakenLocked(budget.OwnerID, budget.Category, budget.ID) {
		return apperrors.ErrDuplicate
	}
	r.store.budgets[budget.OwnerID][budget.ID] = budget
	return nil
}

func (r *budgetRepository) DeleteBudget(ctx context.Context, ownerID, budgetID string) (bool, error) {
	if err := r.store.check(); err != nil {
		return false, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.budgets[ownerID][budgetID]; !ok {
		return false, nil
	}
	delete(r.store.budgets[ownerID], budgetID)
	if agg, ok := r.store.aggregates[ownerID]; ok && agg.PinnedBudgetID != nil && *agg.PinnedBudgetID == budgetID {
		agg.PinnedBudgetID = nil
		agg.LastUpdatedAt = r.store.now().UTC()
	}
	return true, nil
}
