package memory

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type aggregateRepository struct {
	store *Store
}

var _ portsrepo.AggregateRepositoryFacade = (*aggregateRepository)(nil)

// FindAggregate returns a copy, so callers never observe later writes.
func (r *aggregateRepository) FindAggregate(ctx context.Context, ownerID string) (*domain.UserAggregate, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	agg, ok := r.store.aggregates[ownerID]
	if !ok {
		return nil, apperrors.NewNotFoundError("aggregate", ownerID)
	}
	out := *agg
	out.Balances = make(map[string]decimal.Decimal, len(agg.Balances))
	for currency, balance := range agg.Balances {
		out.Balances[currency] = balance
	}
	if agg.PinnedBudgetID != nil {
		id := *agg.PinnedBudgetID
		out.PinnedBudgetID = &id
	}
	return &out, nil
}

func (r *aggregateRepository) SetDefaultCurrency(ctx context.Context, ownerID, currency string) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	agg := r.store.aggregateLocked(ownerID)
	agg.DefaultCurrency = currency
	agg.LastUpdatedAt = r.store.now().UTC()
	return nil
}

func (r *aggregateRepository) SetPinnedBudget(ctx context.Context, ownerID string, budgetID *string) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if budgetID != nil {
		if _, ok := r.store.budgets[ownerID][*budgetID]; !ok {
			return apperrors.NewNotFoundError("budget", *budgetID)
		}
		id := *budgetID
		budgetID = &id
	}
	if budgetID == nil {
		if _, ok := r.store.aggregates[ownerID]; !ok {
			return nil
		}
	}
	agg := r.store.aggregateLocked(ownerID)
	agg.PinnedBudgetID = budgetID
	agg.LastUpdatedAt = r.store.now().UTC()
	return nil
}
