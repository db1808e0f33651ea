package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// AggregateReader reads the per-user aggregate.
type AggregateReader interface {
	// FindAggregate returns apperrors.ErrNotFound when the user never mutated anything.
	FindAggregate(ctx context.Context, ownerID string) (*domain.UserAggregate, error)
}

// AggregateWriter updates the non-balance fields of the aggregate, creating it when missing.
// Balances are only ever changed through RecordWriter.
type AggregateWriter interface {
	SetDefaultCurrency(ctx context.Context, ownerID, currency string) error

	// SetPinnedBudget points the owner's pin at budgetID, or clears it when budgetID is nil.
	// Pinning a budget that does not belong to the owner fails with apperrors.ErrNotFound.
	SetPinnedBudget(ctx context.Context, ownerID string, budgetID *string) error
}

// AggregateRepositoryFacade combines all aggregate-related repository interfaces.
type AggregateRepositoryFacade interface {
	AggregateReader
	AggregateWriter
}
