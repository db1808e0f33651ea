// Package memory is an in-process implementation of the repository ports. It backs tests and
// single-instance deployments that do not need durability.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// Store holds every collection behind one lock, so each repository call is one critical section.
type Store struct {
	mu         sync.RWMutex
	records    map[string]map[string]domain.Record
	budgets    map[string]map[string]domain.Budget
	aggregates map[string]*domain.UserAggregate

	offline atomic.Bool
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records:    make(map[string]map[string]domain.Record),
		budgets:    make(map[string]map[string]domain.Budget),
		aggregates: make(map[string]*domain.UserAggregate),
		now:        time.Now,
	}
}

// SetAvailable toggles simulated outages. While unavailable every call fails with apperrors.ErrStoreUnavailable.
func (s *Store) SetAvailable(ok bool) {
	s.offline.Store(!ok)
}

func (s *Store) check() error {
	if s.offline.Load() {
		return fmt.Errorf("memory store offline: %w", apperrors.ErrStoreUnavailable)
	}
	return nil
}

// aggregateLocked returns the owner's aggregate, creating it on first use. Callers hold s.mu.
func (s *Store) aggregateLocked(ownerID string) *domain.UserAggregate {
	agg, ok := s.aggregates[ownerID]
	if !ok {
		now := s.now().UTC()
		agg = &domain.UserAggregate{
			OwnerID:  ownerID,
			Balances: make(map[string]decimal.Decimal),
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				LastUpdatedAt: now,
			},
		}
		s.aggregates[ownerID] = agg
	}
	return agg
}

func (s *Store) applyLocked(ownerID string, changes domain.BalanceChanges) {
	agg := s.aggregateLocked(ownerID)
	for _, currency := range changes.Currencies() {
		agg.Balances[currency] = agg.Balances[currency].Add(changes[currency])
	}
	agg.LastUpdatedAt = s.now().UTC()
}

// NewRepositoryProvider exposes the store through the repository ports.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		RecordRepo:    &recordRepository{store: store},
		BudgetRepo:    &budgetRepository{store: store},
		AggregateRepo: &aggregateRepository{store: store},
		ReportingRepo: &reportingRepository{store: store},
	}
}
