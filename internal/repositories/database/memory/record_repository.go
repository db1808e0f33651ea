package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/utils/pagination"
)

type recordRepository struct {
	store *Store
}

var _ portsrepo.RecordRepositoryFacade = (*recordRepository)(nil)

func (r *recordRepository) FindRecordByID(ctx context.Context, ownerID, recordID string) (*domain.Record, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	record, ok := r.store.records[ownerID][recordID]
	if !ok {
		return nil, apperrors.NewNotFoundError("record", recordID)
	}
	return &record, nil
}

func (r *recordRepository) ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error) {
	if err := r.store.check(); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("invalid nextToken")
		}
		cursor = &c
	}

	r.store.mu.RLock()
	matching := make([]domain.Record, 0)
	for _, record := range r.store.records[ownerID] {
		if !filter.Matches(record) {
			continue
		}
		if cursor != nil && !cursor.After(record.OccurredOn.Time, record.CreatedAt, record.ID) {
			continue
		}
		matching = append(matching, record)
	}
	r.store.mu.RUnlock()

	sort.Slice(matching, func(i, j int) bool { return domain.NewerFirst(matching[i], matching[j]) })
	if len(matching) <= limit {
		return matching, nil, nil
	}
	page := matching[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(pagination.Cursor{OccurredOn: last.OccurredOn.Time, CreatedAt: last.CreatedAt, ID: last.ID})
	return page, &token, nil
}

func (r *recordRepository) SaveRecord(ctx context.Context, record domain.Record, balanceChanges domain.BalanceChanges) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	owned := r.store.records[record.OwnerID]
	if owned == nil {
		owned = make(map[string]domain.Record)
		r.store.records[record.OwnerID] = owned
	}
	if _, exists := owned[record.ID]; exists {
		return apperrors.ErrDuplicate
	}
	owned[record.ID] = record
	r.store.applyLocked(record.OwnerID, balanceChanges)
	return nil
}

func (r *recordRepository) UpdateRecord(ctx context.Context, record domain.Record, expectedVersion int64, balanceChanges domain.BalanceChanges) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.records[record.OwnerID][record.ID]
	if !ok {
		return apperrors.NewNotFoundError("record", record.ID)
	}
	if current.Version != expectedVersion {
		return apperrors.ErrConflict
	}
	r.store.records[record.OwnerID][record.ID] = record
	r.store.applyLocked(record.OwnerID, balanceChanges)
	return nil
}

func (r *recordRepository) DeleteRecord(ctx context.Context, ownerID, recordID string, expectedVersion int64, balanceChanges domain.BalanceChanges) error {
	if err := r.store.check(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.records[ownerID][recordID]
	if !ok {
		return apperrors.NewNotFoundError("record", recordID)
	}
	if current.Version != expectedVersion {
		return apperrors.ErrConflict
	}
	delete(r.store.records[ownerID], recordID)
	r.store.applyLocked(ownerID, balanceChanges)
	return nil
}
