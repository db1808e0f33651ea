package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// RecordReader defines read operations for financial records.
type RecordReader interface {
	// FindRecordByID returns apperrors.ErrNotFound when the record does not exist for this owner.
	FindRecordByID(ctx context.Context, ownerID, recordID string) (*domain.Record, error)

	// ListRecords returns a page of records in canonical order (occurredOn desc, createdAt desc)
	// and a token for the next page, nil when there is none.
	ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error)
}

// RecordWriter defines write operations for financial records.
// Every call is a single isolated unit: the record write and the balance increments either both happen or neither does.
type RecordWriter interface {
	// SaveRecord inserts a record and applies balanceChanges, creating the owner's aggregate if it is missing.
	SaveRecord(ctx context.Context, record domain.Record, balanceChanges domain.BalanceChanges) error

	// UpdateRecord replaces a record if its stored version still equals expectedVersion.
	// It returns apperrors.ErrConflict on a version mismatch and apperrors.ErrNotFound if the record is gone.
	UpdateRecord(ctx context.Context, record domain.Record, expectedVersion int64, balanceChanges domain.BalanceChanges) error

	// DeleteRecord removes a record if its stored version still equals expectedVersion.
	// Same error contract as UpdateRecord.
	DeleteRecord(ctx context.Context, ownerID, recordID string, expectedVersion int64, balanceChanges domain.BalanceChanges) error
}

// RecordRepositoryFacade combines all record-related repository interfaces.
type RecordRepositoryFacade interface {
	RecordReader
	RecordWriter
}
