package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// RecordReaderSvc defines read operations for records.
type RecordReaderSvc interface {
	// GetRecord returns apperrors.ErrNotFound when the record does not exist.
	GetRecord(ctx context.Context, ownerID, recordID string) (*domain.Record, error)

	// ListRecords returns a page of records in canonical order and a token for the next page.
	ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error)
}

// RecordWriterSvc defines the record mutations. Each one keeps the owner's balances consistent
// and notifies live subscriptions before returning.
type RecordWriterSvc interface {
	CreateRecord(ctx context.Context, ownerID string, req dto.CreateRecordRequest) (*domain.Record, error)

	// EditRecord fails with apperrors.ErrNotFound if the record no longer exists.
	EditRecord(ctx context.Context, ownerID, recordID string, req dto.UpdateRecordRequest) (*domain.Record, error)

	// DeleteRecord is a no-op for a record that does not exist.
	DeleteRecord(ctx context.Context, ownerID, recordID string) error
}

// RecordSvcFacade combines all record-related service interfaces.
type RecordSvcFacade interface {
	RecordReaderSvc
	RecordWriterSvc
}
