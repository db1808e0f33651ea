package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/utils/accounting"
	"github.com/google/uuid"
)

const defaultMutationAttempts = 5

// recordService is the record store together with the balance maintainer: every mutation
// writes the record and the matching balance delta as one unit.
type recordService struct {
	BaseService
	recordRepo      portsrepo.RecordRepositoryFacade
	aggregateRepo   portsrepo.AggregateReader
	notifier        portssvc.ChangeNotifier
	maxAttempts     int
	defaultCurrency string
	now             func() time.Time
}

// RecordServiceOption is a functional option for configuring the record service
type RecordServiceOption func(*recordService)

// WithRecordNotifier sets where change events are published after a mutation.
func WithRecordNotifier(n portssvc.ChangeNotifier) RecordServiceOption {
	return func(s *recordService) {
		s.notifier = n
	}
}

// WithMutationAttempts bounds the optimistic retries of edit and delete.
func WithMutationAttempts(n int) RecordServiceOption {
	return func(s *recordService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRecordDefaultCurrency sets the currency used when neither the request nor the owner names one.
func WithRecordDefaultCurrency(code string) RecordServiceOption {
	return func(s *recordService) {
		if code != "" {
			s.defaultCurrency = code
		}
	}
}

// WithRecordClock overrides time.Now, for tests.
func WithRecordClock(now func() time.Time) RecordServiceOption {
	return func(s *recordService) {
		s.now = now
	}
}

// NewRecordService creates a new record service with the provided options
func NewRecordService(recordRepo portsrepo.RecordRepositoryFacade, aggregateRepo portsrepo.AggregateReader, options ...RecordServiceOption) portssvc.RecordSvcFacade {
	svc := &recordService{
		recordRepo:      recordRepo,
		aggregateRepo:   aggregateRepo,
		notifier:        noopNotifier{},
		maxAttempts:     defaultMutationAttempts,
		defaultCurrency: domain.DefaultCurrency,
		now:             time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RecordSvcFacade = (*recordService)(nil)

func (s *recordService) CreateRecord(ctx context.Context, ownerID string, req dto.CreateRecordRequest) (*domain.Record, error) {
	occurredOn, err := parseDate("occurredOn", req.OccurredOn)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency, err = ownerDefaultCurrency(ctx, s.aggregateRepo, ownerID, s.defaultCurrency)
		if err != nil {
			s.LogError(ctx, err, "Failed to resolve default currency", slog.String("owner_id", ownerID))
			return nil, err
		}
	}

	now := s.now().UTC()
	record := domain.Record{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(req.Name),
		Amount:     req.Amount,
		Currency:   currency,
		Category:   strings.TrimSpace(req.Category),
		Kind:       req.Kind,
		OccurredOn: occurredOn,
		Notes:      strings.TrimSpace(req.Notes),
		Version:    1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
	if err := validateStruct(record); err != nil {
		return nil, err
	}

	changes, err := accounting.CreateChanges(record)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := s.recordRepo.SaveRecord(ctx, record, changes); err != nil {
		s.LogError(ctx, err, "Failed to save record",
			slog.String("owner_id", ownerID),
			slog.String("record_id", record.ID))
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.notify(ctx, ownerID, domain.OpCreated, record.ID)
	s.LogInfo(ctx, "Record created",
		slog.String("owner_id", ownerID),
		slog.String("record_id", record.ID),
		slog.String("kind", string(record.Kind)))
	return &record, nil
}

func (s *recordService) GetRecord(ctx context.Context, ownerID, recordID string) (*domain.Record, error) {
	record, err := s.recordRepo.FindRecordByID(ctx, ownerID, recordID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get record", slog.String("record_id", recordID))
		}
		return nil, err
	}
	return record, nil
}

func (s *recordService) ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	records, next, err := s.recordRepo.ListRecords(ctx, ownerID, filter, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list records", slog.String("owner_id", ownerID))
		return nil, nil, err
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, next, nil
}

func (s *recordService) EditRecord(ctx context.Context, ownerID, recordID string, req dto.UpdateRecordRequest) (*domain.Record, error) {
	patch, err := toRecordPatch(req)
	if err != nil {
		return nil, err
	}

	var updated domain.Record
	err = withConflictRetry(ctx, s.maxAttempts, func(attempt int) error {
		current, err := s.recordRepo.FindRecordByID(ctx, ownerID, recordID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = *current
			return nil
		}

		updated = patch.Apply(*current)
		updated.Version = current.Version + 1
		updated.LastUpdatedAt = s.now().UTC()
		if err := validateStruct(updated); err != nil {
			return err
		}

		changes, err := accounting.EditChanges(*current, updated)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		err = s.recordRepo.UpdateRecord(ctx, updated, current.Version, changes)
		if errors.Is(err, apperrors.ErrConflict) {
			s.LogDebug(ctx, "Record edit lost a version race, retrying",
				slog.String("record_id", recordID), slog.Int("attempt", attempt))
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to edit record",
				slog.String("owner_id", ownerID),
				slog.String("record_id", recordID))
		}
		return nil, err
	}

	if !patch.IsEmpty() {
		s.notify(ctx, ownerID, domain.OpUpdated, recordID)
	}
	return &updated, nil
}

func (s *recordService) DeleteRecord(ctx context.Context, ownerID, recordID string) error {
	deleted := false
	err := withConflictRetry(ctx, s.maxAttempts, func(attempt int) error {
		current, err := s.recordRepo.FindRecordByID(ctx, ownerID, recordID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		changes, err := accounting.DeleteChanges(*current)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		err = s.recordRepo.DeleteRecord(ctx, ownerID, recordID, current.Version, changes)
		switch {
		case err == nil:
			deleted = true
			return nil
		case errors.Is(err, apperrors.ErrNotFound):
			// Someone else removed it between the read and the write.
			return nil
		case errors.Is(err, apperrors.ErrConflict):
			s.LogDebug(ctx, "Record delete lost a version race, retrying",
				slog.String("record_id", recordID), slog.Int("attempt", attempt))
		}
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete record",
			slog.String("owner_id", ownerID),
			slog.String("record_id", recordID))
		return err
	}

	if deleted {
		s.notify(ctx, ownerID, domain.OpDeleted, recordID)
		s.LogInfo(ctx, "Record deleted", slog.String("owner_id", ownerID), slog.String("record_id", recordID))
	}
	return nil
}

func (s *recordService) notify(ctx context.Context, ownerID string, op domain.ChangeOp, recordID string) {
	s.notifier.Notify(ctx, domain.ChangeEvent{
		OwnerID:    ownerID,
		Topics:     []domain.Topic{domain.TopicRecords, domain.TopicAggregate},
		Op:         op,
		EntityID:   recordID,
		OccurredAt: s.now().UTC(),
	})
}

func toRecordPatch(req dto.UpdateRecordRequest) (domain.RecordPatch, error) {
	patch := domain.RecordPatch{
		Amount: req.Amount,
		Kind:   req.Kind,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		patch.Currency = &currency
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		patch.Category = &category
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		patch.Notes = &notes
	}
	if req.OccurredOn != nil {
		d, err := parseDate("occurredOn", *req.OccurredOn)
		if err != nil {
			return domain.RecordPatch{}, err
		}
		patch.OccurredOn = &d
	}
	return patch, nil
}

// ownerDefaultCurrency returns the owner's configured currency, or fallback for a user without an aggregate.
func ownerDefaultCurrency(ctx context.Context, repo portsrepo.AggregateReader, ownerID, fallback string) (string, error) {
	agg, err := repo.FindAggregate(ctx, ownerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	if agg.DefaultCurrency == "" {
		return fallback, nil
	}
	return agg.DefaultCurrency, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.ChangeEvent) {}
