package pgsql

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/SscSPs/ledger_engine/internal/utils/mapping"
	"github.com/SscSPs/ledger_engine/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `record_id, owner_id, name, amount, currency_code, category, kind, occurred_on, notes, version, created_at, last_updated_at`

type PgxRecordRepository struct {
	BaseRepository
}

// newPgxRecordRepository creates a new repository for records and their balance effects.
func newPgxRecordRepository(pool *pgxpool.Pool) portsrepo.RecordRepositoryFacade {
	return &PgxRecordRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.RecordRepositoryFacade = (*PgxRecordRepository)(nil)

func scanRecord(row pgx.Row) (models.Record, error) {
	var m models.Record
	err := row.Scan(
		&m.RecordID,
		&m.OwnerID,
		&m.Name,
		&m.Amount,
		&m.Currency,
		&m.Category,
		&m.Kind,
		&m.OccurredOn,
		&m.Notes,
		&m.Version,
		&m.CreatedAt,
		&m.LastUpdatedAt,
	)
	return m, err
}

func collectRecords(rows pgx.Rows) ([]domain.Record, error) {
	modelRecords, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainRecords(modelRecords), nil
}

func (r *PgxRecordRepository) FindRecordByID(ctx context.Context, ownerID, recordID string) (*domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE owner_id = $1 AND record_id = $2;`
	m, err := scanRecord(r.Pool.QueryRow(ctx, query, ownerID, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("record", recordID)
		}
		return nil, mapPgError(err, "failed to find record "+recordID)
	}
	record := mapping.ToDomainRecord(m)
	return &record, nil
}

// ListRecords pages through records newest first using a keyset cursor.
func (r *PgxRecordRepository) ListRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, limit int, nextToken *string) ([]domain.Record, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	conditions := []string{"owner_id = $1"}
	args := []any{ownerID}
	addArg := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.From != nil {
		addArg("occurred_on >= ?", filter.From.Time)
	}
	if filter.To != nil {
		addArg("occurred_on <= ?", filter.To.Time)
	}
	if filter.Kind != nil {
		addArg("kind = ?", string(*filter.Kind))
	}
	if filter.Category != nil {
		addArg("category = ?", *filter.Category)
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("invalid nextToken")
		}
		// Tuple comparison matches the ORDER BY below.
		args = append(args, cursor.OccurredOn, cursor.CreatedAt, cursor.ID)
		n := len(args)
		conditions = append(conditions, "(occurred_on, created_at, record_id) < ($"+strconv.Itoa(n-2)+", $"+strconv.Itoa(n-1)+", $"+strconv.Itoa(n)+")")
	}
	args = append(args, fetchLimit)

	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY occurred_on DESC, created_at DESC, record_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to query records for owner "+ownerID)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to scan records")
	}

	if len(records) <= limit {
		return records, nil, nil
	}
	records = records[:limit]
	last := records[len(records)-1]
	token := pagination.EncodeToken(pagination.Cursor{OccurredOn: last.OccurredOn.Time, CreatedAt: last.CreatedAt, ID: last.ID})
	return records, &token, nil
}

// SaveRecord inserts the record and applies its balance delta in one transaction.
func (r *PgxRecordRepository) SaveRecord(ctx context.Context, record domain.Record, balanceChanges domain.BalanceChanges) error {
	m := mapping.ToModelRecord(record)
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO records (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
		`,
			m.RecordID, m.OwnerID, m.Name, m.Amount, m.Currency, m.Category, m.Kind,
			m.OccurredOn, m.Notes, m.Version, m.CreatedAt, m.LastUpdatedAt,
		)
		if err != nil {
			return mapPgError(err, "failed to insert record "+m.RecordID)
		}
		if err := ensureAggregate(ctx, tx, m.OwnerID, m.CreatedAt); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, m.OwnerID, balanceChanges, m.CreatedAt)
	})
}

// lockVersion locks the record row and checks it still carries expectedVersion.
func lockVersion(ctx context.Context, tx pgx.Tx, ownerID, recordID string, expectedVersion int64) error {
	var version int64
	err := tx.QueryRow(ctx, `
		SELECT version FROM records WHERE owner_id = $1 AND record_id = $2 FOR UPDATE;
	`, ownerID, recordID).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("record", recordID)
		}
		return mapPgError(err, "failed to lock record "+recordID)
	}
	if version != expectedVersion {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxRecordRepository) UpdateRecord(ctx context.Context, record domain.Record, expectedVersion int64, balanceChanges domain.BalanceChanges) error {
	m := mapping.ToModelRecord(record)
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockVersion(ctx, tx, m.OwnerID, m.RecordID, expectedVersion); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE records
			SET name = $3, amount = $4, currency_code = $5, category = $6, kind = $7,
			    occurred_on = $8, notes = $9, version = $10, last_updated_at = $11
			WHERE owner_id = $1 AND record_id = $2;
		`,
			m.OwnerID, m.RecordID, m.Name, m.Amount, m.Currency, m.Category, m.Kind,
			m.OccurredOn, m.Notes, m.Version, m.LastUpdatedAt,
		)
		if err != nil {
			return mapPgError(err, "failed to update record "+m.RecordID)
		}
		return applyBalanceChanges(ctx, tx, m.OwnerID, balanceChanges, m.LastUpdatedAt)
	})
}

func (r *PgxRecordRepository) DeleteRecord(ctx context.Context, ownerID, recordID string, expectedVersion int64, balanceChanges domain.BalanceChanges) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockVersion(ctx, tx, ownerID, recordID, expectedVersion); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM records WHERE owner_id = $1 AND record_id = $2;`, ownerID, recordID); err != nil {
			return mapPgError(err, "failed to delete record "+recordID)
		}
		return applyBalanceChanges(ctx, tx, ownerID, balanceChanges, time.Now().UTC())
	})
}
