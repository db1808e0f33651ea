package pgsql

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reportingRepository implements the ReportingRepository interface
type reportingRepository struct {
	BaseRepository
}

// newReportingRepository creates a new reporting repository
func newReportingRepository(db *pgxpool.Pool) portsrepo.ReportingRepository {
	return &reportingRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.ReportingRepository = (*reportingRepository)(nil)

func (r *reportingRepository) SumByKind(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.KindTotal, error) {
	query := `
		SELECT kind, currency_code, SUM(amount)
		FROM records
		WHERE owner_id = $1 AND occurred_on BETWEEN $2 AND $3
		GROUP BY kind, currency_code
		ORDER BY kind, currency_code;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, from.Time, to.Time)
	if err != nil {
		return nil, mapPgError(err, "error querying totals by kind")
	}
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.KindTotal, error) {
		var t domain.KindTotal
		var kind string
		err := row.Scan(&kind, &t.Currency, &t.Total)
		t.Kind = domain.RecordKind(kind)
		return t, err
	})
	if err != nil {
		return nil, mapPgError(err, "error scanning totals by kind")
	}
	return totals, nil
}

func (r *reportingRepository) SumExpensesByCategory(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.CategoryTotal, error) {
	query := `
		SELECT category, currency_code, SUM(amount)
		FROM records
		WHERE owner_id = $1 AND kind = 'expense' AND occurred_on BETWEEN $2 AND $3
		GROUP BY category, currency_code
		ORDER BY category, currency_code;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, from.Time, to.Time)
	if err != nil {
		return nil, mapPgError(err, "error querying expenses by category")
	}
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryTotal, error) {
		var t domain.CategoryTotal
		err := row.Scan(&t.Category, &t.Currency, &t.Total)
		return t, err
	})
	if err != nil {
		return nil, mapPgError(err, "error scanning expenses by category")
	}
	return totals, nil
}

func (r *reportingRepository) SumByDay(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DailyTotal, error) {
	query := `
		SELECT occurred_on, kind, currency_code, SUM(amount)
		FROM records
		WHERE owner_id = $1 AND occurred_on BETWEEN $2 AND $3
		GROUP BY occurred_on, kind, currency_code
		ORDER BY occurred_on, kind, currency_code;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, from.Time, to.Time)
	if err != nil {
		return nil, mapPgError(err, "error querying daily totals")
	}
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DailyTotal, error) {
		var t domain.DailyTotal
		var kind string
		err := row.Scan(&t.Date.Time, &kind, &t.Currency, &t.Total)
		t.Date = domain.DateOf(t.Date.Time)
		t.Kind = domain.RecordKind(kind)
		return t, err
	})
	if err != nil {
		return nil, mapPgError(err, "error scanning daily totals")
	}
	return totals, nil
}

func (r *reportingRepository) TopRecordsByAmount(ctx context.Context, ownerID string, from, to domain.Date, k int) ([]domain.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE owner_id = $1 AND occurred_on BETWEEN $2 AND $3
		ORDER BY amount DESC, created_at DESC, record_id DESC
		LIMIT $4;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, from.Time, to.Time, k)
	if err != nil {
		return nil, mapPgError(err, "error querying top records")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, mapPgError(err, "error scanning top records")
	}
	return records, nil
}

func (r *reportingRepository) RecentRecords(ctx context.Context, ownerID string, k int) ([]domain.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE owner_id = $1
		ORDER BY occurred_on DESC, created_at DESC, record_id DESC
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, k)
	if err != nil {
		return nil, mapPgError(err, "error querying recent records")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, mapPgError(err, "error scanning recent records")
	}
	return records, nil
}
