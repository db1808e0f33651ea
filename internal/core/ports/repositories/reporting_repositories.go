package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// ReportingRepository defines read-only aggregate queries over records.
// Date bounds are inclusive on both ends. Amounts are summed per currency; normalization happens in services.
type ReportingRepository interface {
	// SumByKind totals income and expense per currency for records in [from, to].
	SumByKind(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.KindTotal, error)

	// SumExpensesByCategory totals expense records per category and currency in [from, to].
	SumExpensesByCategory(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.CategoryTotal, error)

	// SumByDay totals records per day, kind and currency in [from, to].
	SumByDay(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DailyTotal, error)

	// TopRecordsByAmount returns the k largest records in [from, to] (amount desc, createdAt desc).
	TopRecordsByAmount(ctx context.Context, ownerID string, from, to domain.Date, k int) ([]domain.Record, error)

	// RecentRecords returns the k newest records (occurredOn desc, createdAt desc).
	RecentRecords(ctx context.Context, ownerID string, k int) ([]domain.Record, error)
}
