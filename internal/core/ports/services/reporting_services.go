package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// ReportingService defines the one-shot aggregation queries. None of them mutate state.
type ReportingService interface {
	FetchMonthlyTotals(ctx context.Context, ownerID string, q domain.MonthlyTotalsQuery) (*domain.MonthlyTotals, error)
	FetchCategoryBreakdown(ctx context.Context, ownerID string, q domain.CategoryBreakdownQuery) (*domain.CategoryBreakdown, error)
	FetchDailyBuckets(ctx context.Context, ownerID string, q domain.DailyBucketsQuery) (*domain.DailyBuckets, error)
	FetchTopRecords(ctx context.Context, ownerID string, q domain.TopRecordsQuery) (*domain.RecordList, error)
	FetchRecentRecords(ctx context.Context, ownerID string, q domain.RecentRecordsQuery) (*domain.RecordList, error)

	// FetchDashboard runs every dashboard query concurrently.
	FetchDashboard(ctx context.Context, ownerID string) (*domain.Dashboard, error)
}
