package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// Unsubscribe stops a live subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SubscriptionService registers live queries. Each callback receives the current result right away
// and again after every relevant change. A subscription ends when Unsubscribe is called or ctx is done.
type SubscriptionService interface {
	SubscribeMonthlyTotals(ctx context.Context, ownerID string, q domain.MonthlyTotalsQuery, cb func(domain.MonthlyTotals)) (Unsubscribe, error)
	SubscribeCategoryBreakdown(ctx context.Context, ownerID string, q domain.CategoryBreakdownQuery, cb func(domain.CategoryBreakdown)) (Unsubscribe, error)
	SubscribeDailyBuckets(ctx context.Context, ownerID string, q domain.DailyBucketsQuery, cb func(domain.DailyBuckets)) (Unsubscribe, error)
	SubscribeTopRecords(ctx context.Context, ownerID string, q domain.TopRecordsQuery, cb func(domain.RecordList)) (Unsubscribe, error)
	SubscribeRecentRecords(ctx context.Context, ownerID string, q domain.RecentRecordsQuery, cb func(domain.RecordList)) (Unsubscribe, error)
	SubscribeBalance(ctx context.Context, ownerID, displayCurrency string, cb func(domain.Balance)) (Unsubscribe, error)
	SubscribeRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, cb func(domain.RecordList)) (Unsubscribe, error)
	SubscribeBudgets(ctx context.Context, ownerID string, cb func([]domain.BudgetConsumption)) (Unsubscribe, error)
}

// ChangeNotifier receives every store change event.
type ChangeNotifier interface {
	Notify(ctx context.Context, event domain.ChangeEvent)
}

// ChangeRelay forwards change events to other service instances.
type ChangeRelay interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}
