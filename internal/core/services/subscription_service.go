package services

import (
	"context"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
)

// liveRecordsLimit bounds the record list pushed to a records subscription.
const liveRecordsLimit = 100

var (
	recordTopics  = []domain.Topic{domain.TopicRecords}
	balanceTopics = []domain.Topic{domain.TopicAggregate}
	budgetTopics  = []domain.Topic{domain.TopicBudgets, domain.TopicRecords, domain.TopicAggregate}
)

type subscriptionService struct {
	BaseService
	hub       *Hub
	reporting portssvc.ReportingService
	records   portssvc.RecordReaderSvc
	balances  portssvc.BalanceSvc
	budgets   portssvc.BudgetReaderSvc
	now       func() time.Time
	loc       *time.Location
}

// SubscriptionServiceOption is a functional option for configuring the subscription service
type SubscriptionServiceOption func(*subscriptionService)

// WithSubscriptionLocation sets the time zone of the budget period pushed to budget subscribers.
func WithSubscriptionLocation(loc *time.Location) SubscriptionServiceOption {
	return func(s *subscriptionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSubscriptionClock overrides time.Now, for tests.
func WithSubscriptionClock(now func() time.Time) SubscriptionServiceOption {
	return func(s *subscriptionService) {
		s.now = now
	}
}

// NewSubscriptionService exposes every one-shot query as a live query backed by hub.
func NewSubscriptionService(
	hub *Hub,
	reporting portssvc.ReportingService,
	records portssvc.RecordReaderSvc,
	balances portssvc.BalanceSvc,
	budgets portssvc.BudgetReaderSvc,
	options ...SubscriptionServiceOption,
) portssvc.SubscriptionService {
	svc := &subscriptionService{
		hub:       hub,
		reporting: reporting,
		records:   records,
		balances:  balances,
		budgets:   budgets,
		now:       time.Now,
		loc:       time.Local,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SubscriptionService = (*subscriptionService)(nil)

func checkSubscription[T any](ownerID string, cb func(T)) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperrors.NewValidationError("owner id is required")
	}
	if cb == nil {
		return apperrors.NewValidationError("callback is required")
	}
	return nil
}

// subscribe validates the request and wires compute into the hub.
func subscribe[T any](ctx context.Context, s *subscriptionService, ownerID string, topics []domain.Topic, compute func(context.Context) (*T, error), cb func(T)) (portssvc.Unsubscribe, error) {
	if err := checkSubscription(ownerID, cb); err != nil {
		return nil, err
	}
	s.LogDebug(ctx, "Live query registered", "owner_id", ownerID, "topics", topics)
	unsubscribe := Watch(ctx, s.hub, ownerID, topics, compute, func(v *T) { cb(*v) })
	return unsubscribe, nil
}

func (s *subscriptionService) SubscribeMonthlyTotals(ctx context.Context, ownerID string, q domain.MonthlyTotalsQuery, cb func(domain.MonthlyTotals)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.MonthlyTotals, error) {
		return s.reporting.FetchMonthlyTotals(ctx, ownerID, q)
	}, cb)
}

func (s *subscriptionService) SubscribeCategoryBreakdown(ctx context.Context, ownerID string, q domain.CategoryBreakdownQuery, cb func(domain.CategoryBreakdown)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.CategoryBreakdown, error) {
		return s.reporting.FetchCategoryBreakdown(ctx, ownerID, q)
	}, cb)
}

func (s *subscriptionService) SubscribeDailyBuckets(ctx context.Context, ownerID string, q domain.DailyBucketsQuery, cb func(domain.DailyBuckets)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.DailyBuckets, error) {
		return s.reporting.FetchDailyBuckets(ctx, ownerID, q)
	}, cb)
}

func (s *subscriptionService) SubscribeTopRecords(ctx context.Context, ownerID string, q domain.TopRecordsQuery, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.RecordList, error) {
		return s.reporting.FetchTopRecords(ctx, ownerID, q)
	}, cb)
}

func (s *subscriptionService) SubscribeRecentRecords(ctx context.Context, ownerID string, q domain.RecentRecordsQuery, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.RecordList, error) {
		return s.reporting.FetchRecentRecords(ctx, ownerID, q)
	}, cb)
}

func (s *subscriptionService) SubscribeBalance(ctx context.Context, ownerID, displayCurrency string, cb func(domain.Balance)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, balanceTopics, func(ctx context.Context) (*domain.Balance, error) {
		return s.balances.GetBalance(ctx, ownerID, displayCurrency)
	}, cb)
}

func (s *subscriptionService) SubscribeRecords(ctx context.Context, ownerID string, filter domain.RecordFilter, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, recordTopics, func(ctx context.Context) (*domain.RecordList, error) {
		records, _, err := s.records.ListRecords(ctx, ownerID, filter, liveRecordsLimit, nil)
		if err != nil {
			return nil, err
		}
		return &domain.RecordList{Records: records}, nil
	}, cb)
}

// SubscribeBudgets pushes every budget with its consumption for the current month.
func (s *subscriptionService) SubscribeBudgets(ctx context.Context, ownerID string, cb func([]domain.BudgetConsumption)) (portssvc.Unsubscribe, error) {
	return subscribe(ctx, s, ownerID, budgetTopics, func(ctx context.Context) (*[]domain.BudgetConsumption, error) {
		start, end := CurrentMonthPeriod(s.now(), s.loc)
		list, err := s.budgets.ListBudgetConsumption(ctx, ownerID, start, end, "")
		if err != nil {
			return nil, err
		}
		return &list, nil
	}, cb)
}
