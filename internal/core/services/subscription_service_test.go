package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceTestSuite struct {
	suite.Suite
	env     *ledgerEnv
	ctx     context.Context
	ownerID string
}

func (s *SubscriptionServiceTestSuite) SetupTest() {
	s.env = newLedgerEnv(s.T(), time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
	s.ownerID = "owner-1"
}

func TestSubscriptionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceTestSuite))
}

func (s *SubscriptionServiceTestSuite) TestRejectsInvalidRequests() {
	_, err := s.env.subs.SubscribeBalance(s.ctx, " ", "", func(domain.Balance) {})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.env.subs.SubscribeRecentRecords(s.ctx, s.ownerID, domain.RecentRecordsQuery{}, nil)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Equal(0, s.env.hub.SubscriberCount(s.ownerID))
}

func (s *SubscriptionServiceTestSuite) TestMonthlyTotalsFollowWrites() {
	got := &collector[domain.MonthlyTotals]{}
	unsubscribe, err := s.env.subs.SubscribeMonthlyTotals(s.ctx, s.ownerID,
		domain.MonthlyTotalsQuery{Year: 2024, Month: time.June}, got.add)
	s.Require().NoError(err)
	defer unsubscribe()

	s.Require().Eventually(func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	s.True(got.last().Totals.Expense.IsZero())

	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "100", "INR", "2024-06-01", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "50", "INR", "2024-06-01", "Food"))

	s.Eventually(func() bool {
		return got.len() > 1 && got.last().Totals.Expense.Equal(decimal.NewFromInt(150))
	}, time.Second, time.Millisecond)
}

func (s *SubscriptionServiceTestSuite) TestBalanceFollowsEditsAndDeletes() {
	record := s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Income, "10", "INR", "2024-06-10", "Salary"))

	got := &collector[domain.Balance]{}
	unsubscribe, err := s.env.subs.SubscribeBalance(s.ctx, s.ownerID, "", got.add)
	s.Require().NoError(err)
	defer unsubscribe()
	s.Require().Eventually(func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	assertDecimal(s.T(), "10", got.last().Total)

	_, err = s.env.records.EditRecord(s.ctx, s.ownerID, record.ID, dto.UpdateRecordRequest{Kind: ptr(domain.Expense)})
	s.Require().NoError(err)
	s.Eventually(func() bool { return got.last().Total.Equal(decimal.NewFromInt(-10)) }, time.Second, time.Millisecond)

	s.Require().NoError(s.env.records.DeleteRecord(s.ctx, s.ownerID, record.ID))
	s.Eventually(func() bool { return got.last().Total.IsZero() }, time.Second, time.Millisecond)
}

func (s *SubscriptionServiceTestSuite) TestOwnersAreIsolated() {
	got := &collector[domain.RecordList]{}
	unsubscribe, err := s.env.subs.SubscribeRecords(s.ctx, s.ownerID, domain.RecordFilter{}, got.add)
	s.Require().NoError(err)
	defer unsubscribe()
	s.Require().Eventually(func() bool { return got.len() == 1 }, time.Second, time.Millisecond)

	s.env.mustCreate(s.T(), "owner-2", recordReq(domain.Expense, "5", "INR", "2024-06-10", "Food"))
	s.Never(func() bool { return got.len() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func (s *SubscriptionServiceTestSuite) TestBudgetsFollowRecordsAndBudgetChanges() {
	got := &collector[[]domain.BudgetConsumption]{}
	unsubscribe, err := s.env.subs.SubscribeBudgets(s.ctx, s.ownerID, got.add)
	s.Require().NoError(err)
	defer unsubscribe()
	s.Require().Eventually(func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	s.Empty(got.last())

	_, err = s.env.budgets.CreateBudget(s.ctx, s.ownerID, budgetReq("Food", "200"))
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return len(got.last()) == 1 }, time.Second, time.Millisecond)

	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "50", "INR", "2024-06-02", "Food"))
	s.Eventually(func() bool {
		list := got.last()
		return len(list) == 1 && list[0].Percent.Equal(decimal.NewFromInt(25))
	}, time.Second, time.Millisecond)
}

func (s *SubscriptionServiceTestSuite) TestResumesAfterStoreOutage() {
	got := &collector[domain.RecordList]{}
	unsubscribe, err := s.env.subs.SubscribeRecentRecords(s.ctx, s.ownerID, domain.RecentRecordsQuery{K: 5}, got.add)
	s.Require().NoError(err)
	defer unsubscribe()
	s.Require().Eventually(func() bool { return got.len() == 1 }, time.Second, time.Millisecond)

	s.env.store.SetAvailable(false)
	s.env.hub.Notify(s.ctx, recordsChanged(s.ownerID))
	s.Never(func() bool { return got.len() > 1 }, 80*time.Millisecond, 5*time.Millisecond)

	s.env.store.SetAvailable(true)
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "5", "INR", "2024-06-10", "Food"))
	s.Eventually(func() bool { return len(got.last().Records) == 1 }, 2*time.Second, 5*time.Millisecond)
}
