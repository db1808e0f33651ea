package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mock BudgetRepository ---
type MockBudgetRepository struct {
	mock.Mock
}

var _ portsrepo.BudgetRepositoryFacade = (*MockBudgetRepository)(nil)

func (m *MockBudgetRepository) FindBudgetByID(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error) {
	args := m.Called(ctx, ownerID, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindBudgetByCategory(ctx context.Context, ownerID, category string) (*domain.Budget, error) {
	args := m.Called(ctx, ownerID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Budget), args.Error(1)
}

func (m *MockBudgetRepository) ListBudgets(ctx context.Context, ownerID string) ([]domain.Budget, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Budget), args.Error(1)
}

func (m *MockBudgetRepository) SaveBudget(ctx context.Context, budget domain.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockBudgetRepository) UpdateBudget(ctx context.Context, budget domain.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockBudgetRepository) DeleteBudget(ctx context.Context, ownerID, budgetID string) (bool, error) {
	args := m.Called(ctx, ownerID, budgetID)
	return args.Bool(0), args.Error(1)
}

func TestCreateBudget_LosesRaceToConcurrentCreate(t *testing.T) {
	repo := new(MockBudgetRepository)
	svc := services.NewBudgetService(repo, nil, nil, services.NewCurrencyService())
	ctx := context.Background()

	// The pre-check sees nothing, but the unique constraint rejects the insert.
	repo.On("FindBudgetByCategory", ctx, "owner-1", "Food").Return(nil, apperrors.NewNotFoundError("budget for category", "Food")).Once()
	repo.On("SaveBudget", ctx, mock.AnythingOfType("domain.Budget")).Return(apperrors.ErrDuplicate).Once()

	_, err := svc.CreateBudget(ctx, "owner-1", dto.CreateBudgetRequest{Category: " Food ", Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateCategory)
	repo.AssertExpectations(t)
}

func TestCreateBudget_PropagatesStoreFailure(t *testing.T) {
	repo := new(MockBudgetRepository)
	svc := services.NewBudgetService(repo, nil, nil, services.NewCurrencyService())
	ctx := context.Background()

	repo.On("FindBudgetByCategory", ctx, "owner-1", "Food").Return(nil, apperrors.ErrStoreUnavailable).Once()

	_, err := svc.CreateBudget(ctx, "owner-1", dto.CreateBudgetRequest{Category: "Food", Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	repo.AssertNotCalled(t, "SaveBudget", mock.Anything, mock.Anything)
}

// --- Test Suite Setup ---
type BudgetServiceTestSuite struct {
	suite.Suite
	env     *ledgerEnv
	ctx     context.Context
	ownerID string
	june    [2]domain.Date
}

func (s *BudgetServiceTestSuite) SetupTest() {
	s.env = newLedgerEnv(s.T(), time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()
	s.ownerID = "owner-1"
	s.june = [2]domain.Date{domain.NewDate(2024, time.June, 1), domain.NewDate(2024, time.July, 1)}
}

func TestBudgetServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BudgetServiceTestSuite))
}

func (s *BudgetServiceTestSuite) createBudget(category, amount string) *domain.Budget {
	b, err := s.env.budgets.CreateBudget(s.ctx, s.ownerID, dto.CreateBudgetRequest{
		Category: category,
		Amount:   decimal.RequireFromString(amount),
	})
	s.Require().NoError(err)
	return b
}

func (s *BudgetServiceTestSuite) TestCreateBudget_DuplicateCategory() {
	s.createBudget("Food", "100")

	_, err := s.env.budgets.CreateBudget(s.ctx, s.ownerID, dto.CreateBudgetRequest{Category: "Food", Amount: decimal.NewFromInt(300)})
	s.ErrorIs(err, apperrors.ErrDuplicateCategory)

	budgets, err := s.env.repos.BudgetRepo.ListBudgets(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Len(budgets, 1)
	assertDecimal(s.T(), "100", budgets[0].Amount)

	// Another owner may use the same category.
	_, err = s.env.budgets.CreateBudget(s.ctx, "owner-2", dto.CreateBudgetRequest{Category: "Food", Amount: decimal.NewFromInt(300)})
	s.NoError(err)
}

func (s *BudgetServiceTestSuite) TestCreateBudget_ConcurrentDuplicates() {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.env.budgets.CreateBudget(s.ctx, s.ownerID, dto.CreateBudgetRequest{Category: "Travel", Amount: decimal.NewFromInt(50)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			if s.ErrorIs(err, apperrors.ErrDuplicateCategory) {
				duplicate++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(9, duplicate)
}

func (s *BudgetServiceTestSuite) TestUpdateBudget() {
	food := s.createBudget("Food", "100")
	s.createBudget("Rent", "900")

	updated, err := s.env.budgets.UpdateBudget(s.ctx, s.ownerID, food.ID, dto.UpdateBudgetRequest{Amount: ptr(decimal.NewFromInt(150))})
	s.Require().NoError(err)
	assertDecimal(s.T(), "150", updated.Amount)
	s.Equal("Food", updated.Category)

	_, err = s.env.budgets.UpdateBudget(s.ctx, s.ownerID, food.ID, dto.UpdateBudgetRequest{Category: ptr("Rent")})
	s.ErrorIs(err, apperrors.ErrDuplicateCategory)

	_, err = s.env.budgets.UpdateBudget(s.ctx, s.ownerID, "missing", dto.UpdateBudgetRequest{Amount: ptr(decimal.NewFromInt(1))})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *BudgetServiceTestSuite) TestConsumption_HalfOpenPeriodAndUnclampedPercent() {
	s.createBudget("Food", "100")
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "60", "INR", "2024-06-01", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "50", "INR", "2024-06-30", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "70", "INR", "2024-07-01", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "20", "INR", "2024-06-10", "Rent"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Income, "999", "INR", "2024-06-10", "Food"))

	c, err := s.env.budgets.Consumption(s.ctx, s.ownerID, "Food", s.june[0], s.june[1], "")
	s.Require().NoError(err)

	assertDecimal(s.T(), "110", c.Spent)
	assertDecimal(s.T(), "100", c.Limit)
	assertDecimal(s.T(), "110", c.Percent)
	assertDecimal(s.T(), "100", c.DisplayPercent)
	s.True(c.OverBudget)
	s.Equal("INR", c.Currency)
	s.Empty(c.Warnings)
}

func (s *BudgetServiceTestSuite) TestConsumption_AllCategories() {
	s.createBudget(domain.AllCategories, "1000")
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "100", "INR", "2024-06-01", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "150", "INR", "2024-06-02", "Rent"))

	c, err := s.env.budgets.Consumption(s.ctx, s.ownerID, domain.AllCategories, s.june[0], s.june[1], "")
	s.Require().NoError(err)
	assertDecimal(s.T(), "250", c.Spent)
	assertDecimal(s.T(), "25", c.Percent)
	s.False(c.OverBudget)
}

func (s *BudgetServiceTestSuite) TestConsumption_Errors() {
	_, err := s.env.budgets.Consumption(s.ctx, s.ownerID, "Nope", s.june[0], s.june[1], "")
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.env.budgets.Consumption(s.ctx, s.ownerID, "Food", s.june[1], s.june[0], "")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *BudgetServiceTestSuite) TestConsumption_Currencies() {
	s.createBudget("Food", "200")
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "100", "INR", "2024-06-01", "Food"))
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "1.2", "USD", "2024-06-02", "Food"))

	raw, err := s.env.budgets.Consumption(s.ctx, s.ownerID, "Food", s.june[0], s.june[1], "")
	s.Require().NoError(err)
	s.Empty(raw.Currency)
	s.NotEmpty(raw.Warnings, "raw sums over several currencies must be flagged")

	normalized, err := s.env.budgets.Consumption(s.ctx, s.ownerID, "Food", s.june[0], s.june[1], "INR")
	s.Require().NoError(err)
	s.Equal("INR", normalized.Currency)
	assertDecimal(s.T(), "200", normalized.Spent)
	assertDecimal(s.T(), "100", normalized.Percent)
	s.False(normalized.OverBudget)
	s.Empty(normalized.Warnings)
}

func (s *BudgetServiceTestSuite) TestListBudgetConsumption_PinnedFirst() {
	food := s.createBudget("Food", "100")
	rent := s.createBudget("Rent", "1000")
	s.createBudget("Travel", "500")
	s.env.mustCreate(s.T(), s.ownerID, recordReq(domain.Expense, "500", "INR", "2024-06-05", "Rent"))

	s.Require().NoError(s.env.budgets.PinBudget(s.ctx, s.ownerID, rent.ID))

	list, err := s.env.budgets.ListBudgetConsumption(s.ctx, s.ownerID, s.june[0], s.june[1], "")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(rent.ID, list[0].BudgetID)
	s.True(list[0].Pinned)
	assertDecimal(s.T(), "50", list[0].Percent)
	s.Equal("INR", list[0].Currency)
	s.Equal(food.ID, list[1].BudgetID)
	s.Equal("Travel", list[2].Category)
	s.False(list[1].Pinned)
}

func (s *BudgetServiceTestSuite) TestPinning() {
	food := s.createBudget("Food", "100")
	rent := s.createBudget("Rent", "1000")

	s.Require().NoError(s.env.budgets.PinBudget(s.ctx, s.ownerID, food.ID))
	s.Require().NoError(s.env.budgets.PinBudget(s.ctx, s.ownerID, rent.ID))
	agg, err := s.env.balances.GetAggregate(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Require().NotNil(agg.PinnedBudgetID)
	s.Equal(rent.ID, *agg.PinnedBudgetID)

	err = s.env.budgets.PinBudget(s.ctx, s.ownerID, "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)
	err = s.env.budgets.PinBudget(s.ctx, "owner-2", rent.ID)
	s.ErrorIs(err, apperrors.ErrNotFound, "budgets of other owners cannot be pinned")

	s.Require().NoError(s.env.budgets.UnpinBudget(s.ctx, s.ownerID))
	s.Require().NoError(s.env.budgets.UnpinBudget(s.ctx, s.ownerID))
	s.Require().NoError(s.env.budgets.UnpinBudget(s.ctx, "never-seen"))
	agg, err = s.env.balances.GetAggregate(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Nil(agg.PinnedBudgetID)
}

func (s *BudgetServiceTestSuite) TestDeleteBudget_ClearsPin() {
	food := s.createBudget("Food", "100")
	s.Require().NoError(s.env.budgets.PinBudget(s.ctx, s.ownerID, food.ID))

	s.Require().NoError(s.env.budgets.DeleteBudget(s.ctx, s.ownerID, food.ID))
	s.Require().NoError(s.env.budgets.DeleteBudget(s.ctx, s.ownerID, food.ID))

	agg, err := s.env.balances.GetAggregate(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Nil(agg.PinnedBudgetID)
	_, err = s.env.budgets.GetBudget(s.ctx, s.ownerID, food.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	// The category is free again.
	s.createBudget("Food", "120")
}

func TestCurrentMonthPeriod(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		name      string
		now       time.Time
		loc       *time.Location
		wantStart string
		wantEnd   string
	}{
		{name: "mid month", now: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC), loc: time.UTC, wantStart: "2024-06-01", wantEnd: "2024-07-01"},
		{name: "december rolls the year", now: time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC), loc: time.UTC, wantStart: "2024-12-01", wantEnd: "2025-01-01"},
		{name: "local month differs from UTC", now: time.Date(2024, time.June, 30, 20, 0, 0, 0, time.UTC), loc: kolkata, wantStart: "2024-07-01", wantEnd: "2024-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := services.CurrentMonthPeriod(tt.now, tt.loc)
			require.Equal(t, tt.wantStart, start.String())
			require.Equal(t, tt.wantEnd, end.String())
		})
	}
}

func budgetReq(category, amount string) dto.CreateBudgetRequest {
	return dto.CreateBudgetRequest{Category: category, Amount: decimal.RequireFromString(amount)}
}
