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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type budgetService struct {
	BaseService
	budgetRepo      portsrepo.BudgetRepositoryFacade
	aggregateRepo   portsrepo.AggregateRepositoryFacade
	reportingRepo   portsrepo.ReportingRepository
	rates           portssvc.CurrencyConverterSvc
	notifier        portssvc.ChangeNotifier
	defaultCurrency string
	now             func() time.Time
}

// BudgetServiceOption is a functional option for configuring the budget service
type BudgetServiceOption func(*budgetService)

// WithBudgetNotifier sets where budget change events are published.
func WithBudgetNotifier(n portssvc.ChangeNotifier) BudgetServiceOption {
	return func(s *budgetService) {
		s.notifier = n
	}
}

// WithBudgetDefaultCurrency sets the currency budgets are measured in for users who never picked one.
func WithBudgetDefaultCurrency(code string) BudgetServiceOption {
	return func(s *budgetService) {
		if code != "" {
			s.defaultCurrency = code
		}
	}
}

// WithBudgetClock overrides time.Now, for tests.
func WithBudgetClock(now func() time.Time) BudgetServiceOption {
	return func(s *budgetService) {
		s.now = now
	}
}

// NewBudgetService creates the budget tracker.
func NewBudgetService(
	budgetRepo portsrepo.BudgetRepositoryFacade,
	aggregateRepo portsrepo.AggregateRepositoryFacade,
	reportingRepo portsrepo.ReportingRepository,
	rates portssvc.CurrencyConverterSvc,
	options ...BudgetServiceOption,
) portssvc.BudgetSvcFacade {
	svc := &budgetService{
		budgetRepo:      budgetRepo,
		aggregateRepo:   aggregateRepo,
		reportingRepo:   reportingRepo,
		rates:           rates,
		notifier:        noopNotifier{},
		defaultCurrency: domain.DefaultCurrency,
		now:             time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.BudgetSvcFacade = (*budgetService)(nil)

func (s *budgetService) CreateBudget(ctx context.Context, ownerID string, req dto.CreateBudgetRequest) (*domain.Budget, error) {
	category := strings.TrimSpace(req.Category)

	existing, err := s.budgetRepo.FindBudgetByCategory(ctx, ownerID, category)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrDuplicateCategory, category)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to check for existing budget",
			slog.String("owner_id", ownerID),
			slog.String("category", category))
		return nil, err
	}

	now := s.now().UTC()
	budget := domain.Budget{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Category: category,
		Amount:   req.Amount,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
	if err := validateStruct(budget); err != nil {
		return nil, err
	}

	if err := s.budgetRepo.SaveBudget(ctx, budget); err != nil {
		// The pre-check can race with a concurrent create; the store's unique constraint settles it.
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrDuplicateCategory, category)
		}
		s.LogError(ctx, err, "Failed to save budget", slog.String("owner_id", ownerID))
		return nil, err
	}

	s.notify(ctx, ownerID, domain.OpCreated, budget.ID, domain.TopicBudgets)
	s.LogInfo(ctx, "Budget created",
		slog.String("owner_id", ownerID),
		slog.String("budget_id", budget.ID),
		slog.String("category", category))
	return &budget, nil
}

func (s *budgetService) GetBudget(ctx context.Context, ownerID, budgetID string) (*domain.Budget, error) {
	budget, err := s.budgetRepo.FindBudgetByID(ctx, ownerID, budgetID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get budget", slog.String("budget_id", budgetID))
		}
		return nil, err
	}
	return budget, nil
}

func (s *budgetService) UpdateBudget(ctx context.Context, ownerID, budgetID string, req dto.UpdateBudgetRequest) (*domain.Budget, error) {
	current, err := s.budgetRepo.FindBudgetByID(ctx, ownerID, budgetID)
	if err != nil {
		return nil, err
	}

	patch := domain.BudgetPatch{Amount: req.Amount}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		patch.Category = &category
	}
	updated := patch.Apply(*current)
	updated.LastUpdatedAt = s.now().UTC()
	if err := validateStruct(updated); err != nil {
		return nil, err
	}

	if err := s.budgetRepo.UpdateBudget(ctx, updated); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrDuplicateCategory, updated.Category)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to update budget", slog.String("budget_id", budgetID))
		}
		return nil, err
	}

	s.notify(ctx, ownerID, domain.OpUpdated, budgetID, domain.TopicBudgets)
	return &updated, nil
}

func (s *budgetService) DeleteBudget(ctx context.Context, ownerID, budgetID string) error {
	deleted, err := s.budgetRepo.DeleteBudget(ctx, ownerID, budgetID)
	if err != nil {
		s.LogError(ctx, err, "Failed to delete budget", slog.String("budget_id", budgetID))
		return err
	}
	if deleted {
		s.notify(ctx, ownerID, domain.OpDeleted, budgetID, domain.TopicBudgets, domain.TopicAggregate)
	}
	return nil
}

func (s *budgetService) PinBudget(ctx context.Context, ownerID, budgetID string) error {
	if strings.TrimSpace(budgetID) == "" {
		return apperrors.NewValidationError("budgetId is required")
	}
	if err := s.aggregateRepo.SetPinnedBudget(ctx, ownerID, &budgetID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to pin budget", slog.String("budget_id", budgetID))
		}
		return err
	}
	s.notify(ctx, ownerID, domain.OpUpdated, budgetID, domain.TopicBudgets, domain.TopicAggregate)
	return nil
}

func (s *budgetService) UnpinBudget(ctx context.Context, ownerID string) error {
	if err := s.aggregateRepo.SetPinnedBudget(ctx, ownerID, nil); err != nil {
		s.LogError(ctx, err, "Failed to unpin budget", slog.String("owner_id", ownerID))
		return err
	}
	s.notify(ctx, ownerID, domain.OpUpdated, "", domain.TopicBudgets, domain.TopicAggregate)
	return nil
}

func (s *budgetService) Consumption(ctx context.Context, ownerID, category string, start, end domain.Date, normalizeTo string) (*domain.BudgetConsumption, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	budget, err := s.budgetRepo.FindBudgetByCategory(ctx, ownerID, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	totals, err := s.reportingRepo.SumExpensesByCategory(ctx, ownerID, start, end.AddDays(-1))
	if err != nil {
		s.LogError(ctx, err, "Failed to sum expenses for budget", slog.String("budget_id", budget.ID))
		return nil, err
	}
	pinned, err := s.pinnedBudgetID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c := consumptionOf(*budget, totals, strings.ToUpper(normalizeTo), s.rates.CurrentRates())
	c.PeriodStart, c.PeriodEnd = start, end
	c.Pinned = pinned == budget.ID
	return &c, nil
}

func (s *budgetService) ListBudgetConsumption(ctx context.Context, ownerID string, start, end domain.Date, normalizeTo string) ([]domain.BudgetConsumption, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	budgets, err := s.budgetRepo.ListBudgets(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list budgets", slog.String("owner_id", ownerID))
		return nil, err
	}
	result := make([]domain.BudgetConsumption, 0, len(budgets))
	if len(budgets) == 0 {
		return result, nil
	}

	agg, err := s.aggregateRepo.FindAggregate(ctx, ownerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	pinned := ""
	target := strings.ToUpper(normalizeTo)
	if agg != nil && err == nil {
		if agg.PinnedBudgetID != nil {
			pinned = *agg.PinnedBudgetID
		}
		if target == "" {
			target = agg.DefaultCurrency
		}
	}
	if target == "" {
		target = s.defaultCurrency
	}

	totals, err := s.reportingRepo.SumExpensesByCategory(ctx, ownerID, start, end.AddDays(-1))
	if err != nil {
		s.LogError(ctx, err, "Failed to sum expenses for budgets", slog.String("owner_id", ownerID))
		return nil, err
	}
	table := s.rates.CurrentRates()
	for _, b := range budgets {
		c := consumptionOf(b, totals, target, table)
		c.PeriodStart, c.PeriodEnd = start, end
		c.Pinned = pinned == b.ID
		result = append(result, c)
	}
	// Pinned budget first, the rest keep the store's category order.
	for i := range result {
		if result[i].Pinned && i > 0 {
			pinnedEntry := result[i]
			copy(result[1:i+1], result[:i])
			result[0] = pinnedEntry
			break
		}
	}
	return result, nil
}

func (s *budgetService) pinnedBudgetID(ctx context.Context, ownerID string) (string, error) {
	agg, err := s.aggregateRepo.FindAggregate(ctx, ownerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if agg.PinnedBudgetID == nil {
		return "", nil
	}
	return *agg.PinnedBudgetID, nil
}

func (s *budgetService) notify(ctx context.Context, ownerID string, op domain.ChangeOp, budgetID string, topics ...domain.Topic) {
	s.notifier.Notify(ctx, domain.ChangeEvent{
		OwnerID:    ownerID,
		Topics:     topics,
		Op:         op,
		EntityID:   budgetID,
		OccurredAt: s.now().UTC(),
	})
}

func checkPeriod(start, end domain.Date) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.NewValidationError("period start and end are required")
	}
	if !end.After(start) {
		return apperrors.NewValidationError("period end must be after period start")
	}
	return nil
}

// consumptionOf sums the expense totals that count against b. With a target currency every
// total is converted first; otherwise the raw per-currency amounts are added up.
func consumptionOf(b domain.Budget, totals []domain.CategoryTotal, target string, table domain.RateTable) domain.BudgetConsumption {
	byCurrency := make(map[string]decimal.Decimal)
	for _, t := range totals {
		if !b.MatchesCategory(t.Category) {
			continue
		}
		byCurrency[t.Currency] = byCurrency[t.Currency].Add(t.Total)
	}

	var (
		spent    decimal.Decimal
		currency string
		warnings []string
	)
	if target != "" {
		n := normalize(byCurrency, target, table)
		spent, currency, warnings = n.Total, target, n.Warnings
	} else {
		for code, amount := range byCurrency {
			spent = spent.Add(amount)
			currency = code
		}
		if len(byCurrency) > 1 {
			currency = ""
		}
		warnings = mixedCurrencyWarning(byCurrency)
	}

	c := domain.NewBudgetConsumption(b.Category, spent, b.Amount)
	c.BudgetID = b.ID
	c.Currency = currency
	c.Warnings = warnings
	return c
}

// CurrentMonthPeriod returns the half-open period [first of month, first of next month) containing now in loc.
func CurrentMonthPeriod(now time.Time, loc *time.Location) (domain.Date, domain.Date) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := domain.NewDate(local.Year(), local.Month(), 1)
	return start, domain.NewDate(local.Year(), local.Month()+1, 1)
}
