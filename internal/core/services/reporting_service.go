package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// reportingService implements the ReportingService interface
type reportingService struct {
	BaseService
	reportingRepo portsrepo.ReportingRepository
	rates         portssvc.CurrencyConverterSvc
	balances      portssvc.BalanceSvc
	budgets       portssvc.BudgetReaderSvc
	now           func() time.Time
	loc           *time.Location
}

// ReportingServiceOption is a functional option for configuring the reporting service
type ReportingServiceOption func(*reportingService)

// WithReportingLocation sets the time zone that defines calendar days, months and years.
func WithReportingLocation(loc *time.Location) ReportingServiceOption {
	return func(s *reportingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithReportingClock overrides time.Now, for tests.
func WithReportingClock(now func() time.Time) ReportingServiceOption {
	return func(s *reportingService) {
		s.now = now
	}
}

// WithDashboardSources adds the balance and budget sections of the dashboard.
func WithDashboardSources(balances portssvc.BalanceSvc, budgets portssvc.BudgetReaderSvc) ReportingServiceOption {
	return func(s *reportingService) {
		s.balances = balances
		s.budgets = budgets
	}
}

// NewReportingService creates a new reporting service with the provided options
func NewReportingService(repo portsrepo.ReportingRepository, rates portssvc.CurrencyConverterSvc, options ...ReportingServiceOption) portssvc.ReportingService {
	svc := &reportingService{
		reportingRepo: repo,
		rates:         rates,
		now:           time.Now,
		loc:           time.Local,
	}

	// Apply all options
	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure reportingService implements the ReportingService interface
var _ portssvc.ReportingService = (*reportingService)(nil)

func (s *reportingService) today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

// FetchMonthlyTotals sums income and expense for the calendar month, first to last day inclusive.
func (s *reportingService) FetchMonthlyTotals(ctx context.Context, ownerID string, q domain.MonthlyTotalsQuery) (*domain.MonthlyTotals, error) {
	if q.Year == 0 || q.Month == 0 {
		today := s.today()
		q.Year, q.Month = today.Year(), today.Month()
	}
	if q.Month < time.January || q.Month > time.December {
		return nil, apperrors.NewValidationError("month must be between 1 and 12")
	}
	from, to := domain.MonthRange(q.Year, q.Month)

	rows, err := s.reportingRepo.SumByKind(ctx, ownerID, from, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum monthly totals",
			slog.String("owner_id", ownerID),
			slog.String("month", from.String()))
		return nil, err
	}

	byCurrency := make(map[string]domain.IncomeExpense)
	for _, row := range rows {
		pair := byCurrency[row.Currency]
		switch row.Kind {
		case domain.Income:
			pair.Income = pair.Income.Add(row.Total)
		case domain.Expense:
			pair.Expense = pair.Expense.Add(row.Total)
		}
		byCurrency[row.Currency] = pair
	}

	result := &domain.MonthlyTotals{
		Year:       q.Year,
		Month:      int(q.Month),
		From:       from,
		To:         to,
		ByCurrency: byCurrency,
	}

	target := strings.ToUpper(q.NormalizeTo)
	if target == "" {
		for code, pair := range byCurrency {
			result.Totals.Income = result.Totals.Income.Add(pair.Income)
			result.Totals.Expense = result.Totals.Expense.Add(pair.Expense)
			if len(byCurrency) == 1 {
				result.Currency = code
			}
		}
		result.Warnings = mixedCurrencyWarning(currencySet(byCurrency))
		return result, nil
	}

	result.Currency = target
	table := s.rates.CurrentRates()
	result.Warnings = staleRatesWarning(table)
	codes := sortedKeys(byCurrency)
	for _, code := range codes {
		pair := byCurrency[code]
		income, errIncome := Convert(pair.Income, code, target, table)
		expense, errExpense := Convert(pair.Expense, code, target, table)
		if errIncome != nil || errExpense != nil {
			if result.Unconverted == nil {
				result.Unconverted = make(map[string]domain.IncomeExpense)
			}
			result.Unconverted[code] = pair
			result.Warnings = append(result.Warnings, unconvertedMsg(code, target))
			continue
		}
		result.Totals.Income = result.Totals.Income.Add(income)
		result.Totals.Expense = result.Totals.Expense.Add(expense)
	}
	return result, nil
}

// FetchCategoryBreakdown sums expenses per category over [From, To]. When there are more categories than
// the cap, the cap-1 largest are kept and the rest are folded into one "Other" entry.
func (s *reportingService) FetchCategoryBreakdown(ctx context.Context, ownerID string, q domain.CategoryBreakdownQuery) (*domain.CategoryBreakdown, error) {
	if q.From.IsZero() || q.To.IsZero() {
		today := s.today()
		q.From, q.To = domain.MonthRange(today.Year(), today.Month())
	}
	if q.To.Before(q.From) {
		return nil, apperrors.NewValidationError("to must not be before from")
	}
	if q.Cap <= 0 {
		q.Cap = domain.DefaultCategoryCap
	}

	rows, err := s.reportingRepo.SumExpensesByCategory(ctx, ownerID, q.From, q.To)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum expenses by category", slog.String("owner_id", ownerID))
		return nil, err
	}

	target := strings.ToUpper(q.NormalizeTo)
	warns := newWarnings()
	var table domain.RateTable
	if target != "" {
		table = s.rates.CurrentRates()
		warns.addAll(staleRatesWarning(table))
	}
	currencies := make(map[string]struct{})
	amounts := make(map[string]decimal.Decimal)
	unconverted := make(map[[2]string]decimal.Decimal)
	for _, row := range rows {
		category := strings.TrimSpace(row.Category)
		if category == "" {
			category = domain.OtherCategory
		}
		amount := row.Total
		if target != "" {
			converted, err := Convert(row.Total, row.Currency, target, table)
			if err != nil {
				key := [2]string{category, row.Currency}
				unconverted[key] = unconverted[key].Add(row.Total)
				warns.add(unconvertedMsg(row.Currency, target))
				continue
			}
			amount = converted
		}
		currencies[row.Currency] = struct{}{}
		amounts[category] = amounts[category].Add(amount)
	}

	result := &domain.CategoryBreakdown{
		From:        q.From,
		To:          q.To,
		Currency:    target,
		Categories:  capCategories(amounts, q.Cap),
		Unconverted: unconvertedAmounts(unconverted),
	}
	if target == "" {
		if len(currencies) == 1 {
			for code := range currencies {
				result.Currency = code
			}
		} else if len(currencies) > 1 {
			warns.add(mixedCurrencyMsg)
		}
	}
	result.Warnings = warns.list()
	return result, nil
}

// capCategories sorts categories by amount desc and folds everything past cap-1 into "Other".
func capCategories(amounts map[string]decimal.Decimal, limit int) []domain.CategoryAmount {
	entries := make([]domain.CategoryAmount, 0, len(amounts))
	for category, amount := range amounts {
		if !amount.IsPositive() {
			continue
		}
		entries = append(entries, domain.CategoryAmount{Category: category, Amount: amount})
	}
	sortCategories(entries)
	if len(entries) <= limit {
		return entries
	}

	kept := make([]domain.CategoryAmount, 0, limit)
	other := domain.CategoryAmount{Category: domain.OtherCategory, Amount: decimal.Zero, Synthetic: true}
	for _, e := range entries {
		if len(kept) < limit-1 && e.Category != domain.OtherCategory {
			kept = append(kept, e)
			continue
		}
		other.Amount = other.Amount.Add(e.Amount)
	}
	kept = append(kept, other)
	sortCategories(kept)
	return kept
}

func sortCategories(entries []domain.CategoryAmount) {
	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].Amount.Cmp(entries[j].Amount); c != 0 {
			return c > 0
		}
		return entries[i].Category < entries[j].Category
	})
}

// FetchDailyBuckets returns one bucket per local calendar day for the last Days days, today included.
func (s *reportingService) FetchDailyBuckets(ctx context.Context, ownerID string, q domain.DailyBucketsQuery) (*domain.DailyBuckets, error) {
	if q.Days <= 0 {
		q.Days = domain.DefaultDailyDays
	}
	today := s.today()
	from := today.AddDays(-(q.Days - 1))

	rows, err := s.reportingRepo.SumByDay(ctx, ownerID, from, today)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum daily totals", slog.String("owner_id", ownerID))
		return nil, err
	}

	buckets := make([]domain.DailyBucket, q.Days)
	index := make(map[string]int, q.Days)
	for i := range buckets {
		d := from.AddDays(i)
		buckets[i] = domain.DailyBucket{Date: d, Income: decimal.Zero, Expense: decimal.Zero}
		index[d.String()] = i
	}

	target := strings.ToUpper(q.NormalizeTo)
	warns := newWarnings()
	var table domain.RateTable
	if target != "" {
		table = s.rates.CurrentRates()
		warns.addAll(staleRatesWarning(table))
	}
	currencies := make(map[string]struct{})
	for _, row := range rows {
		i, ok := index[row.Date.String()]
		if !ok {
			continue
		}
		amount := row.Total
		if target != "" {
			converted, err := Convert(row.Total, row.Currency, target, table)
			if err != nil {
				buckets[i].AddUnconverted(row)
				warns.add(unconvertedMsg(row.Currency, target))
				continue
			}
			amount = converted
		}
		currencies[row.Currency] = struct{}{}
		switch row.Kind {
		case domain.Income:
			buckets[i].Income = buckets[i].Income.Add(amount)
		case domain.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(amount)
		}
	}

	result := &domain.DailyBuckets{Days: q.Days, Currency: target, Buckets: buckets}
	if target == "" {
		if len(currencies) == 1 {
			for code := range currencies {
				result.Currency = code
			}
		} else if len(currencies) > 1 {
			warns.add(mixedCurrencyMsg)
		}
	}
	result.Warnings = warns.list()
	return result, nil
}

// FetchTopRecords returns the K largest records in the window, current calendar year by default.
func (s *reportingService) FetchTopRecords(ctx context.Context, ownerID string, q domain.TopRecordsQuery) (*domain.RecordList, error) {
	if q.K <= 0 {
		q.K = domain.DefaultTopK
	}
	today := s.today()
	from := domain.NewDate(today.Year(), time.January, 1)
	to := domain.NewDate(today.Year(), time.December, 31)
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	if to.Before(from) {
		return nil, apperrors.NewValidationError("to must not be before from")
	}

	records, err := s.reportingRepo.TopRecordsByAmount(ctx, ownerID, from, to, q.K)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch top records", slog.String("owner_id", ownerID))
		return nil, err
	}
	return &domain.RecordList{Records: nonNilRecords(records)}, nil
}

// FetchRecentRecords returns the K newest records without a date window.
func (s *reportingService) FetchRecentRecords(ctx context.Context, ownerID string, q domain.RecentRecordsQuery) (*domain.RecordList, error) {
	if q.K <= 0 {
		q.K = domain.DefaultRecentK
	}
	records, err := s.reportingRepo.RecentRecords(ctx, ownerID, q.K)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch recent records", slog.String("owner_id", ownerID))
		return nil, err
	}
	return &domain.RecordList{Records: nonNilRecords(records)}, nil
}

// FetchDashboard runs every dashboard query concurrently, normalized to the owner's default currency.
func (s *reportingService) FetchDashboard(ctx context.Context, ownerID string) (*domain.Dashboard, error) {
	currency := domain.DefaultCurrency
	if s.balances != nil {
		c, err := s.balances.GetDefaultCurrency(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		currency = c
	}
	today := s.today()
	monthStart, monthEnd := domain.MonthRange(today.Year(), today.Month())

	var dash domain.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.FetchMonthlyTotals(gctx, ownerID, domain.MonthlyTotalsQuery{Year: today.Year(), Month: today.Month(), NormalizeTo: currency})
		if err == nil {
			dash.Monthly = *r
		}
		return err
	})
	g.Go(func() error {
		r, err := s.FetchCategoryBreakdown(gctx, ownerID, domain.CategoryBreakdownQuery{From: monthStart, To: monthEnd, NormalizeTo: currency})
		if err == nil {
			dash.Breakdown = *r
		}
		return err
	})
	g.Go(func() error {
		r, err := s.FetchDailyBuckets(gctx, ownerID, domain.DailyBucketsQuery{NormalizeTo: currency})
		if err == nil {
			dash.Daily = *r
		}
		return err
	})
	g.Go(func() error {
		r, err := s.FetchTopRecords(gctx, ownerID, domain.TopRecordsQuery{})
		if err == nil {
			dash.Top = *r
		}
		return err
	})
	g.Go(func() error {
		r, err := s.FetchRecentRecords(gctx, ownerID, domain.RecentRecordsQuery{})
		if err == nil {
			dash.Recent = *r
		}
		return err
	})
	if s.balances != nil {
		g.Go(func() error {
			r, err := s.balances.GetBalance(gctx, ownerID, currency)
			if err == nil {
				dash.Balance = *r
			}
			return err
		})
	}
	if s.budgets != nil {
		g.Go(func() error {
			start, end := CurrentMonthPeriod(s.now(), s.loc)
			r, err := s.budgets.ListBudgetConsumption(gctx, ownerID, start, end, currency)
			if err == nil {
				dash.Budgets = r
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.LogError(ctx, err, "Failed to build dashboard", slog.String("owner_id", ownerID))
		return nil, err
	}
	if dash.Budgets == nil {
		dash.Budgets = []domain.BudgetConsumption{}
	}
	return &dash, nil
}

func unconvertedMsg(from, to string) string {
	return fmt.Sprintf("no exchange rate for %s to %s; amount left unconverted", from, to)
}

// unconvertedAmounts flattens (category, currency) totals, ordered by category then currency.
func unconvertedAmounts(totals map[[2]string]decimal.Decimal) []domain.UnconvertedAmount {
	if len(totals) == 0 {
		return nil
	}
	out := make([]domain.UnconvertedAmount, 0, len(totals))
	for key, amount := range totals {
		out = append(out, domain.UnconvertedAmount{Category: key[0], Currency: key[1], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

func nonNilRecords(records []domain.Record) []domain.Record {
	if records == nil {
		return []domain.Record{}
	}
	return records
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func currencySet[V any](m map[string]V) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k := range m {
		out[k] = decimal.Zero
	}
	return out
}

// warningSet collects messages once each, in insertion order.
type warningSet struct {
	seen map[string]struct{}
	msgs []string
}

func newWarnings() *warningSet {
	return &warningSet{seen: make(map[string]struct{})}
}

func (w *warningSet) add(msg string) {
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.msgs = append(w.msgs, msg)
}

func (w *warningSet) addAll(msgs []string) {
	for _, msg := range msgs {
		w.add(msg)
	}
}

func (w *warningSet) list() []string {
	return w.msgs
}
