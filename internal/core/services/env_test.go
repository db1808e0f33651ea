package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/memory"
	"github.com/SscSPs/ledger_engine/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerEnv wires every service on top of the in-memory store, the way the server does.
type ledgerEnv struct {
	store    *memory.Store
	repos    portsrepo.RepositoryProvider
	hub      *services.Hub
	rates    *services.CurrencyService
	records  portssvc.RecordSvcFacade
	balances portssvc.BalanceSvc
	budgets  portssvc.BudgetSvcFacade
	reports  portssvc.ReportingService
	subs     portssvc.SubscriptionService
}

func newLedgerEnv(t *testing.T, now time.Time, recordOpts ...services.RecordServiceOption) *ledgerEnv {
	t.Helper()
	store := memory.NewStore()
	repos := memory.NewRepositoryProvider(store)
	hub := services.NewHub(services.WithMaxBackoff(50 * time.Millisecond))
	t.Cleanup(hub.Close)

	clock := func() time.Time { return now }
	rates := services.NewCurrencyService()
	records := services.NewRecordService(repos.RecordRepo, repos.AggregateRepo,
		append([]services.RecordServiceOption{services.WithRecordNotifier(hub), services.WithRecordClock(clock)}, recordOpts...)...)
	balances := services.NewBalanceService(repos.AggregateRepo, rates, services.WithBalanceNotifier(hub))
	budgets := services.NewBudgetService(repos.BudgetRepo, repos.AggregateRepo, repos.ReportingRepo, rates,
		services.WithBudgetNotifier(hub), services.WithBudgetClock(clock))
	reports := services.NewReportingService(repos.ReportingRepo, rates,
		services.WithReportingLocation(time.UTC),
		services.WithReportingClock(clock),
		services.WithDashboardSources(balances, budgets))
	subs := services.NewSubscriptionService(hub, reports, records, balances, budgets,
		services.WithSubscriptionLocation(time.UTC),
		services.WithSubscriptionClock(clock))

	return &ledgerEnv{
		store:    store,
		repos:    repos,
		hub:      hub,
		rates:    rates,
		records:  records,
		balances: balances,
		budgets:  budgets,
		reports:  reports,
		subs:     subs,
	}
}

func recordReq(kind domain.RecordKind, amount, currency, occurredOn, category string) dto.CreateRecordRequest {
	return dto.CreateRecordRequest{
		Name:       category + " " + string(kind),
		Amount:     decimal.RequireFromString(amount),
		Currency:   currency,
		Category:   category,
		Kind:       kind,
		OccurredOn: occurredOn,
	}
}

func (e *ledgerEnv) mustCreate(t *testing.T, ownerID string, req dto.CreateRecordRequest) *domain.Record {
	t.Helper()
	record, err := e.records.CreateRecord(context.Background(), ownerID, req)
	require.NoError(t, err)
	return record
}

// assertBalancesMatchRecords checks that every per-currency balance equals the signed sum of the
// records currently stored for that currency.
func (e *ledgerEnv) assertBalancesMatchRecords(t *testing.T, ownerID string) {
	t.Helper()
	ctx := context.Background()
	records, _, err := e.repos.RecordRepo.ListRecords(ctx, ownerID, domain.RecordFilter{}, 1_000_000, nil)
	require.NoError(t, err)
	want, err := accounting.SumSigned(records)
	require.NoError(t, err)

	agg, err := e.balances.GetAggregate(ctx, ownerID)
	require.NoError(t, err)

	codes := map[string]struct{}{}
	for code := range want {
		codes[code] = struct{}{}
	}
	for code := range agg.Balances {
		codes[code] = struct{}{}
	}
	for code := range codes {
		assertDecimal(t, want[code].String(), agg.Balances[code], "balance of "+code)
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func ptr[T any](v T) *T { return &v }
