package services

import (
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// hub receives every change event; rateSource may be nil, in which case the default rate table is used.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, hub *Hub, rateSource portssvc.RateSource) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Currency first: balances, budgets and reports all convert through it.
	currencyOpts := []CurrencyServiceOption{
		WithRateBase(cfg.RatesBaseCurrency),
		WithRefreshInterval(cfg.RatesRefreshInterval),
		WithRatesTTL(cfg.RatesCacheTTL),
	}
	if rateSource != nil {
		currencyOpts = append(currencyOpts, WithRateSource(rateSource))
	}
	container.Currency = NewCurrencyService(currencyOpts...)

	container.Record = NewRecordService(
		repos.RecordRepo,
		repos.AggregateRepo,
		WithRecordNotifier(hub),
		WithMutationAttempts(cfg.MutationMaxAttempts),
		WithRecordDefaultCurrency(cfg.DefaultCurrency),
	)

	container.Balance = NewBalanceService(
		repos.AggregateRepo,
		container.Currency,
		WithBalanceNotifier(hub),
		WithBalanceDefaultCurrency(cfg.DefaultCurrency),
	)

	container.Budget = NewBudgetService(
		repos.BudgetRepo,
		repos.AggregateRepo,
		repos.ReportingRepo,
		container.Currency,
		WithBudgetNotifier(hub),
		WithBudgetDefaultCurrency(cfg.DefaultCurrency),
	)

	container.Reporting = NewReportingService(
		repos.ReportingRepo,
		container.Currency,
		WithReportingLocation(cfg.Location),
		WithDashboardSources(container.Balance, container.Budget),
	)

	container.Subscriptions = NewSubscriptionService(
		hub,
		container.Reporting,
		container.Record,
		container.Balance,
		container.Budget,
		WithSubscriptionLocation(cfg.Location),
	)

	return container
}
