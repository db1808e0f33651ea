package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CurrencyConverterSvc converts amounts using the current rate snapshot.
type CurrencyConverterSvc interface {
	// Convert fails with apperrors.ErrRateUnavailable when a rate is missing.
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)

	// CurrentRates returns the snapshot in use. It never fails; it falls back to the default table.
	CurrentRates() domain.RateTable
}

// RateRefresherSvc keeps the rate snapshot up to date.
type RateRefresherSvc interface {
	Refresh(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CurrencySvcFacade combines all currency-related service interfaces.
type CurrencySvcFacade interface {
	CurrencyConverterSvc
	RateRefresherSvc
}

// RateSource is the external collaborator that supplies exchange rates.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (domain.RateTable, error)
}
