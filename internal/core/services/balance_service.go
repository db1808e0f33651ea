package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

type balanceService struct {
	BaseService
	aggregateRepo   portsrepo.AggregateRepositoryFacade
	rates           portssvc.CurrencyConverterSvc
	notifier        portssvc.ChangeNotifier
	defaultCurrency string
}

// BalanceServiceOption is a functional option for configuring the balance service
type BalanceServiceOption func(*balanceService)

// WithBalanceNotifier sets where default currency changes are announced.
func WithBalanceNotifier(n portssvc.ChangeNotifier) BalanceServiceOption {
	return func(s *balanceService) {
		s.notifier = n
	}
}

// WithBalanceDefaultCurrency sets the currency reported for users who never picked one.
func WithBalanceDefaultCurrency(code string) BalanceServiceOption {
	return func(s *balanceService) {
		if code != "" {
			s.defaultCurrency = code
		}
	}
}

// NewBalanceService creates the read side of the balance maintainer.
func NewBalanceService(aggregateRepo portsrepo.AggregateRepositoryFacade, rates portssvc.CurrencyConverterSvc, options ...BalanceServiceOption) portssvc.BalanceSvc {
	svc := &balanceService{
		aggregateRepo:   aggregateRepo,
		rates:           rates,
		notifier:        noopNotifier{},
		defaultCurrency: domain.DefaultCurrency,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.BalanceSvc = (*balanceService)(nil)

func (s *balanceService) GetAggregate(ctx context.Context, ownerID string) (*domain.UserAggregate, error) {
	agg, err := s.aggregateRepo.FindAggregate(ctx, ownerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.UserAggregate{
			OwnerID:         ownerID,
			Balances:        map[string]decimal.Decimal{},
			DefaultCurrency: s.defaultCurrency,
		}, nil
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to load user aggregate", slog.String("owner_id", ownerID))
		return nil, err
	}
	if agg.Balances == nil {
		agg.Balances = map[string]decimal.Decimal{}
	}
	if agg.DefaultCurrency == "" {
		agg.DefaultCurrency = s.defaultCurrency
	}
	return agg, nil
}

func (s *balanceService) GetBalance(ctx context.Context, ownerID, displayCurrency string) (*domain.Balance, error) {
	agg, err := s.GetAggregate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	target := strings.ToUpper(strings.TrimSpace(displayCurrency))
	if target == "" {
		target = agg.DefaultCurrency
	}
	return buildBalance(agg.Balances, target, s.rates.CurrentRates()), nil
}

func buildBalance(balances map[string]decimal.Decimal, target string, table domain.RateTable) *domain.Balance {
	n := normalize(balances, target, table)
	byCurrency := make(map[string]decimal.Decimal, len(balances))
	for code, amount := range balances {
		byCurrency[code] = amount
	}
	return &domain.Balance{
		Currency:    target,
		Total:       n.Total,
		ByCurrency:  byCurrency,
		Unconverted: n.Unconverted,
		Warnings:    n.Warnings,
	}
}

func (s *balanceService) GetDefaultCurrency(ctx context.Context, ownerID string) (string, error) {
	agg, err := s.GetAggregate(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return agg.DefaultCurrency, nil
}

func (s *balanceService) SetDefaultCurrency(ctx context.Context, ownerID, currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !IsCurrencyCode(currency) {
		return apperrors.NewValidationError("currency must be a three-letter currency code")
	}
	if err := s.aggregateRepo.SetDefaultCurrency(ctx, ownerID, currency); err != nil {
		s.LogError(ctx, err, "Failed to set default currency",
			slog.String("owner_id", ownerID),
			slog.String("currency", currency))
		return err
	}
	s.notifier.Notify(ctx, domain.ChangeEvent{
		OwnerID:    ownerID,
		Topics:     []domain.Topic{domain.TopicAggregate},
		Op:         domain.OpUpdated,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}
