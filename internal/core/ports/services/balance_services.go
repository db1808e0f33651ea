package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// BalanceSvc exposes the read side of the per-user aggregate and the owner's display currency.
type BalanceSvc interface {
	// GetBalance returns per-currency balances and their total in displayCurrency.
	// An empty displayCurrency means the owner's default currency.
	GetBalance(ctx context.Context, ownerID, displayCurrency string) (*domain.Balance, error)

	// GetAggregate returns the stored aggregate, or an empty one for a user with no activity.
	GetAggregate(ctx context.Context, ownerID string) (*domain.UserAggregate, error)

	GetDefaultCurrency(ctx context.Context, ownerID string) (string, error)
	SetDefaultCurrency(ctx context.Context, ownerID, currency string) error
}
