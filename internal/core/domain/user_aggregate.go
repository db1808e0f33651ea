package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a user never picked one.
const DefaultCurrency = "INR"

// BalanceChanges maps a currency code to the signed delta applied to that currency's balance.
type BalanceChanges map[string]decimal.Decimal

// Add accumulates delta for currency, dropping entries that cancel out.
func (c BalanceChanges) Add(currency string, delta decimal.Decimal) {
	sum := c[currency].Add(delta)
	if sum.IsZero() {
		delete(c, currency)
		return
	}
	c[currency] = sum
}

// Currencies returns the affected currency codes in a stable order.
// Writers lock balance rows in this order.
func (c BalanceChanges) Currencies() []string {
	codes := make([]string, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// UserAggregate is the per-user derived state.
// Balances holds one running balance per currency: the balance of a currency always equals the
// sum of the signed amounts of the owner's records in that currency.
type UserAggregate struct {
	OwnerID         string                     `json:"ownerId"`
	Balances        map[string]decimal.Decimal `json:"balances" swaggertype:"object,string"`
	DefaultCurrency string                     `json:"defaultCurrency"`
	PinnedBudgetID  *string                    `json:"pinnedBudgetId,omitempty"`
	AuditFields
}

// DisplayCurrency returns the default currency or the fixed fallback.
func (a UserAggregate) DisplayCurrency() string {
	if a.DefaultCurrency == "" {
		return DefaultCurrency
	}
	return a.DefaultCurrency
}

// Balance is a user's balance as shown to them.
type Balance struct {
	Currency    string                     `json:"currency"`
	Total       decimal.Decimal            `json:"total" swaggertype:"string"`
	ByCurrency  map[string]decimal.Decimal `json:"byCurrency" swaggertype:"object,string"`
	Unconverted map[string]decimal.Decimal `json:"unconverted,omitempty" swaggertype:"object,string"`
	Warnings    []string                   `json:"warnings,omitempty"`
}
