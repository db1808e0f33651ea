package accounting

import (
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount applies the direction of a record to its amount: income is positive, expense negative.
// This is used in both services and repositories to ensure consistent balance logic.
func SignedAmount(r domain.Record) (decimal.Decimal, error) {
	switch r.Kind {
	case domain.Income:
		return r.Amount, nil
	case domain.Expense:
		return r.Amount.Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown record kind '%s' encountered for record ID %s", r.Kind, r.ID)
	}
}

// CreateChanges returns the balance changes caused by creating r.
func CreateChanges(r domain.Record) (domain.BalanceChanges, error) {
	signed, err := SignedAmount(r)
	if err != nil {
		return nil, err
	}
	changes := domain.BalanceChanges{}
	changes.Add(r.Currency, signed)
	return changes, nil
}

// DeleteChanges returns the balance changes that reverse r.
func DeleteChanges(r domain.Record) (domain.BalanceChanges, error) {
	signed, err := SignedAmount(r)
	if err != nil {
		return nil, err
	}
	changes := domain.BalanceChanges{}
	changes.Add(r.Currency, signed.Neg())
	return changes, nil
}

// EditChanges returns signed(new) - signed(old), split per currency.
// When the currency changes, the old currency loses the old amount and the new one gains the new amount.
func EditChanges(old, updated domain.Record) (domain.BalanceChanges, error) {
	oldSigned, err := SignedAmount(old)
	if err != nil {
		return nil, err
	}
	newSigned, err := SignedAmount(updated)
	if err != nil {
		return nil, err
	}
	changes := domain.BalanceChanges{}
	changes.Add(old.Currency, oldSigned.Neg())
	changes.Add(updated.Currency, newSigned)
	return changes, nil
}

// SumSigned totals the signed amounts of records per currency.
func SumSigned(records []domain.Record) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		signed, err := SignedAmount(r)
		if err != nil {
			return nil, err
		}
		sums[r.Currency] = sums[r.Currency].Add(signed)
	}
	return sums, nil
}
