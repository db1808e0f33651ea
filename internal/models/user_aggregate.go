package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// UserAggregate is the per-user row (default currency and pin).
type UserAggregate struct {
	OwnerID         string         `db:"owner_id"`
	DefaultCurrency string         `db:"default_currency"`
	PinnedBudgetID  sql.NullString `db:"pinned_budget_id"`
	AuditFields
}

// UserBalance is one per-currency running balance of a user.
type UserBalance struct {
	OwnerID  string          `db:"owner_id"`
	Currency string          `db:"currency_code"`
	Balance  decimal.Decimal `db:"balance"`
}
