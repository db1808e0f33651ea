package models

import (
	"github.com/shopspring/decimal"
)

// Budget is the persisted shape of a budget.
type Budget struct {
	BudgetID string          `db:"budget_id"`
	OwnerID  string          `db:"owner_id"`
	Category string          `db:"category"`
	Amount   decimal.Decimal `db:"amount"`
	AuditFields
}
