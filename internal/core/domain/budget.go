package domain

import (
	"github.com/shopspring/decimal"
)

// AllCategories is the budget category that tracks every expense category at once.
const AllCategories = "All"

// Budget is a spending limit for one category of one owner.
type Budget struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"ownerId" validate:"required"`
	Category string          `json:"category" validate:"required,min=1,max=50"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" validate:"required,min_amount"`
	AuditFields
}

// BudgetPatch is a partial budget update.
type BudgetPatch struct {
	Category *string
	Amount   *decimal.Decimal
}

// Apply returns a copy of b with the patch applied.
func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	return b
}

// MatchesCategory reports whether an expense in category counts against this budget.
func (b Budget) MatchesCategory(category string) bool {
	return b.Category == AllCategories || b.Category == category
}

// BudgetConsumption is the spent/limit state of a budget over a period.
type BudgetConsumption struct {
	BudgetID string          `json:"budgetId,omitempty"`
	Category string          `json:"category"`
	Currency string          `json:"currency,omitempty"`
	Spent    decimal.Decimal `json:"spent" swaggertype:"string"`
	Limit    decimal.Decimal `json:"limit" swaggertype:"string"`
	// Percent is spent/limit*100 without clamping. Threshold logic must use this value.
	Percent decimal.Decimal `json:"percent" swaggertype:"string"`
	// DisplayPercent is Percent clamped to [0, 100].
	DisplayPercent decimal.Decimal `json:"displayPercent" swaggertype:"string"`
	OverBudget     bool            `json:"overBudget"`
	Pinned         bool            `json:"pinned"`
	PeriodStart    Date            `json:"periodStart" swaggertype:"string" format:"date"`
	PeriodEnd      Date            `json:"periodEnd" swaggertype:"string" format:"date"`
	Warnings       []string        `json:"warnings,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// NewBudgetConsumption derives the percentages from spent and limit.
func NewBudgetConsumption(category string, spent, limit decimal.Decimal) BudgetConsumption {
	c := BudgetConsumption{
		Category: category,
		Spent:    spent,
		Limit:    limit,
		Percent:  decimal.Zero,
	}
	if limit.IsPositive() {
		c.Percent = spent.Div(limit).Mul(hundred)
	}
	c.DisplayPercent = decimal.Max(decimal.Zero, decimal.Min(hundred, c.Percent))
	c.OverBudget = c.Percent.GreaterThan(hundred)
	return c
}
