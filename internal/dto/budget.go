package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateBudgetRequest defines the data needed to create a budget.
type CreateBudgetRequest struct {
	Category string          `json:"category" binding:"required,min=1,max=50"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"12.50" binding:"required,min_amount"`
}

// UpdateBudgetRequest defines a partial budget update.
type UpdateBudgetRequest struct {
	Category *string          `json:"category,omitempty" binding:"omitempty,min=1,max=50"`
	Amount   *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"12.50" binding:"omitempty,min_amount"`
}

// PinBudgetRequest selects the budget to pin.
type PinBudgetRequest struct {
	BudgetID string `json:"budgetId" binding:"required"`
}

// BudgetResponse defines the data returned for a budget.
type BudgetResponse struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"12.50"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ToBudgetResponse converts a domain.Budget to a BudgetResponse.
func ToBudgetResponse(b *domain.Budget) BudgetResponse {
	return BudgetResponse{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.LastUpdatedAt,
	}
}
