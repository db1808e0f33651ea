package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateRecordRequest defines the data needed to create a record.
type CreateRecordRequest struct {
	Name   string          `json:"name" binding:"required,min=1,max=100"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"12.50" binding:"required,min_amount"`
	// Currency defaults to the owner's default currency when empty.
	Currency   string            `json:"currency" binding:"omitempty,currency_code"`
	Category   string            `json:"category" binding:"required,min=1,max=50"`
	Kind       domain.RecordKind `json:"kind" binding:"required,oneof=expense income"`
	OccurredOn string            `json:"occurredOn" binding:"required"` // YYYY-MM-DD
	Notes      string            `json:"notes" binding:"max=200"`
}

// UpdateRecordRequest defines a partial record update. Omitted fields are left untouched.
type UpdateRecordRequest struct {
	Name       *string            `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Amount     *decimal.Decimal   `json:"amount,omitempty" swaggertype:"string" example:"12.50" binding:"omitempty,min_amount"`
	Currency   *string            `json:"currency,omitempty" binding:"omitempty,currency_code"`
	Category   *string            `json:"category,omitempty" binding:"omitempty,min=1,max=50"`
	Kind       *domain.RecordKind `json:"kind,omitempty" binding:"omitempty,oneof=expense income"`
	OccurredOn *string            `json:"occurredOn,omitempty"`
	Notes      *string            `json:"notes,omitempty" binding:"omitempty,max=200"`
}

// ListRecordsParams defines the query parameters for listing records.
type ListRecordsParams struct {
	Limit     int     `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
	From      string  `form:"from"`
	To        string  `form:"to"`
	Kind      string  `form:"kind" binding:"omitempty,oneof=expense income"`
	Category  string  `form:"category"`
}

// RecordResponse defines the data returned for a record.
type RecordResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount" swaggertype:"string" example:"12.50"`
	Currency   string            `json:"currency"`
	Category   string            `json:"category"`
	Kind       domain.RecordKind `json:"kind"`
	OccurredOn string            `json:"occurredOn"`
	Notes      string            `json:"notes,omitempty"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// ListRecordsResponse wraps a page of records.
type ListRecordsResponse struct {
	Records   []RecordResponse `json:"records"`
	NextToken *string          `json:"nextToken,omitempty"`
}

// ToRecordResponse converts a domain.Record to a RecordResponse.
func ToRecordResponse(r *domain.Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		Name:       r.Name,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Category:   r.Category,
		Kind:       r.Kind,
		OccurredOn: r.OccurredOn.String(),
		Notes:      r.Notes,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.LastUpdatedAt,
	}
}

// ToRecordResponses converts a slice of domain.Record.
func ToRecordResponses(records []domain.Record) []RecordResponse {
	responses := make([]RecordResponse, len(records))
	for i := range records {
		responses[i] = ToRecordResponse(&records[i])
	}
	return responses
}
