package domain

import (
	"github.com/shopspring/decimal"
)

// RecordKind carries the direction of a record. Amounts are always positive.
type RecordKind string

const (
	Expense RecordKind = "expense"
	Income  RecordKind = "income"
)

// Valid reports whether k is a known kind.
func (k RecordKind) Valid() bool {
	return k == Expense || k == Income
}

// MinAmount is the smallest amount a record or budget may carry.
var MinAmount = decimal.RequireFromString("0.01")

// Record is a single income or expense entry owned by one user.
type Record struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"ownerId" validate:"required"`
	Name       string          `json:"name" validate:"required,min=1,max=100"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" validate:"required,min_amount"`
	Currency   string          `json:"currency" validate:"required,currency_code"`
	Category   string          `json:"category" validate:"required,min=1,max=50"`
	Kind       RecordKind      `json:"kind" validate:"required,oneof=expense income"`
	OccurredOn Date            `json:"occurredOn" swaggertype:"string" format:"date" validate:"required"`
	Notes      string          `json:"notes,omitempty" validate:"max=200"`
	// Version is bumped on every edit and used for optimistic concurrency.
	Version int64 `json:"version"`
	AuditFields
}

// RecordPatch is a partial update. Nil fields are left untouched.
type RecordPatch struct {
	Name       *string
	Amount     *decimal.Decimal
	Currency   *string
	Category   *string
	Kind       *RecordKind
	OccurredOn *Date
	Notes      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Currency == nil && p.Category == nil &&
		p.Kind == nil && p.OccurredOn == nil && p.Notes == nil
}

// Apply returns a copy of r with the patch applied. ID, OwnerID, CreatedAt and Version are never touched.
func (p RecordPatch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Currency != nil {
		r.Currency = *p.Currency
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.OccurredOn != nil {
		r.OccurredOn = *p.OccurredOn
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

// RecordFilter narrows a record listing. Zero values mean "no restriction".
type RecordFilter struct {
	From     *Date
	To       *Date // inclusive
	Kind     *RecordKind
	Category *string
}

// Matches reports whether r satisfies the filter.
func (f RecordFilter) Matches(r Record) bool {
	if f.From != nil && r.OccurredOn.Before(*f.From) {
		return false
	}
	if f.To != nil && r.OccurredOn.After(*f.To) {
		return false
	}
	if f.Kind != nil && r.Kind != *f.Kind {
		return false
	}
	if f.Category != nil && r.Category != *f.Category {
		return false
	}
	return true
}

// NewerFirst is the canonical record order: occurredOn desc, createdAt desc, id desc.
// It returns true when a sorts before b.
func NewerFirst(a, b Record) bool {
	if c := a.OccurredOn.Compare(b.OccurredOn); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// LargerFirst orders by amount desc, then createdAt desc, then id desc.
func LargerFirst(a, b Record) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
