package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the persisted shape of a financial record.
type Record struct {
	RecordID   string          `db:"record_id"`
	OwnerID    string          `db:"owner_id"`
	Name       string          `db:"name"`
	Amount     decimal.Decimal `db:"amount"`
	Currency   string          `db:"currency_code"`
	Category   string          `db:"category"`
	Kind       string          `db:"kind"`
	OccurredOn time.Time       `db:"occurred_on"`
	Notes      string          `db:"notes"`
	Version    int64           `db:"version"`
	AuditFields
}
