package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable maps currency codes to their rate relative to Base (1 unit of Base = Rates[code] units of code).
// The table is a read-only snapshot and may be stale or partially populated.
type RateTable struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates" swaggertype:"object,string"`
	FetchedAt time.Time                  `json:"fetchedAt"`
	// Stale is set on a snapshot served after its TTL ran out.
	Stale bool `json:"stale,omitempty"`
}

// Rate returns the rate for code. The base currency always has rate 1.
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	if code == t.Base && code != "" {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// DefaultRateTable is used until a rate source answers.
func DefaultRateTable() RateTable {
	return RateTable{
		Base: "INR",
		Rates: map[string]decimal.Decimal{
			"INR": decimal.NewFromInt(1),
			"USD": decimal.RequireFromString("0.012"),
			"EUR": decimal.RequireFromString("0.011"),
			"GBP": decimal.RequireFromString("0.0095"),
			"JPY": decimal.RequireFromString("1.89"),
			"AUD": decimal.RequireFromString("0.018"),
		},
	}
}
