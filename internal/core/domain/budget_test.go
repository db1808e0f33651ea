package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewBudgetConsumption(t *testing.T) {
	testCases := []struct {
		name    string
		spent   string
		limit   string
		percent string
		display string
		over    bool
	}{
		{name: "half spent", spent: "50", limit: "100", percent: "50", display: "50"},
		{name: "exactly at limit", spent: "100", limit: "100", percent: "100", display: "100"},
		{name: "over budget is not clamped", spent: "110", limit: "100", percent: "110", display: "100", over: true},
		{name: "refund heavy month", spent: "-20", limit: "100", percent: "-20", display: "0"},
		{name: "zero limit", spent: "10", limit: "0", percent: "0", display: "0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewBudgetConsumption("Food", decimal.RequireFromString(tc.spent), decimal.RequireFromString(tc.limit))
			assert.True(t, c.Percent.Equal(decimal.RequireFromString(tc.percent)), "percent %s", c.Percent)
			assert.True(t, c.DisplayPercent.Equal(decimal.RequireFromString(tc.display)), "display %s", c.DisplayPercent)
			assert.Equal(t, tc.over, c.OverBudget)
		})
	}
}

func TestBudget_MatchesCategory(t *testing.T) {
	assert.True(t, Budget{Category: "Food"}.MatchesCategory("Food"))
	assert.False(t, Budget{Category: "Food"}.MatchesCategory("food"))
	assert.True(t, Budget{Category: AllCategories}.MatchesCategory("Rent"))
}

func TestBalanceChanges(t *testing.T) {
	changes := BalanceChanges{}
	changes.Add("USD", decimal.NewFromInt(5))
	changes.Add("INR", decimal.NewFromInt(-3))
	changes.Add("USD", decimal.NewFromInt(-5))

	assert.Equal(t, []string{"INR"}, changes.Currencies(), "cancelled deltas are dropped")
	assert.True(t, changes["INR"].Equal(decimal.NewFromInt(-3)))

	changes.Add("EUR", decimal.NewFromInt(1))
	assert.Equal(t, []string{"EUR", "INR"}, changes.Currencies())
}

func TestUserAggregate_DisplayCurrency(t *testing.T) {
	assert.Equal(t, DefaultCurrency, UserAggregate{}.DisplayCurrency())
	assert.Equal(t, "USD", UserAggregate{DefaultCurrency: "USD"}.DisplayCurrency())
}

func TestChangeEvent_Touches(t *testing.T) {
	e := ChangeEvent{Topics: []Topic{TopicRecords, TopicAggregate}}
	assert.True(t, e.Touches([]Topic{TopicAggregate}))
	assert.False(t, e.Touches([]Topic{TopicBudgets}))
	assert.False(t, e.Touches(nil))
}

func TestRateTable_Rate(t *testing.T) {
	table := RateTable{Base: "USD", Rates: map[string]decimal.Decimal{"INR": decimal.NewFromInt(80), "BAD": decimal.Zero}}

	r, ok := table.Rate("USD")
	assert.True(t, ok)
	assert.True(t, r.Equal(decimal.NewFromInt(1)))

	_, ok = table.Rate("BAD")
	assert.False(t, ok, "non-positive rates are unusable")
	_, ok = table.Rate("EUR")
	assert.False(t, ok)
}
