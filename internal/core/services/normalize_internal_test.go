package services

import (
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalize(t *testing.T) {
	table := domain.DefaultRateTable()

	out := normalize(map[string]decimal.Decimal{
		"INR": dec("100"),
		"USD": dec("1.2"),
		"XYZ": dec("7"),
		"ABC": dec("3"),
	}, "INR", table)

	assert.True(t, out.Total.Equal(dec("200")), "got %s", out.Total)
	require.Len(t, out.Unconverted, 2)
	assert.True(t, out.Unconverted["XYZ"].Equal(dec("7")))
	assert.Equal(t, []string{
		"no exchange rate for ABC to INR; amount left unconverted",
		"no exchange rate for XYZ to INR; amount left unconverted",
	}, out.Warnings)

	empty := normalize(nil, "USD", table)
	assert.True(t, empty.Total.IsZero())
	assert.Nil(t, empty.Unconverted)
	assert.Empty(t, empty.Warnings)
}

func TestNormalize_StaleRates(t *testing.T) {
	table := domain.DefaultRateTable()
	table.FetchedAt = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	table.Stale = true

	out := normalize(map[string]decimal.Decimal{"USD": dec("1.2")}, "INR", table)
	assert.True(t, out.Total.Equal(dec("100")), "a stale table still converts")
	assert.Equal(t, []string{"exchange rates are stale (fetched 2024-06-01T00:00:00Z)"}, out.Warnings)
}

func TestMixedCurrencyWarning(t *testing.T) {
	assert.Nil(t, mixedCurrencyWarning(map[string]decimal.Decimal{"INR": dec("1")}))
	assert.Equal(t, []string{mixedCurrencyMsg},
		mixedCurrencyWarning(map[string]decimal.Decimal{"INR": dec("1"), "USD": dec("1")}))
}

func TestCapCategories(t *testing.T) {
	testCases := []struct {
		name    string
		amounts map[string]string
		limit   int
		want    []domain.CategoryAmount
	}{
		{
			name:    "under the cap keeps every category",
			amounts: map[string]string{"Food": "10", "Rent": "30"},
			limit:   3,
			want: []domain.CategoryAmount{
				{Category: "Rent", Amount: dec("30")},
				{Category: "Food", Amount: dec("10")},
			},
		},
		{
			name:    "overflow folds into Other",
			amounts: map[string]string{"A": "50", "B": "40", "C": "30", "D": "20", "E": "10"},
			limit:   3,
			want: []domain.CategoryAmount{
				{Category: "Other", Amount: dec("60"), Synthetic: true},
				{Category: "A", Amount: dec("50")},
				{Category: "B", Amount: dec("40")},
			},
		},
		{
			name:    "ties break by name",
			amounts: map[string]string{"b": "5", "a": "5"},
			limit:   5,
			want: []domain.CategoryAmount{
				{Category: "a", Amount: dec("5")},
				{Category: "b", Amount: dec("5")},
			},
		},
		{
			name:    "zero amounts are dropped",
			amounts: map[string]string{"Food": "0", "Rent": "1"},
			limit:   5,
			want: []domain.CategoryAmount{
				{Category: "Rent", Amount: dec("1")},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amounts := make(map[string]decimal.Decimal, len(tc.amounts))
			for k, v := range tc.amounts {
				amounts[k] = dec(v)
			}
			got := capCategories(amounts, tc.limit)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.Equal(t, tc.want[i].Category, got[i].Category)
				assert.True(t, tc.want[i].Amount.Equal(got[i].Amount), "%s: got %s", tc.want[i].Category, got[i].Amount)
				assert.Equal(t, tc.want[i].Synthetic, got[i].Synthetic)
			}
		})
	}
}
