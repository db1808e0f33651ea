package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleRecord() Record {
	return Record{
		ID:         "r1",
		OwnerID:    "owner-1",
		Name:       "Groceries",
		Amount:     decimal.NewFromInt(100),
		Currency:   "INR",
		Category:   "Food",
		Kind:       Expense,
		OccurredOn: NewDate(2024, time.June, 10),
		Version:    3,
	}
}

func TestRecordKind_Valid(t *testing.T) {
	assert.True(t, Income.Valid())
	assert.True(t, Expense.Valid())
	assert.False(t, RecordKind("transfer").Valid())
	assert.False(t, RecordKind("").Valid())
}

func TestRecordPatch_Apply(t *testing.T) {
	original := sampleRecord()
	assert.True(t, RecordPatch{}.IsEmpty())
	assert.Equal(t, original, RecordPatch{}.Apply(original))

	amount := decimal.NewFromInt(7)
	kind := Income
	patch := RecordPatch{Amount: &amount, Kind: &kind}
	assert.False(t, patch.IsEmpty())

	patched := patch.Apply(original)
	assert.True(t, patched.Amount.Equal(amount))
	assert.Equal(t, Income, patched.Kind)
	assert.Equal(t, original.ID, patched.ID)
	assert.Equal(t, original.Version, patched.Version)
	assert.Equal(t, original.Category, patched.Category)
	assert.Equal(t, Expense, original.Kind, "the input record is not modified")
}

func TestRecordFilter_Matches(t *testing.T) {
	r := sampleRecord()
	june10 := NewDate(2024, time.June, 10)
	june11 := NewDate(2024, time.June, 11)
	income := Income
	food := "Food"
	rent := "Rent"

	testCases := []struct {
		name   string
		filter RecordFilter
		want   bool
	}{
		{name: "empty filter", filter: RecordFilter{}, want: true},
		{name: "inclusive from", filter: RecordFilter{From: &june10}, want: true},
		{name: "inclusive to", filter: RecordFilter{To: &june10}, want: true},
		{name: "after window", filter: RecordFilter{From: &june11}, want: false},
		{name: "kind mismatch", filter: RecordFilter{Kind: &income}, want: false},
		{name: "category match", filter: RecordFilter{Category: &food}, want: true},
		{name: "category mismatch", filter: RecordFilter{Category: &rent}, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(r))
		})
	}
}

func TestRecordOrdering(t *testing.T) {
	base := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	a := sampleRecord()
	a.CreatedAt = base
	b := a
	b.ID = "r2"

	assert.True(t, NewerFirst(b, a), "ties on date and creation time break by id desc")
	b.CreatedAt = base.Add(-time.Minute)
	assert.True(t, NewerFirst(a, b))
	b.OccurredOn = a.OccurredOn.AddDays(1)
	assert.True(t, NewerFirst(b, a))

	b.Amount = decimal.NewFromInt(1000)
	assert.True(t, LargerFirst(b, a))
	assert.False(t, LargerFirst(a, b))
}
