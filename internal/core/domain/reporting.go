package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OtherCategory collects uncategorized expenses and the overflow of a capped breakdown.
const OtherCategory = "Other"

// KindTotal is the summed amount of one kind in one currency, as returned by the store.
type KindTotal struct {
	Kind     RecordKind
	Currency string
	Total    decimal.Decimal
}

// CategoryTotal is the summed expense amount of one category in one currency.
type CategoryTotal struct {
	Category string
	Currency string
	Total    decimal.Decimal
}

// DailyTotal is the summed amount of one kind on one day in one currency.
type DailyTotal struct {
	Date     Date
	Kind     RecordKind
	Currency string
	Total    decimal.Decimal
}

// IncomeExpense is a pair of totals.
type IncomeExpense struct {
	Income  decimal.Decimal `json:"income" swaggertype:"string"`
	Expense decimal.Decimal `json:"expense" swaggertype:"string"`
}

// MonthlyTotals is the income/expense sum of one calendar month.
// When Currency is empty the totals were not normalized and only ByCurrency is meaningful.
type MonthlyTotals struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	From       Date                     `json:"from" swaggertype:"string" format:"date"`
	To         Date                     `json:"to" swaggertype:"string" format:"date"`
	Currency   string                   `json:"currency,omitempty"`
	Totals     IncomeExpense            `json:"totals"`
	ByCurrency map[string]IncomeExpense `json:"byCurrency"`
	// Unconverted lists per-currency totals that could not be normalized and are excluded from Totals.
	Unconverted map[string]IncomeExpense `json:"unconverted,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// CategoryAmount is one slice of a category breakdown.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	// Synthetic marks the overflow bucket built from several categories.
	Synthetic bool `json:"synthetic,omitempty"`
}

// UnconvertedAmount is an expense total of one category kept in its own currency because no
// exchange rate to the requested currency was available.
type UnconvertedAmount struct {
	Category string          `json:"category"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
}

// CategoryBreakdown maps expense categories to their summed amount over a window.
type CategoryBreakdown struct {
	From       Date             `json:"from" swaggertype:"string" format:"date"`
	To         Date             `json:"to" swaggertype:"string" format:"date"`
	Currency   string           `json:"currency,omitempty"`
	Categories []CategoryAmount `json:"categories"`
	// Unconverted is not included in Categories.
	Unconverted []UnconvertedAmount `json:"unconverted,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// DailyBucket is the activity of one local calendar day.
type DailyBucket struct {
	Date    Date            `json:"date" swaggertype:"string" format:"date"`
	Income  decimal.Decimal `json:"income" swaggertype:"string"`
	Expense decimal.Decimal `json:"expense" swaggertype:"string"`
	// Unconverted holds per-currency totals of the day that had no rate; they are not in Income/Expense.
	Unconverted map[string]IncomeExpense `json:"unconverted,omitempty"`
}

// AddUnconverted keeps row in its own currency on the bucket.
func (b *DailyBucket) AddUnconverted(row DailyTotal) {
	if b.Unconverted == nil {
		b.Unconverted = make(map[string]IncomeExpense)
	}
	pair := b.Unconverted[row.Currency]
	switch row.Kind {
	case Income:
		pair.Income = pair.Income.Add(row.Total)
	case Expense:
		pair.Expense = pair.Expense.Add(row.Total)
	}
	b.Unconverted[row.Currency] = pair
}

// DailyBuckets covers the last N days including today, oldest first.
type DailyBuckets struct {
	Days     int           `json:"days"`
	Currency string        `json:"currency,omitempty"`
	Buckets  []DailyBucket `json:"buckets"`
	Warnings []string      `json:"warnings,omitempty"`
}

// RecordList is an ordered slice of records returned by top/recent queries.
type RecordList struct {
	Records []Record `json:"records"`
}

// Dashboard bundles every dashboard query for one owner.
type Dashboard struct {
	Balance   Balance             `json:"balance"`
	Monthly   MonthlyTotals       `json:"monthly"`
	Breakdown CategoryBreakdown   `json:"breakdown"`
	Daily     DailyBuckets        `json:"daily"`
	Top       RecordList          `json:"top"`
	Recent    RecordList          `json:"recent"`
	Budgets   []BudgetConsumption `json:"budgets"`
}

// Default query sizes.
const (
	DefaultCategoryCap = 9
	DefaultDailyDays   = 7
	DefaultTopK        = 3
	DefaultRecentK     = 5
)

// MonthlyTotalsQuery selects one calendar month. NormalizeTo, when set, converts totals into that currency.
type MonthlyTotalsQuery struct {
	Year        int
	Month       time.Month
	NormalizeTo string
}

// CategoryBreakdownQuery selects an inclusive date window.
type CategoryBreakdownQuery struct {
	From        Date
	To          Date
	Cap         int
	NormalizeTo string
}

// DailyBucketsQuery selects the last Days calendar days including today.
type DailyBucketsQuery struct {
	Days        int
	NormalizeTo string
}

// TopRecordsQuery selects the K largest records in an inclusive window. A nil bound means the current year.
type TopRecordsQuery struct {
	K    int
	From *Date
	To   *Date
}

// RecentRecordsQuery selects the K newest records.
type RecentRecordsQuery struct {
	K int
}
