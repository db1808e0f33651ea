package dto

// MonthlyTotalsParams selects a calendar month. Zero values mean the current month.
type MonthlyTotalsParams struct {
	Year     int    `form:"year" binding:"omitempty,min=1970,max=9999"`
	Month    int    `form:"month" binding:"omitempty,min=1,max=12"`
	Currency string `form:"currency" binding:"omitempty,currency_code"`
}

// CategoryBreakdownParams selects a date window. Empty dates mean the current month.
type CategoryBreakdownParams struct {
	From     string `form:"from"`
	To       string `form:"to"`
	Cap      int    `form:"cap" binding:"omitempty,min=1,max=50"`
	Currency string `form:"currency" binding:"omitempty,currency_code"`
}

// DailyBucketsParams selects the number of days ending today.
type DailyBucketsParams struct {
	Days     int    `form:"days" binding:"omitempty,min=1,max=366"`
	Currency string `form:"currency" binding:"omitempty,currency_code"`
}

// TopRecordsParams selects top-K records in a window. Empty dates mean the current year.
type TopRecordsParams struct {
	K    int    `form:"k" binding:"omitempty,min=1,max=100"`
	From string `form:"from"`
	To   string `form:"to"`
}

// RecentRecordsParams selects the K newest records.
type RecentRecordsParams struct {
	K int `form:"k" binding:"omitempty,min=1,max=100"`
}

// BudgetPeriodParams selects the consumption period for budget listings. Empty dates mean the current month.
type BudgetPeriodParams struct {
	From     string `form:"from"`
	To       string `form:"to"`
	Currency string `form:"currency" binding:"omitempty,currency_code"`
}
