package dto

// SetDefaultCurrencyRequest changes the owner's display currency.
type SetDefaultCurrencyRequest struct {
	Currency string `json:"currency" binding:"required,currency_code"`
}

// DefaultCurrencyResponse returns the owner's display currency.
type DefaultCurrencyResponse struct {
	Currency string `json:"currency"`
}
