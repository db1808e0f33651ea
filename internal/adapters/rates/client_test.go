package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secret/latest/INR", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"result": "success",
			"base_code": "INR",
			"time_last_update_unix": 1717200000,
			"conversion_rates": {"INR": 1, "USD": 0.012, "EUR": 0.011, "XXX": 0}
		}`))
	}))
	defer srv.Close()

	table, err := NewClient(srv.URL+"/", "secret", srv.Client()).FetchRates(context.Background(), "INR")
	require.NoError(t, err)

	assert.Equal(t, "INR", table.Base)
	assert.True(t, decimal.RequireFromString("0.012").Equal(table.Rates["USD"]))
	assert.NotContains(t, table.Rates, "XXX", "non-positive rates are dropped")
	assert.Equal(t, int64(1717200000), table.FetchedAt.Unix())
}

func TestClient_FetchRates_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: "boom"},
		{name: "provider error", status: http.StatusOK, body: `{"result":"error","error-type":"invalid-key"}`},
		{name: "empty rates", status: http.StatusOK, body: `{"result":"success","conversion_rates":{}}`},
		{name: "malformed", status: http.StatusOK, body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "key", nil).FetchRates(context.Background(), "INR")
			assert.Error(t, err)
		})
	}
}
