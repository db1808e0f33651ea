// Package rates fetches exchange rate tables from an exchangerate-api style HTTP endpoint.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// Client implements portssvc.RateSource against GET {baseURL}/{apiKey}/latest/{base}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ portssvc.RateSource = (*Client)(nil)

// NewClient creates a rate client. A nil httpClient gets a client with a 10s timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	LastUpdateUnix  int64                      `json:"time_last_update_unix"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// FetchRates returns the latest table with base as the reference currency.
func (c *Client) FetchRates(ctx context.Context, base string) (domain.RateTable, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RateTable{}, fmt.Errorf("fetch rates: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.RateTable{}, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return domain.RateTable{}, fmt.Errorf("rates provider error: %s", body.ErrorType)
	}
	if len(body.ConversionRates) == 0 {
		return domain.RateTable{}, fmt.Errorf("rates provider returned no conversion rates")
	}

	table := domain.RateTable{
		Base:      base,
		Rates:     make(map[string]decimal.Decimal, len(body.ConversionRates)),
		FetchedAt: time.Now().UTC(),
	}
	if body.BaseCode != "" {
		table.Base = body.BaseCode
	}
	if body.LastUpdateUnix > 0 {
		table.FetchedAt = time.Unix(body.LastUpdateUnix, 0).UTC()
	}
	for code, rate := range body.ConversionRates {
		if rate.IsPositive() {
			table.Rates[strings.ToUpper(code)] = rate
		}
	}
	return table, nil
}
