package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/cache"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	// staleRefreshGap spaces out refreshes started by reads of an expired snapshot.
	staleRefreshGap     = time.Minute
	staleRefreshTimeout = 30 * time.Second
)

// Convert turns amount in currency from into currency to using table.
// Identical codes return amount unchanged without consulting the table.
func Convert(amount decimal.Decimal, from, to string, table domain.RateTable) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := table.Rate(from)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrRateUnavailable, from)
	}
	toRate, ok := table.Rate(to)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrRateUnavailable, to)
	}
	return amount.Div(fromRate).Mul(toRate), nil
}

// normalized is the result of folding per-currency amounts into one target currency.
type normalized struct {
	Total       decimal.Decimal
	Unconverted map[string]decimal.Decimal
	Warnings    []string
}

// normalize converts every entry of amounts into target. Currencies without a rate are
// kept aside in Unconverted and reported as warnings instead of failing the whole figure.
func normalize(amounts map[string]decimal.Decimal, target string, table domain.RateTable) normalized {
	out := normalized{Total: decimal.Zero, Warnings: staleRatesWarning(table)}
	codes := make([]string, 0, len(amounts))
	for code := range amounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		converted, err := Convert(amounts[code], code, target, table)
		if err != nil {
			if out.Unconverted == nil {
				out.Unconverted = make(map[string]decimal.Decimal)
			}
			out.Unconverted[code] = amounts[code]
			out.Warnings = append(out.Warnings, fmt.Sprintf("no exchange rate for %s to %s; amount left unconverted", code, target))
			continue
		}
		out.Total = out.Total.Add(converted)
	}
	return out
}

// staleRatesWarning flags figures converted with an expired snapshot.
func staleRatesWarning(table domain.RateTable) []string {
	if !table.Stale {
		return nil
	}
	return []string{fmt.Sprintf("exchange rates are stale (fetched %s)", table.FetchedAt.UTC().Format(time.RFC3339))}
}

const mixedCurrencyMsg = "totals mix several currencies; pass a currency to normalize them"

// mixedCurrencyWarning flags raw sums that add up different currencies.
func mixedCurrencyWarning(amounts map[string]decimal.Decimal) []string {
	if len(amounts) <= 1 {
		return nil
	}
	return []string{mixedCurrencyMsg}
}

// CurrencyServiceOption configures a CurrencyService.
type CurrencyServiceOption func(*CurrencyService)

// WithRateSource sets where fresh rates come from. Without one the default table is used.
func WithRateSource(source portssvc.RateSource) CurrencyServiceOption {
	return func(s *CurrencyService) {
		s.source = source
	}
}

// WithRateBase sets the base currency requested from the rate source.
func WithRateBase(code string) CurrencyServiceOption {
	return func(s *CurrencyService) {
		if code != "" {
			s.base = code
		}
	}
}

// WithRefreshInterval sets how often the background loop refreshes rates.
func WithRefreshInterval(d time.Duration) CurrencyServiceOption {
	return func(s *CurrencyService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRatesTTL sets how long a fetched snapshot counts as fresh.
func WithRatesTTL(d time.Duration) CurrencyServiceOption {
	return func(s *CurrencyService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithRatesClock overrides time.Now for snapshot expiry, for tests.
func WithRatesClock(now func() time.Time) CurrencyServiceOption {
	return func(s *CurrencyService) {
		if now != nil {
			s.now = now
		}
	}
}

// CurrencyService is the currency normalizer. It serves conversions from the last good
// rate snapshot and refreshes that snapshot in the background.
type CurrencyService struct {
	BaseService
	source   portssvc.RateSource
	base     string
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	rates    *cache.SnapshotCache[domain.RateTable]
	group    singleflight.Group

	refreshing  atomic.Bool
	lastAttempt atomic.Int64

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService(opts ...CurrencyServiceOption) *CurrencyService {
	s := &CurrencyService{
		base:     domain.DefaultCurrency,
		interval: time.Hour,
		ttl:      6 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rates = cache.NewSnapshotCache[domain.RateTable](s.ttl, s.now)
	return s
}

var _ portssvc.CurrencySvcFacade = (*CurrencyService)(nil)

// CurrentRates returns the latest snapshot for the configured base, or the default table when
// none was fetched yet. An expired snapshot is still returned, marked Stale, and a refresh is
// started in the background.
func (s *CurrencyService) CurrentRates() domain.RateTable {
	if table, ok := s.rates.Get(s.base); ok {
		return table
	}
	table, _, ok := s.rates.GetStale(s.base)
	s.refreshInBackground()
	if !ok {
		return domain.DefaultRateTable()
	}
	table.Stale = true
	return table
}

// refreshInBackground starts at most one refresh at a time, and none within
// staleRefreshGap of the previous attempt.
func (s *CurrencyService) refreshInBackground() {
	if s.source == nil {
		return
	}
	now := s.now()
	if last := s.lastAttempt.Load(); last != 0 && now.Sub(time.Unix(0, last)) < staleRefreshGap {
		return
	}
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	s.lastAttempt.Store(now.UnixNano())
	go func() {
		defer s.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), staleRefreshTimeout)
		defer cancel()
		_ = s.Refresh(ctx)
	}()
}

func (s *CurrencyService) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return Convert(amount, from, to, s.CurrentRates())
}

// Refresh fetches a new snapshot. Concurrent callers share one fetch. On failure the
// previous snapshot stays in place.
func (s *CurrencyService) Refresh(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	_, err, shared := s.group.Do(s.base, func() (any, error) {
		table, err := s.source.FetchRates(ctx, s.base)
		if err != nil {
			return nil, err
		}
		if len(table.Rates) == 0 {
			return nil, fmt.Errorf("rate source returned an empty table for %s", s.base)
		}
		if table.Base == "" {
			table.Base = s.base
		}
		if table.FetchedAt.IsZero() {
			table.FetchedAt = s.now().UTC()
		}
		table.Stale = false
		s.rates.Set(s.base, table)
		return table, nil
	})
	if err != nil {
		s.GetLogger(ctx).WarnContext(ctx, "Failed to refresh exchange rates, keeping last snapshot",
			"component", "rate_refresher", "error", err)
		return fmt.Errorf("refresh exchange rates: %w", err)
	}
	s.LogDebug(ctx, "Exchange rates refreshed", "component", "rate_refresher", "shared", shared)
	return nil
}

// Start runs an initial refresh and then refreshes on every interval until Stop.
func (s *CurrencyService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rate refresher is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	s.LogInfo(ctx, "Rate refresher started", "component", "rate_refresher", "interval", s.interval, "base", s.base)
	return nil
}

// Stop signals the refresh loop and waits for it to exit.
func (s *CurrencyService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.LogInfo(ctx, "Rate refresher stopped", "component", "rate_refresher")
		return nil
	case <-ctx.Done():
		s.GetLogger(ctx).WarnContext(ctx, "Rate refresher stop timed out", "component", "rate_refresher")
		return ctx.Err()
	}
}

func (s *CurrencyService) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	_ = s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
