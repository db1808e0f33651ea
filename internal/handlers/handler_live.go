package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/gin-gonic/gin"
)

// liveHandler exposes live queries as server-sent event streams. Each stream sends the current
// result first and a fresh one after every relevant change. Slow clients only see the latest value.
type liveHandler struct {
	subscriptions portssvc.SubscriptionService
}

func newLiveHandler(ss portssvc.SubscriptionService) *liveHandler {
	return &liveHandler{subscriptions: ss}
}

func registerLiveRoutes(rg *gin.RouterGroup, subscriptions portssvc.SubscriptionService) {
	h := newLiveHandler(subscriptions)

	subs := rg.Group("/subscriptions")
	{
		subs.GET("/balance", h.streamBalance)
		subs.GET("/records", h.streamRecords)
		subs.GET("/budgets", h.streamBudgets)
		subs.GET("/monthly-totals", h.streamMonthlyTotals)
		subs.GET("/category-breakdown", h.streamCategoryBreakdown)
		subs.GET("/daily-buckets", h.streamDailyBuckets)
		subs.GET("/top", h.streamTopRecords)
		subs.GET("/recent", h.streamRecentRecords)
	}
}

// streamLive subscribes through subscribe and forwards every delivered value as an "update" event
// until the client disconnects.
func streamLive[T any](c *gin.Context, logger *slog.Logger, subscribe func(ctx context.Context, cb func(T)) (portssvc.Unsubscribe, error)) {
	ctx := c.Request.Context()
	updates := make(chan T, 1)
	// Callbacks are sequential per subscription, so after the drain the send never blocks.
	push := func(v T) {
		select {
		case <-updates:
		default:
		}
		updates <- v
	}

	unsubscribe, err := subscribe(ctx, push)
	if err != nil {
		respondError(c, logger, err, "Failed to start live query")
		return
	}
	defer unsubscribe()

	logger.Info("Live query started")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-updates:
			c.SSEvent("update", v)
			return true
		}
	})
	logger.Info("Live query stopped")
}

// streamBalance godoc
// @Summary Stream the owner balance
// @Description Sends the current balance, then a fresh one after every change. Slow clients only see the latest value.
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   currency query string false "Currency to normalize to"
// @Success 200 {object} domain.Balance "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/balance [get]
func (h *liveHandler) streamBalance(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	currency := c.Query("currency")
	streamLive(c, logger, func(ctx context.Context, cb func(domain.Balance)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeBalance(ctx, ownerID, currency, cb)
	})
}

// streamRecords godoc
// @Summary Stream a filtered record list
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   limit query int false "Page size" default(20)
// @Param   from query string false "First date (YYYY-MM-DD), inclusive"
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive"
// @Param   kind query string false "expense or income"
// @Param   category query string false "Exact category"
// @Success 200 {object} domain.RecordList "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/records [get]
func (h *liveHandler) streamRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.ListRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live records query")
		return
	}
	filter, err := recordFilterFromParams(params)
	if err != nil {
		respondError(c, logger, err, "Failed to start live query")
		return
	}
	streamLive(c, logger, func(ctx context.Context, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeRecords(ctx, ownerID, filter, cb)
	})
}

// streamBudgets godoc
// @Summary Stream budget consumption
// @Tags subscriptions
// @Produce  text/event-stream
// @Success 200 {object} []domain.BudgetConsumption "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/budgets [get]
func (h *liveHandler) streamBudgets(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	streamLive(c, logger, func(ctx context.Context, cb func([]domain.BudgetConsumption)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeBudgets(ctx, ownerID, cb)
	})
}

// streamMonthlyTotals godoc
// @Summary Stream monthly totals
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   year query int false "Year"
// @Param   month query int false "Month (1-12)"
// @Param   currency query string false "Currency to normalize to"
// @Success 200 {object} domain.MonthlyTotals "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/monthly-totals [get]
func (h *liveHandler) streamMonthlyTotals(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.MonthlyTotalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live monthly query")
		return
	}
	q := monthlyQuery(params)
	streamLive(c, logger, func(ctx context.Context, cb func(domain.MonthlyTotals)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeMonthlyTotals(ctx, ownerID, q, cb)
	})
}

// streamCategoryBreakdown godoc
// @Summary Stream the category breakdown
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   from query string false "First date (YYYY-MM-DD), inclusive"
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive"
// @Param   cap query int false "Categories before folding into Other" default(9)
// @Param   currency query string false "Currency to normalize to"
// @Success 200 {object} domain.CategoryBreakdown "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/category-breakdown [get]
func (h *liveHandler) streamCategoryBreakdown(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.CategoryBreakdownParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live categories query")
		return
	}
	q, err := breakdownQuery(params)
	if err != nil {
		respondError(c, logger, err, "Failed to start live query")
		return
	}
	streamLive(c, logger, func(ctx context.Context, cb func(domain.CategoryBreakdown)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeCategoryBreakdown(ctx, ownerID, q, cb)
	})
}

// streamDailyBuckets godoc
// @Summary Stream daily buckets
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   days query int false "Number of days" default(7)
// @Param   currency query string false "Currency to normalize to"
// @Success 200 {object} domain.DailyBuckets "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/daily-buckets [get]
func (h *liveHandler) streamDailyBuckets(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.DailyBucketsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live daily query")
		return
	}
	q := dailyQuery(params)
	streamLive(c, logger, func(ctx context.Context, cb func(domain.DailyBuckets)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeDailyBuckets(ctx, ownerID, q, cb)
	})
}

// streamTopRecords godoc
// @Summary Stream the largest expense records
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   k query int false "Number of records" default(3)
// @Param   from query string false "First date (YYYY-MM-DD), inclusive"
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive"
// @Success 200 {object} domain.RecordList "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/top [get]
func (h *liveHandler) streamTopRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.TopRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live top query")
		return
	}
	q, err := topQuery(params)
	if err != nil {
		respondError(c, logger, err, "Failed to start live query")
		return
	}
	streamLive(c, logger, func(ctx context.Context, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeTopRecords(ctx, ownerID, q, cb)
	})
}

// streamRecentRecords godoc
// @Summary Stream the most recent records
// @Tags subscriptions
// @Produce  text/event-stream
// @Param   k query int false "Number of records" default(5)
// @Success 200 {object} domain.RecordList "update events"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Security OwnerAuth
// @Router /subscriptions/recent [get]
func (h *liveHandler) streamRecentRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.RecentRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "live recent query")
		return
	}
	q := domain.RecentRecordsQuery{K: params.K}
	streamLive(c, logger, func(ctx context.Context, cb func(domain.RecordList)) (portssvc.Unsubscribe, error) {
		return h.subscriptions.SubscribeRecentRecords(ctx, ownerID, q, cb)
	})
}
