package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests for the one-shot aggregation queries.
type reportingHandler struct {
	reportingService portssvc.ReportingService
}

func newReportingHandler(rs portssvc.ReportingService) *reportingHandler {
	return &reportingHandler{reportingService: rs}
}

// registerReportingRoutes registers routes related to reports and the dashboard.
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingService) {
	h := newReportingHandler(reportingService)

	reports := rg.Group("/reports")
	{
		reports.GET("/monthly-totals", h.getMonthlyTotals)
		reports.GET("/category-breakdown", h.getCategoryBreakdown)
		reports.GET("/daily-buckets", h.getDailyBuckets)
		reports.GET("/top", h.getTopRecords)
		reports.GET("/recent", h.getRecentRecords)
		reports.GET("/dashboard", h.getDashboard)
	}
}

// getMonthlyTotals godoc
// @Summary Monthly income and expense totals
// @Description Sums income and expense for one calendar month in the owner timezone. Amounts without a rate are listed under unconverted.
// @Tags reports
// @Produce  json
// @Param   year query int false "Year, current year when omitted"
// @Param   month query int false "Month (1-12), current month when omitted"
// @Param   currency query string false "Currency to normalize to" default(owner default currency)
// @Success 200 {object} domain.MonthlyTotals
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/monthly-totals [get]
func (h *reportingHandler) getMonthlyTotals(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.MonthlyTotalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "MonthlyTotals query")
		return
	}

	totals, err := h.reportingService.FetchMonthlyTotals(c.Request.Context(), ownerID, monthlyQuery(params))
	if err != nil {
		respondError(c, logger, err, "Failed to compute monthly totals")
		return
	}
	c.JSON(http.StatusOK, totals)
}

// getCategoryBreakdown godoc
// @Summary Expense breakdown by category
// @Description Expense per category in the window, largest first. Categories past the cap fold into "Other".
// @Tags reports
// @Produce  json
// @Param   from query string false "First date (YYYY-MM-DD), inclusive" default(first day of current month)
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive" default(last day of current month)
// @Param   cap query int false "Categories before folding into Other" default(9)
// @Param   currency query string false "Currency to normalize to" default(owner default currency)
// @Success 200 {object} domain.CategoryBreakdown
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/category-breakdown [get]
func (h *reportingHandler) getCategoryBreakdown(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.CategoryBreakdownParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "CategoryBreakdown query")
		return
	}
	q, err := breakdownQuery(params)
	if err != nil {
		respondError(c, logger, err, "Failed to compute category breakdown")
		return
	}

	breakdown, err := h.reportingService.FetchCategoryBreakdown(c.Request.Context(), ownerID, q)
	if err != nil {
		respondError(c, logger, err, "Failed to compute category breakdown")
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// getDailyBuckets godoc
// @Summary Daily income and expense buckets
// @Description One bucket per day ending today, oldest first. Days without records are kept at zero.
// @Tags reports
// @Produce  json
// @Param   days query int false "Number of days" default(7)
// @Param   currency query string false "Currency to normalize to" default(owner default currency)
// @Success 200 {object} domain.DailyBuckets
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/daily-buckets [get]
func (h *reportingHandler) getDailyBuckets(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.DailyBucketsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "DailyBuckets query")
		return
	}

	buckets, err := h.reportingService.FetchDailyBuckets(c.Request.Context(), ownerID, dailyQuery(params))
	if err != nil {
		respondError(c, logger, err, "Failed to compute daily buckets")
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// getTopRecords godoc
// @Summary Largest expense records
// @Tags reports
// @Produce  json
// @Param   k query int false "Number of records" default(3)
// @Param   from query string false "First date (YYYY-MM-DD), inclusive" default(first day of current year)
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive" default(today)
// @Success 200 {object} dto.ListRecordsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/top [get]
func (h *reportingHandler) getTopRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.TopRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "TopRecords query")
		return
	}
	q, err := topQuery(params)
	if err != nil {
		respondError(c, logger, err, "Failed to fetch top records")
		return
	}

	list, err := h.reportingService.FetchTopRecords(c.Request.Context(), ownerID, q)
	if err != nil {
		respondError(c, logger, err, "Failed to fetch top records")
		return
	}
	c.JSON(http.StatusOK, dto.ListRecordsResponse{Records: dto.ToRecordResponses(list.Records)})
}

// getRecentRecords godoc
// @Summary Most recent records
// @Tags reports
// @Produce  json
// @Param   k query int false "Number of records" default(5)
// @Success 200 {object} dto.ListRecordsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/recent [get]
func (h *reportingHandler) getRecentRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.RecentRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "RecentRecords query")
		return
	}

	list, err := h.reportingService.FetchRecentRecords(c.Request.Context(), ownerID, domain.RecentRecordsQuery{K: params.K})
	if err != nil {
		respondError(c, logger, err, "Failed to fetch recent records")
		return
	}
	c.JSON(http.StatusOK, dto.ListRecordsResponse{Records: dto.ToRecordResponses(list.Records)})
}

// getDashboard godoc
// @Summary Dashboard
// @Description Balance, current month totals, category breakdown, daily buckets, top and recent records computed concurrently.
// @Tags reports
// @Produce  json
// @Success 200 {object} domain.Dashboard
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /reports/dashboard [get]
func (h *reportingHandler) getDashboard(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	start := time.Now()
	dashboard, err := h.reportingService.FetchDashboard(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, logger, err, "Failed to build dashboard")
		return
	}
	logger.Info("Dashboard built", slog.Duration("took", time.Since(start)))
	c.JSON(http.StatusOK, dashboard)
}

func monthlyQuery(params dto.MonthlyTotalsParams) domain.MonthlyTotalsQuery {
	return domain.MonthlyTotalsQuery{
		Year:        params.Year,
		Month:       time.Month(params.Month),
		NormalizeTo: params.Currency,
	}
}

func breakdownQuery(params dto.CategoryBreakdownParams) (domain.CategoryBreakdownQuery, error) {
	q := domain.CategoryBreakdownQuery{Cap: params.Cap, NormalizeTo: params.Currency}
	from, err := parseOptionalDate("from", params.From)
	if err != nil {
		return q, err
	}
	to, err := parseOptionalDate("to", params.To)
	if err != nil {
		return q, err
	}
	if from != nil && to != nil {
		q.From, q.To = *from, *to
	}
	return q, nil
}

func dailyQuery(params dto.DailyBucketsParams) domain.DailyBucketsQuery {
	return domain.DailyBucketsQuery{Days: params.Days, NormalizeTo: params.Currency}
}

func topQuery(params dto.TopRecordsParams) (domain.TopRecordsQuery, error) {
	q := domain.TopRecordsQuery{K: params.K}
	var err error
	if q.From, err = parseOptionalDate("from", params.From); err != nil {
		return q, err
	}
	if q.To, err = parseOptionalDate("to", params.To); err != nil {
		return q, err
	}
	return q, nil
}
