package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/gin-gonic/gin"
)

// budgetHandler handles HTTP requests related to budgets and their consumption.
type budgetHandler struct {
	budgetService portssvc.BudgetSvcFacade
	loc           *time.Location
	now           func() time.Time
}

func newBudgetHandler(bs portssvc.BudgetSvcFacade, loc *time.Location) *budgetHandler {
	return &budgetHandler{budgetService: bs, loc: loc, now: time.Now}
}

// registerBudgetRoutes registers routes related to budgets.
func registerBudgetRoutes(rg *gin.RouterGroup, budgetService portssvc.BudgetSvcFacade, loc *time.Location, limit gin.HandlerFunc) {
	h := newBudgetHandler(budgetService, loc)

	budgets := rg.Group("/budgets")
	{
		budgets.POST("", limit, h.createBudget)
		budgets.GET("", h.listBudgets)
		budgets.GET("/consumption", h.getConsumption)
		budgets.PUT("/pin", limit, h.pinBudget)
		budgets.DELETE("/pin", limit, h.unpinBudget)
		budgets.GET("/:id", h.getBudget)
		budgets.PATCH("/:id", limit, h.updateBudget)
		budgets.DELETE("/:id", limit, h.deleteBudget)
	}
}

// createBudget godoc
// @Summary Create a budget
// @Description Creates a spending limit for one expense category, or "All" for every category. One budget per category.
// @Tags budgets
// @Accept  json
// @Produce  json
// @Param   budget body dto.CreateBudgetRequest true "Budget details"
// @Success 201 {object} dto.BudgetResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 409 {object} map[string]string "A budget for the category already exists"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets [post]
func (h *budgetHandler) createBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "CreateBudget")
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create budget")
		return
	}

	logger.Info("Budget created successfully", slog.String("budget_id", budget.ID), slog.String("category", budget.Category))
	c.JSON(http.StatusCreated, dto.ToBudgetResponse(budget))
}

// getBudget godoc
// @Summary Get a budget by ID
// @Tags budgets
// @Produce  json
// @Param   id path string true "Budget ID"
// @Success 200 {object} dto.BudgetResponse
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "Budget not found"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/{id} [get]
func (h *budgetHandler) getBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	budget, err := h.budgetService.GetBudget(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve budget")
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}

// updateBudget godoc
// @Summary Update a budget
// @Tags budgets
// @Accept  json
// @Produce  json
// @Param   id path string true "Budget ID"
// @Param   budget body dto.UpdateBudgetRequest true "Fields to change"
// @Success 200 {object} dto.BudgetResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "Budget not found"
// @Failure 409 {object} map[string]string "Another budget already uses the category"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/{id} [patch]
func (h *budgetHandler) updateBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	budgetID := c.Param("id")
	logger = logger.With(slog.String("budget_id", budgetID))

	var req dto.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "UpdateBudget")
		return
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), ownerID, budgetID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to update budget")
		return
	}
	logger.Info("Budget updated successfully")
	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}

// deleteBudget godoc
// @Summary Delete a budget
// @Description Deletes a budget and clears the pin if it pointed at it. Deleting a missing budget succeeds.
// @Tags budgets
// @Param   id path string true "Budget ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/{id} [delete]
func (h *budgetHandler) deleteBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	budgetID := c.Param("id")
	if err := h.budgetService.DeleteBudget(c.Request.Context(), ownerID, budgetID); err != nil {
		respondError(c, logger, err, "Failed to delete budget")
		return
	}
	logger.Info("Budget deleted", slog.String("budget_id", budgetID))
	c.Status(http.StatusNoContent)
}

// pinBudget godoc
// @Summary Pin a budget
// @Description Pins the budget shown first in listings, replacing any previous pin
// @Tags budgets
// @Accept  json
// @Param   pin body dto.PinBudgetRequest true "Budget to pin"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "Budget not found"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/pin [put]
func (h *budgetHandler) pinBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.PinBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "PinBudget")
		return
	}
	if err := h.budgetService.PinBudget(c.Request.Context(), ownerID, req.BudgetID); err != nil {
		respondError(c, logger, err, "Failed to pin budget")
		return
	}
	logger.Info("Budget pinned", slog.String("budget_id", req.BudgetID))
	c.Status(http.StatusNoContent)
}

// unpinBudget godoc
// @Summary Unpin the pinned budget
// @Tags budgets
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/pin [delete]
func (h *budgetHandler) unpinBudget(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.budgetService.UnpinBudget(c.Request.Context(), ownerID); err != nil {
		respondError(c, logger, err, "Failed to unpin budget")
		return
	}
	c.Status(http.StatusNoContent)
}

// listBudgets godoc
// @Summary List budgets with consumption
// @Description Returns every budget with how much of it is spent over the period, pinned budget first
// @Tags budgets
// @Produce  json
// @Param   from query string false "First date (YYYY-MM-DD), inclusive" default(first day of current month)
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive" default(last day of current month)
// @Param   currency query string false "Currency to normalize spending to" default(owner default currency)
// @Success 200 {object} map[string][]domain.BudgetConsumption
// @Failure 400 {object} map[string]string "Invalid period"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets [get]
func (h *budgetHandler) listBudgets(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.BudgetPeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "ListBudgets query")
		return
	}
	start, end, err := h.period(params)
	if err != nil {
		respondError(c, logger, err, "Failed to list budgets")
		return
	}

	consumption, err := h.budgetService.ListBudgetConsumption(c.Request.Context(), ownerID, start, end, params.Currency)
	if err != nil {
		respondError(c, logger, err, "Failed to list budgets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": consumption})
}

// getConsumption godoc
// @Summary Budget consumption for a category
// @Description Reports spent, limit and percent (unclamped, may exceed 100) for the budget of ?category=
// @Tags budgets
// @Produce  json
// @Param   category query string true "Budget category"
// @Param   from query string false "First date (YYYY-MM-DD), inclusive" default(first day of current month)
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive" default(last day of current month)
// @Param   currency query string false "Currency to normalize spending to"
// @Success 200 {object} domain.BudgetConsumption
// @Failure 400 {object} map[string]string "Missing category or invalid period"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "No budget for the category"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /budgets/consumption [get]
func (h *budgetHandler) getConsumption(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.BudgetPeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "Consumption query")
		return
	}
	category := c.Query("category")
	if category == "" {
		respondError(c, logger, apperrors.NewValidationError("category is required"), "Failed to compute consumption")
		return
	}
	start, end, err := h.period(params)
	if err != nil {
		respondError(c, logger, err, "Failed to compute consumption")
		return
	}

	consumption, err := h.budgetService.Consumption(c.Request.Context(), ownerID, category, start, end, params.Currency)
	if err != nil {
		respondError(c, logger, err, "Failed to compute consumption")
		return
	}
	c.JSON(http.StatusOK, consumption)
}

// period turns the inclusive from/to query into the half-open interval used by the budget service.
// Missing bounds select the current month.
func (h *budgetHandler) period(params dto.BudgetPeriodParams) (domain.Date, domain.Date, error) {
	from, err := parseOptionalDate("from", params.From)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	to, err := parseOptionalDate("to", params.To)
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	if from == nil || to == nil {
		if from != nil || to != nil {
			return domain.Date{}, domain.Date{}, apperrors.NewValidationError("from and to must be given together")
		}
		start, end := services.CurrentMonthPeriod(h.now(), h.loc)
		return start, end, nil
	}
	return *from, to.AddDays(1), nil
}
