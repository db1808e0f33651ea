package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/gin-gonic/gin"
)

// profileHandler serves the owner's balance, display currency and the rate snapshot in use.
type profileHandler struct {
	balanceService  portssvc.BalanceSvc
	currencyService portssvc.CurrencySvcFacade
}

func newProfileHandler(bs portssvc.BalanceSvc, cs portssvc.CurrencySvcFacade) *profileHandler {
	return &profileHandler{balanceService: bs, currencyService: cs}
}

func registerProfileRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvc, currencyService portssvc.CurrencySvcFacade, limit gin.HandlerFunc) {
	h := newProfileHandler(balanceService, currencyService)

	rg.GET("/balance", h.getBalance)
	profile := rg.Group("/profile")
	{
		profile.GET("/currency", h.getDefaultCurrency)
		profile.PUT("/currency", limit, h.setDefaultCurrency)
	}
	rates := rg.Group("/rates")
	{
		rates.GET("", h.getRates)
		rates.POST("/refresh", limit, h.refreshRates)
	}
}

// getBalance godoc
// @Summary Get the owner balance
// @Description Returns per-currency balances and their total in ?currency= or the default currency. Currencies without a rate are reported unconverted.
// @Tags profile
// @Produce  json
// @Param   currency query string false "Currency to total in" default(owner default currency)
// @Success 200 {object} domain.Balance
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /balance [get]
func (h *profileHandler) getBalance(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	balance, err := h.balanceService.GetBalance(c.Request.Context(), ownerID, c.Query("currency"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

// getDefaultCurrency godoc
// @Summary Get the default currency
// @Tags profile
// @Produce  json
// @Success 200 {object} dto.DefaultCurrencyResponse
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /profile/currency [get]
func (h *profileHandler) getDefaultCurrency(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	currency, err := h.balanceService.GetDefaultCurrency(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve default currency")
		return
	}
	c.JSON(http.StatusOK, dto.DefaultCurrencyResponse{Currency: currency})
}

// setDefaultCurrency godoc
// @Summary Set the default currency
// @Tags profile
// @Accept  json
// @Produce  json
// @Param   currency body dto.SetDefaultCurrencyRequest true "ISO 4217 code"
// @Success 200 {object} dto.DefaultCurrencyResponse
// @Failure 400 {object} map[string]string "Invalid currency code"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /profile/currency [put]
func (h *profileHandler) setDefaultCurrency(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.SetDefaultCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "SetDefaultCurrency")
		return
	}
	if err := h.balanceService.SetDefaultCurrency(c.Request.Context(), ownerID, req.Currency); err != nil {
		respondError(c, logger, err, "Failed to update default currency")
		return
	}
	logger.Info("Default currency updated", slog.String("currency", req.Currency))
	c.JSON(http.StatusOK, dto.DefaultCurrencyResponse{Currency: req.Currency})
}

// getRates godoc
// @Summary Get the exchange rate snapshot in use
// @Description Rates are relative to the base currency. stale is set when the snapshot outlived its TTL.
// @Tags rates
// @Produce  json
// @Success 200 {object} domain.RateTable
// @Security OwnerAuth
// @Router /rates [get]
func (h *profileHandler) getRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.currencyService.CurrentRates())
}

// refreshRates godoc
// @Summary Refresh exchange rates
// @Description Forces a fetch from the rate source. On failure the previous snapshot stays in use.
// @Tags rates
// @Produce  json
// @Success 200 {object} domain.RateTable
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 502 {object} map[string]string "Rate source failed"
// @Security OwnerAuth
// @Router /rates/refresh [post]
func (h *profileHandler) refreshRates(c *gin.Context) {
	_, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.currencyService.Refresh(c.Request.Context()); err != nil {
		logger.Warn("Rate refresh failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh exchange rates"})
		return
	}
	c.JSON(http.StatusOK, h.currencyService.CurrentRates())
}
