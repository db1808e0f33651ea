package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/gin-gonic/gin"
)

// recordHandler handles HTTP requests related to records.
type recordHandler struct {
	recordService portssvc.RecordSvcFacade
}

func newRecordHandler(rs portssvc.RecordSvcFacade) *recordHandler {
	return &recordHandler{recordService: rs}
}

// registerRecordRoutes registers routes related to records.
func registerRecordRoutes(rg *gin.RouterGroup, recordService portssvc.RecordSvcFacade, limit gin.HandlerFunc) {
	h := newRecordHandler(recordService)

	records := rg.Group("/records")
	{
		records.POST("", limit, h.createRecord)
		records.GET("", h.listRecords)
		records.GET("/:id", h.getRecord)
		records.PATCH("/:id", limit, h.updateRecord)
		records.DELETE("/:id", limit, h.deleteRecord)
	}
}

// createRecord godoc
// @Summary Create a record
// @Description Stores an income or expense record and applies it to the owner's balance in the same write
// @Tags records
// @Accept  json
// @Produce  json
// @Param   record body dto.CreateRecordRequest true "Record details"
// @Success 201 {object} dto.RecordResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable or too much contention, retry"
// @Security OwnerAuth
// @Router /records [post]
func (h *recordHandler) createRecord(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "CreateRecord")
		return
	}

	logger.Info("Received request to create record", slog.String("kind", string(req.Kind)), slog.String("category", req.Category))
	record, err := h.recordService.CreateRecord(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create record")
		return
	}

	logger.Info("Record created successfully", slog.String("record_id", record.ID))
	c.JSON(http.StatusCreated, dto.ToRecordResponse(record))
}

// getRecord godoc
// @Summary Get a record by ID
// @Tags records
// @Produce  json
// @Param   id path string true "Record ID"
// @Success 200 {object} dto.RecordResponse
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "Record not found"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /records/{id} [get]
func (h *recordHandler) getRecord(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	recordID := c.Param("id")
	logger = logger.With(slog.String("record_id", recordID))

	record, err := h.recordService.GetRecord(c.Request.Context(), ownerID, recordID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve record")
		return
	}
	c.JSON(http.StatusOK, dto.ToRecordResponse(record))
}

// listRecords godoc
// @Summary List records
// @Description Lists the owner's records newest first (date desc, then creation time desc), one page at a time
// @Tags records
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   from query string false "First date (YYYY-MM-DD), inclusive"
// @Param   to query string false "Last date (YYYY-MM-DD), inclusive"
// @Param   kind query string false "expense or income"
// @Param   category query string false "Exact category"
// @Success 200 {object} dto.ListRecordsResponse
// @Failure 400 {object} map[string]string "Invalid filter or page token"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security OwnerAuth
// @Router /records [get]
func (h *recordHandler) listRecords(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.ListRecordsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, logger, err, "ListRecords query")
		return
	}
	filter, err := recordFilterFromParams(params)
	if err != nil {
		respondError(c, logger, err, "Failed to list records")
		return
	}

	records, nextToken, err := h.recordService.ListRecords(c.Request.Context(), ownerID, filter, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, logger, err, "Failed to list records")
		return
	}

	logger.Info("Records listed successfully", slog.Int("count", len(records)))
	c.JSON(http.StatusOK, dto.ListRecordsResponse{
		Records:   dto.ToRecordResponses(records),
		NextToken: nextToken,
	})
}

// updateRecord godoc
// @Summary Edit a record
// @Description Applies a partial update; the balance moves by the difference between the old and new amounts
// @Tags records
// @Accept  json
// @Produce  json
// @Param   id path string true "Record ID"
// @Param   record body dto.UpdateRecordRequest true "Fields to change"
// @Success 200 {object} dto.RecordResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 404 {object} map[string]string "Record not found"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable or too much contention, retry"
// @Security OwnerAuth
// @Router /records/{id} [patch]
func (h *recordHandler) updateRecord(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	recordID := c.Param("id")
	logger = logger.With(slog.String("record_id", recordID))

	var req dto.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "UpdateRecord")
		return
	}

	record, err := h.recordService.EditRecord(c.Request.Context(), ownerID, recordID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to update record")
		return
	}

	logger.Info("Record updated successfully", slog.Int64("version", record.Version))
	c.JSON(http.StatusOK, dto.ToRecordResponse(record))
}

// deleteRecord godoc
// @Summary Delete a record
// @Description Removes a record and reverses its effect on the balance. Deleting a missing record succeeds.
// @Tags records
// @Param   id path string true "Record ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Missing owner header"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 503 {object} map[string]string "Store unavailable or too much contention, retry"
// @Security OwnerAuth
// @Router /records/{id} [delete]
func (h *recordHandler) deleteRecord(c *gin.Context) {
	ownerID, logger, ok := requireOwner(c)
	if !ok {
		return
	}
	recordID := c.Param("id")
	logger = logger.With(slog.String("record_id", recordID))

	if err := h.recordService.DeleteRecord(c.Request.Context(), ownerID, recordID); err != nil {
		respondError(c, logger, err, "Failed to delete record")
		return
	}

	logger.Info("Record deleted")
	c.Status(http.StatusNoContent)
}

func recordFilterFromParams(params dto.ListRecordsParams) (domain.RecordFilter, error) {
	var filter domain.RecordFilter
	var err error
	if filter.From, err = parseOptionalDate("from", params.From); err != nil {
		return filter, err
	}
	if filter.To, err = parseOptionalDate("to", params.To); err != nil {
		return filter, err
	}
	if params.Kind != "" {
		kind := domain.RecordKind(params.Kind)
		filter.Kind = &kind
	}
	if params.Category != "" {
		category := params.Category
		filter.Category = &category
	}
	return filter, nil
}
