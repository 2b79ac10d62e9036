package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scanwatch-service/internal/application"
	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/api"
	"github.com/wms-platform/scanwatch-service/pkg/errors"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/middleware"
)

// RecordHandlers handles scan-record HTTP endpoints
type RecordHandlers struct {
	records *application.RecordService
	logger  *logging.Logger
}

// NewRecordHandlers creates a new RecordHandlers
func NewRecordHandlers(records *application.RecordService, logger *logging.Logger) *RecordHandlers {
	return &RecordHandlers{
		records: records,
		logger:  logger,
	}
}

// RegisterRoutes registers record routes on an authenticated group.
func (h *RecordHandlers) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/scan-records/weekly", h.Browse)
	group.GET("/scan-records/export", h.Export)
	group.POST("/stale-records/sync/:warehouse", h.SyncWarehouse)
	group.GET("/stale-records", h.StaleRecords)
	group.GET("/stale-records/stats", h.StoredStats)
	group.GET("/warehouses", h.Warehouses)
}

// Browse handles GET /api/v1/scan-records/weekly
func (h *RecordHandlers) Browse(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	session, ok := SessionFromContext(c)
	if !ok {
		responder.RespondUnauthorized("missing session")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(domain.DefaultPageSize)))
	showCancelled, _ := strconv.ParseBool(c.DefaultQuery("show_cancelled", "false"))

	query := application.BrowseQuery{
		Warehouse:     c.Query("warehouse"),
		Page:          page,
		PageSize:      pageSize,
		ShowCancelled: showCancelled,
	}

	result, err := h.records.Browse(c.Request.Context(), session, query)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, browseResponse(result))
}

// Export handles GET /api/v1/scan-records/export
func (h *RecordHandlers) Export(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	session, ok := SessionFromContext(c)
	if !ok {
		responder.RespondUnauthorized("missing session")
		return
	}

	warehouse := c.Query("warehouse")
	if warehouse == "" {
		responder.RespondWithAppError(errors.ErrValidation("warehouse is required"))
		return
	}

	payload, err := h.records.ExportCSV(c.Request.Context(), session, warehouse)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	filename := fmt.Sprintf("stale_scan_records_%s_%s.csv", warehouse, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// SyncWarehouse handles POST /api/v1/stale-records/sync/:warehouse
func (h *RecordHandlers) SyncWarehouse(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	session, ok := SessionFromContext(c)
	if !ok {
		responder.RespondUnauthorized("missing session")
		return
	}

	warehouse := c.Param("warehouse")
	if !domain.IsKnownWarehouse(warehouse) {
		responder.RespondWithAppError(errors.ErrValidation("unknown warehouse: " + warehouse))
		return
	}

	result, err := h.records.SyncWarehouse(c.Request.Context(), session, warehouse)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StaleRecords handles GET /api/v1/stale-records. With sync=true it syncs the
// caller's visible warehouses (or one warehouse) first; otherwise it lists
// previously synced records.
func (h *RecordHandlers) StaleRecords(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	session, ok := SessionFromContext(c)
	if !ok {
		responder.RespondUnauthorized("missing session")
		return
	}

	if sync, _ := strconv.ParseBool(c.DefaultQuery("sync", "false")); sync {
		h.syncAndRespond(c, responder, session)
		return
	}

	pageReq := api.ParsePagination(c)
	sortReq := api.ParseSort(c, domain.SortKey)

	records, total, err := h.records.ListStored(
		c.Request.Context(),
		session,
		c.Query("warehouse"),
		pageReq.Page,
		pageReq.PageSize,
		sortReq.Field,
		sortReq.GetMongoSort(),
	)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(records, pageReq.Page, pageReq.PageSize, total))
}

func (h *RecordHandlers) syncAndRespond(c *gin.Context, responder *middleware.ErrorResponder, session domain.Session) {
	if warehouse := c.Query("warehouse"); warehouse != "" {
		result, err := h.records.SyncWarehouse(c.Request.Context(), session, warehouse)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": []application.SyncResultDTO{*result}})
		return
	}

	results := h.records.SyncAll(c.Request.Context(), session)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// StoredStats handles GET /api/v1/stale-records/stats
func (h *RecordHandlers) StoredStats(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stats, err := h.records.StoredStats(c.Request.Context())
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": stats})
}

// Warehouses handles GET /api/v1/warehouses
func (h *RecordHandlers) Warehouses(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	session, ok := SessionFromContext(c)
	if !ok {
		responder.RespondUnauthorized("missing session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"warehouses": h.records.Warehouses(session.Identity)})
}

// browseResponse preserves the upstream's pagination view instead of
// recomputing it.
func browseResponse(result *domain.PageResult) gin.H {
	records := result.Records
	if records == nil {
		records = []domain.ScanRecord{}
	}
	return gin.H{
		"data":        records,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	}
}
