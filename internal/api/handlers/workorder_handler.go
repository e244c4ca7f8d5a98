package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

// WorkOrderHandler handles the work order grid endpoints
type WorkOrderHandler struct {
	service *services.WorkOrderService
	tracer  tracing.Tracer
}

// NewWorkOrderHandler creates a new work order handler
func NewWorkOrderHandler(service *services.WorkOrderService, tracer tracing.Tracer) *WorkOrderHandler {
	return &WorkOrderHandler{service: service, tracer: tracer}
}

// MarkPrintedRequest carries the ids of printed rows. Entries are loose JSON
// values; invalid ones are skipped.
type MarkPrintedRequest struct {
	IDs []interface{} `json:"ids"`
}

// RegisterRoutes registers the handler's routes
func (h *WorkOrderHandler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/workorders")
	group.POST("", h.Create)
	group.GET("/chunk", h.Chunk)
	group.POST("/mark-printed", h.MarkPrinted)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Patch)
	group.DELETE("/:id", h.Delete)
}

// Create handles POST /workorders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var in models.WorkOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	row, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, row)
}

// Get handles GET /workorders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}
	row, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, row)
}

// Chunk handles GET /workorders/chunk?month&year
func (h *WorkOrderHandler) Chunk(c *gin.Context) {
	period, err := services.ParsePeriod(c.Query("month"), c.Query("year"), time.Now())
	if err != nil {
		h.fail(c, err)
		return
	}

	chunk, err := h.service.Chunk(c.Request.Context(), period)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    chunk.Rows,
		"total":   chunk.VirtualSize,
	})
}

// Patch handles PATCH /workorders/:id
func (h *WorkOrderHandler) Patch(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	var patch models.WorkOrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	row, err := h.service.Patch(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, row)
}

// Delete handles DELETE /workorders/:id
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkPrinted handles POST /workorders/mark-printed
func (h *WorkOrderHandler) MarkPrinted(c *gin.Context) {
	var req MarkPrintedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	rows, err := h.service.MarkPrinted(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": len(rows),
		"data":    rows,
	})
}

func (h *WorkOrderHandler) rowID(c *gin.Context) (models.RowID, bool) {
	return parseRowID(c, h.tracer)
}

func (h *WorkOrderHandler) fail(c *gin.Context, err error) {
	h.tracer.RecordError(c.Request.Context(), err)
	response.Error(c, err)
}

func parseRowID(c *gin.Context, tracer tracing.Tracer) (models.RowID, bool) {
	id, err := models.ParseRowID(c.Param("id"))
	if err != nil {
		appErr := apperrors.InvalidRequest("invalid id %q", c.Param("id"))
		tracer.RecordError(c.Request.Context(), appErr)
		response.Error(c, appErr)
		return models.RowID{}, false
	}
	return id, true
}
