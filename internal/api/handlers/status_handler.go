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

// StatusHandler serves the status barang (goods status) view
type StatusHandler struct {
	service *services.WorkOrderService
	tracer  tracing.Tracer
}

// NewStatusHandler creates a new status barang handler
func NewStatusHandler(service *services.WorkOrderService, tracer tracing.Tracer) *StatusHandler {
	return &StatusHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *StatusHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/status-barang", h.List)
	router.PATCH("/status-barang/:id", h.Patch)
}

// List handles GET /status-barang?month&year&customer
func (h *StatusHandler) List(c *gin.Context) {
	period, err := services.ParsePeriod(c.Query("month"), c.Query("year"), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, err := h.service.StatusBarang(c.Request.Context(), period, c.Query("customer"))
	if err != nil {
		h.tracer.RecordError(c.Request.Context(), err)
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, rows)
}

// Patch handles PATCH /status-barang/:id
func (h *StatusHandler) Patch(c *gin.Context) {
	id, ok := parseRowID(c, h.tracer)
	if !ok {
		return
	}

	var patch models.WorkOrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	row, err := h.service.PatchStatus(c.Request.Context(), id, patch)
	if err != nil {
		h.tracer.RecordError(c.Request.Context(), err)
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, row)
}
