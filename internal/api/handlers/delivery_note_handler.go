package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

// DeliveryNoteHandler records surat jalan (delivery notes)
type DeliveryNoteHandler struct {
	service *services.DeliveryNoteService
	tracer  tracing.Tracer
}

// NewDeliveryNoteHandler creates a new delivery note handler
func NewDeliveryNoteHandler(service *services.DeliveryNoteService, tracer tracing.Tracer) *DeliveryNoteHandler {
	return &DeliveryNoteHandler{service: service, tracer: tracer}
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryNoteHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/surat-jalan", h.Create)
}

// Create handles POST /surat-jalan
func (h *DeliveryNoteHandler) Create(c *gin.Context) {
	var in services.DeliveryNoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	result, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.tracer.RecordError(c.Request.Context(), err)
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, result)
}
