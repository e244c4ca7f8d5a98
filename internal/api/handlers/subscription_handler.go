package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
)

// CallbackTokenHeader carries the shared secret of the payment gateway
const CallbackTokenHeader = "X-Callback-Token"

// SubscriptionHandler serves the payment webhook and the admin sweep
type SubscriptionHandler struct {
	service *services.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// RegisterRoutes registers the webhook route
func (h *SubscriptionHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/webhooks/payment", h.Payment)
}

// RegisterAdminRoutes registers the routes reserved for admins
func (h *SubscriptionHandler) RegisterAdminRoutes(router gin.IRouter) {
	router.POST("/subscriptions/sweep", h.Sweep)
	router.POST("/subscriptions/reminders", h.Reminders)
}

// Payment handles POST /webhooks/payment
func (h *SubscriptionHandler) Payment(c *gin.Context) {
	if !h.service.VerifyWebhookToken(c.GetHeader(CallbackTokenHeader)) {
		log.Warn().Str("client_ip", c.ClientIP()).Msg("payment callback with bad token")
		response.Error(c, apperrors.Unauthorized("invalid callback token"))
		return
	}

	var n services.PaymentNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		response.Error(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	user, err := h.service.HandlePayment(c.Request.Context(), n, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"applied": user != nil,
		"data":    user,
	})
}

// Sweep handles POST /admin/subscriptions/sweep
func (h *SubscriptionHandler) Sweep(c *gin.Context) {
	n, err := h.service.SweepExpired(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deactivated": n})
}

// Reminders handles POST /admin/subscriptions/reminders
func (h *SubscriptionHandler) Reminders(c *gin.Context) {
	report, err := h.service.SendReminders(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, report)
}
