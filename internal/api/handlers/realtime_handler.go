package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/api/middleware"
	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/realtime"
)

// RealtimeHandler upgrades clients onto the realtime hub
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// RegisterRoutes registers the handler's routes; router must already
// authenticate the caller.
func (h *RealtimeHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", h.Connect)
}

// Connect handles GET /ws
func (h *RealtimeHandler) Connect(c *gin.Context) {
	user := ""
	if claims := middleware.CurrentClaims(c); claims != nil {
		user = claims.Name
	}

	if err := h.hub.Serve(c.Writer, c.Request, user); err != nil {
		if errors.Is(err, realtime.ErrClosed) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ErrorBody{
				Success: false,
				Message: "realtime hub is shutting down",
				Code:    "UNAVAILABLE",
			})
			return
		}
		// The upgrader has already written the handshake error.
		log.Warn().Err(err).Str("user", user).Msg("websocket upgrade failed")
	}
}
