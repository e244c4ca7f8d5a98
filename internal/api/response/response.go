// Package response writes the JSON envelopes shared by every endpoint.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
)

// ErrorBody is the shape of every failed response
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// OK writes {success: true, data}
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// Error writes the error envelope and aborts the chain. Store failures are
// logged with detail; the client only sees the generic message.
func Error(c *gin.Context, err error) {
	status := apperrors.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{
		Success: false,
		Message: apperrors.Message(err),
		Code:    string(apperrors.KindOf(err)),
	})
}
