package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/auth"
)

// ClaimsKey holds the verified token claims in the gin context
const ClaimsKey = "auth_claims"

// Verifier checks a bearer token
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token. With allowQuery the token may also
// come from the "token" query parameter, which browsers need for websockets.
func Auth(verifier Verifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token, err = c.Query("token"), nil
		}
		if err != nil {
			response.Error(c, err)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected bearer token")
			response.Error(c, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, apperrors.Unauthorized("authentication required"))
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		log.Warn().Uint("user_id", claims.ID).Str("role", claims.Role).Strs("required", roles).Msg("insufficient role")
		response.Error(c, apperrors.Forbidden("insufficient permissions"))
	}
}

// CurrentClaims returns the claims stored by Auth, nil when absent
func CurrentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.Unauthorized("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.Unauthorized("invalid authorization header format, expected 'Bearer {token}'")
	}
	return strings.TrimSpace(parts[1]), nil
}
