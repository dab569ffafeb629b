package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/auth"
)

// userIDKey is where BearerAuth stores the verified subject.
const userIDKey = "userID"

// TokenVerifier checks a raw bearer token. *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// BearerAuth rejects requests without a valid bearer token. On success the
// token subject is stored under "userID" and added to the request logger.
func BearerAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := auth.FromHeader(c.GetHeader("Authorization"))
		if err == nil {
			var claims *auth.Claims
			if claims, err = v.Verify(tok); err == nil {
				c.Set(userIDKey, claims.Subject)
				attachLogger(c, LoggerFrom(c).With().Str("user_id", claims.Subject).Logger())
				c.Next()
				return
			}
		}

		LoggerFrom(c).Debug().Err(err).Msg("bearer auth rejected")
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success":    false,
			"error":      "authentication required",
			"code":       "unauthorized",
			"request_id": GetRequestID(c),
		})
	}
}

// UserID returns the authenticated caller, or "" outside BearerAuth.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}
