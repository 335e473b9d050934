package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	internalRedis "carpool/internal/redis"
	"carpool/internal/service"
)

// PersistenceWarningHeader is set on responses written while the last
// snapshot write failed.
const PersistenceWarningHeader = "X-Persistence-Warning"

const (
	sessionContextKey = "carpool.session"
	tokenContextKey   = "carpool.token"
)

// SessionMiddleware resolves the bearer token into a service.Session and
// rejects the request when it is missing or unknown.
func SessionMiddleware(store internalRedis.SessionStoreInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		stored, err := store.Get(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, internalRedis.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired or unknown"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}

		c.Set(sessionContextKey, service.Session{
			Username: stored.Username,
			Role:     domain.Role(stored.Role),
		})
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// SessionFrom returns the session set by SessionMiddleware.
func SessionFrom(c *gin.Context) (service.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return service.Session{}, false
	}
	sess, ok := v.(service.Session)
	return sess, ok
}

// TokenFrom returns the bearer token accepted by SessionMiddleware.
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
