// Package middleware holds the gin middleware for the API surface.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/jwt"
	"github.com/whatisboom/blendroom-sub001/pkg/limiter"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"
)

// Gin context keys set by the middleware.
const (
	CtxUserID       = "user_id"
	CtxDisplayName  = "display_name"
	CtxCatalogToken = "catalog_token"
	CtxRequestID    = "request_id"
)

// RequestID tags every request with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs each request with latency and status.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			logger.String("request_id", c.GetString(CtxRequestID)),
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()))
	}
}

// Auth validates the bearer token and stores its claims on the context.
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		claims, err := manager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxDisplayName, claims.DisplayName)
		c.Set(CtxCatalogToken, claims.CatalogToken)
		c.Next()
	}
}

// IPRateLimit rejects requests from IPs over the limit. Redis trouble fails
// open; throttling is protection, not a correctness requirement.
func IPRateLimit(ipl *limiter.IPRateLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := ipl.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limit check failed, allowing request",
				logger.String("ip", c.ClientIP()),
				logger.Error(err))
			c.Next()
			return
		}
		if !allowed {
			abortWithError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// CORS permits browser clients to call the API.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.GetHTTPStatus(err), gin.H{
		"error": gin.H{
			"code":    apperrors.GetCode(err),
			"message": err.Error(),
		},
	})
}
