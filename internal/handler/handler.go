// Package handler maps the HTTP API onto the service layer. Handlers stay
// thin: bind, call, respond.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/middleware"
	"github.com/whatisboom/blendroom-sub001/internal/service"
)

// Handler serves the session API.
type Handler struct {
	svc *service.Service
	log logger.Logger
}

// New creates a handler.
func New(svc *service.Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the API under the given authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("", h.createSession)
		sessions.POST("/join", h.joinSession)
		sessions.GET("/me", h.mySession)
		sessions.GET("/:id", h.getSession)
		sessions.POST("/:id/leave", h.leaveSession)
		sessions.PUT("/:id/settings", h.updateSettings)
		sessions.POST("/:id/djs", h.promoteDJ)
		sessions.DELETE("/:id/djs/:userID", h.demoteDJ)

		sessions.POST("/:id/queue", h.addTrack)
		sessions.DELETE("/:id/queue/:position", h.removeTrack)
		sessions.PUT("/:id/queue/reorder", h.reorderTrack)

		sessions.POST("/:id/playback/next", h.advancePlayback)
		sessions.POST("/:id/playback/skip", h.skipTrack)

		sessions.POST("/:id/votes/skip", h.voteSkip)
		sessions.POST("/:id/votes/like", h.voteLike)

		sessions.GET("/:id/search", h.searchTracks)
	}
}

// Health responds to liveness probes. Mounted outside the auth group.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperrors.GetHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			logger.String("request_id", c.GetString(middleware.CtxRequestID)),
			logger.String("path", c.Request.URL.Path),
			logger.Error(err))
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    apperrors.GetCode(err),
			"message": err.Error(),
		},
	})
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}
