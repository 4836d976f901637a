package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/middleware"
)

func (h *Handler) participantFromClaims(c *gin.Context) domain.Participant {
	return domain.Participant{
		UserID:      userID(c),
		DisplayName: c.GetString(middleware.CtxDisplayName),
		AccessToken: c.GetString(middleware.CtxCatalogToken),
	}
}

func (h *Handler) createSession(c *gin.Context) {
	session, err := h.svc.CreateSession(c.Request.Context(), h.participantFromClaims(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type joinRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) joinSession(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "join code required"}})
		return
	}
	session, err := h.svc.JoinSession(c.Request.Context(), req.Code, h.participantFromClaims(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) mySession(c *gin.Context) {
	session, err := h.svc.GetSessionForUser(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) getSession(c *gin.Context) {
	session, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) leaveSession(c *gin.Context) {
	if err := h.svc.LeaveSession(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (h *Handler) updateSettings(c *gin.Context) {
	var settings domain.SessionSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "invalid settings payload"}})
		return
	}
	session, err := h.svc.UpdateSettings(c.Request.Context(), c.Param("id"), userID(c), settings)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type djRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) promoteDJ(c *gin.Context) {
	var req djRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "user_id required"}})
		return
	}
	session, err := h.svc.PromoteDJ(c.Request.Context(), c.Param("id"), userID(c), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) demoteDJ(c *gin.Context) {
	session, err := h.svc.DemoteDJ(c.Request.Context(), c.Param("id"), userID(c), c.Param("userID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
