package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

type addTrackRequest struct {
	Track domain.Track `json:"track" binding:"required"`
}

func (h *Handler) addTrack(c *gin.Context) {
	var req addTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "track payload required"}})
		return
	}
	session, err := h.svc.AddTrack(c.Request.Context(), c.Param("id"), userID(c), req.Track)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) removeTrack(c *gin.Context) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "position must be an integer"}})
		return
	}
	session, err := h.svc.RemoveTrack(c.Request.Context(), c.Param("id"), userID(c), position)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *Handler) reorderTrack(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "from and to required"}})
		return
	}
	session, err := h.svc.ReorderTrack(c.Request.Context(), c.Param("id"), userID(c), req.From, req.To)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) advancePlayback(c *gin.Context) {
	session, err := h.svc.AdvancePlayback(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) skipTrack(c *gin.Context) {
	session, err := h.svc.SkipTrack(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) voteSkip(c *gin.Context) {
	session, err := h.svc.VoteSkip(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type likeRequest struct {
	TrackID string `json:"track_id" binding:"required"`
}

func (h *Handler) voteLike(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "track_id required"}})
		return
	}
	session, err := h.svc.VoteLike(c.Request.Context(), c.Param("id"), userID(c), req.TrackID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) searchTracks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	tracks, err := h.svc.SearchTracks(c.Request.Context(), c.Param("id"), userID(c), c.Query("q"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}
