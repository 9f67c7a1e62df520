package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type likeRequest struct {
	UserID flexibleID `json:"user_id"`
	PostID flexibleID `json:"post_id"`
}

func (h *Handler) AddLike(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "user_id and post_id are required")
		return
	}

	likeID, err := h.engagement.AddLike(c.Request.Context(), req.UserID.Int64(), req.PostID.Int64())
	if err != nil {
		writeServiceError(c, err, "Internal server error while liking the post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Like added successfully",
		"likeId":  likeID,
	})
}

func (h *Handler) Unlike(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "user_id and post_id are required")
		return
	}

	if err := h.engagement.Unlike(c.Request.Context(), req.UserID.Int64(), req.PostID.Int64()); err != nil {
		writeServiceError(c, err, "Internal server error while unliking the post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Like removed successfully"})
}

func (h *Handler) GetLikes(c *gin.Context) {
	summary, err := h.engagement.GetLikes(c.Request.Context(), parseID(c.Query("post_id")))
	if err != nil {
		writeServiceError(c, err, "Internal server error while getting likes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"totalLikes": summary.TotalLikes,
		"likedBy":    summary.LikedBy,
	})
}
