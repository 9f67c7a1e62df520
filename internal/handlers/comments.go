package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addCommentRequest struct {
	PostID  flexibleID `json:"post_id"`
	UserID  flexibleID `json:"user_id"`
	Content string     `json:"content"`
}

func (h *Handler) AddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "user_id, post_id, and content are required")
		return
	}

	commentID, err := h.engagement.AddComment(c.Request.Context(), req.UserID.Int64(), req.PostID.Int64(), req.Content)
	if err != nil {
		writeServiceError(c, err, "Internal server error while adding comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Comment added successfully",
		"commentId": commentID,
	})
}

// GetComments returns a post's comments, newest first.
func (h *Handler) GetComments(c *gin.Context) {
	comments, err := h.engagement.GetComments(c.Request.Context(), parseID(c.Query("post_id")))
	if err != nil {
		writeServiceError(c, err, "Internal server error while getting comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "comments": comments})
}
