package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type followRequest struct {
	FollowerID  flexibleID `json:"follower_id"`
	FollowingID flexibleID `json:"following_id"`
}

func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "follower_id and following_id are required")
		return
	}

	followID, err := h.graph.Follow(c.Request.Context(), req.FollowerID.Int64(), req.FollowingID.Int64())
	if err != nil {
		writeServiceError(c, err, "Internal server error while following user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Followed successfully",
		"followId": followID,
	})
}

func (h *Handler) Unfollow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "follower_id and following_id are required")
		return
	}

	if err := h.graph.Unfollow(c.Request.Context(), req.FollowerID.Int64(), req.FollowingID.Int64()); err != nil {
		writeServiceError(c, err, "Internal server error while unfollowing user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unfollowed successfully"})
}

func (h *Handler) GetFollowers(c *gin.Context) {
	followers, err := h.graph.GetFollowers(c.Request.Context(), parseID(c.Query("user_id")))
	if err != nil {
		writeServiceError(c, err, "Internal server error while getting followers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "followers": followers})
}

func (h *Handler) GetFollowing(c *gin.Context) {
	following, err := h.graph.GetFollowing(c.Request.Context(), parseID(c.Query("user_id")))
	if err != nil {
		writeServiceError(c, err, "Internal server error while getting following")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "following": following})
}
