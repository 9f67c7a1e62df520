package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"socialfeed/internal/media"
	"socialfeed/internal/middleware"
	"socialfeed/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// CreatePost accepts multipart or urlencoded forms with user_id, content and
// either an image file or an imageUrl. Without user_id the token user posts.
func (h *Handler) CreatePost(c *gin.Context) {
	userID := parseID(c.PostForm("user_id"))
	if userID == 0 {
		userID, _ = middleware.UserIDFromContext(c)
	}
	content := strings.TrimSpace(c.PostForm("content"))
	if userID == 0 || content == "" {
		if requestTooLarge(c) {
			writeFailure(c, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
			return
		}
		writeFailure(c, http.StatusBadRequest, "user_id and content are required.")
		return
	}

	var image *string
	if imageURL := strings.TrimSpace(c.PostForm("imageUrl")); imageURL != "" {
		image = &imageURL
	}

	storedName, ok := h.saveImage(c)
	if !ok {
		return
	}
	if storedName != "" {
		image = &storedName
	}

	postID, err := h.feed.CreatePost(c.Request.Context(), userID, content, image)
	if err != nil {
		if storedName != "" {
			h.removeImage(storedName)
		}
		writeServiceError(c, err, "Internal server error while creating post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Post created successfully",
		"postId":  postID,
		"image":   image,
	})
}

// saveImage stores the optional "image" file. It returns "" when none was
// sent and false when a response has already been written.
func (h *Handler) saveImage(c *gin.Context) (string, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			monitoring.RecordUpload(0, 0, false, "file_too_large")
			writeFailure(c, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error())
			return "", false
		}
		monitoring.RecordUpload(0, 0, false, "file_read_error")
		writeFailure(c, http.StatusBadRequest, "Error reading uploaded file")
		return "", false
	}

	startedAt := time.Now()
	stored, err := h.images.Save(header)
	if err != nil {
		monitoring.RecordUpload(header.Size, time.Since(startedAt), false, uploadFailureReason(err))
		switch {
		case errors.Is(err, media.ErrTooManyUploads):
			writeFailure(c, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, media.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success":          false,
				"message":          err.Error(),
				"max_upload_bytes": h.images.MaxBytes(),
			})
		case media.IsClientError(err):
			writeFailure(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("request_id=%s upload_error=%q", middleware.RequestIDFromContext(c), err.Error())
			writeFailure(c, http.StatusInternalServerError, "Error storing uploaded image")
		}
		return "", false
	}

	monitoring.RecordUpload(stored.Size, time.Since(startedAt), true, "")
	return stored.Name, true
}

func (h *Handler) removeImage(name string) {
	if err := os.Remove(filepath.Join(h.images.Dir(), name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("upload_cleanup_error=%q name=%s", err.Error(), name)
	}
}

func uploadFailureReason(err error) string {
	switch {
	case errors.Is(err, media.ErrTooManyUploads):
		return "parallel_upload_limit"
	case errors.Is(err, media.ErrTooLarge):
		return "file_too_large"
	case errors.Is(err, media.ErrNotImage):
		return "unsupported_mime"
	case errors.Is(err, media.ErrEmpty):
		return "file_empty"
	default:
		return "storage_error"
	}
}

// requestTooLarge reports whether form parsing hit the body limit.
func requestTooLarge(c *gin.Context) bool {
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		return errors.As(err, &tooLarge)
	}
	return false
}

// GetPosts serves the feed: every post not authored by the viewer. The
// viewer is ?user_id=, else the bearer token's user, else anonymous.
func (h *Handler) GetPosts(c *gin.Context) {
	viewerID := parseID(c.Query("user_id"))
	if viewerID == 0 {
		viewerID, _ = middleware.UserIDFromContext(c)
	}

	posts, err := h.feed.GetPosts(c.Request.Context(), viewerID)
	if err != nil {
		writeServiceError(c, err, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts})
}

func (h *Handler) GetMyPosts(c *gin.Context) {
	viewerID, _ := middleware.UserIDFromContext(c)

	posts, err := h.feed.GetMyPosts(c.Request.Context(), viewerID)
	if err != nil {
		writeServiceError(c, err, "Error fetching my posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts})
}

// GetPostsByUserID lists one user's posts. The viewer is the bearer token's
// user, else ?viewer_id=, else anonymous.
func (h *Handler) GetPostsByUserID(c *gin.Context) {
	viewerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		viewerID = parseID(c.Query("viewer_id"))
	}

	posts, err := h.feed.GetPostsByUserID(c.Request.Context(), parseID(c.Param("userId")), viewerID)
	if err != nil {
		writeServiceError(c, err, "Error fetching posts by user ID")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts})
}
