package handlers

import (
	"cmp"
	"crypto/subtle"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MonitoringGuard requires X-Monitoring-Key to match the configured key.
// Without a configured key the monitoring API is disabled.
func (h *Handler) MonitoringGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(h.monitorKey)
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Monitoring API is disabled"})
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Monitoring-Key"))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid monitoring key"})
			return
		}
		c.Next()
	}
}

func (h *Handler) MonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.StatusText(c.Request.Context())})
}

func (h *Handler) MonitorStorage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.StorageText(c.Request.Context())})
}

func (h *Handler) MonitorConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.ConnectionsText()})
}

func (h *Handler) MonitorUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.UsersText(c.Request.Context())})
}

func (h *Handler) MonitorAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.AllText(c.Request.Context())})
}

func (h *Handler) MonitorRuntime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.RuntimeText()})
}

func (h *Handler) MonitorHelp(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": h.monitor.HelpText()})
}

func (h *Handler) MonitorSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Snapshot(c.Request.Context()))
}

type monitorUserItem struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	PostsCount     int64     `json:"posts_count"`
	FollowersCount int64     `json:"followers_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MonitorUsersList pages through users, newest first, with activity counts.
func (h *Handler) MonitorUsersList(c *gin.Context) {
	ctx := c.Request.Context()
	window := parsePageWindow(c.Query("page"), c.Query("limit"), 8)

	var total int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		writeServiceError(c, err, "Failed to load users count")
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT
			u.id, u.email, u.username, u.created_at,
			(SELECT COUNT(*) FROM posts p WHERE p.user_id = u.id),
			(SELECT COUNT(*) FROM followers f WHERE f.following_id = u.id)
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT $1 OFFSET $2
	`, window.Limit, window.Offset())
	if err != nil {
		writeServiceError(c, err, "Failed to load users list")
		return
	}
	defer rows.Close()

	users := make([]monitorUserItem, 0, window.Limit)
	for rows.Next() {
		var u monitorUserItem
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt, &u.PostsCount, &u.FollowersCount); err != nil {
			writeServiceError(c, err, "Failed to scan users list")
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		writeServiceError(c, err, "Failed to load users list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":        window.Page,
		"limit":       window.Limit,
		"total_users": total,
		"total_pages": window.TotalPages(total),
		"users":       users,
	})
}

type monitorFileItem struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// MonitorFilesList pages through stored images, largest first.
func (h *Handler) MonitorFilesList(c *gin.Context) {
	files, err := h.storedImages()
	if err != nil {
		writeServiceError(c, err, "Failed to list stored images")
		return
	}
	slices.SortFunc(files, func(a, b monitorFileItem) int {
		if c := cmp.Compare(b.SizeBytes, a.SizeBytes); c != 0 {
			return c
		}
		if c := b.ModifiedAt.Compare(a.ModifiedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	listed, window := slicePage(files, parsePageWindow(c.Query("page"), c.Query("limit"), 10))
	c.JSON(http.StatusOK, gin.H{
		"page":        window.Page,
		"limit":       window.Limit,
		"total_files": len(files),
		"total_pages": window.TotalPages(len(files)),
		"files":       listed,
	})
}

// storedImages lists the top-level files of the image directory. Dotfiles are
// uploads still in progress.
func (h *Handler) storedImages() ([]monitorFileItem, error) {
	entries, err := os.ReadDir(h.images.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []monitorFileItem{}, nil
		}
		return nil, err
	}

	files := make([]monitorFileItem, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, monitorFileItem{
			Name:       entry.Name(),
			URL:        h.images.URL(entry.Name()),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	return files, nil
}
