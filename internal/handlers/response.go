package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"socialfeed/internal/middleware"
	"socialfeed/internal/service"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[service.ErrorCode]int{
	service.ErrorCodeValidation:   http.StatusBadRequest,
	service.ErrorCodeUnauthorized: http.StatusUnauthorized,
	service.ErrorCodeConflict:     http.StatusConflict,
	service.ErrorCodeNotFound:     http.StatusNotFound,
	service.ErrorCodeInternal:     http.StatusInternalServerError,
}

// writeServiceError answers with the status of a classified error, or logs
// err and answers 500 with fallback.
func writeServiceError(c *gin.Context, err error, fallback string) {
	if serviceErr, ok := service.AsError(err); ok {
		status, known := statusByCode[serviceErr.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		writeFailure(c, status, serviceErr.Message)
		return
	}

	log.Printf("request_id=%s path=%s error=%q", middleware.RequestIDFromContext(c), c.Request.URL.Path, err.Error())
	writeFailure(c, http.StatusInternalServerError, fallback)
}

func writeFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// flexibleID decodes a JSON number, a numeric string, null or "" (as 0).
type flexibleID int64

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		raw = strings.TrimSpace(text)
		if raw == "" {
			*id = 0
			return nil
		}
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*id = flexibleID(value)
	return nil
}

func (id flexibleID) Int64() int64 {
	return int64(id)
}

// parseID returns 0 for a missing or malformed id; services reject 0.
func parseID(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
