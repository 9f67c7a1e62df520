package handlers

import (
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200

	maxMonitorPageLimit = 50
)

// offsetParams is the ?limit=&offset= form used by public list endpoints.
type offsetParams struct {
	Limit  int
	Offset int
}

func parseOffsetParams(rawLimit, rawOffset string, defaultLimit, maxLimit int) offsetParams {
	limit := parsePositiveInt(rawLimit, defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := strconv.Atoi(strings.TrimSpace(rawOffset))
	if err != nil || offset < 0 {
		offset = 0
	}
	return offsetParams{Limit: limit, Offset: offset}
}

// pageWindow is the ?page=&limit= form used by the monitoring lists.
type pageWindow struct {
	Page  int
	Limit int
}

func parsePageWindow(rawPage, rawLimit string, defaultLimit int) pageWindow {
	return pageWindow{
		Page:  parsePositiveInt(rawPage, 1),
		Limit: min(parsePositiveInt(rawLimit, defaultLimit), maxMonitorPageLimit),
	}
}

func (w pageWindow) Offset() int {
	return (w.Page - 1) * w.Limit
}

func (w pageWindow) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + w.Limit - 1) / w.Limit
}

// slicePage returns the requested page of items, clamping the page to the
// last one that exists.
func slicePage[T any](items []T, w pageWindow) ([]T, pageWindow) {
	if pages := w.TotalPages(len(items)); pages > 0 && w.Page > pages {
		w.Page = pages
	}
	start := min(w.Offset(), len(items))
	end := min(start+w.Limit, len(items))
	page := make([]T, 0, end-start)
	return append(page, items[start:end]...), w
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
