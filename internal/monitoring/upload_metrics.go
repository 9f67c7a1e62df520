package monitoring

import (
	"maps"
	"slices"
	"sync"
	"time"
)

type UploadStats struct {
	RequestsTotal    uint64            `json:"requests_total"`
	FailedTotal      uint64            `json:"failed_total"`
	BytesTotal       int64             `json:"bytes_total"`
	AvgDurationMS    float64           `json:"avg_duration_ms"`
	FailuresByReason map[string]uint64 `json:"failures_by_reason"`
}

// uploadCounters aggregates image upload attempts for the process lifetime.
type uploadCounters struct {
	mu       sync.Mutex
	attempts uint64
	failed   uint64
	bytes    int64
	elapsed  time.Duration
	reasons  map[string]uint64
}

var imageUploads = &uploadCounters{reasons: map[string]uint64{}}

// RecordUpload counts one image upload attempt. reason is ignored on success.
func RecordUpload(bytes int64, duration time.Duration, success bool, reason string) {
	imageUploads.record(bytes, duration, success, reason)
}

func (u *uploadCounters) record(bytes int64, duration time.Duration, success bool, reason string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.attempts++
	u.bytes += max(bytes, 0)
	u.elapsed += max(duration, 0)
	if success {
		return
	}
	u.failed++
	if reason == "" {
		reason = "unknown"
	}
	u.reasons[reason]++
}

func (u *uploadCounters) stats() UploadStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	stats := UploadStats{
		RequestsTotal:    u.attempts,
		FailedTotal:      u.failed,
		BytesTotal:       u.bytes,
		FailuresByReason: maps.Clone(u.reasons),
	}
	if u.attempts > 0 {
		stats.AvgDurationMS = float64(u.elapsed.Microseconds()) / float64(u.attempts) / 1000
	}
	return stats
}

func getUploadStats() UploadStats {
	return imageUploads.stats()
}

func sortedReasons(reasons map[string]uint64) []string {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
