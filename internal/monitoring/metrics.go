package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// countedTables are the tables reported in snapshots, in report order.
var countedTables = []string{"users", "posts", "comments", "likes", "followers"}

// Service builds operator reports from the database pool, the uploads
// directory and the process counters.
type Service struct {
	startedAt  time.Time
	db         *sql.DB
	uploadsDir string
}

type Snapshot struct {
	TimestampUTC        string           `json:"timestamp_utc"`
	UptimeSeconds       int64            `json:"uptime_seconds"`
	HTTPActiveRequests  int64            `json:"http_active_requests"`
	HTTPTotalRequests   uint64           `json:"http_total_requests"`
	HTTPServerErrors    uint64           `json:"http_server_errors"`
	HTTPRateLimited     uint64           `json:"http_rate_limited"`
	DBOpenConnections   int              `json:"db_open_connections"`
	DBInUseConnections  int              `json:"db_in_use_connections"`
	DBWaitCount         int64            `json:"db_wait_count"`
	Goroutines          int              `json:"goroutines"`
	GoMemoryAllocBytes  uint64           `json:"go_memory_alloc_bytes"`
	GoMemorySysBytes    uint64           `json:"go_memory_sys_bytes"`
	GoHeapInUseBytes    uint64           `json:"go_heap_in_use_bytes"`
	GoGCCount           uint32           `json:"go_gc_count"`
	TableCounts         map[string]int64 `json:"table_counts"`
	Uploads             UploadStats      `json:"uploads"`
	UploadsSizeBytes    int64            `json:"uploads_size_bytes"`
	UploadsFilesCount   int64            `json:"uploads_files_count"`
	UploadsFSTotalBytes uint64           `json:"uploads_fs_total_bytes"`
	UploadsFSFreeBytes  uint64           `json:"uploads_fs_free_bytes"`
}

func NewService(startedAt time.Time, db *sql.DB, uploadsDir string) *Service {
	if uploadsDir == "" {
		uploadsDir = "./uploads"
	}
	return &Service{startedAt: startedAt, db: db, uploadsDir: uploadsDir}
}

// report accumulates the lines of one text section.
type report struct {
	lines []string
}

func newReport(title string) *report {
	return &report{lines: []string{"SocialFeed " + title}}
}

func (r *report) addf(format string, args ...any) *report {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
	return r
}

func (r *report) String() string {
	return strings.Join(r.lines, "\n")
}

func (s *Service) StatusText(ctx context.Context) string {
	database := "ok"
	if err := s.db.PingContext(ctx); err != nil {
		database = "error: " + err.Error()
	}
	requests := getHTTPStats()

	return newReport("Server Status").
		addf("Uptime: %s", time.Since(s.startedAt).Round(time.Second)).
		addf("DB: %s", database).
		addf("HTTP requests: %d active, %d total", requests.Active, requests.Total).
		addf("HTTP 5xx responses: %d", requests.ServerError).
		addf("HTTP 429 responses: %d", requests.RateLimited).
		addf("DB open connections: %d", s.db.Stats().OpenConnections).
		addf("Goroutines: %d", runtime.NumGoroutine()).
		String()
}

func (s *Service) StorageText(ctx context.Context) string {
	var databaseBytes int64
	_ = s.db.QueryRowContext(ctx, `SELECT COALESCE(pg_database_size(current_database()), 0)`).Scan(&databaseBytes)

	images := scanUploads(s.uploadsDir)
	volume := uploadsVolume(s.uploadsDir)
	uploads := getUploadStats()

	out := newReport("Storage").
		addf("Database size: %s", formatBytes(databaseBytes)).
		addf("Images in %s: %d files, %s", s.uploadsDir, images.Files, formatBytes(images.Bytes)).
		addf("Uploads volume: %s free of %s (%s used)",
			formatBytes(int64(volume.FreeBytes)), formatBytes(int64(volume.TotalBytes)), volume.usedText()).
		addf("Image uploads: %d (%d failed, %s received, avg %.2f ms)",
			uploads.RequestsTotal, uploads.FailedTotal, formatBytes(uploads.BytesTotal), uploads.AvgDurationMS)
	for _, reason := range sortedReasons(uploads.FailuresByReason) {
		out.addf("  failed %s: %d", reason, uploads.FailuresByReason[reason])
	}
	return out.String()
}

func (s *Service) ConnectionsText() string {
	pool := s.db.Stats()
	requests := getHTTPStats()

	return newReport("Connections").
		addf("DB pool: %d open of max %d (%d in use, %d idle)",
			pool.OpenConnections, pool.MaxOpenConnections, pool.InUse, pool.Idle).
		addf("DB waits: %d (%s total)", pool.WaitCount, pool.WaitDuration.Round(time.Millisecond)).
		addf("DB closed idle: %d, closed lifetime: %d", pool.MaxIdleClosed, pool.MaxLifetimeClosed).
		addf("HTTP requests: %d active, %d total", requests.Active, requests.Total).
		String()
}

func (s *Service) RuntimeText() string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return newReport("Runtime").
		addf("Go %s on %d CPUs", runtime.Version(), runtime.NumCPU()).
		addf("Goroutines: %d", runtime.NumGoroutine()).
		addf("Heap: %s in use, %s allocated", formatBytes(int64(mem.HeapInuse)), formatBytes(int64(mem.Alloc))).
		addf("Obtained from OS: %s", formatBytes(int64(mem.Sys))).
		addf("GC cycles: %d", mem.NumGC).
		String()
}

func (s *Service) UsersText(ctx context.Context) string {
	counts := s.tableCounts(ctx)

	return newReport("Users").
		addf("Users: %d (%d new in 24h)", counts["users"], s.createdSince(ctx, "users", 24*time.Hour)).
		addf("Posts: %d (%d new in 24h)", counts["posts"], s.createdSince(ctx, "posts", 24*time.Hour)).
		addf("Comments: %d", counts["comments"]).
		addf("Likes: %d", counts["likes"]).
		addf("Follow edges: %d", counts["followers"]).
		String()
}

func (s *Service) HelpText() string {
	return newReport("monitor commands:").
		addf("/status - server status").
		addf("/storage - database size, images on disk and upload counters").
		addf("/connections - DB pool and HTTP requests").
		addf("/runtime - Go runtime").
		addf("/users - users and content stats").
		addf("/users-list - registered users with post and follower counts").
		addf("/files - stored images").
		addf("/all - full report").
		addf("/snapshot - JSON snapshot").
		addf("/help - this help").
		String()
}

func (s *Service) AllText(ctx context.Context) string {
	return strings.Join([]string{
		s.StatusText(ctx),
		s.StorageText(ctx),
		s.ConnectionsText(),
		s.RuntimeText(),
		s.UsersText(ctx),
	}, "\n\n")
}

func (s *Service) Snapshot(ctx context.Context) Snapshot {
	pool := s.db.Stats()
	requests := getHTTPStats()
	images := scanUploads(s.uploadsDir)
	volume := uploadsVolume(s.uploadsDir)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		TimestampUTC:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.startedAt).Seconds()),
		HTTPActiveRequests:  requests.Active,
		HTTPTotalRequests:   requests.Total,
		HTTPServerErrors:    requests.ServerError,
		HTTPRateLimited:     requests.RateLimited,
		DBOpenConnections:   pool.OpenConnections,
		DBInUseConnections:  pool.InUse,
		DBWaitCount:         pool.WaitCount,
		Goroutines:          runtime.NumGoroutine(),
		GoMemoryAllocBytes:  mem.Alloc,
		GoMemorySysBytes:    mem.Sys,
		GoHeapInUseBytes:    mem.HeapInuse,
		GoGCCount:           mem.NumGC,
		TableCounts:         s.tableCounts(ctx),
		Uploads:             getUploadStats(),
		UploadsSizeBytes:    images.Bytes,
		UploadsFilesCount:   images.Files,
		UploadsFSTotalBytes: volume.TotalBytes,
		UploadsFSFreeBytes:  volume.FreeBytes,
	}
}

// tableCounts reports -1 for a table whose count could not be read.
func (s *Service) tableCounts(ctx context.Context) map[string]int64 {
	counts := make(map[string]int64, len(countedTables))
	for _, table := range countedTables {
		var total int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&total); err != nil {
			total = -1
		}
		counts[table] = total
	}
	return counts
}

// createdSince counts rows of table created within window; table must be one of countedTables.
func (s *Service) createdSince(ctx context.Context, table string, window time.Duration) int64 {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at >= $1`,
		time.Now().Add(-window),
	).Scan(&total)
	if err != nil {
		return -1
	}
	return total
}

type uploadsUsage struct {
	Files int64
	Bytes int64
}

// scanUploads sums the stored images under dir. Dotfiles are skipped, which
// leaves out uploads still being written.
func scanUploads(dir string) uploadsUsage {
	var usage uploadsUsage
	_ = filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if info, infoErr := entry.Info(); infoErr == nil {
			usage.Files++
			usage.Bytes += info.Size()
		}
		return nil
	})
	return usage
}

func formatBytes(value int64) string {
	const unit = 1024
	if value < unit {
		return fmt.Sprintf("%d B", value)
	}
	size := float64(value)
	suffixes := "KMGT"
	i := -1
	for size >= unit && i < len(suffixes)-1 {
		size /= unit
		i++
	}
	return fmt.Sprintf("%.2f %cB", size, suffixes[i])
}
