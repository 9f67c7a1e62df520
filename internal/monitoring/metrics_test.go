package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		512:             "512 B",
		2048:            "2.00 KB",
		5 * 1024 * 1024: "5.00 MB",
	}
	for input, expected := range cases {
		if got := formatBytes(input); got != expected {
			t.Fatalf("formatBytes(%d) = %q, want %q", input, got, expected)
		}
	}
}

func TestTableCountsReadEveryTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	for i, table := range countedTables {
		query := mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM ` + table))
		if table == "likes" {
			query.WillReturnError(errors.New("relation does not exist"))
			continue
		}
		query.WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(i + 1)))
	}

	service := NewService(time.Now(), db, t.TempDir())
	counts := service.tableCounts(context.Background())

	if counts["users"] != 1 || counts["followers"] != 5 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if counts["likes"] != -1 {
		t.Fatalf("expected -1 for failed count, got %d", counts["likes"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestScanUploadsSkipsIncompleteFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]int{"a.png": 100, "b.jpg": 50, ".incoming-123.png": 400}
	for name, size := range files {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	usage := scanUploads(dir)
	if usage.Files != 2 || usage.Bytes != 150 {
		t.Fatalf("expected 2 files and 150 bytes, got %+v", usage)
	}
	if missing := scanUploads(filepath.Join(dir, "missing")); missing != (uploadsUsage{}) {
		t.Fatalf("expected empty usage for missing dir, got %+v", missing)
	}
}

func TestUsersTextReportsRecentActivity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	for _, table := range countedTables {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM ` + table)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(10)))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE created_at >= $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM posts WHERE created_at >= $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("timeout"))

	text := NewService(time.Now(), db, t.TempDir()).UsersText(context.Background())

	for _, want := range []string{"Users: 10 (3 new in 24h)", "Posts: 10 (-1 new in 24h)", "Follow edges: 10"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in report:\n%s", want, text)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRecordUploadTracksFailureReasons(t *testing.T) {
	before := getUploadStats()

	RecordUpload(1000, 2*time.Millisecond, true, "")
	RecordUpload(0, time.Millisecond, false, "unsupported_mime")
	RecordUpload(0, time.Millisecond, false, "")

	after := getUploadStats()
	if after.RequestsTotal-before.RequestsTotal != 3 {
		t.Fatalf("expected 3 new uploads, got %d", after.RequestsTotal-before.RequestsTotal)
	}
	if after.FailedTotal-before.FailedTotal != 2 {
		t.Fatalf("expected 2 new failures, got %d", after.FailedTotal-before.FailedTotal)
	}
	if after.BytesTotal-before.BytesTotal != 1000 {
		t.Fatalf("expected 1000 new bytes, got %d", after.BytesTotal-before.BytesTotal)
	}
	if after.FailuresByReason["unsupported_mime"]-before.FailuresByReason["unsupported_mime"] != 1 {
		t.Fatalf("unsupported_mime not counted: %+v", after.FailuresByReason)
	}
	if after.FailuresByReason["unknown"]-before.FailuresByReason["unknown"] != 1 {
		t.Fatalf("empty reason not counted as unknown: %+v", after.FailuresByReason)
	}
}

func TestRequestMetricsMiddlewareCountsOutcomes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestMetricsMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/limited", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	before := getHTTPStats()
	for _, path := range []string{"/ok", "/limited", "/broken", "/broken"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := getHTTPStats()

	if after.Total-before.Total != 4 {
		t.Fatalf("expected 4 requests, got %d", after.Total-before.Total)
	}
	if after.RateLimited-before.RateLimited != 1 || after.ServerError-before.ServerError != 2 {
		t.Fatalf("unexpected outcome counters before=%+v after=%+v", before, after)
	}
	if after.Active != 0 {
		t.Fatalf("expected no active requests, got %d", after.Active)
	}
}

func TestHelpTextListsSnapshot(t *testing.T) {
	service := NewService(time.Now(), nil, "")
	if !strings.Contains(service.HelpText(), "/snapshot") {
		t.Fatalf("help text should mention /snapshot")
	}
}

func TestVolumeUsagePercent(t *testing.T) {
	cases := []struct {
		name    string
		volume  volumeUsage
		percent float64
		text    string
	}{
		{name: "unknown", volume: volumeUsage{}, percent: 0, text: "unknown"},
		{name: "empty volume", volume: volumeUsage{Known: true}, percent: 0, text: "0.0%"},
		{name: "quarter used", volume: volumeUsage{TotalBytes: 400, FreeBytes: 300, Known: true}, percent: 25, text: "25.0%"},
		{name: "free above total", volume: volumeUsage{TotalBytes: 100, FreeBytes: 150, Known: true}, percent: 0, text: "0.0%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.volume.usedPercent(); got != tc.percent {
				t.Fatalf("expected %.1f, got %.1f", tc.percent, got)
			}
			if got := tc.volume.usedText(); got != tc.text {
				t.Fatalf("expected %q, got %q", tc.text, got)
			}
		})
	}
}

func TestUploadsVolumeOfMissingPathIsUnknown(t *testing.T) {
	volume := uploadsVolume(filepath.Join(t.TempDir(), "missing"))
	if volume.Known {
		t.Fatalf("expected missing path to report unknown volume, got %+v", volume)
	}
}
