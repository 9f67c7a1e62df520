package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialfeed/internal/config"
	"socialfeed/internal/media"
	"socialfeed/internal/middleware"
	"socialfeed/internal/monitoring"
	"socialfeed/internal/service"
	"socialfeed/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

const (
	testJWTSecret     = "socialfeed_test_jwt_secret_key_1234567890"
	testMonitoringKey = "monitor-key"
)

type testEnv struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	tokens  *utils.TokenIssuer
	handler *Handler
	router  *gin.Engine
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock := setupMockDB(t)
	tokens, err := utils.NewTokenIssuer(testJWTSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	uploadsDir := t.TempDir()
	images, err := media.NewStore(config.UploadConfig{
		Path:         uploadsDir,
		URLPrefix:    "/uploads",
		MaxSizeBytes: 1024,
		MaxParallel:  2,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	handler := New(Deps{
		DB:         db,
		Identity:   service.NewIdentityService(db, tokens),
		Engagement: service.NewEngagementService(db),
		Graph:      service.NewSocialGraphService(db),
		Feed:       service.NewFeedService(db),
		Images:     images,
		Monitor:    monitoring.NewService(time.Now(), db, uploadsDir),
		Monitoring: config.MonitoringConfig{APIKey: testMonitoringKey},
	})

	return &testEnv{
		db:      db,
		mock:    mock,
		tokens:  tokens,
		handler: handler,
		router:  newTestRouter(handler, tokens),
	}
}

// newTestRouter mirrors the production route table without rate limiting.
func newTestRouter(h *Handler, tokens *utils.TokenIssuer) *gin.Engine {
	router := gin.New()
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/users/search", h.SearchUsers)
	api.GET("/users/:id", h.GetUser)
	api.POST("/users/register", h.Register)
	api.POST("/users/login", h.Login)

	posts := api.Group("/posts", middleware.OptionalAuth(tokens))
	posts.POST("/add", h.CreatePost)
	posts.GET("/all", h.GetPosts)
	posts.GET("/user/:userId", h.GetPostsByUserID)
	api.GET("/posts/me", middleware.AuthMiddleware(tokens), h.GetMyPosts)

	api.POST("/comments/addComment", h.AddComment)
	api.GET("/comments/getComments", h.GetComments)
	api.POST("/likes/addLike", h.AddLike)
	api.POST("/likes/unlike", h.Unlike)
	api.GET("/likes/getLikes", h.GetLikes)
	api.POST("/follow/follow", h.Follow)
	api.POST("/follow/unfollow", h.Unfollow)
	api.GET("/follow/followers", h.GetFollowers)
	api.GET("/follow/following", h.GetFollowing)

	monitor := api.Group("/monitor", h.MonitoringGuard())
	monitor.GET("/snapshot", h.MonitorSnapshot)
	monitor.GET("/users-list", h.MonitorUsersList)
	monitor.GET("/files", h.MonitorFilesList)
	return router
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) get(path string, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.tokens.Generate(userID, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return token
}

func (e *testEnv) expectationsMet(t *testing.T) {
	t.Helper()
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal %q: %v", recorder.Body.String(), err)
	}
	return out
}

func expectFailure(t *testing.T, recorder *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	mustStatus(t, recorder.Code, status)
	out := decodeBody(t, recorder)
	if out["success"] != false {
		t.Fatalf("expected success=false, got %v", out)
	}
	if message != "" && out["message"] != message {
		t.Fatalf("expected message %q, got %v", message, out["message"])
	}
}

func mustStatus(t *testing.T, actual int, expected int) {
	t.Helper()
	if actual != expected {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}
