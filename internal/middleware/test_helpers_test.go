package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

const testJWTSecret = "socialfeed_test_jwt_secret_key_1234567890"

func newTestTokens(t *testing.T) *utils.TokenIssuer {
	t.Helper()
	tokens, err := utils.NewTokenIssuer(testJWTSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return tokens
}

func newTestRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares...)
	return router
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
	return body
}

func mustStatus(t *testing.T, actual int, expected int) {
	t.Helper()
	if actual != expected {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}
