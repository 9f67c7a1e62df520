package service

import (
	"database/sql"
	"testing"

	"socialfeed/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
)

const testJWTSecret = "socialfeed_test_jwt_secret_key_1234567890"

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestTokens(t *testing.T) *utils.TokenIssuer {
	t.Helper()
	tokens, err := utils.NewTokenIssuer(testJWTSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return tokens
}

func expectCode(t *testing.T, err error, code ErrorCode, message string) {
	t.Helper()
	serviceErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected service error %s, got %v", code, err)
	}
	if serviceErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, serviceErr.Code, serviceErr.Message)
	}
	if message != "" && serviceErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, serviceErr.Message)
	}
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
