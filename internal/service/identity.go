package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"socialfeed/internal/database"
	"socialfeed/internal/models"
	"socialfeed/internal/utils"
)

const minPasswordLength = 6

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

// IdentityService handles registration, login and user lookup.
type IdentityService struct {
	db     database.Querier
	tokens *utils.TokenIssuer
}

func NewIdentityService(db database.Querier, tokens *utils.TokenIssuer) *IdentityService {
	return &IdentityService{db: db, tokens: tokens}
}

// NormalizeEmail trims and lower-cases an email; uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if username == "" || email == "" || password == "" {
		return nil, NewValidationError("Please provide username, email, and password")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, NewValidationError(fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	if len(password) > utils.MaxPasswordBytes {
		return nil, NewValidationError(fmt.Sprintf("Password must be at most %d bytes long", utils.MaxPasswordBytes))
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.UserSummary{Username: username, Email: email}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id`,
		username, email, hashed,
	).Scan(&user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, NewConflictError("User already exists with this email")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login distinguishes an unknown email from a wrong password in its messages.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, NewValidationError("Please provide email and password")
	}

	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password FROM users WHERE lower(email) = $1`,
		email,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUnauthorizedError("Email is invalid")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, NewUnauthorizedError("Password is invalid")
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &AuthResult{
		User:  models.UserSummary{ID: user.ID, Username: user.Username, Email: user.Email},
		Token: token,
	}, nil
}

// SearchUsers matches query as a case-insensitive substring of username or email.
func (s *IdentityService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("Please provide a search query")
	}
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email
		FROM users
		WHERE lower(username) LIKE $1 OR lower(email) LIKE $1
		ORDER BY username ASC, id ASC
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return scanUserSummaries(rows)
}

func (s *IdentityService) GetUser(ctx context.Context, userID int64) (*models.UserSummary, error) {
	if userID <= 0 {
		return nil, NewValidationError("Invalid user ID")
	}

	var user models.UserSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// scanUserSummaries drains rows of (id, username, email); the result is never nil.
func scanUserSummaries(rows *sql.Rows) ([]models.UserSummary, error) {
	defer rows.Close()

	users := make([]models.UserSummary, 0)
	for rows.Next() {
		var user models.UserSummary
		if err := rows.Scan(&user.ID, &user.Username, &user.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
