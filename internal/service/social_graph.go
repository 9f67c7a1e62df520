package service

import (
	"context"
	"fmt"

	"socialfeed/internal/database"
	"socialfeed/internal/models"
)

// SocialGraphService manages directed follow edges between users.
// Self-follow is not rejected.
type SocialGraphService struct {
	db database.Querier
}

func NewSocialGraphService(db database.Querier) *SocialGraphService {
	return &SocialGraphService{db: db}
}

func (s *SocialGraphService) Follow(ctx context.Context, followerID, followingID int64) (int64, error) {
	if followerID <= 0 || followingID <= 0 {
		return 0, NewValidationError("follower_id and following_id are required")
	}

	var followID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO followers (follower_id, following_id) VALUES ($1, $2) RETURNING id`,
		followerID, followingID,
	).Scan(&followID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, NewConflictError("You are already following this user")
		}
		if database.IsForeignKeyViolation(err) {
			return 0, missingReference(err)
		}
		return 0, fmt.Errorf("insert follow: %w", err)
	}
	return followID, nil
}

func (s *SocialGraphService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	if followerID <= 0 || followingID <= 0 {
		return NewValidationError("follower_id and following_id are required")
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return requireAffected(result, "Follow relation not found")
}

// GetFollowers lists the users following userID.
func (s *SocialGraphService) GetFollowers(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	if userID <= 0 {
		return nil, NewValidationError("user_id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email
		FROM followers f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	return scanUserSummaries(rows)
}

// GetFollowing lists the users userID follows.
func (s *SocialGraphService) GetFollowing(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	if userID <= 0 {
		return nil, NewValidationError("user_id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email
		FROM followers f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query following: %w", err)
	}
	return scanUserSummaries(rows)
}
