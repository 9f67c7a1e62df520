package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"socialfeed/internal/database"
	"socialfeed/internal/models"
)

// EngagementService manages likes and comments on posts.
type EngagementService struct {
	db database.Querier
}

func NewEngagementService(db database.Querier) *EngagementService {
	return &EngagementService{db: db}
}

// AddLike records a like. The (user_id, post_id) unique constraint is the only
// duplicate check, so concurrent identical requests cannot both succeed.
func (s *EngagementService) AddLike(ctx context.Context, userID, postID int64) (int64, error) {
	if userID <= 0 || postID <= 0 {
		return 0, NewValidationError("user_id and post_id are required")
	}

	var likeID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO likes (user_id, post_id) VALUES ($1, $2) RETURNING id`,
		userID, postID,
	).Scan(&likeID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, NewConflictError("You already liked this post")
		}
		if database.IsForeignKeyViolation(err) {
			return 0, missingReference(err)
		}
		return 0, fmt.Errorf("insert like: %w", err)
	}
	return likeID, nil
}

func (s *EngagementService) Unlike(ctx context.Context, userID, postID int64) error {
	if userID <= 0 || postID <= 0 {
		return NewValidationError("user_id and post_id are required")
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return requireAffected(result, "Like not found")
}

func (s *EngagementService) GetLikes(ctx context.Context, postID int64) (*models.LikesSummary, error) {
	if postID <= 0 {
		return nil, NewValidationError("post_id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.post_id = $1
		ORDER BY l.created_at ASC, l.id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}

	users, err := scanUserSummaries(rows)
	if err != nil {
		return nil, err
	}
	return &models.LikesSummary{TotalLikes: len(users), LikedBy: users}, nil
}

func (s *EngagementService) AddComment(ctx context.Context, userID, postID int64, content string) (int64, error) {
	content = strings.TrimSpace(content)
	if userID <= 0 || postID <= 0 || content == "" {
		return 0, NewValidationError("user_id, post_id, and content are required")
	}

	var commentID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO comments (user_id, post_id, content) VALUES ($1, $2, $3) RETURNING id`,
		userID, postID, content,
	).Scan(&commentID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, missingReference(err)
		}
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return commentID, nil
}

// GetComments returns the thread of a post, newest first.
func (s *EngagementService) GetComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	if postID <= 0 {
		return nil, NewValidationError("post_id is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.UserID,
			&comment.Username,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// missingReference maps a foreign key violation to the entity that does not exist.
func missingReference(err error) error {
	switch database.ConstraintName(err) {
	case database.ConstraintLikesPostFK, database.ConstraintCommentsPostFK:
		return NewNotFoundError("Post not found")
	case database.ConstraintFollowersFollowing:
		return NewNotFoundError("User to follow not found")
	case database.ConstraintPostsUserFK, database.ConstraintCommentsUserFK,
		database.ConstraintLikesUserFK, database.ConstraintFollowersFollowerFK:
		return NewNotFoundError("User not found")
	default:
		// unnamed constraint, e.g. from a schema created before constraints were named
		return NewNotFoundError("User not found")
	}
}

// requireAffected turns a zero-row DELETE into a not-found error.
func requireAffected(result sql.Result, notFoundMessage string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return NewNotFoundError(notFoundMessage)
	}
	return nil
}
