package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"socialfeed/internal/database"
	"socialfeed/internal/models"

	"github.com/lib/pq"
)

// feedColumns annotates each post for the viewer bound to $1.
const feedColumns = `
	SELECT
		p.id,
		p.user_id,
		p.content,
		p.image,
		p.created_at,
		u.username,
		u.email,
		(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
		EXISTS (
			SELECT 1 FROM likes l
			WHERE l.post_id = p.id AND l.user_id = $1
		) AS is_liked_by_user,
		EXISTS (
			SELECT 1 FROM followers f
			WHERE f.follower_id = $1 AND f.following_id = p.user_id
		) AS is_following_post_owner
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

const feedOrder = `ORDER BY p.created_at DESC, p.id DESC`

// FeedService composes annotated post lists. Each call pins one pooled
// connection for its sequential reads and releases it on return.
type FeedService struct {
	db *sql.DB
}

func NewFeedService(db *sql.DB) *FeedService {
	return &FeedService{db: db}
}

// GetPosts returns every post not authored by viewerID, newest first.
// viewerID 0 is an anonymous viewer and sees all posts.
func (s *FeedService) GetPosts(ctx context.Context, viewerID int64) ([]models.FeedPost, error) {
	if viewerID < 0 {
		return nil, NewValidationError("Invalid user_id")
	}
	return s.compose(ctx, feedColumns+`WHERE p.user_id <> $1 `+feedOrder, viewerID)
}

// GetMyPosts returns the posts authored by viewerID.
func (s *FeedService) GetMyPosts(ctx context.Context, viewerID int64) ([]models.FeedPost, error) {
	if viewerID <= 0 {
		return nil, NewUnauthorizedError("Access Denied: No token provided")
	}
	return s.compose(ctx, feedColumns+`WHERE p.user_id = $1 `+feedOrder, viewerID)
}

// GetPostsByUserID returns the posts of targetID as seen by viewerID.
func (s *FeedService) GetPostsByUserID(ctx context.Context, targetID, viewerID int64) ([]models.FeedPost, error) {
	if targetID <= 0 {
		return nil, NewValidationError("Invalid user ID")
	}
	if viewerID < 0 {
		viewerID = 0
	}
	return s.compose(ctx, feedColumns+`WHERE p.user_id = $2 `+feedOrder, viewerID, targetID)
}

// CreatePost stores a post; image is an uploaded file name, a client URL, or nil.
func (s *FeedService) CreatePost(ctx context.Context, userID int64, content string, image *string) (int64, error) {
	content = strings.TrimSpace(content)
	if userID <= 0 || content == "" {
		return 0, NewValidationError("user_id and content are required.")
	}
	if image != nil && strings.TrimSpace(*image) == "" {
		image = nil
	}

	var postID int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO posts (user_id, content, image) VALUES ($1, $2, $3) RETURNING id`,
		userID, content, image,
	).Scan(&postID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, missingReference(err)
		}
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return postID, nil
}

func (s *FeedService) compose(ctx context.Context, query string, args ...any) ([]models.FeedPost, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	posts, err := queryFeedPosts(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	if err := attachComments(ctx, conn, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func queryFeedPosts(ctx context.Context, db database.Querier, query string, args ...any) ([]models.FeedPost, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.FeedPost, 0)
	for rows.Next() {
		var post models.FeedPost
		var image sql.NullString
		if err := rows.Scan(
			&post.ID,
			&post.UserID,
			&post.Content,
			&image,
			&post.CreatedAt,
			&post.Username,
			&post.Email,
			&post.LikeCount,
			&post.IsLikedByUser,
			&post.IsFollowingPostOwner,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if image.Valid {
			post.Image = &image.String
		}
		post.PostUserID = post.UserID
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// attachComments loads the threads of all posts in one query scoped to their
// ids and assigns them in memory, oldest comment first.
func attachComments(ctx context.Context, db database.Querier, posts []models.FeedPost) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]int64, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ANY($1)
		ORDER BY c.created_at ASC, c.id ASC
	`, pq.Array(postIDs))
	if err != nil {
		return fmt.Errorf("query feed comments: %w", err)
	}
	comments, err := scanComments(rows)
	if err != nil {
		return err
	}

	byPost := make(map[int64][]models.Comment, len(posts))
	for _, comment := range comments {
		byPost[comment.PostID] = append(byPost[comment.PostID], comment)
	}
	for i := range posts {
		thread := byPost[posts[i].ID]
		if thread == nil {
			thread = []models.Comment{}
		}
		posts[i].Comments = thread
	}
	return nil
}
