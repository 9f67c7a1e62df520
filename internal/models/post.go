package models

import (
	"time"
)

type Post struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	Image     *string   `json:"image" db:"image"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Comment struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"post_id" db:"post_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FeedPost is a post annotated for a specific viewer, with its comment thread attached.
// PostUserID repeats the author id under the key web clients use for follow actions.
type FeedPost struct {
	Post
	PostUserID           int64     `json:"post_user_id" db:"post_user_id"`
	Username             string    `json:"username" db:"username"`
	Email                string    `json:"email,omitempty" db:"email"`
	LikeCount            int64     `json:"like_count" db:"like_count"`
	IsLikedByUser        bool      `json:"is_liked_by_user" db:"is_liked_by_user"`
	IsFollowingPostOwner bool      `json:"is_following_post_owner" db:"is_following_post_owner"`
	Comments             []Comment `json:"comments"`
}

// LikesSummary is the result of listing a post's likes.
type LikesSummary struct {
	TotalLikes int           `json:"totalLikes"`
	LikedBy    []UserSummary `json:"likedBy"`
}
