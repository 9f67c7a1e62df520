package database

import (
	"context"
	"fmt"
	"log"
)

// Constraint names referenced by the services when classifying failures.
const (
	ConstraintUsersEmailUnique    = "users_email_lower_unique"
	ConstraintPostsUserFK         = "posts_user_fk"
	ConstraintCommentsPostFK      = "comments_post_fk"
	ConstraintCommentsUserFK      = "comments_user_fk"
	ConstraintLikesUserFK         = "likes_user_fk"
	ConstraintLikesPostFK         = "likes_post_fk"
	ConstraintLikesUnique         = "likes_user_post_unique"
	ConstraintFollowersFollowerFK = "followers_follower_fk"
	ConstraintFollowersFollowing  = "followers_following_fk"
	ConstraintFollowersUnique     = "followers_pair_unique"
)

type schemaStep struct {
	name  string
	query string
}

var schemaSteps = []schemaStep{
	{"users table", `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"users email index", `CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique ON users (lower(email))`},
	{"users search index", `CREATE INDEX IF NOT EXISTS users_username_lower_idx ON users (lower(username))`},

	{"posts table", `
	CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		image VARCHAR(1024),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT posts_user_fk FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`},
	{"posts author index", `CREATE INDEX IF NOT EXISTS posts_user_created_idx ON posts (user_id, created_at DESC)`},
	{"posts created index", `CREATE INDEX IF NOT EXISTS posts_created_idx ON posts (created_at DESC, id DESC)`},

	{"comments table", `
	CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT comments_post_fk FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		CONSTRAINT comments_user_fk FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`},
	{"comments post index", `CREATE INDEX IF NOT EXISTS comments_post_created_idx ON comments (post_id, created_at)`},

	{"likes table", `
	CREATE TABLE IF NOT EXISTS likes (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		post_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT likes_user_fk FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT likes_post_fk FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		CONSTRAINT likes_user_post_unique UNIQUE (user_id, post_id)
	)`},
	{"likes post index", `CREATE INDEX IF NOT EXISTS likes_post_idx ON likes (post_id)`},

	{"followers table", `
	CREATE TABLE IF NOT EXISTS followers (
		id BIGSERIAL PRIMARY KEY,
		follower_id BIGINT NOT NULL,
		following_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT followers_follower_fk FOREIGN KEY (follower_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT followers_following_fk FOREIGN KEY (following_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT followers_pair_unique UNIQUE (follower_id, following_id)
	)`},
	{"followers following index", `CREATE INDEX IF NOT EXISTS followers_following_idx ON followers (following_id)`},
}

// CreateTables creates all tables, constraints and indexes. Every step is idempotent.
func CreateTables(ctx context.Context, db Querier) error {
	for _, step := range schemaSteps {
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("ensure %s: %w", step.name, err)
		}
	}
	log.Printf("Schema ensured (%d steps)", len(schemaSteps))
	return nil
}
