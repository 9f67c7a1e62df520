package models

import (
	"time"
)

// User represents a registered account. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}

// UserSummary is the public projection used in search results, likes and follow lists.
type UserSummary struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
}
