package models

import "time"

// UserRole represents the two classroom roles. The reminder bot is stored
// as a teacher so it can post into any room it belongs to.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Profile represents an identity stored in the profiles table. The password
// hash is only set for interactive accounts; provisioned service identities
// (the bot) never log in and carry a NULL hash.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	AvatarURL    *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	Role         UserRole  `db:"role" json:"role"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
