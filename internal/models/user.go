package models

import (
	"time"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleUser  Role = "user"  // Standard account
	RoleAdmin Role = "admin" // Full administrative access
)

// User represents a user account in the database. Credentials are never
// stored here; they live on the linked account rows.
type User struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	Image         *string    `json:"image,omitempty" db:"image"`
	Role          Role       `json:"role" db:"role"`
	Banned        bool       `json:"banned" db:"banned"`
	BanReason     *string    `json:"ban_reason,omitempty" db:"ban_reason"`
	BanExpires    *time.Time `json:"ban_expires,omitempty" db:"ban_expires"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned returns true if the user is banned and the ban has not expired
func (u *User) IsBanned() bool {
	if !u.Banned {
		return false
	}
	if u.BanExpires != nil && u.BanExpires.Before(time.Now()) {
		return false
	}
	return true
}
