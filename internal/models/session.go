package models

import (
	"time"
)

// Session represents a user's session. Token is the raw cookie value and is
// unique per session so it doubles as the revocation handle.
type Session struct {
	ID                   string    `json:"id" db:"id"`
	UserID               string    `json:"user_id" db:"user_id"`
	Token                string    `json:"-" db:"token"`
	ExpiresAt            time.Time `json:"expires_at" db:"expires_at"`
	IPAddress            *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent            *string   `json:"user_agent,omitempty" db:"user_agent"`
	ActiveOrganizationID *string   `json:"active_organization_id,omitempty" db:"active_organization_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// IsExpired returns true if the session has passed its expiration time
func (s *Session) IsExpired() bool {
	return s.ExpiresAt.Before(time.Now())
}

// TrustedDevice represents a device the user chose to trust during OTP
// sign-in. Only a SHA-256 hash of the device token is stored.
type TrustedDevice struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	TokenHash  string    `json:"-" db:"token_hash"`
	DeviceName *string   `json:"device_name,omitempty" db:"device_name"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ActivityLog records an auth or organization event for the account's
// activity screen.
type ActivityLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	SessionID *string   `json:"session_id,omitempty" db:"session_id"`
	Action    string    `json:"action" db:"action"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	Metadata  *string   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
