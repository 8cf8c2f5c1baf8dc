package models

import (
	"time"
)

// Auth providers an account row can belong to.
const (
	ProviderCredential = "credential"
	ProviderGitHub     = "github"
	ProviderGoogle     = "google"
)

// Account links a user to an authentication provider. A credential account
// carries the bcrypt password hash; OAuth accounts carry provider tokens.
// A user can hold one account per provider.
type Account struct {
	ID                   string     `json:"id" db:"id"`
	UserID               string     `json:"user_id" db:"user_id"`
	ProviderID           string     `json:"provider_id" db:"provider_id"`
	AccountID            string     `json:"account_id" db:"account_id"`
	Password             *string    `json:"-" db:"password"`
	AccessToken          *string    `json:"-" db:"access_token"`
	RefreshToken         *string    `json:"-" db:"refresh_token"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty" db:"access_token_expires_at"`
	Scope                *string    `json:"scope,omitempty" db:"scope"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Verification is a short-lived token row shared by the email verification,
// password reset, OTP and OAuth state flows. Identifier encodes the flow and
// subject (for example "reset-password:user@example.com").
type Verification struct {
	ID         string    `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"`
	Value      string    `json:"value" db:"value"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IsExpired returns true if the verification token has passed its expiration time
func (v *Verification) IsExpired() bool {
	return v.ExpiresAt.Before(time.Now())
}
