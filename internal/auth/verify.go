package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

const (
	emailVerificationTTL = 24 * time.Hour
	passwordResetTTL     = time.Hour

	resetSendLimit  = 3
	resetSendWindow = 15 * time.Minute
)

var (
	ErrInvalidVerification = errors.New("invalid or expired token")
	ErrAlreadyVerified     = errors.New("email already verified")
)

// IssueEmailVerification creates a verification token for a user's email.
// Any previous token for the same address is discarded. The caller is
// responsible for emailing the confirmation link.
func IssueEmailVerification(email string) (string, error) {
	email = NormalizeEmail(email)

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return "", ErrAlreadyVerified
	}

	identifier := "verify-email:" + email
	if err := database.DeleteVerificationsByIdentifier(identifier); err != nil {
		return "", fmt.Errorf("failed to clear previous tokens: %w", err)
	}

	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	verification := &models.Verification{
		Identifier: identifier,
		Value:      token,
		ExpiresAt:  time.Now().Add(emailVerificationTTL),
	}
	if err := database.CreateVerification(verification); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// ConfirmEmailVerification consumes a verification token and marks the
// matching user's email as verified.
func ConfirmEmailVerification(token string) (*models.User, error) {
	verification, err := database.GetVerificationByValue(token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidVerification
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if err := database.DeleteVerification(verification.ID); err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if verification.IsExpired() {
		return nil, ErrInvalidVerification
	}

	email, ok := strings.CutPrefix(verification.Identifier, "verify-email:")
	if !ok {
		return nil, ErrInvalidVerification
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidVerification
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.EmailVerified {
		if err := database.SetUserEmailVerified(user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	log.Printf("[AUTH] Email verified for %s", email)
	return user, nil
}

// IssuePasswordReset creates a password-reset token for a credential account.
// Callers must not disclose to the requester whether the account exists.
func IssuePasswordReset(email string) (string, error) {
	email = NormalizeEmail(email)

	count, err := database.IncrementRateLimit("reset-send:"+email, resetSendWindow)
	if err != nil {
		return "", fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count > resetSendLimit {
		return "", ErrTooManyAttempts
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	// Resetting only makes sense for accounts that sign in with a password
	if _, err := database.GetUserAccountByProvider(user.ID, models.ProviderCredential); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoCredentialAccount
		}
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	identifier := "reset-password:" + email
	if err := database.DeleteVerificationsByIdentifier(identifier); err != nil {
		return "", fmt.Errorf("failed to clear previous tokens: %w", err)
	}

	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	verification := &models.Verification{
		Identifier: identifier,
		Value:      token,
		ExpiresAt:  time.Now().Add(passwordResetTTL),
	}
	if err := database.CreateVerification(verification); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	log.Printf("[AUTH] Issued password reset for %s", email)
	return token, nil
}

// ResetPassword consumes a reset token, sets the new password on the user's
// credential account and deletes every session for the user.
func ResetPassword(token, newPassword string) (*models.User, error) {
	if !ValidatePassword(newPassword) {
		return nil, errors.New("password does not meet requirements")
	}

	verification, err := database.GetVerificationByValue(token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidVerification
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if err := database.DeleteVerification(verification.ID); err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if verification.IsExpired() {
		return nil, ErrInvalidVerification
	}

	email, ok := strings.CutPrefix(verification.Identifier, "reset-password:")
	if !ok {
		return nil, ErrInvalidVerification
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidVerification
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	account, err := database.GetUserAccountByProvider(user.ID, models.ProviderCredential)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCredentialAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := database.UpdateAccountPassword(account.ID, string(hashedPassword)); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	// Anyone holding an old session or a trusted-device token loses it
	if err := database.DeleteSessionsByUser(user.ID); err != nil {
		log.Printf("[AUTH] Failed to delete sessions for %s: %v", user.ID, err)
	}
	if err := database.DeleteTrustedDevicesByUser(user.ID); err != nil {
		log.Printf("[AUTH] Failed to delete trusted devices for %s: %v", user.ID, err)
	}

	log.Printf("[AUTH] Password reset for %s", email)
	return user, nil
}
