package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

const (
	otpTTL = 5 * time.Minute

	otpSendLimit  = 3
	otpSendWindow = 10 * time.Minute

	otpVerifyLimit  = 5
	otpVerifyWindow = 15 * time.Minute
)

// TrustedDeviceTTL is how long a trusted device token stays valid.
const TrustedDeviceTTL = 30 * 24 * time.Hour

var (
	ErrInvalidOTP     = errors.New("invalid or expired code")
	ErrDeviceNotFound = errors.New("device not found")
)

// IssueOTP generates a 6-digit sign-in code for an existing user and stores
// it in the verifications table. Any previously issued code for the same
// email is discarded. The caller is responsible for delivering the code.
func IssueOTP(email string) (string, error) {
	email = NormalizeEmail(email)

	count, err := database.IncrementRateLimit("otp-send:"+email, otpSendWindow)
	if err != nil {
		return "", fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count > otpSendLimit {
		return "", ErrTooManyAttempts
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if err := checkBan(user); err != nil {
		return "", err
	}

	identifier := "otp:" + email
	if err := database.DeleteVerificationsByIdentifier(identifier); err != nil {
		return "", fmt.Errorf("failed to clear previous codes: %w", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	verification := &models.Verification{
		Identifier: identifier,
		Value:      code,
		ExpiresAt:  time.Now().Add(otpTTL),
	}
	if err := database.CreateVerification(verification); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	log.Printf("[AUTH] Issued sign-in code for %s", email)
	return code, nil
}

// VerifyOTP checks a sign-in code and, when valid, signs the user in. Codes
// are single use and verification attempts are rate limited per email. When
// trustDevice is set, a trusted-device token is registered and returned in
// plaintext; only its SHA-256 hash is stored.
func VerifyOTP(email, code string, duration time.Duration, meta SessionMetadata, trustDevice bool) (*models.User, *models.Session, string, error) {
	email = NormalizeEmail(email)

	count, err := database.IncrementRateLimit("otp-verify:"+email, otpVerifyWindow)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count > otpVerifyLimit {
		return nil, nil, "", ErrTooManyAttempts
	}

	verification, err := database.GetVerification("otp:"+email, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, "", ErrInvalidOTP
	}
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to look up code: %w", err)
	}

	// Single use: consume the code regardless of what happens next
	if err := database.DeleteVerification(verification.ID); err != nil {
		return nil, nil, "", fmt.Errorf("failed to consume code: %w", err)
	}
	if verification.IsExpired() {
		return nil, nil, "", ErrInvalidOTP
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, "", ErrInvalidOTP
	}
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if err := checkBan(user); err != nil {
		return nil, nil, "", err
	}

	// Receiving the code proves control of the mailbox
	if !user.EmailVerified {
		if err := database.SetUserEmailVerified(user.ID, true); err != nil {
			return nil, nil, "", fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	if err := database.ResetRateLimit("otp-send:" + email); err != nil {
		log.Printf("[AUTH] Failed to reset rate limit for %s: %v", email, err)
	}
	if err := database.ResetRateLimit("otp-verify:" + email); err != nil {
		log.Printf("[AUTH] Failed to reset rate limit for %s: %v", email, err)
	}

	session, err := CreateSession(user.ID, duration, meta)
	if err != nil {
		return nil, nil, "", err
	}

	deviceToken := ""
	if trustDevice {
		deviceToken, err = TrustDevice(user.ID, meta.UserAgent)
		if err != nil {
			log.Printf("[AUTH] Failed to register trusted device for %s: %v", email, err)
			deviceToken = ""
		}
	}

	log.Printf("[AUTH] User %s signed in with a one-time code", email)
	return user, session, deviceToken, nil
}

// TrustDevice registers a trusted device for a user and returns the plaintext
// token. Only the token's hash is persisted, so the value cannot be recovered
// later.
func TrustDevice(userID string, deviceName *string) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate device token: %w", err)
	}

	device := &models.TrustedDevice{
		UserID:     userID,
		TokenHash:  hashToken(token),
		DeviceName: deviceName,
		ExpiresAt:  time.Now().Add(TrustedDeviceTTL),
	}
	if err := database.CreateTrustedDevice(device); err != nil {
		return "", fmt.Errorf("failed to store trusted device: %w", err)
	}

	return token, nil
}

// CheckTrustedDevice reports whether a device token is valid for the user and
// bumps its last-used timestamp when it is.
func CheckTrustedDevice(userID, token string) bool {
	if token == "" {
		return false
	}

	device, err := database.GetTrustedDeviceByHash(hashToken(token))
	if err != nil {
		return false
	}
	if device.UserID != userID || time.Now().After(device.ExpiresAt) {
		return false
	}

	if err := database.TouchTrustedDevice(device.ID); err != nil {
		log.Printf("[AUTH] Failed to touch trusted device %s: %v", device.ID, err)
	}
	return true
}

// ListDevices returns the user's trusted devices, most recently used first.
func ListDevices(userID string) ([]*models.TrustedDevice, error) {
	return database.ListTrustedDevicesByUser(userID)
}

// RevokeDevice removes one of the user's trusted devices.
func RevokeDevice(userID, deviceID string) error {
	err := database.DeleteTrustedDevice(userID, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDeviceNotFound
	}
	return err
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
