package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateVerification inserts a short-lived verification token row
func CreateVerification(v *models.Verification) error {
	if v.ID == "" {
		v.ID = GenerateID()
	}
	v.CreatedAt = time.Now()

	_, err := dbConn.Exec(rebind(`INSERT INTO verifications
		(id, identifier, value, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		v.ID, v.Identifier, v.Value, v.ExpiresAt, v.CreatedAt,
	)
	return err
}

// GetVerification retrieves a token row by identifier and value
func GetVerification(identifier, value string) (*models.Verification, error) {
	v := &models.Verification{}
	err := dbConn.Get(v, rebind("SELECT * FROM verifications WHERE identifier = ? AND value = ?"), identifier, value)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVerificationByValue retrieves a token row by value alone, for flows
// where the link carries only the token
func GetVerificationByValue(value string) (*models.Verification, error) {
	v := &models.Verification{}
	err := dbConn.Get(v, rebind("SELECT * FROM verifications WHERE value = ?"), value)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVerification removes a single token row
func DeleteVerification(id string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM verifications WHERE id = ?"), id)
	return err
}

// DeleteVerificationsByIdentifier invalidates every outstanding token for an
// identifier, used before issuing a replacement
func DeleteVerificationsByIdentifier(identifier string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM verifications WHERE identifier = ?"), identifier)
	return err
}

// CleanupExpiredVerifications removes all tokens past their expiration time
func CleanupExpiredVerifications() error {
	_, err := dbConn.Exec(rebind("DELETE FROM verifications WHERE expires_at < ?"), time.Now())
	return err
}
