package auth

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// SessionMetadata carries the request details recorded on a session row.
type SessionMetadata struct {
	IPAddress *string
	UserAgent *string
}

// CreateSession creates a new session for a user. The returned session
// carries the raw token; it is shown to the client exactly once as a cookie.
func CreateSession(userID string, duration time.Duration, meta SessionMetadata) (*models.Session, error) {
	token, err := generateRandomToken()
	if err != nil {
		log.Printf("[AUTH] Failed to generate session token for user %s: %v", userID, err)
		return nil, err
	}

	session := &models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(duration),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := database.CreateSession(session); err != nil {
		log.Printf("[AUTH] Failed to create session for user %s: %v", userID, err)
		return nil, err
	}

	log.Printf("[AUTH] Session created for user %s", userID)
	return session, nil
}

// ValidateSession checks a session token and returns the session. Expiry is
// absolute; updated_at is bumped so the sessions screen reflects activity.
func ValidateSession(token string) (*models.Session, error) {
	session, err := database.GetSessionByToken(token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		if err := database.DeleteSessionByToken(token); err != nil {
			log.Printf("[AUTH] Failed to delete expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}

	if err := database.TouchSession(session.ID); err != nil {
		log.Printf("[AUTH] Failed to touch session %s: %v", session.ID, err)
	}

	return session, nil
}

// SignOut removes the session holding the token
func SignOut(token string) error {
	return database.DeleteSessionByToken(token)
}

// ListSessions returns the user's sessions for the account security screen
func ListSessions(userID string) ([]*models.Session, error) {
	return database.ListSessionsByUser(userID)
}

// RevokeSession removes one of the user's sessions by ID
func RevokeSession(userID, sessionID string) error {
	err := database.DeleteSessionByID(userID, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	return err
}

// RevokeOtherSessions removes every session except the current one and
// returns how many were revoked
func RevokeOtherSessions(userID, currentToken string) (int64, error) {
	return database.DeleteOtherSessions(userID, currentToken)
}

// CleanupExpiredSessions removes expired session records from the database.
func CleanupExpiredSessions() error {
	return database.CleanupExpiredSessions()
}
