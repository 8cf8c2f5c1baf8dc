package database

import (
	"database/sql"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateSession inserts a new session row
func CreateSession(session *models.Session) error {
	if session.ID == "" {
		session.ID = GenerateID()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := dbConn.Exec(rebind(`INSERT INTO sessions
		(id, user_id, token, expires_at, ip_address, user_agent, active_organization_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		session.ID, session.UserID, session.Token, session.ExpiresAt,
		session.IPAddress, session.UserAgent, session.ActiveOrganizationID,
		session.CreatedAt, session.UpdatedAt,
	)
	return err
}

// GetSessionByToken retrieves a session by its token
func GetSessionByToken(token string) (*models.Session, error) {
	session := &models.Session{}
	err := dbConn.Get(session, rebind("SELECT * FROM sessions WHERE token = ?"), token)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSessionByID retrieves a session by its ID
func GetSessionByID(id string) (*models.Session, error) {
	session := &models.Session{}
	err := dbConn.Get(session, rebind("SELECT * FROM sessions WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessionsByUser returns a user's sessions, most recently active first
func ListSessionsByUser(userID string) ([]*models.Session, error) {
	sessions := []*models.Session{}
	err := dbConn.Select(&sessions, rebind("SELECT * FROM sessions WHERE user_id = ? ORDER BY updated_at DESC"), userID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// TouchSession bumps a session's updated_at so listings reflect last activity
func TouchSession(sessionID string) error {
	_, err := dbConn.Exec(rebind("UPDATE sessions SET updated_at = ? WHERE id = ?"), time.Now(), sessionID)
	return err
}

// SetSessionActiveOrganization records the session's active organization.
// A nil orgID clears it.
func SetSessionActiveOrganization(sessionID string, orgID *string) error {
	_, err := dbConn.Exec(rebind("UPDATE sessions SET active_organization_id = ?, updated_at = ? WHERE id = ?"),
		orgID, time.Now(), sessionID)
	return err
}

// ClearActiveOrganization detaches every session pointing at the organization
func ClearActiveOrganization(orgID string) error {
	_, err := dbConn.Exec(rebind("UPDATE sessions SET active_organization_id = NULL WHERE active_organization_id = ?"), orgID)
	return err
}

// DeleteSessionByToken deletes a session by its token
func DeleteSessionByToken(token string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE token = ?"), token)
	return err
}

// DeleteSessionByID deletes one of the user's sessions. Returns
// sql.ErrNoRows when the session does not exist or belongs to someone else.
func DeleteSessionByID(userID, sessionID string) error {
	res, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE id = ? AND user_id = ?"), sessionID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteOtherSessions removes all of the user's sessions except the one
// holding the given token. Returns the number of sessions revoked.
func DeleteOtherSessions(userID, keepToken string) (int64, error) {
	res, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE user_id = ? AND token != ?"), userID, keepToken)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteSessionsByUser removes all sessions for a user
func DeleteSessionsByUser(userID string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE user_id = ?"), userID)
	return err
}

// CleanupExpiredSessions removes all sessions past their expiration time
func CleanupExpiredSessions() error {
	_, err := dbConn.Exec(rebind("DELETE FROM sessions WHERE expires_at < ?"), time.Now())
	return err
}

// CountActiveSessions returns the number of unexpired sessions
func CountActiveSessions() (int, error) {
	var count int
	err := dbConn.Get(&count, rebind("SELECT COUNT(*) FROM sessions WHERE expires_at > ?"), time.Now())
	return count, err
}
