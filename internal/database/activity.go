package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateActivityLog appends an activity log entry
func CreateActivityLog(entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = GenerateID()
	}
	entry.CreatedAt = time.Now()

	_, err := dbConn.Exec(rebind(`INSERT INTO activity_logs
		(id, user_id, session_id, action, ip_address, user_agent, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.UserID, entry.SessionID, entry.Action,
		entry.IPAddress, entry.UserAgent, entry.Metadata, entry.CreatedAt,
	)
	return err
}

// ListActivityByUser returns a user's activity entries, newest first
func ListActivityByUser(userID string, limit, offset int) ([]*models.ActivityLog, error) {
	entries := []*models.ActivityLog{}
	err := dbConn.Select(&entries, rebind(`SELECT * FROM activity_logs
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CleanupOldActivity removes activity entries older than the cutoff
func CleanupOldActivity(before time.Time) error {
	_, err := dbConn.Exec(rebind("DELETE FROM activity_logs WHERE created_at < ?"), before)
	return err
}
