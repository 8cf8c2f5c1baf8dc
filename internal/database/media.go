package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateMedia inserts an uploaded file's metadata row
func CreateMedia(media *models.Media) error {
	if media.ID == "" {
		media.ID = GenerateID()
	}
	media.CreatedAt = time.Now()

	_, err := dbConn.Exec(rebind(`INSERT INTO media
		(id, user_id, organization_id, file_name, file_key, mime_type, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		media.ID, media.UserID, media.OrganizationID, media.FileName,
		media.FileKey, media.MimeType, media.SizeBytes, media.CreatedAt,
	)
	return err
}

// GetMediaByID retrieves a media row by ID
func GetMediaByID(id string) (*models.Media, error) {
	media := &models.Media{}
	err := dbConn.Get(media, rebind("SELECT * FROM media WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return media, nil
}

// ListMediaByUser returns a user's uploads, newest first
func ListMediaByUser(userID string) ([]*models.Media, error) {
	media := []*models.Media{}
	err := dbConn.Select(&media, rebind("SELECT * FROM media WHERE user_id = ? ORDER BY created_at DESC"), userID)
	if err != nil {
		return nil, err
	}
	return media, nil
}

// ListMediaByOrganization returns an organization's uploads, newest first
func ListMediaByOrganization(orgID string) ([]*models.Media, error) {
	media := []*models.Media{}
	err := dbConn.Select(&media, rebind("SELECT * FROM media WHERE organization_id = ? ORDER BY created_at DESC"), orgID)
	if err != nil {
		return nil, err
	}
	return media, nil
}

// DeleteMedia removes a media row
func DeleteMedia(id string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM media WHERE id = ?"), id)
	return err
}
