package database

import (
	"database/sql"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateTrustedDevice inserts a trusted device row
func CreateTrustedDevice(device *models.TrustedDevice) error {
	if device.ID == "" {
		device.ID = GenerateID()
	}
	now := time.Now()
	device.CreatedAt = now
	device.LastUsedAt = now

	_, err := dbConn.Exec(rebind(`INSERT INTO trusted_devices
		(id, user_id, token_hash, device_name, last_used_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		device.ID, device.UserID, device.TokenHash, device.DeviceName,
		device.LastUsedAt, device.ExpiresAt, device.CreatedAt,
	)
	return err
}

// GetTrustedDeviceByHash retrieves a trusted device by its token hash
func GetTrustedDeviceByHash(tokenHash string) (*models.TrustedDevice, error) {
	device := &models.TrustedDevice{}
	err := dbConn.Get(device, rebind("SELECT * FROM trusted_devices WHERE token_hash = ?"), tokenHash)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// ListTrustedDevicesByUser returns a user's trusted devices, most recently
// used first
func ListTrustedDevicesByUser(userID string) ([]*models.TrustedDevice, error) {
	devices := []*models.TrustedDevice{}
	err := dbConn.Select(&devices, rebind("SELECT * FROM trusted_devices WHERE user_id = ? ORDER BY last_used_at DESC"), userID)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// TouchTrustedDevice bumps a device's last_used_at
func TouchTrustedDevice(id string) error {
	_, err := dbConn.Exec(rebind("UPDATE trusted_devices SET last_used_at = ? WHERE id = ?"), time.Now(), id)
	return err
}

// DeleteTrustedDevice removes one of the user's trusted devices. Returns
// sql.ErrNoRows when the device does not exist or belongs to someone else.
func DeleteTrustedDevice(userID, id string) error {
	res, err := dbConn.Exec(rebind("DELETE FROM trusted_devices WHERE id = ? AND user_id = ?"), id, userID)
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

// DeleteTrustedDevicesByUser removes all of a user's trusted devices
func DeleteTrustedDevicesByUser(userID string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM trusted_devices WHERE user_id = ?"), userID)
	return err
}

// CleanupExpiredTrustedDevices removes devices past their expiration time
func CleanupExpiredTrustedDevices() error {
	_, err := dbConn.Exec(rebind("DELETE FROM trusted_devices WHERE expires_at < ?"), time.Now())
	return err
}
