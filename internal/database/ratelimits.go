package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// IncrementRateLimit bumps the fixed-window counter for a key and returns the
// count inside the current window. A request landing after the window expires
// resets the counter to 1.
func IncrementRateLimit(key string, window time.Duration) (int, error) {
	now := time.Now().UnixMilli()

	tx, err := dbConn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var rl models.RateLimit
	err = tx.Get(&rl, rebind("SELECT * FROM rate_limits WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.Exec(rebind("INSERT INTO rate_limits (key, count, last_request) VALUES (?, ?, ?)"), key, 1, now)
		if err != nil {
			return 0, err
		}
		return 1, tx.Commit()
	}
	if err != nil {
		return 0, err
	}

	count := rl.Count + 1
	if now-rl.LastRequest >= window.Milliseconds() {
		count = 1
	}

	_, err = tx.Exec(rebind("UPDATE rate_limits SET count = ?, last_request = ? WHERE key = ?"), count, now, key)
	if err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

// GetRateLimit retrieves the counter row for a key
func GetRateLimit(key string) (*models.RateLimit, error) {
	rl := &models.RateLimit{}
	err := dbConn.Get(rl, rebind("SELECT * FROM rate_limits WHERE key = ?"), key)
	if err != nil {
		return nil, err
	}
	return rl, nil
}

// ResetRateLimit clears the counter for a key, typically after a successful
// attempt
func ResetRateLimit(key string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM rate_limits WHERE key = ?"), key)
	return err
}
