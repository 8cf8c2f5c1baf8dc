package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateUser inserts a new user row. ID, role and timestamps are filled in
// when unset.
func CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = GenerateID()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := dbConn.Exec(rebind(`INSERT INTO users
		(id, name, email, email_verified, image, role, banned, ban_reason, ban_expires, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, user.Email, user.EmailVerified, user.Image, user.Role,
		user.Banned, user.BanReason, user.BanExpires, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetUserByEmail retrieves a user by email
func GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := dbConn.Get(user, rebind("SELECT * FROM users WHERE email = ?"), email)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	err := dbConn.Get(user, rebind("SELECT * FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user's profile fields (name, image)
func UpdateUser(user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := dbConn.Exec(rebind("UPDATE users SET name = ?, image = ?, updated_at = ? WHERE id = ?"),
		user.Name, user.Image, user.UpdatedAt, user.ID)
	return err
}

// SetUserEmailVerified marks a user's email address as verified or not
func SetUserEmailVerified(userID string, verified bool) error {
	_, err := dbConn.Exec(rebind("UPDATE users SET email_verified = ?, updated_at = ? WHERE id = ?"),
		verified, time.Now(), userID)
	return err
}

// SetUserRole changes a user's system role
func SetUserRole(userID string, role models.Role) error {
	_, err := dbConn.Exec(rebind("UPDATE users SET role = ?, updated_at = ? WHERE id = ?"),
		role, time.Now(), userID)
	return err
}

// SetUserBan bans or unbans a user
func SetUserBan(userID string, banned bool, reason *string, expires *time.Time) error {
	_, err := dbConn.Exec(rebind("UPDATE users SET banned = ?, ban_reason = ?, ban_expires = ?, updated_at = ? WHERE id = ?"),
		banned, reason, expires, time.Now(), userID)
	return err
}

// DeleteUser removes a user; dependent rows follow through cascades
func DeleteUser(userID string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM users WHERE id = ?"), userID)
	return err
}

// GetAllUsers returns users ordered newest first
func GetAllUsers(limit, offset int) ([]*models.User, error) {
	users := []*models.User{}
	err := dbConn.Select(&users, rebind("SELECT * FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?"), limit, offset)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers finds users whose name or email matches the query
func SearchUsers(query string, limit int) ([]*models.User, error) {
	pattern := "%" + query + "%"
	users := []*models.User{}

	var q string
	if dbType == "postgres" {
		q = "SELECT * FROM users WHERE name ILIKE ? OR email ILIKE ? ORDER BY name LIMIT ?"
	} else {
		q = "SELECT * FROM users WHERE name LIKE ? OR email LIKE ? ORDER BY name LIMIT ?"
	}

	err := dbConn.Select(&users, rebind(q), pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the total number of users
func CountUsers() (int, error) {
	var count int
	err := dbConn.Get(&count, "SELECT COUNT(*) FROM users")
	return count, err
}

// CountVerifiedUsers returns the number of users with a verified email
func CountVerifiedUsers() (int, error) {
	var count int
	err := dbConn.Get(&count, rebind("SELECT COUNT(*) FROM users WHERE email_verified = ?"), true)
	return count, err
}

// CountUsersCreatedSince returns the number of users created after the given time
func CountUsersCreatedSince(since time.Time) (int, error) {
	var count int
	err := dbConn.Get(&count, rebind("SELECT COUNT(*) FROM users WHERE created_at >= ?"), since)
	return count, err
}

// CountUsersByRole returns a role -> user count breakdown
func CountUsersByRole() (map[string]int, error) {
	rows := []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}{}
	err := dbConn.Select(&rows, "SELECT role, COUNT(*) AS count FROM users GROUP BY role")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
