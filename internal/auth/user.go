package auth

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// GetUser retrieves a user by ID
func GetUser(userID string) (*models.User, error) {
	user, err := database.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile updates the fields a user can change about themselves.
// Nil fields are left untouched.
func UpdateProfile(userID string, name, image *string) (*models.User, error) {
	user, err := GetUser(userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		if !ValidateName(*name) {
			return nil, errors.New("invalid name")
		}
		user.Name = *name
	}
	if image != nil {
		user.Image = image
	}

	if err := database.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces it. Every other
// session is revoked; the session holding keepToken stays signed in.
func ChangePassword(userID, currentPassword, newPassword, keepToken string) error {
	account, err := database.GetUserAccountByProvider(userID, models.ProviderCredential)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoCredentialAccount
	}
	if err != nil {
		return err
	}
	if account.Password == nil {
		return ErrNoCredentialAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if !ValidatePassword(newPassword) {
		return errors.New("password does not meet requirements")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := database.UpdateAccountPassword(account.ID, string(hashed)); err != nil {
		return err
	}

	if _, err := database.DeleteOtherSessions(userID, keepToken); err != nil {
		return err
	}

	return nil
}
