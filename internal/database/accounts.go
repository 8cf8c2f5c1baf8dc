package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateAccount inserts a new provider account row
func CreateAccount(account *models.Account) error {
	if account.ID == "" {
		account.ID = GenerateID()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := dbConn.Exec(rebind(`INSERT INTO accounts
		(id, user_id, provider_id, account_id, password, access_token, refresh_token, access_token_expires_at, scope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		account.ID, account.UserID, account.ProviderID, account.AccountID,
		account.Password, account.AccessToken, account.RefreshToken,
		account.AccessTokenExpiresAt, account.Scope,
		account.CreatedAt, account.UpdatedAt,
	)
	return err
}

// GetAccountByProvider retrieves an account by provider and the provider's
// own account identifier
func GetAccountByProvider(providerID, accountID string) (*models.Account, error) {
	account := &models.Account{}
	err := dbConn.Get(account, rebind("SELECT * FROM accounts WHERE provider_id = ? AND account_id = ?"), providerID, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetUserAccountByProvider retrieves a user's account for one provider
func GetUserAccountByProvider(userID, providerID string) (*models.Account, error) {
	account := &models.Account{}
	err := dbConn.Get(account, rebind("SELECT * FROM accounts WHERE user_id = ? AND provider_id = ?"), userID, providerID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccountsByUser returns all provider accounts linked to a user
func ListAccountsByUser(userID string) ([]*models.Account, error) {
	accounts := []*models.Account{}
	err := dbConn.Select(&accounts, rebind("SELECT * FROM accounts WHERE user_id = ? ORDER BY created_at"), userID)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateAccountPassword replaces the bcrypt hash on a credential account
func UpdateAccountPassword(accountID, passwordHash string) error {
	_, err := dbConn.Exec(rebind("UPDATE accounts SET password = ?, updated_at = ? WHERE id = ?"),
		passwordHash, time.Now(), accountID)
	return err
}

// UpdateAccountTokens refreshes the OAuth tokens stored on an account
func UpdateAccountTokens(accountID string, accessToken, refreshToken *string, expiresAt *time.Time) error {
	_, err := dbConn.Exec(rebind("UPDATE accounts SET access_token = ?, refresh_token = ?, access_token_expires_at = ?, updated_at = ? WHERE id = ?"),
		accessToken, refreshToken, expiresAt, time.Now(), accountID)
	return err
}
