package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailAlreadyTaken   = errors.New("email already taken")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrUserBanned          = errors.New("account is banned")
	ErrTooManyAttempts     = errors.New("too many attempts, try again later")
	ErrNoCredentialAccount = errors.New("no password set for this account")
)

// Sign-in attempts per email allowed inside the rate-limit window.
const (
	signInAttemptLimit  = 10
	signInAttemptWindow = 15 * time.Minute
)

// RegisterUser creates a new user with a credential account holding the
// bcrypt password hash. The email is stored lowercased.
func RegisterUser(name, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	if !ValidateEmail(email) {
		return nil, errors.New("invalid email address")
	}
	if !ValidatePassword(password) {
		return nil, errors.New("password does not meet requirements")
	}
	if !ValidateName(name) {
		return nil, errors.New("invalid name")
	}

	// Check if user already exists
	if _, err := database.GetUserByEmail(email); err == nil {
		return nil, ErrEmailAlreadyTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:  name,
		Email: email,
	}
	if err := database.CreateUser(user); err != nil {
		return nil, err
	}

	hash := string(hashedPassword)
	account := &models.Account{
		UserID:     user.ID,
		ProviderID: models.ProviderCredential,
		AccountID:  email,
		Password:   &hash,
	}
	if err := database.CreateAccount(account); err != nil {
		// Roll back the orphaned user row so the email can be retried.
		if delErr := database.DeleteUser(user.ID); delErr != nil {
			log.Printf("[AUTH] Failed to clean up user %s after account error: %v", user.ID, delErr)
		}
		return nil, err
	}

	log.Printf("[AUTH] Registered user %s (%s)", user.ID, user.Email)
	return user, nil
}

// AuthenticateUser validates email/password credentials. Unknown emails and
// wrong passwords produce the same error so responses don't leak which
// addresses have accounts.
func AuthenticateUser(email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	count, err := database.IncrementRateLimit("sign-in:"+email, signInAttemptWindow)
	if err != nil {
		return nil, err
	}
	if count > signInAttemptLimit {
		log.Printf("[AUTH] Sign-in rate limit hit for %s", email)
		return nil, ErrTooManyAttempts
	}

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	account, err := database.GetUserAccountByProvider(user.ID, models.ProviderCredential)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if account.Password == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := checkBan(user); err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := database.ResetRateLimit("sign-in:" + email); err != nil {
		log.Printf("[AUTH] Failed to reset sign-in rate limit for %s: %v", email, err)
	}

	return user, nil
}

// checkBan rejects banned users and lifts bans that have expired.
func checkBan(user *models.User) error {
	if !user.Banned {
		return nil
	}
	if user.BanExpires != nil && user.BanExpires.Before(time.Now()) {
		if err := database.SetUserBan(user.ID, false, nil, nil); err != nil {
			return err
		}
		user.Banned = false
		return nil
	}
	return ErrUserBanned
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateRandomToken generates a random token string
func generateRandomToken() (string, error) {
	tokenBytes := make([]byte, 32)
	_, err := rand.Read(tokenBytes)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}
