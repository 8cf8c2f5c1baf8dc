package auth

import (
	"log"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// Actions recorded on the activity log.
const (
	ActionSignUp          = "sign_up"
	ActionSignIn          = "sign_in"
	ActionSignInOTP       = "sign_in_otp"
	ActionSignInOAuth     = "sign_in_oauth"
	ActionSignOut         = "sign_out"
	ActionEmailVerified   = "email_verified"
	ActionPasswordReset   = "password_reset"
	ActionPasswordChanged = "password_changed"
	ActionSessionRevoked  = "session_revoked"
	ActionDeviceTrusted   = "device_trusted"
	ActionDeviceRevoked   = "device_revoked"
	ActionOrgCreated      = "org_created"
	ActionOrgDeleted      = "org_deleted"
	ActionUserBanned      = "user_banned"
	ActionUserUnbanned    = "user_unbanned"
)

// RecordActivity appends an entry to the user's activity log. Failures are
// logged and swallowed so a full log table never blocks the operation that
// triggered it.
func RecordActivity(userID, action string, sessionID *string, meta SessionMetadata) {
	entry := &models.ActivityLog{
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := database.CreateActivityLog(entry); err != nil {
		log.Printf("[AUTH] Failed to record %s for user %s: %v", action, userID, err)
	}
}

// ListActivity returns a page of the user's activity log, newest first.
func ListActivity(userID string, limit, offset int) ([]*models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return database.ListActivityByUser(userID, limit, offset)
}
