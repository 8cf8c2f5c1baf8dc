package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/permissions"
)

const trustedDeviceCookieName = "trusted_device"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (api *Api) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !auth.ValidateName(req.Name) {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}
	if !auth.ValidateEmail(auth.NormalizeEmail(req.Email)) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if !auth.ValidatePassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password does not meet requirements")
		return
	}

	user, err := auth.RegisterUser(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("[API] Sign-up failed for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := auth.IssueEmailVerification(user.Email)
	if err != nil {
		log.Printf("[API] Failed to issue verification token for %s: %v", user.Email, err)
	} else if err := api.mailer.SendVerificationEmail(user.Email, user.Name, token); err != nil {
		log.Printf("[API] Failed to send verification email to %s: %v", user.Email, err)
	}

	auth.RecordActivity(user.ID, auth.ActionSignUp, nil, requestMetadata(r))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (api *Api) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := auth.AuthenticateUser(creds.Email, creds.Password)
	if err != nil {
		api.writeSignInError(w, creds.Email, err)
		return
	}

	api.completeSignIn(w, r, user, auth.ActionSignIn)
}

// completeSignIn creates the session, sets the cookie and writes the shared
// sign-in response body.
func (api *Api) completeSignIn(w http.ResponseWriter, r *http.Request, user *models.User, action string) {
	meta := requestMetadata(r)

	session, err := auth.CreateSession(user.ID, api.Config.SessionDuration, meta)
	if err != nil {
		log.Printf("[API] Failed to create session for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	token, err := api.tokenManager.GenerateToken(user, bearerTokenTTL)
	if err != nil {
		log.Printf("[API] Failed to generate token for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	api.setSessionCookie(w, session)
	auth.RecordActivity(user.ID, action, &session.ID, meta)
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token, ExpiresAt: session.ExpiresAt})
}

func (api *Api) writeSignInError(w http.ResponseWriter, email string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrUserBanned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("[API] Sign-in failed for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "sign-in failed")
	}
}

func (api *Api) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if session, err := auth.ValidateSession(cookie.Value); err == nil {
			auth.RecordActivity(session.UserID, auth.ActionSignOut, &session.ID, requestMetadata(r))
		}
		if err := auth.SignOut(cookie.Value); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			log.Printf("[API] Failed to delete session on sign-out: %v", err)
		}
	}

	api.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// SendOTPHandler emails a one-time sign-in code. A request carrying a valid
// trusted-device token skips the code entirely and signs the user in. The
// response does not reveal whether the address has an account.
func (api *Api) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := auth.NormalizeEmail(req.Email)

	if deviceToken := trustedDeviceToken(r); deviceToken != "" {
		if user, err := database.GetUserByEmail(email); err == nil && !user.IsBanned() && auth.CheckTrustedDevice(user.ID, deviceToken) {
			api.completeSignIn(w, r, user, auth.ActionSignInOTP)
			return
		}
	}

	code, err := auth.IssueOTP(email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
		case errors.Is(err, auth.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrUserBanned):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			log.Printf("[API] Failed to issue sign-in code for %s: %v", email, err)
			writeError(w, http.StatusInternalServerError, "failed to send code")
		}
		return
	}

	if err := api.mailer.SendOTPEmail(email, code); err != nil {
		log.Printf("[API] Failed to send sign-in code to %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to send code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (api *Api) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		TrustDevice bool   `json:"trust_device"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta := requestMetadata(r)
	user, session, deviceToken, err := auth.VerifyOTP(req.Email, req.Code, api.Config.SessionDuration, meta, req.TrustDevice)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOTP), errors.Is(err, auth.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidOTP.Error())
		case errors.Is(err, auth.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrUserBanned):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			log.Printf("[API] Code verification failed for %s: %v", req.Email, err)
			writeError(w, http.StatusInternalServerError, "sign-in failed")
		}
		return
	}

	token, err := api.tokenManager.GenerateToken(user, bearerTokenTTL)
	if err != nil {
		log.Printf("[API] Failed to generate token for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	api.setSessionCookie(w, session)
	resp := map[string]interface{}{
		"user":       user,
		"token":      token,
		"expires_at": session.ExpiresAt,
	}
	if deviceToken != "" {
		api.setTrustedDeviceCookie(w, deviceToken)
		resp["device_token"] = deviceToken
		auth.RecordActivity(user.ID, auth.ActionDeviceTrusted, &session.ID, meta)
	}

	auth.RecordActivity(user.ID, auth.ActionSignInOTP, &session.ID, meta)
	writeJSON(w, http.StatusOK, resp)
}

func (api *Api) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, api.Config.BaseURL+"/verify-email?status=invalid", http.StatusSeeOther)
		return
	}

	user, err := auth.ConfirmEmailVerification(token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidVerification) {
			log.Printf("[API] Email verification failed: %v", err)
		}
		http.Redirect(w, r, api.Config.BaseURL+"/verify-email?status=invalid", http.StatusSeeOther)
		return
	}

	auth.RecordActivity(user.ID, auth.ActionEmailVerified, nil, requestMetadata(r))
	http.Redirect(w, r, api.Config.BaseURL+"/verify-email?status=success", http.StatusSeeOther)
}

// ResendVerificationHandler re-issues the verification email. Responses are
// identical whether or not the address has an unverified account.
func (api *Api) ResendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := auth.NormalizeEmail(req.Email)

	token, err := auth.IssueEmailVerification(email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrAlreadyVerified) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
			return
		}
		log.Printf("[API] Failed to issue verification token for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	name := ""
	if user, err := database.GetUserByEmail(email); err == nil {
		name = user.Name
	}
	if err := api.mailer.SendVerificationEmail(email, name, token); err != nil {
		log.Printf("[API] Failed to send verification email to %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// ForgotPasswordHandler issues a reset token and emails it. The response is
// the same whether or not the address has an account.
func (api *Api) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := auth.NormalizeEmail(req.Email)

	token, err := auth.IssuePasswordReset(email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrNoCredentialAccount):
			writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
		case errors.Is(err, auth.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			log.Printf("[API] Failed to issue reset token for %s: %v", email, err)
			writeError(w, http.StatusInternalServerError, "failed to send reset email")
		}
		return
	}

	name := ""
	if user, err := database.GetUserByEmail(email); err == nil {
		name = user.Name
	}
	if err := api.mailer.SendPasswordResetEmail(email, name, token); err != nil {
		log.Printf("[API] Failed to send reset email to %s: %v", email, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (api *Api) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !auth.ValidatePassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password does not meet requirements")
		return
	}

	user, err := auth.ResetPassword(req.Token, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidVerification) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[API] Password reset failed: %v", err)
		writeError(w, http.StatusInternalServerError, "password reset failed")
		return
	}

	auth.RecordActivity(user.ID, auth.ActionPasswordReset, nil, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) OAuthRedirectHandler(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	url, err := api.oauth.AuthURL(provider)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[API] Failed to build authorize URL for %s: %v", provider, err)
		writeError(w, http.StatusInternalServerError, "oauth sign-in unavailable")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (api *Api) OAuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		log.Printf("[API] OAuth provider %s returned error: %s", provider, errCode)
		http.Redirect(w, r, api.Config.BaseURL+"/login?error=oauth_denied", http.StatusSeeOther)
		return
	}

	meta := requestMetadata(r)
	user, session, err := api.oauth.HandleCallback(provider, query.Get("state"), query.Get("code"), api.Config.SessionDuration, meta)
	if err != nil {
		reason := "oauth_failed"
		switch {
		case errors.Is(err, auth.ErrInvalidState):
			reason = "invalid_state"
		case errors.Is(err, auth.ErrUserBanned):
			reason = "banned"
		default:
			log.Printf("[API] OAuth callback for %s failed: %v", provider, err)
		}
		http.Redirect(w, r, api.Config.BaseURL+"/login?error="+reason, http.StatusSeeOther)
		return
	}

	api.setSessionCookie(w, session)
	auth.RecordActivity(user.ID, auth.ActionSignInOAuth, &session.ID, meta)
	http.Redirect(w, r, api.Config.BaseURL+"/dashboard", http.StatusSeeOther)
}

func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	resp := map[string]interface{}{"user": user}
	if session, ok := auth.GetSessionFromContext(r.Context()); ok {
		resp["session"] = session
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	var req struct {
		Name  *string `json:"name"`
		Image *string `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil && !auth.ValidateName(*req.Name) {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}

	updated, err := auth.UpdateProfile(user.ID, req.Name, req.Image)
	if err != nil {
		log.Printf("[API] Failed to update profile for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": updated})
}

func (api *Api) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !auth.ValidatePassword(req.NewPassword) {
		writeError(w, http.StatusBadRequest, "password does not meet requirements")
		return
	}

	// The session that issued this request survives; all others are revoked.
	keepToken := ""
	var sessionID *string
	if session, ok := auth.GetSessionFromContext(r.Context()); ok {
		keepToken = session.Token
		sessionID = &session.ID
	}

	if err := auth.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword, keepToken); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, auth.ErrNoCredentialAccount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[API] Failed to change password for user %s: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	auth.RecordActivity(user.ID, auth.ActionPasswordChanged, sessionID, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	sessions, err := auth.ListSessions(user.ID)
	if err != nil {
		log.Printf("[API] Failed to list sessions for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := map[string]interface{}{"sessions": sessions}
	if session, ok := auth.GetSessionFromContext(r.Context()); ok {
		resp["current_session_id"] = session.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *Api) RevokeSessionHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := auth.RevokeSession(user.ID, sessionID); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[API] Failed to revoke session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	auth.RecordActivity(user.ID, auth.ActionSessionRevoked, nil, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) RevokeOtherSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	keepToken := ""
	if session, ok := auth.GetSessionFromContext(r.Context()); ok {
		keepToken = session.Token
	}

	count, err := auth.RevokeOtherSessions(user.ID, keepToken)
	if err != nil {
		log.Printf("[API] Failed to revoke sessions for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}

	auth.RecordActivity(user.ID, auth.ActionSessionRevoked, nil, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"revoked": count})
}

func (api *Api) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := auth.ListActivity(user.ID, limit, offset)
	if err != nil {
		log.Printf("[API] Failed to list activity for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": entries})
}

func (api *Api) ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	devices, err := auth.ListDevices(user.ID)
	if err != nil {
		log.Printf("[API] Failed to list devices for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

func (api *Api) RevokeDeviceHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	deviceID := chi.URLParam(r, "deviceID")

	if err := auth.RevokeDevice(user.ID, deviceID); err != nil {
		if errors.Is(err, auth.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[API] Failed to revoke device %s: %v", deviceID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke device")
		return
	}

	auth.RecordActivity(user.ID, auth.ActionDeviceRevoked, nil, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// PermissionsHandler reports the caller's effective permissions, including
// the ones granted by their role in the session's active organization.
func (api *Api) PermissionsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	resp := map[string]interface{}{
		"role":        user.Role,
		"permissions": permissions.Compute(string(user.Role)),
	}

	if session, ok := auth.GetSessionFromContext(r.Context()); ok && session.ActiveOrganizationID != nil {
		if member, err := database.GetMember(*session.ActiveOrganizationID, user.ID); err == nil {
			resp["organization_id"] = member.OrganizationID
			resp["organization_role"] = member.Role
			resp["organization_permissions"] = permissions.ComputeOrg(string(member.Role))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// PasswordRequirementsHandler tells clients the password policy so forms can
// render it before the first failed attempt.
func (api *Api) PasswordRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"requirements": auth.GetPasswordRequirements()})
}

// ListAccountsHandler returns the sign-in methods linked to the caller.
// Password hashes and provider tokens never serialize.
func (api *Api) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	accounts, err := database.ListAccountsByUser(user.ID)
	if err != nil {
		log.Printf("[API] Failed to list accounts for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (api *Api) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) < 2 {
		writeError(w, http.StatusBadRequest, "query must be at least 2 characters")
		return
	}

	users, err := database.SearchUsers(query, 10)
	if err != nil {
		log.Printf("[API] User search failed: %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (api *Api) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   api.Config.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (api *Api) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (api *Api) setTrustedDeviceCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     trustedDeviceCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TrustedDeviceTTL.Seconds()),
		HttpOnly: true,
		Secure:   api.Config.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func trustedDeviceToken(r *http.Request) string {
	if v := r.Header.Get("X-Trusted-Device"); v != "" {
		return v
	}
	if cookie, err := r.Cookie(trustedDeviceCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
