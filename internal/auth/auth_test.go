package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// AuthTestSuite exercises the auth flows against a throwaway SQLite file.
type AuthTestSuite struct {
	suite.Suite
}

func (s *AuthTestSuite) SetupTest() {
	os.Remove("test_auth.db")
	cfg := &config.Config{
		DatabaseType: "sqlite",
		DatabasePath: "test_auth.db",
	}
	require.NoError(s.T(), database.Init(cfg))
}

func (s *AuthTestSuite) TearDownTest() {
	database.Close()
	os.Remove("test_auth.db")
}

func TestAuthTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

const testPassword = "Sup3r-secret"

// wrongCode returns a 6-digit code guaranteed to differ from the given one.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

// registerVerified registers a user and marks the email verified so sign-in
// tests get past the verification gate.
func (s *AuthTestSuite) registerVerified(email string) *models.User {
	user, err := RegisterUser("Test User", email, testPassword)
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.SetUserEmailVerified(user.ID, true))
	user.EmailVerified = true
	return user
}

func (s *AuthTestSuite) TestRegisterCreatesCredentialAccount() {
	user, err := RegisterUser("Alice", "Alice@Example.com", testPassword)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "alice@example.com", user.Email, "email should be stored lowercased")
	assert.Equal(s.T(), models.RoleUser, user.Role)
	assert.False(s.T(), user.EmailVerified)

	account, err := database.GetUserAccountByProvider(user.ID, models.ProviderCredential)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), account.Password)
	assert.NotEqual(s.T(), testPassword, *account.Password, "password must be hashed")
}

func (s *AuthTestSuite) TestRegisterValidation() {
	_, err := RegisterUser("Bob", "not-an-email", testPassword)
	assert.Error(s.T(), err)

	_, err = RegisterUser("Bob", "bob@example.com", "short")
	assert.Error(s.T(), err)

	_, err = RegisterUser("   ", "bob@example.com", testPassword)
	assert.Error(s.T(), err)
}

func (s *AuthTestSuite) TestRegisterDuplicateEmail() {
	s.registerVerified("dup@example.com")
	_, err := RegisterUser("Other", "DUP@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrEmailAlreadyTaken)
}

func (s *AuthTestSuite) TestAuthenticate() {
	s.registerVerified("carol@example.com")

	user, err := AuthenticateUser("Carol@Example.com", testPassword)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "carol@example.com", user.Email)
}

func (s *AuthTestSuite) TestAuthenticateRequiresVerifiedEmail() {
	_, err := RegisterUser("Dave", "dave@example.com", testPassword)
	require.NoError(s.T(), err)

	_, err = AuthenticateUser("dave@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrEmailNotVerified)
}

func (s *AuthTestSuite) TestAuthenticateSameErrorForUnknownEmailAndBadPassword() {
	s.registerVerified("eve@example.com")

	_, unknownErr := AuthenticateUser("nobody@example.com", testPassword)
	_, badPassErr := AuthenticateUser("eve@example.com", "Wrong-pass1")

	assert.ErrorIs(s.T(), unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(s.T(), badPassErr, ErrInvalidCredentials)
}

func (s *AuthTestSuite) TestSignInRateLimit() {
	s.registerVerified("frank@example.com")

	for i := 0; i < signInAttemptLimit; i++ {
		_, err := AuthenticateUser("frank@example.com", "Wrong-pass1")
		assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
	}

	// Over the limit even the correct password is rejected
	_, err := AuthenticateUser("frank@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrTooManyAttempts)

	require.NoError(s.T(), database.ResetRateLimit("sign-in:frank@example.com"))
	_, err = AuthenticateUser("frank@example.com", testPassword)
	assert.NoError(s.T(), err)
}

func (s *AuthTestSuite) TestBannedUserCannotSignIn() {
	user := s.registerVerified("grace@example.com")

	reason := "abuse"
	require.NoError(s.T(), database.SetUserBan(user.ID, true, &reason, nil))

	_, err := AuthenticateUser("grace@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrUserBanned)
}

func (s *AuthTestSuite) TestExpiredBanIsLifted() {
	user := s.registerVerified("heidi@example.com")

	reason := "cooldown"
	expired := time.Now().Add(-time.Hour)
	require.NoError(s.T(), database.SetUserBan(user.ID, true, &reason, &expired))

	signedIn, err := AuthenticateUser("heidi@example.com", testPassword)
	require.NoError(s.T(), err)
	assert.False(s.T(), signedIn.Banned)

	fresh, err := database.GetUserByID(user.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), fresh.Banned, "lift should be persisted")
}

func (s *AuthTestSuite) TestSessionLifecycle() {
	user := s.registerVerified("ivan@example.com")

	ip := "203.0.113.7"
	session, err := CreateSession(user.ID, time.Hour, SessionMetadata{IPAddress: &ip})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), session.Token)

	validated, err := ValidateSession(session.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, validated.UserID)

	require.NoError(s.T(), SignOut(session.Token))
	_, err = ValidateSession(session.Token)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound)
}

func (s *AuthTestSuite) TestExpiredSessionIsDeleted() {
	user := s.registerVerified("judy@example.com")

	session, err := CreateSession(user.ID, -time.Minute, SessionMetadata{})
	require.NoError(s.T(), err)

	_, err = ValidateSession(session.Token)
	assert.ErrorIs(s.T(), err, ErrSessionExpired)

	// The expired row is gone, a second lookup is a plain miss
	_, err = ValidateSession(session.Token)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound)
}

func (s *AuthTestSuite) TestRevokeSessions() {
	user := s.registerVerified("mallory@example.com")
	other := s.registerVerified("victim@example.com")

	current, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)
	second, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)
	third, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)

	// A user cannot revoke someone else's session
	err = RevokeSession(other.ID, second.ID)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound)

	require.NoError(s.T(), RevokeSession(user.ID, second.ID))

	deleted, err := RevokeOtherSessions(user.ID, current.Token)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, deleted, "only the third session should remain to delete")

	_, err = ValidateSession(current.Token)
	assert.NoError(s.T(), err)
	_, err = ValidateSession(third.Token)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound)
}

func (s *AuthTestSuite) TestChangePassword() {
	user := s.registerVerified("nina@example.com")

	keep, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)
	otherSession, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)

	err = ChangePassword(user.ID, "Wrong-pass1", "N3w-password", keep.Token)
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)

	require.NoError(s.T(), ChangePassword(user.ID, testPassword, "N3w-password", keep.Token))

	_, err = AuthenticateUser("nina@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
	_, err = AuthenticateUser("nina@example.com", "N3w-password")
	assert.NoError(s.T(), err)

	_, err = ValidateSession(keep.Token)
	assert.NoError(s.T(), err, "current session survives a password change")
	_, err = ValidateSession(otherSession.Token)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound)
}

func (s *AuthTestSuite) TestUpdateProfile() {
	user := s.registerVerified("olga@example.com")

	name := "Olga Renamed"
	image := "https://cdn.example.com/olga.png"
	updated, err := UpdateProfile(user.ID, &name, &image)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Olga Renamed", updated.Name)
	require.NotNil(s.T(), updated.Image)
	assert.Equal(s.T(), image, *updated.Image)

	// nil fields leave the stored values alone
	updated, err = UpdateProfile(user.ID, nil, nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Olga Renamed", updated.Name)
}

func (s *AuthTestSuite) TestTokenRoundTrip() {
	user := s.registerVerified("peggy@example.com")

	tm := NewTokenManager("test-secret-key")
	token, err := tm.GenerateToken(user, time.Hour)
	require.NoError(s.T(), err)

	claims, err := tm.ValidateToken(token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, claims.UserID)
	assert.Equal(s.T(), user.Email, claims.Email)
	assert.Equal(s.T(), "user", claims.Role)

	expired, err := tm.GenerateToken(user, -time.Minute)
	require.NoError(s.T(), err)
	_, err = tm.ValidateToken(expired)
	assert.ErrorIs(s.T(), err, ErrExpiredToken)

	_, err = tm.ValidateToken(token + "x")
	assert.ErrorIs(s.T(), err, ErrInvalidToken)

	otherManager := NewTokenManager("another-secret")
	_, err = otherManager.ValidateToken(token)
	assert.ErrorIs(s.T(), err, ErrInvalidToken)
}

func (s *AuthTestSuite) TestOTPFlow() {
	_, err := IssueOTP("nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrUserNotFound)

	_, err = RegisterUser("Rita", "rita@example.com", testPassword)
	require.NoError(s.T(), err)

	code, err := IssueOTP("rita@example.com")
	require.NoError(s.T(), err)
	assert.Len(s.T(), code, 6)

	_, _, _, err = VerifyOTP("rita@example.com", wrongCode(code), time.Hour, SessionMetadata{}, false)
	assert.ErrorIs(s.T(), err, ErrInvalidOTP)

	user, session, deviceToken, err := VerifyOTP("rita@example.com", code, time.Hour, SessionMetadata{}, false)
	require.NoError(s.T(), err)
	assert.True(s.T(), user.EmailVerified, "receiving the code verifies the email")
	assert.Empty(s.T(), deviceToken)

	_, err = ValidateSession(session.Token)
	assert.NoError(s.T(), err)

	// Codes are single use
	_, _, _, err = VerifyOTP("rita@example.com", code, time.Hour, SessionMetadata{}, false)
	assert.ErrorIs(s.T(), err, ErrInvalidOTP)
}

func (s *AuthTestSuite) TestOTPSendLimit() {
	s.registerVerified("sam@example.com")

	for i := 0; i < otpSendLimit; i++ {
		_, err := IssueOTP("sam@example.com")
		require.NoError(s.T(), err)
	}

	_, err := IssueOTP("sam@example.com")
	assert.ErrorIs(s.T(), err, ErrTooManyAttempts)
}

func (s *AuthTestSuite) TestOTPVerifyLimit() {
	s.registerVerified("tina@example.com")
	code, err := IssueOTP("tina@example.com")
	require.NoError(s.T(), err)

	for i := 0; i < otpVerifyLimit; i++ {
		_, _, _, err := VerifyOTP("tina@example.com", wrongCode(code), time.Hour, SessionMetadata{}, false)
		assert.ErrorIs(s.T(), err, ErrInvalidOTP)
	}

	_, _, _, err = VerifyOTP("tina@example.com", wrongCode(code), time.Hour, SessionMetadata{}, false)
	assert.ErrorIs(s.T(), err, ErrTooManyAttempts)
}

func (s *AuthTestSuite) TestTrustedDevices() {
	s.registerVerified("ursula@example.com")
	stranger := s.registerVerified("stranger@example.com")

	code, err := IssueOTP("ursula@example.com")
	require.NoError(s.T(), err)

	ua := "TestBrowser/1.0"
	user, _, deviceToken, err := VerifyOTP("ursula@example.com", code, time.Hour, SessionMetadata{UserAgent: &ua}, true)
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), deviceToken)

	assert.True(s.T(), CheckTrustedDevice(user.ID, deviceToken))
	assert.False(s.T(), CheckTrustedDevice(stranger.ID, deviceToken), "token is bound to its user")
	assert.False(s.T(), CheckTrustedDevice(user.ID, "bogus"))

	devices, err := ListDevices(user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), devices, 1)
	require.NotNil(s.T(), devices[0].DeviceName)
	assert.Equal(s.T(), ua, *devices[0].DeviceName)

	require.NoError(s.T(), RevokeDevice(user.ID, devices[0].ID))
	assert.False(s.T(), CheckTrustedDevice(user.ID, deviceToken))
}

func (s *AuthTestSuite) TestEmailVerificationFlow() {
	user, err := RegisterUser("Val", "val@example.com", testPassword)
	require.NoError(s.T(), err)

	token, err := IssueEmailVerification("val@example.com")
	require.NoError(s.T(), err)

	verified, err := ConfirmEmailVerification(token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, verified.ID)
	assert.True(s.T(), verified.EmailVerified)

	// Tokens are single use
	_, err = ConfirmEmailVerification(token)
	assert.ErrorIs(s.T(), err, ErrInvalidVerification)

	_, err = ConfirmEmailVerification("garbage")
	assert.ErrorIs(s.T(), err, ErrInvalidVerification)

	_, err = IssueEmailVerification("val@example.com")
	assert.ErrorIs(s.T(), err, ErrAlreadyVerified)
}

func (s *AuthTestSuite) TestPasswordResetFlow() {
	_, err := IssuePasswordReset("nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrUserNotFound)

	user := s.registerVerified("wendy@example.com")
	session, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)

	token, err := IssuePasswordReset("wendy@example.com")
	require.NoError(s.T(), err)

	_, err = ResetPassword(token, "weak")
	assert.Error(s.T(), err)

	reset, err := ResetPassword(token, "Fr3sh-password")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, reset.ID)

	_, err = AuthenticateUser("wendy@example.com", testPassword)
	assert.ErrorIs(s.T(), err, ErrInvalidCredentials)
	_, err = AuthenticateUser("wendy@example.com", "Fr3sh-password")
	assert.NoError(s.T(), err)

	_, err = ValidateSession(session.Token)
	assert.ErrorIs(s.T(), err, ErrSessionNotFound, "reset revokes existing sessions")

	_, err = ResetPassword(token, "An0ther-pass")
	assert.ErrorIs(s.T(), err, ErrInvalidVerification)
}

func (s *AuthTestSuite) TestPasswordResetRequiresCredentialAccount() {
	// OAuth-only users have no password to reset
	user := &models.User{Name: "OAuth Only", Email: "oauth@example.com", EmailVerified: true}
	require.NoError(s.T(), database.CreateUser(user))

	_, err := IssuePasswordReset("oauth@example.com")
	assert.ErrorIs(s.T(), err, ErrNoCredentialAccount)
}

func (s *AuthTestSuite) TestOAuthStateRoundTrip() {
	svc := NewOAuthService(&config.Config{
		BaseURL:        "http://localhost:3000",
		GitHubClientID: "client-id",
	})

	authURL, err := svc.AuthURL("github")
	require.NoError(s.T(), err)
	assert.Contains(s.T(), authURL, githubAuthorizeURL)
	assert.Contains(s.T(), authURL, "client_id=client-id")
	assert.Contains(s.T(), authURL, "state=")

	_, err = svc.AuthURL("gitlab")
	assert.ErrorIs(s.T(), err, ErrUnknownProvider)

	err = svc.consumeState("github", "never-issued")
	assert.ErrorIs(s.T(), err, ErrInvalidState)
}

func (s *AuthTestSuite) TestMiddleware() {
	user := s.registerVerified("xavier@example.com")
	tm := NewTokenManager("middleware-secret")

	protected := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxUser, ok := GetUserFromContext(r.Context())
		require.True(s.T(), ok)
		w.Write([]byte(ctxUser.ID))
	}))

	// No credentials
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	// Bearer token
	token, err := tm.GenerateToken(user, time.Hour)
	require.NoError(s.T(), err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), user.ID, rec.Body.String())

	// Session cookie
	session, err := CreateSession(user.ID, time.Hour, SessionMetadata{})
	require.NoError(s.T(), err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), user.ID, rec.Body.String())

	// Banned users are cut off even with a live session
	reason := "abuse"
	require.NoError(s.T(), database.SetUserBan(user.ID, true, &reason, nil))
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusForbidden, rec.Code)
}

func (s *AuthTestSuite) TestAdminOnly() {
	user := s.registerVerified("yolanda@example.com")
	admin := s.registerVerified("admin@example.com")
	require.NoError(s.T(), database.SetUserRole(admin.ID, models.RoleAdmin))
	admin.Role = models.RoleAdmin

	handler := AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req = req.WithContext(WithUser(req.Context(), admin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *AuthTestSuite) TestActivityLog() {
	user := s.registerVerified("zack@example.com")

	ip := "198.51.100.4"
	RecordActivity(user.ID, ActionSignIn, nil, SessionMetadata{IPAddress: &ip})
	RecordActivity(user.ID, ActionSignOut, nil, SessionMetadata{})

	entries, err := ListActivity(user.ID, 10, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), ActionSignOut, entries[0].Action, "newest first")
}
