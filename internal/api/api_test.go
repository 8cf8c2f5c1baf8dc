package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

const testPassword = "Sup3r-secret"

// ApiTestSuite drives the full router over httptest with a throwaway SQLite
// database. Email goes through the log sender, media stays unconfigured.
type ApiTestSuite struct {
	suite.Suite
	api *Api
	cfg config.Config
}

func (s *ApiTestSuite) SetupTest() {
	os.Remove("test_api.db")
	s.cfg = config.Config{
		APIPort:         8081,
		BaseURL:         "http://localhost:3000",
		DatabaseType:    "sqlite",
		DatabasePath:    "test_api.db",
		JWTSecret:       "test-secret-key",
		SessionDuration: time.Hour,
	}

	require.NoError(s.T(), database.Init(&s.cfg))

	api, err := NewApi(s.cfg)
	require.NoError(s.T(), err)
	s.api = api
}

func (s *ApiTestSuite) TearDownTest() {
	database.Close()
	os.Remove("test_api.db")
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

// request builds a JSON request and runs it through the router.
func (s *ApiTestSuite) request(method, path string, payload interface{}, cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rr, req)
	return rr
}

func (s *ApiTestSuite) decode(rr *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &out), "response should be JSON: %s", rr.Body.String())
	return out
}

// signUpVerified registers a user and flips the verification flag directly,
// standing in for the emailed link.
func (s *ApiTestSuite) signUpVerified(name, email string) *models.User {
	rr := s.request("POST", "/auth/sign-up", map[string]string{
		"name":     name,
		"email":    email,
		"password": testPassword,
	}, nil, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())

	user, err := database.GetUserByEmail(email)
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.SetUserEmailVerified(user.ID, true))
	user.EmailVerified = true
	return user
}

// signIn returns the session cookie and bearer token from a credential sign-in.
func (s *ApiTestSuite) signIn(email string) (*http.Cookie, string) {
	rr := s.request("POST", "/auth/sign-in", map[string]string{
		"email":    email,
		"password": testPassword,
	}, nil, "")
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(s.T(), cookie, "sign-in should set a session cookie")

	body := s.decode(rr)
	token, _ := body["token"].(string)
	require.NotEmpty(s.T(), token)
	return cookie, token
}

func (s *ApiTestSuite) TestHeartbeat() {
	rr := s.request("GET", "/heartbeat", nil, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	assert.JSONEq(s.T(), `{"status":"ok"}`, rr.Body.String())
}

func (s *ApiTestSuite) TestNotFoundIsJSON() {
	rr := s.request("GET", "/definitely-not-a-route", nil, nil, "")
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)
	assert.Equal(s.T(), "not found", s.decode(rr)["error"])
}

func (s *ApiTestSuite) TestSignUpValidation() {
	cases := []map[string]string{
		{"name": "Alice", "email": "not-an-email", "password": testPassword},
		{"name": "Alice", "email": "alice@example.com", "password": "short"},
		{"name": "", "email": "alice@example.com", "password": testPassword},
	}
	for _, payload := range cases {
		rr := s.request("POST", "/auth/sign-up", payload, nil, "")
		assert.Equal(s.T(), http.StatusBadRequest, rr.Code, "payload %v", payload)
	}
}

func (s *ApiTestSuite) TestSignUpDuplicateEmail() {
	s.signUpVerified("Alice", "alice@example.com")

	rr := s.request("POST", "/auth/sign-up", map[string]string{
		"name":     "Other Alice",
		"email":    "Alice@Example.com",
		"password": testPassword,
	}, nil, "")
	assert.Equal(s.T(), http.StatusConflict, rr.Code)
}

func (s *ApiTestSuite) TestSignInFlow() {
	user := s.signUpVerified("Alice", "alice@example.com")

	// Wrong password and unknown email look identical.
	rr := s.request("POST", "/auth/sign-in", map[string]string{"email": "alice@example.com", "password": "Wrong-pass1"}, nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	wrongBody := rr.Body.String()
	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "ghost@example.com", "password": "Wrong-pass1"}, nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), wrongBody, rr.Body.String())

	cookie, token := s.signIn("alice@example.com")

	// Cookie auth
	rr = s.request("GET", "/auth/me", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	body := s.decode(rr)
	me := body["user"].(map[string]interface{})
	assert.Equal(s.T(), user.ID, me["id"])
	assert.NotNil(s.T(), body["session"])

	// Bearer auth
	rr = s.request("GET", "/auth/me", nil, nil, token)
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	// Sign-out kills the session and clears the cookie.
	rr = s.request("POST", "/auth/sign-out", nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(s.T(), cleared, "sign-out should clear the session cookie")

	rr = s.request("GET", "/auth/me", nil, cookie, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
}

func (s *ApiTestSuite) TestSignInRequiresVerifiedEmail() {
	rr := s.request("POST", "/auth/sign-up", map[string]string{
		"name":     "Bob",
		"email":    "bob@example.com",
		"password": testPassword,
	}, nil, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code)

	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "bob@example.com", "password": testPassword}, nil, "")
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)
}

func (s *ApiTestSuite) TestAuthRequired() {
	for _, path := range []string{"/auth/me", "/auth/sessions", "/orgs", "/media", "/admin/users"} {
		rr := s.request("GET", path, nil, nil, "")
		assert.Equal(s.T(), http.StatusUnauthorized, rr.Code, "path %s", path)
	}

	rr := s.request("GET", "/auth/me", nil, nil, "garbage-token")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
}

func (s *ApiTestSuite) TestVerifyEmailRedirect() {
	rr := s.request("POST", "/auth/sign-up", map[string]string{
		"name":     "Carol",
		"email":    "carol@example.com",
		"password": testPassword,
	}, nil, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code)

	token, err := auth.IssueEmailVerification("carol@example.com")
	require.NoError(s.T(), err)

	rr = s.request("GET", "/auth/verify-email?token="+token, nil, nil, "")
	assert.Equal(s.T(), http.StatusSeeOther, rr.Code)
	assert.Equal(s.T(), s.cfg.BaseURL+"/verify-email?status=success", rr.Header().Get("Location"))

	user, err := database.GetUserByEmail("carol@example.com")
	require.NoError(s.T(), err)
	assert.True(s.T(), user.EmailVerified)

	// The token is single use.
	rr = s.request("GET", "/auth/verify-email?token="+token, nil, nil, "")
	assert.Equal(s.T(), http.StatusSeeOther, rr.Code)
	assert.Equal(s.T(), s.cfg.BaseURL+"/verify-email?status=invalid", rr.Header().Get("Location"))
}

func (s *ApiTestSuite) TestOTPSignInAndTrustedDevice() {
	user := s.signUpVerified("Dave", "dave@example.com")

	rr := s.request("POST", "/auth/otp/send", map[string]string{"email": "dave@example.com"}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "sent", s.decode(rr)["status"])

	// Unknown addresses get the same response.
	rr = s.request("POST", "/auth/otp/send", map[string]string{"email": "nobody@example.com"}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "sent", s.decode(rr)["status"])

	code, err := auth.IssueOTP("dave@example.com")
	require.NoError(s.T(), err)

	rr = s.request("POST", "/auth/otp/verify", map[string]interface{}{
		"email":        "dave@example.com",
		"code":         code,
		"trust_device": true,
	}, nil, "")
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	body := s.decode(rr)
	deviceToken, _ := body["device_token"].(string)
	require.NotEmpty(s.T(), deviceToken)
	assert.Equal(s.T(), user.ID, body["user"].(map[string]interface{})["id"])

	var deviceCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == trustedDeviceCookieName {
			deviceCookie = c
		}
	}
	require.NotNil(s.T(), deviceCookie, "trusting a device should set its cookie")
	assert.Equal(s.T(), deviceToken, deviceCookie.Value)

	// A trusted device skips the emailed code on the next sign-in.
	req := httptest.NewRequest("POST", "/auth/otp/send", strings.NewReader(`{"email":"dave@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trusted-Device", deviceToken)
	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var trusted map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &trusted))
	assert.NotNil(s.T(), trusted["user"], "trusted device should sign in directly")
	assert.NotEmpty(s.T(), trusted["token"])

	// The device shows up in listings and can be revoked.
	cookie, _ := s.signIn("dave@example.com")
	rr = s.request("GET", "/auth/devices", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	devices := s.decode(rr)["devices"].([]interface{})
	require.Len(s.T(), devices, 1)
	deviceID := devices[0].(map[string]interface{})["id"].(string)

	rr = s.request("DELETE", "/auth/devices/"+deviceID, nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.request("GET", "/auth/devices", nil, cookie, "")
	assert.Len(s.T(), s.decode(rr)["devices"], 0)
}

func (s *ApiTestSuite) TestInvalidOTP() {
	s.signUpVerified("Erin", "erin@example.com")

	code, err := auth.IssueOTP("erin@example.com")
	require.NoError(s.T(), err)

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	rr := s.request("POST", "/auth/otp/verify", map[string]interface{}{"email": "erin@example.com", "code": wrong}, nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
}

func (s *ApiTestSuite) TestPasswordResetFlow() {
	s.signUpVerified("Frank", "frank@example.com")

	// The response never says whether the account exists.
	rr := s.request("POST", "/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "sent", s.decode(rr)["status"])

	token, err := auth.IssuePasswordReset("frank@example.com")
	require.NoError(s.T(), err)

	rr = s.request("POST", "/auth/reset-password", map[string]string{"token": token, "password": "weak"}, nil, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.request("POST", "/auth/reset-password", map[string]string{"token": token, "password": "N3w-password"}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "frank@example.com", "password": testPassword}, nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)

	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "frank@example.com", "password": "N3w-password"}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	// Reset tokens are single use.
	rr = s.request("POST", "/auth/reset-password", map[string]string{"token": token, "password": "N3w-password2"}, nil, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func (s *ApiTestSuite) TestChangePassword() {
	s.signUpVerified("Grace", "grace@example.com")
	cookie, _ := s.signIn("grace@example.com")
	otherCookie, _ := s.signIn("grace@example.com")

	rr := s.request("POST", "/auth/change-password", map[string]string{
		"current_password": "Wrong-pass1",
		"new_password":     "N3w-password",
	}, cookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.request("POST", "/auth/change-password", map[string]string{
		"current_password": testPassword,
		"new_password":     "N3w-password",
	}, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	// The changing session stays signed in, every other one is revoked.
	rr = s.request("GET", "/auth/me", nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	rr = s.request("GET", "/auth/me", nil, otherCookie, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
}

func (s *ApiTestSuite) TestSessionManagement() {
	s.signUpVerified("Heidi", "heidi@example.com")
	oldCookie, _ := s.signIn("heidi@example.com")
	cookie, _ := s.signIn("heidi@example.com")

	rr := s.request("GET", "/auth/sessions", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	body := s.decode(rr)
	assert.Len(s.T(), body["sessions"], 2)
	assert.NotEmpty(s.T(), body["current_session_id"])

	rr = s.request("POST", "/auth/sessions/revoke-others", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), float64(1), s.decode(rr)["revoked"])

	rr = s.request("GET", "/auth/me", nil, oldCookie, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	rr = s.request("GET", "/auth/me", nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
}

func (s *ApiTestSuite) TestRevokeSingleSession() {
	s.signUpVerified("Ivan", "ivan@example.com")
	cookie, _ := s.signIn("ivan@example.com")

	rr := s.request("GET", "/auth/sessions", nil, cookie, "")
	sessions := s.decode(rr)["sessions"].([]interface{})
	require.Len(s.T(), sessions, 1)
	id := sessions[0].(map[string]interface{})["id"].(string)

	rr = s.request("DELETE", "/auth/sessions/"+id, nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.request("DELETE", "/auth/sessions/does-not-exist", nil, cookie, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code, "the revoked cookie should no longer authenticate")
}

func (s *ApiTestSuite) TestPasswordRequirements() {
	rr := s.request("GET", "/auth/password-requirements", nil, nil, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	reqs := s.decode(rr)["requirements"].([]interface{})
	assert.NotEmpty(s.T(), reqs)
}

func (s *ApiTestSuite) TestConnectedAccounts() {
	s.signUpVerified("Wendy", "wendy@example.com")
	cookie, _ := s.signIn("wendy@example.com")

	rr := s.request("GET", "/auth/accounts", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	accounts := s.decode(rr)["accounts"].([]interface{})
	require.Len(s.T(), accounts, 1)

	account := accounts[0].(map[string]interface{})
	assert.Equal(s.T(), "credential", account["provider_id"])
	assert.NotContains(s.T(), rr.Body.String(), "password")
	assert.NotContains(s.T(), rr.Body.String(), testPassword)
}

func (s *ApiTestSuite) TestUpdateProfile() {
	s.signUpVerified("Judy", "judy@example.com")
	cookie, _ := s.signIn("judy@example.com")

	rr := s.request("PATCH", "/auth/me", map[string]string{"name": "Judy Q"}, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "Judy Q", s.decode(rr)["user"].(map[string]interface{})["name"])

	rr = s.request("PATCH", "/auth/me", map[string]string{"name": "   "}, cookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func (s *ApiTestSuite) TestActivityLog() {
	s.signUpVerified("Ken", "ken@example.com")
	cookie, _ := s.signIn("ken@example.com")

	rr := s.request("GET", "/auth/activity", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	entries := s.decode(rr)["activity"].([]interface{})
	require.NotEmpty(s.T(), entries)

	// Newest first: the sign-in precedes this request, sign-up before that.
	first := entries[0].(map[string]interface{})
	assert.Equal(s.T(), auth.ActionSignIn, first["action"])
}

func (s *ApiTestSuite) TestPermissionsEndpoint() {
	s.signUpVerified("Laura", "laura@example.com")
	cookie, _ := s.signIn("laura@example.com")

	rr := s.request("GET", "/auth/permissions", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	body := s.decode(rr)
	assert.Equal(s.T(), "user", body["role"])
	assert.Contains(s.T(), body["permissions"], "orgs:read")
	assert.NotContains(s.T(), body["permissions"], "admin:access")
	assert.Nil(s.T(), body["organization_permissions"])

	// Creating an organization makes it the session's active org.
	rr = s.request("POST", "/orgs", map[string]string{"name": "Acme", "slug": "acme"}, cookie, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.request("GET", "/auth/permissions", nil, cookie, "")
	body = s.decode(rr)
	assert.Equal(s.T(), "owner", body["organization_role"])
	assert.Contains(s.T(), body["organization_permissions"], "orgs:delete")
}

func (s *ApiTestSuite) TestOrgFlow() {
	s.signUpVerified("Mallory", "mallory@example.com")
	ownerCookie, _ := s.signIn("mallory@example.com")

	rr := s.request("POST", "/orgs", map[string]string{"name": "Acme", "slug": "acme"}, ownerCookie, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	orgID := s.decode(rr)["organization"].(map[string]interface{})["id"].(string)

	// Slug collisions and bad slugs are rejected.
	rr = s.request("POST", "/orgs", map[string]string{"name": "Other", "slug": "acme"}, ownerCookie, "")
	assert.Equal(s.T(), http.StatusConflict, rr.Code)
	rr = s.request("POST", "/orgs", map[string]string{"name": "Other", "slug": "Bad Slug"}, ownerCookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.request("GET", "/orgs", nil, ownerCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Len(s.T(), s.decode(rr)["organizations"], 1)

	// Invite a second user as admin.
	s.signUpVerified("Nina", "nina@example.com")
	rr = s.request("POST", fmt.Sprintf("/orgs/%s/invitations", orgID), map[string]string{
		"email": "nina@example.com",
		"role":  "admin",
	}, ownerCookie, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	invitationID := s.decode(rr)["invitation"].(map[string]interface{})["id"].(string)

	// Duplicate pending invites are rejected.
	rr = s.request("POST", fmt.Sprintf("/orgs/%s/invitations", orgID), map[string]string{
		"email": "nina@example.com",
	}, ownerCookie, "")
	assert.Equal(s.T(), http.StatusConflict, rr.Code)

	// The invitee sees and accepts it.
	inviteeCookie, _ := s.signIn("nina@example.com")
	rr = s.request("GET", "/invitations", nil, inviteeCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	require.Len(s.T(), s.decode(rr)["invitations"], 1)

	rr = s.request("POST", "/invitations/"+invitationID+"/accept", nil, inviteeCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	member := s.decode(rr)["member"].(map[string]interface{})
	assert.Equal(s.T(), "admin", member["role"])

	rr = s.request("GET", fmt.Sprintf("/orgs/%s/members", orgID), nil, inviteeCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Len(s.T(), s.decode(rr)["members"], 2)

	// Org admins may edit the org but not delete it.
	rr = s.request("PATCH", "/orgs/"+orgID, map[string]string{"name": "Acme Corp"}, inviteeCookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	rr = s.request("DELETE", "/orgs/"+orgID, nil, inviteeCookie, "")
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)

	// Outsiders cannot even see the org.
	s.signUpVerified("Oscar", "oscar@example.com")
	outsiderCookie, _ := s.signIn("oscar@example.com")
	rr = s.request("GET", "/orgs/"+orgID, nil, outsiderCookie, "")
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)

	// The invitee leaves.
	memberID := member["id"].(string)
	rr = s.request("DELETE", fmt.Sprintf("/orgs/%s/members/%s", orgID, memberID), nil, inviteeCookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	rr = s.request("GET", fmt.Sprintf("/orgs/%s/members", orgID), nil, ownerCookie, "")
	assert.Len(s.T(), s.decode(rr)["members"], 1)

	// Owner deletes the org.
	rr = s.request("DELETE", "/orgs/"+orgID, nil, ownerCookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	rr = s.request("GET", "/orgs", nil, ownerCookie, "")
	assert.Len(s.T(), s.decode(rr)["organizations"], 0)
}

func (s *ApiTestSuite) TestSetActiveOrg() {
	s.signUpVerified("Peggy", "peggy@example.com")
	cookie, _ := s.signIn("peggy@example.com")

	rr := s.request("POST", "/orgs", map[string]string{"name": "First", "slug": "first"}, cookie, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code)
	firstID := s.decode(rr)["organization"].(map[string]interface{})["id"].(string)
	rr = s.request("POST", "/orgs", map[string]string{"name": "Second", "slug": "second"}, cookie, "")
	require.Equal(s.T(), http.StatusCreated, rr.Code)
	secondID := s.decode(rr)["organization"].(map[string]interface{})["id"].(string)

	// Creating the second org made it active; switch back to the first.
	rr = s.request("GET", "/auth/me", nil, cookie, "")
	session := s.decode(rr)["session"].(map[string]interface{})
	require.Equal(s.T(), secondID, session["active_organization_id"])

	rr = s.request("POST", "/orgs/"+firstID+"/active", nil, cookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.request("GET", "/auth/me", nil, cookie, "")
	session = s.decode(rr)["session"].(map[string]interface{})
	assert.Equal(s.T(), firstID, session["active_organization_id"])

	// Non-members cannot adopt someone else's org.
	s.signUpVerified("Trudy", "trudy@example.com")
	otherCookie, _ := s.signIn("trudy@example.com")
	rr = s.request("POST", "/orgs/"+firstID+"/active", nil, otherCookie, "")
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)
}

func (s *ApiTestSuite) TestUserSearch() {
	s.signUpVerified("Quentin", "quentin@example.com")
	s.signUpVerified("Quinn", "quinn@example.com")
	cookie, _ := s.signIn("quentin@example.com")

	rr := s.request("GET", "/users/search?q=q", nil, cookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.request("GET", "/users/search?q=quin", nil, cookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	users := s.decode(rr)["users"].([]interface{})
	require.Len(s.T(), users, 1)
	assert.Equal(s.T(), "quinn@example.com", users[0].(map[string]interface{})["email"])
}

func (s *ApiTestSuite) TestMediaUnconfigured() {
	s.signUpVerified("Rita", "rita@example.com")
	cookie, _ := s.signIn("rita@example.com")

	rr := s.request("GET", "/media", nil, cookie, "")
	assert.Equal(s.T(), http.StatusServiceUnavailable, rr.Code)
}

func (s *ApiTestSuite) TestAdminEndpoints() {
	admin := s.signUpVerified("Root", "root@example.com")
	require.NoError(s.T(), database.SetUserRole(admin.ID, models.RoleAdmin))
	target := s.signUpVerified("Sam", "sam@example.com")

	// Regular users are turned away.
	userCookie, _ := s.signIn("sam@example.com")
	rr := s.request("GET", "/admin/users", nil, userCookie, "")
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)

	adminCookie, _ := s.signIn("root@example.com")
	rr = s.request("GET", "/admin/users", nil, adminCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	body := s.decode(rr)
	assert.Equal(s.T(), float64(2), body["total"])

	rr = s.request("GET", "/admin/stats", nil, adminCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	stats := s.decode(rr)
	assert.Equal(s.T(), float64(2), stats["total_users"])
	assert.Equal(s.T(), float64(2), stats["new_users_7d"])

	// Role changes
	rr = s.request("PATCH", "/admin/users/"+target.ID+"/role", map[string]string{"role": "superuser"}, adminCookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	rr = s.request("PATCH", "/admin/users/"+target.ID+"/role", map[string]string{"role": "admin"}, adminCookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)
	updated, err := database.GetUserByID(target.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleAdmin, updated.Role)
	rr = s.request("PATCH", "/admin/users/"+target.ID+"/role", map[string]string{"role": "user"}, adminCookie, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	// Banning revokes the target's sessions and blocks sign-in.
	rr = s.request("POST", "/admin/users/"+target.ID+"/ban", map[string]string{"reason": "spam"}, adminCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())

	rr = s.request("GET", "/auth/me", nil, userCookie, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "sam@example.com", "password": testPassword}, nil, "")
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)

	// Admins cannot ban themselves.
	rr = s.request("POST", "/admin/users/"+admin.ID+"/ban", nil, adminCookie, "")
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.request("POST", "/admin/users/"+target.ID+"/unban", nil, adminCookie, "")
	require.Equal(s.T(), http.StatusOK, rr.Code)
	rr = s.request("POST", "/auth/sign-in", map[string]string{"email": "sam@example.com", "password": testPassword}, nil, "")
	assert.Equal(s.T(), http.StatusOK, rr.Code)

	rr = s.request("PATCH", "/admin/users/does-not-exist/role", map[string]string{"role": "user"}, adminCookie, "")
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)
}

func (s *ApiTestSuite) TestRateLimiter() {
	limitedCfg := s.cfg
	limitedCfg.RateLimitEnabled = true
	limitedCfg.RateLimitRPS = 0.1
	limitedCfg.RateLimitBurst = 2

	limited, err := NewApi(limitedCfg)
	require.NoError(s.T(), err)

	status := func() int {
		req := httptest.NewRequest("POST", "/auth/sign-in", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		limited.Router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.NotEqual(s.T(), http.StatusTooManyRequests, status())
	assert.NotEqual(s.T(), http.StatusTooManyRequests, status())
	rr := status()
	assert.Equal(s.T(), http.StatusTooManyRequests, rr)
}
