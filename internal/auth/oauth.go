package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

const (
	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	githubTokenURL     = "https://github.com/login/oauth/access_token"
	githubUserURL      = "https://api.github.com/user"
	githubEmailsURL    = "https://api.github.com/user/emails"
	githubScopes       = "read:user user:email"

	googleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL     = "https://oauth2.googleapis.com/token"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleScopes       = "openid email profile"

	oauthStateTTL = 10 * time.Minute
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrInvalidState    = errors.New("invalid oauth state")
)

// OAuthProvider holds the endpoints and credentials for one provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	Scopes       string
}

// OAuthUser is the provider-agnostic identity extracted from a user-info
// response.
type OAuthUser struct {
	AccountID string
	Email     string
	Name      string
	Image     *string
}

type oauthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// OAuthService drives the authorization-code flow for GitHub and Google.
// Providers without configured credentials are not registered.
type OAuthService struct {
	providers  map[string]OAuthProvider
	baseURL    string
	httpClient *http.Client
}

// NewOAuthService builds the service from the configured provider credentials.
func NewOAuthService(cfg *config.Config) *OAuthService {
	providers := map[string]OAuthProvider{}

	if cfg.GitHubClientID != "" {
		providers[models.ProviderGitHub] = OAuthProvider{
			Name:         models.ProviderGitHub,
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			AuthorizeURL: githubAuthorizeURL,
			TokenURL:     githubTokenURL,
			Scopes:       githubScopes,
		}
		log.Printf("[AUTH] OAuth provider enabled: github")
	}
	if cfg.GoogleClientID != "" {
		providers[models.ProviderGoogle] = OAuthProvider{
			Name:         models.ProviderGoogle,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			AuthorizeURL: googleAuthorizeURL,
			TokenURL:     googleTokenURL,
			Scopes:       googleScopes,
		}
		log.Printf("[AUTH] OAuth provider enabled: google")
	}

	return &OAuthService{
		providers: providers,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Provider returns a registered provider by name.
func (s *OAuthService) Provider(name string) (OAuthProvider, error) {
	provider, ok := s.providers[name]
	if !ok {
		return OAuthProvider{}, ErrUnknownProvider
	}
	return provider, nil
}

// AuthURL stores a state nonce and returns the provider's authorize URL to
// redirect the browser to.
func (s *OAuthService) AuthURL(providerName string) (string, error) {
	provider, err := s.Provider(providerName)
	if err != nil {
		return "", err
	}

	state, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %v", err)
	}

	verification := &models.Verification{
		Identifier: "oauth-state:" + provider.Name,
		Value:      state,
		ExpiresAt:  time.Now().Add(oauthStateTTL),
	}
	if err := database.CreateVerification(verification); err != nil {
		return "", fmt.Errorf("failed to store state: %v", err)
	}

	params := url.Values{}
	params.Set("client_id", provider.ClientID)
	params.Set("redirect_uri", s.redirectURI(provider.Name))
	params.Set("response_type", "code")
	params.Set("scope", provider.Scopes)
	params.Set("state", state)

	return provider.AuthorizeURL + "?" + params.Encode(), nil
}

// HandleCallback completes the flow: it checks the state nonce, exchanges the
// code for tokens, fetches the provider identity and signs the user in,
// linking the account to an existing user by email or creating a new one.
func (s *OAuthService) HandleCallback(providerName, state, code string, duration time.Duration, meta SessionMetadata) (*models.User, *models.Session, error) {
	provider, err := s.Provider(providerName)
	if err != nil {
		return nil, nil, err
	}

	if err := s.consumeState(provider.Name, state); err != nil {
		return nil, nil, err
	}

	token, err := s.exchangeCode(provider, code)
	if err != nil {
		return nil, nil, err
	}

	identity, err := s.fetchUser(provider, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.signInWithIdentity(provider, identity, token)
	if err != nil {
		return nil, nil, err
	}

	session, err := CreateSession(user.ID, duration, meta)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[AUTH] User %s signed in via %s", user.Email, provider.Name)
	return user, session, nil
}

func (s *OAuthService) redirectURI(providerName string) string {
	return s.baseURL + "/auth/oauth/" + providerName + "/callback"
}

func (s *OAuthService) consumeState(providerName, state string) error {
	verification, err := database.GetVerification("oauth-state:"+providerName, state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("failed to look up state: %v", err)
	}

	if err := database.DeleteVerification(verification.ID); err != nil {
		return fmt.Errorf("failed to consume state: %v", err)
	}
	if verification.IsExpired() {
		return ErrInvalidState
	}
	return nil
}

func (s *OAuthService) exchangeCode(provider OAuthProvider, code string) (*oauthToken, error) {
	form := url.Values{}
	form.Set("client_id", provider.ClientID)
	form.Set("client_secret", provider.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", s.redirectURI(provider.Name))

	req, err := http.NewRequest(http.MethodPost, provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// GitHub answers with form-encoded data unless JSON is requested
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token oauthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %v", err)
	}
	if token.Error != "" {
		return nil, fmt.Errorf("token endpoint returned %s: %s", token.Error, token.ErrorDesc)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token endpoint returned no access token")
	}

	return &token, nil
}

func (s *OAuthService) fetchUser(provider OAuthProvider, accessToken string) (*OAuthUser, error) {
	switch provider.Name {
	case models.ProviderGitHub:
		return s.fetchGitHubUser(accessToken)
	case models.ProviderGoogle:
		return s.fetchGoogleUser(accessToken)
	default:
		return nil, ErrUnknownProvider
	}
}

func (s *OAuthService) fetchGitHubUser(accessToken string) (*OAuthUser, error) {
	var ghUser struct {
		ID        int64   `json:"id"`
		Login     string  `json:"login"`
		Name      *string `json:"name"`
		Email     *string `json:"email"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := s.getJSON(githubUserURL, accessToken, &ghUser); err != nil {
		return nil, err
	}

	user := &OAuthUser{
		AccountID: fmt.Sprintf("%d", ghUser.ID),
		Name:      ghUser.Login,
		Image:     ghUser.AvatarURL,
	}
	if ghUser.Name != nil && *ghUser.Name != "" {
		user.Name = *ghUser.Name
	}
	if ghUser.Email != nil {
		user.Email = *ghUser.Email
	}

	// The profile email is null when the user keeps it private; the emails
	// endpoint still lists it
	if user.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := s.getJSON(githubEmailsURL, accessToken, &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				user.Email = e.Email
				break
			}
		}
		if user.Email == "" {
			for _, e := range emails {
				if e.Verified {
					user.Email = e.Email
					break
				}
			}
		}
	}

	if user.Email == "" {
		return nil, errors.New("github account has no usable email address")
	}
	return user, nil
}

func (s *OAuthService) fetchGoogleUser(accessToken string) (*OAuthUser, error) {
	var gUser struct {
		ID      string  `json:"id"`
		Email   string  `json:"email"`
		Name    string  `json:"name"`
		Picture *string `json:"picture"`
	}
	if err := s.getJSON(googleUserInfoURL, accessToken, &gUser); err != nil {
		return nil, err
	}

	if gUser.Email == "" {
		return nil, errors.New("google account has no email address")
	}

	user := &OAuthUser{
		AccountID: gUser.ID,
		Email:     gUser.Email,
		Name:      gUser.Name,
		Image:     gUser.Picture,
	}
	if user.Name == "" {
		user.Name = gUser.Email
	}
	return user, nil
}

func (s *OAuthService) getJSON(endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (s *OAuthService) signInWithIdentity(provider OAuthProvider, identity *OAuthUser, token *oauthToken) (*models.User, error) {
	var expiresAt *time.Time
	if token.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		expiresAt = &t
	}
	var refreshToken *string
	if token.RefreshToken != "" {
		refreshToken = &token.RefreshToken
	}

	account, err := database.GetAccountByProvider(provider.Name, identity.AccountID)
	if err == nil {
		if err := database.UpdateAccountTokens(account.ID, &token.AccessToken, refreshToken, expiresAt); err != nil {
			log.Printf("[AUTH] Failed to refresh tokens for account %s: %v", account.ID, err)
		}
		user, err := database.GetUserByID(account.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %v", err)
		}
		if err := checkBan(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up account: %v", err)
	}

	email := NormalizeEmail(identity.Email)

	user, err := database.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		// The provider vouches for the address, so the new user starts
		// out verified
		user = &models.User{
			Name:          identity.Name,
			Email:         email,
			EmailVerified: true,
			Image:         identity.Image,
		}
		if err := database.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %v", err)
		}
		log.Printf("[AUTH] Created user %s via %s", email, provider.Name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user: %v", err)
	}

	if err := checkBan(user); err != nil {
		return nil, err
	}

	newAccount := &models.Account{
		UserID:               user.ID,
		ProviderID:           provider.Name,
		AccountID:            identity.AccountID,
		AccessToken:          &token.AccessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: expiresAt,
		Scope:                &provider.Scopes,
	}
	if err := database.CreateAccount(newAccount); err != nil {
		return nil, fmt.Errorf("failed to link account: %v", err)
	}
	log.Printf("[AUTH] Linked %s account to user %s", provider.Name, user.Email)

	return user, nil
}
