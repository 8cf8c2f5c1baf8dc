package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

type contextKey string

const (
	UserContextKey    contextKey = "user"
	SessionContextKey contextKey = "session"
)

// SessionCookieName is the cookie the browser client authenticates with.
const SessionCookieName = "session_token"

// Middleware resolves the caller from a bearer JWT or a session cookie and
// stores the user (and session, when cookie-based) on the request context.
// Requests without valid credentials are rejected with 401.
func Middleware(tokenManager *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, tokenManager)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrUserBanned) {
					status = http.StatusForbidden
				}
				writeAuthError(w, status, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, tokenManager *TokenManager) (context.Context, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, ErrInvalidToken
		}

		claims, err := tokenManager.ValidateToken(parts[1])
		if err != nil {
			return nil, err
		}

		user, err := GetUser(claims.UserID)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if err := checkBan(user); err != nil {
			return nil, err
		}

		return WithUser(r.Context(), user), nil
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}

	session, err := ValidateSession(cookie.Value)
	if err != nil {
		return nil, err
	}

	user, err := GetUser(session.UserID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := checkBan(user); err != nil {
		return nil, err
	}

	ctx := WithUser(r.Context(), user)
	return WithSession(ctx, session), nil
}

// AdminOnly rejects requests whose authenticated user is not an admin.
// It must run after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// WithSession returns a context carrying the authenticated session.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// GetUserFromContext retrieves the authenticated user from the context.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetSessionFromContext retrieves the session from the context. It is only
// present when the request authenticated with a session cookie.
func GetSessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	return session, ok
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
