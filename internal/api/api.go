package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/email"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/s3"
)

// Bearer tokens issued at sign-in are deliberately shorter lived than the
// session cookie; API clients are expected to sign in again.
const bearerTokenTTL = 24 * time.Hour

type Api struct {
	Config       config.Config
	Router       *chi.Mux
	tokenManager *auth.TokenManager
	oauth        *auth.OAuthService
	mailer       *email.Mailer
	media        *s3.Client
	limiter      *visitorLimiter
}

func NewApi(cfg config.Config) (*Api, error) {
	api := &Api{
		Config:       cfg,
		Router:       chi.NewRouter(),
		tokenManager: auth.NewTokenManager(cfg.JWTSecret),
		oauth:        auth.NewOAuthService(&cfg),
		mailer:       email.NewMailer(&cfg),
	}

	if cfg.S3Bucket != "" {
		client, err := s3.NewClient(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media storage: %w", err)
		}
		api.media = client
	}

	if cfg.RateLimitEnabled {
		api.limiter = newVisitorLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	// Add CORS middleware before other middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{api.Config.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trusted-Device"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/heartbeat", api.Heartbeat)

	// Public routes
	r.Group(func(r chi.Router) {
		if api.limiter != nil {
			r.Use(api.RateLimit)
		}

		r.Get("/auth/password-requirements", api.PasswordRequirementsHandler)
		r.Post("/auth/sign-up", api.SignUpHandler)
		r.Post("/auth/sign-in", api.SignInHandler)
		r.Post("/auth/sign-out", api.SignOutHandler)
		r.Post("/auth/otp/send", api.SendOTPHandler)
		r.Post("/auth/otp/verify", api.VerifyOTPHandler)
		r.Get("/auth/verify-email", api.VerifyEmailHandler)
		r.Post("/auth/verification/resend", api.ResendVerificationHandler)
		r.Post("/auth/forgot-password", api.ForgotPasswordHandler)
		r.Post("/auth/reset-password", api.ResetPasswordHandler)
		r.Get("/auth/oauth/{provider}", api.OAuthRedirectHandler)
		r.Get("/auth/oauth/{provider}/callback", api.OAuthCallbackHandler)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(api.tokenManager))
		if api.limiter != nil {
			r.Use(api.RateLimit)
		}

		r.Get("/auth/me", api.MeHandler)
		r.Patch("/auth/me", api.UpdateProfileHandler)
		r.Get("/auth/accounts", api.ListAccountsHandler)
		r.Post("/auth/change-password", api.ChangePasswordHandler)
		r.Get("/auth/sessions", api.ListSessionsHandler)
		r.Delete("/auth/sessions/{sessionID}", api.RevokeSessionHandler)
		r.Post("/auth/sessions/revoke-others", api.RevokeOtherSessionsHandler)
		r.Get("/auth/activity", api.ActivityHandler)
		r.Get("/auth/devices", api.ListDevicesHandler)
		r.Delete("/auth/devices/{deviceID}", api.RevokeDeviceHandler)
		r.Get("/auth/permissions", api.PermissionsHandler)

		r.Get("/users/search", api.SearchUsersHandler)

		r.Post("/orgs", api.CreateOrgHandler)
		r.Get("/orgs", api.ListOrgsHandler)
		r.Get("/orgs/{orgID}", api.GetOrgHandler)
		r.Patch("/orgs/{orgID}", api.UpdateOrgHandler)
		r.Delete("/orgs/{orgID}", api.DeleteOrgHandler)
		r.Post("/orgs/{orgID}/active", api.SetActiveOrgHandler)
		r.Get("/orgs/{orgID}/members", api.ListMembersHandler)
		r.Patch("/orgs/{orgID}/members/{memberID}", api.UpdateMemberRoleHandler)
		r.Delete("/orgs/{orgID}/members/{memberID}", api.RemoveMemberHandler)
		r.Post("/orgs/{orgID}/invitations", api.CreateInvitationHandler)
		r.Get("/orgs/{orgID}/invitations", api.ListOrgInvitationsHandler)
		r.Delete("/orgs/{orgID}/invitations/{invitationID}", api.CancelInvitationHandler)

		r.Get("/invitations", api.ListMyInvitationsHandler)
		r.Post("/invitations/{invitationID}/accept", api.AcceptInvitationHandler)
		r.Post("/invitations/{invitationID}/reject", api.RejectInvitationHandler)

		r.Post("/media", api.UploadMediaHandler)
		r.Get("/media", api.ListMediaHandler)
		r.Get("/media/{mediaID}/url", api.MediaURLHandler)
		r.Delete("/media/{mediaID}", api.DeleteMediaHandler)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(auth.AdminOnly)

			r.Get("/admin/users", api.AdminListUsersHandler)
			r.Patch("/admin/users/{userID}/role", api.AdminSetRoleHandler)
			r.Post("/admin/users/{userID}/ban", api.AdminBanUserHandler)
			r.Post("/admin/users/{userID}/unban", api.AdminUnbanUserHandler)
			r.Get("/admin/stats", api.AdminStatsHandler)
		})
	})
}

func (api *Api) Serve() {
	// Expired rows pile up silently, so sweep them in the background.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			if err := auth.CleanupExpiredSessions(); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
			if err := database.CleanupExpiredVerifications(); err != nil {
				log.Printf("Error cleaning up expired verifications: %v", err)
			}
			if err := database.CleanupExpiredTrustedDevices(); err != nil {
				log.Printf("Error cleaning up expired trusted devices: %v", err)
			}
			if err := database.CleanupOldActivity(time.Now().AddDate(0, 0, -90)); err != nil {
				log.Printf("Error cleaning up old activity logs: %v", err)
			}
			<-ticker.C
		}
	}()

	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON fills dst from the request body. An empty body is not an
// error; handlers treat it as a request with no fields set.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// requestMetadata extracts the client IP and user agent recorded on sessions
// and activity rows. RealIP middleware has already unwrapped proxy headers.
func requestMetadata(r *http.Request) auth.SessionMetadata {
	meta := auth.SessionMetadata{}
	if ip := clientIP(r); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
