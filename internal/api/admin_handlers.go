package api

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

func (api *Api) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := database.GetAllUsers(limit, offset)
	if err != nil {
		log.Printf("[API] Failed to list users: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	total, err := database.CountUsers()
	if err != nil {
		log.Printf("[API] Failed to count users: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (api *Api) AdminSetRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := models.Role(req.Role)
	if role != models.RoleUser && role != models.RoleAdmin {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	target, ok := api.loadTargetUser(w, userID)
	if !ok {
		return
	}

	if err := database.SetUserRole(target.ID, role); err != nil {
		log.Printf("[API] Failed to set role for user %s: %v", target.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update role")
		return
	}

	log.Printf("[API] User %s role changed to %s", target.ID, role)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) AdminBanUserHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.GetUserFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	var req struct {
		Reason    *string    `json:"reason"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, ok := api.loadTargetUser(w, userID)
	if !ok {
		return
	}
	if target.ID == admin.ID {
		writeError(w, http.StatusBadRequest, "cannot ban yourself")
		return
	}

	if err := database.SetUserBan(target.ID, true, req.Reason, req.ExpiresAt); err != nil {
		log.Printf("[API] Failed to ban user %s: %v", target.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to ban user")
		return
	}

	// A banned user loses every open session immediately.
	if err := database.DeleteSessionsByUser(target.ID); err != nil {
		log.Printf("[API] Failed to revoke sessions of banned user %s: %v", target.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to ban user")
		return
	}

	auth.RecordActivity(admin.ID, auth.ActionUserBanned, nil, requestMetadata(r))
	log.Printf("[API] User %s banned by %s", target.ID, admin.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) AdminUnbanUserHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.GetUserFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	target, ok := api.loadTargetUser(w, userID)
	if !ok {
		return
	}

	if err := database.SetUserBan(target.ID, false, nil, nil); err != nil {
		log.Printf("[API] Failed to unban user %s: %v", target.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to unban user")
		return
	}

	auth.RecordActivity(admin.ID, auth.ActionUserUnbanned, nil, requestMetadata(r))
	log.Printf("[API] User %s unbanned by %s", target.ID, admin.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	total, err := database.CountUsers()
	if err != nil {
		api.writeStatsError(w, err)
		return
	}
	verified, err := database.CountVerifiedUsers()
	if err != nil {
		api.writeStatsError(w, err)
		return
	}
	recent, err := database.CountUsersCreatedSince(time.Now().AddDate(0, 0, -7))
	if err != nil {
		api.writeStatsError(w, err)
		return
	}
	byRole, err := database.CountUsersByRole()
	if err != nil {
		api.writeStatsError(w, err)
		return
	}
	activeSessions, err := database.CountActiveSessions()
	if err != nil {
		api.writeStatsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":     total,
		"verified_users":  verified,
		"new_users_7d":    recent,
		"users_by_role":   byRole,
		"active_sessions": activeSessions,
	})
}

func (api *Api) writeStatsError(w http.ResponseWriter, err error) {
	log.Printf("[API] Failed to compute admin stats: %v", err)
	writeError(w, http.StatusInternalServerError, "failed to compute stats")
}

func (api *Api) loadTargetUser(w http.ResponseWriter, userID string) (*models.User, bool) {
	target, err := database.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[API] Failed to load user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "request failed")
		return nil, false
	}
	return target, true
}
