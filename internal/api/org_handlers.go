package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/org"
)

func (api *Api) CreateOrgHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	var req struct {
		Name     string  `json:"name"`
		Slug     string  `json:"slug"`
		Logo     *string `json:"logo"`
		Metadata *string `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The creating session becomes active on the new organization.
	var sessionID *string
	if session, ok := auth.GetSessionFromContext(r.Context()); ok {
		sessionID = &session.ID
	}

	created, err := org.Create(user.ID, req.Name, req.Slug, req.Logo, req.Metadata, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, org.ErrInvalidSlug), errors.Is(err, org.ErrInvalidName):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, org.ErrSlugTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("[API] Failed to create organization for user %s: %v", user.ID, err)
			writeError(w, http.StatusInternalServerError, "failed to create organization")
		}
		return
	}

	auth.RecordActivity(user.ID, auth.ActionOrgCreated, sessionID, requestMetadata(r))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"organization": created})
}

func (api *Api) ListOrgsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	orgs, err := org.List(user.ID)
	if err != nil {
		log.Printf("[API] Failed to list organizations for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list organizations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

func (api *Api) GetOrgHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	organization, member, err := org.Get(user.ID, orgID)
	if err != nil {
		api.writeOrgError(w, err, "Failed to get organization "+orgID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": organization,
		"member":       member,
	})
}

func (api *Api) UpdateOrgHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	var req struct {
		Name     *string `json:"name"`
		Logo     *string `json:"logo"`
		Metadata *string `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := org.Update(user.ID, orgID, req.Name, req.Logo, req.Metadata)
	if err != nil {
		api.writeOrgError(w, err, "Failed to update organization "+orgID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"organization": updated})
}

func (api *Api) DeleteOrgHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	if err := org.Delete(user.ID, orgID); err != nil {
		api.writeOrgError(w, err, "Failed to delete organization "+orgID)
		return
	}

	auth.RecordActivity(user.ID, auth.ActionOrgDeleted, nil, requestMetadata(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// SetActiveOrgHandler switches the current session's active organization.
// Bearer-only requests have no session row to update.
func (api *Api) SetActiveOrgHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	session, ok := auth.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "setting an active organization requires a session")
		return
	}

	if err := org.SetActive(user.ID, session.ID, &orgID); err != nil {
		api.writeOrgError(w, err, "Failed to set active organization "+orgID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	members, err := org.ListMembers(user.ID, orgID)
	if err != nil {
		api.writeOrgError(w, err, "Failed to list members of organization "+orgID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

func (api *Api) UpdateMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")
	memberID := chi.URLParam(r, "memberID")

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := org.UpdateMemberRole(user.ID, orgID, memberID, models.OrgRole(req.Role))
	if err != nil {
		api.writeOrgError(w, err, "Failed to update member "+memberID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"member": member})
}

func (api *Api) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")
	memberID := chi.URLParam(r, "memberID")

	if err := org.RemoveMember(user.ID, orgID, memberID); err != nil {
		api.writeOrgError(w, err, "Failed to remove member "+memberID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (api *Api) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = string(models.OrgRoleMember)
	}
	if !auth.ValidateEmail(auth.NormalizeEmail(req.Email)) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	invitation, err := org.Invite(user.ID, orgID, req.Email, models.OrgRole(req.Role))
	if err != nil {
		api.writeOrgError(w, err, "Failed to invite "+req.Email)
		return
	}

	// The accept link lands on the frontend, which calls back with the ID.
	if organization, _, err := org.Get(user.ID, orgID); err == nil {
		if err := api.mailer.SendInvitationEmail(invitation.Email, organization.Name, user.Email, string(invitation.Role), invitation.ID); err != nil {
			log.Printf("[API] Failed to send invitation email to %s: %v", invitation.Email, err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"invitation": invitation})
}

func (api *Api) ListOrgInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	invitations, err := org.ListInvitations(user.ID, orgID)
	if err != nil {
		api.writeOrgError(w, err, "Failed to list invitations of organization "+orgID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

func (api *Api) CancelInvitationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")
	invitationID := chi.URLParam(r, "invitationID")

	if err := org.CancelInvitation(user.ID, orgID, invitationID); err != nil {
		api.writeOrgError(w, err, "Failed to cancel invitation "+invitationID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ListMyInvitationsHandler returns pending invitations addressed to the
// signed-in user's email.
func (api *Api) ListMyInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	invitations, err := org.ListUserInvitations(user.Email)
	if err != nil {
		log.Printf("[API] Failed to list invitations for user %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

func (api *Api) AcceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	invitationID := chi.URLParam(r, "invitationID")

	member, err := org.AcceptInvitation(user.ID, invitationID)
	if err != nil {
		api.writeOrgError(w, err, "Failed to accept invitation "+invitationID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"member": member})
}

func (api *Api) RejectInvitationHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	invitationID := chi.URLParam(r, "invitationID")

	if err := org.RejectInvitation(user.ID, invitationID); err != nil {
		api.writeOrgError(w, err, "Failed to reject invitation "+invitationID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// writeOrgError maps organization domain errors onto HTTP statuses. Errors
// that would reveal whether a hidden organization exists collapse into 404.
func (api *Api) writeOrgError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, org.ErrOrgNotFound), errors.Is(err, org.ErrNotMember):
		writeError(w, http.StatusNotFound, org.ErrOrgNotFound.Error())
	case errors.Is(err, org.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, org.ErrInvitationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, org.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, org.ErrEmailMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, org.ErrInvalidSlug), errors.Is(err, org.ErrInvalidName), errors.Is(err, org.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, org.ErrSlugTaken), errors.Is(err, org.ErrAlreadyMember), errors.Is(err, org.ErrInviteExists), errors.Is(err, org.ErrLastOwner):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, org.ErrInvitationExpired):
		writeError(w, http.StatusGone, err.Error())
	default:
		log.Printf("[API] %s: %v", logMsg, err)
		writeError(w, http.StatusInternalServerError, "request failed")
	}
}
