package org

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/auth"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/permissions"
)

const invitationTTL = 48 * time.Hour

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInviteExists       = errors.New("a pending invitation already exists for this email")
	ErrEmailMismatch      = errors.New("invitation was sent to a different email")
)

// Invite creates a pending invitation for an email address. Requires
// invitation access (admin or owner), and the invited role cannot outrank
// the inviter's own. The caller is responsible for sending the email.
func Invite(callerID, orgID, email string, role models.OrgRole) (*models.Invitation, error) {
	caller, err := requireMember(orgID, callerID)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(caller, permissions.InvitationsWrite); err != nil {
		return nil, err
	}

	if !validOrgRole(role) {
		return nil, ErrInvalidRole
	}
	if roleRank(role) > roleRank(caller.Role) {
		return nil, ErrForbidden
	}

	email = auth.NormalizeEmail(email)
	if !auth.ValidateEmail(email) {
		return nil, errors.New("invalid email address")
	}

	// Existing members don't need an invitation
	if user, err := database.GetUserByEmail(email); err == nil {
		if _, err := database.GetMember(orgID, user.ID); err == nil {
			return nil, ErrAlreadyMember
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if pending, err := database.GetPendingInvitation(orgID, email); err == nil {
		if !pending.IsExpired() {
			return nil, ErrInviteExists
		}
		// A stale pending invite just moves aside
		if err := database.UpdateInvitationStatus(pending.ID, models.InvitationStatusExpired); err != nil {
			return nil, fmt.Errorf("failed to expire previous invitation: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	invitation := &models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		ExpiresAt:      time.Now().Add(invitationTTL),
		InviterID:      callerID,
	}
	if err := database.CreateInvitation(invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	log.Printf("[ORG] Invited %s to organization %s as %s", email, orgID, role)
	return invitation, nil
}

// GetInvitation returns an invitation by ID, with the organization name and
// inviter email joined in.
func GetInvitation(id string) (*models.Invitation, error) {
	invitation, err := database.GetInvitationByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	return invitation, nil
}

// ListInvitations returns an organization's pending invitations. Requires
// invitation access. Invitations past their expiry are transitioned out of
// pending on the way through.
func ListInvitations(callerID, orgID string) ([]*models.Invitation, error) {
	caller, err := requireMember(orgID, callerID)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(caller, permissions.InvitationsWrite); err != nil {
		return nil, err
	}

	pending, err := database.ListInvitationsByOrganization(orgID)
	if err != nil {
		return nil, err
	}
	return sweepExpired(pending), nil
}

// ListUserInvitations returns the pending invitations addressed to an email.
func ListUserInvitations(email string) ([]*models.Invitation, error) {
	pending, err := database.ListInvitationsByEmail(auth.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return sweepExpired(pending), nil
}

// AcceptInvitation joins the caller to the organization the invitation is
// for. The invitation must be pending, unexpired and addressed to the
// caller's email.
func AcceptInvitation(userID, invitationID string) (*models.Member, error) {
	user, err := database.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	invitation, err := pendingInvitation(invitationID)
	if err != nil {
		return nil, err
	}
	if auth.NormalizeEmail(user.Email) != invitation.Email {
		return nil, ErrEmailMismatch
	}

	if _, err := database.GetMember(invitation.OrganizationID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.Member{
		OrganizationID: invitation.OrganizationID,
		UserID:         userID,
		Role:           invitation.Role,
	}
	if err := database.CreateMember(member); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	if err := database.UpdateInvitationStatus(invitationID, models.InvitationStatusAccepted); err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	log.Printf("[ORG] %s accepted invitation to organization %s", user.Email, invitation.OrganizationID)
	return member, nil
}

// RejectInvitation declines a pending invitation addressed to the caller.
func RejectInvitation(userID, invitationID string) error {
	user, err := database.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	invitation, err := pendingInvitation(invitationID)
	if err != nil {
		return err
	}
	if auth.NormalizeEmail(user.Email) != invitation.Email {
		return ErrEmailMismatch
	}

	return database.UpdateInvitationStatus(invitationID, models.InvitationStatusRejected)
}

// CancelInvitation withdraws a pending invitation. Requires invitation
// access in the invitation's organization.
func CancelInvitation(callerID, orgID, invitationID string) error {
	caller, err := requireMember(orgID, callerID)
	if err != nil {
		return err
	}
	if err := requirePermission(caller, permissions.InvitationsWrite); err != nil {
		return err
	}

	invitation, err := pendingInvitation(invitationID)
	if err != nil {
		return err
	}
	if invitation.OrganizationID != orgID {
		return ErrInvitationNotFound
	}

	return database.UpdateInvitationStatus(invitationID, models.InvitationStatusCanceled)
}

// pendingInvitation loads an invitation and checks it is still actionable,
// expiring it on the spot when its time has passed.
func pendingInvitation(id string) (*models.Invitation, error) {
	invitation, err := GetInvitation(id)
	if err != nil {
		return nil, err
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, ErrInvitationNotFound
	}
	if invitation.IsExpired() {
		if err := database.UpdateInvitationStatus(id, models.InvitationStatusExpired); err != nil {
			log.Printf("[ORG] Failed to expire invitation %s: %v", id, err)
		}
		return nil, ErrInvitationExpired
	}
	return invitation, nil
}

// sweepExpired drops expired invitations from a pending list, marking them
// expired as a side effect.
func sweepExpired(pending []*models.Invitation) []*models.Invitation {
	live := pending[:0]
	for _, invitation := range pending {
		if invitation.IsExpired() {
			if err := database.UpdateInvitationStatus(invitation.ID, models.InvitationStatusExpired); err != nil {
				log.Printf("[ORG] Failed to expire invitation %s: %v", invitation.ID, err)
			}
			continue
		}
		live = append(live, invitation)
	}
	return live
}
