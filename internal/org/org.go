// Package org implements organization management: organizations, memberships
// and invitations. Authorization inside the package is derived from the
// caller's membership role.
package org

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/permissions"
)

var (
	ErrOrgNotFound    = errors.New("organization not found")
	ErrSlugTaken      = errors.New("slug already taken")
	ErrInvalidSlug    = errors.New("slug must be 3-50 lowercase letters, digits or hyphens")
	ErrInvalidName    = errors.New("invalid organization name")
	ErrInvalidRole    = errors.New("invalid role")
	ErrNotMember      = errors.New("not a member of this organization")
	ErrForbidden      = errors.New("insufficient permissions")
	ErrLastOwner      = errors.New("organization must keep at least one owner")
	ErrMemberNotFound = errors.New("member not found")
	ErrAlreadyMember  = errors.New("user is already a member")
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug checks an organization slug: lowercase letters, digits and
// single hyphens, 3 to 50 characters.
func ValidateSlug(slug string) bool {
	return len(slug) >= 3 && len(slug) <= 50 && slugRegex.MatchString(slug)
}

// Create makes a new organization with the caller as its owner. When a
// session ID is given, the session's active organization is pointed at the
// new org.
func Create(userID, name, slug string, logo, metadata *string, sessionID *string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if !ValidateSlug(slug) {
		return nil, ErrInvalidSlug
	}

	if _, err := database.GetOrganizationBySlug(slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}

	org := &models.Organization{
		Name:     strings.TrimSpace(name),
		Slug:     slug,
		Logo:     logo,
		Metadata: metadata,
	}
	if err := database.CreateOrganization(org, userID); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if sessionID != nil {
		if err := database.SetSessionActiveOrganization(*sessionID, &org.ID); err != nil {
			log.Printf("[ORG] Failed to set active organization on session %s: %v", *sessionID, err)
		}
	}

	log.Printf("[ORG] Created organization %s (%s)", org.Name, org.Slug)
	return org, nil
}

// Get returns an organization together with the caller's membership.
func Get(userID, orgID string) (*models.Organization, *models.Member, error) {
	member, err := requireMember(orgID, userID)
	if err != nil {
		return nil, nil, err
	}

	org, err := database.GetOrganizationByID(orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up organization: %w", err)
	}
	return org, member, nil
}

// List returns every organization the user belongs to.
func List(userID string) ([]*models.Organization, error) {
	return database.ListOrganizationsByUser(userID)
}

// Update changes an organization's name, logo or metadata. Requires write
// access (admin or owner). Nil fields keep their stored value.
func Update(userID, orgID string, name, logo, metadata *string) (*models.Organization, error) {
	member, err := requireMember(orgID, userID)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(member, permissions.OrgsWrite); err != nil {
		return nil, err
	}

	org, err := database.GetOrganizationByID(orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up organization: %w", err)
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, ErrInvalidName
		}
		org.Name = strings.TrimSpace(*name)
	}
	if logo != nil {
		org.Logo = logo
	}
	if metadata != nil {
		org.Metadata = metadata
	}

	if err := database.UpdateOrganization(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// Delete removes an organization. Owner only. Sessions that had it active
// get their active organization cleared first.
func Delete(userID, orgID string) error {
	member, err := requireMember(orgID, userID)
	if err != nil {
		return err
	}
	if err := requirePermission(member, permissions.OrgsDelete); err != nil {
		return err
	}

	if err := database.ClearActiveOrganization(orgID); err != nil {
		return fmt.Errorf("failed to clear active organization: %w", err)
	}
	if err := database.DeleteOrganization(orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	log.Printf("[ORG] Deleted organization %s", orgID)
	return nil
}

// SetActive points a session at one of the caller's organizations, or clears
// the active organization when orgID is nil.
func SetActive(userID, sessionID string, orgID *string) error {
	if orgID != nil {
		if _, err := requireMember(*orgID, userID); err != nil {
			return err
		}
	}
	if err := database.SetSessionActiveOrganization(sessionID, orgID); err != nil {
		return fmt.Errorf("failed to set active organization: %w", err)
	}
	return nil
}

// ListMembers returns an organization's members with user names and emails
// joined in. Any member may list.
func ListMembers(userID, orgID string) ([]*models.Member, error) {
	if _, err := requireMember(orgID, userID); err != nil {
		return nil, err
	}
	return database.ListMembersByOrganization(orgID)
}

// UpdateMemberRole changes a member's role. Owner only; the last owner
// cannot be demoted.
func UpdateMemberRole(callerID, orgID, memberID string, role models.OrgRole) (*models.Member, error) {
	caller, err := requireMember(orgID, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.OrgRoleOwner {
		return nil, ErrForbidden
	}
	if !validOrgRole(role) {
		return nil, ErrInvalidRole
	}

	target, err := memberInOrg(orgID, memberID)
	if err != nil {
		return nil, err
	}

	if target.Role == models.OrgRoleOwner && role != models.OrgRoleOwner {
		owners, err := database.CountMembersByRole(orgID, models.OrgRoleOwner)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	if err := database.UpdateMemberRole(memberID, role); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	target.Role = role

	log.Printf("[ORG] Member %s in organization %s is now %s", target.UserID, orgID, role)
	return target, nil
}

// RemoveMember removes a member from an organization. Admins and owners can
// remove others, though only an owner can remove another owner. Any member
// may remove themselves, which is how leaving works. The last owner can
// never be removed.
func RemoveMember(callerID, orgID, memberID string) error {
	caller, err := requireMember(orgID, callerID)
	if err != nil {
		return err
	}

	target, err := memberInOrg(orgID, memberID)
	if err != nil {
		return err
	}

	if target.UserID != callerID {
		if err := requirePermission(caller, permissions.MembersWrite); err != nil {
			return err
		}
		if target.Role == models.OrgRoleOwner && caller.Role != models.OrgRoleOwner {
			return ErrForbidden
		}
	}

	if target.Role == models.OrgRoleOwner {
		owners, err := database.CountMembersByRole(orgID, models.OrgRoleOwner)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := database.DeleteMember(memberID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	log.Printf("[ORG] Removed member %s from organization %s", target.UserID, orgID)
	return nil
}

func requireMember(orgID, userID string) (*models.Member, error) {
	member, err := database.GetMember(orgID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up membership: %w", err)
	}
	return member, nil
}

func requirePermission(member *models.Member, perm string) error {
	if !permissions.Has(permissions.ComputeOrg(string(member.Role)), perm) {
		return ErrForbidden
	}
	return nil
}

// memberInOrg loads a member row and checks it belongs to the organization.
func memberInOrg(orgID, memberID string) (*models.Member, error) {
	member, err := database.GetMemberByID(memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if member.OrganizationID != orgID {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

func validOrgRole(role models.OrgRole) bool {
	switch role {
	case models.OrgRoleOwner, models.OrgRoleAdmin, models.OrgRoleMember:
		return true
	}
	return false
}

// roleRank orders organization roles so invitation roles can be capped at
// the inviter's own rank.
func roleRank(role models.OrgRole) int {
	switch role {
	case models.OrgRoleOwner:
		return 3
	case models.OrgRoleAdmin:
		return 2
	case models.OrgRoleMember:
		return 1
	}
	return 0
}
