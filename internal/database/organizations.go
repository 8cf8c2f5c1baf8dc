package database

import (
	"time"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// CreateOrganization inserts the organization and its owner membership in a
// single transaction so an org can never exist without an owner.
func CreateOrganization(org *models.Organization, ownerUserID string) error {
	if org.ID == "" {
		org.ID = GenerateID()
	}
	org.CreatedAt = time.Now()

	tx, err := dbConn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(rebind(`INSERT INTO organizations (id, name, slug, logo, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		org.ID, org.Name, org.Slug, org.Logo, org.Metadata, org.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(rebind(`INSERT INTO members (id, organization_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		GenerateID(), org.ID, ownerUserID, models.OrgRoleOwner, time.Now(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrganizationByID retrieves an organization by ID
func GetOrganizationByID(id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := dbConn.Get(org, rebind("SELECT * FROM organizations WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return org, nil
}

// GetOrganizationBySlug retrieves an organization by its slug
func GetOrganizationBySlug(slug string) (*models.Organization, error) {
	org := &models.Organization{}
	err := dbConn.Get(org, rebind("SELECT * FROM organizations WHERE slug = ?"), slug)
	if err != nil {
		return nil, err
	}
	return org, nil
}

// UpdateOrganization updates an organization's name, logo and metadata
func UpdateOrganization(org *models.Organization) error {
	_, err := dbConn.Exec(rebind("UPDATE organizations SET name = ?, logo = ?, metadata = ? WHERE id = ?"),
		org.Name, org.Logo, org.Metadata, org.ID)
	return err
}

// DeleteOrganization removes an organization; members and invitations follow
// through cascades
func DeleteOrganization(id string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM organizations WHERE id = ?"), id)
	return err
}

// ListOrganizationsByUser returns every organization the user is a member of
func ListOrganizationsByUser(userID string) ([]*models.Organization, error) {
	orgs := []*models.Organization{}
	err := dbConn.Select(&orgs, rebind(`SELECT o.* FROM organizations o
		JOIN members m ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at`), userID)
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// CreateMember inserts a membership row
func CreateMember(member *models.Member) error {
	if member.ID == "" {
		member.ID = GenerateID()
	}
	if member.Role == "" {
		member.Role = models.OrgRoleMember
	}
	member.CreatedAt = time.Now()

	_, err := dbConn.Exec(rebind(`INSERT INTO members (id, organization_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		member.ID, member.OrganizationID, member.UserID, member.Role, member.CreatedAt,
	)
	return err
}

// GetMember retrieves a membership by organization and user
func GetMember(orgID, userID string) (*models.Member, error) {
	member := &models.Member{}
	err := dbConn.Get(member, rebind("SELECT * FROM members WHERE organization_id = ? AND user_id = ?"), orgID, userID)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// GetMemberByID retrieves a membership by its row ID
func GetMemberByID(id string) (*models.Member, error) {
	member := &models.Member{}
	err := dbConn.Get(member, rebind("SELECT * FROM members WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembersByOrganization returns an organization's members joined with
// the user's name and email for display
func ListMembersByOrganization(orgID string) ([]*models.Member, error) {
	members := []*models.Member{}
	err := dbConn.Select(&members, rebind(`SELECT m.*, u.name AS user_name, u.email AS user_email
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = ?
		ORDER BY m.created_at`), orgID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMemberRole changes a membership's role
func UpdateMemberRole(memberID string, role models.OrgRole) error {
	_, err := dbConn.Exec(rebind("UPDATE members SET role = ? WHERE id = ?"), role, memberID)
	return err
}

// DeleteMember removes a membership
func DeleteMember(memberID string) error {
	_, err := dbConn.Exec(rebind("DELETE FROM members WHERE id = ?"), memberID)
	return err
}

// CountMembersByRole returns how many members hold the given role
func CountMembersByRole(orgID string, role models.OrgRole) (int, error) {
	var count int
	err := dbConn.Get(&count, rebind("SELECT COUNT(*) FROM members WHERE organization_id = ? AND role = ?"), orgID, role)
	return count, err
}

// CreateInvitation inserts an invitation row
func CreateInvitation(inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = GenerateID()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationStatusPending
	}
	inv.CreatedAt = time.Now()

	_, err := dbConn.Exec(rebind(`INSERT INTO invitations
		(id, organization_id, email, role, status, expires_at, inviter_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID, inv.OrganizationID, inv.Email, inv.Role, inv.Status,
		inv.ExpiresAt, inv.InviterID, inv.CreatedAt,
	)
	return err
}

// GetInvitationByID retrieves an invitation joined with the organization
// name and inviter email
func GetInvitationByID(id string) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := dbConn.Get(inv, rebind(`SELECT i.*, o.name AS organization_name, u.email AS inviter_email
		FROM invitations i
		JOIN organizations o ON o.id = i.organization_id
		JOIN users u ON u.id = i.inviter_id
		WHERE i.id = ?`), id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetPendingInvitation retrieves an organization's pending invitation for an
// email address, if any
func GetPendingInvitation(orgID, email string) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := dbConn.Get(inv, rebind("SELECT * FROM invitations WHERE organization_id = ? AND email = ? AND status = ?"),
		orgID, email, models.InvitationStatusPending)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvitationsByOrganization returns an organization's pending invitations
func ListInvitationsByOrganization(orgID string) ([]*models.Invitation, error) {
	invitations := []*models.Invitation{}
	err := dbConn.Select(&invitations, rebind(`SELECT i.*, o.name AS organization_name, u.email AS inviter_email
		FROM invitations i
		JOIN organizations o ON o.id = i.organization_id
		JOIN users u ON u.id = i.inviter_id
		WHERE i.organization_id = ? AND i.status = ?
		ORDER BY i.created_at DESC`), orgID, models.InvitationStatusPending)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// ListInvitationsByEmail returns the pending invitations addressed to an email
func ListInvitationsByEmail(email string) ([]*models.Invitation, error) {
	invitations := []*models.Invitation{}
	err := dbConn.Select(&invitations, rebind(`SELECT i.*, o.name AS organization_name, u.email AS inviter_email
		FROM invitations i
		JOIN organizations o ON o.id = i.organization_id
		JOIN users u ON u.id = i.inviter_id
		WHERE i.email = ? AND i.status = ?
		ORDER BY i.created_at DESC`), email, models.InvitationStatusPending)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// UpdateInvitationStatus moves an invitation to a new lifecycle state
func UpdateInvitationStatus(id string, status models.InvitationStatus) error {
	_, err := dbConn.Exec(rebind("UPDATE invitations SET status = ? WHERE id = ?"), status, id)
	return err
}
