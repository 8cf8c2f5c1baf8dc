package models

import (
	"time"
)

// OrgRole represents a member's role inside an organization
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"  // Full control including deletion
	OrgRoleAdmin  OrgRole = "admin"  // Member and invitation management
	OrgRoleMember OrgRole = "member" // Read access
)

// InvitationStatus represents the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
	InvitationStatusCanceled InvitationStatus = "canceled"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// Organization represents a tenant that users belong to through memberships
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Logo      *string   `json:"logo,omitempty" db:"logo"`
	Metadata  *string   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Member links a user to an organization with a role
type Member struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Role           OrgRole   `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// Joined from users for member listings.
	UserName  string `json:"user_name,omitempty" db:"user_name"`
	UserEmail string `json:"user_email,omitempty" db:"user_email"`
}

// CanManage returns true if the role can manage members and invitations
func (r OrgRole) CanManage() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// Invitation represents a pending invite to join an organization
type Invitation struct {
	ID             string           `json:"id" db:"id"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	Email          string           `json:"email" db:"email"`
	Role           OrgRole          `json:"role" db:"role"`
	Status         InvitationStatus `json:"status" db:"status"`
	ExpiresAt      time.Time        `json:"expires_at" db:"expires_at"`
	InviterID      string           `json:"inviter_id" db:"inviter_id"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`

	// Joined for invitation listings.
	OrganizationName string `json:"organization_name,omitempty" db:"organization_name"`
	InviterEmail     string `json:"inviter_email,omitempty" db:"inviter_email"`
}

// IsExpired returns true if the invitation has passed its expiration time
func (i *Invitation) IsExpired() bool {
	return i.ExpiresAt.Before(time.Now())
}
