// Package permissions maps roles to their permission sets. The tables are
// static; computing the permissions of a caller is a pure lookup with
// set-union semantics across however many roles the caller holds.
package permissions

import (
	"sort"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/models"
)

// Permission names, grouped by resource.
const (
	UsersRead  = "users:read"
	UsersWrite = "users:write"
	UsersBan   = "users:ban"

	OrgsRead   = "orgs:read"
	OrgsWrite  = "orgs:write"
	OrgsDelete = "orgs:delete"

	MembersRead  = "members:read"
	MembersWrite = "members:write"

	InvitationsWrite = "invitations:write"

	MediaRead  = "media:read"
	MediaWrite = "media:write"

	SessionsRead   = "sessions:read"
	SessionsRevoke = "sessions:revoke"

	AdminAccess = "admin:access"
)

// rolePermissions maps system roles to their permission lists. Admin is a
// strict superset of user.
var rolePermissions = map[string][]string{
	string(models.RoleUser): {
		SessionsRead,
		SessionsRevoke,
		MediaRead,
		MediaWrite,
		OrgsRead,
	},
	string(models.RoleAdmin): {
		SessionsRead,
		SessionsRevoke,
		MediaRead,
		MediaWrite,
		OrgsRead,
		OrgsWrite,
		OrgsDelete,
		UsersRead,
		UsersWrite,
		UsersBan,
		AdminAccess,
	},
}

// orgRolePermissions maps organization roles to their permission lists.
// Each rung of the ladder is a strict superset of the one below it.
var orgRolePermissions = map[string][]string{
	string(models.OrgRoleMember): {
		OrgsRead,
		MembersRead,
		MediaRead,
	},
	string(models.OrgRoleAdmin): {
		OrgsRead,
		OrgsWrite,
		MembersRead,
		MembersWrite,
		InvitationsWrite,
		MediaRead,
		MediaWrite,
	},
	string(models.OrgRoleOwner): {
		OrgsRead,
		OrgsWrite,
		OrgsDelete,
		MembersRead,
		MembersWrite,
		InvitationsWrite,
		MediaRead,
		MediaWrite,
	},
}

// Compute returns the deduplicated union of the permission lists for the
// given roles, sorted for stable output. Unknown roles contribute nothing.
func Compute(roles ...string) []string {
	return computeFrom(rolePermissions, roles)
}

// ComputeOrg is Compute over the organization role table.
func ComputeOrg(roles ...string) []string {
	return computeFrom(orgRolePermissions, roles)
}

func computeFrom(table map[string][]string, roles []string) []string {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range table[role] {
			set[perm] = struct{}{}
		}
	}

	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms
}

// Has reports whether the permission list contains the wanted permission.
func Has(perms []string, want string) bool {
	for _, perm := range perms {
		if perm == want {
			return true
		}
	}
	return false
}
