package models

import "strings"

// Role is a named bundle of permissions assigned to a user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Permission gates one category of protected operation.
type Permission string

const (
	PermUserCreate    Permission = "user_create"
	PermUserDelete    Permission = "user_delete"
	PermUserEdit      Permission = "user_edit"
	PermUserView      Permission = "user_view"
	PermAnalyticsView Permission = "analytics_view"
	PermProfileEdit   Permission = "profile_edit"
	PermContentCreate Permission = "content_create"
	PermContentDelete Permission = "content_delete"
	PermSettingsEdit  Permission = "settings_edit"
	PermSessionKill   Permission = "session_kill"
)

// AllPermissions lists every known permission in catalog order.
var AllPermissions = []Permission{
	PermUserCreate,
	PermUserDelete,
	PermUserEdit,
	PermUserView,
	PermAnalyticsView,
	PermProfileEdit,
	PermContentCreate,
	PermContentDelete,
	PermSettingsEdit,
	PermSessionKill,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions,
	RoleUser: {
		PermContentCreate,
		PermContentDelete,
		PermProfileEdit,
		PermUserView,
		PermAnalyticsView,
	},
}

// PermissionsFor returns a copy of the ordered permission set granted to role.
// Unknown roles get no permissions.
func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// ParseRole resolves a role name case-insensitively.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin, true
	case "user":
		return RoleUser, true
	}
	return "", false
}

// ParsePermission maps a stored permission string back to the enum.
func ParsePermission(name string) (Permission, bool) {
	for _, p := range AllPermissions {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// HasAll reports whether granted contains every permission in required.
func HasAll(granted []Permission, required ...Permission) bool {
	set := make(map[Permission]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := set[p]; !ok {
			return false
		}
	}
	return true
}

// PermissionStrings converts permissions to their stored form.
func PermissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
