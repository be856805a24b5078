// Package rbac holds the static role to permission table and the authorization decisions built on it.
package rbac

import "slices"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleReader Role = "reader"
)

type Permission string

const (
	PostsCreate     Permission = "posts:create"
	PostsRead       Permission = "posts:read"
	PostsUpdate     Permission = "posts:update"
	PostsDelete     Permission = "posts:delete"
	PostsBulkUpdate Permission = "posts:bulk-update"
	PostsBulkDelete Permission = "posts:bulk-delete"

	CommentsCreate Permission = "comments:create"
	CommentsRead   Permission = "comments:read"
	CommentsUpdate Permission = "comments:update"
	CommentsDelete Permission = "comments:delete"

	UsersRead   Permission = "users:read"
	UsersUpdate Permission = "users:update"
	UsersDelete Permission = "users:delete"

	WellnessRead   Permission = "wellness:read"
	WellnessCreate Permission = "wellness:create"

	AdminAccess Permission = "admin:access"
)

var allPermissions = []Permission{
	PostsCreate, PostsRead, PostsUpdate, PostsDelete, PostsBulkUpdate, PostsBulkDelete,
	CommentsCreate, CommentsRead, CommentsUpdate, CommentsDelete,
	UsersRead, UsersUpdate, UsersDelete,
	WellnessRead, WellnessCreate,
	AdminAccess,
}

// rolePermissions is read-only after package initialisation.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: set(allPermissions...),
	RoleEditor: set(
		PostsCreate, PostsRead, PostsUpdate, PostsDelete, PostsBulkUpdate, PostsBulkDelete,
		CommentsCreate, CommentsRead, CommentsUpdate, CommentsDelete,
		WellnessRead, WellnessCreate,
	),
	RoleReader: set(
		PostsCreate, PostsRead, PostsUpdate, PostsDelete,
		CommentsCreate, CommentsRead, CommentsUpdate, CommentsDelete,
		WellnessRead, WellnessCreate,
	),
}

func set(permissions ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		m[p] = struct{}{}
	}
	return m
}

// HasPermission reports whether role grants permission. Unknown roles and unknown permissions are denied.
func HasPermission(role Role, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}

	_, ok = perms[permission]
	return ok
}

// RolePermissions returns the permissions granted to role in a stable order. Unknown roles yield an empty slice.
func RolePermissions(role Role) []Permission {
	perms := make([]Permission, 0, len(rolePermissions[role]))
	for _, p := range allPermissions {
		if HasPermission(role, p) {
			perms = append(perms, p)
		}
	}
	return perms
}

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleReader}
}

func (r Role) Valid() bool {
	return slices.Contains(Roles(), r)
}
