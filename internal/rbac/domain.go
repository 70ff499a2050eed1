package rbac

import (
	"strings"
	"time"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Bootstrap roles created by the seed migration.
const (
	RoleSuperAdmin     = "super_admin"
	RoleAdmin          = "admin"
	RoleEditor         = "editor"
	RoleJournalist     = "journalist"
	RoleContributor    = "contributor"
	RoleModerator      = "moderator"
	RoleRegisteredUser = "registered_user"
)

// BootstrapRoles lists the roles that must exist after seeding.
func BootstrapRoles() []string {
	return []string{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleJournalist, RoleContributor, RoleModerator, RoleRegisteredUser}
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic (resource, action) capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Scope returns the (resource, action) pair of the permission.
func (p Permission) Scope() shared.Scope {
	return shared.Scope{Resource: p.Resource, Action: p.Action}
}

// Denial reasons reported in logs.
const (
	ReasonUnknownUser       = "unknown_user"
	ReasonInactiveUser      = "inactive_user"
	ReasonNoRoles           = "no_roles"
	ReasonMissingPermission = "missing_permission"
)

// Access is the resolved authorization state of one user: the union of the permissions
// of every role assigned to them. Roles carry no hierarchy.
type Access struct {
	UserID int64
	Exists bool
	Active bool
	Roles  []string
	scopes map[shared.Scope]struct{}
}

// NewAccess builds an Access from raw rows.
func NewAccess(userID int64, exists, active bool, roles []string, scopes []shared.Scope) Access {
	set := make(map[shared.Scope]struct{}, len(scopes))
	for _, s := range scopes {
		set[normalizeScope(s)] = struct{}{}
	}
	return Access{UserID: userID, Exists: exists, Active: active, Roles: roles, scopes: set}
}

// Allows reports whether the access set contains the exact (resource, action) pair.
// Unknown, inactive and role-less users are always denied.
func (a Access) Allows(resource, action string) bool {
	return a.denyReason(shared.Scope{Resource: resource, Action: action}) == ""
}

// AllowsScope is Allows for a prebuilt scope.
func (a Access) AllowsScope(scope shared.Scope) bool {
	return a.denyReason(scope) == ""
}

// AllowsAny reports whether at least one of the scopes is granted.
func (a Access) AllowsAny(scopes ...shared.Scope) bool {
	for _, s := range scopes {
		if a.AllowsScope(s) {
			return true
		}
	}
	return false
}

// AllowsAll reports whether every scope is granted. An empty list is never granted.
func (a Access) AllowsAll(scopes ...shared.Scope) bool {
	if len(scopes) == 0 {
		return false
	}
	for _, s := range scopes {
		if !a.AllowsScope(s) {
			return false
		}
	}
	return true
}

// DenyReason explains why scope is refused, or returns "" when it is granted.
func (a Access) DenyReason(scope shared.Scope) string {
	return a.denyReason(scope)
}

func (a Access) denyReason(scope shared.Scope) string {
	switch {
	case !a.Exists:
		return ReasonUnknownUser
	case !a.Active:
		return ReasonInactiveUser
	case len(a.Roles) == 0:
		return ReasonNoRoles
	}
	if _, ok := a.scopes[normalizeScope(scope)]; !ok {
		return ReasonMissingPermission
	}
	return ""
}

// Names returns the permission names in the access set.
func (a Access) Names() []string {
	if !a.Exists || !a.Active || len(a.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.scopes))
	for s := range a.scopes {
		names = append(names, s.Name())
	}
	return names
}

func normalizeScope(s shared.Scope) shared.Scope {
	return shared.Scope{
		Resource: strings.ToLower(strings.TrimSpace(s.Resource)),
		Action:   strings.ToLower(strings.TrimSpace(s.Action)),
	}
}

// ParseScope splits a "resource.action" permission name.
func ParseScope(name string) (shared.Scope, bool) {
	resource, action, ok := strings.Cut(strings.TrimSpace(name), ".")
	if !ok || resource == "" || action == "" {
		return shared.Scope{}, false
	}
	return normalizeScope(shared.Scope{Resource: resource, Action: action}), true
}
