package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Service resolves permissions and orchestrates RBAC administration.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

type memoKey struct{}

type memo struct {
	mu      sync.Mutex
	entries map[int64]Access
}

// WithMemo returns a context in which resolved access is cached for its lifetime.
// The HTTP middleware installs one per request.
func WithMemo(ctx context.Context) context.Context {
	if _, ok := ctx.Value(memoKey{}).(*memo); ok {
		return ctx
	}
	return context.WithValue(ctx, memoKey{}, &memo{entries: make(map[int64]Access)})
}

// Access resolves the full permission set of a user. Store failures are returned as errors;
// callers must treat them as a denial.
func (s *Service) Access(ctx context.Context, userID int64) (Access, error) {
	m, _ := ctx.Value(memoKey{}).(*memo)
	if m != nil {
		m.mu.Lock()
		cached, ok := m.entries[userID]
		m.mu.Unlock()
		if ok {
			return cached, nil
		}
	}
	if userID <= 0 {
		return NewAccess(userID, false, false, nil, nil), nil
	}
	access, err := s.repo.UserAccess(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("rbac: resolve access for user %d: %w", userID, err)
	}
	if m != nil {
		m.mu.Lock()
		m.entries[userID] = access
		m.mu.Unlock()
	}
	return access, nil
}

// CheckPermission reports whether the user may perform action on resource.
func (s *Service) CheckPermission(ctx context.Context, userID int64, resource, action string) (bool, error) {
	access, err := s.Access(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "rbac check failed", slog.Int64("user_id", userID), slog.String("resource", resource), slog.String("action", action), slog.Any("error", err))
		return false, err
	}
	scope := shared.Scope{Resource: resource, Action: action}
	if reason := access.DenyReason(scope); reason != "" {
		s.LogDenial(ctx, userID, reason, scope)
		return false, nil
	}
	return true, nil
}

// Require returns shared.ErrForbidden unless the user holds scope.
func (s *Service) Require(ctx context.Context, userID int64, scope shared.Scope) error {
	ok, err := s.CheckPermission(ctx, userID, scope.Resource, scope.Action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrForbidden, scope.Name())
	}
	return nil
}

// LogDenial writes the single warning emitted for a refused authorization.
func (s *Service) LogDenial(ctx context.Context, userID int64, reason string, scopes ...shared.Scope) {
	attrs := []any{slog.Int64("user_id", userID), slog.String("reason", reason)}
	if len(scopes) == 1 {
		attrs = append(attrs, slog.String("resource", scopes[0].Resource), slog.String("action", scopes[0].Action))
	} else {
		names := make([]string, 0, len(scopes))
		for _, sc := range scopes {
			names = append(names, sc.Name())
		}
		attrs = append(attrs, slog.String("permissions", strings.Join(names, ",")))
	}
	s.logger.WarnContext(ctx, "permission denied", attrs...)
}

// EffectivePermissions returns the sorted, deduplicated permission names of a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	access, err := s.Access(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := access.Names()
	sort.Strings(names)
	return names, nil
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role by ID.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a permission from its "resource.action" name.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	scope, ok := ParseScope(name)
	if !ok {
		return Permission{}, fmt.Errorf("%w: permission %q must be resource.action", shared.ErrValidation, name)
	}
	return s.repo.UpsertPermission(ctx, Permission{
		Name:        scope.Name(),
		Resource:    scope.Resource,
		Action:      scope.Action,
		Description: strings.TrimSpace(description),
	})
}

// EnsureCoreScopes upserts every permission the application checks.
func (s *Service) EnsureCoreScopes(ctx context.Context) error {
	for _, scope := range shared.CoreScopes() {
		if _, err := s.EnsurePermission(ctx, scope.Name(), ""); err != nil {
			return err
		}
	}
	return nil
}

// ListRolePermissions returns the permissions granted to a role.
func (s *Service) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces the permissions of a role with permissionIDs. The
// replacement is atomic: on error the previous grants are untouched.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs)
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// ListUserRoles returns the roles held by a user.
func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.ListUserRoles(ctx, userID)
}
