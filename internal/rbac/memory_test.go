package rbac

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

type memUser struct {
	active bool
	roles  map[int64]struct{}
}

type memoryRepo struct {
	mu          sync.Mutex
	users       map[int64]*memUser
	roles       map[int64]Role
	perms       map[int64]Permission
	grants      map[int64]map[int64]struct{}
	nextID      int64
	accessCalls int
	failAccess  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:  make(map[int64]*memUser),
		roles:  make(map[int64]Role),
		perms:  make(map[int64]Permission),
		grants: make(map[int64]map[int64]struct{}),
	}
}

// seedBootstrap mirrors the grants of the seed migration.
func (m *memoryRepo) seedBootstrap() map[string]int64 {
	permIDs := make(map[string]int64)
	for _, s := range shared.CoreScopes() {
		p, _ := m.UpsertPermission(context.Background(), Permission{Name: s.Name(), Resource: s.Resource, Action: s.Action})
		permIDs[s.Name()] = p.ID
	}
	grants := map[string][]string{
		RoleSuperAdmin:     nil,
		RoleAdmin:          nil,
		RoleEditor:         {"article.create", "article.read", "article.update", "article.submit", "article.approve", "comment.moderate"},
		RoleJournalist:     {"article.create", "article.read", "article.update", "article.submit"},
		RoleContributor:    {"article.create", "article.read", "article.submit"},
		RoleModerator:      {"article.read", "comment.moderate"},
		RoleRegisteredUser: {"article.read"},
	}
	roleIDs := make(map[string]int64)
	for _, name := range BootstrapRoles() {
		role, _ := m.CreateRole(context.Background(), name, "")
		roleIDs[name] = role.ID
		names := grants[name]
		if names == nil {
			for n := range permIDs {
				names = append(names, n)
			}
		}
		for _, n := range names {
			_ = m.AttachPermission(context.Background(), role.ID, permIDs[n])
		}
	}
	return roleIDs
}

func (m *memoryRepo) addUser(id int64, active bool, roleIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &memUser{active: active, roles: make(map[int64]struct{})}
	for _, r := range roleIDs {
		u.roles[r] = struct{}{}
	}
	m.users[id] = u
}

func (m *memoryRepo) UserAccess(_ context.Context, userID int64) (Access, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessCalls++
	if m.failAccess != nil {
		return Access{}, m.failAccess
	}
	u, ok := m.users[userID]
	if !ok {
		return NewAccess(userID, false, false, nil, nil), nil
	}
	var roles []string
	var scopes []shared.Scope
	for roleID := range u.roles {
		roles = append(roles, m.roles[roleID].Name)
		for permID := range m.grants[roleID] {
			scopes = append(scopes, m.perms[permID].Scope())
		}
	}
	return NewAccess(userID, true, u.active, roles, scopes), nil
}

func (m *memoryRepo) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetRole(_ context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) CreateRole(_ context.Context, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, shared.ErrDuplicate
		}
	}
	m.nextID++
	r := Role{ID: m.nextID, Name: name, Description: description}
	m.roles[r.ID] = r
	return r, nil
}

func (m *memoryRepo) UpdateRole(_ context.Context, id int64, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	r.Name, r.Description = name, description
	m.roles[id] = r
	return r, nil
}

func (m *memoryRepo) DeleteRole(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.grants, id)
	return nil
}

func (m *memoryRepo) ListPermissions(context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) UpsertPermission(_ context.Context, p Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.perms {
		if existing.Name == p.Name {
			existing.Description = p.Description
			m.perms[id] = existing
			return existing, nil
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.perms[p.ID] = p
	return p, nil
}

func (m *memoryRepo) ListRolePermissions(_ context.Context, roleID int64) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Permission
	for id := range m.grants[roleID] {
		out = append(out, m.perms[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) AttachPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[permissionID]; !ok {
		return errors.New("unknown permission")
	}
	if m.grants[roleID] == nil {
		m.grants[roleID] = make(map[int64]struct{})
	}
	m.grants[roleID][permissionID] = struct{}{}
	return nil
}

func (m *memoryRepo) ReplaceRolePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := m.perms[id]; !ok {
			return shared.ErrNotFound
		}
		next[id] = struct{}{}
	}
	m.grants[roleID] = next
	return nil
}

func (m *memoryRepo) AssignRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	if _, ok := m.roles[roleID]; !ok {
		return shared.ErrNotFound
	}
	u.roles[roleID] = struct{}{}
	return nil
}

func (m *memoryRepo) RemoveRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	if _, ok := u.roles[roleID]; !ok {
		return shared.ErrNotFound
	}
	delete(u.roles, roleID)
	return nil
}

func (m *memoryRepo) ListUserRoles(_ context.Context, userID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	var out []Role
	for id := range u.roles {
		out = append(out, m.roles[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ Repository = (*memoryRepo)(nil)
