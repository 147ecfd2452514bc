package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store shared by the service tests. It mirrors the repository
// contracts: soft-deleted rows are invisible to Find*, keys are unique and
// role deletion refuses roles that are still assigned.
// ---------------------------------------------------------------------------

type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	roles     map[string]*domain.Role
	perms     map[string]*domain.Permission
	menus     map[string]*domain.Menu
	userRoles []domain.UserRole
	rolePerms []domain.RolePermission
	roleMenus []domain.RoleMenu
	audits    []*domain.AuditLog

	joinErr      error // returned by RolePermissions and RoleMenus when set
	userRolesErr error // fails the role write of memUsers.Create when set
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*domain.User),
		roles: make(map[string]*domain.Role),
		perms: make(map[string]*domain.Permission),
		menus: make(map[string]*domain.Menu),
	}
}

func (s *memStore) repos() ports.Repositories {
	return ports.Repositories{
		Users:       memUsers{s},
		Roles:       memRoles{s},
		Permissions: memPerms{s},
		Menus:       memMenus{s},
		Assignments: memAssignments{s},
		Audit:       memAudit{s},
	}
}

// --- seed helpers ---

func (s *memStore) addUser(id string) *domain.User {
	u := &domain.User{ID: id, Username: id, Status: domain.UserActive, IsActive: true}
	s.users[id] = u
	return u
}

func (s *memStore) addRole(id string, permKeys ...string) *domain.Role {
	r := &domain.Role{ID: id, Key: id, Name: id, IsActive: true}
	s.roles[id] = r
	for _, k := range permKeys {
		p, ok := s.perms[k]
		if !ok {
			p = &domain.Permission{ID: "perm-" + k, Key: k, Name: k, Type: domain.PermissionMenu}
			s.perms[k] = p
		}
		s.rolePerms = append(s.rolePerms, domain.RolePermission{RoleID: id, PermissionID: p.ID})
	}
	return r
}

func (s *memStore) addMenu(id, parentID string, sort int) *domain.Menu {
	m := &domain.Menu{ID: id, Name: id, Path: "/" + id, ParentID: parentID, Sort: sort, IsVisible: true, IsEnabled: true}
	s.menus[id] = m
	return m
}

func (s *memStore) grantMenu(roleID string, menuIDs ...string) {
	for _, id := range menuIDs {
		s.roleMenus = append(s.roleMenus, domain.RoleMenu{RoleID: roleID, MenuID: id})
	}
}

func (s *memStore) assign(userID string, roleIDs ...string) {
	for _, id := range roleIDs {
		s.userRoles = append(s.userRoles, domain.UserRole{UserID: userID, RoleID: id})
	}
}

func (s *memStore) permByID(id string) *domain.Permission {
	for _, p := range s.perms {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User, roles []domain.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return domain.ErrUserExists
		}
	}
	if len(roles) > 0 && r.s.userRolesErr != nil {
		return r.s.userRolesErr
	}
	c := *u
	r.s.users[u.ID] = &c
	for _, a := range roles {
		a.UserID = u.ID
		r.s.userRoles = append(r.s.userRoles, a)
	}
	return nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.IsDeleted {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username && !u.IsDeleted {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) List(_ context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.User
	for _, u := range r.s.users {
		if u.IsDeleted || (f.Status != "" && u.Status != f.Status) {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Username, f.Search) && !strings.Contains(u.Email, f.Search) {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r memUsers) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.IsDeleted {
		return domain.ErrUserNotFound
	}
	u.IsDeleted, u.DeletedAt = true, &at
	kept := r.s.userRoles[:0]
	for _, a := range r.s.userRoles {
		if a.UserID != id {
			kept = append(kept, a)
		}
	}
	r.s.userRoles = kept
	return nil
}

// --- roles ---

type memRoles struct{ s *memStore }

func (r memRoles) Create(_ context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.Key == role.Key {
			return domain.ErrRoleExists
		}
	}
	c := *role
	r.s.roles[role.ID] = &c
	return nil
}

func (r memRoles) FindByID(_ context.Context, id string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok || role.IsDeleted {
		return nil, domain.ErrRoleNotFound
	}
	c := *role
	return &c, nil
}

func (r memRoles) FindByKey(_ context.Context, key string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Key == key && !role.IsDeleted {
			c := *role
			return &c, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r memRoles) find(match func(*domain.Role) bool) []*domain.Role {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Role, 0)
	for _, role := range r.s.roles {
		if !role.IsDeleted && match(role) {
			c := *role
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r memRoles) FindByIDs(_ context.Context, ids []string) ([]*domain.Role, error) {
	return r.find(func(role *domain.Role) bool { return contains(ids, role.ID) }), nil
}

func (r memRoles) FindByKeys(_ context.Context, keys []string) ([]*domain.Role, error) {
	return r.find(func(role *domain.Role) bool { return contains(keys, role.Key) }), nil
}

func (r memRoles) FindDefaults(_ context.Context) ([]*domain.Role, error) {
	return r.find(func(role *domain.Role) bool { return role.IsDefault }), nil
}

func (r memRoles) List(_ context.Context, f ports.RoleFilter) ([]*domain.Role, int64, error) {
	out := r.find(func(role *domain.Role) bool {
		return (f.Active == nil || role.IsActive == *f.Active) &&
			(f.Search == "" || strings.Contains(role.Key, f.Search) || strings.Contains(role.Name, f.Search))
	})
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r memRoles) Update(_ context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *role
	r.s.roles[role.ID] = &c
	return nil
}

func (r memRoles) Delete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[id]
	if !ok || role.IsDeleted {
		return domain.ErrRoleNotFound
	}
	for _, a := range r.s.userRoles {
		if a.RoleID == id && a.Live(at) {
			return domain.ErrRoleInUse
		}
	}

	userRoles := make([]domain.UserRole, 0, len(r.s.userRoles))
	for _, a := range r.s.userRoles {
		if a.RoleID != id {
			userRoles = append(userRoles, a)
		}
	}
	rolePerms := make([]domain.RolePermission, 0, len(r.s.rolePerms))
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != id {
			rolePerms = append(rolePerms, rp)
		}
	}
	roleMenus := make([]domain.RoleMenu, 0, len(r.s.roleMenus))
	for _, rm := range r.s.roleMenus {
		if rm.RoleID != id {
			roleMenus = append(roleMenus, rm)
		}
	}
	r.s.userRoles, r.s.rolePerms, r.s.roleMenus = userRoles, rolePerms, roleMenus
	role.IsDeleted, role.DeletedAt = true, &at
	return nil
}

// --- permissions ---

type memPerms struct{ s *memStore }

func (r memPerms) Create(_ context.Context, p *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.perms[p.Key]; ok {
		return domain.ErrPermissionExists
	}
	c := *p
	r.s.perms[p.Key] = &c
	return nil
}

func (r memPerms) FindByID(_ context.Context, id string) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p := r.s.permByID(id); p != nil {
		c := *p
		return &c, nil
	}
	return nil, domain.ErrPermissionNotFound
}

func (r memPerms) find(match func(*domain.Permission) bool) []*domain.Permission {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Permission, 0)
	for _, p := range r.s.perms {
		if match(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r memPerms) FindByIDs(_ context.Context, ids []string) ([]*domain.Permission, error) {
	return r.find(func(p *domain.Permission) bool { return contains(ids, p.ID) }), nil
}

func (r memPerms) FindByKeys(_ context.Context, keys []string) ([]*domain.Permission, error) {
	return r.find(func(p *domain.Permission) bool { return contains(keys, p.Key) }), nil
}

func (r memPerms) List(_ context.Context, f ports.PermissionFilter) ([]*domain.Permission, int64, error) {
	out := r.find(func(p *domain.Permission) bool {
		return (f.Type == "" || p.Type == f.Type) && (f.Search == "" || strings.Contains(p.Key, f.Search))
	})
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r memPerms) Update(_ context.Context, p *domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	r.s.perms[p.Key] = &c
	return nil
}

func (r memPerms) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.permByID(id)
	if p == nil {
		return domain.ErrPermissionNotFound
	}
	delete(r.s.perms, p.Key)
	kept := make([]domain.RolePermission, 0, len(r.s.rolePerms))
	for _, rp := range r.s.rolePerms {
		if rp.PermissionID != id {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	return nil
}

// --- menus ---

type memMenus struct{ s *memStore }

func (r memMenus) Create(_ context.Context, m *domain.Menu) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	r.s.menus[m.ID] = &c
	return nil
}

func (r memMenus) FindByID(_ context.Context, id string) (*domain.Menu, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.menus[id]
	if !ok || m.IsDeleted {
		return nil, domain.ErrMenuNotFound
	}
	c := *m
	return &c, nil
}

func (r memMenus) find(match func(*domain.Menu) bool) []*domain.Menu {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Menu, 0)
	for _, m := range r.s.menus {
		if !m.IsDeleted && match(m) {
			c := *m
			out = append(out, &c)
		}
	}
	return out
}

func (r memMenus) FindByIDs(_ context.Context, ids []string) ([]*domain.Menu, error) {
	return r.find(func(m *domain.Menu) bool { return contains(ids, m.ID) }), nil
}

func (r memMenus) FindAll(_ context.Context) ([]*domain.Menu, error) {
	return r.find(func(*domain.Menu) bool { return true }), nil
}

func (r memMenus) CountChildren(_ context.Context, id string) (int64, error) {
	return int64(len(r.find(func(m *domain.Menu) bool { return m.ParentID == id }))), nil
}

func (r memMenus) Update(_ context.Context, m *domain.Menu) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	r.s.menus[m.ID] = &c
	return nil
}

func (r memMenus) Delete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.menus[id]
	if !ok || m.IsDeleted {
		return domain.ErrMenuNotFound
	}
	m.IsDeleted, m.DeletedAt = true, &at
	kept := make([]domain.RoleMenu, 0, len(r.s.roleMenus))
	for _, rm := range r.s.roleMenus {
		if rm.MenuID != id {
			kept = append(kept, rm)
		}
	}
	r.s.roleMenus = kept
	return nil
}

func (r memMenus) UpdateSort(_ context.Context, items []domain.MenuSort) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		if m, ok := r.s.menus[it.ID]; !ok || m.IsDeleted {
			return domain.ErrMenuNotFound
		}
	}
	for _, it := range items {
		r.s.menus[it.ID].Sort = it.Sort
	}
	return nil
}

// --- assignments ---

type memAssignments struct{ s *memStore }

func (r memAssignments) UserRoles(_ context.Context, userID string) ([]domain.UserRole, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.UserRole
	for _, a := range r.s.userRoles {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAssignments) UserRolesBatch(_ context.Context, userIDs []string) ([]domain.UserRole, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []domain.UserRole
	for _, a := range r.s.userRoles {
		if want[a.UserID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAssignments) ReplaceUserRoles(_ context.Context, userID string, assignments []domain.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]domain.UserRole, 0, len(r.s.userRoles))
	for _, a := range r.s.userRoles {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	r.s.userRoles = append(kept, assignments...)
	return nil
}

func (r memAssignments) AssignUserRole(_ context.Context, a domain.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.userRoles {
		if existing.UserID == a.UserID && existing.RoleID == a.RoleID {
			r.s.userRoles[i].ExpiresAt = a.ExpiresAt
			return nil
		}
	}
	r.s.userRoles = append(r.s.userRoles, a)
	return nil
}

func (r memAssignments) UnassignUserRole(_ context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]domain.UserRole, 0, len(r.s.userRoles))
	for _, a := range r.s.userRoles {
		if a.UserID != userID || a.RoleID != roleID {
			kept = append(kept, a)
		}
	}
	r.s.userRoles = kept
	return nil
}

func (r memAssignments) RolePermissions(_ context.Context, roleIDs []string) ([]domain.RolePermission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.joinErr != nil {
		return nil, r.s.joinErr
	}
	var out []domain.RolePermission
	for _, rp := range r.s.rolePerms {
		if contains(roleIDs, rp.RoleID) {
			out = append(out, rp)
		}
	}
	return out, nil
}

func (r memAssignments) ReplaceRolePermissions(ctx context.Context, roleID string, ids []string) error {
	r.s.mu.Lock()
	kept := make([]domain.RolePermission, 0, len(r.s.rolePerms))
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != roleID {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	r.s.mu.Unlock()
	return r.AddRolePermissions(ctx, roleID, ids)
}

func (r memAssignments) AddRolePermissions(_ context.Context, roleID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		exists := false
		for _, rp := range r.s.rolePerms {
			if rp.RoleID == roleID && rp.PermissionID == id {
				exists = true
				break
			}
		}
		if !exists {
			r.s.rolePerms = append(r.s.rolePerms, domain.RolePermission{RoleID: roleID, PermissionID: id})
		}
	}
	return nil
}

func (r memAssignments) RemoveRolePermissions(_ context.Context, roleID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]domain.RolePermission, 0, len(r.s.rolePerms))
	for _, rp := range r.s.rolePerms {
		if rp.RoleID != roleID || !contains(ids, rp.PermissionID) {
			kept = append(kept, rp)
		}
	}
	r.s.rolePerms = kept
	return nil
}

func (r memAssignments) RoleMenus(_ context.Context, roleIDs []string) ([]domain.RoleMenu, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.joinErr != nil {
		return nil, r.s.joinErr
	}
	var out []domain.RoleMenu
	for _, rm := range r.s.roleMenus {
		if contains(roleIDs, rm.RoleID) {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (r memAssignments) ReplaceRoleMenus(_ context.Context, roleID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make([]domain.RoleMenu, 0, len(r.s.roleMenus))
	for _, rm := range r.s.roleMenus {
		if rm.RoleID != roleID {
			kept = append(kept, rm)
		}
	}
	for _, id := range ids {
		kept = append(kept, domain.RoleMenu{RoleID: roleID, MenuID: id})
	}
	r.s.roleMenus = kept
	return nil
}

// --- audit ---

type memAudit struct{ s *memStore }

func (r memAudit) Insert(_ context.Context, l *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, l)
	return nil
}

func (r memAudit) List(_ context.Context, f ports.AuditFilter) ([]*domain.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		l := r.s.audits[i]
		if (f.ResourceType == "" || l.ResourceType == f.ResourceType) &&
			(f.ResourceID == "" || l.ResourceID == f.ResourceID) &&
			(f.Action == "" || l.Action == f.Action) &&
			(f.ActorID == "" || l.ActorID == f.ActorID) &&
			(f.Result == "" || l.Result == f.Result) {
			out = append(out, l)
		}
	}
	return paginate(out, f.Page, f.Limit), int64(len(out)), nil
}

// ---------------------------------------------------------------------------
// Audit sink and session store stubs
// ---------------------------------------------------------------------------

type stubSink struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (s *stubSink) Emit(l *domain.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

func (s *stubSink) actions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, l.Action)
	}
	return out
}

func (s *stubSink) last() *domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) == 0 {
		return nil
	}
	return s.logs[len(s.logs)-1]
}

type stubSessions struct {
	byID    map[string]*domain.Session
	saveErr error
}

func newStubSessions() *stubSessions {
	return &stubSessions{byID: make(map[string]*domain.Session)}
}

func (s *stubSessions) Save(_ context.Context, sess *domain.Session, _ time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	c := *sess
	s.byID[sess.ID] = &c
	return nil
}

func (s *stubSessions) Find(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	c := *sess
	return &c, nil
}

func (s *stubSessions) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *stubSessions) DeleteUser(_ context.Context, userID string) error {
	for id, sess := range s.byID {
		if sess.UserID == userID {
			delete(s.byID, id)
		}
	}
	return nil
}
