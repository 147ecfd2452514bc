package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type accessService struct {
	users       ports.UserRepository
	roles       ports.RoleRepository
	permissions ports.PermissionRepository
	menus       ports.MenuRepository
	assignments ports.AssignmentRepository
	log         zerolog.Logger
	now         func() time.Time
}

// NewAccessService returns the resolver and authorization gate.
func NewAccessService(repos ports.Repositories, log zerolog.Logger) ports.AccessService {
	return &accessService{
		users:       repos.Users,
		roles:       repos.Roles,
		permissions: repos.Permissions,
		menus:       repos.Menus,
		assignments: repos.Assignments,
		log:         log,
		now:         time.Now,
	}
}

// grant is the raw material of a resolution before it is reduced to keys.
type grant struct {
	roles       []*domain.Role
	permissions []*domain.Permission
	menus       []*domain.Menu
}

func (s *accessService) ResolvePermissions(ctx context.Context, userID string) (*domain.Resolution, error) {
	g, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := domain.EmptyResolution(userID)
	for _, r := range g.roles {
		res.Roles.Add(r.Key)
	}
	for _, p := range g.permissions {
		res.Permissions.Add(p.Key)
	}
	res.Menus = domain.BuildForest(g.menus)
	return res, nil
}

func (s *accessService) CheckPermission(ctx context.Context, userID, key string) (bool, error) {
	res, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return res.Permissions.Has(key), nil
}

func (s *accessService) CanAccessPath(ctx context.Context, userID, path string) (bool, error) {
	forest, err := s.UserMenus(ctx, userID)
	if err != nil {
		return false, err
	}
	return domain.ContainsPath(forest, path), nil
}

func (s *accessService) UserMenus(ctx context.Context, userID string) ([]*domain.MenuNode, error) {
	g, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.BuildForest(g.menus), nil
}

func (s *accessService) PermissionMenus(ctx context.Context, userID string) ([]*domain.MenuNode, error) {
	res, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.menus.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("permission menus: %w", err)
	}

	gated := make([]*domain.Menu, 0, len(all))
	for _, m := range all {
		if !m.Shown() {
			continue
		}
		if m.PermissionKey == "" || res.Permissions.Has(m.PermissionKey) {
			gated = append(gated, m)
		}
	}
	return domain.PruneEmptyBranches(domain.BuildForest(gated)), nil
}

func (s *accessService) UserPermissions(ctx context.Context, userID string, typ domain.PermissionType) ([]*domain.Permission, error) {
	g, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Permission, 0, len(g.permissions))
	for _, p := range g.permissions {
		if typ == "" || p.Type == typ {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// resolve walks user -> live assignments -> active roles -> joined
// permissions and menus. Missing join targets are skipped.
func (s *accessService) resolve(ctx context.Context, userID string) (*grant, error) {
	out := &grant{}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	if !user.CanAct() {
		s.log.Debug().Str("user_id", userID).Str("status", string(user.Status)).Msg("inactive user resolves to nothing")
		return out, nil
	}

	assignments, err := s.assignments.UserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: user roles: %w", err)
	}
	now := s.now()
	roleIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.Live(now) {
			roleIDs = append(roleIDs, a.RoleID)
		}
	}
	if len(roleIDs) == 0 {
		return out, nil
	}

	roles, err := s.roles.FindByIDs(ctx, uniq(roleIDs))
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: roles: %w", err)
	}
	activeIDs := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Grants() {
			out.roles = append(out.roles, r)
			activeIDs = append(activeIDs, r.ID)
		}
	}
	if len(activeIDs) == 0 {
		return out, nil
	}

	var (
		rolePerms []domain.RolePermission
		roleMenus []domain.RoleMenu
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		rolePerms, err = s.assignments.RolePermissions(egCtx, activeIDs)
		return err
	})
	eg.Go(func() error {
		var err error
		roleMenus, err = s.assignments.RoleMenus(egCtx, activeIDs)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve permissions: joins: %w", err)
	}

	permIDs := make([]string, 0, len(rolePerms))
	for _, rp := range rolePerms {
		permIDs = append(permIDs, rp.PermissionID)
	}
	menuIDs := make([]string, 0, len(roleMenus))
	for _, rm := range roleMenus {
		menuIDs = append(menuIDs, rm.MenuID)
	}

	eg, egCtx = errgroup.WithContext(ctx)
	if len(permIDs) > 0 {
		eg.Go(func() error {
			var err error
			out.permissions, err = s.permissions.FindByIDs(egCtx, uniq(permIDs))
			return err
		})
	}
	if len(menuIDs) > 0 {
		eg.Go(func() error {
			menus, err := s.menus.FindByIDs(egCtx, uniq(menuIDs))
			if err != nil {
				return err
			}
			for _, m := range menus {
				if m.Shown() {
					out.menus = append(out.menus, m)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve permissions: load: %w", err)
	}

	return out, nil
}

// uniq drops duplicates and empty ids, keeping first-seen order.
func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
