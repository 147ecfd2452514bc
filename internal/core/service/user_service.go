package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

type userService struct {
	users       ports.UserRepository
	roles       ports.RoleRepository
	assignments ports.AssignmentRepository
	revoker     SessionRevoker
	sink        ports.AuditSink
	log         zerolog.Logger
}

func NewUserService(repos ports.Repositories, revoker SessionRevoker, sink ports.AuditSink, log zerolog.Logger) ports.UserService {
	return &userService{
		users:       repos.Users,
		roles:       repos.Roles,
		assignments: repos.Assignments,
		revoker:     revoker,
		sink:        sink,
		log:         log,
	}
}

func (s *userService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.Invalid("username and password are required")
	}

	var roles []*domain.Role
	var err error
	if len(in.RoleKeys) > 0 {
		roles, err = rolesByKeys(ctx, s.roles, in.RoleKeys)
	} else {
		roles, err = s.roles.FindDefaults(ctx)
	}
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Status:       domain.UserActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionUserCreated, domain.ResourceUser, user.ID)
	if err := s.users.Create(ctx, user, userRoles(user.ID, roles, now)); err != nil {
		record(s.sink, auditLog, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	auditLog.After = user.Snapshot()
	auditLog.After["roles"] = roleKeys(roles)
	record(s.sink, auditLog, nil)
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *userService) List(ctx context.Context, filter ports.UserFilter) (*ports.Page[*domain.User], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Invalid("unknown user status")
	}
	filter.Page, filter.Limit = ports.NormalizePage(filter.Page, filter.Limit)

	items, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ports.NewPage(items, total, filter.Page, filter.Limit), nil
}

func (s *userService) Update(ctx context.Context, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := user.Snapshot()

	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, domain.Invalid("password cannot be empty")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionUserUpdated, domain.ResourceUser, user.ID)
	auditLog.Before = before
	err = s.users.Update(ctx, user)
	if err == nil {
		auditLog.After = user.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeStatus sets the account status. Anything but ACTIVE also ends the
// user's sessions.
func (s *userService) ChangeStatus(ctx context.Context, in ports.ChangeUserStatusInput) (*domain.User, error) {
	if !in.Status.Valid() {
		return nil, domain.Invalid("unknown user status")
	}

	user, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := user.Snapshot()

	user.Status = in.Status
	user.IsActive = in.Status == domain.UserActive
	user.UpdatedAt = time.Now().UTC()

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionUserStatusChanged, domain.ResourceUser, user.ID)
	auditLog.Before = before
	err = s.users.Update(ctx, user)
	if err == nil {
		auditLog.After = user.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		s.revoke(ctx, user.ID)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	auditLog := domain.NewAuditLog(actor, domain.ActionUserDeleted, domain.ResourceUser, id)
	auditLog.Before = user.Snapshot()
	err = s.users.SoftDelete(ctx, id, time.Now().UTC())
	record(s.sink, auditLog, err)
	if err != nil {
		return err
	}

	s.revoke(ctx, id)
	return nil
}

func (s *userService) revoke(ctx context.Context, userID string) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to revoke user sessions")
	}
}

func (s *userService) Roles(ctx context.Context, userID string) ([]ports.UserRoleView, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	assignments, err := s.assignments.UserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user roles: %w", err)
	}
	if len(assignments) == 0 {
		return []ports.UserRoleView{}, nil
	}

	byID, err := s.rolesOf(ctx, assignments)
	if err != nil {
		return nil, fmt.Errorf("user roles: %w", err)
	}
	return roleViews(assignments, byID, time.Now()), nil
}

// maxBatchUsers bounds one batch role lookup.
const maxBatchUsers = 100

func (s *userService) BatchRoles(ctx context.Context, userIDs []string) (map[string][]ports.UserRoleView, error) {
	ids := uniq(userIDs)
	if len(ids) == 0 {
		return nil, domain.Invalid("at least one user id is required")
	}
	if len(ids) > maxBatchUsers {
		return nil, domain.Invalid(fmt.Sprintf("at most %d user ids per request", maxBatchUsers))
	}

	assignments, err := s.assignments.UserRolesBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("batch user roles: %w", err)
	}
	byID, err := s.rolesOf(ctx, assignments)
	if err != nil {
		return nil, fmt.Errorf("batch user roles: %w", err)
	}

	perUser := make(map[string][]domain.UserRole, len(ids))
	for _, a := range assignments {
		perUser[a.UserID] = append(perUser[a.UserID], a)
	}
	now := time.Now()
	out := make(map[string][]ports.UserRoleView, len(ids))
	for _, id := range ids {
		out[id] = roleViews(perUser[id], byID, now)
	}
	return out, nil
}

// rolesOf loads the roles referenced by the assignments, keyed by id.
func (s *userService) rolesOf(ctx context.Context, assignments []domain.UserRole) (map[string]*domain.Role, error) {
	if len(assignments) == 0 {
		return map[string]*domain.Role{}, nil
	}
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.RoleID)
	}
	roles, err := s.roles.FindByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return byID, nil
}

// roleViews joins assignments to their roles, skipping dangling ones, and
// orders the result by role key.
func roleViews(assignments []domain.UserRole, byID map[string]*domain.Role, now time.Time) []ports.UserRoleView {
	views := make([]ports.UserRoleView, 0, len(assignments))
	for _, a := range assignments {
		role, ok := byID[a.RoleID]
		if !ok {
			continue
		}
		views = append(views, ports.UserRoleView{
			Role:       role,
			ExpiresAt:  a.ExpiresAt,
			AssignedAt: a.CreatedAt,
			Expired:    !a.Live(now),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Role.Key < views[j].Role.Key })
	return views
}

func (s *userService) ReplaceRoles(ctx context.Context, in ports.ReplaceUserRolesInput) ([]ports.UserRoleView, error) {
	before, err := s.Roles(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	roles, err := rolesByKeys(ctx, s.roles, in.RoleKeys)
	if err != nil {
		return nil, err
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionUserRolesChanged, domain.ResourceUser, in.UserID)
	auditLog.Before = keysSnapshot(viewKeys(before))
	auditLog.After = keysSnapshot(roleKeys(roles))
	err = s.assignments.ReplaceUserRoles(ctx, in.UserID, userRoles(in.UserID, roles, time.Now().UTC()))
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return s.Roles(ctx, in.UserID)
}

func (s *userService) AssignRole(ctx context.Context, in ports.AssignUserRoleInput) ([]ports.UserRoleView, error) {
	if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
		return nil, domain.Invalid("expires_at must be in the future")
	}
	before, err := s.Roles(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.FindByKey(ctx, in.RoleKey)
	if err != nil {
		return nil, err
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionUserRolesChanged, domain.ResourceUser, in.UserID)
	auditLog.Before = keysSnapshot(viewKeys(before))
	err = s.assignments.AssignUserRole(ctx, domain.UserRole{
		UserID:    in.UserID,
		RoleID:    role.ID,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		record(s.sink, auditLog, err)
		return nil, err
	}

	after, err := s.Roles(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	auditLog.After = keysSnapshot(viewKeys(after))
	record(s.sink, auditLog, nil)
	return after, nil
}

func (s *userService) UnassignRole(ctx context.Context, userID, roleKey string, actor domain.Actor) error {
	before, err := s.Roles(ctx, userID)
	if err != nil {
		return err
	}
	role, err := s.roles.FindByKey(ctx, roleKey)
	if err != nil {
		return err
	}

	auditLog := domain.NewAuditLog(actor, domain.ActionUserRolesChanged, domain.ResourceUser, userID)
	auditLog.Before = keysSnapshot(viewKeys(before))
	err = s.assignments.UnassignUserRole(ctx, userID, role.ID)
	if err == nil {
		after := make([]string, 0, len(before))
		for _, k := range viewKeys(before) {
			if k != role.Key {
				after = append(after, k)
			}
		}
		auditLog.After = keysSnapshot(after)
	}
	record(s.sink, auditLog, err)
	return err
}

// rolesByKeys loads every named role or fails on the first unknown key.
func rolesByKeys(ctx context.Context, repo ports.RoleRepository, keys []string) ([]*domain.Role, error) {
	keys = uniq(keys)
	if len(keys) == 0 {
		return []*domain.Role{}, nil
	}
	roles, err := repo.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		found[r.Key] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := found[k]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, k)
		}
	}
	return roles, nil
}

func userRoles(userID string, roles []*domain.Role, now time.Time) []domain.UserRole {
	out := make([]domain.UserRole, 0, len(roles))
	for _, r := range roles {
		out = append(out, domain.UserRole{UserID: userID, RoleID: r.ID, CreatedAt: now})
	}
	return out
}

func roleKeys(roles []*domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Key)
	}
	sort.Strings(out)
	return out
}

func viewKeys(views []ports.UserRoleView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Role.Key)
	}
	return out
}
