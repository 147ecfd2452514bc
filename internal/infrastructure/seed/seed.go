// Package seed loads the bootstrap catalogue of permissions, menus, roles
// and the first administrator. Applying a seed twice is a no-op apart from
// re-syncing role grants.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

//go:embed defaults.yaml
var defaults []byte

// Wildcard in a role's permission or menu list grants every seeded entry.
const Wildcard = "*"

type File struct {
	Permissions []Permission `yaml:"permissions"`
	Menus       []Menu       `yaml:"menus"`
	Roles       []Role       `yaml:"roles"`
	Admin       *Admin       `yaml:"admin"`
}

type Permission struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type Menu struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	Icon          string `yaml:"icon"`
	PermissionKey string `yaml:"permission_key"`
	Parent        string `yaml:"parent"`
	Sort          int    `yaml:"sort"`
}

type Role struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	System      bool     `yaml:"system"`
	Default     bool     `yaml:"default"`
	Permissions []string `yaml:"permissions"`
	Menus       []string `yaml:"menus"`
}

type Admin struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

// Default returns the embedded bootstrap catalogue.
func Default() (*File, error) {
	return Parse(defaults)
}

// Load reads a seed file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	perms := make(map[string]struct{}, len(f.Permissions))
	for _, p := range f.Permissions {
		if p.Key == "" || !domain.PermissionType(p.Type).Valid() {
			return domain.Invalid(fmt.Sprintf("seed permission %q: key and a valid type are required", p.Key))
		}
		perms[p.Key] = struct{}{}
	}

	menus := make(map[string]struct{}, len(f.Menus))
	for _, m := range f.Menus {
		if m.ID == "" || m.Path == "" {
			return domain.Invalid(fmt.Sprintf("seed menu %q: id and path are required", m.Name))
		}
		menus[m.ID] = struct{}{}
	}
	parentOf := make(map[string]string, len(f.Menus))
	for _, m := range f.Menus {
		if m.Parent == "" {
			continue
		}
		if _, ok := menus[m.Parent]; !ok {
			return domain.Invalid(fmt.Sprintf("seed menu %q: unknown parent %q", m.ID, m.Parent))
		}
		if domain.WouldCreateCycle(m.ID, m.Parent, parentOf) {
			return domain.Invalid(fmt.Sprintf("seed menu %q: parent %q forms a cycle", m.ID, m.Parent))
		}
		parentOf[m.ID] = m.Parent
	}

	roles := make(map[string]struct{}, len(f.Roles))
	for _, r := range f.Roles {
		if !domain.ValidRoleKey(r.Key) {
			return fmt.Errorf("seed role %q: %w", r.Key, domain.ErrInvalidRoleKey)
		}
		for _, k := range r.Permissions {
			if _, ok := perms[k]; !ok && k != Wildcard {
				return domain.Invalid(fmt.Sprintf("seed role %q: unknown permission %q", r.Key, k))
			}
		}
		for _, id := range r.Menus {
			if _, ok := menus[id]; !ok && id != Wildcard {
				return domain.Invalid(fmt.Sprintf("seed role %q: unknown menu %q", r.Key, id))
			}
		}
		roles[r.Key] = struct{}{}
	}

	if f.Admin != nil {
		if f.Admin.Username == "" {
			return domain.Invalid("seed admin: username is required")
		}
		for _, k := range f.Admin.Roles {
			if _, ok := roles[k]; !ok {
				return domain.Invalid(fmt.Sprintf("seed admin: unknown role %q", k))
			}
		}
	}
	return nil
}

// Result summarizes what Apply created.
type Result struct {
	Permissions   int
	Menus         int
	Roles         int
	AdminCreated  bool
	AdminPassword string // only set when generated
}

// Apply creates whatever part of f is missing from the store. Existing
// records are left untouched except for role grants, which are replaced with
// the seeded set.
func Apply(ctx context.Context, repos ports.Repositories, f *File, log zerolog.Logger) (*Result, error) {
	now := time.Now().UTC()
	res := &Result{}

	permIDs, err := applyPermissions(ctx, repos, f.Permissions, now, res)
	if err != nil {
		return nil, err
	}
	menuIDs, err := applyMenus(ctx, repos, f.Menus, now, res)
	if err != nil {
		return nil, err
	}

	roleIDs := make(map[string]string, len(f.Roles))
	for _, r := range f.Roles {
		role, err := repos.Roles.FindByKey(ctx, r.Key)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if role == nil {
			role = &domain.Role{
				ID:          uuid.NewString(),
				Key:         r.Key,
				Name:        r.Name,
				Description: r.Description,
				IsActive:    true,
				IsSystem:    r.System,
				IsDefault:   r.Default,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repos.Roles.Create(ctx, role); err != nil {
				return nil, fmt.Errorf("seed role %s: %w", r.Key, err)
			}
			res.Roles++
		}
		roleIDs[r.Key] = role.ID

		if err := repos.Assignments.ReplaceRolePermissions(ctx, role.ID, pick(r.Permissions, permIDs)); err != nil {
			return nil, fmt.Errorf("seed role %s permissions: %w", r.Key, err)
		}
		if err := repos.Assignments.ReplaceRoleMenus(ctx, role.ID, pick(r.Menus, menuIDs)); err != nil {
			return nil, fmt.Errorf("seed role %s menus: %w", r.Key, err)
		}
	}

	if f.Admin != nil {
		if err := applyAdmin(ctx, repos, f.Admin, roleIDs, now, res); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("permissions", res.Permissions).
		Int("menus", res.Menus).
		Int("roles", res.Roles).
		Bool("admin_created", res.AdminCreated).
		Msg("seed applied")
	return res, nil
}

func applyPermissions(ctx context.Context, repos ports.Repositories, seeds []Permission, now time.Time, res *Result) (map[string]string, error) {
	keys := make([]string, 0, len(seeds))
	for _, p := range seeds {
		keys = append(keys, p.Key)
	}
	existing, err := repos.Permissions.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(seeds))
	for _, p := range existing {
		ids[p.Key] = p.ID
	}

	for _, p := range seeds {
		if _, ok := ids[p.Key]; ok {
			continue
		}
		perm := &domain.Permission{
			ID:          uuid.NewString(),
			Key:         p.Key,
			Name:        p.Name,
			Type:        domain.PermissionType(p.Type),
			Description: p.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repos.Permissions.Create(ctx, perm); err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", p.Key, err)
		}
		ids[p.Key] = perm.ID
		res.Permissions++
	}
	return ids, nil
}

// applyMenus keeps the seed ids so that reruns find the same rows.
func applyMenus(ctx context.Context, repos ports.Repositories, seeds []Menu, now time.Time, res *Result) (map[string]string, error) {
	wanted := make([]string, 0, len(seeds))
	for _, m := range seeds {
		wanted = append(wanted, m.ID)
	}
	existing, err := repos.Menus.FindByIDs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(seeds))
	for _, m := range existing {
		ids[m.ID] = m.ID
	}

	for _, m := range seeds {
		if _, ok := ids[m.ID]; ok {
			continue
		}
		menu := &domain.Menu{
			ID:            m.ID,
			Name:          m.Name,
			Path:          m.Path,
			Icon:          m.Icon,
			PermissionKey: m.PermissionKey,
			ParentID:      m.Parent,
			Sort:          m.Sort,
			IsVisible:     true,
			IsEnabled:     true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repos.Menus.Create(ctx, menu); err != nil {
			return nil, fmt.Errorf("seed menu %s: %w", m.ID, err)
		}
		ids[m.ID] = m.ID
		res.Menus++
	}
	return ids, nil
}

func applyAdmin(ctx context.Context, repos ports.Repositories, a *Admin, roleIDs map[string]string, now time.Time, res *Result) error {
	_, err := repos.Users.FindByUsername(ctx, a.Username)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	password := a.Password
	if password == "" {
		password = uuid.NewString()
		res.AdminPassword = password
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: string(hash),
		Status:       domain.UserActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	assignments := make([]domain.UserRole, 0, len(a.Roles))
	for _, id := range pick(a.Roles, roleIDs) {
		assignments = append(assignments, domain.UserRole{UserID: user.ID, RoleID: id, CreatedAt: now})
	}
	if err := repos.Users.Create(ctx, user, assignments); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	res.AdminCreated = true
	return nil
}

// pick maps seed references to store ids, expanding the wildcard.
func pick(refs []string, ids map[string]string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == Wildcard {
			out = out[:0]
			for _, id := range ids {
				out = append(out, id)
			}
			return out
		}
		if id, ok := ids[ref]; ok {
			out = append(out, id)
		}
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
