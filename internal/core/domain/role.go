package domain

import (
	"regexp"
	"time"
)

var roleKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidRoleKey reports whether key is usable as a role key.
func ValidRoleKey(key string) bool {
	return roleKeyPattern.MatchString(key)
}

// Role is a named bundle of permissions and menus.
type Role struct {
	ID          string     `json:"id"`
	Key         string     `json:"role_key"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSystem    bool       `json:"is_system"`
	IsDefault   bool       `json:"is_default"`
	IsDeleted   bool       `json:"-"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Grants reports whether the role contributes to a user's effective set.
func (r *Role) Grants() bool {
	return r != nil && r.IsActive && !r.IsDeleted
}

// Protected reports whether the role is exempt from deletion.
func (r *Role) Protected() bool {
	return r.IsSystem || r.IsDefault
}

func (r *Role) Snapshot() map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"id":          r.ID,
		"role_key":    r.Key,
		"name":        r.Name,
		"description": r.Description,
		"is_active":   r.IsActive,
		"is_system":   r.IsSystem,
		"is_default":  r.IsDefault,
	}
}
