package domain

import "time"

// PermissionType classifies what a permission key gates.
type PermissionType string

const (
	PermissionMenu   PermissionType = "MENU"
	PermissionButton PermissionType = "BUTTON"
	PermissionAPI    PermissionType = "API"
)

func (t PermissionType) Valid() bool {
	switch t {
	case PermissionMenu, PermissionButton, PermissionAPI:
		return true
	}
	return false
}

// Permission is an atomic capability identified by a globally unique key
// such as "menu:user:list". Keys are compared literally; the colon
// separated shape carries no inheritance.
type Permission struct {
	ID          string         `json:"id"`
	Key         string         `json:"permission_key"`
	Name        string         `json:"name"`
	Type        PermissionType `json:"type"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (p *Permission) Snapshot() map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"id":             p.ID,
		"permission_key": p.Key,
		"name":           p.Name,
		"type":           string(p.Type),
		"description":    p.Description,
	}
}

// Keys guarding the administration API itself.
const (
	PermUserView = "system:user:view"
	PermUserEdit = "system:user:edit"

	PermRoleView = "system:role:view"
	PermRoleEdit = "system:role:edit"

	PermPermissionView = "system:permission:view"
	PermPermissionEdit = "system:permission:edit"

	PermMenuView = "system:menu:view"
	PermMenuEdit = "system:menu:edit"

	PermAuditView   = "system:audit:view"
	PermAccessCheck = "system:access:check"
)

// AdminScopes lists every key used by the administration API.
func AdminScopes() []string {
	return []string{
		PermUserView,
		PermUserEdit,
		PermRoleView,
		PermRoleEdit,
		PermPermissionView,
		PermPermissionEdit,
		PermMenuView,
		PermMenuEdit,
		PermAuditView,
		PermAccessCheck,
	}
}
