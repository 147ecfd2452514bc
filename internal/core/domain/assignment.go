package domain

import "time"

// UserRole grants a role to a user, optionally until ExpiresAt.
type UserRole struct {
	UserID    string     `json:"user_id"`
	RoleID    string     `json:"role_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Live reports whether the assignment is still in force at now.
func (a UserRole) Live(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

type RolePermission struct {
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type RoleMenu struct {
	RoleID    string    `json:"role_id"`
	MenuID    string    `json:"menu_id"`
	CreatedAt time.Time `json:"created_at"`
}
