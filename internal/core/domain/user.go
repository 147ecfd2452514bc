package domain

import "time"

// UserStatus is the administrative state of an account.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
	UserBanned    UserStatus = "BANNED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserInactive, UserSuspended, UserBanned:
		return true
	}
	return false
}

// User models an authenticated actor in the system. Users are never removed
// from storage; deletion sets IsDeleted.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	IsActive     bool       `json:"is_active"`
	IsDeleted    bool       `json:"-"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanAct reports whether the user may hold any capability at all.
func (u *User) CanAct() bool {
	return u != nil && !u.IsDeleted && u.IsActive && u.Status == UserActive
}

// Snapshot is the audit representation of the user.
func (u *User) Snapshot() map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"status":    string(u.Status),
		"is_active": u.IsActive,
	}
}
