package domain

import "time"

type AuditAction string

const (
	ActionUserCreated       AuditAction = "USER_CREATED"
	ActionUserUpdated       AuditAction = "USER_UPDATED"
	ActionUserStatusChanged AuditAction = "USER_STATUS_CHANGED"
	ActionUserDeleted       AuditAction = "USER_DELETED"
	ActionUserRolesChanged  AuditAction = "USER_ROLES_CHANGED"

	ActionRoleCreated            AuditAction = "ROLE_CREATED"
	ActionRoleUpdated            AuditAction = "ROLE_UPDATED"
	ActionRoleDeleted            AuditAction = "ROLE_DELETED"
	ActionRolePermissionsChanged AuditAction = "ROLE_PERMISSIONS_CHANGED"
	ActionRoleMenusChanged       AuditAction = "ROLE_MENUS_CHANGED"

	ActionPermissionCreated AuditAction = "PERMISSION_CREATED"
	ActionPermissionUpdated AuditAction = "PERMISSION_UPDATED"
	ActionPermissionDeleted AuditAction = "PERMISSION_DELETED"

	ActionMenuCreated AuditAction = "MENU_CREATED"
	ActionMenuUpdated AuditAction = "MENU_UPDATED"
	ActionMenuDeleted AuditAction = "MENU_DELETED"
	ActionMenuSorted  AuditAction = "MENU_SORTED"

	ActionLogin       AuditAction = "LOGIN"
	ActionLoginFailed AuditAction = "LOGIN_FAILED"
	ActionLogout      AuditAction = "LOGOUT"
)

type AuditResult string

const (
	AuditSuccess AuditResult = "SUCCESS"
	AuditFailure AuditResult = "FAILURE"
)

type ResourceType string

const (
	ResourceUser       ResourceType = "USER"
	ResourceRole       ResourceType = "ROLE"
	ResourcePermission ResourceType = "PERMISSION"
	ResourceMenu       ResourceType = "MENU"
	ResourceSession    ResourceType = "SESSION"
)

// Actor is whoever triggered a mutation.
type Actor struct {
	ID        string
	Name      string
	RequestID string
	ClientIP  string
}

// AuditLog is an append-only record of one mutation attempt.
type AuditLog struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorName    string         `json:"actor_name,omitempty"`
	Action       AuditAction    `json:"action"`
	ResourceType ResourceType   `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Before       map[string]any `json:"before,omitempty"`
	After        map[string]any `json:"after,omitempty"`
	Result       AuditResult    `json:"result"`
	Error        string         `json:"error,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	ClientIP     string         `json:"client_ip,omitempty"`
}

// NewAuditLog starts a successful record for actor.
func NewAuditLog(actor Actor, action AuditAction, resource ResourceType, resourceID string) *AuditLog {
	return &AuditLog{
		Timestamp:    time.Now().UTC(),
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		Result:       AuditSuccess,
		RequestID:    actor.RequestID,
		ClientIP:     actor.ClientIP,
	}
}

// Outcome marks the record failed when err is non-nil.
func (l *AuditLog) Outcome(err error) *AuditLog {
	if err != nil {
		l.Result = AuditFailure
		l.Error = err.Error()
	}
	return l
}
