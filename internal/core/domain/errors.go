package domain

import "errors"

// Error kinds. Every concrete error below wraps exactly one of them so the
// transport layer can map by kind with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Invalid builds a validation error carrying a human-readable message.
func Invalid(msg string) error {
	return newError(ErrValidation, msg)
}

var (
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrUserExists         = newError(ErrConflict, "user already exists")
	ErrUserInactive       = newError(ErrForbidden, "user is not active")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid credentials")

	ErrSessionNotFound = newError(ErrUnauthorized, "session expired or revoked")
	ErrInvalidToken    = newError(ErrUnauthorized, "invalid token")

	ErrRoleNotFound   = newError(ErrNotFound, "role not found")
	ErrRoleExists     = newError(ErrConflict, "role key already exists")
	ErrRoleInUse      = newError(ErrConflict, "role is still assigned to users")
	ErrRoleProtected  = newError(ErrConflict, "system or default role cannot be deleted")
	ErrInvalidRoleKey = newError(ErrValidation, "role key must match ^[a-zA-Z0-9_]+$")

	ErrPermissionNotFound = newError(ErrNotFound, "permission not found")
	ErrPermissionExists   = newError(ErrConflict, "permission key already exists")

	ErrMenuNotFound       = newError(ErrNotFound, "menu not found")
	ErrMenuParentNotFound = newError(ErrNotFound, "parent menu not found")
	ErrMenuCycle          = newError(ErrConflict, "menu parent would create a cycle")
	ErrMenuHasChildren    = newError(ErrConflict, "menu still has child menus")
)
