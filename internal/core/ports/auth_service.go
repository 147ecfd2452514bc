package ports

import (
	"context"
	"time"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type RegisterInput struct {
	Username string
	Password string
	Email    string
	Actor    domain.Actor
}

type LoginInput struct {
	Username string
	Password string
	Actor    domain.Actor
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *domain.Session
	User      *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Authenticate verifies a bearer token and returns its live session.
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
	// Refresh issues a new token for the session and revokes the old one.
	Refresh(ctx context.Context, sessionID string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string, actor domain.Actor) error
	RevokeUser(ctx context.Context, userID string) error
}
