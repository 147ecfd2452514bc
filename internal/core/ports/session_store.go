package ports

import (
	"context"
	"time"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

// SessionStore persists server-side sessions. Find returns
// domain.ErrSessionNotFound once a session expired or was revoked.
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, userID string) error
}
