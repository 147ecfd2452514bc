package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/api/metrics"
	"github.com/99minutos/rbac-system/internal/core/domain"
)

// ResolutionKey is the echo context key holding the *domain.Resolution
// computed by the permission gate.
const ResolutionKey = "resolution"

// Resolver computes a user's effective permissions.
type Resolver interface {
	ResolvePermissions(ctx context.Context, userID string) (*domain.Resolution, error)
}

// RequirePermission lets the request through only when the caller holds
// every one of keys.
func RequirePermission(resolver Resolver, keys ...string) echo.MiddlewareFunc {
	return gate(resolver, "all", keys, func(perms domain.KeySet) bool {
		return perms.HasAll(keys...)
	})
}

// RequireAnyPermission lets the request through when the caller holds at
// least one of keys.
func RequireAnyPermission(resolver Resolver, keys ...string) echo.MiddlewareFunc {
	return gate(resolver, "any", keys, func(perms domain.KeySet) bool {
		return perms.HasAny(keys...)
	})
}

func gate(resolver Resolver, mode string, keys []string, allowed func(domain.KeySet) bool) echo.MiddlewareFunc {
	denied := "missing permission: " + strings.Join(keys, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := CurrentSession(c)
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			start := time.Now()
			res, err := resolver.ResolvePermissions(c.Request().Context(), session.UserID)
			if err != nil {
				metrics.ResolveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
				metrics.AuthzDecisionsTotal.WithLabelValues(mode, "error").Inc()
				// The session outlived its user.
				if errors.Is(err, domain.ErrNotFound) {
					return echo.NewHTTPError(http.StatusForbidden, denied).SetInternal(err)
				}
				return err
			}
			metrics.ResolveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

			if !allowed(res.Permissions) {
				metrics.AuthzDecisionsTotal.WithLabelValues(mode, "deny").Inc()
				return echo.NewHTTPError(http.StatusForbidden, denied)
			}

			metrics.AuthzDecisionsTotal.WithLabelValues(mode, "allow").Inc()
			c.Set(ResolutionKey, res)
			return next(c)
		}
	}
}
