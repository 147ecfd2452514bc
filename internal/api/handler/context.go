package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/api/middleware"
	"github.com/99minutos/rbac-system/internal/core/domain"
)

// ctxSession returns the session attached by the Auth middleware. Its
// absence means the route was mounted without authentication.
func ctxSession(c echo.Context) (*domain.Session, error) {
	s := middleware.CurrentSession(c)
	if s == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return s, nil
}

// ctxActor describes the caller for audit records. Anonymous calls yield an
// actor without identity.
func ctxActor(c echo.Context) domain.Actor {
	requestID := c.Request().Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	return middleware.CurrentSession(c).Actor(requestID, c.RealIP())
}
