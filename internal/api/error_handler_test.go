package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/rbac-system/internal/api/handler"
	"github.com/99minutos/rbac-system/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", domain.Invalid("name is required"), http.StatusBadRequest, "name is required"},
		{"wrapped not found", fmt.Errorf("%w: r-1", domain.ErrRoleNotFound), http.StatusNotFound, "role not found: r-1"},
		{"conflict", domain.ErrRoleInUse, http.StatusConflict, "role is still assigned to users"},
		{"cycle", domain.ErrMenuCycle, http.StatusConflict, "menu parent would create a cycle"},
		{"unauthorized", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"forbidden", domain.ErrUserInactive, http.StatusForbidden, "user is not active"},
		{"echo error", echo.NewHTTPError(http.StatusForbidden, "missing permission: a"), http.StatusForbidden, "missing permission: a"},
		{"unknown", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			e := echo.New()
			h := NewHTTPErrorHandler(zerolog.New(&logs))

			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)
			h(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body handler.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.code || body.Message != tc.message {
				t.Fatalf("unexpected envelope: %+v", body)
			}
			if tc.code == http.StatusInternalServerError && !strings.Contains(logs.String(), "connection reset") {
				t.Fatalf("expected the cause to be logged, got %q", logs.String())
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Body.String() != "done" {
		t.Fatalf("committed response must not be rewritten, got %q", rec.Body.String())
	}
}
