package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/rbac-system/internal/api/handler"
	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type stubAuth struct {
	ports.AuthService
}

func (stubAuth) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	if token != "good" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Session{ID: "s-1", UserID: "u-1", Username: "alice"}, nil
}

type stubAccess struct {
	ports.AccessService
	perms []string
}

func (s stubAccess) ResolvePermissions(_ context.Context, userID string) (*domain.Resolution, error) {
	res := domain.EmptyResolution(userID)
	res.Permissions = domain.NewKeySet(s.perms...)
	return res, nil
}

type stubAudit struct{}

func (stubAudit) List(_ context.Context, f ports.AuditFilter) (*ports.Page[*domain.AuditLog], error) {
	return ports.NewPage[*domain.AuditLog](nil, 0, 1, 20), nil
}

type stubUsers struct {
	ports.UserService
}

func (stubUsers) BatchRoles(_ context.Context, ids []string) (map[string][]ports.UserRoleView, error) {
	out := make(map[string][]ports.UserRoleView, len(ids))
	for _, id := range ids {
		out[id] = []ports.UserRoleView{}
	}
	return out, nil
}

func (stubUsers) Get(_ context.Context, id string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func newTestRouter(perms ...string) http.Handler {
	return NewRouter(Deps{
		Auth:   stubAuth{},
		Users:  stubUsers{},
		Access: stubAccess{perms: perms},
		Audit:  stubAudit{},
		Log:    zerolog.Nop(),
	})
}

func serve(h http.Handler, method, target, token string) (*httptest.ResponseRecorder, handler.Response) {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body handler.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestRouter_Health(t *testing.T) {
	rec, _ := serve(newTestRouter(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, _ = serve(newTestRouter(), http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness without dependencies should be ok, got %d", rec.Code)
	}
}

func TestRouter_AuditLogsGate(t *testing.T) {
	cases := []struct {
		name  string
		token string
		perms []string
		code  int
	}{
		{"no token", "", nil, http.StatusUnauthorized},
		{"bad token", "forged", nil, http.StatusUnauthorized},
		{"missing permission", "good", []string{domain.PermUserView}, http.StatusForbidden},
		{"allowed", "good", []string{domain.PermAuditView}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := serve(newTestRouter(tc.perms...), http.MethodGet, "/api/v1/audit-logs", tc.token)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d (%s)", tc.code, rec.Code, rec.Body.String())
			}
			wantCode := tc.code
			if tc.code == http.StatusOK {
				wantCode = 0
			}
			if body.Code != wantCode {
				t.Fatalf("expected envelope code %d, got %+v", wantCode, body)
			}
		})
	}
}

func TestRouter_BatchUserRolesBeforeUserID(t *testing.T) {
	rec, body := serve(newTestRouter(domain.PermUserView), http.MethodGet, "/api/v1/users/roles?ids=u-1,u-2", "good")
	if rec.Code != http.StatusOK || body.Code != 0 {
		t.Fatalf("expected batch lookup, got %d %s", rec.Code, rec.Body.String())
	}
	data, _ := body.Data.(map[string]any)
	if _, ok := data["u-2"]; !ok {
		t.Fatalf("expected an entry per requested id, got %+v", body.Data)
	}

	rec, _ = serve(newTestRouter(), http.MethodGet, "/api/v1/users/roles?ids=u-1", "good")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without user view permission, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec, body := serve(newTestRouter(), http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || body.Code != http.StatusNotFound {
		t.Fatalf("expected 404 envelope, got %d %+v", rec.Code, body)
	}
}
