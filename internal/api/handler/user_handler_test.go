package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

func TestUserHandler_BatchRoles(t *testing.T) {
	var got []string
	stub := &stubUserService{
		batchRolesFn: func(_ context.Context, ids []string) (map[string][]ports.UserRoleView, error) {
			got = ids
			return map[string][]ports.UserRoleView{
				"u-1": {{Role: &domain.Role{ID: "r-1", Key: "ADMIN"}}},
				"u-2": {},
			}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(http.MethodGet, "/api/v1/users/roles?ids=u-1,%20u-2,,", nil, alice())
	if err := h.BatchRoles(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"u-1", "u-2"}) {
		t.Fatalf("unexpected ids passed to service: %v", got)
	}

	var out map[string][]map[string]any
	decode(t, rec, &out)
	if len(out["u-1"]) != 1 || len(out["u-2"]) != 0 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestUserHandler_BatchRoles_RequiresIDs(t *testing.T) {
	h := NewUserHandler(&stubUserService{})

	c, _ := newContext(http.MethodGet, "/api/v1/users/roles?ids=,", nil, alice())
	if err := h.BatchRoles(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
