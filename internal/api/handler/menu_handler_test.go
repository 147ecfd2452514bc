package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type stubMenuService struct {
	ports.MenuService
	createFn func(ctx context.Context, in ports.CreateMenuInput) (*domain.Menu, error)
	updateFn func(ctx context.Context, in ports.UpdateMenuInput) (*domain.Menu, error)
	sortFn   func(ctx context.Context, in ports.SortMenusInput) error
}

func (s *stubMenuService) Create(ctx context.Context, in ports.CreateMenuInput) (*domain.Menu, error) {
	return s.createFn(ctx, in)
}

func (s *stubMenuService) Update(ctx context.Context, in ports.UpdateMenuInput) (*domain.Menu, error) {
	return s.updateFn(ctx, in)
}

func (s *stubMenuService) Sort(ctx context.Context, in ports.SortMenusInput) error {
	return s.sortFn(ctx, in)
}

func TestMenuHandler_Create_Defaults(t *testing.T) {
	stub := &stubMenuService{
		createFn: func(ctx context.Context, in ports.CreateMenuInput) (*domain.Menu, error) {
			if !in.IsVisible || !in.IsEnabled {
				t.Fatalf("menus are visible and enabled unless stated: %+v", in)
			}
			return &domain.Menu{ID: "m-1", Name: in.Name, Path: in.Path, ParentID: in.ParentID}, nil
		},
	}
	h := NewMenuHandler(stub)

	body := strings.NewReader(`{"name":"Users","path":"/system/users","parent_id":"m-0"}`)
	c, rec := newContext(http.MethodPost, "/api/v1/menus", body, alice())
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestMenuHandler_Create_HiddenMenu(t *testing.T) {
	stub := &stubMenuService{
		createFn: func(ctx context.Context, in ports.CreateMenuInput) (*domain.Menu, error) {
			if in.IsVisible {
				t.Fatalf("explicit is_visible=false was ignored")
			}
			return &domain.Menu{ID: "m-2"}, nil
		},
	}
	h := NewMenuHandler(stub)

	c, _ := newContext(http.MethodPost, "/", strings.NewReader(`{"name":"Hidden","path":"/hidden","is_visible":false}`), alice())
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestMenuHandler_Update_MoveToTopLevel(t *testing.T) {
	stub := &stubMenuService{
		updateFn: func(ctx context.Context, in ports.UpdateMenuInput) (*domain.Menu, error) {
			if in.ID != "m-3" || in.ParentID == nil || *in.ParentID != "" {
				t.Fatalf("expected explicit empty parent, got %+v", in)
			}
			if in.Name != nil {
				t.Fatalf("absent fields must stay nil")
			}
			return &domain.Menu{ID: in.ID}, nil
		},
	}
	h := NewMenuHandler(stub)

	c, _ := newContext(http.MethodPatch, "/", strings.NewReader(`{"parent_id":""}`), alice())
	c.SetParamNames("id")
	c.SetParamValues("m-3")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestMenuHandler_Update_Cycle(t *testing.T) {
	stub := &stubMenuService{
		updateFn: func(ctx context.Context, in ports.UpdateMenuInput) (*domain.Menu, error) {
			return nil, domain.ErrMenuCycle
		},
	}
	h := NewMenuHandler(stub)

	c, _ := newContext(http.MethodPatch, "/", strings.NewReader(`{"parent_id":"m-child"}`), alice())
	c.SetParamNames("id")
	c.SetParamValues("m-root")
	if err := h.Update(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMenuHandler_Sort(t *testing.T) {
	var got []domain.MenuSort
	stub := &stubMenuService{
		sortFn: func(ctx context.Context, in ports.SortMenusInput) error {
			got = in.Items
			return nil
		},
	}
	h := NewMenuHandler(stub)

	c, _ := newContext(http.MethodPut, "/", strings.NewReader(`{"items":[{"id":"a","sort":2},{"id":"b","sort":1}]}`), alice())
	if err := h.Sort(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Sort != 1 {
		t.Fatalf("unexpected items: %+v", got)
	}

	for _, body := range []string{`{"items":[]}`, `{"items":[{"sort":1}]}`} {
		c, _ = newContext(http.MethodPut, "/", strings.NewReader(body), alice())
		if err := h.Sort(c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", body, err)
		}
	}
}
