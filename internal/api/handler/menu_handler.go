package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type MenuHandler struct {
	service ports.MenuService
}

func NewMenuHandler(service ports.MenuService) *MenuHandler {
	return &MenuHandler{service: service}
}

type createMenuRequest struct {
	Name          string `json:"name" validate:"required,max=64"`
	Path          string `json:"path" validate:"required,startswith=/,max=255"`
	Icon          string `json:"icon,omitempty" validate:"max=64"`
	PermissionKey string `json:"permission_key,omitempty" validate:"max=128"`
	ParentID      string `json:"parent_id,omitempty"`
	Sort          int    `json:"sort"`
	IsVisible     *bool  `json:"is_visible,omitempty"`
	IsEnabled     *bool  `json:"is_enabled,omitempty"`
}

type updateMenuRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	Path          *string `json:"path,omitempty" validate:"omitempty,startswith=/,max=255"`
	Icon          *string `json:"icon,omitempty" validate:"omitempty,max=64"`
	PermissionKey *string `json:"permission_key,omitempty" validate:"omitempty,max=128"`
	ParentID      *string `json:"parent_id,omitempty"`
	Sort          *int    `json:"sort,omitempty"`
	IsVisible     *bool   `json:"is_visible,omitempty"`
	IsEnabled     *bool   `json:"is_enabled,omitempty"`
}

type sortMenusRequest struct {
	Items []domain.MenuSort `json:"items" validate:"required,min=1,dive"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// List handles GET /menus.
func (h *MenuHandler) List(c echo.Context) error {
	menus, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menus)
}

// Tree handles GET /menus/tree.
//
// @Summary      Full menu tree
// @Description  Every live menu, hidden and disabled ones included.
// @Tags         menus
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=[]domain.MenuNode}
// @Router       /menus/tree [get]
func (h *MenuHandler) Tree(c echo.Context) error {
	tree, err := h.service.Tree(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tree)
}

// Create handles POST /menus.
//
// @Summary      Create a menu
// @Tags         menus
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createMenuRequest  true  "Menu"
// @Success      201   {object}  Response{data=domain.Menu}
// @Failure      404   {object}  Response  "parent not found"
// @Router       /menus [post]
func (h *MenuHandler) Create(c echo.Context) error {
	var req createMenuRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	menu, err := h.service.Create(c.Request().Context(), ports.CreateMenuInput{
		Name:          req.Name,
		Path:          req.Path,
		Icon:          req.Icon,
		PermissionKey: req.PermissionKey,
		ParentID:      req.ParentID,
		Sort:          req.Sort,
		IsVisible:     boolOr(req.IsVisible, true),
		IsEnabled:     boolOr(req.IsEnabled, true),
		Actor:         ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, menu)
}

// Get handles GET /menus/:id.
func (h *MenuHandler) Get(c echo.Context) error {
	menu, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menu)
}

// Update handles PATCH /menus/:id. Sending "parent_id": "" moves the menu to
// the top level.
//
// @Summary      Update a menu
// @Tags         menus
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Menu ID"
// @Param        body  body      updateMenuRequest  true  "Fields to change"
// @Success      200   {object}  Response{data=domain.Menu}
// @Failure      409   {object}  Response  "parent would create a cycle"
// @Router       /menus/{id} [patch]
func (h *MenuHandler) Update(c echo.Context) error {
	var req updateMenuRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	menu, err := h.service.Update(c.Request().Context(), ports.UpdateMenuInput{
		ID:            c.Param("id"),
		Name:          req.Name,
		Path:          req.Path,
		Icon:          req.Icon,
		PermissionKey: req.PermissionKey,
		ParentID:      req.ParentID,
		Sort:          req.Sort,
		IsVisible:     req.IsVisible,
		IsEnabled:     req.IsEnabled,
		Actor:         ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menu)
}

// Delete handles DELETE /menus/:id.
func (h *MenuHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), ctxActor(c)); err != nil {
		return err
	}
	return noContent(c)
}

// Sort handles PUT /menus/sort.
//
// @Summary      Reorder menus
// @Tags         menus
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sortMenusRequest  true  "New sort values"
// @Success      200   {object}  Response
// @Router       /menus/sort [put]
func (h *MenuHandler) Sort(c echo.Context) error {
	var req sortMenusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.service.Sort(c.Request().Context(), ports.SortMenusInput{Items: req.Items, Actor: ctxActor(c)}); err != nil {
		return err
	}
	return noContent(c)
}

// Logs handles GET /menus/:id/logs.
//
// @Summary      Change history of a menu
// @Tags         menus
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Menu ID"
// @Param        page   query     int     false  "Page (1-based)"
// @Param        limit  query     int     false  "Page size (max 100)"
// @Success      200    {object}  Response{data=ports.Page[domain.AuditLog]}
// @Router       /menus/{id}/logs [get]
func (h *MenuHandler) Logs(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	logs, err := h.service.Logs(c.Request().Context(), c.Param("id"), page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, logs)
}
