package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type RoleHandler struct {
	service ports.RoleService
}

func NewRoleHandler(service ports.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

type createRoleRequest struct {
	Key         string `json:"role_key" validate:"required,max=64,rolekey"`
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description,omitempty" validate:"max=512"`
	IsDefault   bool   `json:"is_default"`
}

type updateRoleRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsDefault   *bool   `json:"is_default,omitempty"`
}

type permissionKeysRequest struct {
	Keys []string `json:"permission_keys" validate:"dive,required"`
}

type menuIDsRequest struct {
	MenuIDs []string `json:"menu_ids" validate:"dive,required"`
}

// List handles GET /roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Partial key or name"
// @Param        active  query     bool    false  "Filter by active flag"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  Response{data=ports.Page[domain.Role]}
// @Router       /roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}

	filter := ports.RoleFilter{Search: c.QueryParam("search"), Page: page, Limit: limit}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Invalid("active must be a boolean")
		}
		filter.Active = &active
	}

	roles, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, roles)
}

// Create handles POST /roles.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role"
// @Success      201   {object}  Response{data=domain.Role}
// @Failure      409   {object}  Response
// @Router       /roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.Create(c.Request().Context(), ports.CreateRoleInput{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
		Actor:       ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, role)
}

// Get handles GET /roles/:id.
func (h *RoleHandler) Get(c echo.Context) error {
	role, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, role)
}

// Update handles PATCH /roles/:id.
func (h *RoleHandler) Update(c echo.Context) error {
	var req updateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.Update(c.Request().Context(), ports.UpdateRoleInput{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		IsDefault:   req.IsDefault,
		Actor:       ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, role)
}

// Delete handles DELETE /roles/:id.
//
// @Summary      Delete a role
// @Description  System and default roles, and roles still held by a user, cannot be deleted.
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Failure      409  {object}  Response
// @Router       /roles/{id} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), ctxActor(c)); err != nil {
		return err
	}
	return noContent(c)
}

// Permissions handles GET /roles/:id/permissions.
func (h *RoleHandler) Permissions(c echo.Context) error {
	perms, err := h.service.Permissions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perms)
}

// ReplacePermissions handles PUT /roles/:id/permissions.
//
// @Summary      Replace a role's permissions
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Role ID"
// @Param        body  body      permissionKeysRequest  true  "Permission keys"
// @Success      200   {object}  Response{data=[]domain.Permission}
// @Router       /roles/{id}/permissions [put]
func (h *RoleHandler) ReplacePermissions(c echo.Context) error {
	return h.changePermissions(c, h.service.ReplacePermissions)
}

// AssignPermissions handles POST /roles/:id/permissions.
func (h *RoleHandler) AssignPermissions(c echo.Context) error {
	return h.changePermissions(c, h.service.AssignPermissions)
}

// RevokePermissions handles POST /roles/:id/permissions/revoke.
func (h *RoleHandler) RevokePermissions(c echo.Context) error {
	return h.changePermissions(c, h.service.RevokePermissions)
}

func (h *RoleHandler) changePermissions(
	c echo.Context,
	apply func(ctx context.Context, in ports.RolePermissionsInput) ([]*domain.Permission, error),
) error {
	var req permissionKeysRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	perms, err := apply(c.Request().Context(), ports.RolePermissionsInput{
		RoleID: c.Param("id"),
		Keys:   req.Keys,
		Actor:  ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perms)
}

// Menus handles GET /roles/:id/menus.
func (h *RoleHandler) Menus(c echo.Context) error {
	menus, err := h.service.Menus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menus)
}

// ReplaceMenus handles PUT /roles/:id/menus.
//
// @Summary      Replace a role's menus
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Role ID"
// @Param        body  body      menuIDsRequest  true  "Menu IDs"
// @Success      200   {object}  Response{data=[]domain.Menu}
// @Router       /roles/{id}/menus [put]
func (h *RoleHandler) ReplaceMenus(c echo.Context) error {
	var req menuIDsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	menus, err := h.service.ReplaceMenus(c.Request().Context(), ports.RoleMenusInput{
		RoleID:  c.Param("id"),
		MenuIDs: req.MenuIDs,
		Actor:   ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menus)
}
