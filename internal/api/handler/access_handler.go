package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// AccessHandler exposes permission resolution, for the caller under /me and
// for any user under /access.
type AccessHandler struct {
	access ports.AccessService
}

func NewAccessHandler(access ports.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

type checkRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// MyAccess returns the caller's roles, permission keys and menu tree.
//
// @Summary      Resolve the caller's access
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=domain.Resolution}
// @Router       /me/access [get]
func (h *AccessHandler) MyAccess(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	res, err := h.access.ResolvePermissions(c.Request().Context(), session.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res)
}

// MyPermissions lists the caller's permission records.
//
// @Summary      List the caller's permissions
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  false  "MENU, BUTTON or API"
// @Success      200   {object}  Response{data=[]domain.Permission}
// @Router       /me/permissions [get]
func (h *AccessHandler) MyPermissions(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	typ := domain.PermissionType(c.QueryParam("type"))
	if typ != "" && !typ.Valid() {
		return domain.Invalid("type must be one of: MENU BUTTON API")
	}

	perms, err := h.access.UserPermissions(c.Request().Context(), session.UserID, typ)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perms)
}

// MyMenus returns the caller's navigation tree. The role model uses the
// menus granted to the caller's roles; the permission model gates every
// enabled menu by its permission key.
//
// @Summary      The caller's menu tree
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Param        model  query     string  false  "role (default) or permission"
// @Success      200    {object}  Response{data=[]domain.MenuNode}
// @Router       /me/menus [get]
func (h *AccessHandler) MyMenus(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	var menus []*domain.MenuNode
	switch c.QueryParam("model") {
	case "", "role":
		menus, err = h.access.UserMenus(c.Request().Context(), session.UserID)
	case "permission":
		menus, err = h.access.PermissionMenus(c.Request().Context(), session.UserID)
	default:
		return domain.Invalid("model must be one of: role permission")
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, menus)
}

// MyCheck answers whether the caller holds a permission key or may open a
// menu path. Exactly one of the two query parameters is expected.
//
// @Summary      Check the caller's access
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Param        permission  query     string  false  "Permission key"
// @Param        path        query     string  false  "Menu path"
// @Success      200         {object}  Response{data=checkResponse}
// @Failure      400         {object}  Response
// @Router       /me/check [get]
func (h *AccessHandler) MyCheck(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	key, path := c.QueryParam("permission"), c.QueryParam("path")
	var allowed bool
	switch {
	case key != "" && path == "":
		allowed, err = h.access.CheckPermission(c.Request().Context(), session.UserID, key)
	case path != "" && key == "":
		allowed, err = h.access.CanAccessPath(c.Request().Context(), session.UserID, path)
	default:
		return domain.Invalid("exactly one of permission or path is required")
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, checkResponse{Allowed: allowed})
}

// Check answers whether any user holds a permission key.
//
// @Summary      Check a user's permission
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      checkRequest  true  "User and permission key"
// @Success      200   {object}  Response{data=checkResponse}
// @Failure      404   {object}  Response
// @Router       /access/check [post]
func (h *AccessHandler) Check(c echo.Context) error {
	var req checkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	allowed, err := h.access.CheckPermission(c.Request().Context(), req.UserID, req.Permission)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, checkResponse{Allowed: allowed})
}

// UserAccess resolves another user's access.
//
// @Summary      Resolve a user's access
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  Response{data=domain.Resolution}
// @Failure      404  {object}  Response
// @Router       /access/users/{id} [get]
func (h *AccessHandler) UserAccess(c echo.Context) error {
	res, err := h.access.ResolvePermissions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res)
}
