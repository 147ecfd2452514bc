package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type PermissionHandler struct {
	service ports.PermissionService
}

func NewPermissionHandler(service ports.PermissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

type createPermissionRequest struct {
	Key         string `json:"permission_key" validate:"required,max=128"`
	Name        string `json:"name" validate:"required,max=128"`
	Type        string `json:"type" validate:"required,oneof=MENU BUTTON API"`
	Description string `json:"description,omitempty" validate:"max=512"`
}

type updatePermissionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Type        *string `json:"type,omitempty" validate:"omitempty,oneof=MENU BUTTON API"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
}

// List handles GET /permissions.
//
// @Summary      List permissions
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        type    query     string  false  "MENU, BUTTON or API"
// @Param        search  query     string  false  "Partial key or name"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  Response{data=ports.Page[domain.Permission]}
// @Router       /permissions [get]
func (h *PermissionHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	typ := domain.PermissionType(c.QueryParam("type"))
	if typ != "" && !typ.Valid() {
		return domain.Invalid("type must be one of: MENU BUTTON API")
	}

	perms, err := h.service.List(c.Request().Context(), ports.PermissionFilter{
		Type:   typ,
		Search: c.QueryParam("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perms)
}

// Create handles POST /permissions.
//
// @Summary      Create a permission
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPermissionRequest  true  "Permission"
// @Success      201   {object}  Response{data=domain.Permission}
// @Failure      409   {object}  Response
// @Router       /permissions [post]
func (h *PermissionHandler) Create(c echo.Context) error {
	var req createPermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	perm, err := h.service.Create(c.Request().Context(), ports.CreatePermissionInput{
		Key:         req.Key,
		Name:        req.Name,
		Type:        domain.PermissionType(req.Type),
		Description: req.Description,
		Actor:       ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, perm)
}

func (h *PermissionHandler) Get(c echo.Context) error {
	perm, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perm)
}

func (h *PermissionHandler) Update(c echo.Context) error {
	var req updatePermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := ports.UpdatePermissionInput{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Actor:       ctxActor(c),
	}
	if req.Type != nil {
		typ := domain.PermissionType(*req.Type)
		in.Type = &typ
	}

	perm, err := h.service.Update(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, perm)
}

// Delete handles DELETE /permissions/:id. Role grants of the permission are
// removed with it.
func (h *PermissionHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), ctxActor(c)); err != nil {
		return err
	}
	return noContent(c)
}
