package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
	RoleKeys []string `json:"role_keys,omitempty" validate:"dive,rolekey"`
}

type updateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED BANNED"`
}

type replaceRolesRequest struct {
	RoleKeys []string `json:"role_keys" validate:"dive,rolekey"`
}

type assignRoleRequest struct {
	RoleKey   string     `json:"role_key" validate:"required,rolekey"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "ACTIVE, INACTIVE, SUSPENDED or BANNED"
// @Param        search  query     string  false  "Partial username or email"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  Response{data=ports.Page[domain.User]}
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	status := domain.UserStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return domain.Invalid("status must be one of: ACTIVE INACTIVE SUSPENDED BANNED")
	}

	users, err := h.service.List(c.Request().Context(), ports.UserFilter{
		Status: status,
		Search: c.QueryParam("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, users)
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User"
// @Success      201   {object}  Response{data=domain.User}
// @Failure      400   {object}  Response
// @Failure      409   {object}  Response
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		RoleKeys: req.RoleKeys,
		Actor:    ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, user)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  Response{data=domain.User}
// @Failure      404  {object}  Response
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// Update handles PATCH /users/:id.
//
// @Summary      Update a user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  Response{data=domain.User}
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), ports.UpdateUserInput{
		ID:       c.Param("id"),
		Email:    req.Email,
		Password: req.Password,
		Actor:    ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// ChangeStatus handles PUT /users/:id/status. Leaving ACTIVE revokes every
// session of the user.
//
// @Summary      Change a user's status
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "User ID"
// @Param        body  body      changeStatusRequest  true  "New status"
// @Success      200   {object}  Response{data=domain.User}
// @Router       /users/{id}/status [put]
func (h *UserHandler) ChangeStatus(c echo.Context) error {
	var req changeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.ChangeStatus(c.Request().Context(), ports.ChangeUserStatusInput{
		ID:     c.Param("id"),
		Status: domain.UserStatus(req.Status),
		Actor:  ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), ctxActor(c)); err != nil {
		return err
	}
	return noContent(c)
}

// Roles handles GET /users/:id/roles.
//
// @Summary      List a user's roles
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  Response{data=[]ports.UserRoleView}
// @Router       /users/{id}/roles [get]
func (h *UserHandler) Roles(c echo.Context) error {
	roles, err := h.service.Roles(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, roles)
}

// BatchRoles handles GET /users/roles?ids=a,b.
//
// @Summary      Roles of several users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        ids  query     string  true  "Comma-separated user IDs"
// @Success      200  {object}  Response{data=map[string][]ports.UserRoleView}
// @Router       /users/roles [get]
func (h *UserHandler) BatchRoles(c echo.Context) error {
	var ids []string
	for _, id := range strings.Split(c.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return domain.Invalid("ids is required")
	}

	roles, err := h.service.BatchRoles(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, roles)
}

// ReplaceRoles handles PUT /users/:id/roles.
//
// @Summary      Replace a user's roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "User ID"
// @Param        body  body      replaceRolesRequest  true  "Role keys"
// @Success      200   {object}  Response{data=[]ports.UserRoleView}
// @Router       /users/{id}/roles [put]
func (h *UserHandler) ReplaceRoles(c echo.Context) error {
	var req replaceRolesRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	roles, err := h.service.ReplaceRoles(c.Request().Context(), ports.ReplaceUserRolesInput{
		UserID:   c.Param("id"),
		RoleKeys: req.RoleKeys,
		Actor:    ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, roles)
}

// AssignRole handles POST /users/:id/roles.
//
// @Summary      Grant a role to a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      assignRoleRequest  true  "Role key and optional expiry"
// @Success      200   {object}  Response{data=[]ports.UserRoleView}
// @Router       /users/{id}/roles [post]
func (h *UserHandler) AssignRole(c echo.Context) error {
	var req assignRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	roles, err := h.service.AssignRole(c.Request().Context(), ports.AssignUserRoleInput{
		UserID:    c.Param("id"),
		RoleKey:   req.RoleKey,
		ExpiresAt: req.ExpiresAt,
		Actor:     ctxActor(c),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, roles)
}

// UnassignRole handles DELETE /users/:id/roles/:key.
//
// @Summary      Revoke a role from a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Param        key  path      string  true  "Role key"
// @Success      200  {object}  Response
// @Router       /users/{id}/roles/{key} [delete]
func (h *UserHandler) UnassignRole(c echo.Context) error {
	err := h.service.UnassignRole(c.Request().Context(), c.Param("id"), c.Param("key"), ctxActor(c))
	if err != nil {
		return err
	}
	return noContent(c)
}
