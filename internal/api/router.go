package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/rbac-system/internal/api/handler"
	"github.com/99minutos/rbac-system/internal/api/middleware"
	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// Deps carries everything the HTTP layer needs. Services are built by the
// caller so the router stays independent of the storage driver.
type Deps struct {
	Auth        ports.AuthService
	Users       ports.UserService
	Roles       ports.RoleService
	Permissions ports.PermissionService
	Menus       ports.MenuService
	Access      ports.AccessService
	Audit       ports.AuditService

	// Health lists the dependencies pinged by /health/ready.
	Health []handler.Dependency
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(d.Log))

	// --- Health checks and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")
	authn := middleware.Auth(d.Auth)
	can := func(keys ...string) echo.MiddlewareFunc {
		return middleware.RequirePermission(d.Access, keys...)
	}

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Users)
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh", authHandler.Refresh, authn)
	v1.POST("/auth/logout", authHandler.Logout, authn)
	v1.GET("/auth/me", authHandler.Me, authn)

	// --- Caller's own access ---
	accessHandler := handler.NewAccessHandler(d.Access)
	me := v1.Group("/me", authn)
	me.GET("/access", accessHandler.MyAccess)
	me.GET("/permissions", accessHandler.MyPermissions)
	me.GET("/menus", accessHandler.MyMenus)
	me.GET("/check", accessHandler.MyCheck)

	access := v1.Group("/access", authn, can(domain.PermAccessCheck))
	access.POST("/check", accessHandler.Check)
	access.GET("/users/:id", accessHandler.UserAccess)

	// --- Users ---
	userHandler := handler.NewUserHandler(d.Users)
	users := v1.Group("/users", authn)
	users.GET("", userHandler.List, can(domain.PermUserView))
	users.POST("", userHandler.Create, can(domain.PermUserEdit))
	users.GET("/roles", userHandler.BatchRoles, can(domain.PermUserView))
	users.GET("/:id", userHandler.Get, can(domain.PermUserView))
	users.PATCH("/:id", userHandler.Update, can(domain.PermUserEdit))
	users.PUT("/:id/status", userHandler.ChangeStatus, can(domain.PermUserEdit))
	users.DELETE("/:id", userHandler.Delete, can(domain.PermUserEdit))
	users.GET("/:id/roles", userHandler.Roles, can(domain.PermUserView))
	users.PUT("/:id/roles", userHandler.ReplaceRoles, can(domain.PermUserEdit, domain.PermRoleView))
	users.POST("/:id/roles", userHandler.AssignRole, can(domain.PermUserEdit, domain.PermRoleView))
	users.DELETE("/:id/roles/:key", userHandler.UnassignRole, can(domain.PermUserEdit))

	// --- Roles ---
	roleHandler := handler.NewRoleHandler(d.Roles)
	roles := v1.Group("/roles", authn)
	roles.GET("", roleHandler.List, can(domain.PermRoleView))
	roles.POST("", roleHandler.Create, can(domain.PermRoleEdit))
	roles.GET("/:id", roleHandler.Get, can(domain.PermRoleView))
	roles.PATCH("/:id", roleHandler.Update, can(domain.PermRoleEdit))
	roles.DELETE("/:id", roleHandler.Delete, can(domain.PermRoleEdit))
	roles.GET("/:id/permissions", roleHandler.Permissions, can(domain.PermRoleView))
	roles.PUT("/:id/permissions", roleHandler.ReplacePermissions, can(domain.PermRoleEdit))
	roles.POST("/:id/permissions", roleHandler.AssignPermissions, can(domain.PermRoleEdit))
	roles.POST("/:id/permissions/revoke", roleHandler.RevokePermissions, can(domain.PermRoleEdit))
	roles.GET("/:id/menus", roleHandler.Menus, can(domain.PermRoleView))
	roles.PUT("/:id/menus", roleHandler.ReplaceMenus, can(domain.PermRoleEdit))

	// --- Permissions ---
	permissionHandler := handler.NewPermissionHandler(d.Permissions)
	perms := v1.Group("/permissions", authn)
	perms.GET("", permissionHandler.List, can(domain.PermPermissionView))
	perms.POST("", permissionHandler.Create, can(domain.PermPermissionEdit))
	perms.GET("/:id", permissionHandler.Get, can(domain.PermPermissionView))
	perms.PATCH("/:id", permissionHandler.Update, can(domain.PermPermissionEdit))
	perms.DELETE("/:id", permissionHandler.Delete, can(domain.PermPermissionEdit))

	// --- Menus ---
	menuHandler := handler.NewMenuHandler(d.Menus)
	menus := v1.Group("/menus", authn)
	menus.GET("", menuHandler.List, can(domain.PermMenuView))
	menus.GET("/tree", menuHandler.Tree, can(domain.PermMenuView))
	menus.POST("", menuHandler.Create, can(domain.PermMenuEdit))
	menus.PUT("/sort", menuHandler.Sort, can(domain.PermMenuEdit))
	menus.GET("/:id", menuHandler.Get, can(domain.PermMenuView))
	menus.PATCH("/:id", menuHandler.Update, can(domain.PermMenuEdit))
	menus.DELETE("/:id", menuHandler.Delete, can(domain.PermMenuEdit))
	menus.GET("/:id/logs", menuHandler.Logs, can(domain.PermMenuView, domain.PermAuditView))

	// --- Audit ---
	auditHandler := handler.NewAuditHandler(d.Audit)
	v1.GET("/audit-logs", auditHandler.List, authn, can(domain.PermAuditView))

	return e
}
