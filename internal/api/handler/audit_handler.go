package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type AuditHandler struct {
	service ports.AuditService
}

func NewAuditHandler(service ports.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List handles GET /audit-logs.
//
// @Summary      Search the audit trail
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        actor_id       query     string  false  "Actor user ID"
// @Param        action         query     string  false  "e.g. ROLE_DELETED"
// @Param        resource_type  query     string  false  "USER, ROLE, PERMISSION, MENU or SESSION"
// @Param        resource_id    query     string  false  "Resource ID"
// @Param        result         query     string  false  "SUCCESS or FAILURE"
// @Param        from           query     string  false  "RFC3339 lower bound"
// @Param        to             query     string  false  "RFC3339 upper bound"
// @Param        page           query     int     false  "Page (1-based)"
// @Param        limit          query     int     false  "Page size (max 100)"
// @Success      200            {object}  Response{data=ports.Page[domain.AuditLog]}
// @Failure      400            {object}  Response
// @Router       /audit-logs [get]
func (h *AuditHandler) List(c echo.Context) error {
	var (
		page, limit int
		from, to    time.Time
	)
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		Time("from", &from, time.RFC3339).
		Time("to", &to, time.RFC3339).
		BindError()
	if err != nil {
		return domain.Invalid("page/limit must be integers and from/to RFC3339 timestamps")
	}

	logs, err := h.service.List(c.Request().Context(), ports.AuditFilter{
		ActorID:      c.QueryParam("actor_id"),
		Action:       domain.AuditAction(c.QueryParam("action")),
		ResourceType: domain.ResourceType(c.QueryParam("resource_type")),
		ResourceID:   c.QueryParam("resource_id"),
		Result:       domain.AuditResult(c.QueryParam("result")),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, logs)
}
