package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

// Response is the envelope of every API reply. Code 0 is success; failures
// carry the HTTP status as code.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Code: 0, Message: "success", Data: data})
}

func noContent(c echo.Context) error {
	return respond(c, http.StatusOK, nil)
}

// Failure renders an error envelope.
func Failure(c echo.Context, status int, msg string) error {
	return c.JSON(status, Response{Code: status, Message: msg})
}

// bind decodes the request body and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Invalid("invalid payload")
	}
	return c.Validate(req)
}

func pageParams(c echo.Context) (page, limit int, err error) {
	err = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return 0, 0, domain.Invalid("page and limit must be integers")
	}
	return page, limit, nil
}
