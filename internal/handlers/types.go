package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/middleware"
	"isp_billing_echo/internal/services"
)

// Response is the envelope every API endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Response{Success: true, Message: message, Data: data})
}

func respondOK(c echo.Context, message string, data interface{}) error {
	return respond(c, http.StatusOK, message, data)
}

func respondCreated(c echo.Context, message string, data interface{}) error {
	return respond(c, http.StatusCreated, message, data)
}

// bind decodes the request body, reporting malformed payloads as invalid input
func bind(c echo.Context, dest interface{}) error {
	if err := c.Bind(dest); err != nil {
		return fmt.Errorf("%w: malformed request body", services.ErrInvalidInput)
	}
	return nil
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", services.ErrInvalidInput, name)
	}
	return uint(id), nil
}

func queryUint(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", services.ErrInvalidInput, name)
	}
	return uint(v), nil
}

// Helper to safely get the authenticated user id from context
func getUintFromContext(c echo.Context, key string) uint {
	val := c.Get(key)
	if val == nil {
		return 0
	}
	uintVal, ok := val.(uint)
	if !ok {
		return 0
	}
	return uintVal
}

func currentUserID(c echo.Context) uint {
	return getUintFromContext(c, middleware.ContextUserID)
}
