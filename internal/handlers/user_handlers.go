package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers returns users, optionally filtered by ?role=
func (h *UserHandler) ListUsers(c echo.Context) error {
	role := models.UserRole(strings.ToUpper(c.QueryParam("role")))
	users, err := h.users.List(c.Request().Context(), role)
	if err != nil {
		return err
	}
	return respondOK(c, "", users)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "", user)
}

func (h *UserHandler) StoreUser(c echo.Context) error {
	var in services.UserInput
	if err := bind(c, &in); err != nil {
		return err
	}
	user, err := h.users.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respondCreated(c, "User created", user)
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.UserInput
	if err := bind(c, &in); err != nil {
		return err
	}
	user, err := h.users.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respondOK(c, "User updated", user)
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if id == currentUserID(c) {
		return services.ErrForbidden
	}
	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respondOK(c, "User deleted", nil)
}
