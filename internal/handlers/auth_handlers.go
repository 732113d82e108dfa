package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials for the front layer, which then sends the
// returned id as X-User-ID
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return respondOK(c, "Login successful", user)
}

// Me returns the calling user
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return respondOK(c, "", user)
}
