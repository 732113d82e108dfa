package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

// Context keys set by RequireUser
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextUser     = "user"
)

// UserHeader carries the id of the user the front layer authenticated
const UserHeader = "X-User-ID"

// RequireUser returns a middleware that loads the ACTIVE user named by the
// X-User-ID header and stores it in the context
func RequireUser(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(UserHeader))
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+UserHeader+" header")
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+UserHeader+" header")
			}

			var user models.User
			err = db.WithContext(c.Request().Context()).First(&user, uint(id)).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			if err != nil {
				return err
			}
			if !user.IsActive() {
				return echo.NewHTTPError(http.StatusForbidden, "user is not active")
			}

			c.Set(ContextUserID, user.ID)
			c.Set(ContextUserRole, user.Role)
			c.Set(ContextUser, &user)
			return next(c)
		}
	}
}

// RequireRole rejects users whose role is not listed. It must run after
// RequireUser.
func RequireRole(roles ...models.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextUserRole).(models.UserRole)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

// RequireCronSecret guards machine-triggered endpoints with a bearer token.
// An empty secret disables the endpoint.
func RequireCronSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "cron secret not configured")
			}
			token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid cron secret")
			}
			return next(c)
		}
	}
}
