package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	OwnerHeader     = "X-Owner-ID"
	ownerContextKey = "owner"
)

// RequireOwner reads the caller identity from the X-Owner-ID header. Identity
// is trusted as sent; authentication happens in front of this service.
func RequireOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			owner := strings.TrimSpace(c.Request().Header.Get(OwnerHeader))
			if owner == "" {
				return c.JSON(http.StatusUnauthorized, Response{
					Status:  http.StatusUnauthorized,
					Message: "missing " + OwnerHeader + " header",
				})
			}
			c.Set(ownerContextKey, owner)
			return next(c)
		}
	}
}

func Owner(c echo.Context) string {
	owner, _ := c.Get(ownerContextKey).(string)
	return owner
}
