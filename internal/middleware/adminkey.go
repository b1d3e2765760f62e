package middleware

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireAdminKey returns a middleware that only admits requests
// carrying the configured key in the X-Admin-Key header. The
// comparison is constant-time.
func RequireAdminKey(key string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            got := c.Request().Header.Get("X-Admin-Key")
            if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or missing admin API key"})
            }
            return next(c)
        }
    }
}
