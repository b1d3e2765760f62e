// Package middleware provides reusable HTTP middleware: JWT
// authentication, admin-key enforcement, Redis-backed rate limiting
// and response caching.
package middleware

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the subject user id and wallet address into the
// request context under "user_id" (uint64) and "wallet" (string).
// The secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            // Numeric JSON claims decode as float64.
            sub, ok := claims["sub"].(float64)
            if !ok || sub <= 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            c.Set("user_id", uint64(sub))
            if w, ok := claims["wallet"].(string); ok {
                c.Set("wallet", w)
            }
            return next(c)
        }
    }
}
