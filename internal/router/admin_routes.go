package router

import (
    "github.com/labstack/echo/v4"

    "github.com/flagquest/auction-service/internal/handler"
    "github.com/flagquest/auction-service/internal/middleware"
)

// RegisterAdmin wires up the operator endpoints under /v1/admin.  Every
// route in the group is guarded by the X-Admin-Key header check; there
// is no JWT requirement because the admin key is not tied to a player
// account.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, adminKey string) {
    g := e.Group("/v1/admin")
    g.Use(middleware.RequireAdminKey(adminKey))
    // Headline counts for the admin panel.
    g.GET("/stats", a.Stats)
    // Sweep every active auction past its deadline through the normal
    // close path.  Intended to be hit from a cron job.
    g.POST("/auctions/close-expired", a.CloseExpired)
}
