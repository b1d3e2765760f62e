package router

import (
    "github.com/labstack/echo/v4"

    "github.com/flagquest/auction-service/internal/handler"
    "github.com/flagquest/auction-service/internal/middleware"
)

// AuctionDeps bundles everything auction route registration needs so the
// call site in main stays short.  Cache and RateLimit may be no-op
// middleware when Redis is unavailable.
type AuctionDeps struct {
    Handler   *handler.AuctionHandler
    Rankings  *handler.RankingsHandler
    JWTSecret string
    Cache     echo.MiddlewareFunc
    RateLimit echo.MiddlewareFunc
}

// RegisterAuctions wires up the auction endpoints.  Read-only listing and
// detail routes are public and go through the response cache; every
// mutating route requires a valid access token and is rate limited
// per user.
func RegisterAuctions(e *echo.Echo, d AuctionDeps) {
    // Public read-only routes.  The response cache middleware keeps hot
    // listings out of the database for a few seconds at a time.
    pub := e.Group("/v1")
    if d.Cache != nil {
        pub.Use(d.Cache)
    }
    // List auctions, filterable by flag_id and active_only query params.
    pub.GET("/auctions", d.Handler.List)
    // Fetch a single auction together with its bid history.
    pub.GET("/auctions/:id", d.Handler.Get)
    // The reputation leaderboard is public as well.
    pub.GET("/rankings", d.Rankings.List)

    // Mutating routes require authentication.  The rate limiter runs after
    // JWTAuth so the per-user bucket key is available.
    auth := e.Group("/v1/auctions")
    auth.Use(middleware.JWTAuth(d.JWTSecret))
    if d.RateLimit != nil {
        auth.Use(d.RateLimit)
    }
    // Create a new auction for an owned flag.
    auth.POST("", d.Handler.Create)
    // Place a bid on an active auction.
    auth.POST("/:id/bid", d.Handler.Bid)
    // Buy the flag outright at the buyout price.
    auth.POST("/:id/buyout", d.Handler.Buyout)
    // Close an auction whose deadline has passed and settle the winner.
    auth.POST("/:id/close", d.Handler.Close)
    // Cancel an auction that has not received any bids.
    auth.POST("/:id/cancel", d.Handler.Cancel)
}
