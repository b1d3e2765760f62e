package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // Load .env files in development
    "github.com/labstack/echo/v4" // Echo web framework
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/flagquest/auction-service/internal/auction"    // Auction engine
    "github.com/flagquest/auction-service/internal/config"     // Internal config loader
    "github.com/flagquest/auction-service/internal/database"   // MySQL connection pool
    "github.com/flagquest/auction-service/internal/handler"    // HTTP handlers
    "github.com/flagquest/auction-service/internal/middleware" // Rate limiting and response cache
    "github.com/flagquest/auction-service/internal/queue"      // Settlement consumer
    "github.com/flagquest/auction-service/internal/repository" // Data access layer
    "github.com/flagquest/auction-service/internal/router"     // Internal router setup
)

func main() {
    // A missing .env is fine in production where real env vars are set.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: without it the rate limiter and response cache
    // simply stay disabled.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, rate limiting and caching disabled")
    }

    // Repositories, domain engine and handlers.
    auctions := repository.NewAuctionRepo(db)
    users := repository.NewUserRepo(db)
    flags := repository.NewFlagRepo(db)
    tokens := repository.NewTokenRepo(db)
    owners := repository.NewOwnershipStore(flags, users)

    clk := auction.SystemClock()
    engine := auction.NewEngine(auctions, owners, users, clk, auction.Config{
        MinDuration: cfg.MinDuration,
        MaxDuration: cfg.MaxDuration,
        BuyoutBonus: cfg.BuyoutBonus,
        WinnerBonus: cfg.WinnerBonus,
    })

    authH := handler.NewAuthHandler(cfg, users, tokens)
    auctionH := handler.NewAuctionHandler(engine, flags)
    rankingsH := &handler.RankingsHandler{Users: users}
    adminH := handler.NewAdminHandler(engine, auctions, users, clk)

    e := echo.New() // Create Echo instance
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())

    router.RegisterRoutes(e) // Health check
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterAuctions(e, router.AuctionDeps{
        Handler:   auctionH,
        Rankings:  rankingsH,
        JWTSecret: cfg.JWTSecret,
        Cache:     middleware.ResponseCache(config.LoadCacheConfig(), rdb),
        RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
    })
    router.RegisterAdmin(e, adminH, cfg.AdminAPIKey)

    // The settlement consumer keeps its own connection to the broker and
    // reconnects on failure; it never takes the API down with it.
    go func() {
        if err := queue.StartSettlementConsumer(); err != nil {
            log.Printf("settlement consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
