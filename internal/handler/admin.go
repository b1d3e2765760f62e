package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/flagquest/auction-service/internal/auction"
    "github.com/flagquest/auction-service/internal/model"
)

// AuctionStats is the read-side slice of the auction repository the
// admin endpoints use. *repository.AuctionRepo satisfies it.
type AuctionStats interface {
    ListExpiredActiveIDs(ctx context.Context, now time.Time) ([]uint64, error)
    CountByStatus(ctx context.Context, status model.AuctionStatus) (int, error)
    CountBids(ctx context.Context) (int, error)
}

// UserStats is the read-side slice of the user repository the admin
// endpoints use. *repository.UserRepo satisfies it.
type UserStats interface {
    Count(ctx context.Context) (int, error)
}

// AdminHandler serves the operator endpoints. Routes using it must be
// wrapped with middleware.RequireAdminKey.
type AdminHandler struct {
    Engine   *auction.Engine
    Auctions AuctionStats
    Users    UserStats
    Clock    auction.Clock
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(engine *auction.Engine, auctions AuctionStats, users UserStats, clk auction.Clock) *AdminHandler {
    if engine == nil || auctions == nil || users == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    if clk == nil {
        clk = auction.SystemClock()
    }
    return &AdminHandler{Engine: engine, Auctions: auctions, Users: users, Clock: clk}
}

// Stats handles GET /v1/admin/stats with headline counts for the
// admin panel.
func (h *AdminHandler) Stats(c echo.Context) error {
    ctx := c.Request().Context()

    active, err := h.Auctions.CountByStatus(ctx, model.AuctionActive)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    closed, err := h.Auctions.CountByStatus(ctx, model.AuctionClosed)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    cancelled, err := h.Auctions.CountByStatus(ctx, model.AuctionCancelled)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    bids, err := h.Auctions.CountBids(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    users, err := h.Users.Count(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "auctions_active":    active,
        "auctions_closed":    closed,
        "auctions_cancelled": cancelled,
        "bids_total":         bids,
        "users_total":        users,
    })
}

// CloseExpired handles POST /v1/admin/auctions/close-expired. It
// sweeps every active auction whose deadline has passed through the
// engine's Close, so winner determination, locking and reputation
// awards follow the exact same path as a client-initiated close. An
// auction that a concurrent close already settled is skipped, not an
// error.
func (h *AdminHandler) CloseExpired(c echo.Context) error {
    ctx := c.Request().Context()

    ids, err := h.Auctions.ListExpiredActiveIDs(ctx, h.Clock.Now())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    closed := 0
    for _, id := range ids {
        a, err := h.Engine.Close(ctx, id)
        if err != nil {
            switch auction.KindOf(err) {
            case auction.KindInvalidState:
                // Settled by a concurrent close between the listing
                // and the lock.
                continue
            case auction.KindDependency:
                if a.ID == 0 {
                    // The closing transaction itself failed; the
                    // auction is still active. Publishing here would
                    // announce a close that never happened.
                    return engineError(c, err)
                }
                // The auction is closed; only the reputation award
                // failed. Keep sweeping.
            default:
                return engineError(c, err)
            }
        }
        publishClosed(c, a, "closed")
        closed++
    }
    return c.JSON(http.StatusOK, echo.Map{
        "expired": len(ids),
        "closed":  closed,
    })
}
