package handler

import (
    "context"
    "net/http"
    "sort"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/flagquest/auction-service/internal/auction"
    "github.com/flagquest/auction-service/internal/model"
    "github.com/flagquest/auction-service/internal/queue"
    queue_publisher "github.com/flagquest/auction-service/internal/service"
)

// FlagGetter resolves flag metadata for auction detail responses.
// *repository.FlagRepo satisfies it.
type FlagGetter interface {
    GetByID(ctx context.Context, id uint64) (model.Flag, error)
}

// AuctionHandler exposes the auction engine over HTTP. All business
// rules live in the engine; this layer binds JSON, resolves the
// authenticated user, maps failure kinds to status codes and emits
// best-effort events to the broker.
type AuctionHandler struct {
    Engine *auction.Engine
    Flags  FlagGetter
}

// NewAuctionHandler constructs an AuctionHandler.
func NewAuctionHandler(engine *auction.Engine, flags FlagGetter) *AuctionHandler {
    if engine == nil || flags == nil {
        panic("nil dependency passed to NewAuctionHandler")
    }
    return &AuctionHandler{Engine: engine, Flags: flags}
}

// ----- DTOs -----

type auctionResp struct {
    ID                uint64              `json:"id"`
    FlagID            uint64              `json:"flag_id"`
    SellerID          uint64              `json:"seller_id"`
    StartingPrice     decimal.Decimal     `json:"starting_price"`
    MinPrice          decimal.Decimal     `json:"min_price"`
    BuyoutPrice       *decimal.Decimal    `json:"buyout_price,omitempty"`
    CurrentHighestBid *decimal.Decimal    `json:"current_highest_bid,omitempty"`
    HighestBidderID   *uint64             `json:"highest_bidder_id,omitempty"`
    WinnerCategory    *model.FlagCategory `json:"winner_category,omitempty"`
    Status            model.AuctionStatus `json:"status"`
    EndsAt            time.Time           `json:"ends_at"`
    CreatedAt         time.Time           `json:"created_at"`
}

type bidResp struct {
    ID             uint64             `json:"id"`
    AuctionID      uint64             `json:"auction_id"`
    BidderID       uint64             `json:"bidder_id"`
    Amount         decimal.Decimal    `json:"amount"`
    BidderCategory model.FlagCategory `json:"bidder_category"`
    CreatedAt      time.Time          `json:"created_at"`
}

type flagResp struct {
    ID             uint64             `json:"id"`
    MunicipalityID uint64             `json:"municipality_id"`
    Name           string             `json:"name"`
    Category       model.FlagCategory `json:"category"`
    TokenID        *uint64            `json:"token_id,omitempty"`
    ImageIPFSHash  *string            `json:"image_ipfs_hash,omitempty"`
}

type auctionDetailResp struct {
    auctionResp
    Flag     *flagResp `json:"flag,omitempty"`
    BidCount int       `json:"bid_count"`
    Bids     []bidResp `json:"bids"`
}

func toAuctionResp(a model.Auction) auctionResp {
    return auctionResp{
        ID:                a.ID,
        FlagID:            a.FlagID,
        SellerID:          a.SellerID,
        StartingPrice:     a.StartingPrice,
        MinPrice:          a.MinPrice,
        BuyoutPrice:       a.BuyoutPrice,
        CurrentHighestBid: a.CurrentHighestBid,
        HighestBidderID:   a.HighestBidderID,
        WinnerCategory:    a.WinnerCategory,
        Status:            a.Status,
        EndsAt:            a.EndsAt,
        CreatedAt:         a.CreatedAt,
    }
}

func toBidResp(b model.Bid) bidResp {
    return bidResp{
        ID:             b.ID,
        AuctionID:      b.AuctionID,
        BidderID:       b.BidderID,
        Amount:         b.Amount,
        BidderCategory: b.BidderCategory,
        CreatedAt:      b.CreatedAt,
    }
}

// engineError maps an engine failure kind to the HTTP response the
// original API contract promises: NotFound→404, Forbidden→403,
// Conflict→409, InvalidArgument/InvalidState→400, dependency→502.
func engineError(c echo.Context, err error) error {
    msg := echo.Map{"error": err.Error()}
    switch auction.KindOf(err) {
    case auction.KindNotFound:
        return c.JSON(http.StatusNotFound, msg)
    case auction.KindForbidden:
        return c.JSON(http.StatusForbidden, msg)
    case auction.KindConflict:
        return c.JSON(http.StatusConflict, msg)
    case auction.KindInvalidArgument, auction.KindInvalidState:
        return c.JSON(http.StatusBadRequest, msg)
    default:
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "dependency failure"})
    }
}

// List handles GET /v1/auctions. Query parameters: active_only
// (default true) and flag_id (optional). Results are ordered by
// deadline, soonest first.
func (h *AuctionHandler) List(c echo.Context) error {
    activeOnly := true
    if v := c.QueryParam("active_only"); v != "" {
        b, err := strconv.ParseBool(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid active_only"})
        }
        activeOnly = b
    }
    var flagID uint64
    if v := c.QueryParam("flag_id"); v != "" {
        n, err := strconv.ParseUint(v, 10, 64)
        if err != nil || n == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flag_id"})
        }
        flagID = n
    }

    auctions, err := h.Engine.List(c.Request().Context(), activeOnly, flagID)
    if err != nil {
        return engineError(c, err)
    }
    out := make([]auctionResp, 0, len(auctions))
    for _, a := range auctions {
        out = append(out, toAuctionResp(a))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/auctions/:id and returns the auction with its
// flag metadata and full bid history, newest bid first.
func (h *AuctionHandler) Get(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    a, bids, err := h.Engine.Get(c.Request().Context(), id)
    if err != nil {
        return engineError(c, err)
    }
    sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
    out := auctionDetailResp{
        auctionResp: toAuctionResp(a),
        BidCount:    len(bids),
        Bids:        make([]bidResp, 0, len(bids)),
    }
    for _, b := range bids {
        out.Bids = append(out.Bids, toBidResp(b))
    }
    // Flag metadata is decoration on the detail view. A flag deleted
    // after its auction closed is not an error worth failing the
    // lookup over, so the field is simply omitted.
    if f, ferr := h.Flags.GetByID(c.Request().Context(), a.FlagID); ferr == nil {
        out.Flag = &flagResp{
            ID:             f.ID,
            MunicipalityID: f.MunicipalityID,
            Name:           f.Name,
            Category:       f.Category,
            TokenID:        f.TokenID,
            ImageIPFSHash:  f.ImageIPFSHash,
        }
    }
    return c.JSON(http.StatusOK, out)
}

type createAuctionReq struct {
    FlagID        uint64           `json:"flag_id"`
    StartingPrice decimal.Decimal  `json:"starting_price"`
    MinPrice      *decimal.Decimal `json:"min_price"`
    BuyoutPrice   *decimal.Decimal `json:"buyout_price"`
    DurationHours int              `json:"duration_hours"`
}

// Create handles POST /v1/auctions. The seller is the authenticated
// user and must own the flag.
func (h *AuctionHandler) Create(c echo.Context) error {
    sellerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createAuctionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if req.FlagID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "flag_id is required"})
    }

    a, err := h.Engine.CreateAuction(c.Request().Context(), auction.CreateAuctionInput{
        FlagID:        req.FlagID,
        SellerID:      sellerID,
        StartingPrice: req.StartingPrice,
        MinPrice:      req.MinPrice,
        BuyoutPrice:   req.BuyoutPrice,
        Duration:      time.Duration(req.DurationHours) * time.Hour,
    })
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, toAuctionResp(a))
}

type placeBidReq struct {
    Amount         decimal.Decimal    `json:"amount"`
    BidderCategory model.FlagCategory `json:"bidder_category"`
}

// Bid handles POST /v1/auctions/:id/bid. The bidder is the
// authenticated user; bidder_category defaults to standard.
func (h *AuctionHandler) Bid(c echo.Context) error {
    bidderID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    var req placeBidReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    bid, err := h.Engine.PlaceBid(c.Request().Context(), auction.PlaceBidInput{
        AuctionID:      id,
        BidderID:       bidderID,
        Amount:         req.Amount,
        BidderCategory: req.BidderCategory,
    })
    if err != nil {
        return engineError(c, err)
    }

    // Best effort; bidding never fails because the broker is down.
    _ = queue_publisher.PublishBidPlaced(c.Request().Context(), queue.BidPlacedEvent{
        BidID:     bid.ID,
        AuctionID: bid.AuctionID,
        BidderID:  bid.BidderID,
        Amount:    bid.Amount.String(),
        Category:  string(bid.BidderCategory),
        PlacedAt:  bid.CreatedAt.Format(time.RFC3339),
    })
    return c.JSON(http.StatusCreated, toBidResp(bid))
}

// Buyout handles POST /v1/auctions/:id/buyout: instant settlement at
// the buyout price, bypassing the bid list entirely.
func (h *AuctionHandler) Buyout(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }

    a, err := h.Engine.Buyout(c.Request().Context(), id, buyerID)
    if err != nil {
        return engineError(c, err)
    }
    publishClosed(c, a, "buyout")
    return c.JSON(http.StatusOK, toAuctionResp(a))
}

// Close handles POST /v1/auctions/:id/close. Anyone may close an
// auction whose deadline has passed; the winner is determined over
// the full bid list.
func (h *AuctionHandler) Close(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    a, err := h.Engine.Close(c.Request().Context(), id)
    if err != nil {
        return engineError(c, err)
    }
    publishClosed(c, a, "closed")
    return c.JSON(http.StatusOK, toAuctionResp(a))
}

// Cancel handles POST /v1/auctions/:id/cancel. Only the seller may
// cancel, and only while the auction has no bids.
func (h *AuctionHandler) Cancel(c echo.Context) error {
    requesterID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := parseID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    a, err := h.Engine.Cancel(c.Request().Context(), id, requesterID)
    if err != nil {
        return engineError(c, err)
    }
    publishClosed(c, a, "cancelled")
    return c.JSON(http.StatusOK, echo.Map{"message": "auction cancelled successfully"})
}

func publishClosed(c echo.Context, a model.Auction, outcome string) {
    ev := queue.AuctionClosedEvent{
        AuctionID: a.ID,
        FlagID:    a.FlagID,
        SellerID:  a.SellerID,
        Outcome:   outcome,
        ClosedAt:  time.Now().UTC().Format(time.RFC3339),
    }
    if a.HighestBidderID != nil {
        ev.WinnerID = *a.HighestBidderID
    }
    if a.CurrentHighestBid != nil {
        ev.FinalPrice = a.CurrentHighestBid.String()
    }
    if a.WinnerCategory != nil {
        ev.WinnerCategory = string(*a.WinnerCategory)
    }
    _ = queue_publisher.PublishAuctionClosed(c.Request().Context(), ev)
}
