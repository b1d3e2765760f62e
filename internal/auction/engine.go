package auction

import (
    "context"
    "time"

    "github.com/shopspring/decimal"

    "github.com/flagquest/auction-service/internal/model"
)

// Store is the persistence surface the engine requires for auctions
// and bids, the only records it owns. WithTx must run fn inside a
// transaction; GetAuctionForUpdate must lock the auction row for the
// remainder of that transaction so concurrent writers on the same
// auction serialize. Operations on different auctions never contend.
type Store interface {
    // WithTx runs fn inside a transaction. The ctx passed to fn
    // carries the transaction; all Store calls made with it execute
    // within that transaction and commit or roll back together.
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
    // GetAuction returns an auction without locking it. Implementations
    // return ErrAuctionNotFound when the row does not exist.
    GetAuction(ctx context.Context, id uint64) (model.Auction, error)
    // GetAuctionForUpdate returns an auction and holds an exclusive
    // lock on its row until the surrounding transaction finishes.
    // Must be called inside WithTx.
    GetAuctionForUpdate(ctx context.Context, id uint64) (model.Auction, error)
    // LockFlag holds an exclusive lock on the flag's row until the
    // surrounding transaction finishes. Creation has no auction row
    // to lock yet, so the flag row is the per-item exclusion scope:
    // two concurrent creates for the same flag serialize here, and
    // the second one then sees the first one's committed auction.
    // Returns ErrFlagNotFound when the flag does not exist. Must be
    // called inside WithTx.
    LockFlag(ctx context.Context, flagID uint64) error
    // FindActiveAuctionByFlag returns the active auction for a flag,
    // or nil when there is none.
    FindActiveAuctionByFlag(ctx context.Context, flagID uint64) (*model.Auction, error)
    CreateAuction(ctx context.Context, a model.Auction) (uint64, error)
    UpdateAuction(ctx context.Context, a model.Auction) error
    // AppendBid inserts a bid. Bids are append-only; there is no
    // update or delete.
    AppendBid(ctx context.Context, b model.Bid) (uint64, error)
    ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error)
    ListAuctions(ctx context.Context, activeOnly bool, flagID uint64) ([]model.Auction, error)
}

// OwnershipStore answers existence and ownership questions about the
// records the engine does not own. Consulted only at auction
// creation.
type OwnershipStore interface {
    FlagExists(ctx context.Context, flagID uint64) (bool, error)
    UserExists(ctx context.Context, userID uint64) (bool, error)
    Owns(ctx context.Context, userID, flagID uint64) (bool, error)
}

// ReputationLedger records score awarded to participants on
// settlement. Awards are best-effort: the auction's own state
// transition is committed before the ledger is touched, and a ledger
// failure never rolls the transition back.
type ReputationLedger interface {
    AddScore(ctx context.Context, userID uint64, delta int) error
}

// Config carries the engine's tunable knobs. Zero values fall back to
// the defaults below, so a zero Config is usable.
type Config struct {
    MinDuration time.Duration // shortest allowed auction duration
    MaxDuration time.Duration // longest allowed auction duration
    BuyoutBonus int           // reputation awarded to a buyout buyer
    WinnerBonus int           // reputation awarded to a close winner
}

const (
    defaultMinDuration = time.Hour
    defaultMaxDuration = 7 * 24 * time.Hour
    defaultBuyoutBonus = 20
    defaultWinnerBonus = 15
)

func (c Config) withDefaults() Config {
    if c.MinDuration <= 0 {
        c.MinDuration = defaultMinDuration
    }
    if c.MaxDuration <= 0 {
        c.MaxDuration = defaultMaxDuration
    }
    if c.BuyoutBonus == 0 {
        c.BuyoutBonus = defaultBuyoutBonus
    }
    if c.WinnerBonus == 0 {
        c.WinnerBonus = defaultWinnerBonus
    }
    return c
}

// Engine owns the lifecycle of auctions: creation, bid placement,
// buyout, closing with winner determination, and cancellation. All
// mutating operations serialize per auction through the Store's
// row lock; operations on different auctions proceed in parallel.
type Engine struct {
    store  Store
    owners OwnershipStore
    ledger ReputationLedger
    clock  Clock
    cfg    Config
}

// NewEngine constructs an Engine. A nil clock defaults to the system
// clock; zero Config fields default per Config.
func NewEngine(store Store, owners OwnershipStore, ledger ReputationLedger, clk Clock, cfg Config) *Engine {
    if store == nil || owners == nil || ledger == nil {
        panic("nil dependency passed to NewEngine")
    }
    if clk == nil {
        clk = SystemClock()
    }
    return &Engine{store: store, owners: owners, ledger: ledger, clock: clk, cfg: cfg.withDefaults()}
}

// CreateAuctionInput carries the caller-supplied values for
// CreateAuction. MinPrice defaults to StartingPrice when nil.
type CreateAuctionInput struct {
    FlagID        uint64
    SellerID      uint64
    StartingPrice decimal.Decimal
    MinPrice      *decimal.Decimal
    BuyoutPrice   *decimal.Decimal
    Duration      time.Duration
}

// CreateAuction opens a new auction for a flag the seller owns. At
// most one active auction may exist per flag; a duplicate attempt
// fails with ErrActiveAuctionExists. Concurrent creates for the same
// flag serialize on the flag's row lock, so the duplicate check and
// the insert are atomic with respect to other creators.
func (e *Engine) CreateAuction(ctx context.Context, in CreateAuctionInput) (model.Auction, error) {
    if !in.StartingPrice.IsPositive() {
        return model.Auction{}, ErrInvalidStartingPrice
    }
    minPrice := in.StartingPrice
    if in.MinPrice != nil {
        if !in.MinPrice.IsPositive() {
            return model.Auction{}, ErrInvalidMinPrice
        }
        minPrice = *in.MinPrice
    }
    if in.BuyoutPrice != nil && in.BuyoutPrice.Cmp(in.StartingPrice) <= 0 {
        return model.Auction{}, ErrInvalidBuyoutPrice
    }
    if in.Duration < e.cfg.MinDuration || in.Duration > e.cfg.MaxDuration {
        return model.Auction{}, ErrInvalidDuration
    }

    if ok, err := e.owners.FlagExists(ctx, in.FlagID); err != nil {
        return model.Auction{}, dependency("ownership lookup", err)
    } else if !ok {
        return model.Auction{}, ErrFlagNotFound
    }
    if ok, err := e.owners.UserExists(ctx, in.SellerID); err != nil {
        return model.Auction{}, dependency("ownership lookup", err)
    } else if !ok {
        return model.Auction{}, ErrUserNotFound
    }
    if ok, err := e.owners.Owns(ctx, in.SellerID, in.FlagID); err != nil {
        return model.Auction{}, dependency("ownership lookup", err)
    } else if !ok {
        return model.Auction{}, ErrNotOwner
    }

    now := e.clock.Now()
    created := model.Auction{
        FlagID:        in.FlagID,
        SellerID:      in.SellerID,
        StartingPrice: in.StartingPrice,
        MinPrice:      minPrice,
        BuyoutPrice:   in.BuyoutPrice,
        Status:        model.AuctionActive,
        EndsAt:        now.Add(in.Duration),
        CreatedAt:     now,
    }
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        if err := e.store.LockFlag(ctx, in.FlagID); err != nil {
            if KindOf(err) == KindNotFound {
                return ErrFlagNotFound
            }
            return dependency("flag lock", err)
        }
        existing, err := e.store.FindActiveAuctionByFlag(ctx, in.FlagID)
        if err != nil {
            return dependency("auction lookup", err)
        }
        if existing != nil {
            return ErrActiveAuctionExists
        }
        id, err := e.store.CreateAuction(ctx, created)
        if err != nil {
            return dependency("auction insert", err)
        }
        created.ID = id
        return nil
    })
    if err != nil {
        return model.Auction{}, err
    }
    return created, nil
}

// PlaceBidInput carries the caller-supplied values for PlaceBid. An
// empty BidderCategory defaults to Standard, matching the category a
// new player starts with.
type PlaceBidInput struct {
    AuctionID      uint64
    BidderID       uint64
    Amount         decimal.Decimal
    BidderCategory model.FlagCategory
}

// PlaceBid appends a bid to an active auction and atomically updates
// the cached highest bid. The read-validate-write sequence runs under
// the auction's row lock, so two concurrent bids can never both
// observe the same stale highest bid and both be accepted.
func (e *Engine) PlaceBid(ctx context.Context, in PlaceBidInput) (model.Bid, error) {
    category := in.BidderCategory
    if category == "" {
        category = model.CategoryStandard
    }
    if !category.Valid() {
        return model.Bid{}, ErrInvalidCategory
    }

    var bid model.Bid
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        a, err := e.lockAuction(ctx, in.AuctionID)
        if err != nil {
            return err
        }
        now := e.clock.Now()
        if a.Status != model.AuctionActive {
            return ErrAuctionNotActive
        }
        if now.After(a.EndsAt) {
            return ErrAuctionEnded
        }
        if in.BidderID == a.SellerID {
            return ErrSelfBid
        }
        if in.Amount.Cmp(a.MinPrice) < 0 {
            return ErrBidBelowMinimum
        }
        if in.Amount.Cmp(a.StartingPrice) < 0 {
            return ErrBidBelowStarting
        }
        if a.CurrentHighestBid != nil && in.Amount.Cmp(*a.CurrentHighestBid) <= 0 {
            return ErrBidNotAboveHighest
        }

        bid = model.Bid{
            AuctionID:      a.ID,
            BidderID:       in.BidderID,
            Amount:         in.Amount,
            BidderCategory: category,
            CreatedAt:      now,
        }
        id, err := e.store.AppendBid(ctx, bid)
        if err != nil {
            return dependency("bid insert", err)
        }
        bid.ID = id

        amount := in.Amount
        a.CurrentHighestBid = &amount
        a.HighestBidderID = &in.BidderID
        if err := e.store.UpdateAuction(ctx, a); err != nil {
            return dependency("auction update", err)
        }
        return nil
    })
    if err != nil {
        return model.Bid{}, err
    }
    return bid, nil
}

// Buyout closes an active auction instantly at its buyout price. The
// bid list and the winner-determination algorithm are bypassed
// entirely; the buyout is authoritative and final. The reputation
// bonus is awarded after the closure has committed, so a ledger
// failure surfaces as a KindDependency error but the auction stays
// closed.
func (e *Engine) Buyout(ctx context.Context, auctionID, buyerID uint64) (model.Auction, error) {
    var closed model.Auction
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        a, err := e.lockAuction(ctx, auctionID)
        if err != nil {
            return err
        }
        if a.Status != model.AuctionActive {
            return ErrAuctionNotActive
        }
        if a.BuyoutPrice == nil {
            return ErrNoBuyoutPrice
        }
        if e.clock.Now().After(a.EndsAt) {
            return ErrAuctionEnded
        }
        if buyerID == a.SellerID {
            return ErrSelfBuyout
        }

        price := *a.BuyoutPrice
        a.Status = model.AuctionClosed
        a.CurrentHighestBid = &price
        a.HighestBidderID = &buyerID
        if err := e.store.UpdateAuction(ctx, a); err != nil {
            return dependency("auction update", err)
        }
        closed = a
        return nil
    })
    if err != nil {
        return model.Auction{}, err
    }
    // Closure is durable at this point; the award must not undo it.
    if err := e.ledger.AddScore(ctx, buyerID, e.cfg.BuyoutBonus); err != nil {
        return closed, dependency("reputation award", err)
    }
    return closed, nil
}

// Close settles an auction whose deadline has passed. Callable by any
// actor. The winner is chosen over the full accumulated bid list, not
// the cached highest-bid fields; with no bids the auction closes with
// no winner and no reputation effect. A second Close attempt fails
// with ErrAuctionNotActive and performs no side effect, which is what
// keeps the award exactly-once under concurrent close attempts.
func (e *Engine) Close(ctx context.Context, auctionID uint64) (model.Auction, error) {
    var (
        closed model.Auction
        winner *model.Bid
    )
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        a, err := e.lockAuction(ctx, auctionID)
        if err != nil {
            return err
        }
        if a.Status != model.AuctionActive {
            return ErrAuctionNotActive
        }
        if e.clock.Now().Before(a.EndsAt) {
            return ErrAuctionNotEnded
        }

        bids, err := e.store.ListBids(ctx, a.ID)
        if err != nil {
            return dependency("bid lookup", err)
        }
        winner = DetermineWinner(bids)

        a.Status = model.AuctionClosed
        if winner != nil {
            amount := winner.Amount
            category := winner.BidderCategory
            a.CurrentHighestBid = &amount
            a.HighestBidderID = &winner.BidderID
            a.WinnerCategory = &category
        }
        if err := e.store.UpdateAuction(ctx, a); err != nil {
            return dependency("auction update", err)
        }
        closed = a
        return nil
    })
    if err != nil {
        return model.Auction{}, err
    }
    if winner != nil {
        if err := e.ledger.AddScore(ctx, winner.BidderID, e.cfg.WinnerBonus); err != nil {
            return closed, dependency("reputation award", err)
        }
    }
    return closed, nil
}

// Cancel withdraws an active auction. Only the seller may cancel, and
// only while no bid has been accepted.
func (e *Engine) Cancel(ctx context.Context, auctionID, requesterID uint64) (model.Auction, error) {
    var cancelled model.Auction
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        a, err := e.lockAuction(ctx, auctionID)
        if err != nil {
            return err
        }
        if requesterID != a.SellerID {
            return ErrNotSeller
        }
        if a.Status != model.AuctionActive {
            return ErrAuctionNotActive
        }
        if a.CurrentHighestBid != nil {
            return ErrAuctionHasBids
        }
        a.Status = model.AuctionCancelled
        if err := e.store.UpdateAuction(ctx, a); err != nil {
            return dependency("auction update", err)
        }
        cancelled = a
        return nil
    })
    if err != nil {
        return model.Auction{}, err
    }
    return cancelled, nil
}

// Get returns an auction together with its full bid history.
func (e *Engine) Get(ctx context.Context, auctionID uint64) (model.Auction, []model.Bid, error) {
    a, err := e.store.GetAuction(ctx, auctionID)
    if err != nil {
        if KindOf(err) == KindNotFound {
            return model.Auction{}, nil, err
        }
        return model.Auction{}, nil, dependency("auction lookup", err)
    }
    bids, err := e.store.ListBids(ctx, auctionID)
    if err != nil {
        return model.Auction{}, nil, dependency("bid lookup", err)
    }
    return a, bids, nil
}

// List returns auctions ordered by deadline, optionally restricted to
// active ones or to a single flag (flagID 0 means all flags).
func (e *Engine) List(ctx context.Context, activeOnly bool, flagID uint64) ([]model.Auction, error) {
    auctions, err := e.store.ListAuctions(ctx, activeOnly, flagID)
    if err != nil {
        return nil, dependency("auction lookup", err)
    }
    return auctions, nil
}

// lockAuction fetches the auction under its row lock, normalizing a
// missing row to ErrAuctionNotFound and anything else to a dependency
// failure.
func (e *Engine) lockAuction(ctx context.Context, id uint64) (model.Auction, error) {
    a, err := e.store.GetAuctionForUpdate(ctx, id)
    if err != nil {
        if KindOf(err) == KindNotFound {
            return model.Auction{}, ErrAuctionNotFound
        }
        return model.Auction{}, dependency("auction lookup", err)
    }
    return a, nil
}
