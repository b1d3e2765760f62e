package auction

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/shopspring/decimal"

    "github.com/flagquest/auction-service/internal/model"
)

func dec(s string) decimal.Decimal {
    d, err := decimal.NewFromString(s)
    if err != nil {
        panic(err)
    }
    return d
}

func decPtr(s string) *decimal.Decimal {
    d := dec(s)
    return &d
}

// fakeStore is an in-memory Store with transactional rollback: WithTx
// snapshots the state and restores it when fn fails, mirroring what
// the MySQL repository does with a real transaction.
type fakeStore struct {
    auctions  map[uint64]model.Auction
    bids      []model.Bid
    nextID    uint64
    nextBidID uint64

    updateErr error
    appendErr error
    lockErr   error
    calls     []string
}

func newFakeStore(auctions ...model.Auction) *fakeStore {
    s := &fakeStore{auctions: make(map[uint64]model.Auction), nextID: 1, nextBidID: 1}
    for _, a := range auctions {
        s.auctions[a.ID] = a
        if a.ID >= s.nextID {
            s.nextID = a.ID + 1
        }
    }
    return s
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    snapshot := make(map[uint64]model.Auction, len(s.auctions))
    for id, a := range s.auctions {
        snapshot[id] = a
    }
    savedBids := append([]model.Bid(nil), s.bids...)
    if err := fn(ctx); err != nil {
        s.auctions = snapshot
        s.bids = savedBids
        return err
    }
    return nil
}

func (s *fakeStore) GetAuction(ctx context.Context, id uint64) (model.Auction, error) {
    a, ok := s.auctions[id]
    if !ok {
        return model.Auction{}, ErrAuctionNotFound
    }
    return a, nil
}

func (s *fakeStore) GetAuctionForUpdate(ctx context.Context, id uint64) (model.Auction, error) {
    return s.GetAuction(ctx, id)
}

func (s *fakeStore) LockFlag(ctx context.Context, flagID uint64) error {
    s.calls = append(s.calls, "lock flag")
    return s.lockErr
}

func (s *fakeStore) FindActiveAuctionByFlag(ctx context.Context, flagID uint64) (*model.Auction, error) {
    s.calls = append(s.calls, "find active")
    for _, a := range s.auctions {
        if a.FlagID == flagID && a.Status == model.AuctionActive {
            found := a
            return &found, nil
        }
    }
    return nil, nil
}

func (s *fakeStore) CreateAuction(ctx context.Context, a model.Auction) (uint64, error) {
    a.ID = s.nextID
    s.nextID++
    s.auctions[a.ID] = a
    return a.ID, nil
}

func (s *fakeStore) UpdateAuction(ctx context.Context, a model.Auction) error {
    if s.updateErr != nil {
        return s.updateErr
    }
    if _, ok := s.auctions[a.ID]; !ok {
        return ErrAuctionNotFound
    }
    s.auctions[a.ID] = a
    return nil
}

func (s *fakeStore) AppendBid(ctx context.Context, b model.Bid) (uint64, error) {
    if s.appendErr != nil {
        return 0, s.appendErr
    }
    b.ID = s.nextBidID
    s.nextBidID++
    s.bids = append(s.bids, b)
    return b.ID, nil
}

func (s *fakeStore) ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
    var out []model.Bid
    for _, b := range s.bids {
        if b.AuctionID == auctionID {
            out = append(out, b)
        }
    }
    return out, nil
}

func (s *fakeStore) ListAuctions(ctx context.Context, activeOnly bool, flagID uint64) ([]model.Auction, error) {
    var out []model.Auction
    for _, a := range s.auctions {
        if activeOnly && a.Status != model.AuctionActive {
            continue
        }
        if flagID != 0 && a.FlagID != flagID {
            continue
        }
        out = append(out, a)
    }
    return out, nil
}

type fakeOwners struct {
    flags map[uint64]bool
    users map[uint64]bool
    owns  map[[2]uint64]bool
}

func newFakeOwners() *fakeOwners {
    return &fakeOwners{
        flags: make(map[uint64]bool),
        users: make(map[uint64]bool),
        owns:  make(map[[2]uint64]bool),
    }
}

func (o *fakeOwners) give(userID, flagID uint64) {
    o.users[userID] = true
    o.flags[flagID] = true
    o.owns[[2]uint64{userID, flagID}] = true
}

func (o *fakeOwners) FlagExists(ctx context.Context, flagID uint64) (bool, error) {
    return o.flags[flagID], nil
}

func (o *fakeOwners) UserExists(ctx context.Context, userID uint64) (bool, error) {
    return o.users[userID], nil
}

func (o *fakeOwners) Owns(ctx context.Context, userID, flagID uint64) (bool, error) {
    return o.owns[[2]uint64{userID, flagID}], nil
}

type award struct {
    userID uint64
    delta  int
}

type fakeLedger struct {
    awards []award
    err    error
}

func (l *fakeLedger) AddScore(ctx context.Context, userID uint64, delta int) error {
    if l.err != nil {
        return l.err
    }
    l.awards = append(l.awards, award{userID: userID, delta: delta})
    return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeAuction(id, flagID, sellerID uint64) model.Auction {
    return model.Auction{
        ID:            id,
        FlagID:        flagID,
        SellerID:      sellerID,
        StartingPrice: dec("1.0"),
        MinPrice:      dec("1.0"),
        Status:        model.AuctionActive,
        EndsAt:        testNow.Add(24 * time.Hour),
        CreatedAt:     testNow.Add(-time.Hour),
    }
}

func TestEngine_CreateAuction(t *testing.T) {
    t.Parallel()

    makeEngine := func(store *fakeStore) (*Engine, *fakeOwners) {
        owners := newFakeOwners()
        owners.give(1, 10)
        return NewEngine(store, owners, &fakeLedger{}, FixedClock(testNow), Config{}), owners
    }

    valid := func() CreateAuctionInput {
        return CreateAuctionInput{
            FlagID:        10,
            SellerID:      1,
            StartingPrice: dec("1.5"),
            Duration:      24 * time.Hour,
        }
    }

    t.Run("creates auction with defaulted min price", func(t *testing.T) {
        store := newFakeStore()
        eng, _ := makeEngine(store)

        a, err := eng.CreateAuction(context.Background(), valid())
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.ID == 0 {
            t.Fatalf("expected auction ID to be set")
        }
        if a.Status != model.AuctionActive {
            t.Fatalf("expected status ACTIVE, got %s", a.Status)
        }
        if !a.MinPrice.Equal(dec("1.5")) {
            t.Fatalf("expected min price to default to starting price, got %s", a.MinPrice)
        }
        if !a.EndsAt.Equal(testNow.Add(24 * time.Hour)) {
            t.Fatalf("expected ends_at %v, got %v", testNow.Add(24*time.Hour), a.EndsAt)
        }
    })

    t.Run("keeps explicit min price even below starting price", func(t *testing.T) {
        store := newFakeStore()
        eng, _ := makeEngine(store)

        in := valid()
        in.MinPrice = decPtr("0.5")
        a, err := eng.CreateAuction(context.Background(), in)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if !a.MinPrice.Equal(dec("0.5")) {
            t.Fatalf("expected min price 0.5, got %s", a.MinPrice)
        }
    })

    t.Run("rejects non-positive starting price", func(t *testing.T) {
        eng, _ := makeEngine(newFakeStore())
        in := valid()
        in.StartingPrice = dec("0")
        if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrInvalidStartingPrice) {
            t.Fatalf("expected ErrInvalidStartingPrice, got %v", err)
        }
    })

    t.Run("rejects buyout price equal to starting price", func(t *testing.T) {
        eng, _ := makeEngine(newFakeStore())
        in := valid()
        in.BuyoutPrice = decPtr("1.5")
        if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrInvalidBuyoutPrice) {
            t.Fatalf("expected ErrInvalidBuyoutPrice, got %v", err)
        }
    })

    t.Run("rejects duration out of bounds", func(t *testing.T) {
        eng, _ := makeEngine(newFakeStore())
        for _, d := range []time.Duration{30 * time.Minute, 200 * time.Hour} {
            in := valid()
            in.Duration = d
            if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrInvalidDuration) {
                t.Fatalf("duration %v: expected ErrInvalidDuration, got %v", d, err)
            }
        }
    })

    t.Run("rejects unknown flag", func(t *testing.T) {
        eng, _ := makeEngine(newFakeStore())
        in := valid()
        in.FlagID = 99
        if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrFlagNotFound) {
            t.Fatalf("expected ErrFlagNotFound, got %v", err)
        }
    })

    t.Run("rejects unknown seller", func(t *testing.T) {
        eng, owners := makeEngine(newFakeStore())
        owners.flags[11] = true
        in := valid()
        in.FlagID = 11
        in.SellerID = 99
        if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrUserNotFound) {
            t.Fatalf("expected ErrUserNotFound, got %v", err)
        }
    })

    t.Run("rejects seller who does not own the flag", func(t *testing.T) {
        eng, owners := makeEngine(newFakeStore())
        owners.give(2, 20)
        in := valid()
        in.SellerID = 2 // owns flag 20, not flag 10
        if _, err := eng.CreateAuction(context.Background(), in); !errors.Is(err, ErrNotOwner) {
            t.Fatalf("expected ErrNotOwner, got %v", err)
        }
    })

    t.Run("rejects second active auction for the same flag", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng, _ := makeEngine(store)
        _, err := eng.CreateAuction(context.Background(), valid())
        if !errors.Is(err, ErrActiveAuctionExists) {
            t.Fatalf("expected ErrActiveAuctionExists, got %v", err)
        }
        if KindOf(err) != KindConflict {
            t.Fatalf("expected KindConflict, got %v", KindOf(err))
        }
    })

    t.Run("locks the flag row before the duplicate check", func(t *testing.T) {
        store := newFakeStore()
        eng, _ := makeEngine(store)

        if _, err := eng.CreateAuction(context.Background(), valid()); err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        // The flag row lock is the exclusion scope for concurrent
        // creates; a duplicate check before the lock would let two
        // creators both observe no ACTIVE auction.
        if len(store.calls) < 2 || store.calls[0] != "lock flag" || store.calls[1] != "find active" {
            t.Fatalf("expected lock before duplicate check, got call order %v", store.calls)
        }
    })

    t.Run("flag deleted before the lock maps to not found", func(t *testing.T) {
        store := newFakeStore()
        store.lockErr = ErrFlagNotFound
        eng, _ := makeEngine(store)

        if _, err := eng.CreateAuction(context.Background(), valid()); !errors.Is(err, ErrFlagNotFound) {
            t.Fatalf("expected ErrFlagNotFound, got %v", err)
        }
    })

    t.Run("allows a new auction after the previous one ended", func(t *testing.T) {
        prev := activeAuction(1, 10, 1)
        prev.Status = model.AuctionClosed
        store := newFakeStore(prev)
        eng, _ := makeEngine(store)
        if _, err := eng.CreateAuction(context.Background(), valid()); err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
    })
}

func TestEngine_PlaceBid(t *testing.T) {
    t.Parallel()

    makeEngine := func(store *fakeStore) *Engine {
        return NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})
    }

    t.Run("accepts first bid and updates highest bid cache", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng := makeEngine(store)

        bid, err := eng.PlaceBid(context.Background(), PlaceBidInput{
            AuctionID: 1, BidderID: 2, Amount: dec("2.0"), BidderCategory: model.CategoryPlus,
        })
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if bid.ID == 0 {
            t.Fatalf("expected bid ID to be set")
        }
        a := store.auctions[1]
        if a.CurrentHighestBid == nil || !a.CurrentHighestBid.Equal(dec("2.0")) {
            t.Fatalf("expected highest bid 2.0, got %v", a.CurrentHighestBid)
        }
        if a.HighestBidderID == nil || *a.HighestBidderID != 2 {
            t.Fatalf("expected highest bidder 2, got %v", a.HighestBidderID)
        }
    })

    t.Run("empty category defaults to standard", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng := makeEngine(store)
        bid, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("2.0")})
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if bid.BidderCategory != model.CategoryStandard {
            t.Fatalf("expected standard category, got %s", bid.BidderCategory)
        }
    })

    t.Run("rejects unknown category", func(t *testing.T) {
        eng := makeEngine(newFakeStore(activeAuction(1, 10, 1)))
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{
            AuctionID: 1, BidderID: 2, Amount: dec("2.0"), BidderCategory: "platinum",
        })
        if !errors.Is(err, ErrInvalidCategory) {
            t.Fatalf("expected ErrInvalidCategory, got %v", err)
        }
    })

    t.Run("rejects bid below starting price", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.MinPrice = dec("0.4") // below starting, both floors apply
        store := newFakeStore(a)
        eng := makeEngine(store)
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("0.5")})
        if !errors.Is(err, ErrBidBelowStarting) {
            t.Fatalf("expected ErrBidBelowStarting, got %v", err)
        }
    })

    t.Run("rejects bid below minimum price", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.MinPrice = dec("3.0")
        store := newFakeStore(a)
        eng := makeEngine(store)
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("2.0")})
        if !errors.Is(err, ErrBidBelowMinimum) {
            t.Fatalf("expected ErrBidBelowMinimum, got %v", err)
        }
    })

    t.Run("rejects bid equal to the current highest", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.CurrentHighestBid = decPtr("2.0")
        bidder := uint64(2)
        a.HighestBidderID = &bidder
        store := newFakeStore(a)
        eng := makeEngine(store)
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 3, Amount: dec("2.0")})
        if !errors.Is(err, ErrBidNotAboveHighest) {
            t.Fatalf("expected ErrBidNotAboveHighest, got %v", err)
        }
        if len(store.bids) != 0 {
            t.Fatalf("expected no bid recorded, got %d", len(store.bids))
        }
    })

    t.Run("rejects the seller bidding on their own auction", func(t *testing.T) {
        eng := makeEngine(newFakeStore(activeAuction(1, 10, 1)))
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 1, Amount: dec("2.0")})
        if !errors.Is(err, ErrSelfBid) {
            t.Fatalf("expected ErrSelfBid, got %v", err)
        }
    })

    t.Run("rejects bid on an ended auction", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.EndsAt = testNow.Add(-time.Minute)
        eng := makeEngine(newFakeStore(a))
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("2.0")})
        if !errors.Is(err, ErrAuctionEnded) {
            t.Fatalf("expected ErrAuctionEnded, got %v", err)
        }
    })

    t.Run("rejects bid on a cancelled auction", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.Status = model.AuctionCancelled
        eng := makeEngine(newFakeStore(a))
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("2.0")})
        if !errors.Is(err, ErrAuctionNotActive) {
            t.Fatalf("expected ErrAuctionNotActive, got %v", err)
        }
    })

    t.Run("unknown auction maps to not found", func(t *testing.T) {
        eng := makeEngine(newFakeStore())
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 42, BidderID: 2, Amount: dec("2.0")})
        if !errors.Is(err, ErrAuctionNotFound) {
            t.Fatalf("expected ErrAuctionNotFound, got %v", err)
        }
    })

    t.Run("failed cache update rolls the bid back", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        store.updateErr = errors.New("connection reset")
        eng := makeEngine(store)
        _, err := eng.PlaceBid(context.Background(), PlaceBidInput{AuctionID: 1, BidderID: 2, Amount: dec("2.0")})
        if KindOf(err) != KindDependency {
            t.Fatalf("expected KindDependency, got %v", KindOf(err))
        }
        if len(store.bids) != 0 {
            t.Fatalf("expected bid rolled back, got %d bids", len(store.bids))
        }
    })
}

func TestEngine_Buyout(t *testing.T) {
    t.Parallel()

    withBuyout := func() model.Auction {
        a := activeAuction(1, 10, 1)
        a.BuyoutPrice = decPtr("5.0")
        return a
    }

    t.Run("closes instantly at the buyout price and awards the bonus", func(t *testing.T) {
        store := newFakeStore(withBuyout())
        ledger := &fakeLedger{}
        eng := NewEngine(store, newFakeOwners(), ledger, FixedClock(testNow), Config{})

        a, err := eng.Buyout(context.Background(), 1, 2)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.Status != model.AuctionClosed {
            t.Fatalf("expected status CLOSED, got %s", a.Status)
        }
        if a.CurrentHighestBid == nil || !a.CurrentHighestBid.Equal(dec("5.0")) {
            t.Fatalf("expected final price 5.0, got %v", a.CurrentHighestBid)
        }
        if a.HighestBidderID == nil || *a.HighestBidderID != 2 {
            t.Fatalf("expected winner 2, got %v", a.HighestBidderID)
        }
        if len(ledger.awards) != 1 || ledger.awards[0] != (award{userID: 2, delta: 20}) {
            t.Fatalf("expected one +20 award to user 2, got %v", ledger.awards)
        }
    })

    t.Run("buyout is final even with a higher standing bid", func(t *testing.T) {
        a := withBuyout()
        a.CurrentHighestBid = decPtr("6.0") // above buyout, still irrelevant
        bidder := uint64(3)
        a.HighestBidderID = &bidder
        store := newFakeStore(a)
        eng := NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})

        got, err := eng.Buyout(context.Background(), 1, 2)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if got.HighestBidderID == nil || *got.HighestBidderID != 2 {
            t.Fatalf("expected buyer 2 to win, got %v", got.HighestBidderID)
        }
        if !got.CurrentHighestBid.Equal(dec("5.0")) {
            t.Fatalf("expected buyout price 5.0 to be final, got %s", got.CurrentHighestBid)
        }
    })

    t.Run("rejects buyout without a buyout price", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng := NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})
        if _, err := eng.Buyout(context.Background(), 1, 2); !errors.Is(err, ErrNoBuyoutPrice) {
            t.Fatalf("expected ErrNoBuyoutPrice, got %v", err)
        }
    })

    t.Run("rejects the seller buying out their own auction", func(t *testing.T) {
        store := newFakeStore(withBuyout())
        eng := NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})
        if _, err := eng.Buyout(context.Background(), 1, 1); !errors.Is(err, ErrSelfBuyout) {
            t.Fatalf("expected ErrSelfBuyout, got %v", err)
        }
    })

    t.Run("second buyout fails and awards nothing new", func(t *testing.T) {
        store := newFakeStore(withBuyout())
        ledger := &fakeLedger{}
        eng := NewEngine(store, newFakeOwners(), ledger, FixedClock(testNow), Config{})
        if _, err := eng.Buyout(context.Background(), 1, 2); err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if _, err := eng.Buyout(context.Background(), 1, 3); !errors.Is(err, ErrAuctionNotActive) {
            t.Fatalf("expected ErrAuctionNotActive, got %v", err)
        }
        if len(ledger.awards) != 1 {
            t.Fatalf("expected exactly one award, got %d", len(ledger.awards))
        }
    })

    t.Run("ledger failure surfaces but the auction stays closed", func(t *testing.T) {
        store := newFakeStore(withBuyout())
        ledger := &fakeLedger{err: errors.New("ledger down")}
        eng := NewEngine(store, newFakeOwners(), ledger, FixedClock(testNow), Config{})

        a, err := eng.Buyout(context.Background(), 1, 2)
        if KindOf(err) != KindDependency {
            t.Fatalf("expected KindDependency, got %v", err)
        }
        if a.Status != model.AuctionClosed {
            t.Fatalf("expected returned auction CLOSED, got %s", a.Status)
        }
        if got := store.auctions[1]; got.Status != model.AuctionClosed {
            t.Fatalf("expected stored auction CLOSED, got %s", got.Status)
        }
    })
}

func TestEngine_Close(t *testing.T) {
    t.Parallel()

    // Closing happens after the deadline, so the clock sits past EndsAt.
    after := FixedClock(testNow.Add(25 * time.Hour))

    seedBid := func(store *fakeStore, bidderID uint64, amount string, cat model.FlagCategory, at time.Time) {
        store.bids = append(store.bids, model.Bid{
            ID: store.nextBidID, AuctionID: 1, BidderID: bidderID,
            Amount: dec(amount), BidderCategory: cat, CreatedAt: at,
        })
        store.nextBidID++
    }

    t.Run("rejects close before the deadline", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng := NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})
        if _, err := eng.Close(context.Background(), 1); !errors.Is(err, ErrAuctionNotEnded) {
            t.Fatalf("expected ErrAuctionNotEnded, got %v", err)
        }
    })

    t.Run("closes without bids and awards nothing", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        ledger := &fakeLedger{}
        eng := NewEngine(store, newFakeOwners(), ledger, after, Config{})

        a, err := eng.Close(context.Background(), 1)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.Status != model.AuctionClosed {
            t.Fatalf("expected CLOSED, got %s", a.Status)
        }
        if a.HighestBidderID != nil {
            t.Fatalf("expected no winner, got %v", *a.HighestBidderID)
        }
        if len(ledger.awards) != 0 {
            t.Fatalf("expected no awards, got %v", ledger.awards)
        }
    })

    t.Run("settles on the full bid list and awards the winner", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        seedBid(store, 2, "2.0", model.CategoryStandard, testNow)
        seedBid(store, 3, "3.0", model.CategoryPlus, testNow.Add(time.Minute))
        ledger := &fakeLedger{}
        eng := NewEngine(store, newFakeOwners(), ledger, after, Config{})

        a, err := eng.Close(context.Background(), 1)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.HighestBidderID == nil || *a.HighestBidderID != 3 {
            t.Fatalf("expected winner 3, got %v", a.HighestBidderID)
        }
        if !a.CurrentHighestBid.Equal(dec("3.0")) {
            t.Fatalf("expected final price 3.0, got %s", a.CurrentHighestBid)
        }
        if a.WinnerCategory == nil || *a.WinnerCategory != model.CategoryPlus {
            t.Fatalf("expected winner category plus, got %v", a.WinnerCategory)
        }
        if len(ledger.awards) != 1 || ledger.awards[0] != (award{userID: 3, delta: 15}) {
            t.Fatalf("expected one +15 award to user 3, got %v", ledger.awards)
        }
    })

    t.Run("tied amounts settle by category rank", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        seedBid(store, 2, "3.0", model.CategoryStandard, testNow)
        seedBid(store, 3, "3.0", model.CategoryPremium, testNow.Add(time.Minute))
        eng := NewEngine(store, newFakeOwners(), &fakeLedger{}, after, Config{})

        a, err := eng.Close(context.Background(), 1)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.HighestBidderID == nil || *a.HighestBidderID != 3 {
            t.Fatalf("expected premium bidder 3 to win, got %v", a.HighestBidderID)
        }
    })

    t.Run("second close fails and awards nothing new", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        seedBid(store, 2, "2.0", model.CategoryStandard, testNow)
        ledger := &fakeLedger{}
        eng := NewEngine(store, newFakeOwners(), ledger, after, Config{})

        if _, err := eng.Close(context.Background(), 1); err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if _, err := eng.Close(context.Background(), 1); !errors.Is(err, ErrAuctionNotActive) {
            t.Fatalf("expected ErrAuctionNotActive, got %v", err)
        }
        if len(ledger.awards) != 1 {
            t.Fatalf("expected exactly one award, got %d", len(ledger.awards))
        }
    })

    t.Run("ledger failure surfaces but the auction stays closed", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        seedBid(store, 2, "2.0", model.CategoryStandard, testNow)
        ledger := &fakeLedger{err: errors.New("ledger down")}
        eng := NewEngine(store, newFakeOwners(), ledger, after, Config{})

        a, err := eng.Close(context.Background(), 1)
        if KindOf(err) != KindDependency {
            t.Fatalf("expected KindDependency, got %v", err)
        }
        if a.Status != model.AuctionClosed {
            t.Fatalf("expected returned auction CLOSED, got %s", a.Status)
        }
        if got := store.auctions[1]; got.Status != model.AuctionClosed {
            t.Fatalf("expected stored auction CLOSED, got %s", got.Status)
        }
    })
}

func TestEngine_Cancel(t *testing.T) {
    t.Parallel()

    makeEngine := func(store *fakeStore) *Engine {
        return NewEngine(store, newFakeOwners(), &fakeLedger{}, FixedClock(testNow), Config{})
    }

    t.Run("seller cancels an auction without bids", func(t *testing.T) {
        store := newFakeStore(activeAuction(1, 10, 1))
        eng := makeEngine(store)
        a, err := eng.Cancel(context.Background(), 1, 1)
        if err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
        if a.Status != model.AuctionCancelled {
            t.Fatalf("expected CANCELLED, got %s", a.Status)
        }
    })

    t.Run("rejects cancellation by anyone but the seller", func(t *testing.T) {
        eng := makeEngine(newFakeStore(activeAuction(1, 10, 1)))
        if _, err := eng.Cancel(context.Background(), 1, 2); !errors.Is(err, ErrNotSeller) {
            t.Fatalf("expected ErrNotSeller, got %v", err)
        }
    })

    t.Run("non-seller on a closed auction still gets forbidden", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.Status = model.AuctionClosed
        eng := makeEngine(newFakeStore(a))
        // Authority is checked before state so the caller learns
        // nothing about the auction's lifecycle.
        if _, err := eng.Cancel(context.Background(), 1, 2); !errors.Is(err, ErrNotSeller) {
            t.Fatalf("expected ErrNotSeller, got %v", err)
        }
    })

    t.Run("rejects cancellation once a bid exists", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.CurrentHighestBid = decPtr("2.0")
        bidder := uint64(2)
        a.HighestBidderID = &bidder
        eng := makeEngine(newFakeStore(a))
        if _, err := eng.Cancel(context.Background(), 1, 1); !errors.Is(err, ErrAuctionHasBids) {
            t.Fatalf("expected ErrAuctionHasBids, got %v", err)
        }
    })

    t.Run("rejects cancelling a terminal auction", func(t *testing.T) {
        a := activeAuction(1, 10, 1)
        a.Status = model.AuctionCancelled
        eng := makeEngine(newFakeStore(a))
        if _, err := eng.Cancel(context.Background(), 1, 1); !errors.Is(err, ErrAuctionNotActive) {
            t.Fatalf("expected ErrAuctionNotActive, got %v", err)
        }
    })
}
