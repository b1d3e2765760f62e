package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/shopspring/decimal"

    "github.com/flagquest/auction-service/internal/auction"
    "github.com/flagquest/auction-service/internal/model"
)

// AuctionRepo provides data access to the auctions and bids tables
// and implements auction.Store. All timestamps are stored and
// compared in UTC. Per-auction mutual exclusion is obtained with
// SELECT ... FOR UPDATE inside the transaction opened by WithTx;
// InnoDB row locks keep writers on different auctions independent.
type AuctionRepo struct {
    db *sql.DB
}

// NewAuctionRepo returns an AuctionRepo bound to the provided database.
func NewAuctionRepo(db *sql.DB) *AuctionRepo { return &AuctionRepo{db: db} }

const auctionColumns = `id, flag_id, seller_id, starting_price, min_price, buyout_price,
       current_highest_bid, highest_bidder_id, winner_category, status, ends_at, created_at`

// WithTx runs fn inside a transaction; all repository calls made with
// the context passed to fn join that transaction.
func (r *AuctionRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    return withTx(ctx, r.db, fn)
}

// GetAuction fetches an auction without locking.
func (r *AuctionRepo) GetAuction(ctx context.Context, id uint64) (model.Auction, error) {
    row := pick(ctx, r.db).QueryRowContext(ctx,
        `SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id)
    return scanAuction(row)
}

// GetAuctionForUpdate fetches an auction and holds its row lock until
// the surrounding transaction commits or rolls back. Must run inside
// WithTx; calling it outside a transaction would lock nothing.
func (r *AuctionRepo) GetAuctionForUpdate(ctx context.Context, id uint64) (model.Auction, error) {
    row := pick(ctx, r.db).QueryRowContext(ctx,
        `SELECT `+auctionColumns+` FROM auctions WHERE id = ? FOR UPDATE`, id)
    return scanAuction(row)
}

// LockFlag takes an exclusive lock on the flag's row until the
// surrounding transaction ends. Creation has no auction row to lock,
// so this is the mutual-exclusion scope for concurrent creates on
// the same flag: a plain read inside the transaction would let two
// creators both see no ACTIVE auction and both insert one.
func (r *AuctionRepo) LockFlag(ctx context.Context, flagID uint64) error {
    var id uint64
    err := pick(ctx, r.db).QueryRowContext(ctx,
        `SELECT id FROM flags WHERE id = ? FOR UPDATE`, flagID).Scan(&id)
    if err == sql.ErrNoRows {
        return auction.ErrFlagNotFound
    }
    return err
}

// FindActiveAuctionByFlag returns the active auction for a flag, or
// nil when none exists. At most one row can match: creators hold the
// flag row lock while they check this lookup and insert.
func (r *AuctionRepo) FindActiveAuctionByFlag(ctx context.Context, flagID uint64) (*model.Auction, error) {
    row := pick(ctx, r.db).QueryRowContext(ctx,
        `SELECT `+auctionColumns+` FROM auctions WHERE flag_id = ? AND status = ? LIMIT 1`,
        flagID, model.AuctionActive)
    a, err := scanAuction(row)
    if err != nil {
        if err == auction.ErrAuctionNotFound {
            return nil, nil
        }
        return nil, err
    }
    return &a, nil
}

// CreateAuction inserts an auction and returns its generated id.
func (r *AuctionRepo) CreateAuction(ctx context.Context, a model.Auction) (uint64, error) {
    res, err := pick(ctx, r.db).ExecContext(ctx,
        `INSERT INTO auctions
            (flag_id, seller_id, starting_price, min_price, buyout_price, status, ends_at, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
        a.FlagID, a.SellerID, a.StartingPrice, a.MinPrice, nullDecimal(a.BuyoutPrice),
        a.Status, a.EndsAt.UTC(), a.CreatedAt.UTC())
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// UpdateAuction writes the mutable summary fields of an auction:
// status, the cached highest bid, and the winner category. Everything
// else is immutable after creation and deliberately not touched here.
func (r *AuctionRepo) UpdateAuction(ctx context.Context, a model.Auction) error {
    _, err := pick(ctx, r.db).ExecContext(ctx,
        `UPDATE auctions
            SET status = ?, current_highest_bid = ?, highest_bidder_id = ?, winner_category = ?
          WHERE id = ?`,
        a.Status, nullDecimal(a.CurrentHighestBid), nullUint(a.HighestBidderID),
        nullCategory(a.WinnerCategory), a.ID)
    return err
}

// AppendBid inserts a bid row and returns its generated id. Bids are
// append-only; no update or delete statement exists for the table.
func (r *AuctionRepo) AppendBid(ctx context.Context, b model.Bid) (uint64, error) {
    res, err := pick(ctx, r.db).ExecContext(ctx,
        `INSERT INTO bids (auction_id, bidder_id, amount, bidder_category, created_at)
         VALUES (?, ?, ?, ?, ?)`,
        b.AuctionID, b.BidderID, b.Amount, b.BidderCategory, b.CreatedAt.UTC())
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// ListBids returns all bids for an auction in submission order.
func (r *AuctionRepo) ListBids(ctx context.Context, auctionID uint64) ([]model.Bid, error) {
    rows, err := pick(ctx, r.db).QueryContext(ctx,
        `SELECT id, auction_id, bidder_id, amount, bidder_category, created_at
           FROM bids WHERE auction_id = ? ORDER BY created_at ASC, id ASC`,
        auctionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var bids []model.Bid
    for rows.Next() {
        var b model.Bid
        if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.BidderCategory, &b.CreatedAt); err != nil {
            return nil, err
        }
        bids = append(bids, b)
    }
    return bids, rows.Err()
}

// ListAuctions returns auctions ordered by deadline. activeOnly
// restricts to ACTIVE auctions; flagID 0 means all flags.
func (r *AuctionRepo) ListAuctions(ctx context.Context, activeOnly bool, flagID uint64) ([]model.Auction, error) {
    query := `SELECT ` + auctionColumns + ` FROM auctions`
    var (
        conds []string
        args  []any
    )
    if activeOnly {
        conds = append(conds, "status = ?")
        args = append(args, model.AuctionActive)
    }
    if flagID != 0 {
        conds = append(conds, "flag_id = ?")
        args = append(args, flagID)
    }
    for i, c := range conds {
        if i == 0 {
            query += " WHERE " + c
        } else {
            query += " AND " + c
        }
    }
    query += " ORDER BY ends_at ASC"

    rows, err := pick(ctx, r.db).QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var auctions []model.Auction
    for rows.Next() {
        a, err := scanAuctionRows(rows)
        if err != nil {
            return nil, err
        }
        auctions = append(auctions, a)
    }
    return auctions, rows.Err()
}

// ListExpiredActiveIDs returns the ids of ACTIVE auctions whose
// deadline is at or before now. Used by the admin sweep; the actual
// closing still goes through the engine so winner determination and
// locking stay in one place.
func (r *AuctionRepo) ListExpiredActiveIDs(ctx context.Context, now time.Time) ([]uint64, error) {
    rows, err := pick(ctx, r.db).QueryContext(ctx,
        `SELECT id FROM auctions WHERE status = ? AND ends_at <= ?`,
        model.AuctionActive, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// CountByStatus returns the number of auctions in the given status.
func (r *AuctionRepo) CountByStatus(ctx context.Context, status model.AuctionStatus) (int, error) {
    var n int
    err := pick(ctx, r.db).QueryRowContext(ctx,
        `SELECT COUNT(*) FROM auctions WHERE status = ?`, status).Scan(&n)
    return n, err
}

// CountBids returns the total number of bids across all auctions.
func (r *AuctionRepo) CountBids(ctx context.Context) (int, error) {
    var n int
    err := pick(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM bids`).Scan(&n)
    return n, err
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanAuction(row *sql.Row) (model.Auction, error) {
    a, err := scanAuctionRows(row)
    if err == sql.ErrNoRows {
        return model.Auction{}, auction.ErrAuctionNotFound
    }
    return a, err
}

func scanAuctionRows(s rowScanner) (model.Auction, error) {
    var (
        a        model.Auction
        buyout   decimal.NullDecimal
        highest  decimal.NullDecimal
        bidderID sql.NullInt64
        category sql.NullString
    )
    err := s.Scan(&a.ID, &a.FlagID, &a.SellerID, &a.StartingPrice, &a.MinPrice, &buyout,
        &highest, &bidderID, &category, &a.Status, &a.EndsAt, &a.CreatedAt)
    if err != nil {
        return model.Auction{}, err
    }
    if buyout.Valid {
        a.BuyoutPrice = &buyout.Decimal
    }
    if highest.Valid {
        a.CurrentHighestBid = &highest.Decimal
    }
    if bidderID.Valid {
        id := uint64(bidderID.Int64)
        a.HighestBidderID = &id
    }
    if category.Valid {
        c := model.FlagCategory(category.String)
        a.WinnerCategory = &c
    }
    return a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
    if d == nil {
        return decimal.NullDecimal{}
    }
    return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullUint(v *uint64) sql.NullInt64 {
    if v == nil {
        return sql.NullInt64{}
    }
    return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullCategory(c *model.FlagCategory) sql.NullString {
    if c == nil {
        return sql.NullString{}
    }
    return sql.NullString{String: string(*c), Valid: true}
}
