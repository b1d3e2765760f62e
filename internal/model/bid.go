package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Bid is an append-only record attached to an auction, stored in the
// `bids` table. Bids are never mutated or deleted. BidderCategory is
// a snapshot of the bidder's category at submission time; a bidder's
// category may change between bids, and the snapshot is what the
// tie-break algorithm consults at close.
//
// Fields:
//  ID             – primary key identifier.
//  AuctionID      – auction this bid belongs to.
//  BidderID       – user who placed the bid.
//  Amount         – bid amount; strictly greater than the previous
//                   highest bid when one existed.
//  BidderCategory – category snapshot taken when the bid was placed.
//  CreatedAt      – submission timestamp; the per-auction ordering key.
type Bid struct {
    ID             uint64          // bids.id
    AuctionID      uint64          // bids.auction_id
    BidderID       uint64          // bids.bidder_id
    Amount         decimal.Decimal // bids.amount
    BidderCategory FlagCategory    // bids.bidder_category
    CreatedAt      time.Time       // bids.created_at
}
