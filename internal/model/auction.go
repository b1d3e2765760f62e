package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. ACTIVE is the
// only non-terminal state; once an auction is CLOSED or CANCELLED it
// never becomes active again.
type AuctionStatus string

const (
    AuctionActive    AuctionStatus = "ACTIVE"
    AuctionClosed    AuctionStatus = "CLOSED"
    AuctionCancelled AuctionStatus = "CANCELLED"
)

// Terminal reports whether s is a final state.
func (s AuctionStatus) Terminal() bool {
    return s == AuctionClosed || s == AuctionCancelled
}

// Auction represents one sale process for exactly one flag as stored
// in the `auctions` table. CurrentHighestBid and HighestBidderID are
// a denormalized cache over the bid list, updated atomically with
// each accepted bid; the bid rows themselves are append-only.
//
// Fields:
//  ID                – primary key identifier.
//  FlagID            – flag being sold.
//  SellerID          – user who created the auction; owned the flag at
//                      creation time.
//  StartingPrice     – floor below which no bid is admissible.
//  MinPrice          – minimum admissible bid; defaults to the
//                      starting price when not supplied at creation.
//  BuyoutPrice       – optional instant-purchase price (nullable);
//                      strictly greater than the starting price.
//  CurrentHighestBid – best live bid seen so far (nullable).
//  HighestBidderID   – bidder holding the best live bid (nullable).
//  WinnerCategory    – category of the winning bid, set at close
//                      (nullable).
//  Status            – lifecycle state.
//  EndsAt            – fixed deadline set at creation; immutable.
//  CreatedAt         – timestamp of creation.
type Auction struct {
    ID                uint64           // auctions.id
    FlagID            uint64           // auctions.flag_id
    SellerID          uint64           // auctions.seller_id
    StartingPrice     decimal.Decimal  // auctions.starting_price
    MinPrice          decimal.Decimal  // auctions.min_price
    BuyoutPrice       *decimal.Decimal // auctions.buyout_price (nullable)
    CurrentHighestBid *decimal.Decimal // auctions.current_highest_bid (nullable)
    HighestBidderID   *uint64          // auctions.highest_bidder_id (nullable)
    WinnerCategory    *FlagCategory    // auctions.winner_category (nullable)
    Status            AuctionStatus    // auctions.status
    EndsAt            time.Time        // auctions.ends_at
    CreatedAt         time.Time        // auctions.created_at
}
