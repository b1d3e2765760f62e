// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records settlements.
package queue

// BidPlacedEvent is published whenever a bid is accepted. Downstream
// consumers (live frontends, analytics) can track price movement
// without polling the primary database.
type BidPlacedEvent struct {
    BidID     uint64 `json:"bid_id"`
    AuctionID uint64 `json:"auction_id"`
    BidderID  uint64 `json:"bidder_id"`
    Amount    string `json:"amount"`
    Category  string `json:"category"`
    PlacedAt  string `json:"placed_at"`
}

// AuctionClosedEvent is published when an auction reaches a terminal
// state through buyout, close or cancellation. WinnerID is zero when
// the auction ended without a winner.
type AuctionClosedEvent struct {
    AuctionID      uint64 `json:"auction_id"`
    FlagID         uint64 `json:"flag_id"`
    SellerID       uint64 `json:"seller_id"`
    WinnerID       uint64 `json:"winner_id,omitempty"`
    FinalPrice     string `json:"final_price,omitempty"`
    WinnerCategory string `json:"winner_category,omitempty"`
    Outcome        string `json:"outcome"` // "closed", "buyout" or "cancelled"
    ClosedAt       string `json:"closed_at"`
}
