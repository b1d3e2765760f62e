package auction

import "github.com/flagquest/auction-service/internal/model"

// DetermineWinner selects the winning bid from the full bid list of a
// closed auction. The winner is the bid with the highest amount;
// amount ties go to the higher bidder category (Premium > Plus >
// Standard), and remaining ties to the earliest submission. The
// result depends only on the (amount, category, created_at) tuples,
// never on input order. Returns nil when the list is empty.
func DetermineWinner(bids []model.Bid) *model.Bid {
    var best *model.Bid
    for i := range bids {
        if best == nil || beats(&bids[i], best) {
            best = &bids[i]
        }
    }
    if best == nil {
        return nil
    }
    win := *best
    return &win
}

// beats reports whether candidate b strictly improves on the current
// best bid under the composite order: amount desc, category rank
// desc, created_at asc.
func beats(b, best *model.Bid) bool {
    switch b.Amount.Cmp(best.Amount) {
    case 1:
        return true
    case -1:
        return false
    }
    if br, cr := b.BidderCategory.Rank(), best.BidderCategory.Rank(); br != cr {
        return br > cr
    }
    return b.CreatedAt.Before(best.CreatedAt)
}
