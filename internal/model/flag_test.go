package model

import "testing"

func TestFlagCategoryRank(t *testing.T) {
    t.Parallel()

    if !(CategoryStandard.Rank() < CategoryPlus.Rank() && CategoryPlus.Rank() < CategoryPremium.Rank()) {
        t.Fatalf("expected standard < plus < premium, got %d %d %d",
            CategoryStandard.Rank(), CategoryPlus.Rank(), CategoryPremium.Rank())
    }
    if got := FlagCategory("bogus").Rank(); got != CategoryStandard.Rank() {
        t.Fatalf("expected unknown category to rank as standard, got %d", got)
    }
}

func TestFlagCategoryValid(t *testing.T) {
    t.Parallel()

    for _, c := range []FlagCategory{CategoryStandard, CategoryPlus, CategoryPremium} {
        if !c.Valid() {
            t.Fatalf("expected %q to be valid", c)
        }
    }
    for _, c := range []FlagCategory{"", "gold", "PREMIUM"} {
        if c.Valid() {
            t.Fatalf("expected %q to be invalid", c)
        }
    }
}

func TestAuctionStatusTerminal(t *testing.T) {
    t.Parallel()

    if AuctionActive.Terminal() {
        t.Fatalf("ACTIVE must not be terminal")
    }
    if !AuctionClosed.Terminal() || !AuctionCancelled.Terminal() {
        t.Fatalf("CLOSED and CANCELLED must be terminal")
    }
}
