package model

import "time"

// FlagCategory is the tier of a flag. Categories form a total order
// (Standard < Plus < Premium) that the auction engine uses to break
// ties between bids of equal amount. The order is defined by Rank,
// not by string comparison, so the tie-break law holds regardless of
// how the value is stored or serialized.
type FlagCategory string

const (
    CategoryStandard FlagCategory = "standard"
    CategoryPlus     FlagCategory = "plus"
    CategoryPremium  FlagCategory = "premium"
)

// Rank returns the numeric priority of a category. Higher rank wins
// ties. Unknown values rank as Standard so a malformed row can never
// outrank a legitimate Premium bid.
func (c FlagCategory) Rank() int {
    switch c {
    case CategoryPremium:
        return 3
    case CategoryPlus:
        return 2
    default:
        return 1
    }
}

// Valid reports whether c is one of the three known categories.
func (c FlagCategory) Valid() bool {
    switch c {
    case CategoryStandard, CategoryPlus, CategoryPremium:
        return true
    }
    return false
}

// Flag represents a sellable flag as stored in the `flags` table. The
// auction engine treats flags as externally owned and immutable: it
// only ever reads them to authorize auction creation and to report
// listing metadata.
//
// Fields:
//  ID             – primary key identifier.
//  MunicipalityID – municipality this flag belongs to.
//  Name           – display name of the flag.
//  Category       – tier used for bid tie-breaking.
//  TokenID        – on-chain token id, if minted (nullable).
//  ImageIPFSHash  – IPFS hash of the flag image (nullable).
//  CreatedAt      – timestamp of creation.
type Flag struct {
    ID             uint64       // flags.id
    MunicipalityID uint64       // flags.municipality_id
    Name           string       // flags.name
    Category       FlagCategory // flags.category
    TokenID        *uint64      // flags.token_id (nullable)
    ImageIPFSHash  *string      // flags.image_ipfs_hash (nullable)
    CreatedAt      time.Time    // flags.created_at
}
