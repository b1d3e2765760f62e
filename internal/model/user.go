package model

import "time"

// User represents a player record as stored in the `users` table.
// Users are identified by their wallet address, which is normalized
// to lower case before any lookup or insert. The auction engine does
// not own this table; it only reads identities and adjusts the
// reputation score through the repository layer.
//
// Fields:
//  ID              – primary key identifier.
//  WalletAddress   – unique 0x-prefixed address, stored lower case.
//  Username        – optional display name.
//  PasswordHash    – bcrypt hash used for API authentication.
//  ReputationScore – cumulative score awarded on auction settlement.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
    ID              uint64    // users.id
    WalletAddress   string    // users.wallet_address
    Username        *string   // users.username (nullable)
    PasswordHash    string    // users.password_hash
    ReputationScore int       // users.reputation_score
    CreatedAt       time.Time // users.created_at
    UpdatedAt       time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only
// the SHA-256 hash of the token value is stored; the raw token is
// returned to the client once and never persisted.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
