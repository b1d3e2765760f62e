package config

import "time"

// CacheConfig tunes the Redis response cache applied to the public
// auction listing. Listings tolerate a few seconds of staleness: bids
// still validate against the locked database row, never against a
// cached response, so a short TTL buys a large read reduction during
// popular auctions.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig builds a CacheConfig from environment variables.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
