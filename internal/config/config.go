// Package config loads application configuration from environment
// variables. There is no process-wide settings object: main loads a
// Config once and passes it (or pieces of it) down explicitly.
package config

import (
    "log"
    "os"
    "strconv"
    "time"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Required variables are
// enforced by must(); auction knobs fall back to the defaults the
// game has always used.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to sign JWTs
    AccessTTLMin   int           // access token time-to-live in minutes
    RefreshTTLDays int           // refresh token time-to-live in days
    BcryptCost     int           // bcrypt cost for password hashing
    AdminAPIKey    string        // key expected in the X-Admin-Key header
    MinDuration    time.Duration // shortest allowed auction duration
    MaxDuration    time.Duration // longest allowed auction duration
    BuyoutBonus    int           // reputation awarded on buyout
    WinnerBonus    int           // reputation awarded on close with winner
}

// Load reads configuration values from environment variables and
// returns a Config. Missing required values cause the program to exit
// with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        AdminAPIKey:    must("ADMIN_API_KEY"),
        MinDuration:    time.Duration(optInt("AUCTION_MIN_DURATION_HOURS", 1)) * time.Hour,
        MaxDuration:    time.Duration(optInt("AUCTION_MAX_DURATION_HOURS", 168)) * time.Hour,
        BuyoutBonus:    optInt("AUCTION_BUYOUT_BONUS", 20),
        WinnerBonus:    optInt("AUCTION_WINNER_BONUS", 15),
    }
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// optInt reads an optional integer variable, falling back to def when
// unset or unparseable.
func optInt(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return n
}
