// Package handler implements the HTTP handlers for the auction
// service. Handlers translate between JSON requests/responses and the
// auction engine; all business rules live in internal/auction.
package handler

import (
    "errors"
    "regexp"
    "strconv"

    "github.com/labstack/echo/v4"
)

var errNoUser = errors.New("no authenticated user in context")

// getUserID extracts the authenticated user id placed in the context
// by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
        return v, nil
    }
    return 0, errNoUser
}

// parseID parses a numeric path parameter, rejecting zero.
func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// validWallet reports whether s looks like an Ethereum-style wallet
// address: 0x followed by 40 hex characters.
func validWallet(s string) bool {
    return walletPattern.MatchString(s)
}
