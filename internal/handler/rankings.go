package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/flagquest/auction-service/internal/repository"
)

// RankingsHandler serves the public reputation leaderboard.
type RankingsHandler struct {
    Users *repository.UserRepo
}

type rankingEntry struct {
    Rank            int    `json:"rank"`
    WalletAddress   string `json:"wallet_address"`
    Username        string `json:"username,omitempty"`
    ReputationScore int    `json:"reputation_score"`
}

// List handles GET /v1/rankings. The limit query parameter caps the
// result at 100 and defaults to 10.
func (h *RankingsHandler) List(c echo.Context) error {
    limit := 10
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
        }
        if n > 100 {
            n = 100
        }
        limit = n
    }

    users, err := h.Users.TopByReputation(c.Request().Context(), limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    out := make([]rankingEntry, 0, len(users))
    for i, u := range users {
        e := rankingEntry{
            Rank:            i + 1,
            WalletAddress:   u.WalletAddress,
            ReputationScore: u.ReputationScore,
        }
        if u.Username != nil {
            e.Username = *u.Username
        }
        out = append(out, e)
    }
    return c.JSON(http.StatusOK, echo.Map{"rankings": out})
}
