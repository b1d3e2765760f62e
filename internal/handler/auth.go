package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/flagquest/auction-service/internal/config"
    "github.com/flagquest/auction-service/internal/model"
    "github.com/flagquest/auction-service/internal/repository"
    "github.com/flagquest/auction-service/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints
// use. *repository.UserRepo satisfies it.
type UserStore interface {
    Create(ctx context.Context, wallet, username, password string, cost int) (uint64, error)
    GetByWallet(ctx context.Context, wallet string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is the refresh-token state behind the auth endpoints.
// *repository.TokenRepo satisfies it.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for the auth endpoints. Accounts
// are keyed by wallet address; the password only guards the API
// session and has nothing to do with the wallet's own keys.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
    if u == nil || t == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    WalletAddress string `json:"wallet_address"`
    Username      string `json:"username"`
    Password      string `json:"password"`
}
type loginReq struct {
    WalletAddress string `json:"wallet_address"`
    Password      string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID              uint64  `json:"id"`
    WalletAddress   string  `json:"wallet_address"`
    Username        *string `json:"username,omitempty"`
    ReputationScore int     `json:"reputation_score"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// Register creates a user for a wallet address and returns tokens
// immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    wallet := repository.NormalizeWallet(req.WalletAddress)
    if !validWallet(wallet) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "wallet address must be 0x followed by 40 hex characters"})
    }
    if req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, wallet, strings.TrimSpace(req.Username), req.Password, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrWalletExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "wallet already registered"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    user, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return h.issueTokens(c, http.StatusCreated, user.ID, user.WalletAddress, userPart{
        ID:              user.ID,
        WalletAddress:   user.WalletAddress,
        Username:        user.Username,
        ReputationScore: user.ReputationScore,
    })
}

// Login verifies wallet/password and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    user, err := h.Users.GetByWallet(ctx, req.WalletAddress)
    if err != nil {
        // Same response as a bad password so the endpoint does not
        // reveal which wallets have accounts.
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !utils.VerifyPassword(user.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    return h.issueTokens(c, http.StatusOK, user.ID, user.WalletAddress, userPart{
        ID:              user.ID,
        WalletAddress:   user.WalletAddress,
        Username:        user.Username,
        ReputationScore: user.ReputationScore,
    })
}

// Refresh exchanges a valid refresh token for a new token pair,
// revoking the old refresh token (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    hash := utils.HashRefreshRaw(req.RefreshToken)
    uid, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    user, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
    }
    return h.issueTokens(c, http.StatusOK, user.ID, user.WalletAddress, userPart{
        ID:              user.ID,
        WalletAddress:   user.WalletAddress,
        Username:        user.Username,
        ReputationScore: user.ReputationScore,
    })
}

// Logout revokes the presented refresh token. The access token simply
// expires; only the refresh token is server-side state.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token the authenticated user holds,
// ending every session at once, e.g. after a leaked token.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    user, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if err == repository.ErrUserNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, userPart{
        ID:              user.ID,
        WalletAddress:   user.WalletAddress,
        Username:        user.Username,
        ReputationScore: user.ReputationScore,
    })
}

// issueTokens mints an access/refresh pair, stores the refresh hash
// and writes the auth response.
func (h *AuthHandler) issueTokens(c echo.Context, status int, userID uint64, wallet string, user userPart) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, wallet, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(status, authResp{
        User:    user,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}
