package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"

    "github.com/flagquest/auction-service/internal/model"
    "github.com/flagquest/auction-service/internal/utils"
)

// ErrWalletExists is returned when registering a wallet address that
// already has an account.
var ErrWalletExists = errors.New("wallet address already registered")

// ErrUserNotFound is returned when a user lookup finds no row.
var ErrUserNotFound = errors.New("user not found")

// UserRepo provides data access to the users table. Wallet addresses
// are normalized to lower case before every lookup and insert so the
// unique index never sees two spellings of the same address. The
// AddScore method doubles as the auction engine's reputation ledger.
type UserRepo struct{ db *sql.DB }

// NewUserRepo returns a UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NormalizeWallet lowercases and trims a wallet address. All
// repository methods apply it; callers may use it for display.
func NormalizeWallet(addr string) string {
    return strings.ToLower(strings.TrimSpace(addr))
}

// Create inserts a user with a bcrypt-hashed password and returns the
// new id. A duplicate wallet address maps to ErrWalletExists.
func (r *UserRepo) Create(ctx context.Context, wallet, username, password string, cost int) (uint64, error) {
    wallet = NormalizeWallet(wallet)
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    var name sql.NullString
    if username != "" {
        name = sql.NullString{String: username, Valid: true}
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO users (wallet_address, username, password_hash) VALUES (?, ?, ?)`,
        wallet, name, hash)
    if err != nil {
        // MySQL duplicate-key errors carry code 1062.
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return 0, ErrWalletExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByWallet fetches a user by normalized wallet address.
func (r *UserRepo) GetByWallet(ctx context.Context, wallet string) (model.User, error) {
    return r.get(ctx, `wallet_address = ?`, NormalizeWallet(wallet))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return r.get(ctx, `id = ?`, id)
}

func (r *UserRepo) get(ctx context.Context, cond string, arg any) (model.User, error) {
    var (
        u    model.User
        name sql.NullString
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT id, wallet_address, username, password_hash, reputation_score, created_at, updated_at
           FROM users WHERE `+cond+` LIMIT 1`, arg).
        Scan(&u.ID, &u.WalletAddress, &name, &u.PasswordHash, &u.ReputationScore, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return model.User{}, ErrUserNotFound
        }
        return model.User{}, err
    }
    if name.Valid {
        u.Username = &name.String
    }
    return u, nil
}

// Exists reports whether a user row exists.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ? LIMIT 1`, id).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// AddScore adds delta to a user's reputation score. Implements
// auction.ReputationLedger. A missing user is reported so the caller
// can surface a dependency failure rather than silently dropping the
// award.
func (r *UserRepo) AddScore(ctx context.Context, userID uint64, delta int) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE users SET reputation_score = reputation_score + ? WHERE id = ?`,
        delta, userID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrUserNotFound
    }
    return nil
}

// TopByReputation returns the highest-reputation users for the
// rankings endpoint, best first.
func (r *UserRepo) TopByReputation(ctx context.Context, limit int) ([]model.User, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, wallet_address, username, password_hash, reputation_score, created_at, updated_at
           FROM users ORDER BY reputation_score DESC, id ASC LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var users []model.User
    for rows.Next() {
        var (
            u    model.User
            name sql.NullString
        )
        if err := rows.Scan(&u.ID, &u.WalletAddress, &name, &u.PasswordHash, &u.ReputationScore, &u.CreatedAt, &u.UpdatedAt); err != nil {
            return nil, err
        }
        if name.Valid {
            u.Username = &name.String
        }
        users = append(users, u)
    }
    return users, rows.Err()
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
    return n, err
}
