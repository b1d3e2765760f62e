package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/flagquest/auction-service/internal/model"
)

// ErrFlagNotFound is returned when a flag id does not resolve to a
// row. Handlers translate it into an HTTP 404 response.
var ErrFlagNotFound = errors.New("flag not found")

// FlagRepo provides read access to the flags and flag_ownerships
// tables. Flags are created and mutated by the surrounding game
// backend; the auction service only ever reads them.
type FlagRepo struct{ db *sql.DB }

// NewFlagRepo returns a FlagRepo bound to the provided database.
func NewFlagRepo(db *sql.DB) *FlagRepo { return &FlagRepo{db: db} }

// GetByID fetches a flag by id.
func (r *FlagRepo) GetByID(ctx context.Context, id uint64) (model.Flag, error) {
    var (
        f       model.Flag
        tokenID sql.NullInt64
        ipfs    sql.NullString
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT id, municipality_id, name, category, token_id, image_ipfs_hash, created_at
           FROM flags WHERE id = ? LIMIT 1`, id).
        Scan(&f.ID, &f.MunicipalityID, &f.Name, &f.Category, &tokenID, &ipfs, &f.CreatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return model.Flag{}, ErrFlagNotFound
        }
        return model.Flag{}, err
    }
    if tokenID.Valid {
        v := uint64(tokenID.Int64)
        f.TokenID = &v
    }
    if ipfs.Valid {
        f.ImageIPFSHash = &ipfs.String
    }
    return f, nil
}

// Exists reports whether a flag row exists.
func (r *FlagRepo) Exists(ctx context.Context, id uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM flags WHERE id = ? LIMIT 1`, id).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// Owns reports whether the user holds an ownership record for the
// flag. Ownership rows are written by the game backend when NFTs are
// claimed or purchased; this service only consults them to authorize
// auction creation.
func (r *FlagRepo) Owns(ctx context.Context, userID, flagID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        `SELECT 1 FROM flag_ownerships WHERE user_id = ? AND flag_id = ? LIMIT 1`,
        userID, flagID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// OwnershipStore combines flag and user lookups into the single
// collaborator interface the auction engine consumes.
type OwnershipStore struct {
    flags *FlagRepo
    users *UserRepo
}

// NewOwnershipStore wires the flag and user repositories into an
// auction.OwnershipStore implementation.
func NewOwnershipStore(flags *FlagRepo, users *UserRepo) *OwnershipStore {
    return &OwnershipStore{flags: flags, users: users}
}

func (s *OwnershipStore) FlagExists(ctx context.Context, flagID uint64) (bool, error) {
    return s.flags.Exists(ctx, flagID)
}

func (s *OwnershipStore) UserExists(ctx context.Context, userID uint64) (bool, error) {
    return s.users.Exists(ctx, userID)
}

func (s *OwnershipStore) Owns(ctx context.Context, userID, flagID uint64) (bool, error) {
    return s.flags.Owns(ctx, userID, flagID)
}
