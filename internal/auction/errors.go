// Package auction implements the auction engine: auction and bid
// lifecycle, bid validation, buyout, and deterministic winner
// resolution. The engine persists through the Store interface and
// consults the ownership and reputation collaborators through narrow
// interfaces so that handlers and tests can supply their own
// implementations.
package auction

import (
    "errors"
    "fmt"
)

// Kind classifies an engine failure so that callers can react
// differently: refresh the highest bid, show "auction ended", map to
// an HTTP status, and so on. Every error returned by the engine
// carries exactly one kind.
type Kind int

const (
    // KindNotFound – a referenced auction, flag or user is absent.
    KindNotFound Kind = iota + 1
    // KindForbidden – the actor lacks authority (not seller, not
    // owner, self-bid, self-buyout).
    KindForbidden
    // KindConflict – a uniqueness invariant would be violated, e.g. a
    // second active auction for the same flag.
    KindConflict
    // KindInvalidArgument – a caller-supplied value violates a stated
    // precondition (non-positive price, bid too low).
    KindInvalidArgument
    // KindInvalidState – the operation is not legal in the auction's
    // current lifecycle state.
    KindInvalidState
    // KindDependency – an unexpected collaborator failure (store,
    // ownership, reputation). Not caused by the caller.
    KindDependency
)

// Error is the engine's error type. The exported sentinels below are
// the complete set of expected failures; KindDependency errors are
// created on the fly and wrap the underlying cause.
type Error struct {
    kind  Kind
    msg   string
    cause error
}

func (e *Error) Error() string {
    if e.cause != nil {
        return e.msg + ": " + e.cause.Error()
    }
    return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the failure classification of e.
func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the Kind from any error returned by the engine.
// For errors that did not originate here it returns KindDependency,
// the conservative classification for an unexpected failure.
func KindOf(err error) Kind {
    var e *Error
    if errors.As(err, &e) {
        return e.kind
    }
    return KindDependency
}

var (
    ErrAuctionNotFound = &Error{kind: KindNotFound, msg: "auction not found"}
    ErrFlagNotFound    = &Error{kind: KindNotFound, msg: "flag not found"}
    ErrUserNotFound    = &Error{kind: KindNotFound, msg: "user not found"}

    ErrNotOwner   = &Error{kind: KindForbidden, msg: "seller does not own this flag"}
    ErrNotSeller  = &Error{kind: KindForbidden, msg: "only the seller can perform this operation"}
    ErrSelfBid    = &Error{kind: KindForbidden, msg: "cannot bid on your own auction"}
    ErrSelfBuyout = &Error{kind: KindForbidden, msg: "cannot buy out your own auction"}

    ErrActiveAuctionExists = &Error{kind: KindConflict, msg: "an active auction already exists for this flag"}

    ErrInvalidStartingPrice = &Error{kind: KindInvalidArgument, msg: "starting price must be positive"}
    ErrInvalidMinPrice      = &Error{kind: KindInvalidArgument, msg: "minimum price must be positive"}
    ErrInvalidBuyoutPrice   = &Error{kind: KindInvalidArgument, msg: "buyout price must exceed the starting price"}
    ErrInvalidDuration      = &Error{kind: KindInvalidArgument, msg: "auction duration out of bounds"}
    ErrInvalidCategory      = &Error{kind: KindInvalidArgument, msg: "unknown bidder category"}
    ErrBidBelowMinimum      = &Error{kind: KindInvalidArgument, msg: "bid is below the minimum price"}
    ErrBidBelowStarting     = &Error{kind: KindInvalidArgument, msg: "bid is below the starting price"}
    ErrBidNotAboveHighest   = &Error{kind: KindInvalidArgument, msg: "bid must exceed the current highest bid"}

    ErrAuctionNotActive = &Error{kind: KindInvalidState, msg: "auction is not active"}
    ErrAuctionEnded     = &Error{kind: KindInvalidState, msg: "auction has ended"}
    ErrAuctionNotEnded  = &Error{kind: KindInvalidState, msg: "auction has not ended yet"}
    ErrNoBuyoutPrice    = &Error{kind: KindInvalidState, msg: "auction does not have a buyout option"}
    ErrAuctionHasBids   = &Error{kind: KindInvalidState, msg: "cannot cancel an auction with existing bids"}
)

// dependency wraps a collaborator failure. The operation that failed
// is named so logs stay useful without structured context.
func dependency(op string, cause error) error {
    return &Error{kind: KindDependency, msg: fmt.Sprintf("%s failed", op), cause: cause}
}
