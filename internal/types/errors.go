package types

import "errors"

// Recoverable operation failures. Every one of these is resolved before
// any state mutation happens, so callers can report them and move on.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("already taken")
	ErrNotOwner          = errors.New("not the owner")
	ErrNotFound          = errors.New("not found")
)
