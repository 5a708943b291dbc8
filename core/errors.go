package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Dice game failures. All of them are validation errors: the executor reverts
// the transaction and the caller decides whether to resubmit.
var (
	// placement
	ErrInvalidProbability = errors.New("invalid probability")
	ErrInvalidWager       = errors.New("invalid wager")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateSeed      = errors.New("duplicate seed")

	// resolution
	ErrInvalidAttestation    = errors.New("invalid attestation")
	ErrPayoutOverflow        = errors.New("payout overflow")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrBetAlreadyClosed      = errors.New("bet already closed")

	// refund
	ErrBetNotExpired = errors.New("bet not expired")

	ErrBetNotFound      = errors.New("bet not found")
	ErrBankrollExists   = errors.New("bankroll already initialized")
	ErrBankrollNotFound = errors.New("bankroll not found")
	ErrUnauthorized     = errors.New("unauthorized")
)
