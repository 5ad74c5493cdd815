package chain

import "errors"

// Payment errors. Read paths never return errors; they degrade to zero.
var (
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNoSigningKey        = errors.New("no distributor private key configured")
	ErrInvalidSigningKey   = errors.New("invalid distributor private key")
	ErrConfirmationTimeout = errors.New("transaction not confirmed before timeout")
)
