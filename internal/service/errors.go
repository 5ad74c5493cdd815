// Package service provides business logic implementations.
package service

import (
	"errors"

	"snakepill/internal/repository"
)

// Service errors. Handlers map these to 4xx responses.
var (
	ErrInvalidWallet    = errors.New("invalid wallet address")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrSkinRequired     = errors.New("skin id required")
	ErrSkinNotFound     = errors.New("skin not found")
	ErrSkinAlreadyOwned = errors.New("skin already owned")
	ErrNotEnoughPoints  = errors.New("not enough points")
	ErrSkinNotOwned     = errors.New("skin not owned")
	ErrInvalidSession   = errors.New("invalid game session")
	ErrSessionRequired  = errors.New("session id required")
	ErrInvalidResult    = errors.New("score, playtime and pills must not be negative")
	ErrInvalidTaxAmount = errors.New("total tax must be positive")
	ErrInvalidDonation  = errors.New("donation needs a positive amount and a signature")
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrPlayerNotFound) || errors.Is(err, ErrPlayerNotFound)
}
