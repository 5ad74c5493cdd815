package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"snakepill/internal/chain"
	"snakepill/internal/model"
)

// StatusReport is the public system status.
type StatusReport struct {
	*model.SystemStatus
	EligibleCount          int64           `json:"eligibleCount"`
	WalletBalance          decimal.Decimal `json:"walletBalance"`
	DistributionPercentage decimal.Decimal `json:"distributionPercentage"`
	OnlineCount            int64           `json:"onlineCount"`
	ReconcileRunning       bool            `json:"reconcileRunning"`
}

// StatusService assembles the status page and donation list.
type StatusService struct {
	status       StatusStore
	donations    DonationStore
	distribution *DistributionService
	eligibility  *EligibilityService
	game         *GameService
}

// NewStatusService creates a new StatusService.
func NewStatusService(
	status StatusStore,
	donations DonationStore,
	distribution *DistributionService,
	eligibility *EligibilityService,
	game *GameService,
) *StatusService {
	return &StatusService{
		status:       status,
		donations:    donations,
		distribution: distribution,
		eligibility:  eligibility,
		game:         game,
	}
}

// Status refreshes the derived counters and returns them with live figures.
func (s *StatusService) Status(ctx context.Context) (*StatusReport, error) {
	if err := s.status.Refresh(ctx); err != nil {
		return nil, err
	}
	st, err := s.status.Get(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.distribution.Stats(ctx)
	if err != nil {
		return nil, err
	}

	online, err := s.game.OnlineCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count online players: %w", err)
	}

	return &StatusReport{
		SystemStatus:           st,
		EligibleCount:          stats.EligibleCount,
		WalletBalance:          stats.WalletBalance,
		DistributionPercentage: stats.DistributionPercentage,
		OnlineCount:            online,
		ReconcileRunning:       s.eligibility.Running(),
	}, nil
}

// Donations returns donations, largest first.
func (s *StatusService) Donations(ctx context.Context, limit int) ([]*model.Donation, error) {
	return s.donations.List(ctx, limit)
}

// RecordDonation stores an incoming donation. Duplicate signatures are ignored.
func (s *StatusService) RecordDonation(ctx context.Context, wallet string, amount decimal.Decimal, signature string, message *string) (bool, error) {
	if !chain.IsValidAddress(wallet) {
		return false, ErrInvalidWallet
	}
	if amount.Sign() <= 0 || signature == "" {
		return false, ErrInvalidDonation
	}
	return s.donations.Record(ctx, wallet, amount, signature, message)
}
