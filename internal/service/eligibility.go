package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"snakepill/internal/chain"
	"snakepill/internal/config"
	"snakepill/internal/metrics"
	"snakepill/internal/model"
	"snakepill/internal/pkg/lock"
)

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	Checked  int           `json:"checked"`
	Eligible int           `json:"eligible"`
	Removed  int           `json:"removed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"-"`
}

// HoldingCheck is the outcome of a single-wallet check. Nothing is persisted.
type HoldingCheck struct {
	WalletAddress string          `json:"walletAddress"`
	HoldingUSD    decimal.Decimal `json:"holdingUSD"`
	MinRequired   decimal.Decimal `json:"minRequired"`
	IsEligible    bool            `json:"isEligible"`
}

// EligibilityReport answers "is this wallet eligible" for the UI, combining
// playtime from the store with a live holding check.
type EligibilityReport struct {
	IsEligible          bool             `json:"isEligible"`
	Reason              string           `json:"reason,omitempty"`
	HoldingUSD          *decimal.Decimal `json:"holdingUSD,omitempty"`
	MinHoldingRequired  *decimal.Decimal `json:"minHoldingRequired,omitempty"`
	PlaytimeSeconds     int64            `json:"playtimeSeconds"`
	MinPlaytimeRequired int64            `json:"minPlaytimeRequired"`
}

type verdict int

const (
	verdictUnchanged verdict = iota
	verdictEligible
	verdictRemoved
)

// EligibilityService reconciles the eligible set against on-chain holdings.
type EligibilityService struct {
	players    PlayerStore
	records    EligibilityStore
	holdings   HoldingChecker
	minHolding decimal.Decimal
	limiter    *rate.Limiter
	flight     *lock.Flight
	clock      clockwork.Clock
}

// NewEligibilityService creates a new EligibilityService. Holding checks are
// paced by a token bucket of cfg.ChecksPerSecond shared by the whole run.
func NewEligibilityService(
	players PlayerStore,
	records EligibilityStore,
	holdings HoldingChecker,
	cfg *config.EligibilityConfig,
	clock clockwork.Clock,
) *EligibilityService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.ChecksPerSecond > 0 {
		limit = rate.Limit(cfg.ChecksPerSecond)
	}
	return &EligibilityService{
		players:    players,
		records:    records,
		holdings:   holdings,
		minHolding: cfg.MinHolding(),
		limiter:    rate.NewLimiter(limit, burst),
		flight:     lock.NewFlight("eligibility", clock),
		clock:      clock,
	}
}

// MinHolding returns the USD threshold.
func (s *EligibilityService) MinHolding() decimal.Decimal {
	return s.minHolding
}

// Running reports whether a reconciliation is in progress.
func (s *EligibilityService) Running() bool {
	running, _ := s.flight.Running()
	return running
}

// CheckAll runs one reconciliation over every player with enough playtime.
// A call made while another run is in progress returns lock.ErrAlreadyRunning.
// Per-wallet failures are logged and counted; they never abort the run.
func (s *EligibilityService) CheckAll(ctx context.Context) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.flight.Do(func() error {
		var err error
		result, err = s.checkAll(ctx)
		return err
	})
	switch {
	case errors.Is(err, lock.ErrAlreadyRunning):
		metrics.EligibilityRunsTotal.WithLabelValues("skipped").Inc()
	case err != nil:
		metrics.EligibilityRunsTotal.WithLabelValues("error").Inc()
	default:
		metrics.EligibilityRunsTotal.WithLabelValues("success").Inc()
		metrics.EligibilityRunDuration.Observe(result.Duration.Seconds())
		metrics.EligibleWallets.Set(float64(result.Eligible))
	}
	return result, err
}

func (s *EligibilityService) checkAll(ctx context.Context) (*ReconcileResult, error) {
	start := s.clock.Now()
	log.Info().Msg("Starting eligibility check")

	players, err := s.players.GetPlayersWithMinPlaytime(ctx, config.MinPlaytimeSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	log.Info().Int("candidates", len(players)).Int("min_playtime", config.MinPlaytimeSeconds).Msg("Loaded eligibility candidates")

	result := &ReconcileResult{}
	for _, p := range players {
		if err := s.limiter.Wait(ctx); err != nil {
			result.Duration = s.clock.Since(start)
			return result, fmt.Errorf("eligibility check interrupted: %w", err)
		}

		result.Checked++
		v, err := s.reconcile(ctx, p)
		if err != nil {
			result.Failed++
			metrics.EligibilityChecksTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("wallet", p.WalletAddress).Msg("Eligibility check failed")
			continue
		}

		switch v {
		case verdictEligible:
			result.Eligible++
			metrics.EligibilityChecksTotal.WithLabelValues("eligible").Inc()
		case verdictRemoved:
			result.Removed++
			metrics.EligibilityChecksTotal.WithLabelValues("removed").Inc()
		default:
			metrics.EligibilityChecksTotal.WithLabelValues("unchanged").Inc()
		}
	}

	result.Duration = s.clock.Since(start)
	log.Info().
		Int("checked", result.Checked).
		Int("eligible", result.Eligible).
		Int("removed", result.Removed).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Eligibility check complete")

	return result, nil
}

// reconcile applies one wallet's verdict. Wallets below the threshold that
// were never eligible are not written to.
func (s *EligibilityService) reconcile(ctx context.Context, p *model.Player) (verdict, error) {
	holding := s.holdings.HoldingValueUSD(ctx, p.WalletAddress)

	if holding.GreaterThanOrEqual(s.minHolding) {
		if _, err := s.records.SetPlayerEligible(ctx, p.ID, p.WalletAddress, holding, p.TotalPlaytimeSeconds); err != nil {
			return verdictUnchanged, err
		}
		if !p.IsEligible {
			eligible := true
			now := s.clock.Now()
			if _, err := s.players.UpdatePlayer(ctx, p.WalletAddress, model.PlayerUpdate{
				IsEligible:    &eligible,
				EligibleSince: &now,
			}); err != nil {
				return verdictUnchanged, err
			}
		}
		log.Debug().Str("wallet", p.WalletAddress).Str("holding_usd", holding.StringFixed(2)).Msg("Wallet is eligible")
		return verdictEligible, nil
	}

	if !p.IsEligible {
		return verdictUnchanged, nil
	}

	if err := s.records.RemovePlayerEligibility(ctx, p.WalletAddress); err != nil {
		return verdictUnchanged, err
	}
	notEligible := false
	if _, err := s.players.UpdatePlayer(ctx, p.WalletAddress, model.PlayerUpdate{
		IsEligible:         &notEligible,
		ClearEligibleSince: true,
	}); err != nil {
		return verdictUnchanged, err
	}
	log.Info().Str("wallet", p.WalletAddress).Str("holding_usd", holding.StringFixed(2)).Msg("Wallet no longer eligible")
	return verdictRemoved, nil
}

// CheckPlayer checks a single wallet's holding against the threshold without
// writing anything.
func (s *EligibilityService) CheckPlayer(ctx context.Context, wallet string) (*HoldingCheck, error) {
	if !chain.IsValidAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	holding := s.holdings.HoldingValueUSD(ctx, wallet)
	return &HoldingCheck{
		WalletAddress: wallet,
		HoldingUSD:    holding,
		MinRequired:   s.minHolding,
		IsEligible:    holding.GreaterThanOrEqual(s.minHolding),
	}, nil
}

// Lookup builds the eligibility report for a wallet. Unknown players and
// players short on playtime are answered without a chain lookup.
func (s *EligibilityService) Lookup(ctx context.Context, wallet string) (*EligibilityReport, error) {
	if !chain.IsValidAddress(wallet) {
		return nil, ErrInvalidWallet
	}

	report := &EligibilityReport{MinPlaytimeRequired: config.MinPlaytimeSeconds}

	p, err := s.players.GetByWallet(ctx, wallet)
	if err != nil {
		if isNotFound(err) {
			report.Reason = "No player record"
			return report, nil
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	report.PlaytimeSeconds = p.TotalPlaytimeSeconds
	if p.TotalPlaytimeSeconds < config.MinPlaytimeSeconds {
		report.Reason = "Not enough playtime"
		return report, nil
	}

	check, err := s.CheckPlayer(ctx, wallet)
	if err != nil {
		return nil, err
	}
	report.IsEligible = check.IsEligible
	report.HoldingUSD = &check.HoldingUSD
	report.MinHoldingRequired = &check.MinRequired
	return report, nil
}

// EligiblePlayers returns the active eligible set.
func (s *EligibilityService) EligiblePlayers(ctx context.Context) ([]*model.EligiblePlayer, error) {
	players, err := s.records.GetEligiblePlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible players: %w", err)
	}
	if players == nil {
		players = []*model.EligiblePlayer{}
	}
	return players, nil
}
