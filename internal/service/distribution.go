package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"snakepill/internal/config"
	"snakepill/internal/metrics"
	"snakepill/internal/model"
	"snakepill/internal/pkg/lock"
)

// lamportDecimals is the number of decimal places of one lamport in SOL.
const lamportDecimals = 9

// Reasons reported by a distribution that did not send anything.
const (
	ReasonInsufficientBalance = "insufficient balance"
	ReasonNoEligiblePlayers   = "No eligible players"
	ReasonAmountTooSmall      = "Amount per player too small"
)

// TransferFailure is one recipient whose payment failed.
type TransferFailure struct {
	Wallet string
	Err    error
}

// MarshalJSON renders the error as a string.
func (f TransferFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Wallet string `json:"wallet"`
		Error  string `json:"error"`
	}{f.Wallet, msg})
}

// DistributionResult is the outcome of a distribution run. Success is true
// once transfers were attempted, even if some of them failed.
type DistributionResult struct {
	Success         bool              `json:"success"`
	Reason          string            `json:"reason,omitempty"`
	TotalTax        decimal.Decimal   `json:"totalTaxSol"`
	Pool            decimal.Decimal   `json:"distributionAmount"`
	PerRecipient    decimal.Decimal   `json:"perPlayerSol"`
	Balance         decimal.Decimal   `json:"walletBalance"`
	Required        decimal.Decimal   `json:"required"`
	EligibleCount   int               `json:"eligibleCount"`
	SuccessCount    int               `json:"successCount"`
	FailCount       int               `json:"failCount"`
	Signatures      []string          `json:"txSignatures"`
	Failures        []TransferFailure `json:"failures"`
	DistributionLog *int64            `json:"distributionLogId,omitempty"`
}

// DistributionStats is a read-only summary for status pages.
type DistributionStats struct {
	EligibleCount          int64           `json:"eligibleCount"`
	WalletBalance          decimal.Decimal `json:"walletBalance"`
	DistributionPercentage decimal.Decimal `json:"distributionPercentage"`
}

// DistributionService pays a share of collected taxes to eligible wallets.
type DistributionService struct {
	records         EligibilityStore
	logs            DistributionLogger
	payer           Payer
	rate            decimal.Decimal
	feeBuffer       decimal.Decimal
	minPerRecipient decimal.Decimal
	limiter         *rate.Limiter
	flight          *lock.Flight
}

// NewDistributionService creates a new DistributionService.
func NewDistributionService(
	records EligibilityStore,
	logs DistributionLogger,
	payer Payer,
	cfg *config.DistributionConfig,
	clock clockwork.Clock,
) *DistributionService {
	limit := rate.Inf
	if cfg.TransfersPerSecond > 0 {
		limit = rate.Limit(cfg.TransfersPerSecond)
	}
	return &DistributionService{
		records:         records,
		logs:            logs,
		payer:           payer,
		rate:            decimal.NewFromFloat(cfg.Rate),
		feeBuffer:       decimal.NewFromFloat(cfg.FeeBuffer),
		minPerRecipient: decimal.NewFromFloat(cfg.MinPerRecipient),
		limiter:         rate.NewLimiter(limit, 1),
		flight:          lock.NewFlight("distribution", clock),
	}
}

// Pool returns the amount set aside from totalTax.
func (s *DistributionService) Pool(totalTax decimal.Decimal) decimal.Decimal {
	return totalTax.Mul(s.rate)
}

// Distribute splits totalTax × rate evenly across the active eligible set
// and pays each wallet in load order.
//
// Insufficient balance, an empty eligible set and a per-recipient amount
// below the minimum all return a result with Success=false and a nil error;
// nothing is sent and no log is written. Once sending starts every recipient
// is attempted and the run is logged, whatever the individual outcomes and
// even if ctx is cancelled meanwhile.
func (s *DistributionService) Distribute(ctx context.Context, totalTax decimal.Decimal) (*DistributionResult, error) {
	if totalTax.Sign() <= 0 {
		return nil, ErrInvalidTaxAmount
	}

	var result *DistributionResult
	err := s.flight.Do(func() error {
		var err error
		result, err = s.distribute(ctx, totalTax)
		return err
	})
	if err != nil && !errors.Is(err, lock.ErrAlreadyRunning) {
		metrics.DistributionRunsTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

func (s *DistributionService) distribute(ctx context.Context, totalTax decimal.Decimal) (*DistributionResult, error) {
	pool := s.Pool(totalTax)
	result := &DistributionResult{
		TotalTax:   totalTax,
		Pool:       pool,
		Signatures: []string{},
		Failures:   []TransferFailure{},
	}

	log.Info().
		Str("total_tax_sol", totalTax.String()).
		Str("amount_sol", pool.String()).
		Msg("Starting tax distribution")

	balance := s.payer.DistributorBalance(ctx)
	required := pool.Add(s.feeBuffer)
	result.Balance = balance
	result.Required = required
	if balance.LessThan(required) {
		log.Warn().
			Str("balance_sol", balance.String()).
			Str("required_sol", required.String()).
			Msg("Insufficient distributor balance")
		result.Reason = ReasonInsufficientBalance
		metrics.DistributionRunsTotal.WithLabelValues("insufficient_balance").Inc()
		return result, nil
	}

	recipients, err := s.records.GetEligiblePlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible players: %w", err)
	}
	result.EligibleCount = len(recipients)
	if len(recipients) == 0 {
		log.Warn().Msg("No eligible players to distribute to")
		result.Reason = ReasonNoEligiblePlayers
		metrics.DistributionRunsTotal.WithLabelValues("no_recipients").Inc()
		return result, nil
	}

	// Truncated to whole lamports, so the logged amount is what each wallet receives.
	perRecipient, _ := pool.QuoRem(decimal.NewFromInt(int64(len(recipients))), lamportDecimals)
	result.PerRecipient = perRecipient
	if perRecipient.LessThan(s.minPerRecipient) {
		log.Warn().
			Str("amount_sol", perRecipient.String()).
			Int("recipients", len(recipients)).
			Msg("Per-player amount too small, skipping distribution")
		result.Reason = ReasonAmountTooSmall
		metrics.DistributionRunsTotal.WithLabelValues("too_small").Inc()
		return result, nil
	}

	// Payments already sent must be logged, so the rest of the run ignores cancellation.
	sendCtx := context.WithoutCancel(ctx)

	for _, r := range recipients {
		if err := s.limiter.Wait(sendCtx); err != nil {
			log.Debug().Err(err).Msg("Transfer pacing interrupted")
		}

		sig, err := s.payer.SendPayment(sendCtx, r.WalletAddress, perRecipient)
		metrics.RecordPayment(err)
		if err != nil {
			result.Failures = append(result.Failures, TransferFailure{Wallet: r.WalletAddress, Err: err})
			log.Error().Err(err).
				Str("wallet", r.WalletAddress).
				Str("amount_sol", perRecipient.String()).
				Msg("Payment failed")
			continue
		}

		result.Signatures = append(result.Signatures, sig)
		log.Info().
			Str("wallet", r.WalletAddress).
			Str("amount_sol", perRecipient.String()).
			Str("signature", sig).
			Msg("Payment sent")
	}

	result.SuccessCount = len(result.Signatures)
	result.FailCount = len(result.Failures)
	result.Success = true

	entry, err := s.logs.LogTaxDistribution(sendCtx, totalTax, pool, result.SuccessCount, perRecipient, result.Signatures)
	if err != nil {
		// Transfers already went out, so the run is still reported.
		log.Error().Err(err).
			Strs("signatures", result.Signatures).
			Msg("Failed to write distribution log")
	} else {
		result.DistributionLog = &entry.ID
	}

	paid, _ := perRecipient.Mul(decimal.NewFromInt(int64(result.SuccessCount))).Float64()
	metrics.DistributedSOLTotal.Add(paid)
	metrics.DistributionRunsTotal.WithLabelValues("completed").Inc()

	log.Info().
		Int("success", result.SuccessCount).
		Int("failed", result.FailCount).
		Str("amount_sol", perRecipient.String()).
		Msg("Distribution complete")

	return result, nil
}

// Stats returns the eligible count, distributor balance and payout percentage.
func (s *DistributionService) Stats(ctx context.Context) (*DistributionStats, error) {
	n, err := s.records.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count eligible players: %w", err)
	}
	return &DistributionStats{
		EligibleCount:          n,
		WalletBalance:          s.payer.DistributorBalance(ctx),
		DistributionPercentage: s.rate.Mul(decimal.NewFromInt(100)),
	}, nil
}

// History returns the most recent distribution log entries, newest first.
func (s *DistributionService) History(ctx context.Context, limit int) ([]*model.DistributionLog, error) {
	logs, err := s.logs.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution history: %w", err)
	}
	if logs == nil {
		logs = []*model.DistributionLog{}
	}
	return logs, nil
}
