package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"snakepill/internal/config"
)

// PaymentRPC is the subset of the Solana RPC client used to move SOL.
type PaymentRPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// PaymentSender signs and submits SOL transfers from the distributor wallet.
type PaymentSender struct {
	rpc          PaymentRPC
	key          solana.PrivateKey
	commitment   rpc.CommitmentType
	timeout      time.Duration
	pollInterval time.Duration
	clock        clockwork.Clock
}

// NewPaymentSender creates a sender. An empty private key is allowed: balance
// reads return 0 and sends fail with ErrNoSigningKey.
func NewPaymentSender(client PaymentRPC, walletCfg *config.WalletConfig, solCfg *config.SolanaConfig, payCfg *config.PaymentConfig, clock clockwork.Clock) (*PaymentSender, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &PaymentSender{
		rpc:          client,
		commitment:   rpc.CommitmentType(solCfg.Commitment),
		timeout:      payCfg.ConfirmTimeout,
		pollInterval: payCfg.ConfirmPollInterval,
		clock:        clock,
	}
	if s.commitment == "" {
		s.commitment = rpc.CommitmentConfirmed
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.pollInterval <= 0 {
		s.pollInterval = time.Second
	}

	if walletCfg.PrivateKey != "" {
		key, err := ParsePrivateKey(walletCfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		s.key = key
	}
	return s, nil
}

// HasKey reports whether a signing key is configured.
func (s *PaymentSender) HasKey() bool {
	return len(s.key) > 0
}

// Address returns the distributor wallet address, or "" without a key.
func (s *PaymentSender) Address() string {
	if !s.HasKey() {
		return ""
	}
	return s.key.PublicKey().String()
}

// DistributorBalance returns the distributor wallet's SOL balance, 0 on failure.
func (s *PaymentSender) DistributorBalance(ctx context.Context) decimal.Decimal {
	if !s.HasKey() {
		log.Warn().Msg("Distributor balance requested without a signing key")
		return decimal.Zero
	}

	out, err := s.rpc.GetBalance(ctx, s.key.PublicKey(), s.commitment)
	if err != nil {
		log.Warn().Err(err).Str("wallet", s.Address()).Msg("Failed to get distributor balance")
		return decimal.Zero
	}
	if out == nil {
		return decimal.Zero
	}
	return LamportsToSOL(out.Value)
}

// SendPayment transfers amount SOL to the recipient and waits until the
// transaction is confirmed. It returns the transaction signature.
func (s *PaymentSender) SendPayment(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !s.HasKey() {
		return "", ErrNoSigningKey
	}
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, to)
	}
	lamports := SOLToLamports(amount)
	if lamports == 0 {
		return "", ErrInvalidAmount
	}

	from := s.key.PublicKey()

	bh, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if bh == nil || bh.Value == nil {
		return "", errors.New("failed to get latest blockhash: empty response")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, recipient).Build(),
		},
		bh.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return &s.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return "", err
	}

	log.Debug().
		Str("wallet", to).
		Str("amount_sol", amount.String()).
		Str("signature", sig.String()).
		Msg("Payment confirmed")

	return sig.String(), nil
}

// awaitConfirmation polls the signature status until the configured
// commitment is reached, the transaction fails, or the timeout passes.
func (s *PaymentSender) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := s.clock.After(s.timeout)
	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		done, err := s.checkStatus(ctx, sig)
		if err != nil || done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
		case <-ticker.Chan():
		}
	}
}

func (s *PaymentSender) checkStatus(ctx context.Context, sig solana.Signature) (bool, error) {
	out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		// Transient; keep polling until the deadline.
		log.Debug().Err(err).Str("signature", sig.String()).Msg("Signature status lookup failed")
		return false, nil
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	status := out.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction %s failed: %v", sig, status.Err)
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return true, nil
	case rpc.ConfirmationStatusConfirmed:
		return s.commitment != rpc.CommitmentFinalized, nil
	case rpc.ConfirmationStatusProcessed:
		return s.commitment == rpc.CommitmentProcessed, nil
	}
	return false, nil
}
