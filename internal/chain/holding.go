package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TokenRPC is the subset of the Solana RPC client used to read token balances.
type TokenRPC interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

// PriceSource returns a token's USD price, 0 when unknown.
type PriceSource interface {
	TokenPriceUSD(ctx context.Context, mint string) decimal.Decimal
}

// parsedTokenAccount mirrors the jsonParsed encoding of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       int32  `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// HoldingReader values a wallet's position in the configured token.
type HoldingReader struct {
	rpc    TokenRPC
	prices PriceSource
	mint   solana.PublicKey
}

// NewHoldingReader creates a reader for the given token mint.
func NewHoldingReader(client TokenRPC, prices PriceSource, mint string) (*HoldingReader, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %q: %w", mint, err)
	}
	return &HoldingReader{rpc: client, prices: prices, mint: mintKey}, nil
}

// TokenBalance sums the token amount over every account the wallet owns for
// the mint. Lookup failures are logged and reported as 0.
func (r *HoldingReader) TokenBalance(ctx context.Context, wallet string) decimal.Decimal {
	balance, err := r.tokenBalance(ctx, wallet)
	if err != nil {
		log.Warn().Err(err).Str("wallet", wallet).Msg("Failed to get token balance")
		return decimal.Zero
	}
	return balance
}

func (r *HoldingReader) tokenBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	mint := r.mint
	out, err := r.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get token accounts: %w", err)
	}
	if out == nil {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, acc := range out.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		amount, err := parseTokenAmount(acc.Account.Data.GetRawJSON())
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse token account %s: %w", acc.Pubkey, err)
		}
		total = total.Add(amount)
	}
	return total, nil
}

func parseTokenAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, nil
	}
	var parsed parsedTokenAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return decimal.Zero, err
	}
	ta := parsed.Parsed.Info.TokenAmount
	if ta.Amount != "" {
		amount, err := decimal.NewFromString(ta.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Shift(-ta.Decimals), nil
	}
	if ta.UIAmountString != "" {
		return decimal.NewFromString(ta.UIAmountString)
	}
	return decimal.Zero, nil
}

// HoldingValueUSD returns balance times price. It never fails and never goes
// negative: any lookup error counts as a zero balance or price.
func (r *HoldingReader) HoldingValueUSD(ctx context.Context, wallet string) decimal.Decimal {
	balance := r.TokenBalance(ctx, wallet)
	if balance.Sign() <= 0 {
		return decimal.Zero
	}

	price := r.prices.TokenPriceUSD(ctx, r.mint.String())
	if price.Sign() <= 0 {
		return decimal.Zero
	}
	return balance.Mul(price)
}
