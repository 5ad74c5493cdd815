// Package chain talks to Solana and the token market-data API: token holdings,
// prices, distributor balance and SOL transfers.
package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000

var lamportsPerSOL = decimal.NewFromInt(int64(LamportsPerSOL))

// IsValidAddress reports whether addr decodes to a 32-byte public key.
// It does not check that the account exists.
func IsValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := solana.PublicKeyFromBase58(addr)
	return err == nil
}

// ParsePrivateKey decodes a base58 encoded 64-byte secret key.
func ParsePrivateKey(encoded string) (solana.PrivateKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrNoSigningKey
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigningKey, err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidSigningKey, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), 0).Div(lamportsPerSOL)
}

// SOLToLamports converts SOL to lamports, rounding down.
func SOLToLamports(sol decimal.Decimal) uint64 {
	l := sol.Mul(lamportsPerSOL).Floor()
	if l.Sign() <= 0 {
		return 0
	}
	return l.BigInt().Uint64()
}
