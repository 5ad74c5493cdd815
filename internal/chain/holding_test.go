package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "So11111111111111111111111111111111111111112"

type mockTokenRPC struct {
	getTokenAccountsByOwnerFunc func(context.Context, solana.PublicKey, *rpc.GetTokenAccountsConfig, *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	calls                       int
}

func (m *mockTokenRPC) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	m.calls++
	if m.getTokenAccountsByOwnerFunc != nil {
		return m.getTokenAccountsByOwnerFunc(ctx, owner, conf, opts)
	}
	return &rpc.GetTokenAccountsResult{}, nil
}

type staticPrice struct {
	price decimal.Decimal
	calls int
}

func (p *staticPrice) TokenPriceUSD(context.Context, string) decimal.Decimal {
	p.calls++
	return p.price
}

func tokenAccount(t *testing.T, amount string, decimals int) *rpc.TokenAccount {
	t.Helper()
	raw := fmt.Sprintf(`{"program":"spl-token","parsed":{"type":"account","info":{"tokenAmount":{"amount":%q,"decimals":%d}}},"space":165}`, amount, decimals)
	var data rpc.DataBytesOrJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return &rpc.TokenAccount{
		Pubkey:  solana.NewWallet().PublicKey(),
		Account: rpc.Account{Data: &data},
	}
}

func newTestWallet() string {
	return solana.NewWallet().PublicKey().String()
}

func TestHoldingReader_NoTokenAccountsIsExactlyZero(t *testing.T) {
	prices := &staticPrice{price: decimal.NewFromInt(1)}
	r, err := NewHoldingReader(&mockTokenRPC{}, prices, testMint)
	require.NoError(t, err)

	got := r.HoldingValueUSD(context.Background(), newTestWallet())
	assert.True(t, got.Equal(decimal.Zero), "got %s", got)
	assert.Equal(t, 0, prices.calls, "price must not be fetched for empty balance")
}

func TestHoldingReader_SumsAccounts(t *testing.T) {
	wallet := newTestWallet()
	mock := &mockTokenRPC{
		getTokenAccountsByOwnerFunc: func(_ context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
			assert.Equal(t, wallet, owner.String())
			require.NotNil(t, conf.Mint)
			assert.Equal(t, testMint, conf.Mint.String())
			assert.Equal(t, solana.EncodingJSONParsed, opts.Encoding)
			return &rpc.GetTokenAccountsResult{
				Value: []*rpc.TokenAccount{
					tokenAccount(t, "1500000", 6),
					tokenAccount(t, "2500000", 6),
					{Pubkey: solana.NewWallet().PublicKey()}, // no data, skipped
				},
			}, nil
		},
	}
	r, err := NewHoldingReader(mock, &staticPrice{price: decimal.RequireFromString("0.5")}, testMint)
	require.NoError(t, err)

	assert.True(t, r.TokenBalance(context.Background(), wallet).Equal(decimal.NewFromInt(4)))
	assert.True(t, r.HoldingValueUSD(context.Background(), wallet).Equal(decimal.NewFromInt(2)))
}

func TestHoldingReader_RPCErrorIsZero(t *testing.T) {
	mock := &mockTokenRPC{
		getTokenAccountsByOwnerFunc: func(context.Context, solana.PublicKey, *rpc.GetTokenAccountsConfig, *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
			return nil, errors.New("rpc unavailable")
		},
	}
	r, err := NewHoldingReader(mock, &staticPrice{price: decimal.NewFromInt(1)}, testMint)
	require.NoError(t, err)

	got := r.HoldingValueUSD(context.Background(), newTestWallet())
	assert.True(t, got.IsZero())
}

func TestHoldingReader_InvalidWalletIsZero(t *testing.T) {
	mock := &mockTokenRPC{}
	r, err := NewHoldingReader(mock, &staticPrice{price: decimal.NewFromInt(1)}, testMint)
	require.NoError(t, err)

	assert.True(t, r.HoldingValueUSD(context.Background(), "not-a-wallet").IsZero())
	assert.Equal(t, 0, mock.calls)
}

func TestHoldingReader_ZeroPriceIsZero(t *testing.T) {
	mock := &mockTokenRPC{
		getTokenAccountsByOwnerFunc: func(context.Context, solana.PublicKey, *rpc.GetTokenAccountsConfig, *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
			return &rpc.GetTokenAccountsResult{Value: []*rpc.TokenAccount{tokenAccount(t, "1000", 0)}}, nil
		},
	}
	r, err := NewHoldingReader(mock, &staticPrice{price: decimal.Zero}, testMint)
	require.NoError(t, err)

	assert.True(t, r.HoldingValueUSD(context.Background(), newTestWallet()).IsZero())
}

func TestNewHoldingReader_InvalidMint(t *testing.T) {
	_, err := NewHoldingReader(&mockTokenRPC{}, &staticPrice{}, "bad mint")
	assert.Error(t, err)
}

func TestParseTokenAmount_UIAmountFallback(t *testing.T) {
	got, err := parseTokenAmount(json.RawMessage(`{"parsed":{"info":{"tokenAmount":{"uiAmountString":"12.5"}}}}`))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")))
}
