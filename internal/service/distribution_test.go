package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakepill/internal/config"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDistribution(store *memStore, payer *fakePayer) *DistributionService {
	return NewDistributionService(store, store, payer, &config.DistributionConfig{
		Rate:            0.001,
		FeeBuffer:       0.01,
		MinPerRecipient: 0.001,
	}, clockwork.NewFakeClock())
}

// seedEligible adds n players with active eligibility records and returns their wallets in load order.
func seedEligible(store *memStore, n int) []string {
	wallets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := store.addPlayer(newWallet(), 600, true)
		store.addActiveRecord(p, dec("10"))
		wallets = append(wallets, p.WalletAddress)
	}
	return wallets
}

func TestDistribute_EvenSplit(t *testing.T) {
	store := newMemStore()
	wallets := seedEligible(store, 10)
	payer := &fakePayer{balance: dec("2")}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Reason)
	assert.True(t, res.Pool.Equal(dec("1")), "pool = %s", res.Pool)
	assert.True(t, res.PerRecipient.Equal(dec("0.1")), "per recipient = %s", res.PerRecipient)
	assert.Equal(t, 10, res.SuccessCount)
	assert.Equal(t, 0, res.FailCount)
	assert.Len(t, res.Signatures, 10)

	assert.Equal(t, wallets, payer.sent, "paid in load order")
	for _, amt := range payer.amounts {
		assert.True(t, amt.Equal(dec("0.1")))
	}

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.True(t, entry.TotalTaxSOL.Equal(dec("1000")))
	assert.True(t, entry.DistributionAmount.Equal(dec("1")))
	assert.Equal(t, 10, entry.RecipientsCount)
	assert.Equal(t, res.Signatures, entry.TxSignatures)
	require.NotNil(t, res.DistributionLog)
	assert.Equal(t, entry.ID, *res.DistributionLog)
}

func TestDistribute_InsufficientBalance(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 3)
	payer := &fakePayer{balance: dec("0.5")}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, ReasonInsufficientBalance, res.Reason)
	assert.True(t, res.Balance.Equal(dec("0.5")))
	assert.True(t, res.Required.Equal(dec("1.01")))
	assert.Empty(t, payer.sent)
	assert.Empty(t, store.logs)
}

func TestDistribute_BalanceExactlyRequired(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 2)
	payer := &fakePayer{balance: dec("1.01")}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, payer.sent, 2)
}

func TestDistribute_NoEligiblePlayers(t *testing.T) {
	store := newMemStore()
	// Inactive records are not recipients.
	p := store.addPlayer(newWallet(), 600, false)
	store.addActiveRecord(p, dec("10"))
	require.NoError(t, store.RemovePlayerEligibility(context.Background(), p.WalletAddress))

	payer := &fakePayer{balance: dec("5")}
	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, ReasonNoEligiblePlayers, res.Reason)
	assert.Equal(t, 0, res.EligibleCount)
	assert.Empty(t, payer.sent)
	assert.Empty(t, store.logs)
}

func TestDistribute_AmountTooSmall(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 10)
	payer := &fakePayer{balance: dec("1")}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("0.5"))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, ReasonAmountTooSmall, res.Reason)
	assert.True(t, res.Pool.Equal(dec("0.0005")))
	assert.True(t, res.PerRecipient.Equal(dec("0.00005")))
	assert.Empty(t, payer.sent)
	assert.Empty(t, store.logs)
}

func TestDistribute_PartialFailure(t *testing.T) {
	store := newMemStore()
	wallets := seedEligible(store, 5)
	payer := &fakePayer{
		balance: dec("10"),
		fail:    map[string]bool{wallets[1]: true, wallets[3]: true},
	}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 2, res.FailCount)
	assert.Len(t, res.Signatures, 3)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, wallets[1], res.Failures[0].Wallet)
	assert.Equal(t, wallets[3], res.Failures[1].Wallet)
	assert.Len(t, payer.sent, 5, "every recipient attempted")

	require.Len(t, store.logs, 1)
	assert.Equal(t, 3, store.logs[0].RecipientsCount)
	assert.Len(t, store.logs[0].TxSignatures, 3)
}

func TestDistribute_CompletesAfterCancel(t *testing.T) {
	store := newMemStore()
	wallets := seedEligible(store, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	payer := &fakePayer{
		balance: dec("10"),
		afterSend: func(n int) {
			if n == 1 {
				cancel()
			}
		},
	}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(ctx, dec("1000"))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 5, res.SuccessCount)
	assert.Empty(t, res.Failures)
	assert.Equal(t, wallets, payer.sent)

	require.Len(t, store.logs, 1, "run is logged even though the caller went away")
	assert.Equal(t, 5, store.logs[0].RecipientsCount)
	require.NotNil(t, res.DistributionLog)
}

func TestDistribute_PacesEveryTransfer(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 3)
	payer := &fakePayer{balance: dec("10")}

	svc := NewDistributionService(store, store, payer, &config.DistributionConfig{
		Rate:               0.001,
		FeeBuffer:          0.01,
		MinPerRecipient:    0.001,
		TransfersPerSecond: 20,
	}, clockwork.NewFakeClock())
	_, err := svc.Distribute(context.Background(), dec("1000"))
	require.NoError(t, err)

	require.Len(t, payer.sentAt, 3)
	for i := 1; i < len(payer.sentAt); i++ {
		gap := payer.sentAt[i].Sub(payer.sentAt[i-1])
		assert.GreaterOrEqual(t, gap, 40*time.Millisecond, "gap %d->%d", i, i+1)
	}
}

func TestDistribute_TruncatesToLamports(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 3)
	payer := &fakePayer{balance: dec("10")}

	svc := newTestDistribution(store, payer)
	res, err := svc.Distribute(context.Background(), dec("8384"))
	require.NoError(t, err)
	require.True(t, res.Success)

	// 8.384 / 3 = 2.794666666..., floored to nine places.
	assert.True(t, res.PerRecipient.Equal(dec("2.794666666")), "per recipient = %s", res.PerRecipient)
	for _, amt := range payer.amounts {
		assert.True(t, amt.Equal(res.PerRecipient))
	}
	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].AmountPerRecipient.Equal(dec("2.794666666")))
}

func TestDistribute_InvalidTax(t *testing.T) {
	store := newMemStore()
	payer := &fakePayer{balance: dec("10")}
	svc := newTestDistribution(store, payer)

	for _, tax := range []string{"0", "-1"} {
		_, err := svc.Distribute(context.Background(), dec(tax))
		assert.ErrorIs(t, err, ErrInvalidTaxAmount, tax)
	}
}

func TestDistribute_Stats(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 4)
	payer := &fakePayer{balance: dec("3.25")}

	svc := newTestDistribution(store, payer)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.EligibleCount)
	assert.True(t, stats.WalletBalance.Equal(dec("3.25")))
	assert.True(t, stats.DistributionPercentage.Equal(dec("0.1")))
}

func TestDistribute_History(t *testing.T) {
	store := newMemStore()
	seedEligible(store, 2)
	payer := &fakePayer{balance: dec("100")}
	svc := newTestDistribution(store, payer)
	ctx := context.Background()

	empty, err := svc.History(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, tax := range []string{"1000", "2000", "3000"} {
		_, err := svc.Distribute(ctx, dec(tax))
		require.NoError(t, err)
	}

	logs, err := svc.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].TotalTaxSOL.Equal(dec("3000")))
	assert.True(t, logs[1].TotalTaxSOL.Equal(dec("2000")))
}

func TestTransferFailure_MarshalJSON(t *testing.T) {
	b, err := TransferFailure{Wallet: "abc", Err: assert.AnError}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"wallet":"abc","error":"`+assert.AnError.Error()+`"}`, string(b))
}
