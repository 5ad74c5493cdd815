package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"snakepill/internal/model"
)

// The interfaces below are the slices of the repositories each service uses.
// The repository types in internal/repository satisfy them.

// PlayerStore reads and updates players.
type PlayerStore interface {
	GetByWallet(ctx context.Context, wallet string) (*model.Player, error)
	GetOrCreate(ctx context.Context, wallet string) (*model.Player, bool, error)
	GetPlayersWithMinPlaytime(ctx context.Context, seconds int64) ([]*model.Player, error)
	UpdatePlayer(ctx context.Context, wallet string, upd model.PlayerUpdate) (*model.Player, error)
	AddSessionResult(ctx context.Context, wallet string, points, playtimeSeconds, score int64) (*model.Player, error)
	PurchaseSkin(ctx context.Context, wallet, skinID string, cost int64) (*model.Player, error)
}

// EligibilityStore persists reconciler verdicts.
type EligibilityStore interface {
	SetPlayerEligible(ctx context.Context, playerID uuid.UUID, wallet string, holdingUSD decimal.Decimal, playtimeSeconds int64) (*model.EligibilityRecord, error)
	RemovePlayerEligibility(ctx context.Context, wallet string) error
	GetEligiblePlayers(ctx context.Context) ([]*model.EligiblePlayer, error)
	CountActive(ctx context.Context) (int64, error)
}

// DistributionLogger writes the distribution audit log.
type DistributionLogger interface {
	LogTaxDistribution(ctx context.Context, totalTax, pool decimal.Decimal, successCount int, perRecipient decimal.Decimal, signatures []string) (*model.DistributionLog, error)
	GetRecent(ctx context.Context, limit int) ([]*model.DistributionLog, error)
}

// SessionStore persists game sessions.
type SessionStore interface {
	Create(ctx context.Context, playerID *uuid.UUID, wallet *string) (*model.GameSession, error)
	End(ctx context.Context, id uuid.UUID, score, playtimeSeconds, pillsEaten int64, reason string) (*model.GameSession, error)
}

// LeaderboardStore records and ranks finished sessions.
type LeaderboardStore interface {
	Record(ctx context.Context, player *model.Player, score, playtimeSeconds int64) (*model.LeaderboardEntry, error)
	Top(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
}

// OnlineStore tracks browser heartbeats.
type OnlineStore interface {
	Touch(ctx context.Context, sessionID string, wallet *string, isPlaying bool, seenAt time.Time) error
	Remove(ctx context.Context, sessionID string) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
	RemoveSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SkinStore reads the skin catalog.
type SkinStore interface {
	List(ctx context.Context) ([]*model.Skin, error)
	GetByID(ctx context.Context, id string) (*model.Skin, error)
}

// StatusStore maintains global counters.
type StatusStore interface {
	Refresh(ctx context.Context) error
	Get(ctx context.Context) (*model.SystemStatus, error)
}

// DonationStore lists and records donations.
type DonationStore interface {
	Record(ctx context.Context, wallet string, amount decimal.Decimal, signature string, message *string) (bool, error)
	List(ctx context.Context, limit int) ([]*model.Donation, error)
}

// HoldingChecker values a wallet's token holdings in USD. It never fails.
type HoldingChecker interface {
	HoldingValueUSD(ctx context.Context, wallet string) decimal.Decimal
}

// Payer moves SOL out of the distributor wallet.
type Payer interface {
	DistributorBalance(ctx context.Context) decimal.Decimal
	SendPayment(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}
