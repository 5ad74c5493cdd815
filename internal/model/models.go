// Package model defines the data models for the snakepill backend.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultSkin is owned by every player from creation.
const DefaultSkin = "classic"

// Player represents a wallet-identified player.
type Player struct {
	ID                   uuid.UUID  `json:"id"`
	WalletAddress        string     `json:"wallet_address"`
	Username             *string    `json:"username"`
	TotalPoints          int64      `json:"total_points"`
	TotalPlaytimeSeconds int64      `json:"total_playtime_seconds"`
	GamesPlayed          int64      `json:"games_played"`
	HighestScore         int64      `json:"highest_score"`
	CurrentSkin          string     `json:"current_skin"`
	OwnedSkins           []string   `json:"owned_skins"`
	IsEligible           bool       `json:"is_eligible"`
	EligibleSince        *time.Time `json:"eligible_since"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// OwnsSkin reports whether the skin is in the player's collection.
func (p *Player) OwnsSkin(skinID string) bool {
	for _, s := range p.OwnedSkins {
		if s == skinID {
			return true
		}
	}
	return false
}

// PlayerUpdate is a partial update of a player row; nil fields are left unchanged.
type PlayerUpdate struct {
	TotalPoints          *int64
	TotalPlaytimeSeconds *int64
	GamesPlayed          *int64
	HighestScore         *int64
	CurrentSkin          *string
	OwnedSkins           []string
	IsEligible           *bool
	EligibleSince        *time.Time
	ClearEligibleSince   bool
}

// IsEmpty reports whether the update would change nothing.
func (u *PlayerUpdate) IsEmpty() bool {
	return u.TotalPoints == nil && u.TotalPlaytimeSeconds == nil && u.GamesPlayed == nil &&
		u.HighestScore == nil && u.CurrentSkin == nil && u.OwnedSkins == nil &&
		u.IsEligible == nil && u.EligibleSince == nil && !u.ClearEligibleSince
}

// EligibilityRecord is the reconciler's last verdict for a wallet.
type EligibilityRecord struct {
	ID                   int64           `json:"id"`
	PlayerID             uuid.UUID       `json:"player_id"`
	WalletAddress        string          `json:"wallet_address"`
	HoldingUSD           decimal.Decimal `json:"holding_usd"`
	TotalPlaytimeSeconds int64           `json:"total_playtime_seconds"`
	IsActive             bool            `json:"is_active"`
	LastVerifiedAt       time.Time       `json:"last_verified_at"`
}

// EligiblePlayer is an active eligibility record joined with its player.
type EligiblePlayer struct {
	EligibilityRecord
	Player *Player `json:"players"`
}

// DistributionLog is the audit row written once per distribution run.
type DistributionLog struct {
	ID                 int64           `json:"id"`
	TotalTaxSOL        decimal.Decimal `json:"total_tax_sol"`
	DistributionAmount decimal.Decimal `json:"distribution_amount"`
	RecipientsCount    int             `json:"recipients_count"`
	AmountPerRecipient decimal.Decimal `json:"amount_per_recipient"`
	TxSignatures       []string        `json:"tx_signatures"`
	CreatedAt          time.Time       `json:"created_at"`
}

// GameSession is one play of the game.
type GameSession struct {
	ID              uuid.UUID  `json:"id"`
	PlayerID        *uuid.UUID `json:"player_id"`
	WalletAddress   *string    `json:"wallet_address"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	Score           int64      `json:"score"`
	PlaytimeSeconds int64      `json:"playtime_seconds"`
	PillsEaten      int64      `json:"pills_eaten"`
	GameOverReason  *string    `json:"game_over_reason"`
}

// LeaderboardEntry is a recorded score for a wallet-connected session.
type LeaderboardEntry struct {
	ID              int64     `json:"id"`
	PlayerID        uuid.UUID `json:"player_id"`
	WalletAddress   string    `json:"wallet_address"`
	Username        *string   `json:"username"`
	Score           int64     `json:"score"`
	PlaytimeSeconds int64     `json:"playtime_seconds"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// Skin is a cosmetic that can be bought with points.
type Skin struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CostPoints     int64  `json:"cost_points"`
	Description    string `json:"description"`
	ColorPrimary   string `json:"color_primary"`
	ColorSecondary string `json:"color_secondary"`
	IsAnimated     bool   `json:"is_animated"`
}

// Donation is an incoming SOL donation.
type Donation struct {
	ID            uuid.UUID       `json:"id"`
	WalletAddress string          `json:"wallet_address"`
	AmountSOL     decimal.Decimal `json:"amount_sol"`
	TxSignature   string          `json:"tx_signature"`
	Message       *string         `json:"message"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SystemStatus holds the derived global counters.
type SystemStatus struct {
	TotalPlayers        int64           `json:"total_players"`
	TotalGames          int64           `json:"total_games"`
	TotalEligible       int64           `json:"total_eligible"`
	TotalDistributedSOL decimal.Decimal `json:"total_distributed_sol"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
