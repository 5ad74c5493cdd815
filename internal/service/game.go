package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"snakepill/internal/chain"
	"snakepill/internal/model"
	"snakepill/internal/pkg/lock"
	"snakepill/internal/repository"
)

// OnlineWindow is how recent a heartbeat must be for a session to count as online.
const OnlineWindow = 2 * time.Minute

// walletLockTimeout bounds how long a player mutation waits behind another one
// for the same wallet.
const walletLockTimeout = 5 * time.Second

// Playtime bonuses added on top of the score.
const (
	bonusMinuteSeconds = 60
	bonusMinutePoints  = 100
	bonusLongSeconds   = 300
	bonusLongPoints    = 500
)

// CalculatePoints converts a finished game into points: the score plus 100
// for a game of at least a minute and another 500 for five minutes or more.
func CalculatePoints(score, playtimeSeconds int64) int64 {
	points := score
	if playtimeSeconds >= bonusMinuteSeconds {
		points += bonusMinutePoints
	}
	if playtimeSeconds >= bonusLongSeconds {
		points += bonusLongPoints
	}
	return points
}

// StartResult is returned when a game starts.
type StartResult struct {
	SessionID     string        `json:"sessionId"`
	GameSessionID uuid.UUID     `json:"gameSessionId"`
	Player        *model.Player `json:"player"`
}

// EndRequest carries a finished game's result.
type EndRequest struct {
	SessionID       string
	GameSessionID   uuid.UUID
	Score           int64
	PlaytimeSeconds int64
	PillsEaten      int64
	Reason          string
}

// EndResult is returned when a game ends.
type EndResult struct {
	Session      *model.GameSession `json:"session"`
	Player       *model.Player      `json:"player,omitempty"`
	PointsEarned int64              `json:"pointsEarned"`
}

// GameService handles the game session lifecycle, online presence and the leaderboard.
type GameService struct {
	players     PlayerStore
	sessions    SessionStore
	leaderboard LeaderboardStore
	online      OnlineStore
	walletLock  *lock.WalletLock
	clock       clockwork.Clock
}

// NewGameService creates a new GameService.
func NewGameService(
	players PlayerStore,
	sessions SessionStore,
	leaderboard LeaderboardStore,
	online OnlineStore,
	walletLock *lock.WalletLock,
	clock clockwork.Clock,
) *GameService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GameService{
		players:     players,
		sessions:    sessions,
		leaderboard: leaderboard,
		online:      online,
		walletLock:  walletLock,
		clock:       clock,
	}
}

// Start opens a game session. A valid wallet gets a player record on first
// play; an empty or invalid wallet plays anonymously.
func (s *GameService) Start(ctx context.Context, wallet string) (*StartResult, error) {
	var (
		player   *model.Player
		playerID *uuid.UUID
		walletP  *string
	)

	if wallet != "" && chain.IsValidAddress(wallet) {
		p, created, err := s.players.GetOrCreate(ctx, wallet)
		if err != nil {
			return nil, fmt.Errorf("failed to get player: %w", err)
		}
		if created {
			log.Info().Str("wallet", wallet).Msg("New player")
		}
		player = p
		playerID = &p.ID
		walletP = &p.WalletAddress
	}

	session, err := s.sessions.Create(ctx, playerID, walletP)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sessionID := uuid.NewString()
	if err := s.online.Touch(ctx, sessionID, walletP, true, s.clock.Now()); err != nil {
		return nil, err
	}

	return &StartResult{
		SessionID:     sessionID,
		GameSessionID: session.ID,
		Player:        player,
	}, nil
}

// End closes a session and, when it was started with a wallet, credits
// points, playtime and a leaderboard entry to that wallet. The wallet is
// taken from the stored session, not from the request.
func (s *GameService) End(ctx context.Context, req EndRequest) (*EndResult, error) {
	if req.Score < 0 || req.PlaytimeSeconds < 0 || req.PillsEaten < 0 {
		return nil, ErrInvalidResult
	}

	session, err := s.sessions.End(ctx, req.GameSessionID, req.Score, req.PlaytimeSeconds, req.PillsEaten, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	if req.SessionID != "" {
		if err := s.online.Remove(ctx, req.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", req.SessionID).Msg("Failed to remove online session")
		}
	}

	result := &EndResult{Session: session}
	if session.WalletAddress == nil || *session.WalletAddress == "" {
		return result, nil
	}
	wallet := *session.WalletAddress
	points := CalculatePoints(req.Score, req.PlaytimeSeconds)

	err = s.walletLock.WithLockContext(ctx, wallet, walletLockTimeout, func() error {
		p, err := s.players.AddSessionResult(ctx, wallet, points, req.PlaytimeSeconds, req.Score)
		if err != nil {
			return err
		}
		result.Player = p
		result.PointsEarned = points
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to credit session: %w", err)
	}

	if _, err := s.leaderboard.Record(ctx, result.Player, req.Score, req.PlaytimeSeconds); err != nil {
		log.Warn().Err(err).Str("wallet", wallet).Msg("Failed to record leaderboard entry")
	}

	log.Debug().
		Str("wallet", wallet).
		Int64("score", req.Score).
		Int64("points", points).
		Int64("playtime", req.PlaytimeSeconds).
		Msg("Game ended")

	return result, nil
}

// Heartbeat marks a browser session as online.
func (s *GameService) Heartbeat(ctx context.Context, sessionID, wallet string, isPlaying bool) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	var walletP *string
	if wallet != "" {
		walletP = &wallet
	}
	return s.online.Touch(ctx, sessionID, walletP, isPlaying, s.clock.Now())
}

// OnlineCount returns the number of sessions seen within OnlineWindow.
func (s *GameService) OnlineCount(ctx context.Context) (int64, error) {
	return s.online.CountSince(ctx, s.clock.Now().Add(-OnlineWindow))
}

// CleanupOffline removes sessions not seen within OnlineWindow.
func (s *GameService) CleanupOffline(ctx context.Context) (int64, error) {
	n, err := s.online.RemoveSeenBefore(ctx, s.clock.Now().Add(-OnlineWindow))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("Removed offline sessions")
	}
	return n, nil
}

// Leaderboard returns the top scores.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	return s.leaderboard.Top(ctx, limit)
}

// PlayerStats returns a player's record by wallet.
func (s *GameService) PlayerStats(ctx context.Context, wallet string) (*model.Player, error) {
	if !chain.IsValidAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	p, err := s.players.GetByWallet(ctx, wallet)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}
