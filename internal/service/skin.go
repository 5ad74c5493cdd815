package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"snakepill/internal/chain"
	"snakepill/internal/model"
	"snakepill/internal/pkg/lock"
	"snakepill/internal/repository"
)

// SkinService handles the skin catalog, purchases and equipping.
type SkinService struct {
	players    PlayerStore
	skins      SkinStore
	walletLock *lock.WalletLock
}

// NewSkinService creates a new SkinService.
func NewSkinService(players PlayerStore, skins SkinStore, walletLock *lock.WalletLock) *SkinService {
	return &SkinService{players: players, skins: skins, walletLock: walletLock}
}

// Catalog returns all skins, cheapest first.
func (s *SkinService) Catalog(ctx context.Context) ([]*model.Skin, error) {
	return s.skins.List(ctx)
}

// Buy spends points on a skin the player does not own yet.
func (s *SkinService) Buy(ctx context.Context, wallet, skinID string) (*model.Player, error) {
	if err := validateSkinRequest(wallet, skinID); err != nil {
		return nil, err
	}

	skin, err := s.skins.GetByID(ctx, skinID)
	if err != nil {
		if errors.Is(err, repository.ErrSkinNotFound) {
			return nil, ErrSkinNotFound
		}
		return nil, fmt.Errorf("failed to get skin: %w", err)
	}

	var player *model.Player
	err = s.walletLock.WithLockContext(ctx, wallet, walletLockTimeout, func() error {
		p, err := s.players.GetByWallet(ctx, wallet)
		if err != nil {
			return err
		}
		if p.OwnsSkin(skinID) {
			return ErrSkinAlreadyOwned
		}
		if p.TotalPoints < skin.CostPoints {
			return ErrNotEnoughPoints
		}

		player, err = s.players.PurchaseSkin(ctx, wallet, skinID, skin.CostPoints)
		if errors.Is(err, repository.ErrPurchaseRejected) {
			// Lost a race with another writer; the checks above no longer hold.
			return ErrNotEnoughPoints
		}
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	log.Info().Str("wallet", wallet).Str("skin", skinID).Int64("cost", skin.CostPoints).Msg("Skin purchased")
	return player, nil
}

// Equip sets the player's current skin to one they own.
func (s *SkinService) Equip(ctx context.Context, wallet, skinID string) (*model.Player, error) {
	if err := validateSkinRequest(wallet, skinID); err != nil {
		return nil, err
	}

	var player *model.Player
	err := s.walletLock.WithLockContext(ctx, wallet, walletLockTimeout, func() error {
		p, err := s.players.GetByWallet(ctx, wallet)
		if err != nil {
			return err
		}
		if !p.OwnsSkin(skinID) {
			return ErrSkinNotOwned
		}
		player, err = s.players.UpdatePlayer(ctx, wallet, model.PlayerUpdate{CurrentSkin: &skinID})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func validateSkinRequest(wallet, skinID string) error {
	if !chain.IsValidAddress(wallet) {
		return ErrInvalidWallet
	}
	if skinID == "" {
		return ErrSkinRequired
	}
	return nil
}
