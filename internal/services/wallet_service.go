package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/keycustody"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
)

// PayoutWalletStore is the admin-facing superset of PayoutStore.
type PayoutWalletStore interface {
	PayoutStore
	Create(ctx context.Context, w *models.PayoutWallet) error
	SetDefault(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.PayoutWallet, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// WalletService manages user wallets and the platform payout wallets.
type WalletService struct {
	wallets WalletStore
	payouts PayoutWalletStore
	audit   AuditStore
	log     *zap.Logger
}

func NewWalletService(wallets WalletStore, payouts PayoutWalletStore, audit AuditStore, log *zap.Logger) *WalletService {
	return &WalletService{wallets: wallets, payouts: payouts, audit: audit, log: log}
}

// AddWallet registers a receiving address for the user after validating it
// against the asset's address formats.
func (s *WalletService) AddWallet(ctx context.Context, userID uuid.UUID, asset models.Asset, address string) (*models.Wallet, error) {
	if !asset.Valid() {
		return nil, ErrInvalidAsset
	}
	if err := keycustody.ValidateAddress(address, asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	wallet := &models.Wallet{
		UserID:  userID,
		Asset:   asset,
		Address: address,
	}
	if err := s.wallets.Add(ctx, wallet); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   ActorUser,
		Action:      "wallet_added",
		EntityType:  "wallet",
		EntityID:    &wallet.ID,
		Meta:        map[string]any{"asset": asset, "address": address},
	})
	return wallet, nil
}

func (s *WalletService) ListWallets(ctx context.Context, userID uuid.UUID, asset *models.Asset) ([]models.Wallet, error) {
	return s.wallets.ListByUser(ctx, userID, asset)
}

func (s *WalletService) RemoveWallet(ctx context.Context, userID, walletID uuid.UUID) error {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrWalletNotFound
		}
		return err
	}
	if wallet.UserID != userID {
		return ErrNotAuthorized
	}
	return s.wallets.Deactivate(ctx, userID, walletID)
}

// --- Platform payout wallets (admin only) ---

func (s *WalletService) AddPayoutWallet(ctx context.Context, adminID uuid.UUID, asset models.Asset, address string, label *string, makeDefault bool) (*models.PayoutWallet, error) {
	if !asset.Valid() {
		return nil, ErrInvalidAsset
	}
	if err := keycustody.ValidateAddress(address, asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	wallet := &models.PayoutWallet{
		Asset:   asset,
		Address: address,
		Label:   label,
	}
	if err := s.payouts.Create(ctx, wallet); err != nil {
		return nil, err
	}
	if makeDefault {
		if err := s.payouts.SetDefault(ctx, wallet.ID); err != nil {
			return nil, err
		}
		wallet.IsDefault = true
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   ActorAdmin,
		Action:      "payout_wallet_added",
		EntityType:  "payout_wallet",
		EntityID:    &wallet.ID,
		Meta:        map[string]any{"asset": asset, "address": address, "default": makeDefault},
	})
	s.log.Info("payout wallet added",
		zap.String("asset", string(asset)),
		zap.String("address", address),
	)
	return wallet, nil
}

func (s *WalletService) SetDefaultPayoutWallet(ctx context.Context, adminID, walletID uuid.UUID) error {
	if err := s.payouts.SetDefault(ctx, walletID); err != nil {
		return err
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   ActorAdmin,
		Action:      "payout_wallet_default_changed",
		EntityType:  "payout_wallet",
		EntityID:    &walletID,
	})
	return nil
}

func (s *WalletService) ListPayoutWallets(ctx context.Context) ([]models.PayoutWallet, error) {
	return s.payouts.List(ctx)
}

func (s *WalletService) DeactivatePayoutWallet(ctx context.Context, adminID, walletID uuid.UUID) error {
	if err := s.payouts.Deactivate(ctx, walletID); err != nil {
		return err
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   ActorAdmin,
		Action:      "payout_wallet_deactivated",
		EntityType:  "payout_wallet",
		EntityID:    &walletID,
	})
	return nil
}
