package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/models"
)

type fakePayoutAdminStore struct {
	*fakePayoutStore
	created []models.PayoutWallet
}

func (f *fakePayoutAdminStore) Create(ctx context.Context, w *models.PayoutWallet) error {
	w.ID = uuid.New()
	w.IsActive = true
	f.created = append(f.created, *w)
	return nil
}

func (f *fakePayoutAdminStore) SetDefault(ctx context.Context, id uuid.UUID) error {
	for _, w := range f.created {
		if w.ID == id {
			f.setDefault(w.Asset, w.Address)
		}
	}
	return nil
}

func (f *fakePayoutAdminStore) List(ctx context.Context) ([]models.PayoutWallet, error) {
	return f.created, nil
}

func (f *fakePayoutAdminStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	return nil
}

func newWalletService() (*WalletService, *fakeWalletStore, *fakePayoutAdminStore) {
	wallets := newFakeWalletStore()
	payouts := &fakePayoutAdminStore{fakePayoutStore: newFakePayoutStore()}
	return NewWalletService(wallets, payouts, &fakeAuditStore{}, zap.NewNop()), wallets, payouts
}

func TestAddWalletValidatesAddress(t *testing.T) {
	svc, _, _ := newWalletService()
	ctx := context.Background()
	userID := uuid.New()

	w, err := svc.AddWallet(ctx, userID, models.AssetBTC, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	if err != nil {
		t.Fatalf("AddWallet: %v", err)
	}
	if !w.IsActive {
		t.Error("new wallet not active")
	}

	if _, err := svc.AddWallet(ctx, userID, models.AssetBTC, "not-an-address"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("garbage address: err = %v, want ErrInvalidAddress", err)
	}
	// LTC address on a BTC registration.
	if _, err := svc.AddWallet(ctx, userID, models.AssetBTC, "LM2WMpR1Rp6j3Sa59cMXMs1SPzj9eXpGc1"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("cross-asset address: err = %v, want ErrInvalidAddress", err)
	}
	if _, err := svc.AddWallet(ctx, userID, "XMR", "whatever"); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("bad asset: err = %v, want ErrInvalidAsset", err)
	}
}

func TestRemoveWalletOwnership(t *testing.T) {
	svc, _, _ := newWalletService()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	w, err := svc.AddWallet(ctx, owner, models.AssetBTC, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	if err != nil {
		t.Fatalf("AddWallet: %v", err)
	}

	if err := svc.RemoveWallet(ctx, other, w.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("foreign remove: err = %v, want ErrNotAuthorized", err)
	}
	if err := svc.RemoveWallet(ctx, owner, w.ID); err != nil {
		t.Fatalf("RemoveWallet: %v", err)
	}
	left, _ := svc.ListWallets(ctx, owner, nil)
	if len(left) != 0 {
		t.Errorf("active wallets = %d, want 0", len(left))
	}
}

func TestAddPayoutWalletDefault(t *testing.T) {
	svc, _, payouts := newWalletService()
	ctx := context.Background()
	admin := uuid.New()

	w, err := svc.AddPayoutWallet(ctx, admin, models.AssetBTC, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", nil, true)
	if err != nil {
		t.Fatalf("AddPayoutWallet: %v", err)
	}
	if !w.IsDefault {
		t.Error("wallet not marked default")
	}

	got, err := payouts.GetDefault(ctx, models.AssetBTC)
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if got.Address != w.Address {
		t.Errorf("default address = %s, want %s", got.Address, w.Address)
	}
}
