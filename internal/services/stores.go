package services

import (
	"context"
	"time"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/google/uuid"
)

// Store interfaces mirror the pgx repositories so the lifecycle engine can be
// exercised against in-memory fakes. Conditional transitions report a miss as
// (false, nil), never as an error.

type DealStore interface {
	Create(ctx context.Context, d *models.Deal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	GetByNumber(ctx context.Context, number string) (*models.Deal, error)
	List(ctx context.Context, f repositories.DealFilter) ([]models.Deal, error)
	ClaimRole(ctx context.Context, id uuid.UUID, role string, userID uuid.UUID) (bool, error)
	SetEscrow(ctx context.Context, id uuid.UUID, address, privateKeyEnc string) (bool, error)
	MarkWaitingPayment(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error)
	MarkFunded(ctx context.Context, id uuid.UUID, confirmations int, deposit *models.Transaction) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
	SetDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	ClearDisputed(ctx context.Context, id uuid.UUID) (bool, error)
	ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time, timeoutMinutes int) (bool, error)
	SetReminded(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Deal, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Deal, error)
	ListNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]models.Deal, error)
	ReleaseWithBroadcast(ctx context.Context, p repositories.ReleaseParams, broadcast func(ctx context.Context) (string, error)) (bool, error)
}

type WalletStore interface {
	Add(ctx context.Context, w *models.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID, asset *models.Asset) ([]models.Wallet, error)
	Deactivate(ctx context.Context, userID, walletID uuid.UUID) error
	BindDealWallet(ctx context.Context, dw *models.DealWallet) (bool, error)
	GetDealWallet(ctx context.Context, dealID uuid.UUID, role string) (*models.DealWalletWithAddress, error)
	ListDealWallets(ctx context.Context, dealID uuid.UUID) ([]models.DealWalletWithAddress, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error)
	ListPending(ctx context.Context, limit int) ([]models.Transaction, error)
	UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations int, status string) error
}

type PayoutStore interface {
	GetDefault(ctx context.Context, asset models.Asset) (*models.PayoutWallet, error)
}

type ReferralStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralGroup, error)
	GetByCode(ctx context.Context, code string) (*models.ReferralGroup, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}
