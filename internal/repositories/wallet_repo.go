package repositories

import (
	"context"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// --- User Wallets ---

func (r *WalletRepo) Add(ctx context.Context, w *models.Wallet) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO wallets (user_id, asset, address, is_active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (user_id, asset, address) DO UPDATE SET is_active = true
		RETURNING id, created_at, is_active
	`, w.UserID, w.Asset, w.Address).Scan(&w.ID, &w.CreatedAt, &w.IsActive)
}

func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, asset, address, is_active, created_at
		FROM wallets WHERE id = $1
	`, id).Scan(&w.ID, &w.UserID, &w.Asset, &w.Address, &w.IsActive, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID, asset *models.Asset) ([]models.Wallet, error) {
	query := `
		SELECT id, user_id, asset, address, is_active, created_at
		FROM wallets WHERE user_id = $1 AND is_active = true`
	args := []any{userID}
	if asset != nil {
		query += ` AND asset = $2`
		args = append(args, *asset)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Asset, &w.Address, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (r *WalletRepo) Deactivate(ctx context.Context, userID, walletID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE wallets SET is_active = false WHERE id = $1 AND user_id = $2
	`, walletID, userID)
	return err
}

// --- Deal Wallets ---

// BindDealWallet binds a wallet to a deal role. The unique (deal_id, role)
// index makes the first binder win; a conflict returns false.
func (r *WalletRepo) BindDealWallet(ctx context.Context, dw *models.DealWallet) (bool, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deal_wallets (deal_id, wallet_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (deal_id, role) DO NOTHING
		RETURNING id, bound_at
	`, dw.DealID, dw.WalletID, dw.Role).Scan(&dw.ID, &dw.BoundAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *WalletRepo) GetDealWallet(ctx context.Context, dealID uuid.UUID, role string) (*models.DealWalletWithAddress, error) {
	var dw models.DealWalletWithAddress
	err := r.pool.QueryRow(ctx, `
		SELECT dw.id, dw.deal_id, dw.wallet_id, dw.role, dw.bound_at, w.address, w.user_id
		FROM deal_wallets dw
		JOIN wallets w ON w.id = dw.wallet_id
		WHERE dw.deal_id = $1 AND dw.role = $2
	`, dealID, role).Scan(&dw.ID, &dw.DealID, &dw.WalletID, &dw.Role, &dw.BoundAt, &dw.Address, &dw.UserID)
	if err != nil {
		return nil, err
	}
	return &dw, nil
}

func (r *WalletRepo) ListDealWallets(ctx context.Context, dealID uuid.UUID) ([]models.DealWalletWithAddress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT dw.id, dw.deal_id, dw.wallet_id, dw.role, dw.bound_at, w.address, w.user_id
		FROM deal_wallets dw
		JOIN wallets w ON w.id = dw.wallet_id
		WHERE dw.deal_id = $1
		ORDER BY dw.role
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DealWalletWithAddress
	for rows.Next() {
		var dw models.DealWalletWithAddress
		if err := rows.Scan(&dw.ID, &dw.DealID, &dw.WalletID, &dw.Role, &dw.BoundAt, &dw.Address, &dw.UserID); err != nil {
			return nil, err
		}
		out = append(out, dw)
	}
	return out, rows.Err()
}
