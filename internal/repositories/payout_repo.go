package repositories

import (
	"context"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const payoutColumns = `id, asset, address, label, is_active, is_default, created_at, updated_at`

func scanPayoutWallet(row pgx.Row) (*models.PayoutWallet, error) {
	var w models.PayoutWallet
	err := row.Scan(&w.ID, &w.Asset, &w.Address, &w.Label, &w.IsActive, &w.IsDefault, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

type PayoutRepo struct {
	pool *pgxpool.Pool
}

func NewPayoutRepo(pool *pgxpool.Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

func (r *PayoutRepo) Create(ctx context.Context, w *models.PayoutWallet) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payout_wallets (asset, address, label, is_active, is_default)
		VALUES ($1, $2, $3, true, $4)
		RETURNING id, created_at, updated_at
	`, w.Asset, w.Address, w.Label, w.IsDefault).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

// SetDefault makes the wallet the single default for its asset. The partial
// unique index on (asset) WHERE is_default backs this up; clearing first in
// the same transaction avoids tripping it.
func (r *PayoutRepo) SetDefault(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE payout_wallets SET is_default = false, updated_at = now()
		WHERE asset = (SELECT asset FROM payout_wallets WHERE id = $1) AND is_default = true
	`, id)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE payout_wallets SET is_default = true, is_active = true, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PayoutRepo) GetDefault(ctx context.Context, asset models.Asset) (*models.PayoutWallet, error) {
	return scanPayoutWallet(r.pool.QueryRow(ctx, `
		SELECT `+payoutColumns+` FROM payout_wallets
		WHERE asset = $1 AND is_default = true AND is_active = true
	`, asset))
}

func (r *PayoutRepo) List(ctx context.Context) ([]models.PayoutWallet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+payoutColumns+` FROM payout_wallets ORDER BY asset, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []models.PayoutWallet
	for rows.Next() {
		w, err := scanPayoutWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

func (r *PayoutRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payout_wallets SET is_active = false, is_default = false, updated_at = now() WHERE id = $1
	`, id)
	return err
}
