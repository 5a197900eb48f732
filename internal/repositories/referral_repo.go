package repositories

import (
	"context"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const referralColumns = `id, title, code, fee_percentage, payout_address, total_earnings, total_deals, created_at`

func scanReferralGroup(row pgx.Row) (*models.ReferralGroup, error) {
	var g models.ReferralGroup
	err := row.Scan(&g.ID, &g.Title, &g.Code, &g.FeePercentage, &g.PayoutAddress, &g.TotalEarnings, &g.TotalDeals, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type ReferralRepo struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{pool: pool}
}

func (r *ReferralRepo) Create(ctx context.Context, g *models.ReferralGroup) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO referral_groups (title, code, fee_percentage, payout_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, g.Title, g.Code, g.FeePercentage, g.PayoutAddress).Scan(&g.ID, &g.CreatedAt)
}

func (r *ReferralRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralGroup, error) {
	return scanReferralGroup(r.pool.QueryRow(ctx, `SELECT `+referralColumns+` FROM referral_groups WHERE id = $1`, id))
}

func (r *ReferralRepo) GetByCode(ctx context.Context, code string) (*models.ReferralGroup, error) {
	return scanReferralGroup(r.pool.QueryRow(ctx, `SELECT `+referralColumns+` FROM referral_groups WHERE code = $1`, code))
}

func (r *ReferralRepo) List(ctx context.Context) ([]models.ReferralGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+referralColumns+` FROM referral_groups ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.ReferralGroup
	for rows.Next() {
		g, err := scanReferralGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *ReferralRepo) UpdatePayoutAddress(ctx context.Context, id uuid.UUID, address string) error {
	_, err := r.pool.Exec(ctx, `UPDATE referral_groups SET payout_address = $1 WHERE id = $2`, address, id)
	return err
}
