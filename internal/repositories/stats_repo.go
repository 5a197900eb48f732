package repositories

import (
	"context"
	"time"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// RollupDay recomputes the aggregate row for the given calendar day from the
// deals table. Safe to run repeatedly; the upsert overwrites the row.
func (r *StatsRepo) RollupDay(ctx context.Context, day time.Time) error {
	day = day.UTC().Truncate(24 * time.Hour)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_stats (date, total_users, total_deals, released_deals,
		                            total_volume_btc, total_volume_ltc, total_fees, updated_at)
		SELECT $1::date,
		       (SELECT count(*) FROM users WHERE created_at < $1::date + interval '1 day'),
		       count(*),
		       count(*) FILTER (WHERE status = 'released'),
		       COALESCE(sum(amount) FILTER (WHERE status = 'released' AND asset = 'BTC'), 0),
		       COALESCE(sum(amount) FILTER (WHERE status = 'released' AND asset = 'LTC'), 0),
		       COALESCE(sum(fee_amount) FILTER (WHERE status = 'released'), 0),
		       now()
		FROM deals
		WHERE created_at >= $1::date AND created_at < $1::date + interval '1 day'
		ON CONFLICT (date) DO UPDATE SET
			total_users = EXCLUDED.total_users,
			total_deals = EXCLUDED.total_deals,
			released_deals = EXCLUDED.released_deals,
			total_volume_btc = EXCLUDED.total_volume_btc,
			total_volume_ltc = EXCLUDED.total_volume_ltc,
			total_fees = EXCLUDED.total_fees,
			updated_at = now()
	`, day)
	return err
}

func (r *StatsRepo) GetRange(ctx context.Context, from, to time.Time) ([]models.PlatformStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, total_users, total_deals, released_deals,
		       total_volume_btc, total_volume_ltc, total_fees, updated_at
		FROM platform_stats
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.PlatformStats
	for rows.Next() {
		var s models.PlatformStats
		if err := rows.Scan(&s.Date, &s.TotalUsers, &s.TotalDeals, &s.ReleasedDeals,
			&s.TotalVolumeBTC, &s.TotalVolumeLTC, &s.TotalFees, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *StatsRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM platform_stats WHERE date < $1`, olderThan)
	return tag.RowsAffected(), err
}
