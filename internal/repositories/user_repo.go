package repositories

import (
	"context"
	"time"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, telegram_user_id, username, first_name, last_name,
	reputation, successful_deals, total_volume_btc, total_volume_ltc,
	referral_code, referred_by_id, created_at, last_active_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.TelegramUserID, &u.Username, &u.FirstName, &u.LastName,
		&u.Reputation, &u.SuccessfulDeals, &u.TotalVolumeBTC, &u.TotalVolumeLTC,
		&u.ReferralCode, &u.ReferredByID, &u.CreatedAt, &u.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertByTelegramID creates the user on first contact. referralCode is only
// applied on insert; referredByID is never overwritten after signup.
func (r *UserRepo) UpsertByTelegramID(ctx context.Context, telegramID int64, username, firstName, lastName *string, referralCode string, referredByID *uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_user_id, username, first_name, last_name, referral_code, referred_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_user_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name = COALESCE(EXCLUDED.last_name, users.last_name),
			last_active_at = now()
		RETURNING`+userColumns+`
	`, telegramID, username, firstName, lastName, referralCode, referredByID))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE telegram_user_id = $1`, telegramID))
}

func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE referral_code = $1`, code))
}

func (r *UserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (r *UserRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}
