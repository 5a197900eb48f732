package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const dealColumns = `
	id, deal_number, buyer_id, seller_id, asset, amount, fee_percentage, fee_amount,
	terms, referral_group_id, escrow_address, escrow_private_key_enc,
	status, is_disputed, dispute_reason, cancel_reason,
	confirmations_req, confirmations_rec, timeout_minutes,
	created_at, updated_at, expires_at, reminded_at, released_at, cancelled_at`

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(
		&d.ID, &d.DealNumber, &d.BuyerID, &d.SellerID, &d.Asset, &d.Amount, &d.FeePercentage, &d.FeeAmount,
		&d.Terms, &d.ReferralGroupID, &d.EscrowAddress, &d.EscrowPrivateKeyEnc,
		&d.Status, &d.IsDisputed, &d.DisputeReason, &d.CancelReason,
		&d.ConfirmationsReq, &d.ConfirmationsRec, &d.TimeoutMinutes,
		&d.CreatedAt, &d.UpdatedAt, &d.ExpiresAt, &d.RemindedAt, &d.ReleasedAt, &d.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type DealRepo struct {
	pool *pgxpool.Pool
}

func NewDealRepo(pool *pgxpool.Pool) *DealRepo {
	return &DealRepo{pool: pool}
}

func (r *DealRepo) Create(ctx context.Context, d *models.Deal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO deals (deal_number, buyer_id, seller_id, asset, amount, fee_percentage, fee_amount,
		                   terms, referral_group_id, status, confirmations_req, timeout_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, d.DealNumber, d.BuyerID, d.SellerID, d.Asset, d.Amount, d.FeePercentage, d.FeeAmount,
		d.Terms, d.ReferralGroupID, d.Status, d.ConfirmationsReq, d.TimeoutMinutes,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return scanDeal(r.pool.QueryRow(ctx, `SELECT`+dealColumns+` FROM deals WHERE id = $1`, id))
}

func (r *DealRepo) GetByNumber(ctx context.Context, number string) (*models.Deal, error) {
	return scanDeal(r.pool.QueryRow(ctx, `SELECT`+dealColumns+` FROM deals WHERE deal_number = $1`, number))
}

type DealFilter struct {
	UserID *uuid.UUID // matches either role
	Status *string
	Asset  *models.Asset
	Limit  int
	Offset int
}

func (r *DealRepo) List(ctx context.Context, f DealFilter) ([]models.Deal, error) {
	query := `SELECT` + dealColumns + ` FROM deals`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.UserID != nil {
		where = append(where, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", argIdx, argIdx))
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Asset != nil {
		where = append(where, fmt.Sprintf("asset = $%d", argIdx))
		args = append(args, *f.Asset)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

func collectDeals(rows pgx.Rows) ([]models.Deal, error) {
	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// SetEscrow assigns the escrow address and encrypted key exactly once.
func (r *DealRepo) SetEscrow(ctx context.Context, id uuid.UUID, address, privateKeyEnc string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET escrow_address = $1, escrow_private_key_enc = $2, updated_at = now()
		WHERE id = $3 AND escrow_address IS NULL
	`, address, privateKeyEnc, id)
	return tag.RowsAffected() > 0, err
}

// MarkWaitingPayment moves a pending deal into the payment window and arms
// its expiry clock.
func (r *DealRepo) MarkWaitingPayment(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET status = $1, expires_at = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.DealStatusWaitingPayment, expiresAt, id, models.DealStatusPending)
	return tag.RowsAffected() > 0, err
}

// MarkFunded transitions waiting_payment -> funded and records the deposit in
// the same transaction, so a concurrent sweep cannot double-fund.
func (r *DealRepo) MarkFunded(ctx context.Context, id uuid.UUID, confirmations int, deposit *models.Transaction) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE deals SET status = $1, confirmations_rec = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.DealStatusFunded, confirmations, id, models.DealStatusWaitingPayment)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (deal_id, type, asset, amount, to_address, tx_hash, confirmations, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, deposit.DealID, deposit.Type, deposit.Asset, deposit.Amount, deposit.ToAddress,
		deposit.TxHash, deposit.Confirmations, deposit.Status,
	).Scan(&deposit.ID, &deposit.CreatedAt)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// ClaimRole assigns a user to a vacant deal role. The same user may never
// hold both sides.
func (r *DealRepo) ClaimRole(ctx context.Context, id uuid.UUID, role string, userID uuid.UUID) (bool, error) {
	col, other := "buyer_id", "seller_id"
	if role == models.RoleSeller {
		col, other = "seller_id", "buyer_id"
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET `+col+` = $1, updated_at = now()
		WHERE id = $2 AND `+col+` IS NULL AND (`+other+` IS NULL OR `+other+` <> $1)
	`, userID, id)
	return tag.RowsAffected() > 0, err
}

// Cancel succeeds only while no payment has been confirmed.
func (r *DealRepo) Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET status = $1, cancel_reason = $2, cancelled_at = now(), updated_at = now()
		WHERE id = $3 AND status IN ($4, $5)
	`, models.DealStatusCancelled, reason, id, models.DealStatusPending, models.DealStatusWaitingPayment)
	return tag.RowsAffected() > 0, err
}

func (r *DealRepo) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.DealStatusExpired, id, models.DealStatusWaitingPayment)
	return tag.RowsAffected() > 0, err
}

func (r *DealRepo) SetDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET is_disputed = true, dispute_reason = $1, updated_at = now()
		WHERE id = $2 AND is_disputed = false AND status IN ($3, $4)
	`, reason, id, models.DealStatusWaitingPayment, models.DealStatusFunded)
	return tag.RowsAffected() > 0, err
}

func (r *DealRepo) ClearDisputed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET is_disputed = false, dispute_reason = NULL, updated_at = now()
		WHERE id = $1 AND is_disputed = true
	`, id)
	return tag.RowsAffected() > 0, err
}

func (r *DealRepo) ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time, timeoutMinutes int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET expires_at = $1, timeout_minutes = $2, reminded_at = NULL, updated_at = now()
		WHERE id = $3 AND status = $4
	`, expiresAt, timeoutMinutes, id, models.DealStatusWaitingPayment)
	return tag.RowsAffected() > 0, err
}

func (r *DealRepo) SetReminded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE deals SET reminded_at = now() WHERE id = $1`, id)
	return err
}

func (r *DealRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.Deal, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+dealColumns+` FROM deals WHERE status = $1 ORDER BY updated_at ASC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

func (r *DealRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Deal, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+dealColumns+` FROM deals
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
		ORDER BY expires_at ASC LIMIT $3
	`, models.DealStatusWaitingPayment, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

// ListNeedingReminder returns waiting deals whose payment window closes
// within the lead time and that were not reminded yet.
func (r *DealRepo) ListNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]models.Deal, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+dealColumns+` FROM deals
		WHERE status = $1 AND reminded_at IS NULL
		  AND expires_at IS NOT NULL AND expires_at > $2 AND expires_at < $3
		ORDER BY expires_at ASC LIMIT $4
	`, models.DealStatusWaitingPayment, now, now.Add(lead), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

// ReleaseParams carries everything the release transaction writes besides
// the deal row itself.
type ReleaseParams struct {
	DealID          uuid.UUID
	BuyerID         *uuid.UUID
	SellerID        *uuid.UUID
	Asset           models.Asset
	Amount          decimal.Decimal
	ReferralGroupID *uuid.UUID
	ReferralShare   decimal.Decimal
	Release         *models.Transaction
}

// ReleaseWithBroadcast performs the funded -> released transition, the ledger
// insert, the party counters and the referral rollup in one database
// transaction, calling broadcast while that transaction is still open. The
// row lock taken by the conditional update serializes concurrent releasers;
// the loser sees zero rows and gets (false, nil). If broadcast fails,
// everything rolls back and the deal stays funded.
func (r *DealRepo) ReleaseWithBroadcast(ctx context.Context, p ReleaseParams, broadcast func(ctx context.Context) (string, error)) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE deals SET status = $1, released_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3 AND is_disputed = false
	`, models.DealStatusReleased, p.DealID, models.DealStatusFunded)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	var releaseID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (deal_id, type, asset, amount, from_address, to_address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, p.Release.DealID, p.Release.Type, p.Release.Asset, p.Release.Amount,
		p.Release.FromAddress, p.Release.ToAddress, p.Release.Status,
	).Scan(&releaseID, &p.Release.CreatedAt)
	if err != nil {
		return false, err
	}

	volumeCol := "total_volume_btc"
	if p.Asset == models.AssetLTC {
		volumeCol = "total_volume_ltc"
	}
	for _, userID := range []*uuid.UUID{p.BuyerID, p.SellerID} {
		if userID == nil {
			continue
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET successful_deals = successful_deals + 1, reputation = reputation + 1,
			       `+volumeCol+` = `+volumeCol+` + $1
			WHERE id = $2
		`, p.Amount, *userID)
		if err != nil {
			return false, err
		}
	}

	if p.ReferralGroupID != nil && p.ReferralShare.IsPositive() {
		_, err = tx.Exec(ctx, `
			UPDATE referral_groups SET total_earnings = total_earnings + $1, total_deals = total_deals + 1
			WHERE id = $2
		`, p.ReferralShare, *p.ReferralGroupID)
		if err != nil {
			return false, err
		}
	}

	txHash, err := broadcast(ctx)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `UPDATE transactions SET tx_hash = $1 WHERE id = $2`, txHash, releaseID)
	if err != nil {
		return false, err
	}
	p.Release.ID = releaseID
	p.Release.TxHash = &txHash
	return true, tx.Commit(ctx)
}
