package repositories

import (
	"context"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const txColumns = `
	id, deal_id, type, asset, amount, from_address, to_address,
	tx_hash, confirmations, status, created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.DealID, &t.Type, &t.Asset, &t.Amount, &t.FromAddress, &t.ToAddress,
		&t.TxHash, &t.Confirmations, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO transactions (deal_id, type, asset, amount, from_address, to_address, tx_hash, confirmations, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, t.DealID, t.Type, t.Asset, t.Amount, t.FromAddress, t.ToAddress, t.TxHash, t.Confirmations, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TransactionRepo) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+txColumns+` FROM transactions WHERE deal_id = $1 ORDER BY created_at ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListPending returns broadcast transactions still waiting for confirmation,
// for the worker to poll.
func (r *TransactionRepo) ListPending(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+txColumns+` FROM transactions
		WHERE status = $1 AND tx_hash IS NOT NULL
		ORDER BY created_at ASC LIMIT $2
	`, models.TxStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (r *TransactionRepo) UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations int, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE transactions SET confirmations = $1, status = $2 WHERE id = $3
	`, confirmations, status, id)
	return err
}
