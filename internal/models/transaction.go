package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TxTypeDeposit = "DEPOSIT"
	TxTypeRelease = "RELEASE"
	TxTypeFee     = "FEE"
)

// Transaction statuses
const (
	TxStatusPending   = "PENDING"
	TxStatusConfirmed = "CONFIRMED"
	TxStatusFailed    = "FAILED"
)

// Transaction is an append-only ledger row per on-chain movement tied to a
// deal. Only confirmations and status advance after insert.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	DealID        uuid.UUID       `json:"deal_id"`
	Type          string          `json:"type"` // DEPOSIT / RELEASE / FEE
	Asset         Asset           `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	FromAddress   *string         `json:"from_address,omitempty"`
	ToAddress     string          `json:"to_address"`
	TxHash        *string         `json:"tx_hash,omitempty"`
	Confirmations int             `json:"confirmations"`
	Status        string          `json:"status"` // PENDING / CONFIRMED / FAILED
	CreatedAt     time.Time       `json:"created_at"`
}
