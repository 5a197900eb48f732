package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is an address a user owns for a given asset. A user may hold many
// per asset; deals bind exactly one per role via DealWallet.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Asset     Asset     `json:"asset"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PayoutWallet is a platform-owned receiving address for collected fees.
// At most one default per asset, enforced by the store.
type PayoutWallet struct {
	ID        uuid.UUID `json:"id"`
	Asset     Asset     `json:"asset"`
	Address   string    `json:"address"`
	Label     *string   `json:"label,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
