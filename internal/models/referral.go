package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralGroup is an affiliate entity entitled to a share of the platform
// fee for deals it originated. The share is a percentage of the fee, not of
// the deal amount.
type ReferralGroup struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Code          string          `json:"code"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	PayoutAddress *string         `json:"payout_address,omitempty"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	TotalDeals    int             `json:"total_deals"`
	CreatedAt     time.Time       `json:"created_at"`
}
