package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	TelegramUserID int64     `json:"telegram_user_id"`
	Username       *string   `json:"username,omitempty"`
	FirstName      *string   `json:"first_name,omitempty"`
	LastName       *string   `json:"last_name,omitempty"`

	Reputation      int             `json:"reputation"`
	SuccessfulDeals int             `json:"successful_deals"`
	TotalVolumeBTC  decimal.Decimal `json:"total_volume_btc"`
	TotalVolumeLTC  decimal.Decimal `json:"total_volume_ltc"`

	ReferralCode string     `json:"referral_code"`
	ReferredByID *uuid.UUID `json:"referred_by_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
