package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformStats is a daily aggregate row maintained by the worker.
type PlatformStats struct {
	Date           time.Time       `json:"date"`
	TotalUsers     int             `json:"total_users"`
	TotalDeals     int             `json:"total_deals"`
	ReleasedDeals  int             `json:"released_deals"`
	TotalVolumeBTC decimal.Decimal `json:"total_volume_btc"`
	TotalVolumeLTC decimal.Decimal `json:"total_volume_ltc"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
