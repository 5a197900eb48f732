package dto

type AuthTelegramRequest struct {
	InitData     string  `json:"init_data"`
	ReferralCode *string `json:"referral_code,omitempty"` // inviter's code, applied on first login only
}

type CreateDealRequest struct {
	Asset          string  `json:"asset"` // BTC / LTC
	Amount         string  `json:"amount"`
	Role           string  `json:"role"` // buyer / seller
	CounterpartyID *string `json:"counterparty_id,omitempty"`
	Terms          *string `json:"terms,omitempty"`
	ReferralCode   *string `json:"referral_code,omitempty"`
	TimeoutMinutes int     `json:"timeout_minutes,omitempty"`
}

type BindWalletRequest struct {
	WalletID string `json:"wallet_id"`
	Role     string `json:"role"` // buyer / seller
}

type CancelDealRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type OpenDisputeRequest struct {
	Reason string `json:"reason"`
}

type ExtendDealRequest struct {
	ExtraMinutes int `json:"extra_minutes"`
}

type AddWalletRequest struct {
	Asset   string `json:"asset"`
	Address string `json:"address"`
}

type AddPayoutWalletRequest struct {
	Asset     string  `json:"asset"`
	Address   string  `json:"address"`
	Label     *string `json:"label,omitempty"`
	IsDefault bool    `json:"is_default,omitempty"`
}

type CreateReferralGroupRequest struct {
	Title         string  `json:"title"`
	Code          string  `json:"code"`
	FeePercentage string  `json:"fee_percentage"` // percent of the platform fee
	PayoutAddress *string `json:"payout_address,omitempty"`
}

type UpdateReferralPayoutRequest struct {
	PayoutAddress string `json:"payout_address"`
}
