package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type PaymentInfoResponse struct {
	DealID        string `json:"deal_id"`
	EscrowAddress string `json:"escrow_address"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	Confirmed     string `json:"confirmed"`
	Unconfirmed   string `json:"unconfirmed"`
	Funded        bool   `json:"funded"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}
