package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deal statuses
const (
	DealStatusPending        = "pending"
	DealStatusWaitingPayment = "waiting_payment"
	DealStatusFunded         = "funded"
	DealStatusReleased       = "released"
	DealStatusCancelled      = "cancelled"
	DealStatusExpired        = "expired"
)

// Valid state transitions: from -> []to
var ValidDealTransitions = map[string][]string{
	DealStatusPending:        {DealStatusWaitingPayment, DealStatusCancelled},
	DealStatusWaitingPayment: {DealStatusFunded, DealStatusCancelled, DealStatusExpired},
	DealStatusFunded:         {DealStatusReleased},
	DealStatusReleased:       {},
	DealStatusCancelled:      {},
	DealStatusExpired:        {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidDealTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	allowed, ok := ValidDealTransitions[status]
	return ok && len(allowed) == 0
}

// Deal party roles
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

type Deal struct {
	ID         uuid.UUID `json:"id"`
	DealNumber string    `json:"deal_number"`

	BuyerID  *uuid.UUID `json:"buyer_id,omitempty"`
	SellerID *uuid.UUID `json:"seller_id,omitempty"`

	Asset         Asset           `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Terms         *string         `json:"terms,omitempty"`

	ReferralGroupID *uuid.UUID `json:"referral_group_id,omitempty"`

	// Escrow custody. Address is assigned at most once; the private key is
	// stored only as an AEAD ciphertext blob.
	EscrowAddress       *string `json:"escrow_address,omitempty"`
	EscrowPrivateKeyEnc *string `json:"-"`

	Status        string  `json:"status"`
	IsDisputed    bool    `json:"is_disputed"`
	DisputeReason *string `json:"dispute_reason,omitempty"`
	CancelReason  *string `json:"cancel_reason,omitempty"`

	ConfirmationsReq int `json:"confirmations_req"`
	ConfirmationsRec int `json:"confirmations_rec"`

	TimeoutMinutes int        `json:"timeout_minutes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RemindedAt     *time.Time `json:"-"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// DealWallet binds one wallet per role to a deal.
type DealWallet struct {
	ID       uuid.UUID `json:"id"`
	DealID   uuid.UUID `json:"deal_id"`
	WalletID uuid.UUID `json:"wallet_id"`
	Role     string    `json:"role"` // buyer / seller
	BoundAt  time.Time `json:"bound_at"`
}

// DealWalletWithAddress avoids an extra wallet lookup in read paths.
type DealWalletWithAddress struct {
	DealWallet
	Address string    `json:"address"`
	UserID  uuid.UUID `json:"user_id"`
}
