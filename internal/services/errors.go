package services

import (
	"errors"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/repositories"
)

var (
	ErrDealNotFound          = errors.New("deal not found")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrAmountBelowFee        = errors.New("amount must exceed the platform fee")
	ErrInvalidAsset          = errors.New("unsupported asset")
	ErrInvalidRole           = errors.New("role must be buyer or seller")
	ErrInvalidParticipants   = errors.New("buyer and seller must be different users")
	ErrRoleAlreadyBound      = errors.New("role already has a wallet bound")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrWalletAssetMismatch   = errors.New("wallet asset does not match deal asset")
	ErrWalletsNotBound       = errors.New("both party wallets must be bound first")
	ErrEscrowAlreadyAssigned = errors.New("escrow address already assigned")
	ErrEscrowNotAssigned     = errors.New("escrow address not assigned yet")
	ErrInvalidState          = errors.New("operation not allowed in current deal state")
	ErrNotAuthorized         = errors.New("not authorized for this operation")
	ErrDealDisputed          = errors.New("deal is disputed")
	ErrAlreadyDisputed       = errors.New("deal is already disputed")
	ErrCannotCancelFunded    = errors.New("funded deals cannot be cancelled")
	ErrNoPayoutWallet        = errors.New("no default payout wallet configured")
	ErrInvalidAddress        = errors.New("address is not valid for this asset")
)

// Kind maps a service error to a stable machine-readable code for API
// responses. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrDealNotFound), errors.Is(err, ErrWalletNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountBelowFee),
		errors.Is(err, ErrInvalidAsset), errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidAddress):
		return "validation"
	case errors.Is(err, ErrInvalidParticipants):
		return "invalid_participants"
	case errors.Is(err, ErrRoleAlreadyBound):
		return "role_already_bound"
	case errors.Is(err, ErrWalletAssetMismatch):
		return "wallet_asset_mismatch"
	case errors.Is(err, ErrWalletsNotBound):
		return "wallets_not_bound"
	case errors.Is(err, ErrEscrowAlreadyAssigned):
		return "escrow_already_assigned"
	case errors.Is(err, ErrEscrowNotAssigned):
		return "escrow_not_assigned"
	case errors.Is(err, ErrCannotCancelFunded):
		return "cannot_cancel_funded"
	case errors.Is(err, ErrDealDisputed), errors.Is(err, ErrAlreadyDisputed):
		return "disputed"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNoPayoutWallet):
		return "no_payout_wallet"
	case errors.Is(err, chain.ErrBroadcastFailed):
		return "broadcast_failed"
	case repositories.IsNotFound(err):
		return "not_found"
	default:
		return "internal"
	}
}
