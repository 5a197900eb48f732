package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/escrowdesk/backend/internal/models"
)

// ErrBroadcastFailed marks a broadcast the provider did not explicitly
// accept. Never assume a broadcast succeeded without a tx hash back.
var ErrBroadcastFailed = errors.New("transaction broadcast failed")

// Balance is an address balance in coin units (8 fractional digits).
type Balance struct {
	Confirmed   decimal.Decimal `json:"confirmed"`
	Unconfirmed decimal.Decimal `json:"unconfirmed"`
}

type UTXO struct {
	TxID  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value int64  `json:"value"` // satoshis
}

// Gateway is the boundary to the blockchain provider. Read errors are
// transient and retryable; broadcast errors are fatal to the operation.
type Gateway interface {
	GetBalance(ctx context.Context, address string, asset models.Asset) (Balance, error)
	ListUTXOs(ctx context.Context, address string, asset models.Asset) ([]UTXO, error)
	Broadcast(ctx context.Context, rawTxHex string, asset models.Asset) (string, error)
	GetConfirmations(ctx context.Context, txHash string, asset models.Asset) (int, error)
}
