package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/models"
)

const readRetries = 3

// RPCClient talks JSON-RPC over HTTP to a chain provider (getblock.io or a
// node proxy), one endpoint per asset. Reads are retried with backoff;
// Broadcast is attempted exactly once.
type RPCClient struct {
	endpoints  map[models.Asset]string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewRPCClient(endpoints map[models.Asset]string, apiKey string, timeout time.Duration, log *zap.Logger) *RPCClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		endpoints:  endpoints,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, asset models.Asset, method string, params []any, out any) error {
	endpoint, ok := c.endpoints[asset]
	if !ok || endpoint == "" {
		return fmt.Errorf("no RPC endpoint configured for %s", asset)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      time.Now().UnixNano(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chain provider unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("chain provider returned %d: %s", resp.StatusCode, string(b))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("malformed provider response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("provider error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return json.Unmarshal(rpcResp.Result, out)
}

// callRead retries transient failures; callers treat any residual error as
// retryable on the next sweep cycle.
func (c *RPCClient) callRead(ctx context.Context, asset models.Asset, method string, params []any, out any) error {
	var err error
	for attempt := 0; attempt < readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		if err = c.call(ctx, asset, method, params, out); err == nil {
			return nil
		}
		c.log.Debug("chain read failed",
			zap.String("method", method),
			zap.String("asset", string(asset)),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return err
}

type balanceResult struct {
	Balance     decimal.Decimal `json:"balance"`
	Unconfirmed decimal.Decimal `json:"unconfirmed"`
}

func (c *RPCClient) GetBalance(ctx context.Context, address string, asset models.Asset) (Balance, error) {
	var res balanceResult
	if err := c.callRead(ctx, asset, "getaddressbalance", []any{address}, &res); err != nil {
		return Balance{}, err
	}
	return Balance{Confirmed: res.Balance, Unconfirmed: res.Unconfirmed}, nil
}

func (c *RPCClient) ListUTXOs(ctx context.Context, address string, asset models.Asset) ([]UTXO, error) {
	var utxos []UTXO
	if err := c.callRead(ctx, asset, "getaddressutxos", []any{address}, &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (c *RPCClient) Broadcast(ctx context.Context, rawTxHex string, asset models.Asset) (string, error) {
	var txHash string
	if err := c.call(ctx, asset, "sendrawtransaction", []any{rawTxHex}, &txHash); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	if txHash == "" {
		return "", ErrBroadcastFailed
	}
	return txHash, nil
}

type rawTxResult struct {
	TxID          string `json:"txid"`
	Confirmations int    `json:"confirmations"`
}

func (c *RPCClient) GetConfirmations(ctx context.Context, txHash string, asset models.Asset) (int, error) {
	var res rawTxResult
	if err := c.callRead(ctx, asset, "getrawtransaction", []any{txHash, true}, &res); err != nil {
		return 0, err
	}
	return res.Confirmations, nil
}
