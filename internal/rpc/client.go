package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/compose-network/mediator-deployer/internal/chainerr"
	"github.com/compose-network/mediator-deployer/internal/logger"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const (
	MethodGetTransactionCount   = "eth_getTransactionCount"
	MethodEstimateGas           = "eth_estimateGas"
	MethodGetBlockByNumber      = "eth_getBlockByNumber"
	MethodSendRawTransaction    = "eth_sendRawTransaction"
	MethodGetTransactionReceipt = "eth_getTransactionReceipt"
	MethodChainID               = "eth_chainId"
	MethodGetCode               = "eth_getCode"

	// 0x + 64 hex chars
	txHashLength = 66
)

type (
	// Caller is the single call contract every component talks to a node through.
	Caller interface {
		Call(ctx context.Context, result any, method string, params any) error
		Endpoint() string
	}

	// Client issues JSON-RPC requests to one node endpoint.
	Client struct {
		endpoint string
		rpc      *gethrpc.Client
		logger   *slog.Logger
	}
)

// Dial creates a client for the endpoint. HTTP endpoints are not contacted until the first call.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	client, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, &chainerr.NetworkError{Endpoint: endpoint, Method: "dial", Err: err}
	}

	return &Client{
		endpoint: endpoint,
		rpc:      client,
		logger:   logger.Named("rpc_client").With("endpoint", endpoint),
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Close() {
	c.rpc.Close()
}

// Call sends method with params and decodes the result field into result.
// A params value that is not already a list is sent as a single element list.
// result may be nil when the caller does not need the payload.
func (c *Client) Call(ctx context.Context, result any, method string, params any) error {
	args := normalizeParams(params)
	c.logger.With("method", method).Debug("sending node request")

	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, method, args...); err != nil {
		return c.classify(method, err)
	}

	if method == MethodSendRawTransaction {
		if err := checkBroadcastHash(raw); err != nil {
			return err
		}
	}

	if result == nil || isNull(raw) {
		return nil
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}

	return nil
}

func (c *Client) classify(method string, err error) error {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		wrapped := &chainerr.RPCError{
			Method:  method,
			Code:    rpcErr.ErrorCode(),
			Message: rpcErr.Error(),
		}
		var dataErr gethrpc.DataError
		if errors.As(err, &dataErr) {
			wrapped.Data = dataErr.ErrorData()
		}
		return wrapped
	}

	return &chainerr.NetworkError{Endpoint: c.endpoint, Method: method, Err: err}
}

func normalizeParams(params any) []any {
	switch p := params.(type) {
	case nil:
		return []any{}
	case []any:
		return p
	default:
		return []any{p}
	}
}

func checkBroadcastHash(raw json.RawMessage) error {
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return chainerr.Assertf("transaction was not actually broadcast: result %s is not a hash", string(raw))
	}
	if len(hash) != txHashLength || !strings.HasPrefix(hash, "0x") {
		return chainerr.Assertf("transaction was not actually broadcast: unexpected hash %q", hash)
	}
	return nil
}

// isNull reports whether a raw result is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
