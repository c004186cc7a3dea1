// Package chainerr holds the error kinds surfaced by the submission pipeline.
package chainerr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrGasEstimationExceeded is matched by GasEstimationExceededError.
	ErrGasEstimationExceeded = errors.New("estimated gas exceeds block gas limit")

	// ErrTransactionFailed is matched by TransactionFailedError.
	ErrTransactionFailed = errors.New("transaction failed")
)

type (
	// NetworkError is a transport level failure talking to a node.
	NetworkError struct {
		Endpoint string
		Method   string
		Err      error
	}

	// RPCError is an error envelope returned by the node.
	RPCError struct {
		Method  string
		Code    int
		Message string
		Data    any
	}

	// AssertionError is a violated post-condition.
	AssertionError struct {
		Msg string
	}

	GasEstimationExceededError struct {
		Estimated  uint64
		BlockLimit uint64
	}

	// TransactionFailedError reports a mined transaction whose receipt is not successful.
	// Status is nil when the receipt carried no status field at all.
	TransactionFailedError struct {
		Hash   common.Hash
		Status *uint64
		Reason string
	}
)

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s on %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *RPCError) Error() string {
	msg := fmt.Sprintf("rpc %s failed: code=%d message=%q", e.Method, e.Code, e.Message)
	if e.Data != nil {
		if data, err := json.Marshal(e.Data); err == nil {
			msg += " data=" + string(data)
		}
	}
	return msg
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Msg
}

func (e *GasEstimationExceededError) Error() string {
	return fmt.Sprintf("estimated gas greater (%d) than the block gas limit (%d)", e.Estimated, e.BlockLimit)
}

func (e *GasEstimationExceededError) Is(target error) bool {
	return target == ErrGasEstimationExceeded
}

func (e *TransactionFailedError) Error() string {
	status := "missing"
	if e.Status != nil {
		status = fmt.Sprintf("%d", *e.Status)
	}
	msg := fmt.Sprintf("transaction %s failed with status %s", e.Hash.Hex(), status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransactionFailedError) Is(target error) bool {
	return target == ErrTransactionFailed
}

// Assertf returns an AssertionError with a formatted message.
func Assertf(format string, args ...any) error {
	return &AssertionError{Msg: fmt.Sprintf(format, args...)}
}

// IsNetwork reports whether err is, or wraps, a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsRPC reports whether err is, or wraps, an RPCError.
func IsRPC(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr)
}
