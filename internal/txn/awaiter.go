package txn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
)

const DefaultPollInterval = 3 * time.Second

var errNotMined = errors.New("transaction not yet mined")

type (
	AwaitConfig struct {
		// PollInterval is waited before every receipt query.
		PollInterval time.Duration
		// Timeout bounds the whole wait. Zero leaves the bound to the caller's context.
		Timeout time.Duration
	}

	// Awaiter polls for a transaction receipt until it is mined.
	Awaiter struct {
		config AwaitConfig
		logger *slog.Logger
	}
)

func NewAwaiter(config AwaitConfig) *Awaiter {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Awaiter{
		config: config,
		logger: logger.Named("receipt_awaiter"),
	}
}

// Await returns the receipt of hash once it has a block number. Node errors are
// returned immediately; only "not yet mined" is retried, until ctx or the timeout ends.
func (a *Awaiter) Await(ctx context.Context, caller rpc.Caller, hash common.Hash) (*Receipt, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	log := a.logger.With("tx_hash", hash.Hex()).With("endpoint", caller.Endpoint())

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("stopped waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
	case <-time.After(a.config.PollInterval):
	}

	var receipt *Receipt
	poll := func() error {
		var raw json.RawMessage
		if err := caller.Call(ctx, &raw, rpc.MethodGetTransactionReceipt, hash); err != nil {
			return backoff.Permanent(err)
		}
		if len(raw) == 0 {
			return errNotMined
		}

		var candidate Receipt
		if err := json.Unmarshal(raw, &candidate); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode receipt: %w", err))
		}
		if !candidate.Mined() {
			return errNotMined
		}

		receipt = &candidate
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(a.config.PollInterval), ctx)
	notify := func(err error, wait time.Duration) {
		log.With("retry_in", wait.String()).Debug("receipt not available yet")
	}

	if err := backoff.RetryNotify(poll, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to get receipt of %s: %w", hash.Hex(), err)
	}

	log.With("block_number", receipt.Block().String()).Info("transaction mined")

	return receipt, nil
}
