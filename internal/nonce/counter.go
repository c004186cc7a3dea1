// Package nonce tracks the next transaction nonce of one account on one chain.
//
// The counter is seeded once from the node and then advanced locally, because the
// node's transaction count lags behind submitted but not yet mined transactions.
package nonce

import (
	"context"
	"fmt"
	"sync"

	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Counter hands out strictly increasing nonces. Each value is used at most once.
type Counter struct {
	mu   sync.Mutex
	next uint64
	used []uint64
}

// New returns a counter whose first nonce is start.
func New(start uint64) *Counter {
	return &Counter{next: start}
}

// Seed reads the account's latest transaction count from the node.
func Seed(ctx context.Context, caller rpc.Caller, address common.Address) (*Counter, error) {
	var count hexutil.Uint64
	if err := caller.Call(ctx, &count, rpc.MethodGetTransactionCount, []any{address, "latest"}); err != nil {
		return nil, fmt.Errorf("failed to read transaction count of %s: %w", address.Hex(), err)
	}
	return New(uint64(count)), nil
}

// Peek returns the nonce the next submission will use.
func (c *Counter) Peek() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Advance consumes the current nonce. It must be called exactly once per submitted transaction.
func (c *Counter) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.next
	c.used = append(c.used, n)
	c.next++
	return n
}

// Used returns the nonces consumed so far, in order.
func (c *Counter) Used() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.used...)
}
