package deployment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/nonce"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/compose-network/mediator-deployer/internal/txn"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// chain drives one side. Its nonce counter has no other mutator.
type chain struct {
	side    Side
	builder *txn.Builder
	nonces  *nonce.Counter
	ledger  *Ledger
	logger  *slog.Logger
}

// send submits the intent with the next nonce and waits for a successful receipt.
// The nonce is consumed as soon as the node accepts the transaction.
func (c *chain) send(ctx context.Context, step string, intent txn.Intent) (*txn.Receipt, error) {
	intent.Nonce = c.nonces.Peek()

	hash, err := c.builder.Submit(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("[%s] %s: %w", c.side, step, err)
	}
	c.nonces.Advance()

	receipt, err := c.builder.Await(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("[%s] %s: %w", c.side, step, err)
	}
	if err := receipt.CheckSuccess(); err != nil {
		return nil, fmt.Errorf("[%s] %s: %w", c.side, step, err)
	}

	return receipt, nil
}

// deploy creates the artifact unless the ledger already holds the step.
func (c *chain) deploy(ctx context.Context, step string, artifact contracts.Artifact) (Record, error) {
	if record, ok := c.ledger.Find(c.side, step); ok {
		if err := c.checkCode(ctx, record); err != nil {
			return Record{}, err
		}
		c.logger.With("step", step).With("address", record.Address.Hex()).Info("contract already deployed, skipping")
		return record, nil
	}

	c.logger.With("step", step).With("contract", artifact.Name).Info("deploying contract")

	data, err := artifact.DeployData()
	if err != nil {
		return Record{}, err
	}

	receipt, err := c.send(ctx, step, txn.Intent{Data: data})
	if err != nil {
		return Record{}, err
	}

	address, err := receipt.CreatedAddress()
	if err != nil {
		return Record{}, fmt.Errorf("[%s] %s: %w", c.side, step, err)
	}

	record := Record{
		Side:     c.side,
		Step:     step,
		Contract: artifact.Name,
		Address:  address,
		Block:    receipt.Block().Uint64(),
		TxHash:   receipt.TransactionHash,
	}
	if err := c.ledger.Add(record); err != nil {
		return Record{}, err
	}

	c.logger.
		With("contract", artifact.Name).
		With("address", address.Hex()).
		With("block", record.Block).
		Info("contract deployed")

	return record, nil
}

// checkCode fails unless the node holds code at the address of a recorded creation.
func (c *chain) checkCode(ctx context.Context, record Record) error {
	var code hexutil.Bytes
	if err := c.builder.Target().Caller.Call(ctx, &code, rpc.MethodGetCode, []any{record.Address, "latest"}); err != nil {
		return fmt.Errorf("[%s] %s: %w", c.side, record.Step, err)
	}
	if len(code) == 0 {
		return fmt.Errorf("[%s] %s: recorded %s at %s has no code on the node, the deployment ledger does not belong to this chain",
			c.side, record.Step, record.Contract, record.Address.Hex())
	}
	return nil
}

// call sends data to the contract at to unless the ledger already holds the step.
func (c *chain) call(ctx context.Context, step string, to common.Address, data []byte) (Record, error) {
	if record, ok := c.ledger.Find(c.side, step); ok {
		c.logger.With("step", step).Info("step already completed, skipping")
		return record, nil
	}

	c.logger.With("step", step).With("to", to.Hex()).Info("sending transaction")

	receipt, err := c.send(ctx, step, txn.Intent{To: &to, Data: data})
	if err != nil {
		return Record{}, err
	}

	record := Record{
		Side:   c.side,
		Step:   step,
		Block:  receipt.Block().Uint64(),
		TxHash: receipt.TransactionHash,
	}
	if err := c.ledger.Add(record); err != nil {
		return Record{}, err
	}

	return record, nil
}
