package txn

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/chainerr"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

type (
	// Target is one configured chain. It is immutable once built from config.
	Target struct {
		Name   string
		Caller rpc.Caller
		// GasPrice is the operator chosen static price; it is never read from the node.
		GasPrice *big.Int
		// ChainID enables EIP-155 replay protection. Nil or zero signs homestead transactions.
		ChainID       *big.Int
		GasLimitExtra float64
	}

	// Intent is what the orchestrator wants submitted. A nil To creates a contract.
	Intent struct {
		To    *common.Address
		Data  []byte
		Value *big.Int
		Nonce uint64
	}

	// Builder estimates, signs and broadcasts transactions for one chain.
	Builder struct {
		target  Target
		account *account.Account
		signer  types.Signer
		awaiter *Awaiter
		logger  *slog.Logger
	}

	callArgs struct {
		From  common.Address  `json:"from"`
		To    *common.Address `json:"to,omitempty"`
		Value *hexutil.Big    `json:"value,omitempty"`
		Data  hexutil.Bytes   `json:"data,omitempty"`
	}

	blockHeader struct {
		Number   *hexutil.Big   `json:"number"`
		GasLimit hexutil.Uint64 `json:"gasLimit"`
	}
)

func NewBuilder(target Target, acc *account.Account, awaiter *Awaiter) *Builder {
	return &Builder{
		target:  target,
		account: acc,
		signer:  signerFor(target.ChainID),
		awaiter: awaiter,
		logger:  logger.Named("tx_builder").With("chain", target.Name),
	}
}

func signerFor(chainID *big.Int) types.Signer {
	if chainID == nil || chainID.Sign() == 0 {
		return types.HomesteadSigner{}
	}
	return types.NewEIP155Signer(chainID)
}

func (b *Builder) Target() Target {
	return b.target
}

// BuildAndSend submits the intent and waits for its receipt.
func (b *Builder) BuildAndSend(ctx context.Context, intent Intent) (*Receipt, error) {
	hash, err := b.Submit(ctx, intent)
	if err != nil {
		return nil, err
	}
	return b.Await(ctx, hash)
}

// Submit signs the intent and broadcasts it, returning the node's transaction hash.
// Nothing is broadcast when signing or gas estimation fails.
func (b *Builder) Submit(ctx context.Context, intent Intent) (common.Hash, error) {
	tx, err := b.Sign(ctx, intent)
	if err != nil {
		return common.Hash{}, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	var hash common.Hash
	if err := b.target.Caller.Call(ctx, &hash, rpc.MethodSendRawTransaction, hexutil.Encode(raw)); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction with nonce %d: %w", intent.Nonce, err)
	}
	if hash != tx.Hash() {
		return common.Hash{}, chainerr.Assertf("node returned hash %s for transaction %s", hash.Hex(), tx.Hash().Hex())
	}

	b.logger.
		With("tx_hash", hash.Hex()).
		With("nonce", intent.Nonce).
		With("gas_limit", tx.Gas()).
		Info("pending transaction")

	return hash, nil
}

// Await waits for a hash previously returned by Submit.
func (b *Builder) Await(ctx context.Context, hash common.Hash) (*Receipt, error) {
	return b.awaiter.Await(ctx, b.target.Caller, hash)
}

// Sign estimates gas against the current block limit and returns the signed transaction.
func (b *Builder) Sign(ctx context.Context, intent Intent) (*types.Transaction, error) {
	value := intent.Value
	if value == nil {
		value = new(big.Int)
	}

	estimate, err := b.estimateGas(ctx, intent, value)
	if err != nil {
		return nil, err
	}

	header, err := b.latestBlock(ctx)
	if err != nil {
		return nil, err
	}

	policy := GasPolicy{BufferFraction: b.target.GasLimitExtra, BlockLimit: uint64(header.GasLimit)}
	gas, err := policy.Limit(estimate)
	if err != nil {
		return nil, err
	}

	b.logger.
		With("estimated_gas", estimate).
		With("block_gas_limit", uint64(header.GasLimit)).
		With("gas", gas).
		Debug("gas computed")

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    intent.Nonce,
		GasPrice: new(big.Int).Set(b.target.GasPrice),
		Gas:      gas,
		To:       intent.To,
		Value:    value,
		Data:     intent.Data,
	})

	signed, err := types.SignTx(tx, b.signer, b.account.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signed, nil
}

func (b *Builder) estimateGas(ctx context.Context, intent Intent, value *big.Int) (uint64, error) {
	args := callArgs{
		From: b.account.Address(),
		To:   intent.To,
		Data: intent.Data,
	}
	if value.Sign() > 0 {
		args.Value = (*hexutil.Big)(value)
	}

	var estimate hexutil.Uint64
	if err := b.target.Caller.Call(ctx, &estimate, rpc.MethodEstimateGas, args); err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return uint64(estimate), nil
}

func (b *Builder) latestBlock(ctx context.Context) (*blockHeader, error) {
	var header *blockHeader
	if err := b.target.Caller.Call(ctx, &header, rpc.MethodGetBlockByNumber, []any{"latest", false}); err != nil {
		return nil, fmt.Errorf("failed to read latest block: %w", err)
	}
	if header == nil {
		return nil, chainerr.Assertf("node returned no latest block")
	}
	return header, nil
}
