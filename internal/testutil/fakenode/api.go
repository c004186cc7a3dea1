package fakenode

import (
	"fmt"
	"math/big"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	codeInvalidInput = -32000
	gasPerCall       = 21_000
)

type (
	// ethAPI is registered under the eth namespace; every exported method is served.
	ethAPI struct {
		node *Node
	}

	nodeError struct {
		code int
		msg  string
	}

	// TxArgs is the eth_estimateGas call object.
	TxArgs struct {
		From  common.Address  `json:"from"`
		To    *common.Address `json:"to"`
		Value *hexutil.Big    `json:"value"`
		Data  hexutil.Bytes   `json:"data"`
	}

	BlockHeader struct {
		Number   hexutil.Uint64 `json:"number"`
		GasLimit hexutil.Uint64 `json:"gasLimit"`
	}

	// ReceiptResult is a mined receipt; pending transactions are answered with null.
	ReceiptResult struct {
		TransactionHash common.Hash     `json:"transactionHash"`
		BlockNumber     *hexutil.Uint64 `json:"blockNumber"`
		Status          hexutil.Uint64  `json:"status"`
		ContractAddress *common.Address `json:"contractAddress"`
		GasUsed         hexutil.Uint64  `json:"gasUsed"`
		Logs            []any           `json:"logs"`
	}
)

func (e *nodeError) Error() string  { return e.msg }
func (e *nodeError) ErrorCode() int { return e.code }

func (api *ethAPI) ChainId() *hexutil.Big {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_chainId")
	return (*hexutil.Big)(new(big.Int).Set(n.chainID))
}

func (api *ethAPI) GetTransactionCount(address common.Address, _ string) hexutil.Uint64 {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_getTransactionCount")
	return hexutil.Uint64(n.nonces[address])
}

func (api *ethAPI) EstimateGas(args TxArgs) (hexutil.Uint64, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_estimateGas")
	if args.To == nil && len(args.Data) == 0 {
		return 0, &nodeError{code: codeInvalidInput, msg: "contract creation without data"}
	}
	return hexutil.Uint64(n.gasEstimate), nil
}

// GetCode returns the creation data of a deployed contract, empty for any other address.
func (api *ethAPI) GetCode(address common.Address, _ string) hexutil.Bytes {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_getCode")
	if contract, ok := n.contracts[address]; ok {
		return hexutil.Bytes(contract.Code)
	}
	return hexutil.Bytes{}
}

func (api *ethAPI) GetBlockByNumber(_ string, _ bool) *BlockHeader {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_getBlockByNumber")
	return &BlockHeader{Number: hexutil.Uint64(n.block), GasLimit: hexutil.Uint64(n.blockGasLimit)}
}

func (api *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_sendRawTransaction")

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, &nodeError{code: codeInvalidInput, msg: fmt.Sprintf("rlp: %v", err)}
	}
	from, err := types.Sender(n.signer, tx)
	if err != nil {
		return common.Hash{}, &nodeError{code: codeInvalidInput, msg: fmt.Sprintf("invalid sender: %v", err)}
	}

	switch expected := n.nonces[from]; {
	case tx.Nonce() < expected:
		return common.Hash{}, &nodeError{code: codeInvalidInput, msg: fmt.Sprintf("nonce too low: next nonce %d, tx nonce %d", expected, tx.Nonce())}
	case tx.Nonce() > expected:
		return common.Hash{}, &nodeError{code: codeInvalidInput, msg: fmt.Sprintf("nonce too high: next nonce %d, tx nonce %d", expected, tx.Nonce())}
	}
	if tx.Gas() > n.blockGasLimit {
		return common.Hash{}, &nodeError{code: codeInvalidInput, msg: "exceeds block gas limit"}
	}

	n.nonces[from]++
	n.used[from] = append(n.used[from], tx.Nonce())
	n.block++

	result := &mined{hash: tx.Hash(), block: n.block, status: types.ReceiptStatusSuccessful, gasUsed: min(tx.Gas(), n.gasEstimate)}
	if tx.To() == nil {
		address := crypto.CreateAddress(from, tx.Nonce())
		n.contracts[address] = &Contract{Address: address, Creator: from, Code: tx.Data(), Block: n.block}
		n.created = append(n.created, address)
		result.contractAddress = &address
	} else {
		call := Call{Hash: tx.Hash(), From: from, To: *tx.To(), Nonce: tx.Nonce(), Gas: tx.Gas(), Data: tx.Data()}
		n.calls = append(n.calls, call)
		if !n.apply(call) {
			result.status = types.ReceiptStatusFailed
		}
	}
	n.receipts[tx.Hash()] = result

	return tx.Hash(), nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (*ReceiptResult, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("eth_getTransactionReceipt")

	m, ok := n.receipts[hash]
	if !ok {
		return nil, nil
	}
	if m.polls < n.pendingPolls {
		m.polls++
		return nil, nil
	}

	block := hexutil.Uint64(m.block)
	return &ReceiptResult{
		TransactionHash: m.hash,
		BlockNumber:     &block,
		Status:          hexutil.Uint64(m.status),
		ContractAddress: m.contractAddress,
		GasUsed:         hexutil.Uint64(max(m.gasUsed, gasPerCall)),
		Logs:            []any{},
	}, nil
}

// apply changes the tracked state for a call and reports whether it succeeded.
func (n *Node) apply(call Call) bool {
	for _, fn := range n.failing {
		if contracts.Calls(fn, call.Data) {
			return false
		}
	}

	target, ok := n.contracts[call.To]
	if !ok {
		return true
	}

	switch {
	case contracts.Calls(contracts.FuncUpgradeTo, call.Data):
		version, implementation, err := contracts.DecodeUpgradeTo(call.Data)
		if err != nil || version <= target.Version {
			return false
		}
		if _, deployed := n.contracts[implementation]; !deployed {
			return false
		}
		target.Version, target.Implementation = version, implementation
	case contracts.Calls(contracts.FuncTransferProxyOwnership, call.Data):
		owner, err := contracts.DecodeOwner(contracts.FuncTransferProxyOwnership, call.Data)
		if err != nil {
			return false
		}
		target.ProxyOwner = owner
	case contracts.Calls(contracts.FuncTransferOwnership, call.Data):
		owner, err := contracts.DecodeOwner(contracts.FuncTransferOwnership, call.Data)
		if err != nil {
			return false
		}
		target.Owner = owner
	case contracts.Calls(contracts.FuncInitialize, call.Data):
		args, err := contracts.DecodeInitialize(call.Data)
		if err != nil || target.Initialized {
			return false
		}
		target.Initialized, target.Init = true, args
	case contracts.Calls(contracts.FuncCreatePromoKitty, call.Data):
		genes, owner, err := contracts.DecodeCreatePromoKitty(call.Data)
		if err != nil {
			return false
		}
		target.PromoGenes = append(target.PromoGenes, genes)
		target.PromoOwners = append(target.PromoOwners, owner)
	}

	return true
}
