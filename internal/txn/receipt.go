package txn

import (
	"math/big"

	"github.com/compose-network/mediator-deployer/internal/chainerr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const receiptStatusSuccessful = 1

type (
	// Receipt is the subset of eth_getTransactionReceipt the pipeline relies on.
	// It is final only once BlockNumber is set.
	Receipt struct {
		TransactionHash common.Hash     `json:"transactionHash"`
		Status          *hexutil.Uint64 `json:"status"`
		BlockNumber     *hexutil.Big    `json:"blockNumber"`
		ContractAddress *common.Address `json:"contractAddress"`
		GasUsed         hexutil.Uint64  `json:"gasUsed"`
		Logs            []Log           `json:"logs"`
	}

	Log struct {
		Address common.Address `json:"address"`
		Topics  []common.Hash  `json:"topics"`
		Data    hexutil.Bytes  `json:"data"`
	}
)

func (r *Receipt) Mined() bool {
	return r != nil && r.BlockNumber != nil
}

// Block returns the mined block number, or nil while pending.
func (r *Receipt) Block() *big.Int {
	if !r.Mined() {
		return nil
	}
	return r.BlockNumber.ToInt()
}

// CheckSuccess returns a TransactionFailedError unless the receipt reports status 1.
// A receipt without a status field is treated as a failure.
func (r *Receipt) CheckSuccess() error {
	if r.Status == nil {
		return &chainerr.TransactionFailedError{Hash: r.TransactionHash, Reason: "receipt has no status field"}
	}
	if uint64(*r.Status) != receiptStatusSuccessful {
		status := uint64(*r.Status)
		return &chainerr.TransactionFailedError{Hash: r.TransactionHash, Status: &status}
	}
	return nil
}

// CreatedAddress returns the contract created by the transaction.
func (r *Receipt) CreatedAddress() (common.Address, error) {
	if err := r.CheckSuccess(); err != nil {
		return common.Address{}, err
	}
	if r.ContractAddress == nil || *r.ContractAddress == (common.Address{}) {
		return common.Address{}, chainerr.Assertf("receipt of %s carries no contract address", r.TransactionHash.Hex())
	}
	return *r.ContractAddress, nil
}
