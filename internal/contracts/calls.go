package contracts

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

var (
	FuncUpgradeTo = w3.MustNewFunc(
		"upgradeTo(uint256,address)", "",
	)
	FuncTransferProxyOwnership = w3.MustNewFunc(
		"transferProxyOwnership(address)", "",
	)
	FuncTransferOwnership = w3.MustNewFunc(
		"transferOwnership(address)", "",
	)
	FuncCreatePromoKitty = w3.MustNewFunc(
		"createPromoKitty(uint256,address)", "",
	)
	FuncInitialize = w3.MustNewFunc(
		"initialize(address,address,address,uint256,address)", "bool",
	)
)

// InitArgs are the mediator initialization parameters. PeerMediator is the
// proxy address of the mediator on the other chain.
type InitArgs struct {
	Bridge          common.Address
	PeerMediator    common.Address
	Asset           common.Address
	RequestGasLimit *big.Int
	Owner           common.Address
}

func EncodeUpgradeTo(version uint64, implementation common.Address) ([]byte, error) {
	return FuncUpgradeTo.EncodeArgs(new(big.Int).SetUint64(version), implementation)
}

func DecodeUpgradeTo(data []byte) (uint64, common.Address, error) {
	var (
		version        big.Int
		implementation common.Address
	)
	if err := FuncUpgradeTo.DecodeArgs(data, &version, &implementation); err != nil {
		return 0, common.Address{}, err
	}
	return version.Uint64(), implementation, nil
}

func EncodeTransferProxyOwnership(owner common.Address) ([]byte, error) {
	return FuncTransferProxyOwnership.EncodeArgs(owner)
}

func EncodeTransferOwnership(owner common.Address) ([]byte, error) {
	return FuncTransferOwnership.EncodeArgs(owner)
}

// DecodeOwner decodes the address argument of fn, which must take a single address.
func DecodeOwner(fn *w3.Func, data []byte) (common.Address, error) {
	var owner common.Address
	if err := fn.DecodeArgs(data, &owner); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

func EncodeCreatePromoKitty(genes *big.Int, owner common.Address) ([]byte, error) {
	return FuncCreatePromoKitty.EncodeArgs(genes, owner)
}

func DecodeCreatePromoKitty(data []byte) (*big.Int, common.Address, error) {
	var (
		genes big.Int
		owner common.Address
	)
	if err := FuncCreatePromoKitty.DecodeArgs(data, &genes, &owner); err != nil {
		return nil, common.Address{}, err
	}
	return &genes, owner, nil
}

func EncodeInitialize(args InitArgs) ([]byte, error) {
	if args.RequestGasLimit == nil {
		return nil, fmt.Errorf("initialize requires a request gas limit")
	}
	return FuncInitialize.EncodeArgs(args.Bridge, args.PeerMediator, args.Asset, args.RequestGasLimit, args.Owner)
}

func DecodeInitialize(data []byte) (InitArgs, error) {
	var (
		args     InitArgs
		gasLimit big.Int
	)
	if err := FuncInitialize.DecodeArgs(data, &args.Bridge, &args.PeerMediator, &args.Asset, &gasLimit, &args.Owner); err != nil {
		return InitArgs{}, err
	}
	args.RequestGasLimit = &gasLimit
	return args, nil
}

// Calls reports whether data is a call to fn.
func Calls(fn *w3.Func, data []byte) bool {
	return len(data) >= len(fn.Selector) && bytes.Equal(data[:len(fn.Selector)], fn.Selector[:])
}
