package commands

import (
	"context"
	"fmt"
	"math/big"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/deployment"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem/json"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/compose-network/mediator-deployer/internal/txn"
)

var sideArtifacts = map[configs.ChainName]struct {
	mediator contracts.Name
	asset    contracts.Name
}{
	configs.ChainNameHome:    {mediator: contracts.HomeMediator, asset: contracts.SimpleBridgeKitty},
	configs.ChainNameForeign: {mediator: contracts.ForeignMediator, asset: contracts.KittyCore},
}

// dialTarget connects to the chain's node and derives the submission target from its config.
func dialTarget(ctx context.Context, name configs.ChainName, chain configs.Chain, gasLimitExtra float64) (txn.Target, *rpc.Client, error) {
	gasPrice, err := chain.GasPriceWei()
	if err != nil {
		return txn.Target{}, nil, fmt.Errorf("%s.gas-price: %w", name, err)
	}

	client, err := rpc.Dial(ctx, chain.RPCURL)
	if err != nil {
		return txn.Target{}, nil, fmt.Errorf("failed to connect to %s chain: %w", name, err)
	}

	return txn.Target{
		Name:          string(name),
		Caller:        client,
		GasPrice:      gasPrice,
		ChainID:       big.NewInt(int64(chain.ChainID)),
		GasLimitExtra: gasLimitExtra,
	}, client, nil
}

func sideConfig(name configs.ChainName, chain configs.Chain, target txn.Target) deployment.SideConfig {
	artifacts := sideArtifacts[name]
	return deployment.SideConfig{
		Side:              deployment.Side(name),
		Target:            target,
		Mediator:          artifacts.mediator,
		Asset:             artifacts.asset,
		Bridge:            configs.Address(chain.AMBBridge),
		RequestGasLimit:   big.NewInt(int64(chain.MediatorRequestGasLimit)),
		MediatorOwner:     configs.Address(chain.MediatorOwner),
		UpgradeableAdmin:  configs.Address(chain.UpgradeableAdmin),
		ExistingAsset:     configs.Address(chain.AssetAddress),
		ExistingMediator:  configs.Address(chain.ExistingMediator),
		AssetsAmount:      chain.AssetsAmount,
		TransferAssetRole: chain.TransferAssetRole,
	}
}

func newAwaiter(cfg configs.Deployment) *txn.Awaiter {
	return txn.NewAwaiter(txn.AwaitConfig{
		PollInterval: cfg.Receipt.PollInterval,
		Timeout:      cfg.Receipt.Timeout,
	})
}

// openLedger opens the state file, or an in-memory ledger when none is configured.
func openLedger(cfg configs.Deployment, acc *account.Account) (*deployment.Ledger, error) {
	if cfg.StateFile == "" {
		return deployment.NewMemoryLedger(acc.Address()), nil
	}
	return deployment.NewLedgerStore(cfg.StateFile, json.NewReader(), json.NewWriter()).Open(acc.Address())
}

func loadCatalog(dir string, names ...contracts.Name) (contracts.Catalog, error) {
	catalog, err := contracts.Load(json.NewReader(), dir, names...)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract artifacts: %w", err)
	}
	return catalog, nil
}
