// Package deployment sequences the two-sided mediator deployment.
//
// Phase 1 deploys the proxy, the mediator implementation and the asset contract on each
// side and wires the proxy to its implementation. Phase 2 starts only after phase 1 has
// finished on both sides and initializes each mediator with its peer's proxy address.
package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/genes"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/compose-network/mediator-deployer/internal/nonce"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/compose-network/mediator-deployer/internal/txn"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"
)

const (
	SideHome    Side = "home"
	SideForeign Side = "foreign"

	// proxyVersion is the storage version the first implementation is registered under
	proxyVersion = 1

	stepProxy          = "proxy"
	stepImplementation = "mediator_implementation"
	stepUpgrade        = "upgrade_proxy"
	stepAsset          = "asset"
	stepMintPrefix     = "mint_"
	stepSeedAsset      = "seed_asset"
	stepSeedPrefix     = "seed_mint_"
	stepAssetRole      = "transfer_asset_role"
	stepInitialize     = "initialize"
	stepProxyOwnership = "transfer_proxy_ownership"
)

type (
	Side string

	// SideConfig is everything one side of the deployment needs. Zero addresses in
	// ExistingAsset and ExistingMediator mean deploy.
	SideConfig struct {
		Side              Side
		Target            txn.Target
		Mediator          contracts.Name
		Asset             contracts.Name
		Bridge            common.Address
		RequestGasLimit   *big.Int
		MediatorOwner     common.Address
		UpgradeableAdmin  common.Address
		ExistingAsset     common.Address
		ExistingMediator  common.Address
		AssetsAmount      int
		TransferAssetRole bool
	}

	Config struct {
		Home    SideConfig
		Foreign SideConfig
		// Parallel runs phase 1 of both sides concurrently.
		Parallel bool
	}

	SideResult struct {
		Mediator       common.Address
		Implementation common.Address
		MediatorBlock  uint64
		Asset          common.Address
		AssetBlock     uint64
		AssetDeployed  bool
		Minted         int
	}

	Result struct {
		Home    SideResult
		Foreign SideResult
		Records []Record
	}

	Orchestrator struct {
		account *account.Account
		catalog contracts.Catalog
		awaiter *txn.Awaiter
		ledger  *Ledger
		logger  *slog.Logger
	}
)

func NewOrchestrator(acc *account.Account, catalog contracts.Catalog, awaiter *txn.Awaiter, ledger *Ledger) *Orchestrator {
	return &Orchestrator{
		account: acc,
		catalog: catalog,
		awaiter: awaiter,
		ledger:  ledger,
		logger:  logger.Named("deployment_orchestrator"),
	}
}

// Addresses maps logical names to the deployed addresses of both sides.
func (r Result) Addresses() map[string]common.Address {
	return map[string]common.Address{
		"homeMediator":    r.Home.Mediator,
		"homeAsset":       r.Home.Asset,
		"foreignMediator": r.Foreign.Mediator,
		"foreignAsset":    r.Foreign.Asset,
	}
}

// Execute runs both phases. The first error aborts the run; confirmed steps stay in the ledger.
func (o *Orchestrator) Execute(ctx context.Context, cfg Config) (Result, error) {
	var result Result

	home, err := o.openChain(ctx, cfg.Home)
	if err != nil {
		return result, err
	}
	foreign, err := o.openChain(ctx, cfg.Foreign)
	if err != nil {
		return result, err
	}

	o.logger.Info("Phase 1: deploying contracts on both chains")
	if cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			result.Home, err = o.deploySide(gctx, home, cfg.Home)
			return err
		})
		g.Go(func() (err error) {
			result.Foreign, err = o.deploySide(gctx, foreign, cfg.Foreign)
			return err
		})
		if err := g.Wait(); err != nil {
			return result, fmt.Errorf("phase 1 failed: %w", err)
		}
	} else {
		if result.Home, err = o.deploySide(ctx, home, cfg.Home); err != nil {
			return result, fmt.Errorf("phase 1 failed: %w", err)
		}
		if result.Foreign, err = o.deploySide(ctx, foreign, cfg.Foreign); err != nil {
			return result, fmt.Errorf("phase 1 failed: %w", err)
		}
	}

	o.logger.
		With("home_mediator", result.Home.Mediator.Hex()).
		With("foreign_mediator", result.Foreign.Mediator.Hex()).
		Info("Phase 2: initializing mediators")

	if err := o.initializeSide(ctx, home, cfg.Home, result.Home, result.Foreign.Mediator); err != nil {
		return result, fmt.Errorf("phase 2 failed: %w", err)
	}
	if err := o.initializeSide(ctx, foreign, cfg.Foreign, result.Foreign, result.Home.Mediator); err != nil {
		return result, fmt.Errorf("phase 2 failed: %w", err)
	}

	result.Records = o.ledger.Records()
	o.logger.Info("deployment completed successfully")

	return result, nil
}

// openChain binds the side to the node's chain id in the ledger and seeds its nonce counter.
// It is the only read of the transaction count in a run.
func (o *Orchestrator) openChain(ctx context.Context, cfg SideConfig) (*chain, error) {
	var chainID hexutil.Big
	if err := cfg.Target.Caller.Call(ctx, &chainID, rpc.MethodChainID, nil); err != nil {
		return nil, fmt.Errorf("[%s] %w", cfg.Side, err)
	}
	if err := o.ledger.Bind(cfg.Side, chainID.ToInt().Uint64()); err != nil {
		return nil, err
	}

	counter, err := nonce.Seed(ctx, cfg.Target.Caller, o.account.Address())
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", cfg.Side, err)
	}

	log := logger.Named("deployment_orchestrator").With("chain", cfg.Side)
	log.With("nonce", counter.Peek()).Info("seeded nonce counter")

	return &chain{
		side:    cfg.Side,
		builder: txn.NewBuilder(cfg.Target, o.account, o.awaiter),
		nonces:  counter,
		ledger:  o.ledger,
		logger:  log,
	}, nil
}

func (o *Orchestrator) deploySide(ctx context.Context, c *chain, cfg SideConfig) (SideResult, error) {
	var result SideResult

	mediator, err := o.deployMediator(ctx, c, cfg)
	if err != nil {
		return result, err
	}
	result.Mediator, result.Implementation, result.MediatorBlock = mediator.proxy, mediator.implementation, mediator.block

	asset, err := o.deployAsset(ctx, c, cfg)
	if err != nil {
		return result, err
	}
	result.Asset, result.AssetBlock, result.AssetDeployed = asset.Address, asset.Block, asset.Address != cfg.ExistingAsset

	if result.AssetDeployed && cfg.AssetsAmount > 0 {
		if result.Minted, err = o.mint(ctx, c, cfg.Asset, asset.Address, cfg.AssetsAmount, stepMintPrefix); err != nil {
			return result, err
		}
	}

	if cfg.TransferAssetRole {
		data, err := contracts.EncodeTransferOwnership(result.Mediator)
		if err != nil {
			return result, err
		}
		if _, err := c.call(ctx, stepAssetRole, result.Asset, data); err != nil {
			return result, err
		}
	}

	return result, nil
}

type mediatorDeployment struct {
	proxy          common.Address
	implementation common.Address
	block          uint64
}

func (o *Orchestrator) deployMediator(ctx context.Context, c *chain, cfg SideConfig) (mediatorDeployment, error) {
	if cfg.ExistingMediator != (common.Address{}) {
		c.logger.With("address", cfg.ExistingMediator.Hex()).Info("using existing mediator proxy")
		return mediatorDeployment{proxy: cfg.ExistingMediator}, nil
	}

	proxyArtifact, err := o.catalog.Get(contracts.EternalStorageProxy)
	if err != nil {
		return mediatorDeployment{}, err
	}
	mediatorArtifact, err := o.catalog.Get(cfg.Mediator)
	if err != nil {
		return mediatorDeployment{}, err
	}

	proxy, err := c.deploy(ctx, stepProxy, proxyArtifact)
	if err != nil {
		return mediatorDeployment{}, err
	}

	implementation, err := c.deploy(ctx, stepImplementation, mediatorArtifact)
	if err != nil {
		return mediatorDeployment{}, err
	}

	data, err := contracts.EncodeUpgradeTo(proxyVersion, implementation.Address)
	if err != nil {
		return mediatorDeployment{}, err
	}
	_, resumed := c.ledger.Find(c.side, stepUpgrade)
	if _, err := c.call(ctx, stepUpgrade, proxy.Address, data); err != nil {
		return mediatorDeployment{}, err
	}

	log := c.logger.
		With("proxy", proxy.Address.Hex()).
		With("implementation", implementation.Address.Hex())
	if resumed {
		log.Info("mediator proxy upgrade resumed from ledger")
	} else {
		log.Info("mediator proxy upgraded")
	}

	return mediatorDeployment{proxy: proxy.Address, implementation: implementation.Address, block: proxy.Block}, nil
}

func (o *Orchestrator) deployAsset(ctx context.Context, c *chain, cfg SideConfig) (Record, error) {
	return o.deployAssetStep(ctx, c, cfg, stepAsset)
}

// deployAssetStep returns the configured asset contract or deploys a new one under step.
func (o *Orchestrator) deployAssetStep(ctx context.Context, c *chain, cfg SideConfig, step string) (Record, error) {
	if cfg.ExistingAsset != (common.Address{}) {
		c.logger.With("address", cfg.ExistingAsset.Hex()).Info("using existing asset contract")
		return Record{Side: c.side, Step: step, Contract: cfg.Asset, Address: cfg.ExistingAsset}, nil
	}

	artifact, err := o.catalog.Get(cfg.Asset)
	if err != nil {
		return Record{}, err
	}
	return c.deploy(ctx, step, artifact)
}

// mint creates amount promotional assets owned by the deploying account. Mint i uses gene i.
func (o *Orchestrator) mint(ctx context.Context, c *chain, name contracts.Name, asset common.Address, amount int, stepPrefix string) (int, error) {
	artifact, err := o.catalog.Get(name)
	if err != nil {
		return 0, err
	}
	if !artifact.Supports(contracts.FuncCreatePromoKitty) {
		return 0, fmt.Errorf("[%s] asset contract %s cannot mint promotional assets", c.side, name)
	}

	c.logger.With("amount", amount).With("owner", o.account.Address().Hex()).Info("minting promotional assets")

	for i := 0; i < amount; i++ {
		data, err := contracts.EncodeCreatePromoKitty(genes.BigFor(i), o.account.Address())
		if err != nil {
			return i, err
		}
		if _, err := c.call(ctx, stepPrefix+strconv.Itoa(i), asset, data); err != nil {
			return i, err
		}
		c.logger.With("asset_id", i+1).Debug("minted promotional asset")
	}

	return amount, nil
}

// initializeSide wires the side's mediator to its peer and hands proxy ownership to the upgradeable admin.
func (o *Orchestrator) initializeSide(ctx context.Context, c *chain, cfg SideConfig, local SideResult, peer common.Address) error {
	args := contracts.InitArgs{
		Bridge:          cfg.Bridge,
		PeerMediator:    peer,
		Asset:           local.Asset,
		RequestGasLimit: cfg.RequestGasLimit,
		Owner:           cfg.MediatorOwner,
	}

	c.logger.
		With("bridge", args.Bridge.Hex()).
		With("peer_mediator", args.PeerMediator.Hex()).
		With("asset", args.Asset.Hex()).
		With("request_gas_limit", args.RequestGasLimit).
		With("owner", args.Owner.Hex()).
		Info("initializing mediator")

	data, err := contracts.EncodeInitialize(args)
	if err != nil {
		return fmt.Errorf("[%s] %w", c.side, err)
	}
	if _, err := c.call(ctx, stepInitialize, local.Mediator, data); err != nil {
		return err
	}

	c.logger.With("upgradeable_admin", cfg.UpgradeableAdmin.Hex()).Info("transferring mediator proxy ownership")

	data, err = contracts.EncodeTransferProxyOwnership(cfg.UpgradeableAdmin)
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, stepProxyOwnership, local.Mediator, data); err != nil {
		return err
	}

	return nil
}
