package deployment

import (
	"bytes"
	"context"
	"log/slog"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/chainerr"
	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/genes"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem/json"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/compose-network/mediator-deployer/internal/testutil/fakenode"
	"github.com/compose-network/mediator-deployer/internal/txn"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devKey         = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	foreignChainID = 77
)

var (
	homeBridge        = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	foreignBridge     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	homeOwner         = common.HexToAddress("0x0000000000000000000000000000000000000011")
	homeAdmin         = common.HexToAddress("0x0000000000000000000000000000000000000012")
	foreignOwner      = common.HexToAddress("0x0000000000000000000000000000000000000021")
	foreignAdmin      = common.HexToAddress("0x0000000000000000000000000000000000000022")
	externalKittyCore = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type harness struct {
	home    *fakenode.Node
	foreign *fakenode.Node
	account *account.Account
	catalog contracts.Catalog
	awaiter *txn.Awaiter
	config  Config
}

func newHarness(t *testing.T, homeOpts, foreignOpts []fakenode.Option) *harness {
	t.Helper()

	acc, err := account.FromPrivateKey(devKey)
	require.NoError(t, err)

	catalog, err := contracts.Load(json.NewReader(), filepath.Join("..", "contracts", "testdata"), contracts.Names()...)
	require.NoError(t, err)

	h := &harness{
		home:    fakenode.New(t, homeOpts...),
		foreign: fakenode.New(t, append([]fakenode.Option{fakenode.WithChainID(foreignChainID)}, foreignOpts...)...),
		account: acc,
		catalog: catalog,
		awaiter: txn.NewAwaiter(txn.AwaitConfig{PollInterval: time.Millisecond, Timeout: 5 * time.Second}),
	}

	h.config = Config{
		Home: SideConfig{
			Side:              SideHome,
			Target:            target(t, "home", h.home, 0),
			Mediator:          contracts.HomeMediator,
			Asset:             contracts.SimpleBridgeKitty,
			Bridge:            homeBridge,
			RequestGasLimit:   big.NewInt(2_000_000),
			MediatorOwner:     homeOwner,
			UpgradeableAdmin:  homeAdmin,
			TransferAssetRole: true,
		},
		Foreign: SideConfig{
			Side:             SideForeign,
			Target:           target(t, "foreign", h.foreign, foreignChainID),
			Mediator:         contracts.ForeignMediator,
			Asset:            contracts.KittyCore,
			Bridge:           foreignBridge,
			RequestGasLimit:  big.NewInt(3_000_000),
			MediatorOwner:    foreignOwner,
			UpgradeableAdmin: foreignAdmin,
		},
	}

	return h
}

func target(t *testing.T, name string, node *fakenode.Node, chainID int64) txn.Target {
	t.Helper()

	client, err := rpc.Dial(context.Background(), node.URL())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return txn.Target{
		Name:          name,
		Caller:        client,
		GasPrice:      big.NewInt(1_000_000_000),
		ChainID:       big.NewInt(chainID),
		GasLimitExtra: 0.1,
	}
}

func (h *harness) orchestrator(ledger *Ledger) *Orchestrator {
	if ledger == nil {
		ledger = NewMemoryLedger(h.account.Address())
	}
	return NewOrchestrator(h.account, h.catalog, h.awaiter, ledger)
}

func TestExecute_DeploysAndCrossWiresBothSides(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}

		t.Run(name, func(t *testing.T) {
			h := newHarness(t, nil, []fakenode.Option{fakenode.WithPendingPolls(1)})
			h.config.Parallel = parallel

			result, err := h.orchestrator(nil).Execute(context.Background(), h.config)
			require.NoError(t, err)

			homeCreated := h.home.Created()
			require.Len(t, homeCreated, 3)
			assert.Equal(t, homeCreated[0], result.Home.Mediator, "proxy address must survive the upgrade")
			assert.Equal(t, homeCreated[1], result.Home.Implementation)
			assert.Equal(t, homeCreated[2], result.Home.Asset)

			foreignCreated := h.foreign.Created()
			require.Len(t, foreignCreated, 3)
			assert.Equal(t, foreignCreated[0], result.Foreign.Mediator)

			homeProxy, ok := h.home.Contract(result.Home.Mediator)
			require.True(t, ok)
			assert.Equal(t, result.Home.Implementation, homeProxy.Implementation)
			assert.Equal(t, uint64(1), homeProxy.Version)

			foreignProxy, ok := h.foreign.Contract(result.Foreign.Mediator)
			require.True(t, ok)
			assert.Equal(t, result.Foreign.Implementation, foreignProxy.Implementation)

			require.True(t, homeProxy.Initialized)
			require.True(t, foreignProxy.Initialized)
			assert.Equal(t, result.Foreign.Mediator, homeProxy.Init.PeerMediator)
			assert.Equal(t, result.Home.Mediator, foreignProxy.Init.PeerMediator)

			assert.Equal(t, homeBridge, homeProxy.Init.Bridge)
			assert.Equal(t, result.Home.Asset, homeProxy.Init.Asset)
			assert.Equal(t, homeOwner, homeProxy.Init.Owner)
			assert.Equal(t, int64(2_000_000), homeProxy.Init.RequestGasLimit.Int64())
			assert.Equal(t, homeAdmin, homeProxy.ProxyOwner)

			assert.Equal(t, foreignBridge, foreignProxy.Init.Bridge)
			assert.Equal(t, result.Foreign.Asset, foreignProxy.Init.Asset)
			assert.Equal(t, foreignOwner, foreignProxy.Init.Owner)
			assert.Equal(t, foreignAdmin, foreignProxy.ProxyOwner)

			homeAsset, ok := h.home.Contract(result.Home.Asset)
			require.True(t, ok)
			assert.Equal(t, result.Home.Mediator, homeAsset.Owner)

			foreignAsset, ok := h.foreign.Contract(result.Foreign.Asset)
			require.True(t, ok)
			assert.Equal(t, common.Address{}, foreignAsset.Owner)

			assert.Equal(t, map[string]common.Address{
				"homeMediator":    result.Home.Mediator,
				"homeAsset":       result.Home.Asset,
				"foreignMediator": result.Foreign.Mediator,
				"foreignAsset":    result.Foreign.Asset,
			}, result.Addresses())
			assert.Len(t, result.Records, 13)
		})
	}
}

func TestExecute_NoncesAreSeededOnceAndStrictlySequential(t *testing.T) {
	acc, err := account.FromPrivateKey(devKey)
	require.NoError(t, err)

	h := newHarness(t,
		[]fakenode.Option{fakenode.WithNonce(acc.Address(), 4)},
		[]fakenode.Option{fakenode.WithNonce(acc.Address(), 9)},
	)

	_, err = h.orchestrator(nil).Execute(context.Background(), h.config)
	require.NoError(t, err)

	// proxy, implementation, upgrade, asset, asset role, initialize, proxy ownership
	assert.Equal(t, []uint64{4, 5, 6, 7, 8, 9, 10}, h.home.NoncesUsed(acc.Address()))
	// proxy, implementation, upgrade, asset, initialize, proxy ownership
	assert.Equal(t, []uint64{9, 10, 11, 12, 13, 14}, h.foreign.NoncesUsed(acc.Address()))

	assert.Equal(t, 1, h.home.Count(rpc.MethodGetTransactionCount))
	assert.Equal(t, 1, h.foreign.Count(rpc.MethodGetTransactionCount))
}

func TestExecute_MintsPromoAssetsWithCyclicGenes(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.config.Foreign.AssetsAmount = 13

	result, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.NoError(t, err)
	assert.Equal(t, 13, result.Foreign.Minted)

	asset, ok := h.foreign.Contract(result.Foreign.Asset)
	require.True(t, ok)
	require.Len(t, asset.PromoGenes, 13)

	for i, gene := range asset.PromoGenes {
		assert.Equal(t, 0, genes.BigFor(i).Cmp(gene), "mint %d", i)
		assert.Equal(t, h.account.Address(), asset.PromoOwners[i])
	}
	assert.Equal(t, 0, asset.PromoGenes[12].Cmp(asset.PromoGenes[2]))
}

func TestExecute_ExistingAssetIsReusedWithoutMinting(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.config.Foreign.ExistingAsset = externalKittyCore
	h.config.Foreign.AssetsAmount = 5

	result, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.NoError(t, err)

	assert.Equal(t, externalKittyCore, result.Foreign.Asset)
	assert.False(t, result.Foreign.AssetDeployed)
	assert.Zero(t, result.Foreign.Minted)
	assert.Len(t, h.foreign.Created(), 2)

	foreignProxy, ok := h.foreign.Contract(result.Foreign.Mediator)
	require.True(t, ok)
	assert.Equal(t, externalKittyCore, foreignProxy.Init.Asset)

	for _, call := range h.foreign.Calls() {
		assert.False(t, contracts.Calls(contracts.FuncCreatePromoKitty, call.Data))
	}
}

func TestExecute_ExistingMediatorSkipsPhaseOneDeployments(t *testing.T) {
	h := newHarness(t, nil, nil)

	first, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.NoError(t, err)

	// an already wired proxy on a fresh foreign chain is just an address
	other := newHarness(t, nil, nil)
	other.config.Home.ExistingMediator = first.Home.Mediator
	other.config.Home.ExistingAsset = first.Home.Asset
	other.config.Home.TransferAssetRole = false

	result, err := other.orchestrator(nil).Execute(context.Background(), other.config)
	require.NoError(t, err)
	assert.Equal(t, first.Home.Mediator, result.Home.Mediator)
	assert.Empty(t, other.home.Created())
	assert.Len(t, other.foreign.Created(), 3)
}

func TestExecute_GasEstimateAboveBlockLimitBroadcastsNothing(t *testing.T) {
	h := newHarness(t,
		[]fakenode.Option{fakenode.WithGasEstimate(9_000_000), fakenode.WithBlockGasLimit(8_000_000)},
		nil,
	)

	_, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.Error(t, err)
	assert.ErrorIs(t, err, chainerr.ErrGasEstimationExceeded)

	assert.Zero(t, h.home.Count(rpc.MethodSendRawTransaction))
	assert.Zero(t, h.foreign.Count(rpc.MethodSendRawTransaction))
}

func TestExecute_FailedReceiptAbortsTheRun(t *testing.T) {
	h := newHarness(t, nil, []fakenode.Option{fakenode.WithFailing(contracts.FuncInitialize)})

	result, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.Error(t, err)
	assert.ErrorIs(t, err, chainerr.ErrTransactionFailed)
	assert.Contains(t, err.Error(), "phase 2 failed")

	homeProxy, ok := h.home.Contract(result.Home.Mediator)
	require.True(t, ok)
	assert.True(t, homeProxy.Initialized)

	foreignProxy, ok := h.foreign.Contract(result.Foreign.Mediator)
	require.True(t, ok)
	assert.False(t, foreignProxy.Initialized)
	assert.Equal(t, common.Address{}, foreignProxy.ProxyOwner, "no step may run after a failure")
}

func TestExecute_PhaseTwoWaitsForBothSides(t *testing.T) {
	h := newHarness(t, nil, []fakenode.Option{fakenode.WithFailing(contracts.FuncUpgradeTo)})
	h.config.Parallel = true

	_, err := h.orchestrator(nil).Execute(context.Background(), h.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase 1 failed")

	for _, call := range h.home.Calls() {
		assert.False(t, contracts.Calls(contracts.FuncInitialize, call.Data), "home must not be initialized before foreign finished phase 1")
	}
}

func TestExecute_ResumesFromLedger(t *testing.T) {
	h := newHarness(t, nil, []fakenode.Option{fakenode.WithFailing(contracts.FuncInitialize)})
	store := NewLedgerStore(filepath.Join(t.TempDir(), "state.json"), json.NewReader(), json.NewWriter())

	ledger, err := store.Open(h.account.Address())
	require.NoError(t, err)
	_, err = h.orchestrator(ledger).Execute(context.Background(), h.config)
	require.Error(t, err)

	homeTxs := len(h.home.NoncesUsed(h.account.Address()))
	foreignTxs := len(h.foreign.NoncesUsed(h.account.Address()))
	h.foreign.ClearFailing()

	ledger, err = store.Open(h.account.Address())
	require.NoError(t, err)
	result, err := h.orchestrator(ledger).Execute(context.Background(), h.config)
	require.NoError(t, err)

	assert.Len(t, h.home.NoncesUsed(h.account.Address()), homeTxs, "home was complete and must not be touched")
	assert.Len(t, h.home.Created(), 3)
	assert.Len(t, h.foreign.Created(), 3)

	used := h.foreign.NoncesUsed(h.account.Address())
	require.Len(t, used, foreignTxs+2)
	assert.Equal(t, []uint64{uint64(foreignTxs), uint64(foreignTxs + 1)}, used[foreignTxs:])

	foreignProxy, ok := h.foreign.Contract(result.Foreign.Mediator)
	require.True(t, ok)
	assert.True(t, foreignProxy.Initialized)
	assert.Equal(t, result.Home.Mediator, foreignProxy.Init.PeerMediator)
	assert.Equal(t, foreignAdmin, foreignProxy.ProxyOwner)
}

func TestExecute_RejectsLedgerOfResetChain(t *testing.T) {
	first := newHarness(t, nil, nil)
	done := NewMemoryLedger(first.account.Address())
	_, err := first.orchestrator(done).Execute(context.Background(), first.config)
	require.NoError(t, err)

	stale := NewMemoryLedger(first.account.Address())
	for _, record := range done.Records() {
		require.NoError(t, stale.Add(record))
	}

	fresh := newHarness(t, nil, nil)
	_, err = fresh.orchestrator(stale).Execute(context.Background(), fresh.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to this chain")
	assert.Zero(t, fresh.home.Count(rpc.MethodSendRawTransaction))
	assert.Zero(t, fresh.foreign.Count(rpc.MethodSendRawTransaction))
	assert.Empty(t, fresh.home.Created())
}

func TestExecute_RerunLogsResumedUpgrade(t *testing.T) {
	h := newHarness(t, nil, nil)
	ledger := NewMemoryLedger(h.account.Address())
	_, err := h.orchestrator(ledger).Execute(context.Background(), h.config)
	require.NoError(t, err)

	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	_, err = h.orchestrator(ledger).Execute(context.Background(), h.config)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "mediator proxy upgrade resumed from ledger")
	assert.NotContains(t, logs.String(), `"msg":"mediator proxy upgraded"`)
}

func TestSeed_MintsIntoExistingAsset(t *testing.T) {
	h := newHarness(t, nil, nil)

	first, err := h.orchestrator(nil).Seed(context.Background(), SideConfig{
		Side: SideForeign, Target: h.config.Foreign.Target, Asset: contracts.KittyCore, AssetsAmount: 2,
	})
	require.NoError(t, err)
	assert.True(t, first.AssetDeployed)
	assert.Equal(t, 2, first.Minted)

	second, err := h.orchestrator(nil).Seed(context.Background(), SideConfig{
		Side: SideForeign, Target: h.config.Foreign.Target, Asset: contracts.KittyCore, AssetsAmount: 3,
		ExistingAsset: first.Asset,
	})
	require.NoError(t, err)
	assert.False(t, second.AssetDeployed)
	assert.Equal(t, 3, second.Minted)

	asset, ok := h.foreign.Contract(first.Asset)
	require.True(t, ok)
	assert.Len(t, asset.PromoGenes, 5)
}

func TestSeed_RejectsAssetWithoutMint(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.orchestrator(nil).Seed(context.Background(), SideConfig{
		Side: SideHome, Target: h.config.Home.Target, Asset: contracts.SimpleBridgeKitty, AssetsAmount: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot mint")
}
