package deployment

import (
	"path/filepath"
	"testing"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem/json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerStore_PersistsEveryRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.json")
	store := NewLedgerStore(path, json.NewReader(), json.NewWriter())
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a0")

	ledger, err := store.Open(owner)
	require.NoError(t, err)
	assert.Empty(t, ledger.Records())

	record := Record{
		Side:     SideHome,
		Step:     stepProxy,
		Contract: contracts.EternalStorageProxy,
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Block:    7,
		TxHash:   common.HexToHash("0x01"),
	}
	require.NoError(t, ledger.Add(record))

	reopened, err := store.Open(owner)
	require.NoError(t, err)

	got, ok := reopened.Find(SideHome, stepProxy)
	require.True(t, ok)
	assert.Equal(t, record, got)

	_, ok = reopened.Find(SideForeign, stepProxy)
	assert.False(t, ok)
}

func TestLedgerStore_RejectsOtherAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewLedgerStore(path, json.NewReader(), json.NewWriter())

	ledger, err := store.Open(common.HexToAddress("0x01"))
	require.NoError(t, err)
	require.NoError(t, ledger.Add(Record{Side: SideForeign, Step: stepAsset}))

	_, err = store.Open(common.HexToAddress("0x02"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment ledger belongs to")
}

func TestMemoryLedger(t *testing.T) {
	ledger := NewMemoryLedger(common.HexToAddress("0x01"))
	require.NoError(t, ledger.Add(Record{Side: SideHome, Step: stepUpgrade}))

	_, ok := ledger.Find(SideHome, stepUpgrade)
	assert.True(t, ok)
	assert.Len(t, ledger.Records(), 1)
}

func TestLedgerStore_RejectsOtherChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewLedgerStore(path, json.NewReader(), json.NewWriter())
	owner := common.HexToAddress("0x01")

	ledger, err := store.Open(owner)
	require.NoError(t, err)
	require.NoError(t, ledger.Bind(SideHome, 1337))
	require.NoError(t, ledger.Bind(SideForeign, 1338))

	reopened, err := store.Open(owner)
	require.NoError(t, err)
	require.NoError(t, reopened.Bind(SideHome, 1337))

	err = reopened.Bind(SideForeign, 31337)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "written against chain id 1338, node reports 31337")
}
