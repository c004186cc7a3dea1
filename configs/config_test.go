package configs

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func validConfig(t *testing.T) Config {
	t.Helper()

	cfg, err := DefaultConfig()
	require.NoError(t, err)

	cfg.Deployment.PrivateKey = devKey
	for _, chain := range []*Chain{&cfg.Home, &cfg.Foreign} {
		chain.AMBBridge = "0x00000000000000000000000000000000000000b1"
		chain.MediatorOwner = "0x0000000000000000000000000000000000000011"
		chain.UpgradeableAdmin = "0x0000000000000000000000000000000000000012"
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Deployment.Receipt.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Deployment.Receipt.Timeout)
	assert.InDelta(t, 0.2, cfg.Deployment.GasLimitExtra, 1e-9)
	assert.True(t, cfg.Home.TransferAssetRole)
	assert.False(t, cfg.Foreign.TransferAssetRole)
	assert.Equal(t, 9545, cfg.DevChain.ForeignPort)
}

func TestApplyDefaults_FileValuesWin(t *testing.T) {
	v := viper.New()
	require.NoError(t, ApplyDefaults(v))
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString("home:\n  rpc-url: http://node:8545\n")))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, "http://node:8545", cfg.Home.RPCURL)
	assert.Equal(t, "1000000000", cfg.Home.GasPrice)
	assert.Equal(t, "http://localhost:9545", cfg.Foreign.RPCURL)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig(t)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("upper case key prefix", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Deployment.PrivateKey = "0X" + strings.TrimPrefix(devKey, "0x")
		require.NoError(t, cfg.Validate())

		_, err := account.FromPrivateKey(cfg.Deployment.PrivateKey)
		assert.NoError(t, err)
	})

	t.Run("aggregates every problem", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Deployment.PrivateKey = "nothex"
		cfg.Home.GasPrice = "-5"
		cfg.Foreign.AMBBridge = ""
		cfg.Foreign.AssetAddress = "0x123"

		err := cfg.Validate()
		require.Error(t, err)
		for _, want := range []string{
			"deployment.private-key is not a valid secp256k1 key",
			"home.gas-price: gas price must be positive",
			"foreign.amb-bridge is required",
			"foreign.asset-address is not an address",
		} {
			assert.Contains(t, err.Error(), want)
		}
	})
}

func TestChain_GasPriceWei(t *testing.T) {
	chain := Chain{GasPrice: "20000000000"}
	price, err := chain.GasPriceWei()
	require.NoError(t, err)
	assert.Equal(t, "20000000000", price.String())

	_, err = (&Chain{GasPrice: "1.5"}).GasPriceWei()
	assert.Error(t, err)
}

func TestDeployment_LogValueRedactsKey(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Info("config", "deployment", Deployment{PrivateKey: devKey, ArtifactsDir: "build"})

	assert.NotContains(t, buf.String(), "ac0974")
	assert.Contains(t, buf.String(), redacted)
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "0x0000000000000000000000000000000000000000", Address("").Hex())
	assert.Equal(t, "0x00000000000000000000000000000000000000b1", Address("0x00000000000000000000000000000000000000b1").Hex())
}

func TestConfig_LogValueRedactsNestedKey(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Info("configuration loaded", "config", validConfig(t))

	assert.NotContains(t, buf.String(), "ac0974")
	assert.Contains(t, buf.String(), "http://localhost:8545")
}
