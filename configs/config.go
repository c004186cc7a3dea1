package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	ChainName string

	Config struct {
		LogLevel   string     `mapstructure:"log-level"`
		Deployment Deployment `mapstructure:"deployment"`
		Home       Chain      `mapstructure:"home"`
		Foreign    Chain      `mapstructure:"foreign"`
		DevChain   DevChain   `mapstructure:"devchain"`
	}

	Deployment struct {
		PrivateKey    string  `mapstructure:"private-key"`
		GasLimitExtra float64 `mapstructure:"gas-limit-extra"`
		ArtifactsDir  string  `mapstructure:"artifacts-dir"`
		StateFile     string  `mapstructure:"state-file"`
		OutputFile    string  `mapstructure:"output-file"`
		Parallel      bool    `mapstructure:"parallel"`
		Receipt       Receipt `mapstructure:"receipt"`
	}

	Receipt struct {
		PollInterval time.Duration `mapstructure:"poll-interval"`
		Timeout      time.Duration `mapstructure:"timeout"`
	}

	Chain struct {
		RPCURL                  string `mapstructure:"rpc-url"`
		ChainID                 int    `mapstructure:"chain-id"`
		GasPrice                string `mapstructure:"gas-price"`
		AMBBridge               string `mapstructure:"amb-bridge"`
		MediatorRequestGasLimit int    `mapstructure:"mediator-request-gas-limit"`
		MediatorOwner           string `mapstructure:"mediator-owner"`
		UpgradeableAdmin        string `mapstructure:"upgradeable-admin"`
		AssetAddress            string `mapstructure:"asset-address"`
		AssetsAmount            int    `mapstructure:"assets-amount"`
		TransferAssetRole       bool   `mapstructure:"transfer-asset-role"`
		ExistingMediator        string `mapstructure:"existing-mediator"`
	}

	DevChain struct {
		Image          string `mapstructure:"image"`
		HomePort       int    `mapstructure:"home-port"`
		ForeignPort    int    `mapstructure:"foreign-port"`
		HomeChainID    int    `mapstructure:"home-chain-id"`
		ForeignChainID int    `mapstructure:"foreign-chain-id"`
	}
)

const (
	ChainNameHome    ChainName = "home"
	ChainNameForeign ChainName = "foreign"

	redacted = "[redacted]"
)

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log-level", c.LogLevel),
		slog.Any("deployment", c.Deployment),
		slog.Any("home", c.Home),
		slog.Any("foreign", c.Foreign),
		slog.Any("devchain", c.DevChain),
	)
}

// LogValue keeps the private key out of logs.
func (d Deployment) LogValue() slog.Value {
	key := ""
	if d.PrivateKey != "" {
		key = redacted
	}
	return slog.GroupValue(
		slog.String("private-key", key),
		slog.Float64("gas-limit-extra", d.GasLimitExtra),
		slog.String("artifacts-dir", d.ArtifactsDir),
		slog.String("state-file", d.StateFile),
		slog.String("output-file", d.OutputFile),
		slog.Bool("parallel", d.Parallel),
		slog.Duration("receipt-poll-interval", d.Receipt.PollInterval),
		slog.Duration("receipt-timeout", d.Receipt.Timeout),
	)
}

func (c *Config) Chain(name ChainName) Chain {
	if name == ChainNameForeign {
		return c.Foreign
	}
	return c.Home
}

// Validate checks everything a deploy run needs.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Deployment.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Home.Validate(ChainNameHome); err != nil {
		errs = append(errs, err)
	}
	if err := c.Foreign.Validate(ChainNameForeign); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func (d *Deployment) Validate() error {
	var errs []error

	if d.PrivateKey == "" {
		errs = append(errs, errors.New("deployment.private-key is required"))
	} else if _, err := account.FromPrivateKey(d.PrivateKey); err != nil {
		errs = append(errs, errors.New("deployment.private-key is not a valid secp256k1 key"))
	}
	if d.GasLimitExtra < 0 {
		errs = append(errs, errors.New("deployment.gas-limit-extra must not be negative"))
	}
	if d.ArtifactsDir == "" {
		errs = append(errs, errors.New("deployment.artifacts-dir is required"))
	}
	if d.Receipt.PollInterval < 0 {
		errs = append(errs, errors.New("deployment.receipt.poll-interval must not be negative"))
	}
	if d.Receipt.Timeout < 0 {
		errs = append(errs, errors.New("deployment.receipt.timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// Validate checks the chain section named name.
func (c *Chain) Validate(name ChainName) error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("%s.rpc-url is required", name))
	}
	if c.ChainID < 0 {
		errs = append(errs, fmt.Errorf("%s.chain-id must not be negative", name))
	}
	if _, err := c.GasPriceWei(); err != nil {
		errs = append(errs, fmt.Errorf("%s.gas-price: %w", name, err))
	}
	if c.MediatorRequestGasLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s.mediator-request-gas-limit must be positive", name))
	}
	if c.AssetsAmount < 0 {
		errs = append(errs, fmt.Errorf("%s.assets-amount must not be negative", name))
	}

	required := map[string]string{
		"amb-bridge":        c.AMBBridge,
		"mediator-owner":    c.MediatorOwner,
		"upgradeable-admin": c.UpgradeableAdmin,
	}
	for key, value := range required {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s.%s is required", name, key))
		} else if !common.IsHexAddress(value) {
			errs = append(errs, fmt.Errorf("%s.%s is not an address", name, key))
		}
	}

	optional := map[string]string{
		"asset-address":     c.AssetAddress,
		"existing-mediator": c.ExistingMediator,
	}
	for key, value := range optional {
		if value != "" && !common.IsHexAddress(value) {
			errs = append(errs, fmt.Errorf("%s.%s is not an address", name, key))
		}
	}

	if c.MediatorOwner != "" && c.MediatorOwner == c.UpgradeableAdmin {
		slog.With("chain", name).Warn("mediator owner and upgradeable admin are the same address")
	}

	return errors.Join(errs...)
}

// GasPriceWei parses the static gas price, a positive decimal amount of wei.
func (c *Chain) GasPriceWei() (*big.Int, error) {
	if c.GasPrice == "" {
		return nil, errors.New("gas price is required")
	}
	price, ok := new(big.Int).SetString(c.GasPrice, 10)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a decimal integer", c.GasPrice)
	}
	if price.Sign() <= 0 {
		return nil, errors.New("gas price must be positive")
	}
	return price, nil
}

// Address parses an optional address. Empty means the zero address.
func Address(value string) common.Address {
	if value == "" {
		return common.Address{}
	}
	return common.HexToAddress(value)
}
