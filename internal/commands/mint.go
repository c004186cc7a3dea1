package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/deployment"
	"github.com/spf13/cobra"
)

var (
	mintChain  string
	mintAmount int
)

var MintCMD = &cobra.Command{
	Use:   "mint",
	Short: "Deploy a KittyCore contract, or reuse the configured one, and mint promotional assets into it",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := configs.ChainName(mintChain)
		if name != configs.ChainNameHome && name != configs.ChainNameForeign {
			return fmt.Errorf("unknown chain '%s', expected home or foreign", mintChain)
		}

		cfg := configs.Values
		chain := cfg.Chain(name)
		if mintAmount >= 0 {
			chain.AssetsAmount = mintAmount
		}

		if err := errors.Join(cfg.Deployment.Validate(), validateMintChain(name, chain)); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		return mint(cmd, cfg.Deployment, name, chain)
	},
}

func init() {
	MintCMD.Flags().StringVar(&mintChain, "chain", string(configs.ChainNameForeign), "Chain to mint on (home or foreign)")
	MintCMD.Flags().IntVar(&mintAmount, "amount", -1, "Number of assets to mint, defaults to the chain's assets-amount")
}

func validateMintChain(name configs.ChainName, chain configs.Chain) error {
	var errs []error
	if chain.RPCURL == "" {
		errs = append(errs, fmt.Errorf("%s.rpc-url is required", name))
	}
	if _, err := chain.GasPriceWei(); err != nil {
		errs = append(errs, fmt.Errorf("%s.gas-price: %w", name, err))
	}
	if chain.AssetsAmount <= 0 {
		errs = append(errs, fmt.Errorf("%s.assets-amount must be positive", name))
	}
	return errors.Join(errs...)
}

func mint(cmd *cobra.Command, cfg configs.Deployment, name configs.ChainName, chain configs.Chain) error {
	ctx := cmd.Context()

	acc, err := account.FromPrivateKey(cfg.PrivateKey)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.ArtifactsDir, contracts.KittyCore)
	if err != nil {
		return err
	}

	target, client, err := dialTarget(ctx, name, chain, cfg.GasLimitExtra)
	if err != nil {
		return err
	}
	defer client.Close()

	ledger, err := openLedger(cfg, acc)
	if err != nil {
		return err
	}

	side := sideConfig(name, chain, target)
	side.Asset = contracts.KittyCore

	result, err := deployment.NewOrchestrator(acc, catalog, newAwaiter(cfg), ledger).Seed(ctx, side)
	if err != nil {
		return fmt.Errorf("minting failed: %w", err)
	}

	slog.With("asset", result.Asset.Hex()).With("minted", result.Minted).Info("promotional assets minted")
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "asset: %s\nminted: %d\n", result.Asset.Hex(), result.Minted)
	return err
}
