package commands

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/deployment"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem/json"
	"github.com/compose-network/mediator-deployer/internal/output"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var DeployCMD = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy and cross-wire the home and foreign mediators",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("starting deploy command. Validating config", slog.Any("config", configs.Values))

		if err := configs.Values.Validate(); err != nil {
			return err
		}

		slog.Info("config validation successful. Starting deployment...")

		return deploy(cmd, configs.Values)
	},
}

func init() {
	flags := DeployCMD.Flags()
	if err := declareFlags(flags, deployStringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(flags, deployIntFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(flags, deployBoolFlags); err != nil {
		panic(err)
	}
}

func deploy(cmd *cobra.Command, cfg configs.Config) error {
	ctx := cmd.Context()

	acc, err := account.FromPrivateKey(cfg.Deployment.PrivateKey)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.Deployment.ArtifactsDir, contracts.Names()...)
	if err != nil {
		return err
	}

	homeTarget, homeClient, err := dialTarget(ctx, configs.ChainNameHome, cfg.Home, cfg.Deployment.GasLimitExtra)
	if err != nil {
		return err
	}
	defer homeClient.Close()

	foreignTarget, foreignClient, err := dialTarget(ctx, configs.ChainNameForeign, cfg.Foreign, cfg.Deployment.GasLimitExtra)
	if err != nil {
		return err
	}
	defer foreignClient.Close()

	ledger, err := openLedger(cfg.Deployment, acc)
	if err != nil {
		return err
	}

	orchestrator := deployment.NewOrchestrator(acc, catalog, newAwaiter(cfg.Deployment), ledger)
	result, err := orchestrator.Execute(ctx, deployment.Config{
		Home:     sideConfig(configs.ChainNameHome, cfg.Home, homeTarget),
		Foreign:  sideConfig(configs.ChainNameForeign, cfg.Foreign, foreignTarget),
		Parallel: cfg.Deployment.Parallel,
	})
	if err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}

	if cfg.Deployment.OutputFile != "" {
		generator := output.NewGenerator(catalog, json.NewWriter())
		if err := generator.Generate(cfg.Deployment.OutputFile, acc.Address(), result,
			chainInfo(configs.ChainNameHome, cfg.Home),
			chainInfo(configs.ChainNameForeign, cfg.Foreign),
		); err != nil {
			return err
		}
		slog.With("output_file", cfg.Deployment.OutputFile).Info("deployment output written")
	}

	return printAddresses(cmd.OutOrStdout(), result.Addresses())
}

func chainInfo(name configs.ChainName, chain configs.Chain) output.ChainInfo {
	artifacts := sideArtifacts[name]
	return output.ChainInfo{
		RPCURL:   chain.RPCURL,
		ChainID:  uint64(chain.ChainID),
		Mediator: artifacts.mediator,
		Asset:    artifacts.asset,
	}
}

func printAddresses(w io.Writer, addresses map[string]common.Address) error {
	names := make([]string, 0, len(addresses))
	for name := range addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, addresses[name].Hex()); err != nil {
			return err
		}
	}
	return nil
}
