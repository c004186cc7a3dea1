package commands

import (
	"fmt"
	"log/slog"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/devchain"
	"github.com/spf13/cobra"
)

var DevChainCMD = &cobra.Command{
	Use:   "devchain",
	Short: "Run local home and foreign chains in docker",
}

var devChainUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start both dev chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values.DevChain
		slog.Info("starting dev chains", slog.Any("config", cfg))

		docker, err := devchain.NewDocker()
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		defer docker.Close()

		endpoints, err := devchain.NewManager(docker, cfg.Image).Up(cmd.Context(),
			devchain.Chain{Name: string(configs.ChainNameHome), Port: cfg.HomePort, ChainID: uint64(cfg.HomeChainID)},
			devchain.Chain{Name: string(configs.ChainNameForeign), Port: cfg.ForeignPort, ChainID: uint64(cfg.ForeignChainID)},
		)
		if err != nil {
			return err
		}

		for _, endpoint := range endpoints {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (chain id %d)\n", endpoint.Name, endpoint.RPCURL, endpoint.ChainID); err != nil {
				return err
			}
		}
		return nil
	},
}

var devChainDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Remove both dev chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		docker, err := devchain.NewDocker()
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		defer docker.Close()

		return devchain.NewManager(docker, configs.Values.DevChain.Image).
			Down(cmd.Context(), string(configs.ChainNameHome), string(configs.ChainNameForeign))
	},
}

func init() {
	flags := DevChainCMD.PersistentFlags()
	if err := declareFlags(flags, devChainStringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(flags, devChainIntFlags); err != nil {
		panic(err)
	}
	DevChainCMD.AddCommand(devChainUpCmd)
	DevChainCMD.AddCommand(devChainDownCmd)
}
