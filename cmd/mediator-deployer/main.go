package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/commands"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "mediator-deployer"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "CLI for deploying and cross-wiring home and foreign asset mediators",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Initialize(slog.LevelDebug)

		if err := configs.ApplyDefaults(viper.GetViper()); err != nil {
			return errors.Join(err, errors.New("unable to apply default config"))
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			viper.AddConfigPath(execDir)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		// Flags and the embedded defaults can provide everything, so a missing file is fine
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				slog.Debug("no config file found, will rely on flags and defaults")
			} else {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		level, err := logger.ParseLevel(configs.Values.LogLevel)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		slog.With("config", configs.Values).Debug("configuration loaded")

		return nil
	},
}

func main() {
	if err := commands.DeclarePersistentFlags(rootCmd); err != nil {
		panic(err.Error())
	}

	rootCmd.AddCommand(commands.DeployCMD)
	rootCmd.AddCommand(commands.MintCMD)
	rootCmd.AddCommand(commands.GenesCMD)
	rootCmd.AddCommand(commands.AddressCMD)
	rootCmd.AddCommand(commands.DevChainCMD)

	if err := rootCmd.Execute(); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		os.Exit(1)
	}
}
