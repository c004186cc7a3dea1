// Package commands holds the cobra commands of the deployer CLI and binds their flags to viper keys.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagDef defines a command-line flag with its configuration key.
type (
	flagType interface {
		string | int | bool | float64
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	// Shared by every command, declared once on the root so that each key has a single bound flag.
	persistentStringFlags = []flagDef[string]{
		{"log-level", "log-level", "", "Log level (debug, info, warn, error)"},
		{"private-key", "deployment.private-key", "", "Deployment account private key (hex, 0x prefix optional)"},
		{"artifacts-dir", "deployment.artifacts-dir", "", "Directory with the compiled contract artifacts"},
		{"state-file", "deployment.state-file", "", "Deployment ledger used to resume an interrupted run (empty disables it)"},

		{"home-rpc-url", "home.rpc-url", "", "Home chain RPC URL"},
		{"home-gas-price", "home.gas-price", "", "Home chain gas price in wei"},
		{"foreign-rpc-url", "foreign.rpc-url", "", "Foreign chain RPC URL"},
		{"foreign-gas-price", "foreign.gas-price", "", "Foreign chain gas price in wei"},
	}

	persistentIntFlags = []flagDef[int]{
		{"home-chain-id", "home.chain-id", 0, "Home chain ID, 0 signs without replay protection"},
		{"foreign-chain-id", "foreign.chain-id", 0, "Foreign chain ID, 0 signs without replay protection"},
	}

	persistentFloatFlags = []flagDef[float64]{
		{"gas-limit-extra", "deployment.gas-limit-extra", 0, "Fraction added to every gas estimate"},
	}

	deployStringFlags = []flagDef[string]{
		{"output-file", "deployment.output-file", "", "YAML file the deployed addresses are written to (empty disables it)"},

		{"home-amb-bridge", "home.amb-bridge", "", "Home arbitrary message bridge address"},
		{"home-mediator-owner", "home.mediator-owner", "", "Home mediator owner"},
		{"home-upgradeable-admin", "home.upgradeable-admin", "", "Home mediator proxy owner"},
		{"home-asset-address", "home.asset-address", "", "Existing home asset contract, skips its deployment"},
		{"home-existing-mediator", "home.existing-mediator", "", "Existing home mediator proxy, skips its deployment"},

		{"foreign-amb-bridge", "foreign.amb-bridge", "", "Foreign arbitrary message bridge address"},
		{"foreign-mediator-owner", "foreign.mediator-owner", "", "Foreign mediator owner"},
		{"foreign-upgradeable-admin", "foreign.upgradeable-admin", "", "Foreign mediator proxy owner"},
		{"foreign-asset-address", "foreign.asset-address", "", "Existing foreign asset contract, skips its deployment and minting"},
		{"foreign-existing-mediator", "foreign.existing-mediator", "", "Existing foreign mediator proxy, skips its deployment"},
	}

	deployIntFlags = []flagDef[int]{
		{"home-mediator-request-gas-limit", "home.mediator-request-gas-limit", 0, "Gas limit the home mediator requests per message"},
		{"foreign-mediator-request-gas-limit", "foreign.mediator-request-gas-limit", 0, "Gas limit the foreign mediator requests per message"},
		{"foreign-assets-amount", "foreign.assets-amount", 0, "Promotional assets minted into a freshly deployed foreign asset contract"},
	}

	deployBoolFlags = []flagDef[bool]{
		{"parallel", "deployment.parallel", false, "Run the deployments of both chains concurrently"},
	}

	devChainStringFlags = []flagDef[string]{
		{"image", "devchain.image", "", "Dev chain image"},
	}

	devChainIntFlags = []flagDef[int]{
		{"home-port", "devchain.home-port", 0, "Host port of the home dev chain"},
		{"foreign-port", "devchain.foreign-port", 0, "Host port of the foreign dev chain"},
		{"home-dev-chain-id", "devchain.home-chain-id", 0, "Chain ID of the home dev chain"},
		{"foreign-dev-chain-id", "devchain.foreign-chain-id", 0, "Chain ID of the foreign dev chain"},
	}
)

// DeclarePersistentFlags adds the shared flags to root.
func DeclarePersistentFlags(root *cobra.Command) error {
	flags := root.PersistentFlags()
	if err := declareFlags(flags, persistentStringFlags); err != nil {
		return err
	}
	if err := declareFlags(flags, persistentIntFlags); err != nil {
		return err
	}
	return declareFlags(flags, persistentFloatFlags)
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](flagSet *pflag.FlagSet, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(flagSet, flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
// The type parameter T determines the flag type.
func declareFlag[T flagType](flagSet *pflag.FlagSet, flagName, viperKey string, defaultValue T, description string) error {
	switch value := any(defaultValue).(type) {
	case string:
		flagSet.String(flagName, value, description)
	case int:
		flagSet.Int(flagName, value, description)
	case bool:
		flagSet.Bool(flagName, value, description)
	case float64:
		flagSet.Float64(flagName, value, description)
	}
	return viper.BindPFlag(viperKey, flagSet.Lookup(flagName))
}
