package commands

import (
	"errors"
	"fmt"

	"github.com/compose-network/mediator-deployer/configs"
	"github.com/compose-network/mediator-deployer/internal/account"
	"github.com/spf13/cobra"
)

var AddressCMD = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the deployment account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configs.Values.Deployment.PrivateKey == "" {
			return errors.New("deployment.private-key is required")
		}
		address, err := account.AddressFromPrivateKey(configs.Values.Deployment.PrivateKey)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), address)
		return err
	},
}
