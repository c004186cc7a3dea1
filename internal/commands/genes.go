package commands

import (
	"errors"
	"fmt"

	"github.com/compose-network/mediator-deployer/internal/genes"
	"github.com/spf13/cobra"
)

var (
	genesFrom  int
	genesCount int
)

var GenesCMD = &cobra.Command{
	Use:   "genes",
	Short: "Print the genes promotional mints use",
	RunE: func(cmd *cobra.Command, args []string) error {
		if genesFrom < 0 || genesCount < 0 {
			return errors.New("--from and --count must not be negative")
		}
		for i := genesFrom; i < genesFrom+genesCount; i++ {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", i, genes.For(i)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	GenesCMD.Flags().IntVar(&genesFrom, "from", 0, "First mint index")
	GenesCMD.Flags().IntVar(&genesCount, "count", genes.Len(), "Number of indexes to print")
}
