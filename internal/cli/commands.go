package cli

import (
	"github.com/spf13/cobra"
)

// NewLocateCmd prints the current archive link without downloading it.
func NewLocateCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the download link of the current monthly archive",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runLocate(c, global)
		},
	}
}

// NewHistoryCmd shows the last recorded run from the MongoDB ledger.
func NewHistoryCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the last recorded run for the dataset",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runLast(c, global)
		},
	}
}
