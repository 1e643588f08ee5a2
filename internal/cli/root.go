package cli

import (
	"github.com/spf13/cobra"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
}

func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "npiload",
		Short: "npiload - monthly NPPES registry loader",
		Long: `npiload downloads the monthly NPPES data dissemination archive, extracts
the NPI or endpoint file and replaces the contents of a warehouse table with it,
either straight from local disk or through an S3 bucket.

Settings come from the environment (and a .env file), an optional --config
file and the flags below, flags winning.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a config file (yaml, toml or json)")
	pf.StringP("dataset", "d", "", "Dataset preset: npi or endpoint (default npi)")
	pf.String("log-dir", "", "Directory for the daily log file (default .)")
	pf.String("log-level", "", "Log level: debug, info, warn or error (default info)")

	rootCmd.AddCommand(NewLoadCmd(opts), NewLocateCmd(opts), NewHistoryCmd(opts))

	return rootCmd
}
