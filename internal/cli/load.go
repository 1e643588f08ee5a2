package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/npiload/internal/config"
)

func NewLoadCmd(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Download the current NPPES file and reload the warehouse table",
	}

	pf := cmd.PersistentFlags()
	pf.StringP("table", "t", "", "Target warehouse table")
	pf.String("driver", "", "Warehouse driver: snowflake, sqlserver or duckdb (default snowflake)")
	pf.StringP("work-dir", "w", "", "Directory the payload is written to (default .)")
	pf.BoolP("notify", "n", false, "Email the run outcome via SMTP")

	local := &cobra.Command{
		Use:   "local",
		Short: "Stage the payload on local disk and bulk-load it",
		RunE: func(c *cobra.Command, args []string) error {
			return runLoad(c, global, config.StrategyLocal)
		},
	}

	remote := &cobra.Command{
		Use:   "s3",
		Short: "Upload the payload to S3, then reload from the bucket",
		RunE: func(c *cobra.Command, args []string) error {
			return runLoad(c, global, config.StrategyRemote)
		},
	}
	remote.Flags().Bool("skip-load", false, "Only upload; do not touch the warehouse")

	cmd.AddCommand(local, remote)
	return cmd
}
