package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BartekS5/npiload/internal/config"
	"github.com/BartekS5/npiload/internal/etl"
	"github.com/BartekS5/npiload/pkg/database"
	"github.com/BartekS5/npiload/pkg/history"
	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/metrics"
	"github.com/BartekS5/npiload/pkg/models"
	"github.com/BartekS5/npiload/pkg/notify"
	"github.com/BartekS5/npiload/pkg/utils"
)

// flagKeys maps flag names onto the viper keys they override.
var flagKeys = map[string]string{
	"dataset":   config.KeyDataset,
	"log-dir":   config.KeyLogDir,
	"log-level": config.KeyLogLevel,
	"table":     config.KeyTable,
	"driver":    config.KeyDriver,
	"work-dir":  config.KeyWorkDir,
	"notify":    config.KeyNotify,
	"skip-load": config.KeySkipLoad,
}

// loadViper layers the config file, env and any flags defined on cmd.
func loadViper(cmd *cobra.Command, global *GlobalOptions) (*viper.Viper, error) {
	v, err := config.NewViper(global.ConfigFile)
	if err != nil {
		return nil, err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
	}
	return v, nil
}

func runLoad(cmd *cobra.Command, global *GlobalOptions, strategy string) error {
	v, err := loadViper(cmd, global)
	if err != nil {
		return err
	}
	v.Set(config.KeyStrategy, strategy)

	// Validation happens inside the pipeline so the failure is logged and
	// reported like any other.
	cfg := config.FromViper(v)

	log, closeLog, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer closeLog()

	p := etl.NewPipeline(cfg, log)
	p.Progress = cmd.ErrOrStderr()
	if cfg.Notify {
		p.Notifier = notify.NewSMTP(notify.SMTPConfig{
			Server:    cfg.SMTP.Server,
			Port:      cfg.SMTP.Port,
			User:      cfg.SMTP.User,
			Password:  cfg.SMTP.Password,
			Recipient: cfg.SMTP.Recipient,
		})
	}
	if cfg.History.Enabled() {
		p.History = &history.URIRecorder{
			URI:        cfg.History.MongoURI,
			Database:   cfg.History.Database,
			Collection: cfg.History.Collection,
		}
	}
	if cfg.Metrics.Enabled() {
		p.Metrics = &metrics.Pusher{URL: cfg.Metrics.PushgatewayURL}
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runLocate(cmd *cobra.Command, global *GlobalOptions) error {
	v, err := loadViper(cmd, global)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)

	locator := &etl.Locator{Client: utils.NewHTTPClient(cfg.Source.ConnectTimeout, cfg.Source.ReadTimeout)}
	link, err := locator.Locate(cmd.Context(), cfg.Source.LandingURL, cfg.Source.AnchorPrefix)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), link.URL)
	return nil
}

func runLast(cmd *cobra.Command, global *GlobalOptions) error {
	v, err := loadViper(cmd, global)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)
	if !cfg.History.Enabled() {
		return &config.ConfigError{Var: config.EnvName(config.KeyMongoURI)}
	}

	ctx := cmd.Context()
	client, err := database.ConnectMongo(ctx, cfg.History.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	report, err := history.NewMongoRecorder(client, cfg.History.Database, cfg.History.Collection).Last(ctx, cfg.Dataset)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded for dataset %s.\n", cfg.Dataset)
		return nil
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, r *models.RunReport) {
	fmt.Fprintf(w, "Run:      %s (%s)\n", r.RunID, r.Status)
	fmt.Fprintf(w, "Dataset:  %s via %s\n", r.Dataset, r.Strategy)
	if r.Link != "" {
		fmt.Fprintf(w, "Source:   %s\n", r.Link)
	}
	if r.PayloadName != "" {
		fmt.Fprintf(w, "Payload:  %s (%d bytes, %d rows)\n", r.PayloadName, r.PayloadBytes, r.SourceRows)
	}
	if r.Staged != "" {
		fmt.Fprintf(w, "Staged:   %s\n", r.Staged)
	}
	if r.InitialRows >= 0 && r.FinalRows >= 0 {
		fmt.Fprintf(w, "Table:    %s %d -> %d rows (%+d)\n", r.Table, r.InitialRows, r.FinalRows, r.RowsAdded())
	}
	if r.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", r.Message)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s: %s\n", r.ErrorKind, r.Error)
	}
	fmt.Fprintf(w, "Elapsed:  %s\n", r.Duration.Round(time.Millisecond))
}
