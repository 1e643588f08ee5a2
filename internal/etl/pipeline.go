package etl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BartekS5/npiload/internal/config"
	"github.com/BartekS5/npiload/pkg/database"
	"github.com/BartekS5/npiload/pkg/history"
	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/metrics"
	"github.com/BartekS5/npiload/pkg/models"
	"github.com/BartekS5/npiload/pkg/notify"
	s3store "github.com/BartekS5/npiload/pkg/storage/s3"
	"github.com/BartekS5/npiload/pkg/utils"
	"github.com/BartekS5/npiload/pkg/warehouse"
)

// Pipeline runs one locate, fetch, extract, stage, load pass. A nil HTTP,
// Connect or Sink is built from Config; a nil Notifier, History or Metrics
// is skipped.
type Pipeline struct {
	Config *config.Config
	Log    *zap.SugaredLogger

	HTTP     *http.Client
	Connect  func(ctx context.Context, w config.WarehouseConfig) (*sql.DB, error)
	Sink     Sink
	Notifier notify.Notifier
	History  history.Recorder
	Metrics  *metrics.Pusher
	// Progress receives the multipart upload progress bar.
	Progress io.Writer
	Now      func() time.Time
}

func NewPipeline(cfg *config.Config, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{Config: cfg, Log: log}
}

// Run executes the pipeline and always returns a report, also on failure.
// The warehouse connection is opened before the download so bad credentials
// fail the run without fetching the archive. The local file and the
// connection are released on every path.
func (p *Pipeline) Run(ctx context.Context) (report *models.RunReport, err error) {
	now := p.now()
	cfg := p.Config
	started := now()

	report = &models.RunReport{
		RunID:       uuid.NewString(),
		Dataset:     cfg.Dataset,
		Strategy:    cfg.Strategy,
		Table:       cfg.Warehouse.Table,
		InitialRows: -1,
		FinalRows:   -1,
		SourceRows:  -1,
		StartedAt:   started,
	}
	log := logger.OrNop(p.Log).With(
		logger.FieldRunID, report.RunID,
		logger.FieldDataset, cfg.Dataset,
		logger.FieldStrategy, cfg.Strategy,
	)
	log.Infow("Pipeline started")

	defer func() {
		p.finish(ctx, log, report, err, now())
	}()

	if err = cfg.Validate(); err != nil {
		return report, err
	}

	var db *sql.DB
	if cfg.NeedsWarehouse() {
		log.Infow("Connecting to warehouse", logger.FieldStage, "connect", "driver", cfg.Warehouse.Driver)
		db, err = p.connect(ctx, cfg.Warehouse)
		if err != nil {
			return report, markf(ErrLoad, err, "failed to connect to %s warehouse", cfg.Warehouse.Driver)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				log.Warnw("Failed to close warehouse connection", logger.FieldError, cerr)
			}
		}()
	}

	sink, err := p.sink(ctx, log)
	if err != nil {
		return report, err
	}

	client := p.HTTP
	if client == nil {
		client = utils.NewHTTPClient(cfg.Source.ConnectTimeout, cfg.Source.ReadTimeout)
	}

	locator := &Locator{Client: client, Log: log}
	link, err := locator.Locate(ctx, cfg.Source.LandingURL, cfg.Source.AnchorPrefix)
	if err != nil {
		return report, err
	}
	report.Link = link.URL

	fetcher := &Fetcher{Client: client, Log: log}
	archive, err := fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return report, err
	}

	payload, err := Extract(archive, cfg.Source.MemberPrefix, cfg.Source.ExcludeSuffix)
	if err != nil {
		return report, err
	}
	report.PayloadName = payload.FileName
	report.PayloadBytes = payload.Size()
	log.Infow("Payload extracted", logger.FieldFile, payload.FileName, logger.FieldSize, payload.Size())

	if rows, cerr := utils.CountCSVDataRows(payload.Content); cerr != nil {
		log.Warnw("Could not count source rows", logger.FieldError, cerr)
	} else {
		report.SourceRows = rows
		log.Infow("Source rows counted", logger.FieldRows, rows)
	}

	staged, err := sink.Stage(ctx, payload)
	defer func() {
		if cerr := sink.Cleanup(staged); cerr != nil {
			log.Warnw("Cleanup failed", logger.FieldError, cerr)
		}
	}()
	if err != nil {
		return report, err
	}
	report.Staged = staged.Location()

	if cfg.SkipLoad {
		report.Message = fmt.Sprintf("Uploaded %s to %s; warehouse load skipped.", payload.FileName, staged.Location())
		log.Infow("Warehouse load skipped", logger.FieldFile, staged.Location())
		return report, nil
	}

	loader, err := p.loader(db, log)
	if err != nil {
		return report, err
	}
	result, err := loader.Load(ctx, staged)
	if result != nil {
		report.InitialRows = result.InitialRowCount
		report.FinalRows = result.FinalRowCount
		report.Message = result.Message
	}
	if err != nil {
		return report, err
	}

	if result.InitialRowCount >= 0 && result.FinalRowCount >= 0 {
		log.Infow("Load complete",
			logger.FieldTable, result.Table,
			"initial_rows", result.InitialRowCount,
			"final_rows", result.FinalRowCount,
			"rows_added", result.RowsAdded(),
		)
		if report.SourceRows >= 0 && report.SourceRows != result.FinalRowCount {
			log.Warnw("Loaded row count differs from source",
				"source_rows", report.SourceRows, "final_rows", result.FinalRowCount)
		}
	}
	return report, nil
}

// finish stamps the report and runs the best-effort reporting steps. None of
// them can change the run's outcome. Configuration failures stop before any
// of them since they talk to the network.
func (p *Pipeline) finish(ctx context.Context, log *zap.SugaredLogger, report *models.RunReport, err error, finished time.Time) {
	report.FinishedAt = finished
	report.Duration = finished.Sub(report.StartedAt)

	if err != nil {
		report.Status = models.RunFailed
		report.ErrorKind = Kind(err)
		report.Error = err.Error()
		log.Errorw("Pipeline failed",
			logger.FieldErrorKind, report.ErrorKind,
			logger.FieldError, err,
			logger.FieldDuration, report.Duration.Seconds(),
		)
	} else {
		report.Status = models.RunSucceeded
		log.Infow("Pipeline finished", logger.FieldDuration, report.Duration.Seconds())
	}

	if report.ErrorKind == "config" {
		return
	}

	// The run context may already be cancelled; reporting still goes out.
	ctx = context.WithoutCancel(ctx)

	if p.Config.Notify && p.Notifier != nil {
		if nerr := p.Notifier.Notify(ctx, notify.DefaultSubject, NotificationBody(report)); nerr != nil {
			log.Warnw("Failed to send notification", logger.FieldError, nerr)
		} else {
			log.Infow("Notification sent")
		}
	}
	if p.History != nil {
		if herr := p.History.Record(ctx, report); herr != nil {
			log.Warnw("Failed to record run", logger.FieldError, herr)
		}
	}
	if p.Metrics != nil {
		m := metrics.New()
		m.Observe(report)
		if merr := p.Metrics.Push(ctx, m, report.Dataset); merr != nil {
			log.Warnw("Failed to push metrics", logger.FieldError, merr)
		}
	}
}

// NotificationBody renders the plain-text email for a finished run. A
// procedure status message is used verbatim.
func NotificationBody(r *models.RunReport) string {
	if r.Status == models.RunFailed {
		return fmt.Sprintf("NPPES %s data reload failed (%s).\n\nError: %s\nRun: %s\nElapsed: %s\n",
			r.Dataset, r.ErrorKind, r.Error, r.RunID, r.Duration.Round(time.Second))
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("NPPES %s data reload into %s succeeded.\n\nFile: %s\nInitial rows: %d\nFinal rows: %d\nRows added: %d\nRun: %s\nElapsed: %s\n",
		r.Dataset, r.Table, r.PayloadName, r.InitialRows, r.FinalRows, r.RowsAdded(), r.RunID, r.Duration.Round(time.Second))
}

func (p *Pipeline) now() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}

func (p *Pipeline) connect(ctx context.Context, w config.WarehouseConfig) (*sql.DB, error) {
	if p.Connect != nil {
		return p.Connect(ctx, w)
	}
	return database.ConnectWarehouse(ctx, w)
}

func (p *Pipeline) sink(ctx context.Context, log *zap.SugaredLogger) (Sink, error) {
	if p.Sink != nil {
		return p.Sink, nil
	}
	cfg := p.Config
	if cfg.Strategy == config.StrategyLocal {
		return NewLocalSink(cfg.WorkDir, log), nil
	}

	st := cfg.Storage
	client, err := s3store.NewClient(ctx, s3store.Config{
		Region:          st.Region,
		Endpoint:        st.Endpoint,
		UsePathStyle:    st.UsePathStyle,
		AccessKeyID:     st.AccessKeyID,
		SecretAccessKey: st.SecretAccessKey,
	})
	if err != nil {
		return nil, markf(ErrUpload, err, "failed to create object storage client")
	}
	return &ObjectStoreSink{
		Uploader: &s3store.Uploader{
			API:         client,
			PartSize:    st.PartSize,
			Concurrency: st.Concurrency,
			Progress:    p.Progress,
		},
		Bucket:   st.Bucket,
		Prefix:   st.KeyPrefix,
		Template: st.KeyTemplate,
		Now:      p.Now,
		Log:      log,
	}, nil
}

func (p *Pipeline) loader(db *sql.DB, log *zap.SugaredLogger) (Loader, error) {
	w := p.Config.Warehouse
	if p.Config.UsesProcedure() {
		return &ProcedureLoader{DB: db, Procedure: w.Procedure, Table: w.Table, Log: log}, nil
	}
	dialect, err := warehouse.New(w.Driver, warehouse.Options{StageName: w.Stage, ExternalStage: w.ExternalStage, StagePath: w.StagePath})
	if err != nil {
		return nil, markf(ErrLoad, err, "no loader for warehouse")
	}
	return &TableLoader{DB: db, Dialect: dialect, Table: w.Table, Log: log}, nil
}
