// Package logger builds the zap logger shared by every pipeline component.
// Output goes to the console and to a per-day log file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names so log lines stay greppable across components.
const (
	FieldRunID      = "run_id"
	FieldStage      = "stage"
	FieldURL        = "url"
	FieldFile       = "file"
	FieldSize       = "size_bytes"
	FieldTable      = "table"
	FieldBucket     = "bucket"
	FieldKey        = "key"
	FieldParts      = "parts"
	FieldRows       = "rows"
	FieldDuration   = "duration_s"
	FieldErrorKind  = "error_kind"
	FieldError      = "error"
	FieldDataset    = "dataset"
	FieldStrategy   = "strategy"
	FieldDialect    = "dialect"
	FieldStatements = "statements"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	Dir   string
	Level string
	// Now is used to name the log file; defaults to time.Now.
	Now func() time.Time
}

// FileName returns the per-day log file name, e.g. NPI_Loader_March_2025_07.log.
func FileName(t time.Time) string {
	return fmt.Sprintf("NPI_Loader_%s.log", t.Format("January_2006_02"))
}

// New returns a sugared logger teeing console and log file output, plus a
// closer that flushes and closes the file.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(now()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), level),
	)

	log := zap.New(core).Sugar()
	closer := func() {
		_ = log.Sync()
		_ = file.Close()
	}
	return log, closer, nil
}

// ParseLevel maps the LOG_LEVEL setting onto a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
