package etl

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/BartekS5/npiload/pkg/logger"
	"github.com/BartekS5/npiload/pkg/models"
	"github.com/BartekS5/npiload/pkg/warehouse"
)

// TableLoader replaces a table's contents with a staged CSV file in one
// transaction: TRUNCATE then COPY, rolled back together on failure.
//
// All statements run on one pinned connection; temporary stages are session
// scoped. Stage statements run before BEGIN since CREATE STAGE commits
// implicitly on Snowflake.
type TableLoader struct {
	DB      *sql.DB
	Dialect warehouse.Dialect
	Table   string
	Log     *zap.SugaredLogger
}

func (l *TableLoader) Load(ctx context.Context, file *models.StagedFile) (*models.LoadResult, error) {
	log := logger.OrNop(l.Log).With(logger.FieldTable, l.Table, logger.FieldDialect, l.Dialect.Name())
	result := &models.LoadResult{Table: l.Table, InitialRowCount: -1, FinalRowCount: -1}

	stageStmts, err := l.Dialect.Stage(file)
	if err != nil {
		return result, markf(ErrLoad, err, "cannot stage %s", file.Location())
	}
	copyStmt, err := l.Dialect.Copy(l.Table, file)
	if err != nil {
		return result, markf(ErrLoad, err, "cannot copy %s", file.Location())
	}

	conn, err := l.DB.Conn(ctx)
	if err != nil {
		return result, markf(ErrLoad, err, "failed to acquire warehouse connection")
	}
	defer conn.Close()

	initial, err := countRows(ctx, conn, l.Dialect.Count(l.Table))
	if err != nil {
		return result, markf(ErrLoad, err, "failed to count rows in %s", l.Table)
	}
	result.InitialRowCount = initial
	log.Infow("Initial row count", logger.FieldRows, initial)

	for _, stmt := range stageStmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return result, markf(ErrLoad, err, "staging statement failed")
		}
	}
	log.Infow("File staged", logger.FieldFile, file.Location(), logger.FieldStatements, len(stageStmts))

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return result, markf(ErrLoad, err, "failed to begin transaction")
	}

	if _, err := tx.ExecContext(ctx, l.Dialect.Truncate(l.Table)); err != nil {
		return result, l.rollback(tx, log, markf(ErrLoad, err, "failed to truncate %s", l.Table))
	}
	log.Infow("Table truncated")

	if _, err := tx.ExecContext(ctx, copyStmt); err != nil {
		return result, l.rollback(tx, log, markf(ErrLoad, err, "failed to copy %s into %s", file.FileName, l.Table))
	}

	if err := tx.Commit(); err != nil {
		return result, markf(ErrLoad, err, "failed to commit load into %s", l.Table)
	}
	log.Infow("Load committed")

	final, err := countRows(ctx, conn, l.Dialect.Count(l.Table))
	if err != nil {
		return result, markf(ErrLoad, err, "failed to count rows in %s after load", l.Table)
	}
	result.FinalRowCount = final
	log.Infow("Final row count", logger.FieldRows, final, "rows_added", result.RowsAdded())
	return result, nil
}

// rollback undoes the open transaction and returns cause. A failed rollback
// is logged; the original error is what the caller needs.
func (l *TableLoader) rollback(tx *sql.Tx, log *zap.SugaredLogger, cause error) error {
	if err := tx.Rollback(); err != nil {
		log.Errorw("Rollback failed", logger.FieldError, err)
		return cause
	}
	log.Warnw("Transaction rolled back", logger.FieldError, cause)
	return cause
}

func countRows(ctx context.Context, conn *sql.Conn, query string) (int64, error) {
	var n int64
	if err := conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ProcedureLoader delegates the reload to a warehouse stored procedure that
// reads the uploaded object itself. Its status message is kept verbatim.
type ProcedureLoader struct {
	DB        *sql.DB
	Procedure string
	Table     string
	Log       *zap.SugaredLogger
}

func (l *ProcedureLoader) Load(ctx context.Context, file *models.StagedFile) (*models.LoadResult, error) {
	log := logger.OrNop(l.Log)
	result := &models.LoadResult{Table: l.Table, InitialRowCount: -1, FinalRowCount: -1}

	log.Infow("Calling reload procedure", "procedure", l.Procedure, logger.FieldFile, file.Location())
	var message sql.NullString
	if err := l.DB.QueryRowContext(ctx, "CALL "+l.Procedure+"()").Scan(&message); err != nil {
		return result, markf(ErrLoad, err, "procedure %s failed", l.Procedure)
	}
	result.Message = message.String
	log.Infow("Reload procedure finished", "message", result.Message)
	return result, nil
}
