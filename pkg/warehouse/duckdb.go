package warehouse

import (
	"fmt"

	"github.com/BartekS5/npiload/pkg/models"
)

// DuckDB is the embedded target used for local runs. It reads the staged
// file directly, so there is no stage step.
type DuckDB struct{}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) Count(table string) string { return countSQL(table) }

// Truncate uses DELETE so the statement takes part in the surrounding transaction.
func (DuckDB) Truncate(table string) string { return "DELETE FROM " + table }

func (d DuckDB) Stage(file *models.StagedFile) ([]string, error) {
	return nil, requireLocal(d, file)
}

func (d DuckDB) Copy(table string, file *models.StagedFile) (string, error) {
	if err := requireLocal(d, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("COPY %s FROM %s (FORMAT CSV, HEADER TRUE, DELIMITER ',', QUOTE '\"')",
		table, quoteLiteral(file.Path)), nil
}
