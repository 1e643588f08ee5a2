// Package warehouse renders the statements a table-replace load needs for
// each supported warehouse engine.
package warehouse

import (
	"fmt"
	"strings"

	"github.com/BartekS5/npiload/pkg/models"
)

// Dialect renders the statements of one truncate+copy load. Table and stage
// names are expected to be validated identifiers; file paths are quoted here.
type Dialect interface {
	Name() string
	Count(table string) string
	Truncate(table string) string
	// Stage returns the statements that make the staged file visible to the
	// warehouse. It may be empty when the engine reads the file directly.
	Stage(file *models.StagedFile) ([]string, error)
	Copy(table string, file *models.StagedFile) (string, error)
}

// Options carries the stage names a dialect may need.
type Options struct {
	StageName     string
	ExternalStage string
	StagePath     string
}

// New returns the dialect for a driver name.
func New(driver string, opts Options) (Dialect, error) {
	switch driver {
	case "snowflake":
		return &Snowflake{StageName: opts.StageName, ExternalStage: opts.ExternalStage, StagePath: opts.StagePath}, nil
	case "sqlserver":
		return &SQLServer{}, nil
	case "duckdb":
		return &DuckDB{}, nil
	default:
		return nil, fmt.Errorf("no warehouse dialect for driver %q", driver)
	}
}

func countSQL(table string) string {
	return "SELECT COUNT(*) FROM " + table
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func requireLocal(d Dialect, file *models.StagedFile) error {
	if file == nil || file.Kind != models.StagedLocal || file.Path == "" {
		return fmt.Errorf("%s dialect loads local files only", d.Name())
	}
	return nil
}
