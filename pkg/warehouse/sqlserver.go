package warehouse

import (
	"fmt"

	"github.com/BartekS5/npiload/pkg/models"
)

// SQLServer loads with BULK INSERT. The path must be readable by the server
// process, so this suits a server sharing the working directory.
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) Count(table string) string { return countSQL(table) }

func (SQLServer) Truncate(table string) string { return "TRUNCATE TABLE " + table }

func (d SQLServer) Stage(file *models.StagedFile) ([]string, error) {
	return nil, requireLocal(d, file)
}

func (d SQLServer) Copy(table string, file *models.StagedFile) (string, error) {
	if err := requireLocal(d, file); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"BULK INSERT %s FROM %s WITH (FORMAT = 'CSV', FIRSTROW = 2, FIELDQUOTE = '\"', FIELDTERMINATOR = ',', ROWTERMINATOR = '0x0a', TABLOCK)",
		table, quoteLiteral(file.Path)), nil
}
