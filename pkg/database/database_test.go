package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/npiload/internal/config"
)

func TestDriverAndDSN(t *testing.T) {
	t.Run("snowflake", func(t *testing.T) {
		driver, dsn, err := DriverAndDSN(config.WarehouseConfig{
			Driver:   config.DriverSnowflake,
			User:     "loader",
			Password: "secret",
			Account:  "xy12345",
			Database: "PLAYGROUND_TEST",
			Schema:   "STAGE",
		})
		require.NoError(t, err)
		assert.Equal(t, "snowflake", driver)
		assert.Contains(t, dsn, "loader:secret@")
		assert.Contains(t, dsn, "database=PLAYGROUND_TEST")
		assert.Contains(t, dsn, "schema=STAGE")
	})

	t.Run("sqlserver", func(t *testing.T) {
		driver, dsn, err := DriverAndDSN(config.WarehouseConfig{
			Driver:     config.DriverSQLServer,
			ConnString: "sqlserver://sa:pw@localhost:1433?database=nppes",
		})
		require.NoError(t, err)
		assert.Equal(t, "sqlserver", driver)
		assert.Equal(t, "sqlserver://sa:pw@localhost:1433?database=nppes", dsn)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := DriverAndDSN(config.WarehouseConfig{Driver: "oracle"})
		assert.Error(t, err)
	})
}

func TestConnectWarehouseDuckDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nppes.duckdb")
	db, err := ConnectWarehouse(context.Background(), config.WarehouseConfig{
		Driver:     config.DriverDuckDB,
		DuckDBPath: path,
	})
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}
