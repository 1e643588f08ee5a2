package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSnowflakeEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_PASSWORD", "secret")
	t.Setenv("SNOWFLAKE_ACCOUNT", "xy12345")
	t.Setenv("SNOWFLAKE_DATABASE", "PLAYGROUND_TEST")
	t.Setenv("SNOWFLAKE_SCHEMA", "STAGE")
	t.Setenv("WAREHOUSE_TABLE", "PLAYGROUND_TEST.STAGE.test_npi_data")
}

func TestLoadDefaults(t *testing.T) {
	setSnowflakeEnv(t)

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DatasetNPI, cfg.Dataset)
	assert.Equal(t, StrategyLocal, cfg.Strategy)
	assert.Equal(t, DefaultLandingURL, cfg.Source.LandingURL)
	assert.Equal(t, DefaultAnchorPrefix, cfg.Source.AnchorPrefix)
	assert.Equal(t, "npi", cfg.Source.MemberPrefix)
	assert.Equal(t, DefaultExcludeSuffix, cfg.Source.ExcludeSuffix)
	assert.Equal(t, 10*time.Second, cfg.Source.ConnectTimeout)
	assert.Equal(t, 1000*time.Second, cfg.Source.ReadTimeout)
	assert.Equal(t, DriverSnowflake, cfg.Warehouse.Driver)
	assert.Equal(t, DefaultStage, cfg.Warehouse.Stage)
	assert.Equal(t, int64(DefaultPartSize), cfg.Storage.PartSize)
	assert.False(t, cfg.History.Enabled())
	assert.False(t, cfg.Metrics.Enabled())
}

func TestLoadEndpointDataset(t *testing.T) {
	setSnowflakeEnv(t)
	t.Setenv("NPPES_DATASET", "endpoint")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "endpoint_", cfg.Source.MemberPrefix)
}

func TestLoadExternalStagePath(t *testing.T) {
	setSnowflakeEnv(t)
	t.Setenv("WAREHOUSE_EXTERNAL_STAGE", "STAGE.nppes_s3")
	t.Setenv("WAREHOUSE_EXTERNAL_STAGE_PATH", "raw/")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "STAGE.nppes_s3", cfg.Warehouse.ExternalStage)
	assert.Equal(t, "raw/", cfg.Warehouse.StagePath)
}

func TestLoadMissingVariableNamesIt(t *testing.T) {
	setSnowflakeEnv(t)
	t.Setenv("SNOWFLAKE_ACCOUNT", "")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrConfig)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SNOWFLAKE_ACCOUNT", cfgErr.Var)
	assert.Equal(t, "environment variable SNOWFLAKE_ACCOUNT not set", err.Error())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "npiload.yaml")
	content := `
warehouse:
  driver: duckdb
  duckdb_path: /tmp/nppes.duckdb
  table: npi_data
work_dir: /tmp/work
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DriverDuckDB, cfg.Warehouse.Driver)
	assert.Equal(t, "/tmp/nppes.duckdb", cfg.Warehouse.DuckDBPath)
	assert.Equal(t, "/tmp/work", cfg.WorkDir)
}

func validRemote() *Config {
	return &Config{
		Dataset:  DatasetEndpoint,
		Strategy: StrategyRemote,
		Source: SourceConfig{
			LandingURL:     DefaultLandingURL,
			AnchorPrefix:   DefaultAnchorPrefix,
			MemberPrefix:   "endpoint_",
			ExcludeSuffix:  DefaultExcludeSuffix,
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
		},
		Warehouse: WarehouseConfig{
			Driver:    DriverSnowflake,
			Procedure: "PLAYGROUND_TEST.STAGE.reload_data_from_s3",
			User:      "u", Password: "p", Account: "a", Database: "d", Schema: "s",
		},
		Storage: StorageConfig{
			AccessKeyID: "AKIA", SecretAccessKey: "secret", Region: "us-east-1", Bucket: "nppes",
			PartSize: DefaultPartSize, Concurrency: 1,
		},
		SMTP: SMTPConfig{Port: DefaultSMTPPort},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantVar string
	}{
		{"remote with procedure", func(c *Config) {}, ""},
		{"missing bucket", func(c *Config) { c.Storage.Bucket = "" }, "S3_BUCKET"},
		{"missing secret", func(c *Config) { c.Storage.SecretAccessKey = "" }, "AWS_SECRET_ACCESS_KEY"},
		{"part size below minimum", func(c *Config) { c.Storage.PartSize = 1024 }, "S3_PART_SIZE"},
		{"zero concurrency", func(c *Config) { c.Storage.Concurrency = 0 }, "S3_CONCURRENCY"},
		{"bad procedure", func(c *Config) { c.Warehouse.Procedure = "x; DROP TABLE y" }, "WAREHOUSE_PROCEDURE"},
		{"copy without external stage", func(c *Config) {
			c.Warehouse.Procedure = ""
			c.Warehouse.Table = "t"
		}, "WAREHOUSE_EXTERNAL_STAGE"},
		{"copy with external stage", func(c *Config) {
			c.Warehouse.Procedure = ""
			c.Warehouse.Table = "t"
			c.Warehouse.ExternalStage = "STAGE.nppes_s3"
		}, ""},
		{"copy from bucket needs snowflake", func(c *Config) {
			c.Warehouse.Procedure = ""
			c.Warehouse.Table = "t"
			c.Warehouse.Driver = DriverDuckDB
			c.Warehouse.DuckDBPath = "x.duckdb"
		}, "WAREHOUSE_DRIVER"},
		{"skip load ignores warehouse", func(c *Config) {
			c.SkipLoad = true
			c.Warehouse = WarehouseConfig{}
		}, ""},
		{"notify needs recipient", func(c *Config) {
			c.Notify = true
			c.SMTP = SMTPConfig{Server: "smtp.example.test", Port: 587, User: "u", Password: "p"}
		}, "SMTP_RECIPIENT"},
		{"unknown strategy", func(c *Config) { c.Strategy = "ftp" }, "LOAD_STRATEGY"},
		{"unknown dataset", func(c *Config) {
			c.Dataset = "taxonomy"
			c.Source.MemberPrefix = ""
		}, "NPPES_DATASET"},
		{"local rejects skip load", func(c *Config) {
			c.Strategy = StrategyLocal
			c.SkipLoad = true
		}, "LOAD_STRATEGY"},
		{"local needs table", func(c *Config) {
			c.Strategy = StrategyLocal
			c.Warehouse.Procedure = ""
		}, "WAREHOUSE_TABLE"},
		{"local rejects injected table", func(c *Config) {
			c.Strategy = StrategyLocal
			c.Warehouse.Table = "t; DROP TABLE t"
		}, "WAREHOUSE_TABLE"},
		{"sqlserver needs connection string", func(c *Config) {
			c.Strategy = StrategyLocal
			c.Warehouse.Table = "dbo.npi"
			c.Warehouse.Driver = DriverSQLServer
		}, "SQL_CONNECTION_STRING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRemote()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantVar == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantVar, cfgErr.Var)
		})
	}
}

func TestValidTableName(t *testing.T) {
	assert.True(t, ValidTableName("npi"))
	assert.True(t, ValidTableName("STAGE.ENDPOINT"))
	assert.True(t, ValidTableName("PLAYGROUND_TEST.STAGE.test_npi_data"))
	assert.False(t, ValidTableName("a.b.c.d"))
	assert.False(t, ValidTableName("1abc"))
	assert.False(t, ValidTableName("t --"))
	assert.False(t, ValidTableName(""))
}
