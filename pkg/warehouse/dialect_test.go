package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/npiload/pkg/models"
)

func local(path string) *models.StagedFile {
	return &models.StagedFile{Kind: models.StagedLocal, FileName: "npidata.csv", Path: path}
}

func remote(key string) *models.StagedFile {
	return &models.StagedFile{Kind: models.StagedRemote, FileName: "endpoint.csv", Bucket: "nppes", Key: key}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"snowflake", "sqlserver", "duckdb"} {
		d, err := New(name, Options{StageName: "temp_stage"})
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}
	_, err := New("oracle", Options{})
	assert.Error(t, err)
}

func TestNew_SnowflakeOptions(t *testing.T) {
	d, err := New("snowflake", Options{StageName: "npi_load", ExternalStage: "STAGE.nppes_s3", StagePath: "raw"})
	require.NoError(t, err)

	stmts, err := d.Stage(local("/work/npidata.csv"))
	require.NoError(t, err)
	assert.Equal(t, "CREATE OR REPLACE TEMPORARY STAGE npi_load", stmts[0])

	copySQL, err := d.Copy("STAGE.NPI", remote("raw/npi.csv"))
	require.NoError(t, err)
	assert.Contains(t, copySQL, "FROM @STAGE.nppes_s3 FILES = ('npi.csv')")
}

func TestSnowflakeLocal(t *testing.T) {
	d := &Snowflake{StageName: "temp_stage"}

	assert.Equal(t, "TRUNCATE TABLE STAGE.NPI", d.Truncate("STAGE.NPI"))
	assert.Equal(t, "SELECT COUNT(*) FROM STAGE.NPI", d.Count("STAGE.NPI"))

	stmts, err := d.Stage(local("/work/npidata.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE OR REPLACE TEMPORARY STAGE temp_stage",
		"PUT 'file:///work/npidata.csv' @temp_stage AUTO_COMPRESS = TRUE OVERWRITE = TRUE",
	}, stmts)

	copySQL, err := d.Copy("STAGE.NPI", local("/work/npidata.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		`COPY INTO STAGE.NPI FROM @temp_stage FILE_FORMAT = (TYPE = 'CSV' FIELD_OPTIONALLY_ENCLOSED_BY = '"' SKIP_HEADER = 1)`,
		copySQL)
}

func TestSnowflakeRemote(t *testing.T) {
	d := &Snowflake{StageName: "temp_stage", ExternalStage: "STAGE.nppes_s3"}

	stmts, err := d.Stage(remote("raw/endpoint.csv"))
	require.NoError(t, err)
	assert.Empty(t, stmts)

	copySQL, err := d.Copy("STAGE.ENDPOINT", remote("raw/endpoint.csv"))
	require.NoError(t, err)
	assert.Contains(t, copySQL, "COPY INTO STAGE.ENDPOINT FROM @STAGE.nppes_s3 FILES = ('raw/endpoint.csv')")
	assert.Contains(t, copySQL, "SKIP_HEADER = 1")

	_, err = (&Snowflake{StageName: "temp_stage"}).Copy("t", remote("k"))
	assert.Error(t, err)
}

func TestSnowflakeRemote_StagePath(t *testing.T) {
	d := &Snowflake{ExternalStage: "STAGE.nppes_s3", StagePath: "raw/"}

	copySQL, err := d.Copy("STAGE.NPI", remote("raw/npi/NPPES_Data_Dissemination_January_2024.csv"))
	require.NoError(t, err)
	assert.Contains(t, copySQL, "FROM @STAGE.nppes_s3 FILES = ('npi/NPPES_Data_Dissemination_January_2024.csv')")
	assert.NotContains(t, copySQL, "'raw/")

	_, err = d.Copy("STAGE.NPI", remote("other/npi.csv"))
	assert.ErrorContains(t, err, "not under external stage path raw/")

	_, err = d.Copy("STAGE.NPI", remote("rawdata.csv"))
	assert.Error(t, err)
}

func TestSQLServer(t *testing.T) {
	d := SQLServer{}
	stmts, err := d.Stage(local("/work/npi.csv"))
	require.NoError(t, err)
	assert.Empty(t, stmts)

	copySQL, err := d.Copy("dbo.npi", local("/work/o'brien.csv"))
	require.NoError(t, err)
	assert.Contains(t, copySQL, "BULK INSERT dbo.npi FROM '/work/o''brien.csv'")
	assert.Contains(t, copySQL, "FIRSTROW = 2")

	_, err = d.Copy("dbo.npi", remote("k"))
	assert.Error(t, err)
}

func TestDuckDB(t *testing.T) {
	d := DuckDB{}
	assert.Equal(t, "DELETE FROM npi", d.Truncate("npi"))

	copySQL, err := d.Copy("npi", local("/work/npi.csv"))
	require.NoError(t, err)
	assert.Equal(t, `COPY npi FROM '/work/npi.csv' (FORMAT CSV, HEADER TRUE, DELIMITER ',', QUOTE '"')`, copySQL)

	_, err = d.Stage(remote("k"))
	assert.Error(t, err)
}
