// Package config builds the immutable run configuration from environment
// variables (populated from .env in main.go), cobra flags and an optional
// config file, and validates it before any network activity.
package config

import (
	"regexp"
	"time"
)

const (
	StrategyLocal  = "local"
	StrategyRemote = "s3"

	DriverSnowflake = "snowflake"
	DriverSQLServer = "sqlserver"
	DriverDuckDB    = "duckdb"

	DatasetNPI      = "npi"
	DatasetEndpoint = "endpoint"

	DefaultLandingURL    = "https://download.cms.gov/nppes/NPI_Files.html"
	DefaultAnchorPrefix  = "DDSMTH.ZIP"
	DefaultExcludeSuffix = "fileheader.csv"
	DefaultStage         = "temp_stage"
	DefaultPartSize      = 5 * 1024 * 1024
	DefaultSMTPPort      = 587
)

// memberPrefixes maps dataset presets onto the archive member they load.
var memberPrefixes = map[string]string{
	DatasetNPI:      "npi",
	DatasetEndpoint: "endpoint_",
}

// Config holds everything one pipeline run needs. It is built once and
// passed by pointer into each component; nothing mutates it afterwards.
type Config struct {
	Dataset  string
	Strategy string
	SkipLoad bool
	Notify   bool
	WorkDir  string

	Source    SourceConfig
	Warehouse WarehouseConfig
	Storage   StorageConfig
	SMTP      SMTPConfig
	History   HistoryConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type SourceConfig struct {
	LandingURL     string
	AnchorPrefix   string
	MemberPrefix   string
	ExcludeSuffix  string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

type WarehouseConfig struct {
	Driver        string
	Table         string
	Stage         string
	ExternalStage string
	// StagePath is the bucket prefix the external stage URL already
	// includes. It is stripped from object keys in COPY ... FILES.
	StagePath string
	Procedure string

	// Snowflake
	User      string
	Password  string
	Account   string
	Database  string
	Schema    string
	Warehouse string
	Role      string

	// SQL Server
	ConnString string

	// DuckDB
	DuckDBPath string
}

type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	KeyPrefix       string
	KeyTemplate     string
	Endpoint        string
	UsePathStyle    bool
	PartSize        int64
	Concurrency     int
}

type SMTPConfig struct {
	Server    string
	Port      int
	User      string
	Password  string
	Recipient string
}

type HistoryConfig struct {
	MongoURI   string
	Database   string
	Collection string
}

// Enabled reports whether runs should be recorded.
func (h HistoryConfig) Enabled() bool { return h.MongoURI != "" }

type MetricsConfig struct {
	PushgatewayURL string
}

// Enabled reports whether run metrics should be pushed.
func (m MetricsConfig) Enabled() bool { return m.PushgatewayURL != "" }

type LogConfig struct {
	Dir   string
	Level string
}

// MemberPrefix returns the archive member prefix for a dataset preset.
func MemberPrefix(dataset string) (string, bool) {
	p, ok := memberPrefixes[dataset]
	return p, ok
}

var tableIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// ValidTableName reports whether name is a plain [db.][schema.]table identifier.
func ValidTableName(name string) bool {
	return tableIdent.MatchString(name)
}

// UsesProcedure reports whether the warehouse reload is delegated to a stored procedure.
func (c *Config) UsesProcedure() bool {
	return c.Strategy == StrategyRemote && c.Warehouse.Procedure != ""
}

// NeedsWarehouse reports whether the run talks to the warehouse at all.
func (c *Config) NeedsWarehouse() bool {
	return !(c.Strategy == StrategyRemote && c.SkipLoad)
}
